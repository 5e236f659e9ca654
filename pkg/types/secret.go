package types

// Redacted replaces secret values in every serialized form.
const Redacted = "********"

// Secret holds a credential that must never appear in logs, error text or
// serialized output. All formatting and marshaling interfaces return a
// redacted placeholder; callers that need the real value use Reveal at the
// point where the credential crosses to the device.
type Secret string

// Reveal returns the underlying credential value.
func (s Secret) Reveal() string {
	return string(s)
}

// String implements fmt.Stringer with redaction.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return Redacted
}

// GoString implements fmt.GoStringer so %#v stays redacted.
func (s Secret) GoString() string {
	return "types.Secret(" + s.String() + ")"
}

// MarshalText implements encoding.TextMarshaler with redaction. JSON and YAML
// encoders pick this up, so a serialized TargetSpec never carries the
// credential.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the plain credential from request payloads.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}
