package ilo

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DriverRIBCL is the name of the RIBCL-over-HTTPS client driver. RIBCL is the
// XML scripting interface spoken by HP iLO controllers, the same wire
// protocol python-hpilo uses.
const DriverRIBCL = "ribcl"

const (
	defaultRIBCLTimeout = 30 * time.Second
	ribclPath           = "/ribcl"

	// ribclStatusOK is the RESPONSE STATUS attribute for success.
	ribclStatusOK = "0x0000"
)

func init() {
	Register(DriverRIBCL, ribclDriver{})
}

type ribclDriver struct{}

// Connect builds an HTTPS client for the target and validates credentials and
// protocol negotiation with a firmware-version probe, so authentication and
// handshake failures surface at session establishment.
func (ribclDriver) Connect(ctx context.Context, target Target) (Session, error) {
	host := strings.TrimSpace(target.Host)
	if host == "" {
		return nil, errors.New("ilo: target host is empty")
	}

	tlsCfg, err := tlsConfigFor(target.SSLVersion)
	if err != nil {
		return nil, err
	}

	timeout := target.Timeout
	if timeout <= 0 {
		timeout = defaultRIBCLTimeout
	}

	endpoint := host
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	endpoint = strings.TrimRight(endpoint, "/") + ribclPath

	session := &ribclSession{
		endpoint: endpoint,
		login:    target.Login,
		password: target.Password.Reveal(),
		httpc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsCfg,
			},
		},
	}

	if _, err := session.firmwareVersion(ctx); err != nil {
		return nil, fmt.Errorf("probing iLO at %s: %w", host, err)
	}
	return session, nil
}

type ribclSession struct {
	endpoint string
	login    string
	password string
	httpc    *http.Client
}

// HostPowerStatus implements Session.
func (s *ribclSession) HostPowerStatus(ctx context.Context) (string, error) {
	docs, err := s.roundTrip(ctx, "SERVER_INFO", "read", "<GET_HOST_POWER_STATUS/>")
	if err != nil {
		return "", err
	}

	for _, doc := range docs {
		if doc.HostPower != nil {
			return strings.ToUpper(strings.TrimSpace(doc.HostPower.Value)), nil
		}
	}
	return "", errors.New("ribcl: response carried no GET_HOST_POWER element")
}

// OneTimeBootDevice implements Session.
func (s *ribclSession) OneTimeBootDevice(ctx context.Context) (string, error) {
	docs, err := s.roundTrip(ctx, "SERVER_INFO", "read", "<GET_ONE_TIME_BOOT/>")
	if err != nil {
		return "", err
	}

	for _, doc := range docs {
		if doc.OneTimeBoot != nil {
			return strings.ToLower(strings.TrimSpace(doc.OneTimeBoot.Value)), nil
		}
	}
	return "", errors.New("ribcl: response carried no ONE_TIME_BOOT element")
}

// SetOneTimeBootDevice implements Session.
func (s *ribclSession) SetOneTimeBootDevice(ctx context.Context, device string) error {
	command := fmt.Sprintf(`<SET_ONE_TIME_BOOT VALUE="%s"/>`, strings.ToUpper(strings.TrimSpace(device)))
	_, err := s.roundTrip(ctx, "SERVER_INFO", "write", command)
	return err
}

// PressPowerButton implements Session.
func (s *ribclSession) PressPowerButton(ctx context.Context) error {
	_, err := s.roundTrip(ctx, "SERVER_INFO", "write", "<PRESS_PWR_BTN/>")
	return err
}

func (s *ribclSession) firmwareVersion(ctx context.Context) (string, error) {
	docs, err := s.roundTrip(ctx, "RIB_INFO", "read", "<GET_FW_VERSION/>")
	if err != nil {
		return "", err
	}

	for _, doc := range docs {
		if doc.Firmware != nil {
			return strings.TrimSpace(doc.Firmware.Version), nil
		}
	}
	return "", errors.New("ribcl: response carried no GET_FW_VERSION element")
}

// roundTrip posts one RIBCL script and returns the parsed response documents
// after checking every RESPONSE status. Credentials are embedded in the
// request body only; they never appear in returned errors.
func (s *ribclSession) roundTrip(ctx context.Context, section, mode, command string) ([]ribclDoc, error) {
	body := buildRIBCLScript(s.login, s.password, section, mode, command)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ribcl: building request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, classifyTransportError(fmt.Errorf("ribcl: sending request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyTransportError(fmt.Errorf("ribcl: unexpected HTTP status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classifyTransportError(fmt.Errorf("ribcl: reading response: %w", err))
	}

	docs, err := parseRIBCLResponse(raw)
	if err != nil {
		return nil, err
	}

	for _, doc := range docs {
		for _, status := range doc.Responses {
			code := strings.ToLower(strings.TrimSpace(status.Status))
			if code == "" || code == ribclStatusOK {
				continue
			}
			return nil, classifyDeviceError(code, strings.TrimSpace(status.Message))
		}
	}
	return docs, nil
}

// buildRIBCLScript assembles one RIBCL request document. Attribute values are
// XML-escaped so credentials with markup characters survive intact.
func buildRIBCLScript(login, password, section, mode, command string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0"?>` + "\n")
	buf.WriteString(`<RIBCL VERSION="2.0">` + "\n")
	fmt.Fprintf(&buf, `<LOGIN USER_LOGIN="%s" PASSWORD="%s">`+"\n", escapeAttr(login), escapeAttr(password))
	fmt.Fprintf(&buf, `<%s MODE="%s">`+"\n", section, mode)
	buf.WriteString(command + "\n")
	fmt.Fprintf(&buf, `</%s>`+"\n", section)
	buf.WriteString(`</LOGIN>` + "\n")
	buf.WriteString(`</RIBCL>` + "\n")
	return buf.Bytes()
}

func escapeAttr(value string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(value))
	return buf.String()
}

// ribclDoc is one parsed RIBCL response document. A single reply body holds
// several concatenated documents, most carrying only a RESPONSE element.
type ribclDoc struct {
	XMLName   xml.Name      `xml:"RIBCL"`
	Version   string        `xml:"VERSION,attr"`
	Responses []ribclStatus `xml:"RESPONSE"`

	HostPower   *hostPowerElement   `xml:"GET_HOST_POWER"`
	OneTimeBoot *oneTimeBootElement `xml:"ONE_TIME_BOOT"`
	Firmware    *firmwareElement    `xml:"GET_FW_VERSION"`
}

type ribclStatus struct {
	Status  string `xml:"STATUS,attr"`
	Message string `xml:"MESSAGE,attr"`
}

type hostPowerElement struct {
	Value string `xml:"HOST_POWER,attr"`
}

type oneTimeBootElement struct {
	Value string `xml:"VALUE,attr"`
}

type firmwareElement struct {
	Version string `xml:"FIRMWARE_VERSION,attr"`
}

// parseRIBCLResponse splits a reply body into its concatenated XML documents
// and decodes each one. Empty chunks and stray whitespace are skipped; iLO
// firmware is not strict about what it emits.
func parseRIBCLResponse(raw []byte) ([]ribclDoc, error) {
	chunks := strings.Split(string(raw), "<?xml")
	docs := make([]ribclDoc, 0, len(chunks))

	for _, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk)
		if trimmed == "" {
			continue
		}
		if idx := strings.Index(trimmed, "?>"); idx >= 0 {
			trimmed = trimmed[idx+2:]
		}
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == "" {
			continue
		}

		var doc ribclDoc
		if err := xml.Unmarshal([]byte(trimmed), &doc); err != nil {
			return nil, fmt.Errorf("ribcl: decoding response document: %w", err)
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, errors.New("ribcl: empty response")
	}
	return docs, nil
}

// deviceError carries the RIBCL status code and device message verbatim.
type deviceError struct {
	code    string
	message string
}

func (e *deviceError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("ribcl: device returned status %s", e.code)
	}
	return fmt.Sprintf("ribcl: device returned status %s: %s", e.code, e.message)
}

// classifyDeviceError marks busy/lock conditions as transient so the caller
// can apply its single delayed retry; anything else is a permanent failure.
func classifyDeviceError(code, message string) error {
	err := &deviceError{code: code, message: message}

	lower := strings.ToLower(message)
	transientPatterns := []string{
		"busy",
		"locked",
		"lock acquisition",
		"in use",
		"try again",
		"temporar",
		"timeout",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(lower, pattern) {
			return MarkTransient(err)
		}
	}
	return err
}

// classifyTransportError marks connectivity blips as transient. Context
// cancellation passes through untouched.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	lower := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"temporary",
		"connection refused",
		"connection reset",
		"unexpected http status 408",
		"unexpected http status 429",
		"unexpected http status 500",
		"unexpected http status 502",
		"unexpected http status 503",
		"unexpected http status 504",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(lower, pattern) {
			return MarkTransient(err)
		}
	}
	return err
}
