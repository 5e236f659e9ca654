package controller

import (
	"errors"

	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

// Kind identifies a failure class so callers can branch on transient vs fatal
// conditions precisely.
type Kind int

const (
	// KindUnknown is the zero value for unclassified failures.
	KindUnknown Kind = iota
	// KindInvalidArgument covers malformed invocation parameters, detected
	// before any device contact.
	KindInvalidArgument
	// KindMissingCapability covers an unavailable client driver, reported
	// before parameter use.
	KindMissingCapability
	// KindSessionEstablish covers authentication or negotiation failures.
	KindSessionEstablish
	// KindDeviceQuery covers failures reading power or boot-mode state.
	KindDeviceQuery
	// KindTransientDevice covers a boot-mode mutation that failed with
	// momentary contention even after the single delayed retry.
	KindTransientDevice
	// KindDeviceMutation covers a non-transient boot-mode mutation failure.
	KindDeviceMutation
	// KindPowerOn covers a failed power-on after a successful mutation.
	KindPowerOn
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindMissingCapability:
		return "missing capability"
	case KindSessionEstablish:
		return "session establish"
	case KindDeviceQuery:
		return "device query"
	case KindTransientDevice:
		return "transient device"
	case KindDeviceMutation:
		return "device mutation"
	case KindPowerOn:
		return "power on"
	default:
		return "unknown"
	}
}

// Error is the failure type surfaced by Apply. It carries the best-known
// partial result so the boundary can report whatever state was already
// observed at the point of failure.
type Error struct {
	Kind   Kind
	Result types.Result
	Err    error
}

func (e *Error) Error() string {
	if e == nil || e.Err == nil {
		return "device operation failed"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) Kind {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return KindUnknown
}

// ResultOf extracts the partial result from an error chain, falling back to
// the safe pre-contact result.
func ResultOf(err error) types.Result {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Result
	}
	return types.NewResult()
}
