// Package ilo provides access to HP iLO management controllers through
// named client drivers.
package ilo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

// ErrMissingDriver indicates the requested client driver is not compiled in.
// It is the Go analogue of the missing python-hpilo library: surfaced before
// parameter validation and before any network contact.
var ErrMissingDriver = errors.New("ilo client driver not available")

// Target identifies one iLO interface plus the credentials and transport
// protocol used to reach it.
type Target struct {
	Host       string
	Login      string
	Password   types.Secret
	SSLVersion string
	Timeout    time.Duration
}

// Session is an authenticated handle to one iLO, owned by a single
// invocation. RIBCL is per-request HTTPS, so there is no teardown call;
// the session is simply dropped when the invocation ends.
type Session interface {
	// HostPowerStatus returns the current power state, normalized to the
	// types.PowerStatus* values ON and OFF.
	HostPowerStatus(ctx context.Context) (string, error)
	// OneTimeBootDevice returns the current one-time boot device, normalized
	// to the types.BootDevice* values.
	OneTimeBootDevice(ctx context.Context) (string, error)
	// SetOneTimeBootDevice sets the one-time boot device. Contention on the
	// controller is reported as a transient error (see IsTransient).
	SetOneTimeBootDevice(ctx context.Context, device string) error
	// PressPowerButton issues a momentary power button press.
	PressPowerButton(ctx context.Context) error
}

// Driver opens sessions for one client implementation.
type Driver interface {
	Connect(ctx context.Context, target Target) (Session, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available under a name. It panics on duplicate
// registration, mirroring database/sql.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		panic("ilo: driver name is empty")
	}
	if driver == nil {
		panic("ilo: driver is nil")
	}
	if _, exists := drivers[normalized]; exists {
		panic(fmt.Sprintf("ilo: driver %q registered twice", normalized))
	}
	drivers[normalized] = driver
}

// Lookup resolves a driver by name. An unknown name fails with
// ErrMissingDriver naming the missing capability and the drivers that are
// available.
func Lookup(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()

	normalized := strings.ToLower(strings.TrimSpace(name))
	if driver, ok := drivers[normalized]; ok {
		return driver, nil
	}

	known := make([]string, 0, len(drivers))
	for registered := range drivers {
		known = append(known, registered)
	}
	sort.Strings(known)
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrMissingDriver, normalized, strings.Join(known, ", "))
}

// Open resolves a driver by name and connects to the target.
func Open(ctx context.Context, driverName string, target Target) (Session, error) {
	driver, err := Lookup(driverName)
	if err != nil {
		return nil, err
	}
	return driver.Connect(ctx, target)
}

// TransientError wraps a failure attributable to momentary contention on the
// controller, distinct from a permanent failure.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient device error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MarkTransient marks an error as transient.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether an error signals momentary device contention.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
