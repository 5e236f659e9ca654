// Package controller implements the one-time PXE boot operation: query the
// live device state, change the one-time boot device only when it differs
// from the desired one, and power the host on when it was off.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jobcespedes/ansible.hpilo/internal/ilo"
	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

const (
	// DefaultCooldown is the fixed pause before the single mutation retry.
	DefaultCooldown = 60 * time.Second

	// mutation attempts: one call plus exactly one delayed retry.
	maxMutationAttempts = 2
)

// Connector opens management-controller sessions. *ilo drivers satisfy it;
// tests substitute their own.
type Connector interface {
	Connect(ctx context.Context, target ilo.Target) (ilo.Session, error)
}

// Config controls controller behavior. Zero values fall back to defaults.
type Config struct {
	// Cooldown is the pause between the first and second mutation attempt.
	Cooldown time.Duration
	// DeviceTimeout bounds each network round-trip to the controller.
	DeviceTimeout time.Duration
	// Sleep is the blocking-delay seam; tests inject their own.
	Sleep func(context.Context, time.Duration) error
	// Logger receives step-level progress. Credentials are never logged.
	Logger zerolog.Logger
}

// Controller applies the one-time boot change to a single target per
// invocation, sequentially and without internal parallelism.
type Controller struct {
	connector Connector
	cooldown  time.Duration
	timeout   time.Duration
	sleep     func(context.Context, time.Duration) error
	logger    zerolog.Logger
}

// New creates a controller on top of a connector.
func New(connector Connector, cfg Config) *Controller {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	return &Controller{
		connector: connector,
		cooldown:  cooldown,
		timeout:   cfg.DeviceTimeout,
		sleep:     sleep,
		logger:    cfg.Logger.With().Str("component", "controller").Logger(),
	}
}

// Apply runs the operation against one validated target. The returned result
// is always well formed; on failure the same partial result also travels
// inside the returned *Error.
//
// Invoking Apply twice with identical arguments and dryRun=false yields
// changed=true at most once: the second call observes the already-applied
// boot mode and performs no mutation.
func (c *Controller) Apply(ctx context.Context, spec types.TargetSpec, dryRun bool) (types.Result, error) {
	result := types.NewResult()
	logger := c.logger.With().Str("host", spec.Host).Bool("dry_run", dryRun).Logger()

	session, err := c.connector.Connect(ctx, ilo.Target{
		Host:       spec.Host,
		Login:      spec.Login,
		Password:   spec.Password,
		SSLVersion: spec.SSLVersion,
		Timeout:    c.timeout,
	})
	if err != nil {
		return result, &Error{
			Kind:   KindSessionEstablish,
			Result: result,
			Err:    fmt.Errorf("establishing iLO session: %w", err),
		}
	}

	powerStatus, err := session.HostPowerStatus(ctx)
	if err != nil {
		return result, &Error{
			Kind:   KindDeviceQuery,
			Result: result,
			Err:    fmt.Errorf("querying host power status: %w", err),
		}
	}
	result.PowerStatus = powerStatus

	bootStatus, err := session.OneTimeBootDevice(ctx)
	if err != nil {
		// Power status stays in the result even though this query failed.
		return result, &Error{
			Kind:   KindDeviceQuery,
			Result: result,
			Err:    fmt.Errorf("querying one-time boot device: %w", err),
		}
	}
	result.OneTimeBootStatus = bootStatus

	logger.Debug().
		Str("power_status", result.PowerStatus).
		Str("one_time_boot_status", result.OneTimeBootStatus).
		Msg("observed device state")

	if dryRun {
		// Dry run reports observed state only; it never mutates and never
		// simulates the change.
		return result, nil
	}

	if spec.Device == result.OneTimeBootStatus {
		logger.Debug().Msg("one-time boot device already set, nothing to do")
		return result, nil
	}

	if err := c.setBootDevice(ctx, session, spec.Device, logger); err != nil {
		kind := KindDeviceMutation
		if ilo.IsTransient(err) {
			kind = KindTransientDevice
		}
		return result, &Error{
			Kind:   kind,
			Result: result,
			Err:    fmt.Errorf("setting one-time boot device to %q: %w", spec.Device, err),
		}
	}

	// The requested device is trusted as the new state; the device is not
	// re-queried after a successful mutation.
	result.Changed = true
	result.OneTimeBootStatus = spec.Device
	logger.Info().Str("one_time_boot_status", result.OneTimeBootStatus).Msg("one-time boot device set")

	if powerStatus == types.PowerStatusOff {
		if err := session.PressPowerButton(ctx); err != nil {
			// The boot-mode change is already applied; changed stays true.
			return result, &Error{
				Kind:   KindPowerOn,
				Result: result,
				Err:    fmt.Errorf("powering on host: %w", err),
			}
		}
		// Synthetic status: the power transition is not re-queried.
		result.PowerStatus = types.PowerStatusBooting
		logger.Info().Msg("host powered on")
	}

	return result, nil
}

// setBootDevice issues the mutation with a bounded retry: at most two
// attempts, with one fixed cooldown in between, and only when the first
// failure was transient. The second failure is returned as-is.
func (c *Controller) setBootDevice(ctx context.Context, session ilo.Session, device string, logger zerolog.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= maxMutationAttempts; attempt++ {
		lastErr = session.SetOneTimeBootDevice(ctx, device)
		if lastErr == nil {
			return nil
		}
		if attempt == maxMutationAttempts || !ilo.IsTransient(lastErr) {
			return lastErr
		}

		logger.Warn().
			Err(lastErr).
			Dur("cooldown", c.cooldown).
			Msg("transient device error, retrying once after cooldown")
		if sleepErr := c.sleep(ctx, c.cooldown); sleepErr != nil {
			return sleepErr
		}
	}
	return lastErr
}

func sleepWithContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
