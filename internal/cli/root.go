// Package cli defines the pxeboot-hpilo command tree.
package cli

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jobcespedes/ansible.hpilo/internal/config"
	"github.com/jobcespedes/ansible.hpilo/internal/controller"
)

// BuildInfo carries version metadata injected at build time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Exit codes reported to the orchestration boundary.
const (
	ExitOK                = 0
	ExitOperationFailed   = 1
	ExitInvalidArgument   = 2
	ExitMissingCapability = 3
)

// exitError wraps a command failure with its process exit code. Messages are
// already reported by the command, so Execute callers only read the code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "command failed"
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// ExitCode maps an Execute error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return ExitOperationFailed
}

func exitCodeForKind(kind controller.Kind) int {
	switch kind {
	case controller.KindInvalidArgument:
		return ExitInvalidArgument
	case controller.KindMissingCapability:
		return ExitMissingCapability
	default:
		return ExitOperationFailed
	}
}

// NewRootCmd builds the pxeboot-hpilo command tree.
func NewRootCmd(info BuildInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pxeboot-hpilo",
		Short:         "Boot a host once from the network using HP iLO",
		Long:          "pxeboot-hpilo sets the one-time boot device of an HP iLO managed host to the network (PXE) and powers the host on when it is off. Results are reported as JSON on stdout.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newApplyCmd(info))
	rootCmd.AddCommand(newServeCmd(info))
	rootCmd.AddCommand(newVersionCmd(info))
	return rootCmd
}

// Execute runs the command tree and returns an error whose ExitCode maps to
// the process exit status.
func Execute(info BuildInfo) error {
	return NewRootCmd(info).Execute()
}

// setupLogger configures the process logger the same way for every command:
// console output in dev mode, structured JSON otherwise, always on stderr so
// stdout stays reserved for the operation result.
func setupLogger(cfg config.Config, info BuildInfo) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.DevMode {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).
			With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).
		Level(level).
		With().Timestamp().
		Str("service", "pxeboot-hpilo").
		Str("version", info.Version).
		Logger()
}
