package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobcespedes/ansible.hpilo/internal/config"
	"github.com/jobcespedes/ansible.hpilo/internal/controller"
	"github.com/jobcespedes/ansible.hpilo/internal/ilo"
	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

func newApplyCmd(info BuildInfo) *cobra.Command {
	var (
		host       string
		login      string
		password   string
		sslVersion string
		device     string
		driver     string
		check      bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Set one-time PXE boot on one host, powering it on if off",
		Long:  "apply connects to the iLO interface of one host, sets the one-time boot device when it differs from the desired one, and powers the host on when it was off. With --check the observed state is reported without any mutation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to load config: %v\n", err)
				return &exitError{code: ExitInvalidArgument, err: err}
			}
			logger := setupLogger(cfg, info)

			if driver == "" {
				driver = cfg.Driver
			}

			// Capability check comes first: a missing client driver is
			// reported before any parameter is validated.
			drv, err := ilo.Lookup(driver)
			if err != nil {
				emitFailure(cmd, err.Error(), types.NewResult())
				return &exitError{code: ExitMissingCapability, err: err}
			}

			spec := types.TargetSpec{
				Host:       host,
				Login:      login,
				Password:   types.Secret(password),
				SSLVersion: sslVersion,
				Device:     device,
			}
			cfg.Defaults.ApplyTo(&spec)
			if err := spec.Validate(); err != nil {
				emitFailure(cmd, err.Error(), types.NewResult())
				return &exitError{code: ExitInvalidArgument, err: err}
			}

			ctrl := controller.New(drv, controller.Config{
				Cooldown:      cfg.Cooldown,
				DeviceTimeout: cfg.DeviceTimeout,
				Logger:        logger,
			})

			result, err := ctrl.Apply(cmd.Context(), spec, check)
			if err != nil {
				emitFailure(cmd, err.Error(), controller.ResultOf(err))
				return &exitError{code: exitCodeForKind(controller.KindOf(err)), err: err}
			}

			emitResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "iLO hostname/address linked to the physical system (required)")
	cmd.Flags().StringVar(&login, "login", "", "login name for the iLO interface (default \"Administrator\")")
	cmd.Flags().StringVar(&password, "password", "", "password for the iLO interface (default \"admin\", never logged)")
	cmd.Flags().StringVar(&sslVersion, "ssl-version", "", "transport protocol: SSLv3, SSLv23, TLSv1, TLSv1_1 or TLSv1_2 (default \"TLSv1\")")
	cmd.Flags().StringVar(&device, "device", "", "one-time boot device: network or normal (default \"network\")")
	cmd.Flags().StringVar(&driver, "driver", "", "iLO client driver (default \"ribcl\")")
	cmd.Flags().BoolVar(&check, "check", false, "report observed state without performing any mutation")
	_ = cmd.MarkFlagRequired("host")

	return cmd
}

func emitResult(cmd *cobra.Command, result types.Result) {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	_ = encoder.Encode(result)
}

func emitFailure(cmd *cobra.Command, message string, result types.Result) {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	_ = encoder.Encode(types.FailureFor(message, result))
}
