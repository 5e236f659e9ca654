// Package config loads pxeboot-hpilo configuration from environment
// variables, with an optional YAML defaults file for target parameters.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

const (
	defaultListenAddr    = ":27780"
	defaultCooldown      = 60 * time.Second
	defaultDeviceTimeout = 30 * time.Second
	defaultDriver        = "ribcl"
)

// TargetDefaults are the fallback values applied to target parameters that
// the invoker leaves empty. They mirror the module parameter defaults and can
// be overridden per site through the defaults file.
type TargetDefaults struct {
	Login      string `yaml:"login"`
	Password   string `yaml:"password"`
	SSLVersion string `yaml:"ssl_version"`
	Device     string `yaml:"device"`
}

// Config holds runtime configuration values.
type Config struct {
	ListenAddr string
	LogLevel   string
	APIToken   string
	Driver     string

	DevMode bool

	Cooldown      time.Duration
	DeviceTimeout time.Duration

	Defaults TargetDefaults
}

// Load reads configuration from environment variables and, when
// PXEBOOT_DEFAULTS_FILE is set, from a YAML defaults file.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:    envOrDefault("PXEBOOT_LISTEN_ADDR", defaultListenAddr),
		LogLevel:      strings.ToLower(strings.TrimSpace(envOrDefault("PXEBOOT_LOG_LEVEL", "info"))),
		APIToken:      envOrDefault("PXEBOOT_API_TOKEN", ""),
		Driver:        strings.ToLower(strings.TrimSpace(envOrDefault("PXEBOOT_DRIVER", defaultDriver))),
		DevMode:       envBool("PXEBOOT_DEV_MODE", false),
		Cooldown:      envPositiveDuration("PXEBOOT_COOLDOWN", defaultCooldown),
		DeviceTimeout: envPositiveDuration("PXEBOOT_DEVICE_TIMEOUT", defaultDeviceTimeout),
		Defaults: TargetDefaults{
			Login:      types.DefaultLogin,
			Password:   types.DefaultPassword,
			SSLVersion: types.DefaultSSLVersion,
			Device:     types.DefaultBootDevice,
		},
	}

	if path := strings.TrimSpace(os.Getenv("PXEBOOT_DEFAULTS_FILE")); path != "" {
		if err := loadDefaultsFile(path, &cfg.Defaults); err != nil {
			return Config{}, err
		}
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.Driver == "" {
		cfg.Driver = defaultDriver
	}

	if !containsString(types.SSLVersions, cfg.Defaults.SSLVersion) {
		return Config{}, fmt.Errorf(
			"invalid ssl_version default %q (allowed: %s)",
			cfg.Defaults.SSLVersion, strings.Join(types.SSLVersions, ", "),
		)
	}
	if !containsString(types.BootDevices, cfg.Defaults.Device) {
		return Config{}, fmt.Errorf(
			"invalid device default %q (allowed: %s)",
			cfg.Defaults.Device, strings.Join(types.BootDevices, ", "),
		)
	}

	return cfg, nil
}

// ApplyTo fills empty spec fields from the configured defaults.
func (d TargetDefaults) ApplyTo(spec *types.TargetSpec) {
	if strings.TrimSpace(spec.Login) == "" {
		spec.Login = d.Login
	}
	if spec.Password.Reveal() == "" {
		spec.Password = types.Secret(d.Password)
	}
	if strings.TrimSpace(spec.SSLVersion) == "" {
		spec.SSLVersion = d.SSLVersion
	}
	if strings.TrimSpace(spec.Device) == "" {
		spec.Device = d.Device
	}
}

func loadDefaultsFile(path string, defaults *TargetDefaults) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading defaults file: %w", err)
	}

	var fileDefaults TargetDefaults
	if err := yaml.Unmarshal(raw, &fileDefaults); err != nil {
		return fmt.Errorf("parsing defaults file %s: %w", path, err)
	}

	if strings.TrimSpace(fileDefaults.Login) != "" {
		defaults.Login = strings.TrimSpace(fileDefaults.Login)
	}
	if fileDefaults.Password != "" {
		defaults.Password = fileDefaults.Password
	}
	if strings.TrimSpace(fileDefaults.SSLVersion) != "" {
		defaults.SSLVersion = strings.TrimSpace(fileDefaults.SSLVersion)
	}
	if strings.TrimSpace(fileDefaults.Device) != "" {
		defaults.Device = strings.ToLower(strings.TrimSpace(fileDefaults.Device))
	}
	return nil
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return parsed
}

func envPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}
