// Package types defines public request/response payloads for the PXE boot API.
package types

import (
	"fmt"
	"strings"
)

// SSL/TLS protocol names accepted by the ssl_version parameter. The names
// mirror the python-hpilo convention so existing playbook parameters keep
// working unchanged.
const (
	SSLVersionSSLv3   = "SSLv3"
	SSLVersionSSLv23  = "SSLv23"
	SSLVersionTLSv1   = "TLSv1"
	SSLVersionTLSv1_1 = "TLSv1_1"
	SSLVersionTLSv1_2 = "TLSv1_2"
)

// Host power status values.
const (
	PowerStatusOn      = "ON"
	PowerStatusOff     = "OFF"
	PowerStatusBooting = "BOOTING"
	PowerStatusUnknown = "UNKNOWN"
)

// One-time boot device values. BootStatusUnknown is reported when the boot
// mode was never successfully read.
const (
	BootDeviceNetwork = "network"
	BootDeviceNormal  = "normal"
	BootStatusUnknown = "UNKNOWN"
)

// Defaults applied to optional TargetSpec fields left empty.
const (
	DefaultLogin      = "Administrator"
	DefaultPassword   = "admin"
	DefaultSSLVersion = SSLVersionTLSv1
	DefaultBootDevice = BootDeviceNetwork
)

// SSLVersions lists the accepted ssl_version values in parameter order.
var SSLVersions = []string{
	SSLVersionSSLv3,
	SSLVersionSSLv23,
	SSLVersionTLSv1,
	SSLVersionTLSv1_1,
	SSLVersionTLSv1_2,
}

// BootDevices lists the accepted device values.
var BootDevices = []string{BootDeviceNetwork, BootDeviceNormal}

// TargetSpec identifies one iLO target plus the desired one-time boot device.
// It is constructed from invocation parameters, validated before any device
// contact and never mutated afterwards.
type TargetSpec struct {
	Host       string `json:"host"`
	Login      string `json:"login,omitempty"`
	Password   Secret `json:"password,omitempty"`
	SSLVersion string `json:"ssl_version,omitempty"`
	Device     string `json:"device,omitempty"`
}

// ApplyDefaults fills empty optional fields with their documented defaults.
func (s *TargetSpec) ApplyDefaults() {
	if strings.TrimSpace(s.Login) == "" {
		s.Login = DefaultLogin
	}
	if s.Password.Reveal() == "" {
		s.Password = Secret(DefaultPassword)
	}
	if strings.TrimSpace(s.SSLVersion) == "" {
		s.SSLVersion = DefaultSSLVersion
	}
	if strings.TrimSpace(s.Device) == "" {
		s.Device = DefaultBootDevice
	}
}

// Validate checks required fields and enum constraints. It must pass before
// the boot-mode controller is invoked.
func (s TargetSpec) Validate() error {
	if strings.TrimSpace(s.Host) == "" {
		return fmt.Errorf("host is required")
	}
	if !contains(SSLVersions, s.SSLVersion) {
		return fmt.Errorf("invalid ssl_version %q (allowed: %s)", s.SSLVersion, strings.Join(SSLVersions, ", "))
	}
	if !contains(BootDevices, s.Device) {
		return fmt.Errorf("invalid device %q (allowed: %s)", s.Device, strings.Join(BootDevices, ", "))
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Result describes the device state observed (or assigned) by one invocation.
// Changed is true iff a mutating call was successfully issued.
type Result struct {
	Changed           bool   `json:"changed"`
	PowerStatus       string `json:"power_status"`
	OneTimeBootStatus string `json:"one_time_boot_status"`
}

// NewResult returns the safe pre-contact result: nothing changed, both
// statuses unknown. Early failures report this as the partial result.
func NewResult() Result {
	return Result{
		Changed:           false,
		PowerStatus:       PowerStatusUnknown,
		OneTimeBootStatus: BootStatusUnknown,
	}
}

// BootRequest is the body for POST /boot/v1/pxe-boot.
type BootRequest struct {
	TargetSpec
	DryRun bool `json:"dry_run,omitempty"`
}

// BootFailure is the failure document returned alongside a non-success status:
// a message plus whatever result fields were determined before the failure.
type BootFailure struct {
	Message           string `json:"msg"`
	Changed           bool   `json:"changed"`
	PowerStatus       string `json:"power_status"`
	OneTimeBootStatus string `json:"one_time_boot_status"`
}

// FailureFor builds the failure document for a message and partial result.
func FailureFor(message string, result Result) BootFailure {
	return BootFailure{
		Message:           message,
		Changed:           result.Changed,
		PowerStatus:       result.PowerStatus,
		OneTimeBootStatus: result.OneTimeBootStatus,
	}
}
