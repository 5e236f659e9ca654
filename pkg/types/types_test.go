package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	spec := TargetSpec{Host: "ilo.example.net"}
	spec.ApplyDefaults()

	assert.Equal(t, DefaultLogin, spec.Login)
	assert.Equal(t, DefaultPassword, spec.Password.Reveal())
	assert.Equal(t, DefaultSSLVersion, spec.SSLVersion)
	assert.Equal(t, DefaultBootDevice, spec.Device)

	spec = TargetSpec{
		Host:       "ilo.example.net",
		Login:      "operator",
		Password:   Secret("hunter2"),
		SSLVersion: SSLVersionSSLv23,
		Device:     BootDeviceNormal,
	}
	spec.ApplyDefaults()
	assert.Equal(t, "operator", spec.Login)
	assert.Equal(t, "hunter2", spec.Password.Reveal())
	assert.Equal(t, SSLVersionSSLv23, spec.SSLVersion)
	assert.Equal(t, BootDeviceNormal, spec.Device)
}

func TestValidate(t *testing.T) {
	valid := TargetSpec{Host: "ilo.example.net"}
	valid.ApplyDefaults()
	require.NoError(t, valid.Validate())

	missing := valid
	missing.Host = "   "
	err := missing.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host")

	badSSL := valid
	badSSL.SSLVersion = "TLSv1_3"
	err = badSSL.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLSv1_3")
	assert.Contains(t, err.Error(), SSLVersionSSLv3, "error lists the allowed values")

	badDevice := valid
	badDevice.Device = "cdrom"
	err = badDevice.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cdrom")
}

func TestNewResult(t *testing.T) {
	result := NewResult()
	assert.False(t, result.Changed)
	assert.Equal(t, PowerStatusUnknown, result.PowerStatus)
	assert.Equal(t, BootStatusUnknown, result.OneTimeBootStatus)
}

func TestResultJSONShape(t *testing.T) {
	raw, err := json.Marshal(Result{
		Changed:           true,
		PowerStatus:       PowerStatusBooting,
		OneTimeBootStatus: BootDeviceNetwork,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"changed":true,"power_status":"BOOTING","one_time_boot_status":"network"}`, string(raw))
}

func TestFailureFor(t *testing.T) {
	result := NewResult()
	result.PowerStatus = PowerStatusOn

	failure := FailureFor("one-time boot could not be set", result)
	raw, err := json.Marshal(failure)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"msg":"one-time boot could not be set","changed":false,"power_status":"ON","one_time_boot_status":"UNKNOWN"}`,
		string(raw))
}

func TestBootRequestDecode(t *testing.T) {
	var req BootRequest
	require.NoError(t, json.Unmarshal([]byte(`{"host":"ilo.example.net","password":"hunter2","dry_run":true}`), &req))

	assert.Equal(t, "ilo.example.net", req.Host)
	assert.Equal(t, "hunter2", req.Password.Reveal())
	assert.True(t, req.DryRun)
}
