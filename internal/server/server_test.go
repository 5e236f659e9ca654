package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobcespedes/ansible.hpilo/internal/config"
	"github.com/jobcespedes/ansible.hpilo/internal/controller"
	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

type mockApplier struct {
	applyFn func(ctx context.Context, spec types.TargetSpec, dryRun bool) (types.Result, error)

	lastSpec   types.TargetSpec
	lastDryRun bool
	calls      int
}

func (m *mockApplier) Apply(ctx context.Context, spec types.TargetSpec, dryRun bool) (types.Result, error) {
	m.calls++
	m.lastSpec = spec
	m.lastDryRun = dryRun
	if m.applyFn != nil {
		return m.applyFn(ctx, spec, dryRun)
	}
	return types.NewResult(), nil
}

func testConfig() config.Config {
	return config.Config{
		APIToken:      "test-token",
		Cooldown:      time.Second,
		DeviceTimeout: time.Second,
		Defaults: config.TargetDefaults{
			Login:      types.DefaultLogin,
			Password:   types.DefaultPassword,
			SSLVersion: types.DefaultSSLVersion,
			Device:     types.DefaultBootDevice,
		},
	}
}

func newTestServer(t *testing.T, applier *mockApplier, cfg config.Config, opts ...Option) *Server {
	t.Helper()
	return New(applier, cfg, zerolog.Nop(), "test", "none", "unknown", opts...)
}

func doJSON(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &mockApplier{}, testConfig())

	rec := doJSON(t, s, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestVersion(t *testing.T) {
	s := newTestServer(t, &mockApplier{}, testConfig())

	rec := doJSON(t, s, http.MethodGet, "/version", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test", body["version"])
}

func TestOpenAPISpec(t *testing.T) {
	spec := []byte("openapi: 3.0.3\n")
	s := newTestServer(t, &mockApplier{}, testConfig(), WithOpenAPISpec(spec))

	rec := doJSON(t, s, http.MethodGet, "/api/openapi.yaml", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(spec), rec.Body.String())

	// Without the option the route does not exist.
	bare := newTestServer(t, &mockApplier{}, testConfig())
	rec = doJSON(t, bare, http.MethodGet, "/api/openapi.yaml", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPXEBoot_Success(t *testing.T) {
	applier := &mockApplier{
		applyFn: func(ctx context.Context, spec types.TargetSpec, dryRun bool) (types.Result, error) {
			return types.Result{
				Changed:           true,
				PowerStatus:       types.PowerStatusBooting,
				OneTimeBootStatus: types.BootDeviceNetwork,
			}, nil
		},
	}
	s := newTestServer(t, applier, testConfig())

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "test-token",
		`{"host":"ilo.example.net","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"changed":true,"power_status":"BOOTING","one_time_boot_status":"network"}`,
		rec.Body.String())

	require.Equal(t, 1, applier.calls)
	assert.Equal(t, "ilo.example.net", applier.lastSpec.Host)
	assert.Equal(t, "hunter2", applier.lastSpec.Password.Reveal())
	assert.Equal(t, types.DefaultLogin, applier.lastSpec.Login, "defaults are applied before dispatch")
	assert.False(t, applier.lastDryRun)
}

func TestPXEBoot_DryRunPassedThrough(t *testing.T) {
	applier := &mockApplier{}
	s := newTestServer(t, applier, testConfig())

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "test-token",
		`{"host":"ilo.example.net","dry_run":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, applier.lastDryRun)
}

func TestPXEBoot_EmptyBody(t *testing.T) {
	applier := &mockApplier{}
	s := newTestServer(t, applier, testConfig())

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "test-token", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body is empty")
	assert.Zero(t, applier.calls)
}

func TestPXEBoot_UnknownField(t *testing.T) {
	applier := &mockApplier{}
	s := newTestServer(t, applier, testConfig())

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "test-token",
		`{"host":"ilo.example.net","bogus":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, applier.calls)
}

func TestPXEBoot_InvalidParameters(t *testing.T) {
	applier := &mockApplier{}
	s := newTestServer(t, applier, testConfig())

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "test-token",
		`{"host":"ilo.example.net","ssl_version":"TLSv1_3"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "TLSv1_3")
	assert.Zero(t, applier.calls, "validation failures never reach the device")
}

func TestPXEBoot_OperationFailureCarriesPartialResult(t *testing.T) {
	applier := &mockApplier{
		applyFn: func(ctx context.Context, spec types.TargetSpec, dryRun bool) (types.Result, error) {
			result := types.NewResult()
			result.PowerStatus = types.PowerStatusOn
			return result, &controller.Error{
				Kind:   controller.KindTransientDevice,
				Result: result,
				Err:    errors.New("ribcl: device returned status 0x0082: busy"),
			}
		},
	}
	s := newTestServer(t, applier, testConfig())

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "test-token",
		`{"host":"ilo.example.net"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var failure types.BootFailure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
	assert.Contains(t, failure.Message, "busy")
	assert.False(t, failure.Changed)
	assert.Equal(t, types.PowerStatusOn, failure.PowerStatus)
	assert.Equal(t, types.BootStatusUnknown, failure.OneTimeBootStatus)
}

func TestPXEBoot_MissingCapability(t *testing.T) {
	applier := &mockApplier{
		applyFn: func(ctx context.Context, spec types.TargetSpec, dryRun bool) (types.Result, error) {
			return types.NewResult(), &controller.Error{
				Kind:   controller.KindMissingCapability,
				Result: types.NewResult(),
				Err:    errors.New("ilo: unknown driver \"hponcfg\""),
			}
		},
	}
	s := newTestServer(t, applier, testConfig())

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "test-token",
		`{"host":"ilo.example.net"}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	applier := &mockApplier{}
	s := newTestServer(t, applier, testConfig())

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "", `{"host":"ilo.example.net"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "wrong-token", `{"host":"ilo.example.net"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, applier.calls)

	rec = doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "test-token", `{"host":"ilo.example.net"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, applier.calls)
}

func TestBearerAuth_TokenUnconfigured(t *testing.T) {
	cfg := testConfig()
	cfg.APIToken = ""
	s := newTestServer(t, &mockApplier{}, cfg)

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "anything", `{"host":"ilo.example.net"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "PXEBOOT_API_TOKEN")
}

func TestBearerAuth_DevModeBypass(t *testing.T) {
	cfg := testConfig()
	cfg.APIToken = ""
	cfg.DevMode = true
	applier := &mockApplier{}
	s := newTestServer(t, applier, cfg)

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "", `{"host":"ilo.example.net"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, applier.calls)
}

func TestParseBearerToken(t *testing.T) {
	assert.Equal(t, "abc", parseBearerToken("Bearer abc"))
	assert.Equal(t, "abc", parseBearerToken("bearer abc"))
	assert.Equal(t, "", parseBearerToken("Basic abc"))
	assert.Equal(t, "", parseBearerToken("Bearer"))
	assert.Equal(t, "", parseBearerToken(""))
}

func TestPXEBoot_SecretsStayOutOfResponses(t *testing.T) {
	applier := &mockApplier{
		applyFn: func(ctx context.Context, spec types.TargetSpec, dryRun bool) (types.Result, error) {
			return types.NewResult(), &controller.Error{
				Kind:   controller.KindSessionEstablish,
				Result: types.NewResult(),
				Err:    errors.New("probing iLO at ilo.example.net: ribcl: device returned status 0x005f: Login failed"),
			}
		},
	}
	s := newTestServer(t, applier, testConfig())

	rec := doJSON(t, s, http.MethodPost, "/boot/v1/pxe-boot", "test-token",
		`{"host":"ilo.example.net","password":"hunter2"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "hunter2"))
}
