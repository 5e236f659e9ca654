package types

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Formatting(t *testing.T) {
	secret := Secret("hunter2")

	assert.Equal(t, Redacted, fmt.Sprintf("%s", secret))
	assert.Equal(t, Redacted, fmt.Sprintf("%v", secret))
	assert.NotContains(t, fmt.Sprintf("%#v", secret), "hunter2")

	var empty Secret
	assert.Equal(t, "", empty.String(), "empty secrets stay visibly empty")
}

func TestSecret_JSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(TargetSpec{
		Host:     "ilo.example.net",
		Password: Secret("hunter2"),
	})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
	assert.Contains(t, string(raw), Redacted)

	var spec TargetSpec
	require.NoError(t, json.Unmarshal([]byte(`{"host":"ilo.example.net","password":"hunter2"}`), &spec))
	assert.Equal(t, "hunter2", spec.Password.Reveal())
}

func TestSecret_Reveal(t *testing.T) {
	assert.Equal(t, "hunter2", Secret("hunter2").Reveal())
	assert.Equal(t, "", Secret("").Reveal())
}
