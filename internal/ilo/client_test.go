package ilo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDriver struct{}

func (stubDriver) Connect(ctx context.Context, target Target) (Session, error) {
	return nil, errors.New("stub driver does not connect")
}

func TestLookup_RegisteredDriver(t *testing.T) {
	driver, err := Lookup(DriverRIBCL)
	require.NoError(t, err)
	assert.NotNil(t, driver)

	// Driver names are case-insensitive.
	driver, err = Lookup("RIBCL")
	require.NoError(t, err)
	assert.NotNil(t, driver)
}

func TestLookup_MissingDriver(t *testing.T) {
	// Scenario: the requested client capability is absent. The failure names
	// the missing driver and happens without any network contact.
	_, err := Lookup("hponcfg")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrMissingDriver)
	assert.Contains(t, err.Error(), "hponcfg")
	assert.Contains(t, err.Error(), DriverRIBCL, "error lists available drivers")
}

func TestRegister_Duplicate(t *testing.T) {
	Register("stub-once", stubDriver{})
	assert.Panics(t, func() {
		Register("stub-once", stubDriver{})
	})
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("plain failure")))
	assert.True(t, IsTransient(MarkTransient(errors.New("busy"))))
	assert.Nil(t, MarkTransient(nil), "marking nil stays nil")

	wrapped := errors.Join(errors.New("outer"), MarkTransient(errors.New("inner")))
	assert.True(t, IsTransient(wrapped), "transient marker survives wrapping")

	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(context.DeadlineExceeded))
}

func TestMarkTransient_PreservesMessage(t *testing.T) {
	err := MarkTransient(errors.New("iLO busy"))
	assert.Equal(t, "iLO busy", err.Error())

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, "iLO busy", transient.Unwrap().Error())
}
