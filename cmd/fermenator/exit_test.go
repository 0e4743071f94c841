package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartupErrorExitCode(t *testing.T) {
	var err error = &startupError{errors.New("boom")}
	ec, ok := err.(exitCoder)
	assert.True(t, ok)
	assert.Equal(t, 1, ec.ExitCode())
	assert.ErrorContains(t, err, "boom")
}

func TestUsageErrorExitCode(t *testing.T) {
	var err error = &usageError{errors.New("bad flag")}
	ec, ok := err.(exitCoder)
	assert.True(t, ok)
	assert.Equal(t, 2, ec.ExitCode())
}

func TestSignalExitCode(t *testing.T) {
	var err error = signalExit{}
	ec, ok := err.(exitCoder)
	assert.True(t, ok)
	assert.Equal(t, 130, ec.ExitCode())
}

func TestPlainErrorIsNotExitCoder(t *testing.T) {
	var err error = errors.New("plain")
	_, ok := err.(exitCoder)
	assert.False(t, ok)
}
