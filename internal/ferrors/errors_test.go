package ferrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	err := New(KindConfigInvalid, "missing field")
	assert.Equal(t, "config_invalid: missing field", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrapError(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindDataSourceRead, "poll failed", cause)
	assert.Contains(t, err.Error(), "datasource_read")
	assert.Contains(t, err.Error(), "poll failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause) || errors.Unwrap(err) == cause)
}

func TestIs(t *testing.T) {
	err := New(KindBeerLogic, "contradiction")
	assert.True(t, Is(err, KindBeerLogic))
	assert.False(t, Is(err, KindRelayActuation))
	assert.False(t, Is(errors.New("plain"), KindBeerLogic))
}
