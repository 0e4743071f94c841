package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSoftwareRelayOnOff(t *testing.T) {
	r := NewSoftware(Config{Name: "heat"}, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, "heat", r.Name())
	assert.True(t, r.IsOff())
	assert.False(t, r.IsOn())

	require.NoError(t, r.On(ctx))
	assert.True(t, r.IsOn())
	assert.False(t, r.IsOff())

	require.NoError(t, r.Off(ctx))
	assert.True(t, r.IsOff())
}

func TestSoftwareRelayIdempotent(t *testing.T) {
	r := NewSoftware(Config{Name: "cool"}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, r.On(ctx))
	require.NoError(t, r.On(ctx))
	assert.True(t, r.IsOn())
}

func TestSoftwareRelayShutdownForcesOff(t *testing.T) {
	r := NewSoftware(Config{Name: "heat"}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, r.On(ctx))
	require.NoError(t, r.Shutdown(ctx))
	assert.True(t, r.IsOff())

	require.NoError(t, r.Shutdown(ctx))
	assert.True(t, r.IsOff())
}

func TestConfigHasDutyCycle(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"disabled", Config{}, false},
		{"zero", Config{DutyCycle: 0, CycleTime: 10}, false},
		{"full", Config{DutyCycle: 1, CycleTime: 10}, false},
		{"no cycle time", Config{DutyCycle: 0.5}, false},
		{"valid", Config{DutyCycle: 0.5, CycleTime: 10}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.cfg.HasDutyCycle())
		})
	}
}

func TestNewFactory(t *testing.T) {
	logger := zap.NewNop()

	r, err := New("software", Config{Name: "a"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "a", r.Name())

	r, err = New("", Config{Name: "b"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "b", r.Name())

	_, err = New("bogus", Config{Name: "c"}, logger)
	assert.Error(t, err)
}
