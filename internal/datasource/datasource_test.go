package datasource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok)

	now := time.Now()
	samples := []Sample{
		{Timestamp: now.Add(-time.Minute), Value: 1},
		{Timestamp: now, Value: 2},
	}
	latest, ok := Latest(samples)
	assert.True(t, ok)
	assert.Equal(t, 2.0, latest.Value)
}
