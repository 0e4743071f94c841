package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertGravityRoundTrip(t *testing.T) {
	for p := 0.0; p <= 30.0; p += 2.5 {
		sg := ConvertGravity(p, Plato, SG)
		back := ConvertGravity(sg, SG, Plato)
		assert.InDeltaf(t, p, back, 0.05, "round trip for %.1f°P", p)
	}
}

func TestConvertGravityNoOp(t *testing.T) {
	assert.Equal(t, 12.5, ConvertGravity(12.5, Plato, Plato))
	assert.Equal(t, 1.048, ConvertGravity(1.048, SG, SG))
}

func TestConvertTemperature(t *testing.T) {
	cases := []struct {
		value    float64
		from, to TemperatureUnit
		want     float64
	}{
		{0, Celsius, Fahrenheit, 32},
		{100, Celsius, Fahrenheit, 212},
		{32, Fahrenheit, Celsius, 0},
		{212, Fahrenheit, Celsius, 100},
		{20, Celsius, Celsius, 20},
	}
	for _, c := range cases {
		got := ConvertTemperature(c.value, c.from, c.to)
		assert.InDelta(t, c.want, got, 0.001)
	}
}

func TestParseGravityUnit(t *testing.T) {
	for _, s := range []string{"P", "p", "Plato", "PLATO"} {
		u, ok := ParseGravityUnit(s)
		assert.True(t, ok)
		assert.Equal(t, Plato, u)
	}
	for _, s := range []string{"SG", "sg"} {
		u, ok := ParseGravityUnit(s)
		assert.True(t, ok)
		assert.Equal(t, SG, u)
	}
	_, ok := ParseGravityUnit("bogus")
	assert.False(t, ok)
}

func TestParseTemperatureUnit(t *testing.T) {
	for _, s := range []string{"C", "celsius", "CELSIUS"} {
		u, ok := ParseTemperatureUnit(s)
		assert.True(t, ok)
		assert.Equal(t, Celsius, u)
	}
	for _, s := range []string{"F", "fahrenheit"} {
		u, ok := ParseTemperatureUnit(s)
		assert.True(t, ok)
		assert.Equal(t, Fahrenheit, u)
	}
	_, ok := ParseTemperatureUnit("kelvin")
	assert.False(t, ok)
}

func TestPlatoSGNotNaN(t *testing.T) {
	sg := ConvertGravity(10, Plato, SG)
	assert.False(t, math.IsNaN(sg))
	assert.False(t, math.IsInf(sg, 0))
}
