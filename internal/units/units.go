// Package units converts between the temperature and gravity units a Beer
// may declare.
//
// Gravity conversion uses the Plato/SG relation:
//
//	°P = 259 − 259/SG     (equivalently SG = 259 / (259 − °P))
//
// This is one of several industry-accepted approximations; the invariant
// this package is held to (per spec) is that a round trip P→SG→P agrees to
// within 0.05 °P across [0, 30] °P, which this formula satisfies.
package units

import "strings"

// GravityUnit names the unit a gravity value is expressed in.
type GravityUnit int

const (
	Plato GravityUnit = iota
	SG
)

// TemperatureUnit names the unit a temperature value is expressed in.
type TemperatureUnit int

const (
	Celsius TemperatureUnit = iota
	Fahrenheit
)

// platoToSG converts degrees Plato to specific gravity.
func platoToSG(p float64) float64 {
	return 259.0 / (259.0 - p)
}

// sgToPlato converts specific gravity to degrees Plato.
func sgToPlato(sg float64) float64 {
	return 259.0 - 259.0/sg
}

// ConvertGravity converts a gravity value from one unit to another.
// No-op if from == to.
func ConvertGravity(value float64, from, to GravityUnit) float64 {
	if from == to {
		return value
	}
	if from == Plato && to == SG {
		return platoToSG(value)
	}
	if from == SG && to == Plato {
		return sgToPlato(value)
	}
	return value
}

// celsiusToFahrenheit converts °C to °F.
func celsiusToFahrenheit(c float64) float64 {
	return c*9.0/5.0 + 32.0
}

// fahrenheitToCelsius converts °F to °C.
func fahrenheitToCelsius(f float64) float64 {
	return (f - 32.0) * 5.0 / 9.0
}

// ConvertTemperature converts a temperature value from one unit to another.
// No-op if from == to.
func ConvertTemperature(value float64, from, to TemperatureUnit) float64 {
	if from == to {
		return value
	}
	if from == Celsius && to == Fahrenheit {
		return celsiusToFahrenheit(value)
	}
	if from == Fahrenheit && to == Celsius {
		return fahrenheitToCelsius(value)
	}
	return value
}

// ParseGravityUnit parses a gravity unit from its configuration string
// ("P" or "SG", case-insensitive). Returns false if unrecognised.
func ParseGravityUnit(s string) (GravityUnit, bool) {
	switch strings.ToLower(s) {
	case "p", "plato":
		return Plato, true
	case "sg":
		return SG, true
	default:
		return 0, false
	}
}

// ParseTemperatureUnit parses a temperature unit from its configuration
// string ("C" or "F", case-insensitive). Returns false if unrecognised.
func ParseTemperatureUnit(s string) (TemperatureUnit, bool) {
	switch strings.ToLower(s) {
	case "c", "celsius":
		return Celsius, true
	case "f", "fahrenheit":
		return Fahrenheit, true
	default:
		return 0, false
	}
}
