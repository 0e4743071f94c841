package configstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fermenator/fermenator/internal/ferrors"
)

func validSpec() *ConfigSpec {
	return &ConfigSpec{
		Version: "1",
		Relays: map[string]RelaySpec{
			"heat": {Type: "software"},
			"cool": {Type: "software"},
		},
		DataSources: map[string]SourceSpec{
			"tilt": {Type: "http", BaseURL: "http://tilt.local"},
		},
		Beers: map[string]BeerSpec{
			"pale-ale": {Type: "set_point", Target: 20, Tolerance: 1, Unit: "C", DataSource: "tilt", Identifier: "A"},
		},
		Managers: map[string]ManagerSpec{
			"fermenter-1": {
				Beer:            "pale-ale",
				HeatRelay:       "heat",
				CoolRelay:       "cool",
				PollIntervalSec: 60,
			},
		},
	}
}

func TestValidateAcceptsWellFormedSpec(t *testing.T) {
	assert.NoError(t, Validate(validSpec()))
}

func TestValidateRejectsEmptyVersion(t *testing.T) {
	spec := validSpec()
	spec.Version = ""
	err := Validate(spec)
	assert.True(t, ferrors.Is(err, ferrors.KindConfigInvalid))
}

func TestValidateRejectsUnknownRelayType(t *testing.T) {
	spec := validSpec()
	spec.Relays["heat"] = RelaySpec{Type: "laser"}
	err := Validate(spec)
	assert.True(t, ferrors.Is(err, ferrors.KindConfigInvalid))
}

func TestValidateRejectsGPIORelayWithoutPin(t *testing.T) {
	spec := validSpec()
	spec.Relays["heat"] = RelaySpec{Type: "gpio"}
	err := Validate(spec)
	assert.True(t, ferrors.Is(err, ferrors.KindConfigInvalid))
}

func TestValidateRejectsLinearRampWithEqualGravities(t *testing.T) {
	spec := validSpec()
	spec.Beers["pale-ale"] = BeerSpec{
		Type: "linear_ramp", Unit: "C", Tolerance: 1,
		OriginalGravity: 1.050, FinalGravity: 1.050,
		StartSetPoint: 18, EndSetPoint: 22,
		DataSource: "tilt", Identifier: "A",
	}
	err := Validate(spec)
	assert.True(t, ferrors.Is(err, ferrors.KindConfigInvalid))
}

func TestValidateRejectsNonPositiveTolerance(t *testing.T) {
	spec := validSpec()
	beer := spec.Beers["pale-ale"]
	beer.Tolerance = 0
	spec.Beers["pale-ale"] = beer
	err := Validate(spec)
	assert.True(t, ferrors.Is(err, ferrors.KindConfigInvalid))
}

func TestValidateRejectsMissingBeerReference(t *testing.T) {
	spec := validSpec()
	mgr := spec.Managers["fermenter-1"]
	mgr.Beer = "nonexistent"
	spec.Managers["fermenter-1"] = mgr
	err := Validate(spec)
	assert.True(t, ferrors.Is(err, ferrors.KindConfigReferentialIntegrity))
}

func TestValidateRejectsManagerWithNoRelays(t *testing.T) {
	spec := validSpec()
	mgr := spec.Managers["fermenter-1"]
	mgr.HeatRelay = ""
	mgr.CoolRelay = ""
	spec.Managers["fermenter-1"] = mgr
	err := Validate(spec)
	assert.True(t, ferrors.Is(err, ferrors.KindConfigReferentialIntegrity))
}

func TestValidateRejectsNonPositivePollInterval(t *testing.T) {
	spec := validSpec()
	mgr := spec.Managers["fermenter-1"]
	mgr.PollIntervalSec = 0
	spec.Managers["fermenter-1"] = mgr
	err := Validate(spec)
	assert.True(t, ferrors.Is(err, ferrors.KindConfigInvalid))
}

func TestValidateRejectsMissingBeerDataSource(t *testing.T) {
	spec := validSpec()
	beer := spec.Beers["pale-ale"]
	beer.DataSource = "nonexistent"
	spec.Beers["pale-ale"] = beer
	err := Validate(spec)
	assert.True(t, ferrors.Is(err, ferrors.KindConfigReferentialIntegrity))
}

func TestValidateRejectsRelaySharedAcrossManagers(t *testing.T) {
	spec := validSpec()
	spec.Beers["stout"] = BeerSpec{Type: "set_point", Target: 18, Tolerance: 1, Unit: "C", DataSource: "tilt", Identifier: "B"}
	spec.Managers["fermenter-2"] = ManagerSpec{
		Beer:            "stout",
		HeatRelay:       "heat", // already claimed by fermenter-1
		PollIntervalSec: 60,
	}
	err := Validate(spec)
	assert.True(t, ferrors.Is(err, ferrors.KindConfigReferentialIntegrity))
}

func TestActiveOrDefaultDefaultsToTrue(t *testing.T) {
	assert.True(t, ActiveOrDefault(nil))
	f := false
	assert.False(t, ActiveOrDefault(&f))
	tr := true
	assert.True(t, ActiveOrDefault(&tr))
}
