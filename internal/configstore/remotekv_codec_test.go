package configstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestRemoteSpecCodecRoundTrip(t *testing.T) {
	spec := &ConfigSpec{
		Version: "7",
		Relays: map[string]RelaySpec{
			"heat": {Type: "software"},
		},
		DataSources: map[string]SourceSpec{
			"tilt": {Type: "http", BaseURL: "http://tilt.local"},
		},
		Beers: map[string]BeerSpec{
			"pale-ale": {Type: "set_point", Target: 20, Tolerance: 1, Unit: "C"},
		},
		Managers: map[string]ManagerSpec{},
	}

	wire, err := encodeRemoteSpec(spec, "token-123")
	require.NoError(t, err)

	decoded, token, err := decodeRemoteSpec(wire)
	require.NoError(t, err)
	assert.Equal(t, "token-123", token)
	assert.Equal(t, spec.Version, decoded.Version)
	assert.Equal(t, spec.Relays["heat"].Type, decoded.Relays["heat"].Type)
	assert.Equal(t, spec.DataSources["tilt"].BaseURL, decoded.DataSources["tilt"].BaseURL)
	assert.Equal(t, spec.Beers["pale-ale"].Target, decoded.Beers["pale-ale"].Target)
}

func TestDecodeRemoteSpecMissingFields(t *testing.T) {
	_, _, err := decodeRemoteSpec(&structpb.Struct{Fields: map[string]*structpb.Value{}})
	assert.Error(t, err)
}
