package configstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCellInherit(t *testing.T) {
	assert.Equal(t, "previous", decodeCell("inherit", "previous"))
	assert.Equal(t, "previous", decodeCell("INHERIT", "previous"))
	assert.Equal(t, "", decodeCell("", "previous"), "an empty cell means absent, not inherited")
	assert.Equal(t, "new", decodeCell("new", "previous"))
}

func TestDecodeValue(t *testing.T) {
	assert.Equal(t, cellValue{}, decodeValue(""))

	v := decodeValue("true")
	assert.True(t, v.isBool)
	assert.True(t, v.boolVal)

	v = decodeValue("FALSE")
	assert.True(t, v.isBool)
	assert.False(t, v.boolVal)

	v = decodeValue("3.5")
	assert.True(t, v.isNum)
	assert.Equal(t, 3.5, v.numVal)

	v = decodeValue("!int 42")
	assert.True(t, v.isNum)
	assert.Equal(t, 42.0, v.numVal)

	v = decodeValue("gpio")
	assert.True(t, v.present)
	assert.False(t, v.isNum)
	assert.False(t, v.isBool)
	assert.Equal(t, "gpio", v.strVal)

	v = decodeValue("yes")
	assert.True(t, v.isBool)
	assert.True(t, v.boolVal)

	v = decodeValue("NO")
	assert.True(t, v.isBool)
	assert.False(t, v.boolVal)

	v = decodeValue("1")
	assert.True(t, v.isBool)
	assert.True(t, v.boolVal)
	assert.True(t, v.isNum)
	assert.Equal(t, 1.0, v.numVal)

	v = decodeValue("0")
	assert.True(t, v.isBool)
	assert.False(t, v.boolVal)
	assert.True(t, v.isNum)
	assert.Equal(t, 0.0, v.numVal)
}

func TestOptionalBool(t *testing.T) {
	assert.Nil(t, optionalBool(""))
	assert.Nil(t, optionalBool("gpio"))
	b := optionalBool("false")
	require.NotNil(t, b)
	assert.False(t, *b)
	b = optionalBool("yes")
	require.NotNil(t, b)
	assert.True(t, *b)
}

func TestParseRowsBasic(t *testing.T) {
	rows := [][]string{
		{"kind", "name", "type", "base_url", "pin", "active_high"},
		{"relay", "heat", "gpio", "", "GPIO17", "true"},
		{"datasource", "tilt", "http", "http://tilt.local", "", ""},
	}
	spec, err := parseRows(rows)
	require.NoError(t, err)
	assert.Equal(t, "gpio", spec.Relays["heat"].Type)
	assert.Equal(t, "GPIO17", spec.Relays["heat"].Pin)
	assert.True(t, spec.Relays["heat"].ActiveHigh)
	assert.Equal(t, "http://tilt.local", spec.DataSources["tilt"].BaseURL)
}

func TestParseRowsInheritWithinKind(t *testing.T) {
	rows := [][]string{
		{"kind", "name", "type", "base_url"},
		{"datasource", "tilt-1", "http", "http://tilt-1.local"},
		{"datasource", "tilt-2", "inherit", "http://tilt-2.local"},
	}
	spec, err := parseRows(rows)
	require.NoError(t, err)
	assert.Equal(t, "http", spec.DataSources["tilt-2"].Type)
}

func TestParseRowsUnknownKindErrors(t *testing.T) {
	rows := [][]string{
		{"kind", "name"},
		{"bogus", "x"},
	}
	_, err := parseRows(rows)
	assert.Error(t, err)
}

func TestParseRowsSkipsBlankRows(t *testing.T) {
	rows := [][]string{
		{"kind", "name", "type", "base_url"},
		{"", "", "", ""},
		{"datasource", "tilt", "http", "http://tilt.local"},
	}
	spec, err := parseRows(rows)
	require.NoError(t, err)
	assert.Len(t, spec.DataSources, 1)
}

func TestTabularSheetLoadAndHasChanged(t *testing.T) {
	reader := fixedSheetReader{rows: [][]string{
		{"kind", "name", "type", "base_url", "target", "tolerance", "unit", "poll_interval_seconds", "beer", "datasource", "identifier", "heat_relay"},
		{"relay", "heat", "software", "", "", "", "", "", "", "", "", ""},
		{"datasource", "tilt", "http", "http://tilt.local", "", "", "", "", "", "", "", ""},
		{"beer", "pale-ale", "set_point", "", "20", "1", "C", "", "", "tilt", "A", ""},
		{"manager", "fermenter-1", "", "", "", "", "", "60", "pale-ale", "", "", "heat"},
	}}

	ts := NewTabularSheet(reader, "sheet-id", "Sheet1!A1:Z", 5, nil)
	spec, err := ts.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "set_point", spec.Beers["pale-ale"].Type)

	changed, err := ts.HasChanged(t.Context())
	require.NoError(t, err)
	assert.False(t, changed)

	reader.rows[1][3] = "http://tilt.local/changed"
	changed, err = ts.HasChanged(t.Context())
	require.NoError(t, err)
	assert.True(t, changed)
}

type fixedSheetReader struct {
	rows [][]string
}

func (f fixedSheetReader) ReadRows(_ context.Context, _, _ string) ([][]string, error) {
	return f.rows, nil
}
