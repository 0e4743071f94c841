package configstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// SheetReader fetches the current rows of a tabular sheet. Row 0 is the
// header; each subsequent row is one entity. Production deployments back
// this with a spreadsheet API client; tests back it with an in-memory or
// YAML-fixture reader.
type SheetReader interface {
	ReadRows(ctx context.Context, spreadsheetID, sheetRange string) ([][]string, error)
}

// TabularSheet is a ConfigStore backed by a spreadsheet-shaped grid, one
// row per relay/datasource/beer/manager, disambiguated by a leading
// "kind" column. Cell decoding follows spec.md §4.E:
//   - empty cell            => field absent (falls through to inherit/default)
//   - "true"/"false"/"yes"/"no" (any case), "1"/"0" => bool ("1"/"0" also
//     decode as numbers; see decodeValue)
//   - a bare number          => float64
//   - "!int" prefix          => parse the remainder as an integer-valued float64
//   - "inherit"              => copy the same column's value from the
//     previous row of the same kind
type TabularSheet struct {
	reader          SheetReader
	spreadsheetID   string
	sheetRange      string
	refreshInterval float64
	logger          *zap.Logger

	lastVersion string
}

// NewTabularSheet constructs a TabularSheet ConfigStore.
func NewTabularSheet(reader SheetReader, spreadsheetID, sheetRange string, refreshInterval float64, logger *zap.Logger) *TabularSheet {
	return &TabularSheet{reader: reader, spreadsheetID: spreadsheetID, sheetRange: sheetRange, refreshInterval: refreshInterval, logger: logger}
}

// cellValue is a decoded tabular cell per the rules above.
type cellValue struct {
	present bool
	boolVal bool
	isBool  bool
	numVal  float64
	isNum   bool
	strVal  string
}

func decodeCell(raw, previous string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.EqualFold(trimmed, "inherit") {
		return previous
	}
	return trimmed
}

// decodeValue parses a cell per spec.md §4.E: booleans parse
// case-insensitively from {true, false, yes, no, 1, 0}. "1" and "0" are
// ambiguous with plain numbers, so they set both isBool and isNum — the
// caller's asBool/asFloat picks whichever the column actually means.
func decodeValue(raw string) cellValue {
	if raw == "" {
		return cellValue{}
	}
	if strings.EqualFold(raw, "true") || strings.EqualFold(raw, "yes") {
		return cellValue{present: true, isBool: true, boolVal: true}
	}
	if strings.EqualFold(raw, "false") || strings.EqualFold(raw, "no") {
		return cellValue{present: true, isBool: true, boolVal: false}
	}
	if raw == "1" {
		return cellValue{present: true, isBool: true, boolVal: true, isNum: true, numVal: 1}
	}
	if raw == "0" {
		return cellValue{present: true, isBool: true, boolVal: false, isNum: true, numVal: 0}
	}
	if strings.HasPrefix(raw, "!int") {
		intPart := strings.TrimSpace(strings.TrimPrefix(raw, "!int"))
		n, err := strconv.ParseInt(intPart, 10, 64)
		if err == nil {
			return cellValue{present: true, isNum: true, numVal: float64(n)}
		}
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return cellValue{present: true, isNum: true, numVal: n}
	}
	return cellValue{present: true, strVal: raw}
}

func (c cellValue) asFloat(def float64) float64 {
	if c.isNum {
		return c.numVal
	}
	return def
}

func (c cellValue) asBool(def bool) bool {
	if c.isBool {
		return c.boolVal
	}
	return def
}

func (c cellValue) asString(def string) string {
	if c.present && !c.isNum && !c.isBool {
		return c.strVal
	}
	return def
}

// optionalBool decodes a cell into a *bool, leaving it nil when the cell
// is absent so ManagerSpec's active_heating/active_cooling can fall back
// to their true default (configstore.ActiveOrDefault).
func optionalBool(raw string) *bool {
	v := decodeValue(raw)
	if !v.isBool {
		return nil
	}
	b := v.boolVal
	return &b
}

// columnIndex maps header names to column positions.
type columnIndex map[string]int

func indexHeader(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return idx
}

func (idx columnIndex) get(row []string, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseRows decodes a sheet grid into a ConfigSpec, applying "inherit" by
// column within each kind's row group, scoped per kind so a manager row's
// "inherit" never reaches back into a beer row's last value.
func parseRows(rows [][]string) (*ConfigSpec, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("configstore.TabularSheet: empty sheet")
	}
	idx := indexHeader(rows[0])

	spec := &ConfigSpec{
		Version:     "1",
		Relays:      map[string]RelaySpec{},
		DataSources: map[string]SourceSpec{},
		Beers:       map[string]BeerSpec{},
		Managers:    map[string]ManagerSpec{},
	}

	previous := make(map[string][]string) // kind -> last raw row

	for _, row := range rows[1:] {
		kind := strings.ToLower(strings.TrimSpace(idx.get(row, "kind")))
		name := strings.TrimSpace(idx.get(row, "name"))
		if kind == "" || name == "" {
			continue
		}

		resolved := make([]string, len(row))
		prev := previous[kind]
		for i, raw := range row {
			var prevCell string
			if i < len(prev) {
				prevCell = prev[i]
			}
			resolved[i] = decodeCell(raw, prevCell)
		}
		previous[kind] = resolved

		switch kind {
		case "relay":
			spec.Relays[name] = RelaySpec{
				Type:       decodeValue(idx.get(resolved, "type")).asString("software"),
				DutyCycle:  decodeValue(idx.get(resolved, "duty_cycle")).asFloat(0),
				CycleTime:  decodeValue(idx.get(resolved, "cycle_time")).asFloat(0),
				ActiveHigh: decodeValue(idx.get(resolved, "active_high")).asBool(true),
				Pin:        idx.get(resolved, "pin"),
			}
		case "datasource":
			spec.DataSources[name] = SourceSpec{
				Type:            decodeValue(idx.get(resolved, "type")).asString("http"),
				BaseURL:         idx.get(resolved, "base_url"),
				TemperaturePath: idx.get(resolved, "temperature_path"),
				GravityPath:     idx.get(resolved, "gravity_path"),
				Unit:            idx.get(resolved, "unit"),
				Cache:           decodeValue(idx.get(resolved, "cache")).asBool(false),
			}
		case "beer":
			spec.Beers[name] = BeerSpec{
				Type:              decodeValue(idx.get(resolved, "type")).asString("set_point"),
				DataSource:        idx.get(resolved, "datasource"),
				Identifier:        idx.get(resolved, "identifier"),
				Target:            decodeValue(idx.get(resolved, "target")).asFloat(0),
				Tolerance:         decodeValue(idx.get(resolved, "tolerance")).asFloat(0.5),
				Unit:              idx.get(resolved, "unit"),
				GravityUnit:       idx.get(resolved, "gravity_unit"),
				OriginalGravity:   decodeValue(idx.get(resolved, "original_gravity")).asFloat(0),
				FinalGravity:      decodeValue(idx.get(resolved, "final_gravity")).asFloat(0),
				StartSetPoint:     decodeValue(idx.get(resolved, "start_set_point")).asFloat(0),
				EndSetPoint:       decodeValue(idx.get(resolved, "end_set_point")).asFloat(0),
				DataAgeWarningSec: decodeValue(idx.get(resolved, "data_age_warning_seconds")).asFloat(0),
			}
		case "manager":
			spec.Managers[name] = ManagerSpec{
				Beer:            idx.get(resolved, "beer"),
				HeatRelay:       idx.get(resolved, "heat_relay"),
				CoolRelay:       idx.get(resolved, "cool_relay"),
				ActiveHeating:   optionalBool(idx.get(resolved, "active_heating")),
				ActiveCooling:   optionalBool(idx.get(resolved, "active_cooling")),
				PollIntervalSec: decodeValue(idx.get(resolved, "poll_interval_seconds")).asFloat(60),
			}
		default:
			return nil, fmt.Errorf("configstore.TabularSheet: unknown kind %q in row for %q", kind, name)
		}
	}

	return spec, nil
}

func (t *TabularSheet) Load(ctx context.Context) (*ConfigSpec, error) {
	rows, err := t.reader.ReadRows(ctx, t.spreadsheetID, t.sheetRange)
	if err != nil {
		return nil, fmt.Errorf("configstore.TabularSheet.Load: %w", err)
	}
	spec, err := parseRows(rows)
	if err != nil {
		return nil, err
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}
	t.lastVersion = fingerprint(rows)
	return spec, nil
}

func (t *TabularSheet) HasChanged(ctx context.Context) (bool, error) {
	rows, err := t.reader.ReadRows(ctx, t.spreadsheetID, t.sheetRange)
	if err != nil {
		return false, fmt.Errorf("configstore.TabularSheet.HasChanged: %w", err)
	}
	return fingerprint(rows) != t.lastVersion, nil
}

func (t *TabularSheet) RefreshInterval() (float64, bool) {
	return t.refreshInterval, t.refreshInterval > 0
}

func (t *TabularSheet) Close() error { return nil }

func fingerprint(rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\x1f"))
		b.WriteString("\x1e")
	}
	return b.String()
}
