package configstore

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLSheetReader implements SheetReader by reading a grid of rows from a
// local YAML fixture ([][]string), used by tests and by operators who
// want tabular decoding semantics without a live spreadsheet backend.
type YAMLSheetReader struct {
	Path string
}

func (y YAMLSheetReader) ReadRows(ctx context.Context, spreadsheetID, sheetRange string) ([][]string, error) {
	data, err := os.ReadFile(y.Path)
	if err != nil {
		return nil, fmt.Errorf("configstore.YAMLSheetReader: read %q: %w", y.Path, err)
	}
	var rows [][]string
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("configstore.YAMLSheetReader: parse %q: %w", y.Path, err)
	}
	return rows, nil
}
