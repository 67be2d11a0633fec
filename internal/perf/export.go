package perf

import (
	"encoding/json"
	"path/filepath"

	"github.com/spf13/afero"
)

const defaultExportFilename = "mfetch-perf.json"

// ExportToFile writes the supplied span snapshots as JSON to <outDir>/mfetch-perf.json.
//
// This is a best-effort diagnostic artifact; callers should treat any returned error as non-fatal.
func ExportToFile(fs afero.Fs, outDir string, spans []SpanSnapshot) (string, error) {
	if outDir == "" {
		outDir = "."
	}

	if err := fs.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	if spans == nil {
		spans = []SpanSnapshot{}
	}

	path := filepath.Join(outDir, defaultExportFilename)
	data, err := json.MarshalIndent(spans, "", "  ")
	if err != nil {
		return "", err
	}

	return path, afero.WriteFile(fs, path, data, 0644)
}
