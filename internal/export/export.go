// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes filtered papers to CSV, JSON, YAML or SQLite files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-filter/pkg/types"
)

// ResolveFormat returns format when set, otherwise infers it from the
// extension of path. Unknown extensions fall back to CSV.
func ResolveFormat(path string, format types.ExportFormat) (types.ExportFormat, error) {
	if format != "" {
		switch f := types.ExportFormat(strings.ToLower(string(format))); f {
		case types.FormatCSV, types.FormatJSON, types.FormatYAML, types.FormatSQLite:
			return f, nil
		default:
			return "", fmt.Errorf("unknown export format %q (want csv, json, yaml or sqlite)", format)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return types.FormatJSON, nil
	case ".yaml", ".yml":
		return types.FormatYAML, nil
	case ".db", ".sqlite", ".sqlite3":
		return types.FormatSQLite, nil
	default:
		return types.FormatCSV, nil
	}
}

// File exports rows to Path, replacing any existing file.
type File struct {
	Path   string
	Format types.ExportFormat
}

// Export writes rows to a temporary file next to Path and renames it into
// place on success, so a failed export never leaves a half-written file.
func (f File) Export(rows []types.FilteredPaper) error {
	format, err := ResolveFormat(f.Path, f.Format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if format == types.FormatSQLite {
		tmp.Close()
		err = writeSQLite(tmpPath, rows)
	} else {
		err = Write(tmp, format, rows)
		if closeErr := tmp.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", format, err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, f.Path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.Path, err)
	}
	return nil
}

// Write serializes rows to w in a stream format (csv, json or yaml).
func Write(w io.Writer, format types.ExportFormat, rows []types.FilteredPaper) error {
	switch format {
	case types.FormatCSV:
		return WriteCSV(w, rows)
	case types.FormatJSON:
		return WriteJSON(w, rows)
	case types.FormatYAML:
		return WriteYAML(w, rows)
	default:
		return fmt.Errorf("format %q cannot be streamed", format)
	}
}

// WriteCSV writes a header row followed by one row per paper.
func WriteCSV(w io.Writer, rows []types.FilteredPaper) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(types.Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write(r.Row()); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []types.FilteredPaper) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(nonNil(rows))
}

// WriteYAML writes rows as a YAML sequence.
func WriteYAML(w io.Writer, rows []types.FilteredPaper) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(nonNil(rows)); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

func nonNil(rows []types.FilteredPaper) []types.FilteredPaper {
	if rows == nil {
		return []types.FilteredPaper{}
	}
	return rows
}
