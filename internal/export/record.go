// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-filter/pkg/types"
)

// RunRecord is the on-disk summary of one filter run: the query, the
// settings that shaped it, and which PMIDs ended up where. It lets a run be
// inspected or repeated later without re-querying PubMed.
type RunRecord struct {
	Query    string          `yaml:"query"`
	Config   RunRecordConfig `yaml:"config"`
	IDs      []string        `yaml:"ids"`
	Skipped  []string        `yaml:"skipped,omitempty"`
	Exported []string        `yaml:"exported,omitempty"`
	Output   string          `yaml:"output,omitempty"`
	Summary  RunSummary      `yaml:"summary"`
}

// RunRecordConfig stores the settings that produced the record.
type RunRecordConfig struct {
	MaxResults  int           `yaml:"max_results"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Keywords    []string      `yaml:"keywords"`
}

// RunSummary stores counts and a timestamp.
type RunSummary struct {
	Found      int       `yaml:"found"`
	Summarized int       `yaml:"summarized"`
	Exported   int       `yaml:"exported"`
	Timestamp  time.Time `yaml:"timestamp"`
}

// NewRunRecord builds a record from the run outcome. summarized is the
// number of ids the summary stage returned; output is empty when nothing
// was written.
func NewRunRecord(query string, cfg types.FilterConfig, keywords, ids, skipped []string, summarized int, rows []types.FilteredPaper, output string) RunRecord {
	exported := make([]string, 0, len(rows))
	for _, r := range rows {
		exported = append(exported, r.ID)
	}
	return RunRecord{
		Query: query,
		Config: RunRecordConfig{
			MaxResults:  cfg.MaxResults,
			MaxAttempts: cfg.Retry.MaxAttempts,
			RetryDelay:  cfg.Retry.Delay,
			Keywords:    keywords,
		},
		IDs:      ids,
		Skipped:  skipped,
		Exported: exported,
		Output:   output,
		Summary: RunSummary{
			Found:      len(ids),
			Summarized: summarized,
			Exported:   len(rows),
			Timestamp:  time.Now().UTC(),
		},
	}
}

// WriteRunRecord saves rec to path as YAML, creating parent directories.
func WriteRunRecord(path string, rec RunRecord) error {
	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshaling run record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRunRecord loads a previously saved run record.
func ReadRunRecord(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run record: %w", err)
	}
	var rec RunRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing run record: %w", err)
	}
	return &rec, nil
}
