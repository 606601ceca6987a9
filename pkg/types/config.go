package types

import "time"

// Defaults for the pipeline stages.
const (
	DefaultMaxResults  = 5
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "pubmed-filter/0.1"
	DefaultOutputPath  = "filtered_papers.csv"

	DefaultEutilsBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
)

// HTTPConfig holds shared HTTP settings used by the E-utilities client.
type HTTPConfig struct {
	// Timeout bounds each request attempt (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig controls the bounded, fixed-delay retry applied to each stage.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per stage call (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// Delay is the pause between consecutive attempts (default 5s).
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`
}

// EutilsConfig holds NCBI E-utilities settings.
type EutilsConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the E-utilities root; the esearch, esummary and efetch
	// endpoint names are appended to it.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey raises the NCBI rate limit from 3 to 10 requests per second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Email is sent as the email parameter so NCBI can contact the operator.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`
}

// ExportFormat selects the output serialization.
type ExportFormat string

const (
	FormatCSV    ExportFormat = "csv"
	FormatJSON   ExportFormat = "json"
	FormatYAML   ExportFormat = "yaml"
	FormatSQLite ExportFormat = "sqlite"
)

// OutputConfig holds export settings.
type OutputConfig struct {
	// Path is the output file, overwritten on each run that has results.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Format selects the serialization. Empty means infer from Path.
	Format ExportFormat `json:"format" yaml:"format" mapstructure:"format"`

	// Record, when set, receives a YAML summary of every run.
	Record string `json:"record,omitempty" yaml:"record,omitempty" mapstructure:"record"`
}

// FilterConfig groups all settings for one pipeline run.
type FilterConfig struct {
	// MaxResults caps the esearch result list (default 5). No pagination.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Keywords overrides the non-academic keyword list when non-empty.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty" mapstructure:"keywords"`

	Retry  RetryConfig  `json:"retry" yaml:"retry" mapstructure:"retry"`
	Eutils EutilsConfig `json:"eutils" yaml:"eutils" mapstructure:"eutils"`
	Output OutputConfig `json:"output" yaml:"output" mapstructure:"output"`
}

// DefaultConfig returns a FilterConfig with every default applied.
func DefaultConfig() FilterConfig {
	cfg := FilterConfig{Retry: RetryConfig{Delay: DefaultRetryDelay}}
	cfg.Eutils.BaseURL = DefaultEutilsBaseURL
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with the package defaults. A zero
// Retry.Delay is kept: it disables the pause between attempts.
func (c *FilterConfig) ApplyDefaults() {
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if c.Retry.Delay < 0 {
		c.Retry.Delay = 0
	}
	if c.Eutils.BaseURL == "" {
		c.Eutils.BaseURL = DefaultEutilsBaseURL
	}
	if c.Eutils.Timeout <= 0 {
		c.Eutils.Timeout = DefaultTimeout
	}
	if c.Eutils.UserAgent == "" {
		c.Eutils.UserAgent = DefaultUserAgent
	}
	if c.Output.Path == "" {
		c.Output.Path = DefaultOutputPath
	}
}
