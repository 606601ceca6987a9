package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-filter/internal/classify"
	"github.com/pdiddy/pubmed-filter/internal/eutils"
	"github.com/pdiddy/pubmed-filter/internal/export"
	"github.com/pdiddy/pubmed-filter/internal/httputil"
	"github.com/pdiddy/pubmed-filter/internal/observability"
	"github.com/pdiddy/pubmed-filter/internal/pipeline"
	"github.com/pdiddy/pubmed-filter/internal/secrets"
	"github.com/pdiddy/pubmed-filter/pkg/types"
)

const queryPrompt = "Enter your search query: "

var filterCmd = &cobra.Command{
	Use:   "filter [query...]",
	Short: "Search PubMed and export papers with non-academic authors",
	Long: `Filter runs a PubMed search, fetches the summary and author list of each
hit, and exports papers where at least one author affiliation contains a
company keyword. The query is taken from the arguments, --query, the
PUBMED_FILTER_QUERY environment variable or the config file, in that order;
when none is set the query is read from standard input.

The output format follows --format, or the extension of --output
(.csv, .json, .yaml, .db).`,
	SilenceUsage: true,
	RunE:         runFilter,
}

func init() {
	f := filterCmd.Flags()
	f.String("query", "", "PubMed search term")
	f.Int("max-results", types.DefaultMaxResults, "maximum number of PMIDs to request")
	f.Int("max-attempts", types.DefaultMaxAttempts, "attempts per request before giving up")
	f.Duration("retry-delay", types.DefaultRetryDelay, "pause between attempts")
	f.Duration("timeout", types.DefaultTimeout, "HTTP request timeout")
	f.String("user-agent", types.DefaultUserAgent, "HTTP User-Agent header")
	f.String("base-url", types.DefaultEutilsBaseURL, "E-utilities base URL")
	f.String("api-key", "", "NCBI API key (default: .secrets/ncbi-api-key)")
	f.String("email", "", "contact email sent to NCBI (default: .secrets/ncbi-email)")
	f.StringP("output", "o", types.DefaultOutputPath, "output file")
	f.String("format", "", "output format: csv, json, yaml, sqlite (default: from extension)")
	f.StringSlice("keywords", nil, "affiliation keywords marking a paper as non-academic")
	f.Bool("no-preview", false, "do not print the result table")
	f.String("record", "", "write a YAML summary of the run to this file")

	bindings := map[string]string{
		"query":              "query",
		"max_results":        "max-results",
		"retry.max_attempts": "max-attempts",
		"retry.delay":        "retry-delay",
		"http.timeout":       "timeout",
		"http.user_agent":    "user-agent",
		"eutils.base_url":    "base-url",
		"eutils.api_key":     "api-key",
		"eutils.email":       "email",
		"output.path":        "output",
		"output.format":      "format",
		"keywords":           "keywords",
		"output.no_preview":  "no-preview",
		"output.record":      "record",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(filterCmd)
}

// filterConfig assembles a FilterConfig from v, falling back to credentials
// loaded from .secrets/ for the API key and email.
func filterConfig(v *viper.Viper, creds secrets.Credentials) types.FilterConfig {
	cfg := types.FilterConfig{
		MaxResults: v.GetInt("max_results"),
		Keywords:   v.GetStringSlice("keywords"),
		Retry: types.RetryConfig{
			MaxAttempts: v.GetInt("retry.max_attempts"),
			Delay:       v.GetDuration("retry.delay"),
		},
		Eutils: types.EutilsConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("http.timeout"),
				UserAgent: v.GetString("http.user_agent"),
			},
			BaseURL: v.GetString("eutils.base_url"),
			APIKey:  secretDefault(v.GetString("eutils.api_key"), creds.APIKey),
			Email:   secretDefault(v.GetString("eutils.email"), creds.Email),
		},
		Output: types.OutputConfig{
			Path:   v.GetString("output.path"),
			Format: types.ExportFormat(v.GetString("output.format")),
			Record: v.GetString("output.record"),
		},
	}
	if !v.IsSet("retry.delay") {
		cfg.Retry.Delay = types.DefaultRetryDelay
	}
	if cfg.Output.Path == "" {
		cfg.Output.Path = types.DefaultOutputPath
	}
	cfg.ApplyDefaults()
	return cfg
}

// resolveQuery returns the query from args, then configured, then a line
// read from in after writing the prompt to out.
func resolveQuery(args []string, configured string, in io.Reader, out io.Writer) (string, error) {
	if q := strings.TrimSpace(strings.Join(args, " ")); q != "" {
		return q, nil
	}
	if q := strings.TrimSpace(configured); q != "" {
		return q, nil
	}

	fmt.Fprint(out, queryPrompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading query: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// newPipeline wires the E-utilities client, retry policy, classifier and
// exporter for cfg.
func newPipeline(cfg types.FilterConfig, fetcher pipeline.Fetcher, log zerolog.Logger) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Stages: &pipeline.Stages{
			Fetcher: fetcher,
			Retry: httputil.RetryPolicy{
				MaxAttempts: cfg.Retry.MaxAttempts,
				Delay:       cfg.Retry.Delay,
			},
			MaxResults: cfg.MaxResults,
			Logger:     log,
		},
		Classifier: classify.New(cfg.Keywords),
		Exporter:   export.File{Path: cfg.Output.Path, Format: cfg.Output.Format},
		Logger:     log,
	}
}

func runFilter(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	cfg := filterConfig(v, loadedSecrets)

	// Reject an unusable format before any request is made.
	if _, err := export.ResolveFormat(cfg.Output.Path, cfg.Output.Format); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	query, err := resolveQuery(args, v.GetString("query"), cmd.InOrStdin(), out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return filter(ctx, cfg, eutils.New(cfg.Eutils), query, !v.GetBool("output.no_preview"), out)
}

// filter runs one pipeline and reports the outcome on out.
func filter(ctx context.Context, cfg types.FilterConfig, fetcher pipeline.Fetcher, query string, preview bool, out io.Writer) error {
	log := observability.WithRun(logger, query)
	log.Info().
		Int("max_results", cfg.MaxResults).
		Int("max_attempts", cfg.Retry.MaxAttempts).
		Bool("api_key", cfg.Eutils.APIKey != "").
		Msg("starting run")

	p := newPipeline(cfg, fetcher, log)
	report, err := p.Run(ctx, query)
	if cfg.Output.Record != "" && (err == nil || isHalt(err)) {
		output := ""
		if report.Written {
			output = cfg.Output.Path
		}
		rec := export.NewRunRecord(report.Query, cfg, p.Classifier.Keywords(),
			report.IDs, report.Skipped, report.Summarized, report.Rows, output)
		if werr := export.WriteRunRecord(cfg.Output.Record, rec); werr != nil {
			log.Warn().Err(werr).Str("path", cfg.Output.Record).Msg("could not write run record")
		}
	}

	switch {
	case errors.Is(err, pipeline.ErrNoPapers):
		fmt.Fprintln(out, "No papers found for the given query.")
		return err
	case errors.Is(err, pipeline.ErrNoSummaries):
		fmt.Fprintln(out, "Failed to fetch paper details.")
		return err
	case err != nil:
		return err
	}

	if !report.Written {
		fmt.Fprintln(out, "No papers with non-academic authors found.")
		return nil
	}
	if preview {
		export.FormatTable(report.Rows, out)
	}
	fmt.Fprintf(out, "Filtered results saved to %s\n", cfg.Output.Path)
	return nil
}

func isHalt(err error) bool {
	return errors.Is(err, pipeline.ErrNoPapers) || errors.Is(err, pipeline.ErrNoSummaries)
}
