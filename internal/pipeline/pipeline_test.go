// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubmed-filter/internal/affiliation"
	"github.com/pdiddy/pubmed-filter/internal/classify"
	"github.com/pdiddy/pubmed-filter/internal/export"
	"github.com/pdiddy/pubmed-filter/internal/httputil"
	"github.com/pdiddy/pubmed-filter/pkg/types"
)

// --- fakes ---

type fakeFetcher struct {
	ids       []string
	searchErr error

	summaries  map[string]types.PaperSummary
	summaryErr error

	authors   map[string]types.AuthorAffiliations
	authorErr map[string]error

	searchCalls  int
	summaryCalls [][]string
	authorCalls  []string
}

func (f *fakeFetcher) Search(_ context.Context, _ string, maxResults int) ([]string, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	ids := f.ids
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

func (f *fakeFetcher) Summaries(_ context.Context, ids []string) (map[string]types.PaperSummary, error) {
	f.summaryCalls = append(f.summaryCalls, ids)
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summaries, nil
}

func (f *fakeFetcher) Authors(_ context.Context, id string) (types.AuthorAffiliations, error) {
	f.authorCalls = append(f.authorCalls, id)
	if err := f.authorErr[id]; err != nil {
		return f.authors[id], err
	}
	return f.authors[id], nil
}

type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

type captureExporter struct {
	calls int
	rows  []types.FilteredPaper
}

func (c *captureExporter) Export(rows []types.FilteredPaper) error {
	c.calls++
	c.rows = rows
	return nil
}

func newPipeline(f Fetcher, exp Exporter, sleep *recordingSleep) *Pipeline {
	return &Pipeline{
		Stages: &Stages{
			Fetcher:    f,
			Retry:      httputil.RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second, Sleep: sleep.sleep},
			MaxResults: types.DefaultMaxResults,
			Logger:     zerolog.Nop(),
		},
		Classifier: classify.New(nil),
		Exporter:   exp,
		Logger:     zerolog.Nop(),
	}
}

func pfizerFetcher() *fakeFetcher {
	return &fakeFetcher{
		ids: []string{"111"},
		summaries: map[string]types.PaperSummary{
			"111": {Title: "T", PublicationDate: "2020"},
		},
		authors: map[string]types.AuthorAffiliations{
			"111": {Authors: []string{"John Smith"}, Affiliations: []string{"Pfizer Inc., USA"}},
		},
	}
}

// --- halting ---

func TestRun_NoIDsHaltsBeforeLaterStages(t *testing.T) {
	f := &fakeFetcher{ids: []string{}}
	path := filepath.Join(t.TempDir(), "filtered_papers.csv")
	p := newPipeline(f, export.File{Path: path}, &recordingSleep{})

	report, err := p.Run(context.Background(), "nothing matches this")

	assert.ErrorIs(t, err, ErrNoPapers)
	assert.Empty(t, report.IDs)
	assert.Equal(t, 1, f.searchCalls, "an empty result is not retried")
	assert.Empty(t, f.summaryCalls)
	assert.Empty(t, f.authorCalls)
	assert.NoFileExists(t, path)
}

func TestRun_SearchFailureSoftFailsAfterMaxAttempts(t *testing.T) {
	f := &fakeFetcher{searchErr: errors.New("connection refused")}
	sleep := &recordingSleep{}
	exp := &captureExporter{}
	p := newPipeline(f, exp, sleep)

	_, err := p.Run(context.Background(), "cancer")

	assert.ErrorIs(t, err, ErrNoPapers)
	assert.Equal(t, 3, f.searchCalls, "at most MaxAttempts attempts, never a fourth")
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleep.delays)
	assert.Empty(t, f.summaryCalls)
	assert.Zero(t, exp.calls)
}

func TestRun_SummaryFailureHalts(t *testing.T) {
	f := pfizerFetcher()
	f.summaryErr = errors.New("HTTP 502")
	exp := &captureExporter{}
	p := newPipeline(f, exp, &recordingSleep{})

	_, err := p.Run(context.Background(), "cancer")

	assert.ErrorIs(t, err, ErrNoSummaries)
	assert.Len(t, f.summaryCalls, 3)
	assert.Empty(t, f.authorCalls)
	assert.Zero(t, exp.calls)
}

func TestRun_EmptySummaryMapHalts(t *testing.T) {
	f := pfizerFetcher()
	f.summaries = map[string]types.PaperSummary{}
	p := newPipeline(f, &captureExporter{}, &recordingSleep{})

	_, err := p.Run(context.Background(), "cancer")
	assert.ErrorIs(t, err, ErrNoSummaries)
	assert.Len(t, f.summaryCalls, 1)
}

// --- orchestration ---

func TestRun_SummaryRequestIsBatched(t *testing.T) {
	f := &fakeFetcher{
		ids: []string{"1", "2", "3", "4"},
		summaries: map[string]types.PaperSummary{
			"1": {Title: "a"}, "2": {Title: "b"}, "3": {Title: "c"}, "4": {Title: "d"},
		},
	}
	p := newPipeline(f, &captureExporter{}, &recordingSleep{})

	_, err := p.Run(context.Background(), "q")
	require.NoError(t, err)

	require.Len(t, f.summaryCalls, 1)
	assert.Equal(t, []string{"1", "2", "3", "4"}, f.summaryCalls[0])
	assert.Equal(t, []string{"1", "2", "3", "4"}, f.authorCalls)
}

func TestRun_IDMissingFromSummariesIsSkipped(t *testing.T) {
	f := &fakeFetcher{
		ids:       []string{"1", "2"},
		summaries: map[string]types.PaperSummary{"1": {Title: "One", PublicationDate: "2019"}},
		authors: map[string]types.AuthorAffiliations{
			"1": {Authors: []string{"A B"}, Affiliations: []string{"Acme Pharma"}},
			"2": {Authors: []string{"C D"}, Affiliations: []string{"Acme Pharma"}},
		},
	}
	exp := &captureExporter{}
	p := newPipeline(f, exp, &recordingSleep{})

	report, err := p.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, f.authorCalls)
	assert.Equal(t, []string{"2"}, report.Skipped)
	assert.Equal(t, 1, report.Summarized)
	require.Len(t, exp.rows, 1)
	assert.Equal(t, "1", exp.rows[0].ID)
}

func TestRun_SearchResultCap(t *testing.T) {
	f := &fakeFetcher{ids: []string{"1", "2", "3", "4", "5", "6", "7"}}
	p := newPipeline(f, &captureExporter{}, &recordingSleep{})

	// Summary map is empty so the run halts right after the summary stage.
	report, err := p.Run(context.Background(), "q")
	assert.ErrorIs(t, err, ErrNoSummaries)
	assert.Len(t, report.IDs, 5)
}

func TestRun_OnlyNonAcademicPapersExported(t *testing.T) {
	f := &fakeFetcher{
		ids: []string{"10", "20", "30"},
		summaries: map[string]types.PaperSummary{
			"10": {Title: "Industry", PublicationDate: "2022"},
			"20": {Title: "Academic", PublicationDate: "2021"},
			"30": {Title: "No affiliations", PublicationDate: "2020"},
		},
		authors: map[string]types.AuthorAffiliations{
			"10": {Authors: []string{"Ann Lee", "Bo Chen"}, Affiliations: []string{"Harvard University", "Acme Biotech Ltd"}},
			"20": {Authors: []string{"Cy Diaz"}, Affiliations: []string{"University of Oxford"}},
			"30": {Authors: []string{"Di Evans"}, Affiliations: []string{}},
		},
	}
	exp := &captureExporter{}
	p := newPipeline(f, exp, &recordingSleep{})

	report, err := p.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.True(t, report.Written)
	assert.Equal(t, 1, exp.calls)
	assert.Equal(t, []types.FilteredPaper{{
		ID:              "10",
		Title:           "Industry",
		PublicationDate: "2022",
		Authors:         "Ann Lee; Bo Chen",
		Affiliations:    "Harvard University; Acme Biotech Ltd",
		MatchedKeywords: []string{"biotech", "ltd"},
	}}, exp.rows)
}

func TestRun_NoQualifyingPapersWritesNothing(t *testing.T) {
	f := pfizerFetcher()
	f.authors["111"] = types.AuthorAffiliations{Authors: []string{"John Smith"}, Affiliations: []string{"MIT"}}
	path := filepath.Join(t.TempDir(), "filtered_papers.csv")
	p := newPipeline(f, export.File{Path: path}, &recordingSleep{})

	report, err := p.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.False(t, report.Written)
	assert.Empty(t, report.Rows)
	assert.NoFileExists(t, path)
}

func TestRun_AuthorFailureExcludesOnlyThatPaper(t *testing.T) {
	f := &fakeFetcher{
		ids: []string{"1", "2"},
		summaries: map[string]types.PaperSummary{
			"1": {Title: "Fails"}, "2": {Title: "Works"},
		},
		authors: map[string]types.AuthorAffiliations{
			"2": {Authors: []string{"X Y"}, Affiliations: []string{"Widget Company"}},
		},
		authorErr: map[string]error{"1": errors.New("timeout")},
	}
	exp := &captureExporter{}
	sleep := &recordingSleep{}
	p := newPipeline(f, exp, sleep)

	_, err := p.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "1", "1", "2"}, f.authorCalls)
	assert.Len(t, sleep.delays, 2)
	require.Len(t, exp.rows, 1)
	assert.Equal(t, "2", exp.rows[0].ID)
}

func TestRun_PartialDocumentAcceptedWithoutRetry(t *testing.T) {
	f := pfizerFetcher()
	f.authorErr = map[string]error{"111": fmt.Errorf("%w: unexpected EOF", affiliation.ErrMalformed)}
	exp := &captureExporter{}
	p := newPipeline(f, exp, &recordingSleep{})

	_, err := p.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, []string{"111"}, f.authorCalls)
	require.Len(t, exp.rows, 1)
}

func TestRun_TrimsQuery(t *testing.T) {
	p := newPipeline(&fakeFetcher{}, &captureExporter{}, &recordingSleep{})
	report, _ := p.Run(context.Background(), "  cancer AND Pfizer \n")
	assert.Equal(t, "cancer AND Pfizer", report.Query)
}

func TestRun_ContextCancelledDuringPapers(t *testing.T) {
	f := pfizerFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	p := newPipeline(f, &captureExporter{}, &recordingSleep{})
	p.Stages.Fetcher = cancelAfterSummaries{fakeFetcher: f, cancel: cancel}

	_, err := p.Run(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.authorCalls)
}

type cancelAfterSummaries struct {
	*fakeFetcher
	cancel context.CancelFunc
}

func (c cancelAfterSummaries) Summaries(ctx context.Context, ids []string) (map[string]types.PaperSummary, error) {
	defer c.cancel()
	return c.fakeFetcher.Summaries(ctx, ids)
}

// --- end to end with the CSV exporter ---

func TestRun_EndToEndCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filtered_papers.csv")
	p := newPipeline(pfizerFetcher(), export.File{Path: path}, &recordingSleep{})

	report, err := p.Run(context.Background(), "cancer AND Pfizer")
	require.NoError(t, err)
	assert.True(t, report.Written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"Paper ID,Title,Publication Date,Authors,Affiliations\n"+
			"111,T,2020,John Smith,\"Pfizer Inc., USA\"\n",
		string(data))
}
