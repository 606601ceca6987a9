// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the search, summary, author and classification
// stages in order and hands qualifying papers to an exporter.
//
// Execution is sequential. A stage that exhausts its retries degrades to an
// empty result; an empty id list or an empty summary map halts the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-filter/internal/classify"
	"github.com/pdiddy/pubmed-filter/internal/observability"
	"github.com/pdiddy/pubmed-filter/pkg/types"
)

// Halting conditions returned by Run.
var (
	ErrNoPapers    = errors.New("no papers found")
	ErrNoSummaries = errors.New("no paper details fetched")
)

// Exporter persists the qualifying rows.
type Exporter interface {
	Export(rows []types.FilteredPaper) error
}

// Pipeline wires the stages to a classifier and an exporter.
type Pipeline struct {
	Stages     *Stages
	Classifier *classify.Classifier
	Exporter   Exporter
	Logger     zerolog.Logger
}

// Report describes one run.
type Report struct {
	Query string

	// IDs are the search results in the order returned.
	IDs []string

	// Summarized counts the ids present in the summary map.
	Summarized int

	// Skipped lists search ids missing from the summary map.
	Skipped []string

	// Rows are the exported papers in search order.
	Rows []types.FilteredPaper

	// Written reports whether the exporter was invoked.
	Written bool
}

// Run executes the pipeline for query. It returns ErrNoPapers or
// ErrNoSummaries when a stage comes back empty; in both cases nothing is
// exported. Finding no qualifying paper is not an error.
func (p *Pipeline) Run(ctx context.Context, query string) (Report, error) {
	query = strings.TrimSpace(query)
	report := Report{Query: query}

	classifier := p.Classifier
	if classifier == nil {
		classifier = classify.New(nil)
	}

	ids := p.Stages.Search(ctx, query)
	report.IDs = ids
	if len(ids) == 0 {
		return report, ErrNoPapers
	}

	summaries := p.Stages.Summaries(ctx, ids)
	if len(summaries) == 0 {
		return report, ErrNoSummaries
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log := observability.WithPaper(p.Logger, id)
		summary, ok := summaries[id]
		if !ok {
			log.Debug().Msg("no summary, skipping")
			report.Skipped = append(report.Skipped, id)
			continue
		}
		report.Summarized++

		aa := p.Stages.Authors(ctx, id)
		if !classifier.NonAcademic(aa.Affiliations) {
			log.Debug().Int("affiliations", len(aa.Affiliations)).Msg("academic only")
			continue
		}

		row := types.FilteredPaper{
			ID:              id,
			Title:           summary.Title,
			PublicationDate: summary.PublicationDate,
			Authors:         strings.Join(aa.Authors, types.ListSeparator),
			Affiliations:    strings.Join(aa.Affiliations, types.ListSeparator),
			MatchedKeywords: classifier.Matches(aa.Affiliations),
		}
		log.Info().Strs("keywords", row.MatchedKeywords).Msg("non-academic affiliation")
		report.Rows = append(report.Rows, row)
	}

	if len(report.Rows) == 0 {
		p.Logger.Info().Msg("no papers with non-academic authors")
		return report, nil
	}

	if err := p.Exporter.Export(report.Rows); err != nil {
		return report, fmt.Errorf("exporting %d papers: %w", len(report.Rows), err)
	}
	report.Written = true
	return report, nil
}
