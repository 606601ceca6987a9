// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-filter/internal/affiliation"
	"github.com/pdiddy/pubmed-filter/internal/httputil"
	"github.com/pdiddy/pubmed-filter/internal/observability"
	"github.com/pdiddy/pubmed-filter/pkg/types"
)

// Fetcher is the network boundary behind the three retrieval stages. Each
// call is a single attempt; *eutils.Client implements it, tests substitute
// fixtures.
type Fetcher interface {
	Search(ctx context.Context, term string, maxResults int) ([]string, error)
	Summaries(ctx context.Context, ids []string) (map[string]types.PaperSummary, error)
	Authors(ctx context.Context, id string) (types.AuthorAffiliations, error)
}

// Stages applies the bounded retry policy to a Fetcher. Every stage soft
// fails: once attempts are exhausted it logs the failure and returns an
// empty result instead of an error.
type Stages struct {
	Fetcher    Fetcher
	Retry      httputil.RetryPolicy
	MaxResults int
	Logger     zerolog.Logger
}

// Search returns up to MaxResults PMIDs for query, or an empty slice.
func (s *Stages) Search(ctx context.Context, query string) []string {
	log := s.Logger.With().Str("stage", "search").Logger()

	var ids []string
	err := s.retry(ctx, log, func(ctx context.Context, attempt int) error {
		log.Info().Int("attempt", attempt).Msg("fetching paper ids")
		got, err := s.Fetcher.Search(ctx, query, s.MaxResults)
		if err != nil {
			return err
		}
		ids = got
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch papers after multiple attempts")
		return []string{}
	}
	if len(ids) == 0 {
		log.Warn().Msg("no papers found")
		return []string{}
	}
	log.Info().Strs("ids", ids).Msg("fetched paper ids")
	return ids
}

// Summaries returns the summary map for ids from one batched request, or
// an empty map.
func (s *Stages) Summaries(ctx context.Context, ids []string) map[string]types.PaperSummary {
	log := s.Logger.With().Str("stage", "summary").Int("papers", len(ids)).Logger()

	var out map[string]types.PaperSummary
	err := s.retry(ctx, log, func(ctx context.Context, attempt int) error {
		log.Info().Int("attempt", attempt).Msg("fetching paper details")
		got, err := s.Fetcher.Summaries(ctx, ids)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch paper details after multiple attempts")
		return map[string]types.PaperSummary{}
	}
	if out == nil {
		out = map[string]types.PaperSummary{}
	}
	return out
}

// Authors returns the authors and affiliations of one paper, or two empty
// slices. A partially parsed document is accepted as is.
func (s *Stages) Authors(ctx context.Context, id string) types.AuthorAffiliations {
	log := observability.WithPaper(s.Logger.With().Str("stage", "authors").Logger(), id)

	var out types.AuthorAffiliations
	err := s.retry(ctx, log, func(ctx context.Context, attempt int) error {
		log.Info().Int("attempt", attempt).Msg("fetching authors")
		got, err := s.Fetcher.Authors(ctx, id)
		if errors.Is(err, affiliation.ErrMalformed) {
			log.Warn().Err(err).Int("authors", len(got.Authors)).Msg("using partially parsed document")
			err = nil
		}
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch author details after multiple attempts")
		return emptyAuthors()
	}
	if out.Authors == nil {
		out.Authors = []string{}
	}
	if out.Affiliations == nil {
		out.Affiliations = []string{}
	}
	return out
}

func (s *Stages) retry(ctx context.Context, log zerolog.Logger, op func(context.Context, int) error) error {
	policy := s.Retry
	policy.OnFailure = func(attempt int, last bool, err error) {
		ev := log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", policy.Attempts())
		if !last {
			ev = ev.Dur("retry_in", policy.Delay)
		}
		ev.Msg("attempt failed")
	}
	return policy.Do(ctx, op)
}

func emptyAuthors() types.AuthorAffiliations {
	return types.AuthorAffiliations{Authors: []string{}, Affiliations: []string{}}
}
