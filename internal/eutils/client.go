// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package eutils is a minimal client for the three NCBI E-utilities
// endpoints the pipeline needs: esearch, esummary and efetch.
//
// Each method performs exactly one HTTP request. Retrying is the caller's
// concern.
package eutils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/pubmed-filter/internal/affiliation"
	"github.com/pdiddy/pubmed-filter/pkg/types"
)

const (
	database = "pubmed"
	toolName = "pubmed-filter"

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 10 << 20

	// NCBI allows 3 requests per second, 10 with an API key.
	anonymousRate = 3
	keyedRate     = 10
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client talks to the E-utilities service.
type Client struct {
	// HTTP performs the requests. Its Timeout bounds each attempt.
	HTTP *http.Client

	// Limiter paces requests. Tests replace it with an unlimited one.
	Limiter *rate.Limiter

	cfg types.EutilsConfig
}

// New returns a Client for cfg with an http.Client honoring cfg.Timeout.
func New(cfg types.EutilsConfig) *Client {
	return NewWithHTTPClient(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewWithHTTPClient returns a Client that sends requests through hc.
func NewWithHTTPClient(cfg types.EutilsConfig, hc *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = types.DefaultEutilsBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = types.DefaultUserAgent
	}
	perSecond := rate.Limit(anonymousRate)
	if cfg.APIKey != "" {
		perSecond = keyedRate
	}
	return &Client{
		HTTP:    hc,
		Limiter: rate.NewLimiter(perSecond, 1),
		cfg:     cfg,
	}
}

// Search runs esearch for term and returns at most maxResults PMIDs in
// relevance order. Only the first page is requested.
func (c *Client) Search(ctx context.Context, term string, maxResults int) ([]string, error) {
	params := url.Values{
		"term":    {term},
		"retmode": {"json"},
		"retmax":  {strconv.Itoa(maxResults)},
	}

	var body esearchResponse
	if err := c.getJSON(ctx, "esearch.fcgi", params, &body); err != nil {
		return nil, err
	}

	ids := body.Result.IDList
	if ids == nil {
		ids = []string{}
	}
	if maxResults > 0 && len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

// Summaries runs one esummary request for all ids. Records lacking a title
// or pubdate get the NoTitle and NoDate placeholders.
func (c *Client) Summaries(ctx context.Context, ids []string) (map[string]types.PaperSummary, error) {
	out := make(map[string]types.PaperSummary)
	if len(ids) == 0 {
		return out, nil
	}

	params := url.Values{
		"id":      {strings.Join(ids, ",")},
		"retmode": {"json"},
	}

	var body esummaryResponse
	if err := c.getJSON(ctx, "esummary.fcgi", params, &body); err != nil {
		return nil, err
	}

	for uid, raw := range body.Result {
		if uid == "uids" {
			continue
		}
		out[uid] = decodeSummary(raw)
	}
	return out, nil
}

// Document runs efetch for a single PMID and returns the raw XML.
func (c *Client) Document(ctx context.Context, id string) ([]byte, error) {
	params := url.Values{
		"id":      {id},
		"retmode": {"xml"},
	}
	return c.get(ctx, "efetch.fcgi", params)
}

// Authors fetches the efetch document for id and extracts its authors and
// affiliations. A document that parses only partially yields the partial
// result and an error wrapping affiliation.ErrMalformed.
func (c *Client) Authors(ctx context.Context, id string) (types.AuthorAffiliations, error) {
	doc, err := c.Document(ctx, id)
	if err != nil {
		return types.AuthorAffiliations{}, err
	}
	return affiliation.ExtractBytes(doc)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, v any) error {
	data, err := c.get(ctx, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("db", database)
	params.Set("tool", toolName)
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}

	reqURL := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       snippet(data),
		}
	}
	return data, nil
}

func snippet(data []byte) string {
	const max = 200
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

func decodeSummary(raw json.RawMessage) types.PaperSummary {
	s := types.PaperSummary{Title: types.NoTitle, PublicationDate: types.NoDate}

	var doc esummaryDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return s
	}
	if doc.Title != nil {
		s.Title = *doc.Title
	}
	if doc.PubDate != nil {
		s.PublicationDate = *doc.PubDate
	}
	return s
}

// E-utilities JSON structures.
type esearchResponse struct {
	Result esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count  string   `json:"count"`
	IDList []string `json:"idlist"`
}

type esummaryResponse struct {
	// Result maps each uid to its document summary, plus a "uids" list.
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryDoc struct {
	Title   *string `json:"title"`
	PubDate *string `json:"pubdate"`
}
