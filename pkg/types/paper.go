// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pubmed-filter pipeline.
//
// See DESIGN.md § Data model.
package types

// Placeholders used when an esummary record omits a field.
const (
	NoTitle = "No Title Available"
	NoDate  = "No Date Available"
)

// ListSeparator joins authors and affiliations in exported rows.
const ListSeparator = "; "

// PaperSummary holds the esummary metadata for one PMID.
type PaperSummary struct {
	// Title is the article title, or NoTitle when the record has none.
	Title string `json:"title" yaml:"title"`

	// PublicationDate is the free-form pubdate string (e.g. "2020 Jan 15"),
	// or NoDate when the record has none.
	PublicationDate string `json:"pubdate" yaml:"pubdate"`
}

// AuthorAffiliations holds the authors and affiliation texts extracted from
// one efetch document. Both lists follow document order. Affiliations are
// not aligned with Authors: an author without a following Affiliation
// element contributes nothing, and one element may be counted for several
// authors.
type AuthorAffiliations struct {
	Authors      []string `json:"authors" yaml:"authors"`
	Affiliations []string `json:"affiliations" yaml:"affiliations"`
}

// FilteredPaper is one exported row: a paper with at least one affiliation
// classified as non-academic.
type FilteredPaper struct {
	ID              string `json:"paper_id" yaml:"paper_id"`
	Title           string `json:"title" yaml:"title"`
	PublicationDate string `json:"publication_date" yaml:"publication_date"`

	// Authors and Affiliations are joined with ListSeparator.
	Authors      string `json:"authors" yaml:"authors"`
	Affiliations string `json:"affiliations" yaml:"affiliations"`

	// MatchedKeywords lists the classifier keywords that hit. It is
	// reported in logs and structured exports, never in CSV.
	MatchedKeywords []string `json:"matched_keywords,omitempty" yaml:"matched_keywords,omitempty"`
}

// Columns is the header row of tabular exports, in order.
var Columns = []string{"Paper ID", "Title", "Publication Date", "Authors", "Affiliations"}

// Row returns the paper's values in Columns order.
func (p FilteredPaper) Row() []string {
	return []string{p.ID, p.Title, p.PublicationDate, p.Authors, p.Affiliations}
}
