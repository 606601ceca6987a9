// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify flags affiliations that look commercial rather than academic.
//
// Matching is a case-insensitive substring test, not a whole-word test, so
// "ltd" also matches inside longer unrelated tokens. That behavior is kept
// deliberately; changing it changes which papers are exported.
package classify

import "strings"

// DefaultKeywords are the lowercase markers of an industry affiliation.
var DefaultKeywords = []string{
	"pharma",
	"biotech",
	"laboratories",
	"inc.",
	"corporation",
	"company",
	"llc",
	"ltd",
}

// Classifier decides whether a paper has a non-academic affiliation.
type Classifier struct {
	keywords []string
}

// New returns a Classifier for keywords. Keywords are lowercased and blank
// entries dropped. An empty list falls back to DefaultKeywords.
func New(keywords []string) *Classifier {
	var kws []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			kws = append(kws, kw)
		}
	}
	if len(kws) == 0 {
		kws = DefaultKeywords
	}
	return &Classifier{keywords: kws}
}

// Keywords returns the effective keyword list.
func (c *Classifier) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

// NonAcademic reports whether any affiliation contains any keyword.
// An empty affiliation list is never non-academic.
func (c *Classifier) NonAcademic(affiliations []string) bool {
	for _, aff := range affiliations {
		lower := strings.ToLower(aff)
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// Matches returns the keywords found across affiliations, in keyword
// order and without repeats.
func (c *Classifier) Matches(affiliations []string) []string {
	var out []string
	for _, kw := range c.keywords {
		for _, aff := range affiliations {
			if strings.Contains(strings.ToLower(aff), kw) {
				out = append(out, kw)
				break
			}
		}
	}
	return out
}

// NonAcademic applies the default keyword set.
func NonAcademic(affiliations []string) bool {
	return defaultClassifier.NonAcademic(affiliations)
}

var defaultClassifier = New(nil)
