// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package affiliation extracts author names and affiliation texts from
// PubMed efetch XML.
//
// Affiliations are attributed by proximity, not by structure: each Author
// element takes the first Affiliation element that starts after it in
// document order. That is usually the author's own AffiliationInfo, but an
// author without one borrows the next author's, and an author with several
// contributes only the first. The result therefore does not map authors to
// affiliations one-to-one.
package affiliation

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/pubmed-filter/pkg/types"
)

// ErrMalformed is wrapped by the error Extract returns for a document it
// could not read to the end.
var ErrMalformed = errors.New("malformed efetch document")

const (
	authorElem      = "Author"
	lastNameElem    = "LastName"
	foreNameElem    = "ForeName"
	affiliationElem = "Affiliation"
)

// author accumulates one Author element while the document is scanned.
// Only the first LastName and ForeName descendants are captured.
type author struct {
	last, fore           strings.Builder
	lastDepth, foreDepth int
	hasLast, hasFore     bool

	// affiliation indexes the attributed Affiliation element, or -1.
	affiliation int
}

func (a *author) start(name string) {
	if a.lastDepth > 0 {
		a.lastDepth++
	} else if name == lastNameElem && !a.hasLast {
		a.hasLast, a.lastDepth = true, 1
	}
	if a.foreDepth > 0 {
		a.foreDepth++
	} else if name == foreNameElem && !a.hasFore {
		a.hasFore, a.foreDepth = true, 1
	}
}

func (a *author) end() {
	if a.lastDepth > 0 {
		a.lastDepth--
	}
	if a.foreDepth > 0 {
		a.foreDepth--
	}
}

func (a *author) text(s string) {
	if a.lastDepth > 0 {
		a.last.WriteString(s)
	}
	if a.foreDepth > 0 {
		a.fore.WriteString(s)
	}
}

// displayName joins fore and last name; an absent part contributes "".
func (a *author) displayName() string {
	return strings.TrimSpace(clean(a.fore.String()) + " " + clean(a.last.String()))
}

// Extract scans an efetch document and returns its authors and attributed
// affiliations, both in document order.
//
// Parsing is lenient. When the document is malformed Extract returns what
// it collected before the fault together with a non-nil error; callers may
// use the partial result.
func Extract(r io.Reader) (types.AuthorAffiliations, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var (
		authors []*author
		open    []*author // Author elements not yet closed, innermost last
		pending []*author // Authors still waiting for a following Affiliation

		affs     []string
		affDepth int
		affBuf   strings.Builder
		parseErr error
	)

	top := func() *author {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErr = fmt.Errorf("%w: %w", ErrMalformed, err)
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if affDepth > 0 {
				affDepth++
			}
			if cur := top(); cur != nil {
				cur.start(name)
			}

			switch name {
			case authorElem:
				a := &author{affiliation: -1}
				authors = append(authors, a)
				open = append(open, a)
				pending = append(pending, a)
			case affiliationElem:
				if affDepth == 0 {
					idx := len(affs)
					affs = append(affs, "")
					for _, a := range pending {
						a.affiliation = idx
					}
					pending = pending[:0]
					affDepth = 1
					affBuf.Reset()
				}
			}

		case xml.EndElement:
			if affDepth > 0 {
				affDepth--
				if affDepth == 0 {
					affs[len(affs)-1] = clean(affBuf.String())
				}
			}
			if cur := top(); cur != nil {
				cur.end()
				if t.Name.Local == authorElem {
					open = open[:len(open)-1]
				}
			}

		case xml.CharData:
			s := string(t)
			if affDepth > 0 {
				affBuf.WriteString(s)
			}
			if cur := top(); cur != nil {
				cur.text(s)
			}
		}
	}

	// A truncated document may leave an Affiliation open.
	if affDepth > 0 {
		affs[len(affs)-1] = clean(affBuf.String())
	}

	out := types.AuthorAffiliations{
		Authors:      make([]string, 0, len(authors)),
		Affiliations: make([]string, 0, len(authors)),
	}
	for _, a := range authors {
		out.Authors = append(out.Authors, a.displayName())
		if a.affiliation >= 0 {
			out.Affiliations = append(out.Affiliations, affs[a.affiliation])
		}
	}
	return out, parseErr
}

// ExtractBytes is Extract over an in-memory document.
func ExtractBytes(doc []byte) (types.AuthorAffiliations, error) {
	return Extract(bytes.NewReader(doc))
}

// clean NFC-normalizes s and trims surrounding whitespace.
func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
