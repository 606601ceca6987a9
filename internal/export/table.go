// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/pdiddy/pubmed-filter/pkg/types"
)

const (
	idWidth      = 10
	titleWidth   = 50
	dateWidth    = 12
	authorsWidth = 24
)

// FormatTable writes a preview of rows to w. Columns are padded and
// truncated by display width so CJK titles stay aligned.
func FormatTable(rows []types.FilteredPaper, w io.Writer) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No papers found with non-academic authors.")
		return
	}

	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
		cell("Paper ID", idWidth),
		cell("Title", titleWidth),
		cell("Date", dateWidth),
		cell("Authors", authorsWidth),
		"Matched")
	fmt.Fprintln(w, strings.Repeat("-", idWidth+titleWidth+dateWidth+authorsWidth+16))

	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
			cell(r.ID, idWidth),
			cell(r.Title, titleWidth),
			cell(r.PublicationDate, dateWidth),
			cell(firstAuthor(r.Authors), authorsWidth),
			strings.Join(r.MatchedKeywords, ","))
	}

	fmt.Fprintf(w, "\n%d papers\n", len(rows))
}

// cell truncates s to width display columns and pads it to exactly width.
func cell(s string, width int) string {
	s = runewidth.Truncate(s, width, "...")
	return runewidth.FillRight(s, width)
}

func firstAuthor(joined string) string {
	authors := strings.Split(joined, types.ListSeparator)
	switch {
	case joined == "":
		return ""
	case len(authors) == 1:
		return authors[0]
	default:
		return authors[0] + " et al."
	}
}
