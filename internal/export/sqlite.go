// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pubmed-filter/pkg/types"
)

// TableName is the SQLite table holding exported papers.
const TableName = "filtered_papers"

func writeSQLite(path string, rows []types.FilteredPaper) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`DROP TABLE IF EXISTS ` + TableName,
		`CREATE TABLE ` + TableName + ` (
			paper_id TEXT PRIMARY KEY,
			title TEXT,
			publication_date TEXT,
			authors TEXT,
			affiliations TEXT,
			matched_keywords TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+TableName+`
		(paper_id, title, publication_date, authors, affiliations, matched_keywords)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Title, r.PublicationDate, r.Authors, r.Affiliations,
			strings.Join(r.MatchedKeywords, ","),
		); err != nil {
			return fmt.Errorf("inserting paper %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}
