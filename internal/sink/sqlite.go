package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	board      TEXT NOT NULL,
	aid        TEXT NOT NULL,
	idx        INTEGER NOT NULL,
	author     TEXT NOT NULL,
	date       TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	ip         TEXT,
	run_id     TEXT NOT NULL,
	fetched_at TIMESTAMP NOT NULL,
	PRIMARY KEY (board, aid)
);

CREATE TABLE IF NOT EXISTS comments (
	board   TEXT NOT NULL,
	aid     TEXT NOT NULL,
	seq     INTEGER NOT NULL,
	kind    TEXT NOT NULL,
	author  TEXT NOT NULL,
	content TEXT NOT NULL,
	time    TEXT NOT NULL,
	PRIMARY KEY (board, aid, seq)
);

CREATE INDEX IF NOT EXISTS idx_articles_board_idx ON articles(board, idx);
`

// SQLite stores articles and their comments in two tables keyed by the
// stable article id, so re-crawling the same articles updates in place.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database and ensures the schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Write upserts every article in one transaction. Comments are replaced
// wholesale per article since their count only grows between crawls.
func (s *SQLite) Write(ctx context.Context, batch *Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	for _, a := range batch.Articles {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO articles (board, aid, idx, author, date, title, content, ip, run_id, fetched_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.Board, a.AID, a.Index, a.Author, a.Date, a.Title, a.Content, a.IP, batch.RunID, batch.FetchedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to store article %s: %w", a.AID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE board = ? AND aid = ?`, a.Board, a.AID); err != nil {
			return fmt.Errorf("failed to clear comments for %s: %w", a.AID, err)
		}

		for seq, c := range a.Comments {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO comments (board, aid, seq, kind, author, content, time) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				a.Board, a.AID, seq, string(c.Kind), c.Author, c.Content, c.Time,
			)
			if err != nil {
				return fmt.Errorf("failed to store comment %d of %s: %w", seq, a.AID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
