// Package board defines the session-bound contract to the remote bulletin
// board and the politeness wrapper every remote call goes through.
package board

import (
	"context"

	"pttgrab/internal/models"
)

// SearchMode selects which field the board's native search matches.
type SearchMode string

// Native search modes.
const (
	SearchTitle  SearchMode = "title"
	SearchAuthor SearchMode = "author"
)

// SearchOptions bound a native search. MaxCount stops the search after that
// many matches (0 means the gateway default). MinIndex stops the backward
// walk once indices drop below it (0 means walk toward index 1). MaxScan
// caps how many entries the walk examines (0 means the gateway default).
type SearchOptions struct {
	MaxCount int
	MinIndex int
	MaxScan  int
}

// Board is a session-bound view of the remote service. Implementations are
// not safe for concurrent use; the crawler accesses the session strictly
// sequentially.
type Board interface {
	// LatestIndex returns the highest article index on the board.
	LatestIndex(ctx context.Context, board string) (int, error)

	// FetchArticle retrieves one article with its comment thread. Deleted
	// or delisted indices yield ErrNotFound.
	FetchArticle(ctx context.Context, board string, index int) (*models.Article, error)

	// Search returns indices of matching articles, newest first.
	Search(ctx context.Context, board string, mode SearchMode, query string, opts SearchOptions) ([]int, error)
}
