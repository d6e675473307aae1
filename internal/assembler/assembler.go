// Package assembler turns candidate indices into finished articles: it
// fetches each candidate in ascending index order, skips the ones that no
// longer exist, survives transient fetch failures, and re-validates every
// article against the candidate predicate before it reaches the output.
package assembler

import (
	"context"
	"errors"
	"sort"

	"pttgrab/internal/board"
	"pttgrab/internal/logger"
	"pttgrab/internal/models"
	"pttgrab/internal/strategy"
)

// Stats counts what happened to the candidate set during assembly.
type Stats struct {
	Fetched   int `json:"fetched"`
	NotFound  int `json:"not_found"`
	Transient int `json:"transient"`
	Filtered  int `json:"filtered"`
}

// Assembler fetches and validates candidates over a board gateway. The
// gateway is expected to be the throttled one, so every fetch here already
// pays the politeness delay and consumes the retry budget.
type Assembler struct {
	Board board.Board
	Log   *logger.Logger
}

// New creates an assembler over the given gateway.
func New(b board.Board, log *logger.Logger) *Assembler {
	return &Assembler{Board: b, Log: log}
}

// Assemble resolves candidates into articles, ascending by index. Missing
// candidates are skipped; transient failures that exhausted their retries
// degrade the result instead of failing it. Any other error aborts.
func (a *Assembler) Assemble(ctx context.Context, name string, cand strategy.Candidates) ([]*models.Article, Stats, error) {
	indices := dedupe(cand.Indices)
	articles := make([]*models.Article, 0, len(indices))

	var stats Stats

	for _, idx := range indices {
		art, err := a.Board.FetchArticle(ctx, name, idx)
		if err != nil {
			if errors.Is(err, board.ErrNotFound) {
				stats.NotFound++

				if a.Log != nil {
					a.Log.Debug("Candidate vanished before fetch", "board", name, "index", idx)
				}

				continue
			}

			if board.IsTransient(err) {
				stats.Transient++

				if a.Log != nil {
					a.Log.Warn("Dropping unreachable candidate", "board", name, "index", idx, "error", err)
				}

				continue
			}

			return nil, stats, err
		}

		stats.Fetched++

		if cand.Filter != nil && !cand.Filter(art) {
			stats.Filtered++

			continue
		}

		if art.Comments == nil {
			art.Comments = []models.Comment{}
		}

		articles = append(articles, art)
	}

	return articles, stats, nil
}

// dedupe sorts a copy of the candidate indices ascending and drops
// duplicates, leaving the caller's slice untouched.
func dedupe(indices []int) []int {
	out := make([]int, len(indices))
	copy(out, indices)
	sort.Ints(out)

	n := 0
	for i, idx := range out {
		if i > 0 && idx == out[i-1] {
			continue
		}

		out[n] = idx
		n++
	}

	return out[:n]
}
