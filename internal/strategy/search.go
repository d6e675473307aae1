package strategy

import (
	"context"
	"sort"

	"pttgrab/internal/board"
	"pttgrab/internal/config"
	"pttgrab/internal/models"
)

// latestStrategy picks the newest N indices straight off the board. With a
// clock window configured, it turns into a window crawl instead: every
// article posted inside today's window, count ignored.
type latestStrategy struct {
	task config.TaskConfig
	deps Deps
}

func (s *latestStrategy) Resolve(ctx context.Context) (Candidates, error) {
	if s.task.HasWindow() {
		win, inWindow, ok, err := s.deps.bracket(ctx, s.task)
		if err != nil || !ok {
			return Candidates{}, err
		}

		return Candidates{Indices: win.Indices(), Filter: inWindow}, nil
	}

	latest, err := s.deps.Board.LatestIndex(ctx, s.task.Board)
	if err != nil {
		return Candidates{}, err
	}

	if latest < 1 {
		return Candidates{}, nil
	}

	lo := latest - s.task.EffectiveCount() + 1
	if lo < 1 {
		lo = 1
	}

	indices := make([]int, 0, latest-lo+1)
	for idx := lo; idx <= latest; idx++ {
		indices = append(indices, idx)
	}

	return Candidates{Indices: indices}, nil
}

// searchStrategy drives the board's list-page search for title and author
// lookups. Search results are hints only; the match predicate re-checks
// each article after fetching. With a clock window the walk is floored at
// the bracket's lower bound and the results intersected with the bracket,
// since the remote search cannot be time-bounded itself.
type searchStrategy struct {
	task  config.TaskConfig
	deps  Deps
	mode  board.SearchMode
	query string
	match func(*models.Article) bool
}

func (s *searchStrategy) Resolve(ctx context.Context) (Candidates, error) {
	if s.task.HasWindow() {
		win, inWindow, ok, err := s.deps.bracket(ctx, s.task)
		if err != nil || !ok {
			return Candidates{}, err
		}

		opts := board.SearchOptions{
			MinIndex: win.Lo,
			MaxScan:  s.deps.MaxScan,
		}

		found, err := s.deps.Board.Search(ctx, s.task.Board, s.mode, s.query, opts)
		if err != nil {
			return Candidates{}, err
		}

		indices := make([]int, 0, len(found))

		for _, idx := range found {
			if win.Contains(idx) {
				indices = append(indices, idx)
			}
		}

		sort.Ints(indices)

		return Candidates{Indices: indices, Filter: and(inWindow, s.match)}, nil
	}

	opts := board.SearchOptions{
		MaxCount: s.task.EffectiveCount(),
		MaxScan:  s.deps.MaxScan,
	}

	found, err := s.deps.Board.Search(ctx, s.task.Board, s.mode, s.query, opts)
	if err != nil {
		return Candidates{}, err
	}

	sort.Ints(found)

	return Candidates{Indices: found, Filter: s.match}, nil
}

// indexStrategy fetches one explicit index. A missing article surfaces as
// an empty result downstream, not an error.
type indexStrategy struct {
	task config.TaskConfig
}

func (s *indexStrategy) Resolve(ctx context.Context) (Candidates, error) {
	return Candidates{Indices: []int{s.task.Index}}, nil
}
