package strategy

import (
	"context"
	"errors"
	"sort"

	"pttgrab/internal/board"
	"pttgrab/internal/config"
	"pttgrab/internal/models"
)

// belowTolerance is how many consecutive articles older than a date range
// the backward scan absorbs before concluding the range is exhausted.
// Deleted-and-reposted threads put the occasional old article above newer
// ones, so the first undershoot is not proof.
const belowTolerance = 3

// scanBack walks articles newest-first, feeding each to visit. Missing
// indices are skipped, as are transient failures that already exhausted
// their retries. The walk ends at index 1, after limit fetch attempts, or
// when visit says stop. Kept indices come back ascending.
func (d Deps) scanBack(ctx context.Context, name string, visit func(idx int, a *models.Article) (keep, stop bool)) ([]int, error) {
	latest, err := d.Board.LatestIndex(ctx, name)
	if err != nil {
		return nil, err
	}

	limit := d.MaxScan
	if limit < 1 {
		limit = 1000
	}

	kept := make([]int, 0)
	attempts := 0

	for idx := latest; idx >= 1 && attempts < limit; idx-- {
		attempts++

		a, err := d.Board.FetchArticle(ctx, name, idx)
		if err != nil {
			if errors.Is(err, board.ErrNotFound) {
				continue
			}

			if board.IsTransient(err) {
				if d.Log != nil {
					d.Log.Warn("Skipping unreachable article during scan", "board", name, "index", idx, "error", err)
				}

				continue
			}

			return nil, err
		}

		keep, stop := visit(idx, a)
		if keep {
			kept = append(kept, idx)
		}

		if stop {
			break
		}
	}

	sort.Ints(kept)

	return kept, nil
}

// scanStrategy serves the comment-based lookups, which have no server-side
// search to lean on: it reads articles newest-first until enough matches
// accumulate or the scan budget runs out. With a clock window it reduces
// to the locator bracket plus the match predicate.
type scanStrategy struct {
	task  config.TaskConfig
	deps  Deps
	match func(*models.Article) bool
}

func (s *scanStrategy) Resolve(ctx context.Context) (Candidates, error) {
	if s.task.HasWindow() {
		win, inWindow, ok, err := s.deps.bracket(ctx, s.task)
		if err != nil || !ok {
			return Candidates{}, err
		}

		return Candidates{Indices: win.Indices(), Filter: and(inWindow, s.match)}, nil
	}

	want := s.task.EffectiveCount()
	matched := 0

	indices, err := s.deps.scanBack(ctx, s.task.Board, func(_ int, a *models.Article) (bool, bool) {
		if !s.match(a) {
			return false, false
		}

		matched++

		return true, matched >= want
	})
	if err != nil {
		return Candidates{}, err
	}

	return Candidates{Indices: indices, Filter: s.match}, nil
}

// dateRangeStrategy collects every article posted inside an inclusive day
// range by scanning backward from the newest index.
type dateRangeStrategy struct {
	task config.TaskConfig
	deps Deps
}

func (s *dateRangeStrategy) Resolve(ctx context.Context) (Candidates, error) {
	startDay, endDay, err := s.task.DateRange()
	if err != nil {
		return Candidates{}, err
	}

	inRange := func(a *models.Article) bool {
		t, terr := a.Time()
		if terr != nil {
			return false
		}

		day := models.DayOf(t)

		return !day.Before(startDay) && !day.After(endDay)
	}

	below := 0

	indices, err := s.deps.scanBack(ctx, s.task.Board, func(_ int, a *models.Article) (bool, bool) {
		t, terr := a.Time()
		if terr != nil {
			// Unreadable date: skip without disturbing the streak.
			return false, false
		}

		day := models.DayOf(t)

		if day.After(endDay) {
			below = 0

			return false, false
		}

		if day.Before(startDay) {
			below++

			return false, below >= belowTolerance
		}

		below = 0

		return true, false
	})
	if err != nil {
		return Candidates{}, err
	}

	return Candidates{Indices: indices, Filter: inRange}, nil
}
