// Package locator brackets same-day clock windows over a board's index
// space using coarse backward sampling, so a window can be resolved with a
// handful of single-article probes instead of a full scan.
package locator

import (
	"context"
	"errors"
	"time"

	"pttgrab/internal/board"
	"pttgrab/internal/logger"
	"pttgrab/internal/models"
)

const (
	// maxProbes caps the sampling pass on very large or very quiet boards.
	maxProbes = 1000

	// probeSlack is how many neighbors a probe slides down when the sampled
	// index is deleted or unreadable.
	probeSlack = 5
)

// Window is a resolved index bracket, inclusive on both ends. Articles
// inside it still need per-article time filtering; the bracket only bounds
// where the window can live.
type Window struct {
	Lo int
	Hi int
}

// Span returns the number of indices inside the bracket.
func (w Window) Span() int {
	return w.Hi - w.Lo + 1
}

// Contains reports whether idx falls inside the bracket.
func (w Window) Contains(idx int) bool {
	return idx >= w.Lo && idx <= w.Hi
}

// Indices enumerates the bracket in ascending order.
func (w Window) Indices() []int {
	indices := make([]int, 0, w.Span())
	for idx := w.Lo; idx <= w.Hi; idx++ {
		indices = append(indices, idx)
	}

	return indices
}

// Locator finds the index bracket for a clock window on the current date.
type Locator struct {
	Board board.Board
	Log   *logger.Logger
	Step  int

	// Now supplies the current time; tests pin it. Nil means time.Now.
	Now func() time.Time
}

// New creates a locator sampling at the given stride.
func New(b board.Board, step int, log *logger.Logger) *Locator {
	if step < 1 {
		step = 100
	}

	return &Locator{
		Board: b,
		Log:   log,
		Step:  step,
	}
}

// Today returns midnight of the current date, the day every clock window is
// anchored to.
func (l *Locator) Today() time.Time {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}

	return models.DayOf(now)
}

// InWindow builds a predicate matching articles posted on day with a clock
// time in [start, end). Unparseable dates never match.
func InWindow(day time.Time, start, end models.Clock) func(*models.Article) bool {
	winStart := start.OnDay(day)
	winEnd := end.OnDay(day)

	return func(a *models.Article) bool {
		t, err := a.Time()
		if err != nil {
			return false
		}

		return !t.Before(winStart) && t.Before(winEnd)
	}
}

// Locate brackets the indices whose articles can fall inside [start, end)
// on the current date. It probes single articles at latest, latest-step,
// latest-2*step, ... until a probe's time precedes today@start (overshoot)
// or index 1 is reached. A probe on an earlier day is automatically an
// overshoot. Probes at or after today@end pull the upper bound down, with
// one stride of slack kept for out-of-order posts.
//
// ok is false when the window cannot hold any article: inverted bounds or
// an empty board. The bracket is linear-refinement territory; timestamps
// are not monotonic enough to bisect safely across a day boundary.
func (l *Locator) Locate(ctx context.Context, name string, start, end models.Clock) (Window, bool, error) {
	if end <= start {
		return Window{}, false, nil
	}

	latest, err := l.Board.LatestIndex(ctx, name)
	if err != nil {
		return Window{}, false, err
	}

	if latest < 1 {
		return Window{}, false, nil
	}

	day := l.Today()
	winStart := start.OnDay(day)
	winEnd := end.OnDay(day)

	lo := 1
	hi := latest
	found := false
	probes := 0

	for idx := latest; idx >= 1 && probes < maxProbes; idx -= l.Step {
		probes++

		t, ok, perr := l.probe(ctx, name, idx)
		if perr != nil {
			return Window{}, false, perr
		}

		if !ok {
			continue
		}

		if t.Before(winStart) {
			lo = idx
			found = true

			break
		}

		if !t.Before(winEnd) {
			hi = idx
		}
	}

	if !found {
		lo = 1
	}

	// Slack above the shrunken upper bound for out-of-order anomalies.
	if hi+l.Step <= latest {
		hi += l.Step
	} else {
		hi = latest
	}

	if l.Log != nil {
		l.Log.Debug("Resolved time window bracket",
			"board", name,
			"window", start.String()+"-"+end.String(),
			"lo", lo,
			"hi", hi,
			"probes", probes,
		)
	}

	return Window{Lo: lo, Hi: hi}, true, nil
}

// probe fetches the posting time at idx, sliding down a few neighbors when
// the sampled slot is deleted or its date cannot be parsed. ok is false
// when no readable sample exists near idx; transient failures that survived
// the retry budget also skip the sample point.
func (l *Locator) probe(ctx context.Context, name string, idx int) (time.Time, bool, error) {
	for off := 0; off < probeSlack && idx-off >= 1; off++ {
		art, err := l.Board.FetchArticle(ctx, name, idx-off)
		if err != nil {
			if errors.Is(err, board.ErrNotFound) {
				continue
			}

			if board.IsTransient(err) {
				if l.Log != nil {
					l.Log.Warn("Skipping unreachable sample point", "board", name, "index", idx-off, "error", err)
				}

				return time.Time{}, false, nil
			}

			return time.Time{}, false, err
		}

		t, terr := art.Time()
		if terr != nil {
			if l.Log != nil {
				l.Log.Warn("Sampled article has unparseable date", "board", name, "index", idx-off, "error", terr)
			}

			continue
		}

		return t, true, nil
	}

	return time.Time{}, false, nil
}
