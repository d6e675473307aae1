// Package strategy resolves task configurations into candidate article
// indices. Each task variant has its own resolution path (direct index
// math, server-side search, window bracketing, or backward scans), but all
// of them emit the same shape: indices worth fetching plus a predicate the
// fetched article must still satisfy.
package strategy

import (
	"context"
	"fmt"

	"pttgrab/internal/board"
	"pttgrab/internal/config"
	"pttgrab/internal/locator"
	"pttgrab/internal/logger"
	"pttgrab/internal/models"
	"pttgrab/pkg/textutil"
)

// Candidates is a resolution result. Indices are ascending and untrusted:
// search results and coarse brackets both overshoot, so Filter is
// re-checked against every article as fetched. A nil Filter accepts
// everything.
type Candidates struct {
	Indices []int
	Filter  func(*models.Article) bool
}

// Strategy resolves one task into candidates.
type Strategy interface {
	Resolve(ctx context.Context) (Candidates, error)
}

// Deps carries the collaborators shared by all variants.
type Deps struct {
	Board   board.Board
	Locator *locator.Locator
	Log     *logger.Logger
	MaxScan int
}

// ForTask maps a validated task onto its variant.
func ForTask(task config.TaskConfig, deps Deps) (Strategy, error) {
	switch task.Type {
	case config.TaskLatest:
		return &latestStrategy{task: task, deps: deps}, nil
	case config.TaskTitleSearch:
		return &searchStrategy{
			task:  task,
			deps:  deps,
			mode:  board.SearchTitle,
			query: task.Keyword,
			match: titleMatch(task.Keyword),
		}, nil
	case config.TaskAuthorSearch:
		return &searchStrategy{
			task:  task,
			deps:  deps,
			mode:  board.SearchAuthor,
			query: task.Author,
			match: authorMatch(task.Author),
		}, nil
	case config.TaskCommentSearch:
		return &scanStrategy{task: task, deps: deps, match: contentOrCommentMatch(task.Keyword)}, nil
	case config.TaskCommentAuthor:
		return &scanStrategy{task: task, deps: deps, match: commentAuthorMatch(task.Author)}, nil
	case config.TaskByIndex:
		return &indexStrategy{task: task}, nil
	case config.TaskByDateRange:
		return &dateRangeStrategy{task: task, deps: deps}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownTaskType, task.Type)
	}
}

// bracket resolves the task's clock window into an index bracket plus the
// in-window predicate. ok is false when the window cannot match anything.
func (d Deps) bracket(ctx context.Context, task config.TaskConfig) (locator.Window, func(*models.Article) bool, bool, error) {
	start, end, err := task.Window()
	if err != nil {
		return locator.Window{}, nil, false, err
	}

	win, ok, err := d.Locator.Locate(ctx, task.Board, start, end)
	if err != nil || !ok {
		return locator.Window{}, nil, false, err
	}

	return win, locator.InWindow(d.Locator.Today(), start, end), true, nil
}

func titleMatch(keyword string) func(*models.Article) bool {
	return func(a *models.Article) bool {
		return textutil.ContainsFold(a.Title, keyword)
	}
}

func authorMatch(account string) func(*models.Article) bool {
	return func(a *models.Article) bool {
		return textutil.Account(a.Author) == account
	}
}

func contentOrCommentMatch(keyword string) func(*models.Article) bool {
	return func(a *models.Article) bool {
		if textutil.ContainsFold(a.Content, keyword) {
			return true
		}

		for _, c := range a.Comments {
			if textutil.ContainsFold(c.Content, keyword) {
				return true
			}
		}

		return false
	}
}

func commentAuthorMatch(account string) func(*models.Article) bool {
	return func(a *models.Article) bool {
		return a.HasCommentBy(account)
	}
}

func and(a, b func(*models.Article) bool) func(*models.Article) bool {
	return func(art *models.Article) bool {
		return a(art) && b(art)
	}
}
