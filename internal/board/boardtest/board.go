// Package boardtest provides an in-memory scriptable Board used across the
// test suite in place of a live gateway.
package boardtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pttgrab/internal/board"
	"pttgrab/internal/models"
	"pttgrab/pkg/textutil"
)

// Call records one remote operation served by the fixture.
type Call struct {
	Op    string
	Index int
}

// Board is an in-memory bulletin board with injectable failures.
type Board struct {
	Name      string
	Articles  map[int]*models.Article
	Latest    int
	Missing   map[int]bool
	Transient map[int]int
	FetchErr  map[int]error
	LatestErr error
	SearchErr error
	Calls     []Call
}

// New creates an empty fixture for the named board.
func New(name string) *Board {
	return &Board{
		Name:      name,
		Articles:  make(map[int]*models.Article),
		Missing:   make(map[int]bool),
		Transient: make(map[int]int),
		FetchErr:  make(map[int]error),
	}
}

// Generate creates a fixture with n articles at indices 1..n. Index 1 is
// posted at start and each later index is spaced by spacing, giving a
// strictly increasing synthetic timeline.
func Generate(name string, n int, start time.Time, spacing time.Duration) *Board {
	b := New(name)

	for i := 1; i <= n; i++ {
		posted := start.Add(time.Duration(i-1) * spacing)

		b.Put(i, &models.Article{
			Author:  fmt.Sprintf("poster%d (Poster %d)", i%5, i%5),
			Title:   fmt.Sprintf("[閒聊] fixture post %d", i),
			Content: fmt.Sprintf("fixture content %d", i),
			Date:    models.FormatPostTime(posted),
		})
	}

	return b
}

// Put stores an article at index, filling board, index and aid defaults and
// raising Latest when needed.
func (b *Board) Put(index int, art *models.Article) *models.Article {
	art.Board = b.Name
	art.Index = index

	if art.AID == "" {
		art.AID = fmt.Sprintf("M.%d.A.%03X", 1700000000+index, index)
	}

	if art.Comments == nil {
		art.Comments = []models.Comment{}
	}

	b.Articles[index] = art

	if index > b.Latest {
		b.Latest = index
	}

	return art
}

// Add appends an article at Latest+1.
func (b *Board) Add(posted time.Time, author, title, content string) *models.Article {
	return b.Put(b.Latest+1, &models.Article{
		Author:  author,
		Title:   title,
		Content: content,
		Date:    models.FormatPostTime(posted),
	})
}

// AddComment appends a comment to the article at index.
func (b *Board) AddComment(index int, kind models.CommentKind, author, content string, at time.Time) {
	art, ok := b.Articles[index]
	if !ok {
		panic(fmt.Sprintf("boardtest: no article at index %d", index))
	}

	art.Comments = append(art.Comments, models.Comment{
		Kind:    kind,
		Author:  author,
		Content: content,
		Time:    at.Format(models.CommentTimeLayout),
	})
}

// Delete marks an index as answering NotFound while keeping it in the index
// space.
func (b *Board) Delete(index int) {
	b.Missing[index] = true
}

// FailTransiently arranges n synthetic transient failures for fetches of
// index before the fixture answers normally again.
func (b *Board) FailTransiently(index, n int) {
	b.Transient[index] = n
}

// FetchedIndices returns the article indices fetched so far, in call order.
func (b *Board) FetchedIndices() []int {
	var indices []int

	for _, c := range b.Calls {
		if c.Op == "fetch" {
			indices = append(indices, c.Index)
		}
	}

	return indices
}

// FetchCount returns how many article fetches the fixture served, including
// failed ones.
func (b *Board) FetchCount() int {
	return len(b.FetchedIndices())
}

// LatestIndex implements board.Board.
func (b *Board) LatestIndex(ctx context.Context, name string) (int, error) {
	b.Calls = append(b.Calls, Call{Op: "latest-index"})

	if b.LatestErr != nil {
		return 0, b.LatestErr
	}

	return b.Latest, nil
}

// FetchArticle implements board.Board.
func (b *Board) FetchArticle(ctx context.Context, name string, index int) (*models.Article, error) {
	b.Calls = append(b.Calls, Call{Op: "fetch", Index: index})

	if err, ok := b.FetchErr[index]; ok {
		return nil, err
	}

	if b.Transient[index] > 0 {
		b.Transient[index]--

		return nil, board.Transient("fetch", errors.New("synthetic timeout"))
	}

	art, ok := b.Articles[index]
	if !ok || b.Missing[index] {
		return nil, fmt.Errorf("%w: %s/%d", board.ErrNotFound, name, index)
	}

	return art, nil
}

// Search implements board.Board. Titles match by substring, authors by
// account equality, walking newest first like the web gateway.
func (b *Board) Search(ctx context.Context, name string, mode board.SearchMode, query string, opts board.SearchOptions) ([]int, error) {
	b.Calls = append(b.Calls, Call{Op: "search"})

	if b.SearchErr != nil {
		return nil, b.SearchErr
	}

	low := opts.MinIndex
	if low < 1 {
		low = 1
	}

	var (
		matches []int
		scanned int
	)

	for idx := b.Latest; idx >= low; idx-- {
		if opts.MaxScan > 0 && scanned >= opts.MaxScan {
			break
		}

		scanned++

		art, ok := b.Articles[idx]
		if !ok || b.Missing[idx] {
			continue
		}

		var hit bool

		switch mode {
		case board.SearchTitle:
			hit = strings.Contains(art.Title, query)
		case board.SearchAuthor:
			hit = textutil.Account(art.Author) == query
		}

		if !hit {
			continue
		}

		matches = append(matches, idx)

		if opts.MaxCount > 0 && len(matches) >= opts.MaxCount {
			break
		}
	}

	return matches, nil
}
