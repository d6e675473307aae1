// Package pttweb talks to the PTT web frontend. It signs the adult-content
// consent once per session, maps article indices onto paginated list pages,
// and parses list rows and article pages into models.
//
// List pages hold twenty entries each and page one is the oldest, so an
// article index converts to a page number and a slot without any remote
// lookup. The newest page is the only partial one; its pinned announcements
// sit below a separator and stay outside the index space.
package pttweb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pttgrab/internal/board"
	"pttgrab/internal/config"
	"pttgrab/internal/logger"
	"pttgrab/internal/models"
	"pttgrab/pkg/textutil"
)

const (
	entriesPerPage = 20

	// pageCacheSize bounds the list-page cache. Consecutive article
	// indices share a list page, so a handful of pages covers a batch.
	pageCacheSize = 8

	// defaultSearchScan caps a search walk when the config does not.
	defaultSearchScan = 1000

	maxBodyBytes = 4 << 20
)

// ErrUnexpectedStatusCode reports a response status the gateway has no
// mapping for.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

var _ board.Board = (*Client)(nil)

// Client is a web session against one PTT host. It is not safe for
// concurrent use; the runner drives it from a single goroutine.
type Client struct {
	http    *http.Client
	baseURL string
	ua      string
	creds   *config.Credentials
	delay   time.Duration
	log     *logger.Logger

	pages     map[string]cachedPage
	pageOrder []string
}

type cachedPage struct {
	prev    int
	entries []listEntry
}

// Dial opens a session: cookie jar, adult-content consent, then a probe
// request so credential problems surface before any task runs.
func Dial(ctx context.Context, cfg *config.Config, creds *config.Credentials, log *logger.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		http: &http.Client{
			Timeout: cfg.Session.GetTimeout(),
			Jar:     jar,
		},
		baseURL: strings.TrimRight(cfg.Session.BaseURL, "/"),
		ua:      cfg.Session.UserAgent,
		creds:   creds,
		delay:   cfg.Options.GetDelay(),
		log:     log,
		pages:   make(map[string]cachedPage),
	}

	if err := board.Pause(ctx, c.delay); err != nil {
		return nil, err
	}

	if err := c.passAgeGate(ctx); err != nil {
		return nil, err
	}

	if err := board.Pause(ctx, c.delay); err != nil {
		return nil, err
	}

	if err := c.probe(ctx); err != nil {
		return nil, err
	}

	c.log.Debug("Session established", "base_url", c.baseURL)

	return c, nil
}

// LatestIndex reads the newest list page. The index of the newest article
// is the previous-page number times the page size plus the entries above
// the pinned-post separator.
func (c *Client) LatestIndex(ctx context.Context, name string) (int, error) {
	p, _, err := c.listPage(ctx, name, 0)
	if err != nil {
		return 0, err
	}

	return p.prev*entriesPerPage + len(p.entries), nil
}

// FetchArticle resolves an index to its list-page slot and downloads the
// article behind the slot's link. A slot without a link is a deleted
// article and reports board.ErrNotFound, as does an index past the end.
func (c *Client) FetchArticle(ctx context.Context, name string, index int) (*models.Article, error) {
	if index < 1 {
		return nil, fmt.Errorf("%w: index %d", board.ErrNotFound, index)
	}

	page := (index-1)/entriesPerPage + 1
	slot := (index - 1) % entriesPerPage

	p, fresh, err := c.listPage(ctx, name, page)
	if err != nil {
		return nil, err
	}

	if slot >= len(p.entries) {
		return nil, fmt.Errorf("%w: %s has no article %d", board.ErrNotFound, name, index)
	}

	entry := p.entries[slot]
	if entry.Href == "" {
		return nil, fmt.Errorf("%w: %s article %d was deleted", board.ErrNotFound, name, index)
	}

	if fresh {
		if err := board.Pause(ctx, c.delay); err != nil {
			return nil, err
		}
	}

	doc, err := c.getDoc(ctx, "article", c.baseURL+entry.Href)
	if err != nil {
		return nil, err
	}

	art := &models.Article{
		Board: name,
		AID:   aidFromHref(entry.Href),
		Index: index,
	}

	parseArticle(doc, art)

	if art.Title == "" {
		art.Title = entry.Title
	}

	return art, nil
}

// Search walks list pages from the newest backwards and matches rows on
// the client side, because the site's own search results carry no index
// numbers. Matches come back in discovery order, newest first.
func (c *Client) Search(ctx context.Context, name string, mode board.SearchMode, query string, opts board.SearchOptions) ([]int, error) {
	p, _, err := c.listPage(ctx, name, 0)
	if err != nil {
		return nil, err
	}

	newestPage := p.prev + 1

	minIndex := opts.MinIndex
	if minIndex < 1 {
		minIndex = 1
	}

	budget := opts.MaxScan
	if budget < 1 {
		budget = defaultSearchScan
	}

	var (
		matches []int
		scanned int
	)

	for page := newestPage; page >= 1; page-- {
		entries := p.entries

		if page != newestPage {
			if !c.hasPage(name, page) {
				if err := board.Pause(ctx, c.delay); err != nil {
					return nil, err
				}
			}

			cp, _, err := c.listPage(ctx, name, page)
			if err != nil {
				return nil, err
			}

			entries = cp.entries
		}

		for slot := len(entries) - 1; slot >= 0; slot-- {
			idx := (page-1)*entriesPerPage + slot + 1
			if idx < minIndex {
				return matches, nil
			}

			if scanned >= budget {
				c.log.Debug("Search scan budget exhausted", "board", name, "scanned", scanned)

				return matches, nil
			}

			scanned++

			e := entries[slot]

			var hit bool

			switch mode {
			case board.SearchTitle:
				hit = textutil.ContainsFold(e.Title, query)
			case board.SearchAuthor:
				hit = e.Author == query
			}

			if !hit {
				continue
			}

			matches = append(matches, idx)
			if opts.MaxCount > 0 && len(matches) >= opts.MaxCount {
				return matches, nil
			}
		}
	}

	return matches, nil
}

// passAgeGate posts the consent form so the over18 cookie lands in the
// jar. Mirrors without the gate answer 404, which is fine.
func (c *Client) passAgeGate(ctx context.Context) error {
	form := url.Values{
		"from": {"/bbs/index.html"},
		"yes":  {"yes"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask/over18", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create consent request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return board.Transient("consent", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}

	return classify("consent", resp.StatusCode)
}

// probe fetches the board directory once. Hosts that hide the directory
// answer 404; anything auth-shaped aborts the session.
func (c *Client) probe(ctx context.Context) error {
	_, err := c.getDoc(ctx, "probe", c.baseURL+"/bbs/index.html")
	if errors.Is(err, board.ErrNotFound) {
		return nil
	}

	return err
}

func (c *Client) pageURL(name string, page int) string {
	if page < 1 {
		return fmt.Sprintf("%s/bbs/%s/index.html", c.baseURL, name)
	}

	return fmt.Sprintf("%s/bbs/%s/index%d.html", c.baseURL, name, page)
}

func pageKey(name string, page int) string {
	return fmt.Sprintf("%s/%d", name, page)
}

func (c *Client) hasPage(name string, page int) bool {
	_, ok := c.pages[pageKey(name, page)]

	return ok
}

// listPage returns one parsed list page. Page 0 means the newest page; it
// always hits the network because the board keeps moving, and the result
// is cached under its real page number. fresh reports whether a request
// went out.
func (c *Client) listPage(ctx context.Context, name string, page int) (cachedPage, bool, error) {
	key := pageKey(name, page)

	if page > 0 {
		if p, ok := c.pages[key]; ok {
			return p, false, nil
		}
	}

	doc, err := c.getDoc(ctx, "list", c.pageURL(name, page))
	if err != nil {
		return cachedPage{}, true, err
	}

	prev, entries := parseListPage(doc)
	p := cachedPage{prev: prev, entries: entries}

	if page < 1 {
		key = pageKey(name, prev+1)
	}

	c.cachePage(key, p)

	return p, true, nil
}

func (c *Client) cachePage(key string, p cachedPage) {
	if _, ok := c.pages[key]; !ok {
		c.pageOrder = append(c.pageOrder, key)

		if len(c.pageOrder) > pageCacheSize {
			oldest := c.pageOrder[0]
			c.pageOrder = c.pageOrder[1:]
			delete(c.pages, oldest)
		}
	}

	c.pages[key] = p
}

func (c *Client) getDoc(ctx context.Context, op, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}

	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, board.Transient(op, err)
	}
	defer resp.Body.Close()

	if err := classify(op, resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s page: %w", op, err)
	}

	return doc, nil
}

func (c *Client) decorate(req *http.Request) {
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	if c.creds != nil && c.creds.Account != "" {
		req.SetBasicAuth(c.creds.Account, c.creds.Password)
	}
}

// classify maps a response status onto the board error taxonomy: 404 is
// a missing page, 401/403 end the session, timeouts and server errors
// are retryable, everything else is a hard failure.
func classify(op string, status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", board.ErrNotFound, op)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d on %s", board.ErrAuth, status, op)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return board.Transient(op, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, status))
	default:
		return fmt.Errorf("%w: %d on %s", ErrUnexpectedStatusCode, status, op)
	}
}
