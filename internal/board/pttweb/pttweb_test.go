package pttweb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"pttgrab/internal/board"
	"pttgrab/internal/config"
	"pttgrab/internal/logger"
	"pttgrab/internal/models"
)

const (
	fixtureBoard = "tb"
	fixtureSize  = 45
	fixturePages = 3
	deletedIndex = 43
)

func articleTime(i int) time.Time {
	base := time.Date(2025, 10, 4, 8, 0, 0, 0, time.Local)

	return base.Add(time.Duration(i) * 5 * time.Minute)
}

func articleAID(i int) string {
	return fmt.Sprintf("M.%d.A.%03X", 1700000000+i*100, i)
}

func articleTitle(i int) string {
	switch i {
	case 12, 35, 44:
		return fmt.Sprintf("[情報] 地震 速報 %d", i)
	}

	return fmt.Sprintf("[閒聊] 測試文章 %d", i)
}

func articleAuthor(i int) string {
	switch i {
	case 5, 25, 42:
		return "bob"
	}

	return fmt.Sprintf("user%02d", i%7)
}

// fixture serves a 45-article board named "tb" across three list pages.
// The newest page carries five live rows plus a pinned announcement below
// the separator, and index 43 is a deleted row without a link.
type fixture struct {
	srv *httptest.Server

	mu            sync.Mutex
	hits          map[string]int
	consents      int
	authUser      string
	articleStatus map[int]int

	aidIndex map[string]int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		hits:          make(map[string]int),
		articleStatus: make(map[int]int),
		aidIndex:      make(map[string]int),
	}

	for i := 1; i <= fixtureSize; i++ {
		f.aidIndex[articleAID(i)] = i
	}

	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fixture) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++

	if user, _, ok := r.BasicAuth(); ok {
		f.authUser = user
	}
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/ask/over18":
		f.mu.Lock()
		f.consents++
		f.mu.Unlock()

		if r.FormValue("yes") != "yes" {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		http.SetCookie(w, &http.Cookie{Name: "over18", Value: "1"})
	case r.URL.Path == "/bbs/index.html":
		io.WriteString(w, `<html><body class="bbs-screen">boards</body></html>`)
	case strings.HasPrefix(r.URL.Path, "/bbs/"+fixtureBoard+"/index"):
		page := fixturePages

		if m := pagePattern.FindStringSubmatch(r.URL.Path); m != nil {
			page, _ = strconv.Atoi(m[1])
		}

		if page < 1 || page > fixturePages {
			http.NotFound(w, r)

			return
		}

		io.WriteString(w, renderListPage(page))
	case strings.HasPrefix(r.URL.Path, "/bbs/"+fixtureBoard+"/M."):
		aid := strings.TrimSuffix(path.Base(r.URL.Path), ".html")

		idx, ok := f.aidIndex[aid]
		if !ok {
			http.NotFound(w, r)

			return
		}

		f.mu.Lock()
		status := f.articleStatus[idx]
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)

			return
		}

		io.WriteString(w, renderArticlePage(idx))
	default:
		http.NotFound(w, r)
	}
}

func (f *fixture) pageHits(p string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.hits[p]
}

func (f *fixture) consentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.consents
}

func (f *fixture) lastAuthUser() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.authUser
}

func (f *fixture) failArticle(idx, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.articleStatus[idx] = status
}

func renderListPage(page int) string {
	var b strings.Builder

	b.WriteString(`<html><body><div class="btn-group btn-group-paging">`)

	if page > 1 {
		fmt.Fprintf(&b, `<a class="btn wide" href="/bbs/%s/index%d.html">‹ 上頁</a>`, fixtureBoard, page-1)
	} else {
		b.WriteString(`<a class="btn wide disabled">‹ 上頁</a>`)
	}

	b.WriteString(`</div><div class="r-list-container action-bar-margin bbs-screen">`)

	lo := (page-1)*entriesPerPage + 1

	hi := page * entriesPerPage
	if hi > fixtureSize {
		hi = fixtureSize
	}

	for i := lo; i <= hi; i++ {
		if i == deletedIndex {
			b.WriteString(`<div class="r-ent"><div class="title"> (本文已被刪除) [bob] </div><div class="meta"><div class="author">-</div><div class="date">10/04</div></div></div>`)

			continue
		}

		fmt.Fprintf(&b,
			`<div class="r-ent"><div class="title"><a href="/bbs/%s/%s.html">%s</a></div><div class="meta"><div class="author">%s</div><div class="date">10/04</div></div></div>`,
			fixtureBoard, articleAID(i), articleTitle(i), articleAuthor(i))
	}

	if page == fixturePages {
		b.WriteString(`<div class="r-list-sep"></div>`)
		b.WriteString(`<div class="r-ent"><div class="title"><a href="/bbs/tb/M.900.A.000.html">[公告] 板規</a></div><div class="meta"><div class="author">mod</div><div class="date">1/01</div></div></div>`)
	}

	b.WriteString(`</div></body></html>`)

	return b.String()
}

func renderArticlePage(i int) string {
	var b strings.Builder

	b.WriteString(`<html><body><div id="main-content" class="bbs-screen bbs-content">`)
	fmt.Fprintf(&b, `<div class="article-metaline"><span class="article-meta-tag">作者</span><span class="article-meta-value">%s (測試帳號)</span></div>`, articleAuthor(i))
	fmt.Fprintf(&b, `<div class="article-metaline-right"><span class="article-meta-tag">看板</span><span class="article-meta-value">%s</span></div>`, fixtureBoard)
	fmt.Fprintf(&b, `<div class="article-metaline"><span class="article-meta-tag">標題</span><span class="article-meta-value">%s</span></div>`, articleTitle(i))
	fmt.Fprintf(&b, `<div class="article-metaline"><span class="article-meta-tag">時間</span><span class="article-meta-value">%s</span></div>`, models.FormatPostTime(articleTime(i)))
	fmt.Fprintf(&b, "\n這是第 %d 篇測試內文。\n\n--\n", i)
	fmt.Fprintf(&b, `<span class="f2">※ 發信站: 批踢踢實業坊(ptt.cc), 來自: 118.160.88.%d (臺灣)</span>`, i%250)
	fmt.Fprintf(&b, `<span class="f2">※ 文章網址: <a href="#">https://www.ptt.cc/bbs/%s/%s.html</a></span>`, fixtureBoard, articleAID(i))

	if i == fixtureSize {
		b.WriteString(`<div class="push"><span class="hl push-tag">推 </span><span class="f3 hl push-userid">alice</span><span class="f3 push-content">: 推一個</span><span class="push-ipdatetime"> 36.230.1.1 10/04 09:10` + "\n</span></div>")
		b.WriteString(`<div class="push"><span class="f1 hl push-tag">噓 </span><span class="f3 hl push-userid">bob</span><span class="f3 push-content">: 不推</span><span class="push-ipdatetime"> 10/04 09:12` + "\n</span></div>")
		b.WriteString(`<div class="push"><span class="push-tag">→ </span><span class="f3 hl push-userid">carol</span><span class="f3 push-content">: 路過看看</span><span class="push-ipdatetime"> 10/04 09:15` + "\n</span></div>")
	}

	b.WriteString(`</div></body></html>`)

	return b.String()
}

func testClient(t *testing.T, baseURL string, creds *config.Credentials) *Client {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Session.BaseURL = baseURL
	cfg.Options.DelayBetweenRequests = 0

	c, err := Dial(context.Background(), cfg, creds, logger.NewLoggerTo(io.Discard, "error"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	return c
}

func TestDial_SignsConsentOnce(t *testing.T) {
	f := newFixture(t)

	testClient(t, f.srv.URL, nil)

	if got := f.consentCount(); got != 1 {
		t.Errorf("Expected one consent post, got %d", got)
	}

	if got := f.pageHits("/bbs/index.html"); got != 1 {
		t.Errorf("Expected one probe request, got %d", got)
	}
}

func TestDial_ForbiddenHostReportsAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Session.BaseURL = srv.URL
	cfg.Options.DelayBetweenRequests = 0

	_, err := Dial(context.Background(), cfg, nil, logger.NewLoggerTo(io.Discard, "error"))
	if !errors.Is(err, board.ErrAuth) {
		t.Fatalf("Expected board.ErrAuth, got %v", err)
	}
}

func TestDial_SendsBasicAuth(t *testing.T) {
	f := newFixture(t)

	testClient(t, f.srv.URL, &config.Credentials{Account: "opener", Password: "sesame"})

	if got := f.lastAuthUser(); got != "opener" {
		t.Errorf("Expected basic auth user %q, got %q", "opener", got)
	}
}

func TestLatestIndex_CountsAbovePinnedSeparator(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	got, err := c.LatestIndex(context.Background(), fixtureBoard)
	if err != nil {
		t.Fatalf("LatestIndex() error = %v", err)
	}

	if got != fixtureSize {
		t.Errorf("LatestIndex() = %d, want %d", got, fixtureSize)
	}
}

func TestLatestIndex_UnknownBoard(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	_, err := c.LatestIndex(context.Background(), "nosuchboard")
	if !errors.Is(err, board.ErrNotFound) {
		t.Fatalf("Expected board.ErrNotFound, got %v", err)
	}
}

func TestFetchArticle_ParsesEverything(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	art, err := c.FetchArticle(context.Background(), fixtureBoard, fixtureSize)
	if err != nil {
		t.Fatalf("FetchArticle() error = %v", err)
	}

	if art.Board != fixtureBoard {
		t.Errorf("Board = %q, want %q", art.Board, fixtureBoard)
	}

	if art.Index != fixtureSize {
		t.Errorf("Index = %d, want %d", art.Index, fixtureSize)
	}

	if want := articleAID(fixtureSize); art.AID != want {
		t.Errorf("AID = %q, want %q", art.AID, want)
	}

	if want := "user03 (測試帳號)"; art.Author != want {
		t.Errorf("Author = %q, want %q", art.Author, want)
	}

	if want := articleTitle(fixtureSize); art.Title != want {
		t.Errorf("Title = %q, want %q", art.Title, want)
	}

	when, err := art.Time()
	if err != nil {
		t.Fatalf("Time() error = %v", err)
	}

	if !when.Equal(articleTime(fixtureSize)) {
		t.Errorf("Time() = %v, want %v", when, articleTime(fixtureSize))
	}

	if art.IP == nil || *art.IP != "118.160.88.45" {
		t.Errorf("IP = %v, want 118.160.88.45", art.IP)
	}

	if !strings.Contains(art.Content, "這是第 45 篇測試內文") {
		t.Errorf("Content missing body text: %q", art.Content)
	}

	for _, leak := range []string{"發信站", "作者", "推一個"} {
		if strings.Contains(art.Content, leak) {
			t.Errorf("Content should not contain %q: %q", leak, art.Content)
		}
	}

	want := []models.Comment{
		{Kind: models.CommentPush, Author: "alice", Content: "推一個", Time: "10/04 09:10"},
		{Kind: models.CommentBoo, Author: "bob", Content: "不推", Time: "10/04 09:12"},
		{Kind: models.CommentArrow, Author: "carol", Content: "路過看看", Time: "10/04 09:15"},
	}

	if len(art.Comments) != len(want) {
		t.Fatalf("Expected %d comments, got %d: %+v", len(want), len(art.Comments), art.Comments)
	}

	for i, w := range want {
		if art.Comments[i] != w {
			t.Errorf("Comment %d = %+v, want %+v", i, art.Comments[i], w)
		}
	}
}

func TestFetchArticle_CommentlessArticleHasEmptySlice(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	art, err := c.FetchArticle(context.Background(), fixtureBoard, 10)
	if err != nil {
		t.Fatalf("FetchArticle() error = %v", err)
	}

	if art.Comments == nil || len(art.Comments) != 0 {
		t.Errorf("Expected empty comment slice, got %+v", art.Comments)
	}
}

func TestFetchArticle_DeletedRow(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	_, err := c.FetchArticle(context.Background(), fixtureBoard, deletedIndex)
	if !errors.Is(err, board.ErrNotFound) {
		t.Fatalf("Expected board.ErrNotFound for deleted row, got %v", err)
	}
}

func TestFetchArticle_BeyondNewest(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	// One past the end lands in an empty slot on the newest page.
	if _, err := c.FetchArticle(context.Background(), fixtureBoard, fixtureSize+1); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("Expected board.ErrNotFound one past the end, got %v", err)
	}

	// Far past the end lands on a list page that does not exist.
	if _, err := c.FetchArticle(context.Background(), fixtureBoard, 101); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("Expected board.ErrNotFound past the last page, got %v", err)
	}
}

func TestFetchArticle_VanishedBehindListing(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	f.failArticle(44, http.StatusNotFound)

	_, err := c.FetchArticle(context.Background(), fixtureBoard, 44)
	if !errors.Is(err, board.ErrNotFound) {
		t.Fatalf("Expected board.ErrNotFound for vanished article, got %v", err)
	}
}

func TestFetchArticle_ServerErrorIsTransient(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	for _, status := range []int{http.StatusInternalServerError, http.StatusTooManyRequests} {
		f.failArticle(44, status)

		_, err := c.FetchArticle(context.Background(), fixtureBoard, 44)
		if !board.IsTransient(err) {
			t.Errorf("Expected transient error for status %d, got %v", status, err)
		}
	}
}

func TestFetchArticle_ReusesCachedListPage(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	for _, idx := range []int{41, 42, 45} {
		if _, err := c.FetchArticle(context.Background(), fixtureBoard, idx); err != nil {
			t.Fatalf("FetchArticle(%d) error = %v", idx, err)
		}
	}

	if got := f.pageHits("/bbs/tb/index3.html"); got != 1 {
		t.Errorf("Expected one list page request for three fetches, got %d", got)
	}
}

func TestSearch_TitleMatchesNewestFirst(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	got, err := c.Search(context.Background(), fixtureBoard, board.SearchTitle, "地震", board.SearchOptions{MaxCount: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	want := []int{44, 35}
	if len(got) != len(want) {
		t.Fatalf("Search() = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Search()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSearch_AuthorHonorsMinIndex(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	got, err := c.Search(context.Background(), fixtureBoard, board.SearchAuthor, "bob", board.SearchOptions{MinIndex: 20})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	// bob wrote 5, 25 and 42; index 5 sits below the floor. The deleted
	// row at 43 lists no author and must not match.
	want := []int{42, 25}
	if len(got) != len(want) {
		t.Fatalf("Search() = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Search()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSearch_ScanBudgetStopsWalk(t *testing.T) {
	f := newFixture(t)
	c := testClient(t, f.srv.URL, nil)

	got, err := c.Search(context.Background(), fixtureBoard, board.SearchTitle, "地震", board.SearchOptions{MaxScan: 10})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	// Ten rows reach down to index 36, so only the hit at 44 is seen.
	if len(got) != 1 || got[0] != 44 {
		t.Fatalf("Search() = %v, want [44]", got)
	}

	if got := f.pageHits("/bbs/tb/index1.html"); got != 0 {
		t.Errorf("Expected the oldest page to stay unread, got %d requests", got)
	}
}

func TestClassify_StatusTaxonomy(t *testing.T) {
	if err := classify("list", http.StatusOK); err != nil {
		t.Errorf("classify(200) = %v, want nil", err)
	}

	if err := classify("list", http.StatusNotFound); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("classify(404) = %v, want board.ErrNotFound", err)
	}

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		if err := classify("list", status); !errors.Is(err, board.ErrAuth) {
			t.Errorf("classify(%d) = %v, want board.ErrAuth", status, err)
		}
	}

	for _, status := range []int{http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		if err := classify("list", status); !board.IsTransient(err) {
			t.Errorf("classify(%d) = %v, want transient", status, err)
		}
	}

	if err := classify("list", http.StatusTeapot); err == nil || !errors.Is(err, ErrUnexpectedStatusCode) {
		t.Errorf("classify(418) = %v, want ErrUnexpectedStatusCode", err)
	}
}

func TestAIDFromHref(t *testing.T) {
	got := aidFromHref("/bbs/Gossiping/M.1759583808.A.39D.html")
	if want := "M.1759583808.A.39D"; got != want {
		t.Errorf("aidFromHref() = %q, want %q", got, want)
	}
}
