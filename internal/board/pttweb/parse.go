package pttweb

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pttgrab/internal/models"
)

var (
	pagePattern        = regexp.MustCompile(`index(\d+)\.html$`)
	ipPattern          = regexp.MustCompile(`來自:\s*([0-9A-Fa-f.:]+)`)
	commentTimePattern = regexp.MustCompile(`\d{2}/\d{2} \d{2}:\d{2}`)
)

// listEntry is one row of a board list page. Deleted articles keep their
// row but lose the link, so Href doubles as the liveness marker.
type listEntry struct {
	Title  string
	Author string
	Href   string
}

// parseListPage extracts the previous-page number and the entry rows in
// page order. Pinned announcements sit after the separator on the newest
// page and are not part of the index space, so the walk stops there.
func parseListPage(doc *goquery.Document) (int, []listEntry) {
	prev := 0

	doc.Find(".btn-group-paging a").Each(func(_ int, s *goquery.Selection) {
		if !strings.Contains(s.Text(), "上頁") {
			return
		}

		href, ok := s.Attr("href")
		if !ok {
			return
		}

		if m := pagePattern.FindStringSubmatch(href); m != nil {
			prev, _ = strconv.Atoi(m[1])
		}
	})

	var entries []listEntry

	container := doc.Find(".r-list-container")
	if container.Length() > 0 {
		pastSep := false

		container.Children().Each(func(_ int, s *goquery.Selection) {
			if pastSep {
				return
			}

			if s.HasClass("r-list-sep") {
				pastSep = true

				return
			}

			if s.HasClass("r-ent") {
				entries = append(entries, parseEntry(s))
			}
		})
	} else {
		// Stripped-down mirrors render rows without the container div.
		doc.Find(".r-ent").Each(func(_ int, s *goquery.Selection) {
			entries = append(entries, parseEntry(s))
		})
	}

	return prev, entries
}

func parseEntry(s *goquery.Selection) listEntry {
	e := listEntry{
		Author: strings.TrimSpace(s.Find(".author").First().Text()),
	}

	link := s.Find(".title a").First()
	if link.Length() > 0 {
		e.Title = strings.TrimSpace(link.Text())
		e.Href, _ = link.Attr("href")
	} else {
		e.Title = strings.TrimSpace(s.Find(".title").First().Text())
	}

	return e
}

// parseArticle fills an article from its page: the author/title/time
// metalines, the push thread, the posting IP from the site line, and the
// body text with everything else stripped away.
func parseArticle(doc *goquery.Document, art *models.Article) {
	main := doc.Find("#main-content").First()

	main.Find(".article-metaline").Each(func(_ int, s *goquery.Selection) {
		tag := strings.TrimSpace(s.Find(".article-meta-tag").Text())
		value := strings.TrimSpace(s.Find(".article-meta-value").Text())

		switch tag {
		case "作者":
			art.Author = value
		case "標題":
			art.Title = value
		case "時間":
			art.Date = value
		}
	})

	comments := make([]models.Comment, 0)

	main.Find("div.push").Each(func(_ int, s *goquery.Selection) {
		c := models.Comment{
			Kind:    commentKind(s.Find(".push-tag").Text()),
			Author:  strings.TrimSpace(s.Find(".push-userid").Text()),
			Content: commentContent(s.Find(".push-content").Text()),
		}

		if m := commentTimePattern.FindString(s.Find(".push-ipdatetime").Text()); m != "" {
			c.Time = m
		}

		comments = append(comments, c)
	})

	art.Comments = comments

	main.Find("span.f2").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !strings.Contains(text, "發信站") {
			return
		}

		if m := ipPattern.FindStringSubmatch(text); m != nil {
			art.SetIP(m[1])
		}
	})

	main.Find(".article-metaline, .article-metaline-right, div.push, span.f2").Remove()

	art.Content = strings.TrimSpace(main.Text())
}

func commentKind(tag string) models.CommentKind {
	switch {
	case strings.HasPrefix(tag, "推"):
		return models.CommentPush
	case strings.HasPrefix(tag, "噓"):
		return models.CommentBoo
	default:
		return models.CommentArrow
	}
}

func commentContent(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), ":"))
}

// aidFromHref turns "/bbs/Board/M.1759583808.A.39D.html" into the stable
// article id "M.1759583808.A.39D".
func aidFromHref(href string) string {
	return strings.TrimSuffix(path.Base(href), ".html")
}
