// Package models defines the article and comment records exchanged with the
// bulletin board, plus the time formats the remote service uses.
package models

// CommentKind classifies a comment line.
type CommentKind string

// Comment kinds as they appear on the remote service.
const (
	CommentPush  CommentKind = "push"
	CommentBoo   CommentKind = "boo"
	CommentArrow CommentKind = "arrow"
)

// Article is one board posting with its comment thread.
//
// Field order matches the serialized record schema. IP is a pointer so a
// missing value serializes as an explicit null rather than being omitted.
// Comments is never nil on a fetched article; an article without comments
// carries an empty slice.
type Article struct {
	Board    string    `json:"board"`
	AID      string    `json:"aid"`
	Index    int       `json:"index"`
	Author   string    `json:"author"`
	Date     string    `json:"date"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	IP       *string   `json:"ip"`
	Comments []Comment `json:"comments"`
}

// Comment is a single push/boo/arrow line under an article.
type Comment struct {
	Kind    CommentKind `json:"type"`
	Author  string      `json:"author"`
	Content string      `json:"content"`
	Time    string      `json:"time"`
}

// SetIP records the posting IP. An empty string clears it back to null.
func (a *Article) SetIP(ip string) {
	if ip == "" {
		a.IP = nil

		return
	}

	a.IP = &ip
}

// HasCommentBy reports whether any comment was written by the given account.
func (a *Article) HasCommentBy(account string) bool {
	for _, c := range a.Comments {
		if c.Author == account {
			return true
		}
	}

	return false
}
