// Package sink persists assembled articles. Each task names one output
// destination and the destination string picks the sink: mongodb URIs go
// to MongoDB, http(s) URLs are POSTed as webhooks, .db/.sqlite paths land
// in SQLite, and everything else becomes a JSON file.
package sink

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"pttgrab/internal/models"
)

// ErrNoOutput is returned when a task has an empty output destination.
var ErrNoOutput = errors.New("task has no output destination")

// Batch is one task's worth of articles plus the run metadata structured
// sinks carry along.
type Batch struct {
	Board     string            `json:"board"`
	Task      string            `json:"task"`
	RunID     string            `json:"run_id"`
	FetchedAt time.Time         `json:"fetched_at"`
	Articles  []*models.Article `json:"articles"`
}

// Sink writes one batch to its destination.
type Sink interface {
	Write(ctx context.Context, batch *Batch) error
	Close() error
}

// Options carries cross-sink settings.
type Options struct {
	// HTTPToken is sent as a bearer token by the webhook sink.
	HTTPToken string
}

// Kind names a sink family.
type Kind string

const (
	KindFile    Kind = "file"
	KindSQLite  Kind = "sqlite"
	KindMongo   Kind = "mongo"
	KindWebhook Kind = "webhook"
)

// Resolve classifies an output destination string.
func Resolve(output string) Kind {
	switch {
	case strings.HasPrefix(output, "mongodb://"), strings.HasPrefix(output, "mongodb+srv://"):
		return KindMongo
	case strings.HasPrefix(output, "http://"), strings.HasPrefix(output, "https://"):
		return KindWebhook
	}

	switch strings.ToLower(filepath.Ext(output)) {
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite
	}

	return KindFile
}

// Open builds the sink for a destination. Database sinks connect eagerly
// so a bad destination fails the task before anything is half-written.
func Open(ctx context.Context, output string, opts Options) (Sink, error) {
	if output == "" {
		return nil, ErrNoOutput
	}

	switch Resolve(output) {
	case KindMongo:
		return OpenMongo(ctx, output)
	case KindWebhook:
		return NewWebhook(output, opts.HTTPToken), nil
	case KindSQLite:
		return OpenSQLite(output)
	default:
		return NewFile(output), nil
	}
}
