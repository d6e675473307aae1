package sink

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pttgrab/internal/models"
)

const (
	mongoDefaultDatabase = "pttgrab"
	mongoCollection      = "articles"
	mongoDialTimeout     = 10 * time.Second
)

// Mongo upserts each article into a collection keyed by (board, aid), so
// repeated crawls refresh documents instead of duplicating them.
type Mongo struct {
	client   *mongo.Client
	articles *mongo.Collection
}

// OpenMongo connects to the URI and pings the deployment. The database
// name comes from the URI path, falling back to a default.
func OpenMongo(ctx context.Context, uri string) (*Mongo, error) {
	dialCtx, cancel := context.WithTimeout(ctx, mongoDialTimeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(dialCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	articles := client.Database(DatabaseName(uri)).Collection(mongoCollection)

	// Unique index on the upsert key.
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "board", Value: 1}, {Key: "aid", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	if _, err := articles.Indexes().CreateOne(dialCtx, index); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, fmt.Errorf("failed to create article index: %w", err)
	}

	return &Mongo{
		client:   client,
		articles: articles,
	}, nil
}

// DatabaseName extracts the database from a mongodb URI path.
func DatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return mongoDefaultDatabase
	}

	name := strings.Trim(u.Path, "/")
	if name == "" {
		return mongoDefaultDatabase
	}

	return name
}

type mongoArticle struct {
	Board     string           `bson:"board"`
	AID       string           `bson:"aid"`
	Index     int              `bson:"index"`
	Author    string           `bson:"author"`
	Date      string           `bson:"date"`
	Title     string           `bson:"title"`
	Content   string           `bson:"content"`
	IP        *string          `bson:"ip"`
	Comments  []models.Comment `bson:"comments"`
	RunID     string           `bson:"run_id"`
	FetchedAt time.Time        `bson:"fetched_at"`
}

// Write upserts every article in the batch.
func (m *Mongo) Write(ctx context.Context, batch *Batch) error {
	opts := options.Update().SetUpsert(true)

	for _, a := range batch.Articles {
		doc := mongoArticle{
			Board:     a.Board,
			AID:       a.AID,
			Index:     a.Index,
			Author:    a.Author,
			Date:      a.Date,
			Title:     a.Title,
			Content:   a.Content,
			IP:        a.IP,
			Comments:  a.Comments,
			RunID:     batch.RunID,
			FetchedAt: batch.FetchedAt,
		}

		filter := bson.M{"board": a.Board, "aid": a.AID}
		update := bson.M{"$set": doc}

		if _, err := m.articles.UpdateOne(ctx, filter, update, opts); err != nil {
			return fmt.Errorf("failed to upsert article %s: %w", a.AID, err)
		}
	}

	return nil
}

// Close disconnects from the deployment.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoDialTimeout)
	defer cancel()

	return m.client.Disconnect(ctx)
}
