package storage

import (
	"context"
	"fmt"

	"github.com/qepting91/plandit-scraper/internal/config"
	"github.com/qepting91/plandit-scraper/internal/domain"
)

// PostQuery narrows post listings for the API and dashboard.
type PostQuery struct {
	Kind     string
	Author   string
	MinScore int
	Limit    int
	Offset   int
}

// CommentQuery narrows comment listings.
type CommentQuery struct {
	PostPermalink string
	Limit         int
}

// Store is the persistence collaborator. The scraper writes batches and
// job records through it and seeds its dedup index from the permalinks it
// already holds; the API and dashboard read through it.
type Store interface {
	SeenPermalinks(ctx context.Context) (map[string]struct{}, error)
	SavePosts(ctx context.Context, posts []domain.Post) (int, error)
	SaveComments(ctx context.Context, comments []domain.Comment) (int, error)
	StartJob(ctx context.Context, job domain.JobRecord) error
	CompleteJob(ctx context.Context, job domain.JobRecord) error

	Posts(ctx context.Context, q PostQuery) ([]domain.Post, error)
	Comments(ctx context.Context, q CommentQuery) ([]domain.Comment, error)
	Jobs(ctx context.Context, limit int) ([]domain.JobRecord, error)

	Close(ctx context.Context) error
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "jsonl", "":
		return NewJSONLStore(cfg.DataDir)
	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (use 'jsonl' or 'mongo')", cfg.Backend)
	}
}
