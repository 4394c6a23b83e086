package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qepting91/plandit-scraper/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists records in MongoDB with upsert semantics keyed by
// permalink (posts), comment id (comments) and job id (history).
type MongoStore struct {
	client   *mongo.Client
	posts    *mongo.Collection
	comments *mongo.Collection
	jobs     *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if dbName == "" {
		dbName = "plandit"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:   client,
		posts:    db.Collection("posts"),
		comments: db.Collection("comments"),
		jobs:     db.Collection("job_history"),
	}
	s.ensureIndexes()
	return s, nil
}

func (s *MongoStore) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "permalink", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_utc", Value: -1}}},
		{Keys: bson.D{{Key: "score", Value: -1}}},
	})
	if err == nil {
		_, err = s.comments.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "comment_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "post_permalink", Value: 1}}},
		})
	}
	if err != nil {
		slog.Warn("mongo index creation failed", "err", err)
	}
}

func (s *MongoStore) SeenPermalinks(ctx context.Context) (map[string]struct{}, error) {
	values, err := s.posts.Distinct(ctx, "permalink", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("scan existing permalinks: %w", err)
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if p, ok := v.(string); ok {
			seen[p] = struct{}{}
		}
	}
	return seen, nil
}

func (s *MongoStore) SavePosts(ctx context.Context, posts []domain.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(posts))
	for _, p := range posts {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"permalink": p.Permalink}).
			SetReplacement(p).
			SetUpsert(true))
	}

	res, err := s.posts.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("bulk write posts: %w", err)
	}
	return int(res.UpsertedCount + res.ModifiedCount), nil
}

func (s *MongoStore) SaveComments(ctx context.Context, comments []domain.Comment) (int, error) {
	if len(comments) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(comments))
	for _, c := range comments {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"comment_id": c.ID}).
			SetReplacement(c).
			SetUpsert(true))
	}

	res, err := s.comments.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("bulk write comments: %w", err)
	}
	return int(res.UpsertedCount + res.ModifiedCount), nil
}

func (s *MongoStore) StartJob(ctx context.Context, job domain.JobRecord) error {
	_, err := s.jobs.InsertOne(ctx, job)
	return err
}

func (s *MongoStore) CompleteJob(ctx context.Context, job domain.JobRecord) error {
	_, err := s.jobs.ReplaceOne(ctx, bson.M{"job_id": job.JobID}, job, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) Posts(ctx context.Context, q PostQuery) ([]domain.Post, error) {
	filter := bson.M{}
	if q.Kind != "" {
		filter["post_type"] = q.Kind
	}
	if q.Author != "" {
		filter["author"] = q.Author
	}
	if q.MinScore > 0 {
		filter["score"] = bson.M{"$gte": q.MinScore}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_utc", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}

	cursor, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []domain.Post
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Comments(ctx context.Context, q CommentQuery) ([]domain.Comment, error) {
	filter := bson.M{}
	if q.PostPermalink != "" {
		filter["post_permalink"] = q.PostPermalink
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_utc", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []domain.Comment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Jobs(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.jobs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var out []domain.JobRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
