package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/plandit-scraper/internal/domain"
	"github.com/qepting91/plandit-scraper/internal/storage"
)

type stubStore struct {
	posts    []domain.Post
	comments []domain.Comment
	jobs     []domain.JobRecord
	lastPost storage.PostQuery
	fail     bool
}

func (s *stubStore) SeenPermalinks(ctx context.Context) (map[string]struct{}, error) { return nil, nil }
func (s *stubStore) SavePosts(ctx context.Context, p []domain.Post) (int, error)     { return 0, nil }
func (s *stubStore) SaveComments(ctx context.Context, c []domain.Comment) (int, error) {
	return 0, nil
}
func (s *stubStore) StartJob(ctx context.Context, j domain.JobRecord) error    { return nil }
func (s *stubStore) CompleteJob(ctx context.Context, j domain.JobRecord) error { return nil }

func (s *stubStore) Posts(ctx context.Context, q storage.PostQuery) ([]domain.Post, error) {
	s.lastPost = q
	if s.fail {
		return nil, errors.New("backend down")
	}
	return s.posts, nil
}

func (s *stubStore) Comments(ctx context.Context, q storage.CommentQuery) ([]domain.Comment, error) {
	return s.comments, nil
}

func (s *stubStore) Jobs(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	return s.jobs, nil
}

func (s *stubStore) Close(ctx context.Context) error { return nil }

func serve(t *testing.T, store storage.Store, path string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(store, "0")
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, &stubStore{}, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestListPosts(t *testing.T) {
	store := &stubStore{posts: []domain.Post{{ID: "a"}, {ID: "b"}}}
	rec := serve(t, store, "/api/v1/posts?kind=image&min_score=10&limit=5&offset=2")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int           `json:"count"`
		Posts []domain.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Posts, 2)

	assert.Equal(t, storage.PostQuery{Kind: "image", MinScore: 10, Limit: 5, Offset: 2}, store.lastPost)
}

func TestListPostsDefaultsBadInput(t *testing.T) {
	store := &stubStore{}
	rec := serve(t, store, "/api/v1/posts?limit=bogus&min_score=-3")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultPageSize, store.lastPost.Limit)
	assert.Zero(t, store.lastPost.MinScore)
}

func TestListPostsStoreError(t *testing.T) {
	rec := serve(t, &stubStore{fail: true}, "/api/v1/posts")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "backend down")
}

func TestListComments(t *testing.T) {
	store := &stubStore{comments: []domain.Comment{{ID: "c1"}}}
	rec := serve(t, store, "/api/v1/comments?post=/r/go/comments/a/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"comment_id":"c1"`)
}

func TestListJobs(t *testing.T) {
	store := &stubStore{jobs: []domain.JobRecord{{JobID: "j1", Status: domain.JobCompleted}}}
	rec := serve(t, store, "/api/v1/jobs")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job_id":"j1"`)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &stubStore{}, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
