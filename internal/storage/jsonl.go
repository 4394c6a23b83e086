package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

// JSONLStore persists records as append-only NDJSON files under a data
// directory. Writes are serialized; readers scan the files.
type JSONLStore struct {
	mu           sync.Mutex
	postsPath    string
	commentsPath string
	jobsPath     string
}

func NewJSONLStore(dataDir string) (*JSONLStore, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &JSONLStore{
		postsPath:    filepath.Join(dataDir, "posts.ndjson"),
		commentsPath: filepath.Join(dataDir, "comments.ndjson"),
		jobsPath:     filepath.Join(dataDir, "jobs.ndjson"),
	}, nil
}

func (s *JSONLStore) SeenPermalinks(ctx context.Context) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	err := scanLines(s.postsPath, func(line []byte) {
		var p domain.Post
		if err := json.Unmarshal(line, &p); err == nil && p.Permalink != "" {
			seen[p.Permalink] = struct{}{}
		}
	})
	return seen, err
}

func (s *JSONLStore) SavePosts(ctx context.Context, posts []domain.Post) (int, error) {
	return appendRecords(&s.mu, s.postsPath, posts)
}

func (s *JSONLStore) SaveComments(ctx context.Context, comments []domain.Comment) (int, error) {
	return appendRecords(&s.mu, s.commentsPath, comments)
}

func (s *JSONLStore) StartJob(ctx context.Context, job domain.JobRecord) error {
	_, err := appendRecords(&s.mu, s.jobsPath, []domain.JobRecord{job})
	return err
}

// CompleteJob appends the final record; the latest line per job id wins
// when reading history back.
func (s *JSONLStore) CompleteJob(ctx context.Context, job domain.JobRecord) error {
	_, err := appendRecords(&s.mu, s.jobsPath, []domain.JobRecord{job})
	return err
}

func (s *JSONLStore) Posts(ctx context.Context, q PostQuery) ([]domain.Post, error) {
	var out []domain.Post
	err := scanLines(s.postsPath, func(line []byte) {
		var p domain.Post
		if err := json.Unmarshal(line, &p); err != nil {
			return
		}
		if q.Kind != "" && string(p.Kind) != q.Kind {
			return
		}
		if q.Author != "" && p.Author != q.Author {
			return
		}
		if p.Score < q.MinScore {
			return
		}
		out = append(out, p)
	})
	if err != nil {
		return nil, err
	}
	return window(out, q.Offset, q.Limit), nil
}

func (s *JSONLStore) Comments(ctx context.Context, q CommentQuery) ([]domain.Comment, error) {
	var out []domain.Comment
	err := scanLines(s.commentsPath, func(line []byte) {
		var c domain.Comment
		if err := json.Unmarshal(line, &c); err != nil {
			return
		}
		if q.PostPermalink != "" && c.PostPermalink != q.PostPermalink {
			return
		}
		out = append(out, c)
	})
	if err != nil {
		return nil, err
	}
	return window(out, 0, q.Limit), nil
}

func (s *JSONLStore) Jobs(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	latest := make(map[string]domain.JobRecord)
	var order []string
	err := scanLines(s.jobsPath, func(line []byte) {
		var j domain.JobRecord
		if err := json.Unmarshal(line, &j); err != nil || j.JobID == "" {
			return
		}
		if _, ok := latest[j.JobID]; !ok {
			order = append(order, j.JobID)
		}
		latest[j.JobID] = j
	})
	if err != nil {
		return nil, err
	}

	// Most recent job first.
	out := make([]domain.JobRecord, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, latest[order[i]])
	}
	return window(out, 0, limit), nil
}

func (s *JSONLStore) Close(ctx context.Context) error { return nil }

func appendRecords[T any](mu *sync.Mutex, path string, records []T) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	written := 0
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func scanLines(path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		fn(scanner.Bytes())
	}
	return scanner.Err()
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
