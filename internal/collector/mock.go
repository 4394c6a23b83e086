package collector

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

// MockSource serves fake pages without touching the network. Handy for
// exercising the full pipeline, dry runs included, with no origin access.
type MockSource struct {
	TotalPosts int // posts available before the cursor runs out
	Latency    time.Duration
}

func NewMockSource() *MockSource {
	return &MockSource{TotalPosts: 250, Latency: 200 * time.Millisecond}
}

func (ms *MockSource) FetchPage(ctx context.Context, target domain.Target, after string, batchSize int) (*domain.Page, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(ms.Latency):
	}

	start := 0
	if after != "" {
		start, _ = strconv.Atoi(after)
	}

	page := &domain.Page{}
	for i := start; i < start+batchSize && i < ms.TotalPosts; i++ {
		permalink := fmt.Sprintf("/%s/comments/mock%04d/", target.String(), i)
		page.Items = append(page.Items, domain.Item{
			Post: domain.Post{
				ID:          fmt.Sprintf("mock%04d", i),
				Title:       fmt.Sprintf("[%s] Simulated post #%d", target.Name, i),
				Author:      "simulated_user",
				CreatedUTC:  time.Now().UTC(),
				Permalink:   permalink,
				URL:         "http://localhost/mock-url",
				Score:       rand.Intn(500),
				UpvoteRatio: 0.9,
				NumComments: rand.Intn(4),
				Kind:        domain.KindText,
				Source:      "plandit-scraper",
				ScrapedAt:   time.Now().UTC(),
			},
		})
	}

	if start+batchSize < ms.TotalPosts {
		page.After = strconv.Itoa(start + batchSize)
	}
	return page, nil
}

// FetchCommentListing returns a small fixed reply tree for any permalink.
func (ms *MockSource) FetchCommentListing(ctx context.Context, permalink string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(ms.Latency / 2):
	}

	body := `[
	 {"kind": "Listing", "data": {"children": []}},
	 {"kind": "Listing", "data": {"children": [
	  {"kind": "t1", "data": {"id": "c1", "parent_id": "t3_mock", "author": "alice",
	   "body": "top level", "score": 10, "created_utc": 1700000000, "is_submitter": false,
	   "replies": {"kind": "Listing", "data": {"children": [
	    {"kind": "t1", "data": {"id": "c2", "parent_id": "t1_c1", "author": "bob",
	     "body": "nested reply", "score": 3, "created_utc": 1700000100,
	     "is_submitter": true, "replies": ""}}
	   ]}}}}
	 ]}}
	]`
	return []byte(body), nil
}
