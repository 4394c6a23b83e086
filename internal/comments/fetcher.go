package comments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qepting91/plandit-scraper/internal/domain"
	"github.com/qepting91/plandit-scraper/internal/limiter"
)

// DefaultMaxDepth caps reply nesting: depth 0 is a top-level comment,
// anything deeper than the cap is silently dropped.
const DefaultMaxDepth = 3

// Fetcher retrieves and flattens a post's reply tree. Fetches share the
// pipeline-wide limiter with media downloads.
type Fetcher struct {
	source   domain.CommentSource
	gate     *limiter.Limiter
	maxDepth int
}

func New(source domain.CommentSource, gate *limiter.Limiter, maxDepth int) *Fetcher {
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Fetcher{source: source, gate: gate, maxDepth: maxDepth}
}

// FetchTree returns the pre-order flattened reply tree for permalink,
// capped at the configured depth.
func (f *Fetcher) FetchTree(ctx context.Context, permalink string) ([]domain.Comment, error) {
	var body []byte
	err := f.gate.Do(ctx, func() error {
		var err error
		body, err = f.source.FetchCommentListing(ctx, permalink)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch comments for %s: %w", permalink, err)
	}

	return ParseTree(body, permalink, f.maxDepth)
}

// commentNode is one entry of a comment listing. Replies is either an
// empty string or a nested listing, so it stays raw until inspected.
type commentNode struct {
	Kind string `json:"kind"`
	Data struct {
		ID          string          `json:"id"`
		ParentID    string          `json:"parent_id"`
		Author      string          `json:"author"`
		Body        string          `json:"body"`
		Score       int             `json:"score"`
		CreatedUTC  float64         `json:"created_utc"`
		IsSubmitter bool            `json:"is_submitter"`
		Replies     json.RawMessage `json:"replies"`
	} `json:"data"`
}

type listingBody struct {
	Data struct {
		Children []json.RawMessage `json:"children"`
	} `json:"data"`
}

type frame struct {
	raw   json.RawMessage
	depth int
}

// ParseTree walks the raw comment listing with an explicit stack instead
// of call-stack recursion, so the depth cap is a plain loop condition and
// memory stays bounded on pathological trees. Nodes appear before their
// children (pre-order); non-comment entries ("more" stubs) are skipped.
func ParseTree(body []byte, postPermalink string, maxDepth int) ([]domain.Comment, error) {
	var listings []listingBody
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("decode comment listing for %s: %w", postPermalink, err)
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var stack []frame
	pushChildren(&stack, listings[1].Data.Children, 0)

	var out []domain.Comment
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var node commentNode
		if err := json.Unmarshal(top.raw, &node); err != nil {
			continue
		}
		if node.Kind != "t1" {
			continue
		}

		out = append(out, domain.Comment{
			PostPermalink: postPermalink,
			ID:            node.Data.ID,
			ParentID:      node.Data.ParentID,
			Author:        node.Data.Author,
			Body:          node.Data.Body,
			Score:         node.Data.Score,
			CreatedUTC:    time.Unix(int64(node.Data.CreatedUTC), 0).UTC(),
			Depth:         top.depth,
			IsSubmitter:   node.Data.IsSubmitter,
		})

		if top.depth >= maxDepth {
			continue
		}
		if replies := node.Data.Replies; len(replies) > 0 && replies[0] == '{' {
			var nested listingBody
			if err := json.Unmarshal(replies, &nested); err == nil {
				pushChildren(&stack, nested.Data.Children, top.depth+1)
			}
		}
	}
	return out, nil
}

// pushChildren pushes in reverse so siblings pop in origin order.
func pushChildren(stack *[]frame, children []json.RawMessage, depth int) {
	for i := len(children) - 1; i >= 0; i-- {
		*stack = append(*stack, frame{raw: children[i], depth: depth})
	}
}
