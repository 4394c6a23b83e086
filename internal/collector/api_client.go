package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"github.com/qepting91/plandit-scraper/internal/domain"
	"golang.org/x/time/rate"
)

// APIClient is an alternative page source backed by the read-only JSON API
// client. No credentials are involved. The API listing carries no gallery
// or preview metadata, so items fetched this way classify as text, image
// or link only and queue no split-stream video work.
type APIClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
}

func NewAPIClient(userAgent string) (*APIClient, error) {
	client, err := reddit.NewReadonlyClient(reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, err
	}

	// Public API budget: ~60 reqs/min with a safety margin.
	limiter := rate.NewLimiter(rate.Every(1*time.Second), 1)

	return &APIClient{client: client, limiter: limiter}, nil
}

func (ac *APIClient) FetchPage(ctx context.Context, target domain.Target, after string, batchSize int) (*domain.Page, error) {
	if target.IsUser {
		return nil, fmt.Errorf("user listings require the public collector mode")
	}
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	posts, resp, err := ac.client.Subreddit.NewPosts(ctx, target.Name, &reddit.ListOptions{
		Limit: batchSize,
		After: after,
	})
	if err != nil {
		return nil, fmt.Errorf("readonly api error: %w", err)
	}

	page := &domain.Page{After: resp.After}
	for _, p := range posts {
		kind := domain.KindLink
		switch {
		case p.IsSelfPost:
			kind = domain.KindText
		case isImageURL(p.URL):
			kind = domain.KindImage
		}

		page.Items = append(page.Items, domain.Item{
			Post: domain.Post{
				ID:          p.ID,
				Title:       p.Title,
				Author:      p.Author,
				CreatedUTC:  p.Created.Time.UTC(),
				Permalink:   p.Permalink,
				URL:         p.URL,
				Score:       p.Score,
				UpvoteRatio: float64(p.UpvoteRatio),
				NumComments: p.NumberOfComments,
				Selftext:    p.Body,
				Kind:        kind,
				NSFW:        p.NSFW,
				Spoiler:     p.Spoiler,
				HasMedia:    kind == domain.KindImage,
				Source:      "plandit-scraper",
				ScrapedAt:   time.Now().UTC(),
			},
		})
	}
	return page, nil
}
