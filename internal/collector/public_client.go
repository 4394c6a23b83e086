package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/qepting91/plandit-scraper/internal/domain"
	"golang.org/x/time/rate"
)

// Options configure the public listing client.
type Options struct {
	Mirrors   []string
	UserAgent string
	Timeout   time.Duration // per-attempt request timeout
	RateEvery time.Duration // min spacing between listing requests
	Backoff   time.Duration // base sleep after a 429 before the next mirror
}

// PublicClient fetches listing pages from the public JSON endpoints with
// mirror failover, and comment listings from the canonical endpoint.
// No credentials are used.
type PublicClient struct {
	httpClient *http.Client
	registry   *Registry
	limiter    *rate.Limiter
	userAgent  string
	timeout    time.Duration
	backoff    time.Duration
}

func NewPublicClient(opts Options) (*PublicClient, error) {
	if len(opts.Mirrors) == 0 {
		return nil, fmt.Errorf("public client requires at least one mirror")
	}
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("public client requires a user agent")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RateEvery <= 0 {
		opts.RateEvery = 500 * time.Millisecond
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Second
	}

	return &PublicClient{
		httpClient: &http.Client{},
		registry:   NewRegistry(opts.Mirrors),
		limiter:    rate.NewLimiter(rate.Every(opts.RateEvery), 1),
		userAgent:  opts.UserAgent,
		timeout:    opts.Timeout,
		backoff:    opts.Backoff,
	}, nil
}

// FetchPage tries each mirror in shuffled order until one returns a
// structurally valid page. A 429 response triggers an exponential backoff
// sleep before the next attempt rather than an immediate switch-and-retry
// storm. When the registry is exhausted the call reports
// ErrAllMirrorsFailed; the longer cooldown is the orchestrator's job.
func (pc *PublicClient) FetchPage(ctx context.Context, target domain.Target, after string, batchSize int) (*domain.Page, error) {
	if err := pc.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	rateLimitHits := 0
	for _, base := range pc.registry.Shuffled() {
		page, err := pc.fetchFrom(ctx, base, target, after, batchSize)
		if err == nil {
			slog.Debug("fetched listing page", "mirror", base, "target", target.String(), "items", len(page.Items))
			return page, nil
		}

		slog.Debug("mirror attempt failed", "mirror", base, "target", target.String(), "err", err)

		if IsRateLimited(err) {
			rateLimitHits++
			if err := sleepCtx(ctx, pc.backoff*time.Duration(1<<(rateLimitHits-1))); err != nil {
				return nil, err
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("fetch page for %s: %w", target, ErrAllMirrorsFailed)
}

func (pc *PublicClient) fetchFrom(ctx context.Context, base string, target domain.Target, after string, batchSize int) (*domain.Page, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, pc.timeout)
	defer cancel()

	u := fmt.Sprintf("%s%s?limit=%d&raw_json=1", base, listingPath(target), batchSize)
	if after != "" {
		u += "&after=" + url.QueryEscape(after)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", pc.userAgent)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: u, Code: resp.StatusCode}
	}

	return decodeListing(resp.Body)
}

// FetchCommentListing retrieves the raw comment listing body for a
// permalink from the canonical endpoint. Comment retrieval does not rotate
// mirrors; concurrency is bounded by the caller's limiter.
func (pc *PublicClient) FetchCommentListing(ctx context.Context, permalink string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, pc.timeout)
	defer cancel()

	u := fmt.Sprintf("%s%s.json?limit=100&raw_json=1", pc.registry.Canonical(), permalink)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", pc.userAgent)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: u, Code: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

// Download streams an arbitrary media URL. Used by the media pipeline so
// every outbound request shares one transport and user agent.
func (pc *PublicClient) Download(ctx context.Context, rawURL string, timeout time.Duration) (io.ReadCloser, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("User-Agent", pc.userAgent)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	return &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func listingPath(t domain.Target) string {
	if t.IsUser {
		return "/user/" + t.Name + "/submitted.json"
	}
	return "/r/" + t.Name + "/new.json"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
