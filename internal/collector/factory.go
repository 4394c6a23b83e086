package collector

import (
	"fmt"

	"github.com/qepting91/plandit-scraper/internal/config"
	"github.com/qepting91/plandit-scraper/internal/domain"
)

// Sources bundles the fetch paths a run needs. HTTP is always the public
// client; media downloads and comment listings go through it even when an
// alternative page source is selected.
type Sources struct {
	Pages    domain.PageSource
	Comments domain.CommentSource
	HTTP     *PublicClient
}

// New selects page and comment sources for the configured collector mode.
// The api mode still reads comment trees through the public canonical
// endpoint because the readonly API client has no listing-body access.
func New(cfg config.Config) (*Sources, error) {
	public, err := NewPublicClient(Options{
		Mirrors:   cfg.Mirrors,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
		RateEvery: cfg.RateLimit,
	})
	if err != nil {
		return nil, err
	}

	src := &Sources{Pages: public, Comments: public, HTTP: public}

	switch cfg.CollectorMode {
	case "public", "":
	case "api":
		api, err := NewAPIClient(cfg.UserAgent)
		if err != nil {
			return nil, err
		}
		src.Pages = api
	case "mock":
		mock := NewMockSource()
		src.Pages = mock
		src.Comments = mock
	default:
		return nil, fmt.Errorf("unknown collector mode: %s (use 'public', 'api', or 'mock')", cfg.CollectorMode)
	}

	return src, nil
}
