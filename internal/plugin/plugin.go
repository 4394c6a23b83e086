package plugin

import (
	"fmt"
	"log/slog"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

// Plugin rewrites or filters the in-memory batch after a run, before
// persistence. A failure never aborts the run: the chain logs it and the
// batch passes through unmodified.
type Plugin interface {
	Name() string
	ProcessPosts(posts []domain.Post) ([]domain.Post, error)
	ProcessComments(comments []domain.Comment) ([]domain.Comment, error)
}

// registry maps config names to constructors. Registration is static;
// the acquisition core depends only on the Plugin interface.
var registry = map[string]func() Plugin{
	"deduplicator":      func() Plugin { return &Deduplicator{} },
	"keyword_extractor": func() Plugin { return &KeywordExtractor{TopN: 5} },
	"sentiment_tagger":  func() Plugin { return &SentimentTagger{} },
}

// Chain runs a configured sequence of plugins.
type Chain struct {
	plugins []Plugin
}

// NewChain resolves names against the registry. Unknown names are an
// error so a typo in config does not silently drop a processing stage.
func NewChain(names []string) (*Chain, error) {
	c := &Chain{}
	for _, name := range names {
		ctor, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown plugin: %s", name)
		}
		c.plugins = append(c.plugins, ctor())
	}
	return c, nil
}

func (c *Chain) Len() int { return len(c.plugins) }

// Run applies each plugin in order. Errors and panics are contained per
// plugin; the input of a failed stage feeds the next one.
func (c *Chain) Run(posts []domain.Post, comments []domain.Comment) ([]domain.Post, []domain.Comment) {
	for _, p := range c.plugins {
		posts, comments = runOne(p, posts, comments)
	}
	return posts, comments
}

func runOne(p Plugin, posts []domain.Post, comments []domain.Comment) (outPosts []domain.Post, outComments []domain.Comment) {
	outPosts, outComments = posts, comments
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("plugin panicked, batch passed through", "plugin", p.Name(), "panic", r)
			outPosts, outComments = posts, comments
		}
	}()

	processed, err := p.ProcessPosts(posts)
	if err != nil {
		slog.Warn("plugin failed on posts, batch passed through", "plugin", p.Name(), "err", err)
		return posts, comments
	}

	processedComments, err := p.ProcessComments(comments)
	if err != nil {
		slog.Warn("plugin failed on comments, batch passed through", "plugin", p.Name(), "err", err)
		return posts, comments
	}

	return processed, processedComments
}
