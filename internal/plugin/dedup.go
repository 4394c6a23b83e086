package plugin

import (
	"log/slog"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

// Deduplicator removes duplicate posts by permalink and duplicate
// comments by id, keeping first occurrences.
type Deduplicator struct{}

func (d *Deduplicator) Name() string { return "deduplicator" }

func (d *Deduplicator) ProcessPosts(posts []domain.Post) ([]domain.Post, error) {
	seen := make(map[string]struct{}, len(posts))
	unique := posts[:0:0]
	for _, p := range posts {
		if p.Permalink == "" {
			continue
		}
		if _, dup := seen[p.Permalink]; dup {
			continue
		}
		seen[p.Permalink] = struct{}{}
		unique = append(unique, p)
	}

	if removed := len(posts) - len(unique); removed > 0 {
		slog.Info("deduplicator removed posts", "removed", removed)
	}
	return unique, nil
}

func (d *Deduplicator) ProcessComments(comments []domain.Comment) ([]domain.Comment, error) {
	seen := make(map[string]struct{}, len(comments))
	unique := comments[:0:0]
	for _, c := range comments {
		if c.ID == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		unique = append(unique, c)
	}
	return unique, nil
}
