package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/qepting91/plandit-scraper/internal/config"
	"github.com/qepting91/plandit-scraper/internal/domain"
)

// NATSPublisher pushes run results onto a NATS subject tree so downstream
// consumers can index or alert on fresh content without polling storage.
// Subjects are <prefix>.posts.<target> and <prefix>.jobs.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// Connect dials the configured server. A missing URL is not an error;
// the caller gets a nil publisher and skips publishing.
func Connect(cfg config.NATSConfig) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("plandit-scraper"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "scrape"
	}
	slog.Info("nats connected", "url", conn.ConnectedUrl(), "prefix", prefix)
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// PublishPosts emits one message per post. Marshal failures skip the
// post; a publish failure aborts the batch.
func (p *NATSPublisher) PublishPosts(ctx context.Context, target domain.Target, posts []domain.Post) error {
	subject := fmt.Sprintf("%s.posts.%s", p.prefix, target.Name)
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(post)
		if err != nil {
			slog.Warn("cannot marshal post for publish", "id", post.ID, "err", err)
			continue
		}
		if err := p.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
	}
	return p.conn.Flush()
}

// PublishJob emits the terminal job record.
func (p *NATSPublisher) PublishJob(ctx context.Context, job domain.JobRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	subject := p.prefix + ".jobs"
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return p.conn.Flush()
}

// Close drains in-flight messages before disconnecting.
func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
