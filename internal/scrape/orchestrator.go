package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/qepting91/plandit-scraper/internal/collector"
	"github.com/qepting91/plandit-scraper/internal/comments"
	"github.com/qepting91/plandit-scraper/internal/config"
	"github.com/qepting91/plandit-scraper/internal/dedup"
	"github.com/qepting91/plandit-scraper/internal/domain"
	"github.com/qepting91/plandit-scraper/internal/limiter"
	"github.com/qepting91/plandit-scraper/internal/media"
	"github.com/qepting91/plandit-scraper/internal/metrics"
	"github.com/qepting91/plandit-scraper/internal/plugin"
	"github.com/qepting91/plandit-scraper/internal/storage"
)

// Publisher receives run results after persistence. A nil Publisher
// disables publishing; publish errors never fail a run.
type Publisher interface {
	PublishPosts(ctx context.Context, target domain.Target, posts []domain.Post) error
	PublishJob(ctx context.Context, job domain.JobRecord) error
}

// Orchestrator drives one target through the full acquisition pipeline:
// paginate, filter against the dedup index, fan out media and comment
// work per page, then process and persist the run's batch.
type Orchestrator struct {
	cfg     config.Config
	pages   domain.PageSource
	fetcher *comments.Fetcher
	media   *media.Downloader
	store   storage.Store
	chain   *plugin.Chain
	pub     Publisher
	log     *slog.Logger
}

func New(cfg config.Config, pages domain.PageSource, fetcher *comments.Fetcher, dl *media.Downloader, store storage.Store, chain *plugin.Chain, pub Publisher) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		pages:   pages,
		fetcher: fetcher,
		media:   dl,
		store:   store,
		chain:   chain,
		pub:     pub,
		log:     slog.Default(),
	}
}

// Assemble wires an orchestrator from config the way main does: one
// shared limiter gates comment fetches and media downloads, and the
// collector's HTTP client serves media bytes regardless of page source.
func Assemble(cfg config.Config, src *collector.Sources, store storage.Store, pub Publisher) (*Orchestrator, error) {
	gate := limiter.New(cfg.MaxConcurrent)
	fetcher := comments.New(src.Comments, gate, cfg.MaxCommentDepth)

	var dl *media.Downloader
	if cfg.DownloadMedia {
		caps := media.Caps{
			MaxImages:        cfg.Media.MaxImages,
			MaxGalleryImages: cfg.Media.MaxGalleryImages,
			MaxVideos:        cfg.Media.MaxVideos,
		}
		dl = media.NewDownloader(src.HTTP, gate, media.NewFFmpegMuxer(cfg.Media.FFmpegPath), caps, cfg.Media.Dir, cfg.Media.ResolvePreviews)
	}

	chain, err := plugin.NewChain(cfg.Plugins)
	if err != nil {
		return nil, err
	}

	return New(cfg, src.Pages, fetcher, dl, store, chain, pub), nil
}

// itemResult collects the fan-out output for one accepted item. The two
// goroutines for an item write disjoint fields.
type itemResult struct {
	media      media.Result
	comments   []domain.Comment
	commentErr error
}

// Run scrapes one target to completion and returns its job record. The
// returned error is non-nil only when the run itself failed; per-item
// failures are counted, logged and carried in the record.
func (o *Orchestrator) Run(ctx context.Context, target domain.Target) (domain.JobRecord, error) {
	start := time.Now()
	job := domain.JobRecord{
		JobID:     uuid.NewString()[:8],
		Target:    target.Name,
		IsUser:    target.IsUser,
		Mode:      o.cfg.CollectorMode,
		DryRun:    o.cfg.DryRun,
		Status:    domain.JobRunning,
		StartedAt: start.UTC(),
	}

	log := o.log.With("job_id", job.JobID, "target", target.String())
	log.Info("scrape started", "limit", o.cfg.Limit, "dry_run", o.cfg.DryRun)

	if !o.cfg.DryRun {
		if err := o.store.StartJob(ctx, job); err != nil {
			log.Warn("cannot record job start", "err", err)
		}
	}

	if o.media != nil && !o.cfg.DryRun {
		if err := o.media.EnsureDirs(); err != nil {
			return o.finish(ctx, job, domain.JobMetrics{}, start, fmt.Errorf("prepare media dirs: %w", err))
		}
	}

	index := dedup.New()
	if seen, err := o.store.SeenPermalinks(ctx); err != nil {
		log.Warn("cannot seed dedup index, starting empty", "err", err)
	} else {
		index.Seed(seen)
	}

	var (
		tally     domain.JobMetrics
		posts     []domain.Post
		batch     []domain.Comment
		runErrs   *multierror.Error
		after     string
		failures  int
		collected int
	)

	for collected < o.cfg.Limit {
		size := o.cfg.BatchSize
		if remaining := o.cfg.Limit - collected; remaining < size {
			size = remaining
		}

		page, err := o.pages.FetchPage(ctx, target, after, size)
		if err != nil {
			if ctx.Err() != nil {
				return o.finish(ctx, job, tally, start, ctx.Err())
			}
			metrics.PagesFetched.WithLabelValues(target.Name, "error").Inc()
			metrics.ScrapeErrors.WithLabelValues(target.Name, "page").Inc()
			tally.Errors++
			runErrs = multierror.Append(runErrs, err)
			failures++
			if failures > o.cfg.MaxPageRetries {
				job.Error = runErrs.Error()
				return o.finish(ctx, job, tally, start, fmt.Errorf("page retries exhausted after %d failures: %w", failures, err))
			}
			log.Warn("page fetch failed, cooling down", "attempt", failures, "cooldown", o.cfg.FailureCooldown, "err", err)
			if err := sleepCtx(ctx, o.cfg.FailureCooldown); err != nil {
				return o.finish(ctx, job, tally, start, err)
			}
			continue
		}
		failures = 0
		metrics.PagesFetched.WithLabelValues(target.Name, "ok").Inc()

		// Filtering is the only phase that touches the dedup index, and
		// it runs before any goroutine for this page starts.
		var accepted []domain.Item
		for _, item := range page.Items {
			if collected >= o.cfg.Limit {
				break
			}
			if !index.Accept(item.Post.Permalink) {
				continue
			}
			accepted = append(accepted, item)
			collected++
		}
		metrics.PostsAccepted.WithLabelValues(target.Name).Add(float64(len(accepted)))

		pagePosts, pageComments, pageTally := o.fanOut(ctx, target, accepted, log)
		posts = append(posts, pagePosts...)
		batch = append(batch, pageComments...)
		tally.Posts += pageTally.Posts
		tally.Comments += pageTally.Comments
		tally.Images += pageTally.Images
		tally.Videos += pageTally.Videos
		tally.Errors += pageTally.Errors

		log.Info("page complete",
			"accepted", len(accepted), "skipped", len(page.Items)-len(accepted),
			"total", collected, "after", page.After)

		if page.After == "" || collected >= o.cfg.Limit {
			break
		}
		after = page.After
		if err := sleepCtx(ctx, o.cfg.PageCooldown); err != nil {
			return o.finish(ctx, job, tally, start, err)
		}
	}

	if o.chain != nil && o.chain.Len() > 0 {
		posts, batch = o.chain.Run(posts, batch)
	}

	if !o.cfg.DryRun {
		if _, err := o.store.SavePosts(ctx, posts); err != nil {
			return o.finish(ctx, job, tally, start, fmt.Errorf("persist posts: %w", err))
		}
		if _, err := o.store.SaveComments(ctx, batch); err != nil {
			return o.finish(ctx, job, tally, start, fmt.Errorf("persist comments: %w", err))
		}
	}

	if runErrs != nil {
		job.Error = runErrs.Error()
	}
	record, err := o.finish(ctx, job, tally, start, nil)

	if o.pub != nil && !o.cfg.DryRun {
		if perr := o.pub.PublishPosts(ctx, target, posts); perr != nil {
			log.Warn("publish posts failed", "err", perr)
		}
		if perr := o.pub.PublishJob(ctx, record); perr != nil {
			log.Warn("publish job failed", "err", perr)
		}
	}

	log.Info("scrape finished", "summary", record.Summary(), "elapsed", record.DurationSeconds)
	return record, err
}

// fanOut runs media acquisition and comment retrieval for one page's
// accepted items and joins before returning, so a page is never left
// partially processed when the cursor advances.
func (o *Orchestrator) fanOut(ctx context.Context, target domain.Target, items []domain.Item, log *slog.Logger) ([]domain.Post, []domain.Comment, domain.JobMetrics) {
	results := make([]itemResult, len(items))
	var images, videos, failures atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item

		if o.media != nil {
			if o.cfg.DryRun {
				results[i].media = o.media.Plan(item)
			} else {
				g.Go(func() error {
					res := o.media.AcquireAll(gctx, item)
					results[i].media = res
					images.Add(int64(res.Images))
					videos.Add(int64(res.Videos))
					failures.Add(int64(res.Failures))
					return nil
				})
			}
		}

		if o.cfg.ScrapeComments && item.Post.NumComments > 0 {
			g.Go(func() error {
				cs, err := o.fetcher.FetchTree(gctx, item.Post.Permalink)
				results[i].comments = cs
				results[i].commentErr = err
				return nil
			})
		}
	}
	g.Wait()

	var (
		posts   []domain.Post
		flat    []domain.Comment
		tally   domain.JobMetrics
		scraped = time.Now().UTC()
	)
	for i, item := range items {
		post := item.Post
		post.ScrapedAt = scraped
		post.MediaDownloaded = results[i].media.Acquired()
		posts = append(posts, post)
		tally.Posts++
		tally.Images += results[i].media.Images
		tally.Videos += results[i].media.Videos

		if err := results[i].commentErr; err != nil {
			tally.Errors++
			metrics.ScrapeErrors.WithLabelValues(target.Name, "comments").Inc()
			log.Warn("comment fetch failed", "permalink", item.Post.Permalink, "err", err)
			continue
		}
		flat = append(flat, results[i].comments...)
		tally.Comments += len(results[i].comments)
	}
	tally.Errors += int(failures.Load())

	metrics.CommentsFetched.WithLabelValues(target.Name).Add(float64(tally.Comments))
	if !o.cfg.DryRun {
		metrics.MediaDownloaded.WithLabelValues(target.Name, "image").Add(float64(images.Load()))
		metrics.MediaDownloaded.WithLabelValues(target.Name, "video").Add(float64(videos.Load()))
	}
	return posts, flat, tally
}

// finish seals the job record, persists it and observes the duration.
func (o *Orchestrator) finish(ctx context.Context, job domain.JobRecord, tally domain.JobMetrics, start time.Time, runErr error) (domain.JobRecord, error) {
	tally.Elapsed = time.Since(start)

	job.Status = domain.JobCompleted
	if runErr != nil {
		job.Status = domain.JobFailed
		if job.Error == "" {
			job.Error = runErr.Error()
		}
	}
	job.CompletedAt = time.Now().UTC()
	job.DurationSeconds = tally.Elapsed.Seconds()
	job.Posts = tally.Posts
	job.Comments = tally.Comments
	job.Media = tally.Media()
	job.ErrorCount = tally.Errors

	metrics.JobDuration.WithLabelValues(job.Target, string(job.Status)).Observe(tally.Elapsed.Seconds())

	if !o.cfg.DryRun {
		// Completion uses a fresh context so a canceled run still lands
		// its terminal record.
		saveCtx := ctx
		if ctx.Err() != nil {
			var cancel context.CancelFunc
			saveCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
		}
		if err := o.store.CompleteJob(saveCtx, job); err != nil {
			o.log.Warn("cannot record job completion", "job_id", job.JobID, "err", err)
		}
	}
	return job, runErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var errNoTargets = errors.New("no targets configured")

// RunAll scrapes each target in order. A failed target does not stop the
// sequence; the first failure is returned after all targets ran.
func (o *Orchestrator) RunAll(ctx context.Context, targets []domain.Target) ([]domain.JobRecord, error) {
	if len(targets) == 0 {
		return nil, errNoTargets
	}

	var records []domain.JobRecord
	var firstErr error
	for _, target := range targets {
		record, err := o.Run(ctx, target)
		records = append(records, record)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", target, err)
			}
			if ctx.Err() != nil {
				break
			}
		}
	}
	return records, firstErr
}
