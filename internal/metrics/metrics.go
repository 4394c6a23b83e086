package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PostsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_posts_accepted_total",
			Help: "Posts accepted after dedup filtering",
		},
		[]string{"target"},
	)

	CommentsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_comments_fetched_total",
			Help: "Comments retrieved from reply trees",
		},
		[]string{"target"},
	)

	MediaDownloaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_media_downloaded_total",
			Help: "Media files acquired",
		},
		[]string{"target", "type"},
	)

	ScrapeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Non-fatal errors during acquisition",
		},
		[]string{"target", "kind"},
	)

	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_fetched_total",
			Help: "Listing pages fetched, by outcome",
		},
		[]string{"target", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_job_duration_seconds",
			Help:    "Scrape job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"target", "status"},
	)
)
