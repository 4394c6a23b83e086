package domain

import (
	"context"
	"fmt"
	"time"
)

// Target represents a scraping task: one subreddit or one user feed.
type Target struct {
	Name   string
	IsUser bool
}

func (t Target) String() string {
	if t.IsUser {
		return "u/" + t.Name
	}
	return "r/" + t.Name
}

// Kind classifies what a post primarily carries.
type Kind string

const (
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindGallery Kind = "gallery"
	KindVideo   Kind = "video"
	KindLink    Kind = "link"
)

// Post is the clean record handed to storage. Field names are the
// compatibility contract consumed by the API, dashboard and exporters.
type Post struct {
	ID              string    `json:"id" bson:"id"`
	Title           string    `json:"title" bson:"title"`
	Author          string    `json:"author" bson:"author"`
	CreatedUTC      time.Time `json:"created_utc" bson:"created_utc"`
	Permalink       string    `json:"permalink" bson:"permalink"`
	URL             string    `json:"url" bson:"url"`
	Score           int       `json:"score" bson:"score"`
	UpvoteRatio     float64   `json:"upvote_ratio" bson:"upvote_ratio"`
	NumComments     int       `json:"num_comments" bson:"num_comments"`
	NumCrossposts   int       `json:"num_crossposts" bson:"num_crossposts"`
	Selftext        string    `json:"selftext" bson:"selftext"`
	Kind            Kind      `json:"post_type" bson:"post_type"`
	NSFW            bool      `json:"is_nsfw" bson:"is_nsfw"`
	Spoiler         bool      `json:"is_spoiler" bson:"is_spoiler"`
	Flair           string    `json:"flair" bson:"flair"`
	TotalAwards     int       `json:"total_awards" bson:"total_awards"`
	HasMedia        bool      `json:"has_media" bson:"has_media"`
	MediaDownloaded bool      `json:"media_downloaded" bson:"media_downloaded"`
	Source          string    `json:"source" bson:"source"`
	ScrapedAt       time.Time `json:"scraped_at" bson:"scraped_at"`

	// Filled in by plugins, empty otherwise.
	Keywords       string  `json:"keywords,omitempty" bson:"keywords,omitempty"`
	SentimentScore float64 `json:"sentiment_score,omitempty" bson:"sentiment_score,omitempty"`
	SentimentLabel string  `json:"sentiment_label,omitempty" bson:"sentiment_label,omitempty"`
}

// Comment is one node of a reply tree, flattened pre-order for output.
// Depth 0 is a top-level reply to the post.
type Comment struct {
	PostPermalink  string    `json:"post_permalink" bson:"post_permalink"`
	ID             string    `json:"comment_id" bson:"comment_id"`
	ParentID       string    `json:"parent_id" bson:"parent_id"`
	Author         string    `json:"author" bson:"author"`
	Body           string    `json:"body" bson:"body"`
	Score          int       `json:"score" bson:"score"`
	CreatedUTC     time.Time `json:"created_utc" bson:"created_utc"`
	Depth          int       `json:"depth" bson:"depth"`
	IsSubmitter    bool      `json:"is_submitter" bson:"is_submitter"`
	SentimentScore float64   `json:"sentiment_score,omitempty" bson:"sentiment_score,omitempty"`
	SentimentLabel string    `json:"sentiment_label,omitempty" bson:"sentiment_label,omitempty"`
}

// MediaType classifies a single downloadable asset.
type MediaType string

const (
	MediaImage        MediaType = "image"
	MediaGalleryImage MediaType = "gallery-image"
	MediaVideo        MediaType = "video"
)

// MediaStatus tracks an asset through acquisition.
type MediaStatus string

const (
	MediaDownloaded MediaStatus = "downloaded"
	MediaFailed     MediaStatus = "failed"
	MediaMerged     MediaStatus = "merged"
	MediaVideoOnly  MediaStatus = "video-only-fallback"
)

// MediaHints carries the raw listing's media metadata a post needs for
// classification, already normalized by the collector.
type MediaHints struct {
	VideoFallbackURL string
	PreviewURLs      []string
	GalleryURLs      []string
}

// Item pairs a normalized post with its media hints.
type Item struct {
	Post  Post
	Media MediaHints
}

// Page is one listing page in origin order. An empty After cursor
// signals end of history.
type Page struct {
	Items []Item
	After string
}

// PageSource fetches listing pages for a target. Implementations handle
// mirror selection and retry internally and surface collector.ErrAllMirrorsFailed
// to the orchestrator when every endpoint is exhausted.
type PageSource interface {
	FetchPage(ctx context.Context, target Target, after string, batchSize int) (*Page, error)
}

// CommentSource fetches the raw comment listing body for a permalink.
type CommentSource interface {
	FetchCommentListing(ctx context.Context, permalink string) ([]byte, error)
}

// JobStatus is the terminal state of a scrape run.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobMetrics are the running counts a scrape accumulates.
type JobMetrics struct {
	Posts    int           `json:"posts"`
	Comments int           `json:"comments"`
	Images   int           `json:"images"`
	Videos   int           `json:"videos"`
	Errors   int           `json:"errors"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Media returns the combined media download count.
func (m JobMetrics) Media() int { return m.Images + m.Videos }

// JobRecord is the job-history entry persisted at run start and completion.
type JobRecord struct {
	JobID           string    `json:"job_id" bson:"job_id"`
	Target          string    `json:"target" bson:"target"`
	IsUser          bool      `json:"is_user" bson:"is_user"`
	Mode            string    `json:"mode" bson:"mode"`
	DryRun          bool      `json:"dry_run" bson:"dry_run"`
	Status          JobStatus `json:"status" bson:"status"`
	StartedAt       time.Time `json:"started_at" bson:"started_at"`
	CompletedAt     time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	DurationSeconds float64   `json:"duration_seconds" bson:"duration_seconds"`
	Posts           int       `json:"posts_scraped" bson:"posts_scraped"`
	Comments        int       `json:"comments_scraped" bson:"comments_scraped"`
	Media           int       `json:"media_downloaded" bson:"media_downloaded"`
	ErrorCount      int       `json:"error_count" bson:"error_count"`
	Error           string    `json:"errors,omitempty" bson:"errors,omitempty"`
}

func (j JobRecord) Summary() string {
	return fmt.Sprintf("job %s %s: %d posts, %d comments, %d media, %d errors",
		j.JobID, j.Status, j.Posts, j.Comments, j.Media, j.ErrorCount)
}
