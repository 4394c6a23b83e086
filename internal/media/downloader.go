package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qepting91/plandit-scraper/internal/domain"
	"github.com/qepting91/plandit-scraper/internal/limiter"
)

const (
	imageTimeout = 30 * time.Second
	videoTimeout = 60 * time.Second
	audioTimeout = 30 * time.Second
)

// Getter streams a URL body. The collector's public client satisfies it so
// media fetches share the scraper's transport and user agent.
type Getter interface {
	Download(ctx context.Context, url string, timeout time.Duration) (io.ReadCloser, error)
}

// Result summarizes media acquisition for one post.
type Result struct {
	Images   int
	Videos   int
	Failures int
}

func (r Result) Acquired() bool { return r.Images > 0 || r.Videos > 0 }

// Downloader classifies and acquires a post's media under the shared
// concurrency gate. Existing target files are never re-downloaded.
type Downloader struct {
	getter          Getter
	gate            *limiter.Limiter
	muxer           Muxer
	caps            Caps
	imagesDir       string
	videosDir       string
	resolvePreviews bool
}

func NewDownloader(getter Getter, gate *limiter.Limiter, muxer Muxer, caps Caps, mediaDir string, resolvePreviews bool) *Downloader {
	return &Downloader{
		getter:          getter,
		gate:            gate,
		muxer:           muxer,
		caps:            caps,
		imagesDir:       filepath.Join(mediaDir, "images"),
		videosDir:       filepath.Join(mediaDir, "videos"),
		resolvePreviews: resolvePreviews,
	}
}

// EnsureDirs creates the media directory tree.
func (d *Downloader) EnsureDirs() error {
	for _, dir := range []string{d.imagesDir, d.videosDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Plan counts what AcquireAll would download, without touching the
// network. Dry runs report these "would acquire" numbers.
func (d *Downloader) Plan(item domain.Item) Result {
	set := Classify(item, d.caps)

	var res Result
	res.Images = len(set.Images) + len(set.GalleryImages)
	for _, url := range set.Videos {
		if !skippableVideo(url) {
			res.Videos++
		}
	}
	return res
}

// AcquireAll downloads every classified asset for item. Per-asset failures
// are logged and counted, never fatal.
func (d *Downloader) AcquireAll(ctx context.Context, item domain.Item) Result {
	set := Classify(item, d.caps)

	if set.Empty() && d.resolvePreviews && item.Post.Kind == domain.KindLink {
		if preview, err := d.resolvePreview(ctx, item.Post.URL); err == nil && preview != "" {
			set.Images = append(set.Images, preview)
		}
	}

	var res Result
	postID := item.Post.ID

	for i, url := range set.Images {
		dest := filepath.Join(d.imagesDir, fmt.Sprintf("%s_%d%s", postID, i, imageExt(url)))
		d.acquireOne(ctx, url, dest, domain.MediaImage, &res)
	}

	for i, url := range set.GalleryImages {
		dest := filepath.Join(d.imagesDir, fmt.Sprintf("%s_gallery_%d.jpg", postID, i))
		d.acquireOne(ctx, url, dest, domain.MediaGalleryImage, &res)
	}

	for i, url := range set.Videos {
		if skippableVideo(url) {
			continue
		}
		dest := filepath.Join(d.videosDir, fmt.Sprintf("%s_%d.mp4", postID, i))
		d.acquireOne(ctx, url, dest, domain.MediaVideo, &res)
	}

	return res
}

func (d *Downloader) acquireOne(ctx context.Context, url, dest string, kind domain.MediaType, res *Result) {
	var status domain.MediaStatus
	err := d.gate.Do(ctx, func() error {
		var err error
		if kind == domain.MediaVideo {
			status, err = d.acquireVideo(ctx, url, dest)
		} else {
			status, err = d.acquireImage(ctx, url, dest)
		}
		return err
	})

	if err != nil {
		res.Failures++
		slog.Warn("media download failed", "url", url, "type", string(kind), "err", err)
		return
	}

	switch kind {
	case domain.MediaVideo:
		res.Videos++
	default:
		res.Images++
	}
	slog.Debug("media acquired", "url", url, "dest", dest, "status", string(status))
}

// acquireImage streams url to dest. An existing dest is a success without
// a fetch.
func (d *Downloader) acquireImage(ctx context.Context, url, dest string) (domain.MediaStatus, error) {
	if fileExists(dest) {
		return domain.MediaDownloaded, nil
	}
	if err := d.streamTo(ctx, url, dest, imageTimeout); err != nil {
		return domain.MediaFailed, err
	}
	return domain.MediaDownloaded, nil
}

// acquireVideo picks the plain path for third-party hosts and the
// split-stream remux path for origin-hosted video.
func (d *Downloader) acquireVideo(ctx context.Context, url, dest string) (domain.MediaStatus, error) {
	if fileExists(dest) {
		return domain.MediaDownloaded, nil
	}
	if !originHosted(url) {
		if err := d.streamTo(ctx, url, dest, videoTimeout); err != nil {
			return domain.MediaFailed, err
		}
		return domain.MediaDownloaded, nil
	}
	return d.remuxVideo(ctx, url, dest)
}

// remuxVideo downloads the video stream to a temp file, probes the ordered
// audio candidate URLs, and muxes the first hit into dest. Both "no audio
// stream" and "mux failed or unavailable" degrade to renaming the
// video-only temp into place and still count as success; only a failed
// video download is an error. Temp files are removed on every exit path.
func (d *Downloader) remuxVideo(ctx context.Context, videoURL, dest string) (status domain.MediaStatus, err error) {
	videoTmp, err := tempPath(d.videosDir, "_video.mp4")
	if err != nil {
		return domain.MediaFailed, err
	}
	defer removeIfPresent(videoTmp)

	if err := d.streamTo(ctx, videoURL, videoTmp, videoTimeout); err != nil {
		return domain.MediaFailed, err
	}

	audioTmp := ""
	for _, audioURL := range audioCandidates(videoURL) {
		candidate, err := tempPath(d.videosDir, "_audio.mp4")
		if err != nil {
			break
		}
		if err := d.streamTo(ctx, audioURL, candidate, audioTimeout); err != nil {
			removeIfPresent(candidate)
			continue
		}
		audioTmp = candidate
		break
	}
	defer removeIfPresent(audioTmp)

	if audioTmp == "" {
		if err := os.Rename(videoTmp, dest); err != nil {
			return domain.MediaFailed, err
		}
		return domain.MediaVideoOnly, nil
	}

	if err := d.muxer.Mux(ctx, videoTmp, audioTmp, dest); err != nil {
		slog.Warn("mux failed, keeping video-only stream", "url", videoURL, "err", err)
		if err := os.Rename(videoTmp, dest); err != nil {
			return domain.MediaFailed, err
		}
		return domain.MediaVideoOnly, nil
	}

	return domain.MediaMerged, nil
}

// audioCandidates derives the ordered audio-stream URL patterns for an
// origin-hosted video. The first that responds wins.
func audioCandidates(videoURL string) []string {
	base := videoURL
	if idx := strings.LastIndex(videoURL, "/"); idx > 0 {
		base = videoURL[:idx]
	}
	return []string{
		base + "/DASH_audio.mp4",
		base + "/DASH_AUDIO_128.mp4",
		base + "/DASH_AUDIO_64.mp4",
		base + "/audio.mp4",
		base + "/audio",
	}
}

func (d *Downloader) streamTo(ctx context.Context, url, dest string, timeout time.Duration) error {
	body, err := d.getter.Download(ctx, url, timeout)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	return f.Close()
}

func tempPath(dir, suffix string) (string, error) {
	f, err := os.CreateTemp(dir, "tmp-*"+suffix)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func removeIfPresent(path string) {
	if path == "" {
		return
	}
	if fileExists(path) {
		os.Remove(path)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func imageExt(url string) string {
	trimmed := strings.SplitN(url, "?", 2)[0]
	if idx := strings.LastIndex(trimmed, "."); idx > 0 {
		ext := trimmed[idx:]
		if len(ext) <= 5 && !strings.Contains(ext, "/") {
			return ext
		}
	}
	return ".jpg"
}
