package media

import (
	"strings"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

// Caps bound the download work a single post can queue.
type Caps struct {
	MaxImages        int
	MaxGalleryImages int
	MaxVideos        int
}

// DefaultCaps match the per-post limits the pipeline always ran with.
var DefaultCaps = Caps{MaxImages: 5, MaxGalleryImages: 10, MaxVideos: 2}

// Set is the classified, capped download plan for one post.
type Set struct {
	Images        []string
	GalleryImages []string
	Videos        []string
}

func (s Set) Empty() bool {
	return len(s.Images) == 0 && len(s.GalleryImages) == 0 && len(s.Videos) == 0
}

// Classify inspects a post's URL and embedded metadata and returns the
// capped set of assets to acquire. Direct image links and image-host URLs
// count as images, preview sources act as fallbacks, gallery entries come
// from the metadata map in display order, and origin-hosted video uses the
// fallback stream URL.
func Classify(item domain.Item, caps Caps) Set {
	var set Set

	url := item.Post.URL
	if isDirectImage(url) {
		set.Images = append(set.Images, url)
	}

	for _, preview := range item.Media.PreviewURLs {
		set.Images = append(set.Images, preview)
	}

	set.GalleryImages = append(set.GalleryImages, item.Media.GalleryURLs...)

	if item.Media.VideoFallbackURL != "" {
		set.Videos = append(set.Videos, item.Media.VideoFallbackURL)
	}

	set.Images = truncate(set.Images, caps.MaxImages)
	set.GalleryImages = truncate(set.GalleryImages, caps.MaxGalleryImages)
	set.Videos = truncate(set.Videos, caps.MaxVideos)
	return set
}

func truncate(urls []string, n int) []string {
	if n >= 0 && len(urls) > n {
		return urls[:n]
	}
	return urls
}

func isDirectImage(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return strings.Contains(lower, "i.redd.it")
}

// originHosted reports whether a video URL points at the origin's own
// video host, which stores audio as a separate stream.
func originHosted(url string) bool {
	return strings.Contains(url, "v.redd.it") || strings.Contains(url, "reddit.com")
}

// skippableVideo filters hosts the pipeline never downloads directly.
func skippableVideo(url string) bool {
	return strings.Contains(url, "youtube") || strings.Contains(url, "youtu.be")
}
