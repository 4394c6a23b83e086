package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// listingEnvelope mirrors the origin's listing JSON shape.
type listingEnvelope struct {
	Data struct {
		Children []struct {
			Kind string  `json:"kind"`
			Data rawPost `json:"data"`
		} `json:"children"`
		After string `json:"after"`
	} `json:"data"`
}

// rawPost is one origin record before normalization.
type rawPost struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	CreatedUTC    float64 `json:"created_utc"`
	Permalink     string  `json:"permalink"`
	URL           string  `json:"url"`
	URLOverridden string  `json:"url_overridden_by_dest"`
	Score         int     `json:"score"`
	UpvoteRatio   float64 `json:"upvote_ratio"`
	NumComments   int     `json:"num_comments"`
	NumCrossposts int     `json:"num_crossposts"`
	Selftext      string  `json:"selftext"`
	IsSelf        bool    `json:"is_self"`
	IsVideo       bool    `json:"is_video"`
	IsGallery     bool    `json:"is_gallery"`
	Over18        bool    `json:"over_18"`
	Spoiler       bool    `json:"spoiler"`
	Flair         string  `json:"link_flair_text"`
	TotalAwards   int     `json:"total_awards_received"`

	Media struct {
		RedditVideo struct {
			FallbackURL string `json:"fallback_url"`
		} `json:"reddit_video"`
	} `json:"media"`

	Preview struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`

	GalleryData struct {
		Items []struct {
			MediaID string `json:"media_id"`
		} `json:"items"`
	} `json:"gallery_data"`

	MediaMetadata map[string]struct {
		S struct {
			U string `json:"u"`
		} `json:"s"`
	} `json:"media_metadata"`
}

// decodeListing parses one listing page into origin-ordered items.
func decodeListing(r io.Reader) (*domain.Page, error) {
	var env listingEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedListing, err)
	}

	page := &domain.Page{After: env.Data.After}
	for _, child := range env.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		if child.Data.Permalink == "" {
			continue
		}
		page.Items = append(page.Items, child.Data.toItem())
	}
	return page, nil
}

func (p rawPost) toItem() domain.Item {
	url := p.URL
	if p.URLOverridden != "" {
		url = p.URLOverridden
	}

	post := domain.Post{
		ID:            p.ID,
		Title:         p.Title,
		Author:        p.Author,
		CreatedUTC:    time.Unix(int64(p.CreatedUTC), 0).UTC(),
		Permalink:     p.Permalink,
		URL:           url,
		Score:         p.Score,
		UpvoteRatio:   p.UpvoteRatio,
		NumComments:   p.NumComments,
		NumCrossposts: p.NumCrossposts,
		Selftext:      p.Selftext,
		Kind:          p.kind(url),
		NSFW:          p.Over18,
		Spoiler:       p.Spoiler,
		Flair:         p.Flair,
		TotalAwards:   p.TotalAwards,
		HasMedia:      p.IsVideo || p.IsGallery || strings.Contains(url, "i.redd.it"),
		Source:        "plandit-scraper",
		ScrapedAt:     time.Now().UTC(),
	}

	return domain.Item{Post: post, Media: p.mediaHints()}
}

func (p rawPost) kind(url string) domain.Kind {
	switch {
	case p.IsVideo:
		return domain.KindVideo
	case p.IsGallery:
		return domain.KindGallery
	case isImageURL(url):
		return domain.KindImage
	case p.IsSelf:
		return domain.KindText
	default:
		return domain.KindLink
	}
}

func (p rawPost) mediaHints() domain.MediaHints {
	hints := domain.MediaHints{}

	if p.IsVideo && p.Media.RedditVideo.FallbackURL != "" {
		// Strip DASH query parameters so audio candidates derive cleanly.
		hints.VideoFallbackURL = strings.SplitN(p.Media.RedditVideo.FallbackURL, "?", 2)[0]
	}

	for _, img := range p.Preview.Images {
		if img.Source.URL != "" {
			hints.PreviewURLs = append(hints.PreviewURLs, unescapeAmp(img.Source.URL))
		}
	}

	// Gallery items are addressed through a metadata map keyed by media id;
	// gallery_data preserves the display order.
	for _, item := range p.GalleryData.Items {
		meta, ok := p.MediaMetadata[item.MediaID]
		if !ok || meta.S.U == "" {
			continue
		}
		hints.GalleryURLs = append(hints.GalleryURLs, unescapeAmp(meta.S.U))
	}

	return hints
}

func isImageURL(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return strings.Contains(lower, "i.redd.it")
}

func unescapeAmp(s string) string {
	return strings.ReplaceAll(s, "&amp;", "&")
}
