package collector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

const sampleListing = `{
  "data": {
    "after": "t3_next",
    "children": [
      {"kind": "t3", "data": {
        "id": "abc", "title": "A video", "author": "alice",
        "created_utc": 1700000000, "permalink": "/r/test/comments/abc/",
        "url": "https://v.redd.it/xyz", "score": 42, "upvote_ratio": 0.95,
        "num_comments": 7, "is_video": true,
        "media": {"reddit_video": {"fallback_url": "https://v.redd.it/xyz/DASH_720.mp4?source=fallback"}}
      }},
      {"kind": "t3", "data": {
        "id": "def", "title": "A gallery", "author": "bob",
        "created_utc": 1700000100, "permalink": "/r/test/comments/def/",
        "url": "https://reddit.com/gallery/def", "is_gallery": true,
        "gallery_data": {"items": [{"media_id": "m2"}, {"media_id": "m1"}]},
        "media_metadata": {
          "m1": {"s": {"u": "https://preview.redd.it/m1.jpg?width=640&amp;s=sig1"}},
          "m2": {"s": {"u": "https://preview.redd.it/m2.jpg?width=640&amp;s=sig2"}}
        }
      }},
      {"kind": "more", "data": {"id": "stub", "permalink": "/r/test/comments/stub/"}},
      {"kind": "t3", "data": {
        "id": "ghi", "title": "Self post", "author": "carol",
        "created_utc": 1700000200, "permalink": "/r/test/comments/ghi/",
        "url": "https://old.reddit.com/r/test/comments/ghi/", "is_self": true,
        "selftext": "hello", "over_18": true
      }}
    ]
  }
}`

func TestDecodeListing(t *testing.T) {
	page, err := decodeListing(strings.NewReader(sampleListing))
	require.NoError(t, err)

	assert.Equal(t, "t3_next", page.After)
	require.Len(t, page.Items, 3, "non-t3 children are skipped")

	video := page.Items[0]
	assert.Equal(t, domain.KindVideo, video.Post.Kind)
	assert.True(t, video.Post.HasMedia)
	assert.Equal(t, "https://v.redd.it/xyz/DASH_720.mp4", video.Media.VideoFallbackURL,
		"query parameters are stripped from the fallback stream")

	gallery := page.Items[1]
	assert.Equal(t, domain.KindGallery, gallery.Post.Kind)
	require.Len(t, gallery.Media.GalleryURLs, 2)
	assert.Equal(t, "https://preview.redd.it/m2.jpg?width=640&s=sig2", gallery.Media.GalleryURLs[0],
		"gallery_data order wins over metadata map order, entities unescaped")
	assert.Equal(t, "https://preview.redd.it/m1.jpg?width=640&s=sig1", gallery.Media.GalleryURLs[1])

	self := page.Items[2]
	assert.Equal(t, domain.KindText, self.Post.Kind)
	assert.True(t, self.Post.NSFW)
	assert.Equal(t, "hello", self.Post.Selftext)
}

func TestDecodeListingMalformed(t *testing.T) {
	_, err := decodeListing(strings.NewReader(`<html>gateway error</html>`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedListing)
}

func TestDecodeListingEmpty(t *testing.T) {
	page, err := decodeListing(strings.NewReader(`{"data": {"after": "", "children": []}}`))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Empty(t, page.After, "empty cursor signals end of history")
}

func TestRawPostURLOverride(t *testing.T) {
	p := rawPost{URL: "https://old.example/x", URLOverridden: "https://i.redd.it/x.jpg", Permalink: "/p"}
	item := p.toItem()
	assert.Equal(t, "https://i.redd.it/x.jpg", item.Post.URL)
	assert.Equal(t, domain.KindImage, item.Post.Kind)
}
