package media

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const previewTimeout = 10 * time.Second

// resolvePreview fetches a link post's landing page and extracts its
// og:image URL, so bare link posts still yield a preview image when the
// listing carried no media metadata. Absence is not an error.
func (d *Downloader) resolvePreview(ctx context.Context, pageURL string) (string, error) {
	body, err := d.getter.Download(ctx, pageURL, previewTimeout)
	if err != nil {
		return "", err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", err
	}

	for _, selector := range []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); strings.HasPrefix(content, "http") {
				return content, nil
			}
		}
	}
	return "", nil
}
