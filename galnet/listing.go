package galnet

import (
	"context"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ListingLink is one href from the index listing block. Each one points at
// a day page such as /galnet/01-JAN-3307.
type ListingLink struct {
	Href string
}

// DateToken returns the day-Month-Year token embedded in the link path. The
// fragment and any trailing slash are ignored.
func (l ListingLink) DateToken() string {
	p := l.Href
	if u, err := url.Parse(l.Href); err == nil {
		p = u.Path
	} else if i := strings.IndexByte(p, '#'); i >= 0 {
		p = p[:i]
	}

	p = strings.TrimSuffix(p, "/")
	if suffix, ok := strings.CutPrefix(p, ArticlePrefix); ok {
		return suffix
	}
	return path.Base(p)
}

// ListLinks fetches indexURL and returns the hrefs of every anchor inside
// the listing block, oldest first. The feed lists newest first, so document
// order is reversed. A page without the listing block yields no links.
// Duplicate hrefs are kept.
func (c *Client) ListLinks(ctx context.Context, indexURL string) ([]ListingLink, error) {
	doc, err := c.fetchDocument(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	container := doc.Find(ListingSelector)
	if container.Length() == 0 {
		c.logger.Warn("Listing block not found", zap.String("url", indexURL))
		return []ListingLink{}, nil
	}

	links := []ListingLink{}
	container.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		links = append(links, ListingLink{Href: strings.TrimSpace(href)})
	})
	slices.Reverse(links)

	c.logger.Info("Collected listing links",
		zap.String("url", indexURL),
		zap.Int("count", len(links)),
	)

	return links, nil
}
