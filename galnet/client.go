// Package galnet scrapes the GalNet news archive: the listing of day pages
// on the index and the articles published on each day.
package galnet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultBaseURL is the community site hosting GalNet.
const DefaultBaseURL = "https://community.elitedangerous.com"

// Markup markers of the GalNet pages.
const (
	ListingSelector = "#block-frontier-galnet-frontier-galnet-block-filter"
	TitleSelector   = "h3.hiLite.galnetNewsArticleTitle"
	ArticlePrefix   = "/galnet/"
	UIDPrefix       = "/galnet/uid/"
)

// Client fetches and parses GalNet pages. It issues one request at a time.
type Client struct {
	base    *url.URL
	fetcher Fetcher
	logger  *zap.Logger
}

// NewClient creates a client rooted at baseURL. A nil fetcher selects an
// HTTPFetcher with the default timeout and a nil logger discards output.
func NewClient(baseURL string, fetcher Fetcher, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}
	if fetcher == nil {
		fetcher = NewHTTPFetcher(DefaultFetchTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{base: base, fetcher: fetcher, logger: logger}, nil
}

// IndexURL returns the feed root whose listing block enumerates day pages.
func (c *Client) IndexURL() string {
	return c.base.String() + "/#"
}

// ArticleURL resolves a listing href against the base URL. The fragment is
// dropped since it is never sent to the server.
func (c *Client) ArticleURL(link ListingLink) (string, error) {
	ref, err := url.Parse(link.Href)
	if err != nil {
		return "", fmt.Errorf("invalid listing href %q: %w", link.Href, err)
	}
	resolved := c.base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String(), nil
}

// CanonicalURL returns the permalink page of the article with the given uid.
// The uid is used as it appeared in the permalink, already escaped.
func (c *Client) CanonicalURL(uid string) string {
	return c.base.String() + UIDPrefix + uid + "/"
}

// fetchDocument fetches pageURL and parses it.
func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	c.logger.Debug("Fetching page", zap.String("url", pageURL))

	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) {
			return nil, err
		}
		return nil, &NetworkError{URL: pageURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Reason: fmt.Sprintf("failed to parse HTML: %v", err)}
	}

	return doc, nil
}
