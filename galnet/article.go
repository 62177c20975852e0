package galnet

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// PlaceholderTitle stands in for headings with no text.
const PlaceholderTitle = "No Title Available"

// Entry is the scraped part of an article: everything except its dates.
type Entry struct {
	Title string
	UID   string
	Text  string
}

// ExtractionError is returned when a page lacks the markup the extractor
// relies on.
type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
}

// heading is a title heading found on a day page, before its body is
// fetched.
type heading struct {
	title string
	uid   string
}

// Extract fetches articleURL and returns its first article.
func (c *Client) Extract(ctx context.Context, articleURL string) (*Entry, error) {
	headings, err := c.headings(ctx, articleURL)
	if err != nil {
		return nil, err
	}

	entry, err := c.entry(ctx, headings[0])
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ExtractAll fetches a day page and returns one entry per title heading, in
// document order. Each body comes from the article's canonical page.
func (c *Client) ExtractAll(ctx context.Context, articleURL string) ([]Entry, error) {
	var entries []Entry
	err := c.EachEntry(ctx, articleURL, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// EachEntry fetches a day page and calls fn with each article in document
// order. The body of an article is fetched only after fn has returned for
// the one before it, so a later failure leaves earlier calls in effect. An
// error from fn stops the walk and is returned as is.
func (c *Client) EachEntry(ctx context.Context, articleURL string, fn func(Entry) error) error {
	headings, err := c.headings(ctx, articleURL)
	if err != nil {
		return err
	}

	for _, h := range headings {
		entry, err := c.entry(ctx, h)
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}

	return nil
}

// headings fetches a day page and reads the title and uid of every article
// heading on it.
func (c *Client) headings(ctx context.Context, articleURL string) ([]heading, error) {
	doc, err := c.fetchDocument(ctx, articleURL)
	if err != nil {
		return nil, err
	}

	selection := doc.Find(TitleSelector)
	if selection.Length() == 0 {
		return nil, &ExtractionError{URL: articleURL, Reason: "no article title heading"}
	}

	headings := make([]heading, 0, selection.Length())
	var extractErr error
	selection.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Find("a").First().Attr("href")
		if !ok {
			extractErr = &ExtractionError{URL: articleURL, Reason: "title heading has no permalink"}
			return false
		}
		uid, err := ParseUID(href)
		if err != nil {
			extractErr = &ExtractionError{URL: articleURL, Reason: err.Error()}
			return false
		}

		headings = append(headings, heading{
			title: normalizeTitle(s.Text()),
			uid:   uid,
		})
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	return headings, nil
}

// entry fetches the canonical page of h and reads the body paragraph.
func (c *Client) entry(ctx context.Context, h heading) (Entry, error) {
	canonical := c.CanonicalURL(h.uid)
	doc, err := c.fetchDocument(ctx, canonical)
	if err != nil {
		return Entry{}, err
	}

	// The first paragraph on the permalink page is the date line.
	body := doc.Find("p").Eq(1)
	if body.Length() == 0 {
		return Entry{}, &ExtractionError{URL: canonical, Reason: "no body paragraph"}
	}

	c.logger.Debug("Extracted article",
		zap.String("uid", h.uid),
		zap.String("title", h.title),
	)

	return Entry{
		Title: h.title,
		UID:   h.uid,
		Text:  DecodeText(body.Text()),
	}, nil
}

// ParseUID returns the identifier that follows /galnet/uid/ in a permalink,
// exactly as it appears in the href: percent-escapes are kept.
func ParseUID(href string) (string, error) {
	p := href
	if !strings.HasPrefix(p, UIDPrefix) {
		if u, err := url.Parse(href); err == nil {
			p = u.EscapedPath()
		}
	}

	uid, ok := strings.CutPrefix(p, UIDPrefix)
	if !ok {
		return "", fmt.Errorf("permalink %q does not start with %s", href, UIDPrefix)
	}
	if i := strings.IndexAny(uid, "?#"); i >= 0 {
		uid = uid[:i]
	}
	uid = strings.Trim(uid, "/")
	if uid == "" {
		return "", fmt.Errorf("permalink %q has an empty uid", href)
	}

	return uid, nil
}

// normalizeTitle trims a heading and substitutes the placeholder for blank
// ones.
func normalizeTitle(text string) string {
	title := strings.TrimSpace(text)
	if title == "" {
		return PlaceholderTitle
	}
	return title
}

// DecodeText undoes percent-encoding in article bodies. Each valid %XX
// escape is decoded on its own; a "%" not followed by two hex digits (a
// bare "50%") is kept as is. Plus signs are left alone.
func DecodeText(text string) string {
	if !strings.Contains(text, "%") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '%' && i+2 < len(text) && isHex(text[i+1]) && isHex(text[i+2]) {
			b.WriteByte(unhex(text[i+1])<<4 | unhex(text[i+2]))
			i += 2
			continue
		}
		b.WriteByte(text[i])
	}

	return strings.ToValidUTF8(b.String(), "\uFFFD")
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
