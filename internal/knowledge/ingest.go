package knowledge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// IngestURL fetches a page, extracts its readable text and ingests it.
// Returns the number of chunks stored.
func (b *Base) IngestURL(ctx context.Context, pageURL string) (int, error) {
	title, text, err := fetchReadable(ctx, pageURL)
	if err != nil {
		return 0, err
	}
	return b.IngestText(ctx, pageURL, title, text)
}

// IngestFeed parses an RSS/Atom feed and ingests up to maxItems entries,
// fetching full text for each. Returns the total number of chunks stored.
func (b *Base) IngestFeed(ctx context.Context, feedURL string, maxItems int) (int, error) {
	if maxItems <= 0 {
		maxItems = 10
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return 0, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	total := 0
	for i, item := range feed.Items {
		if i >= maxItems {
			break
		}
		link := item.Link
		if link == "" {
			link = item.GUID
		}
		if link == "" {
			continue
		}

		title, text, err := fetchReadable(ctx, link)
		if err != nil {
			// Fall back to the feed's own description when the page
			// cannot be fetched.
			text = strings.TrimSpace(item.Description)
			title = item.Title
			if text == "" {
				continue
			}
		}
		if title == "" {
			title = item.Title
		}

		n, err := b.IngestText(ctx, link, title, text)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func fetchReadable(ctx context.Context, pageURL string) (title, text string, err error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", "chatpress/1.0 (knowledge base)")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", pageURL, err)
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", "", fmt.Errorf("extracting %s: %w", pageURL, err)
	}

	text = strings.TrimSpace(article.TextContent)
	if len(text) < 100 {
		return "", "", fmt.Errorf("no extractable content at %s", pageURL)
	}
	return article.Title, text, nil
}
