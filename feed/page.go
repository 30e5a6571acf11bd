package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cixtor/readability"
	"github.com/tmshv/untrack/internal"
	"go.uber.org/zap"
)

// CleanPage fetches an article, extracts its readable content and removes
// tracking parameters from the page url and every link inside it.
func (c *Cleaner) CleanPage(ctx context.Context, pageURL string) (*internal.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got %d for %s", res.StatusCode, pageURL)
	}

	r := readability.New()
	a, err := r.Parse(res.Body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	content, n := c.cleanHTML(a.Content)
	link := c.cleanLink(pageURL)
	if link != pageURL {
		n++
	}
	c.Logger.Debug("Page cleaned", zap.String("url", pageURL), zap.Int("cleaned", n))

	return &internal.Page{
		Url:       link,
		Title:     a.Title,
		Content:   content,
		Cleaned:   n,
		CreatedAt: time.Now(),
	}, nil
}
