// Package feed removes tracking parameters from feeds, article pages and
// OPML subscription lists.
package feed

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/mmcdole/gofeed"
	"github.com/tmshv/untrack/internal"
	"github.com/tmshv/untrack/utils"
	"go.uber.org/zap"
)

type Cleaner struct {
	Parser  *gofeed.Parser
	Client  *http.Client
	Filters []string
	// Markdown converts descriptions, contents and pages to Markdown after
	// their links are cleaned.
	Markdown bool
	Logger   *zap.Logger
}

type Result struct {
	Feed    internal.Feed     `json:"feed"`
	Records []internal.Record `json:"records"`
	// Cleaned counts rewritten item links and content attributes.
	Cleaned int `json:"cleaned"`
}

func NewCleaner(filters []string, logger *zap.Logger) *Cleaner {
	client := &http.Client{Timeout: 60 * time.Second}
	parser := gofeed.NewParser()
	parser.Client = client

	return &Cleaner{
		Parser:  parser,
		Client:  client,
		Filters: filters,
		Logger:  logger,
	}
}

func (c *Cleaner) Clean(r io.Reader) (*Result, error) {
	feed, err := c.Parser.Parse(r)
	if err != nil {
		return nil, err
	}
	return c.result(feed, feed.FeedLink), nil
}

func (c *Cleaner) CleanURL(ctx context.Context, feedURL string) (*Result, error) {
	feed, err := c.Parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}
	return c.result(feed, feedURL), nil
}

func (c *Cleaner) result(feed *gofeed.Feed, feedURL string) *Result {
	name := feed.Title
	if name == "" {
		name = feedURL
	}

	res := &Result{
		Feed: internal.Feed{
			ID:        uuid.NewString(),
			Slug:      slug.Make(name),
			Url:       feedURL,
			Title:     feed.Title,
			CreatedAt: time.Now(),
		},
		Records: make([]internal.Record, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		var rec internal.Record
		rec.ID = uuid.NewString()
		rec.FeedID = res.Feed.ID
		rec.Title = item.Title
		rec.OriginalLink = item.Link
		rec.Link = c.cleanLink(item.Link)
		if rec.Link != item.Link {
			res.Cleaned++
		}

		var n int
		rec.Description, n = c.cleanHTML(item.Description)
		res.Cleaned += n
		rec.Content, n = c.cleanHTML(item.Content)
		res.Cleaned += n

		switch {
		case item.PublishedParsed != nil:
			rec.PublishedAt = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			rec.PublishedAt = *item.UpdatedParsed
		}

		res.Records = append(res.Records, rec)
	}

	c.Logger.Debug("Feed cleaned",
		zap.String("feed", res.Feed.Slug),
		zap.Int("records", len(res.Records)),
		zap.Int("cleaned", res.Cleaned),
	)

	return res
}

// cleanLink keeps link as is when it cannot be parsed or loses no
// parameter.
func (c *Cleaner) cleanLink(link string) string {
	if link == "" {
		return link
	}
	cleaned, removed, err := utils.FilterQueryCount(link, c.Filters)
	if err != nil {
		c.Logger.Warn("Failed to clean link", zap.String("link", link), zap.Error(err))
		return link
	}
	if removed == 0 {
		return link
	}
	return cleaned
}

func (c *Cleaner) cleanHTML(html string) (string, int) {
	if html == "" {
		return html, 0
	}

	cleaned, n, err := utils.CleanLinks(html, c.Filters)
	if err != nil {
		c.Logger.Warn("Failed to clean content", zap.Error(err))
		return html, 0
	}

	if c.Markdown {
		md, err := utils.ToMarkdown(cleaned)
		if err != nil {
			c.Logger.Warn("Failed to convert content", zap.Error(err))
			return cleaned, n
		}
		return md, n
	}

	return cleaned, n
}
