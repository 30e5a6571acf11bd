package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
	"github.com/tmshv/untrack/feed"
	"github.com/tmshv/untrack/internal"
	"github.com/tmshv/untrack/server"
	"github.com/tmshv/untrack/store"
	"github.com/tmshv/untrack/utils"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type App struct {
	Logger *zap.Logger
	// Store is nil when no database is configured.
	Store  store.Store
	Stdin  io.Reader
	Stdout io.Writer
}

type Globals struct {
	DB       string `help:"SQLite database keeping the history of cleaned links. Empty disables history." env:"UNTRACK_DB"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info" env:"UNTRACK_LOG_LEVEL"`
	Dev      bool   `help:"Human readable colored logs." env:"UNTRACK_DEV"`
}

type CLI struct {
	Globals

	Clean    CleanCmd    `cmd:"" help:"Remove tracking parameters from urls given as arguments or on stdin."`
	Feed     FeedCmd     `cmd:"" help:"Clean item links and contents of an RSS, Atom or JSON feed."`
	Page     PageCmd     `cmd:"" help:"Fetch an article and clean the links inside it."`
	Opml     OpmlCmd     `cmd:"" help:"Clean feed and site urls of an OPML subscription list."`
	Serve    ServeCmd    `cmd:"" help:"Serve the HTTP API."`
	History  HistoryCmd  `cmd:"" help:"Show recently cleaned links."`
	Trackers TrackersCmd `cmd:"" help:"List known trackers."`
}

type PolicyFlags struct {
	Allow  []string `help:"Trackers to keep, e.g. gclid,fbclid." short:"a" sep:","`
	Filter []string `help:"Additional parameter prefixes to remove." short:"f" sep:","`
}

func (p PolicyFlags) filters() ([]string, error) {
	allowed, err := utils.ParseAllowed(p.Allow)
	if err != nil {
		return nil, err
	}
	return append(allowed.Filters(), p.Filter...), nil
}

type CleanCmd struct {
	PolicyFlags

	Normalize bool     `help:"Also normalize scheme, host, port and dot segments."`
	JSON      bool     `help:"Print one JSON object per url." name:"json"`
	URLs      []string `arg:"" optional:"" name:"url" help:"Urls to clean. Read from stdin when omitted."`
}

type cleanOutput struct {
	Original string `json:"original"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (c *CleanCmd) Run(app *App) error {
	filters, err := c.filters()
	if err != nil {
		return err
	}

	urls := c.URLs
	if len(urls) == 0 {
		urls, err = readLines(app.Stdin)
		if err != nil {
			return err
		}
	}

	var result *multierror.Error
	enc := json.NewEncoder(app.Stdout)
	for _, raw := range urls {
		cleaned, removed, err := c.clean(raw, filters)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", raw, err))
			if c.JSON {
				if err := enc.Encode(cleanOutput{Original: raw, Error: err.Error()}); err != nil {
					return err
				}
			}
			continue
		}

		if c.JSON {
			err = enc.Encode(cleanOutput{Original: raw, URL: cleaned})
		} else {
			_, err = fmt.Fprintln(app.Stdout, cleaned)
		}
		if err != nil {
			return err
		}
		if removed > 0 {
			app.record(raw, cleaned, "cli")
		}
	}

	return result.ErrorOrNil()
}

func (c *CleanCmd) clean(raw string, filters []string) (string, int, error) {
	cleaned, removed, err := utils.FilterQueryCount(raw, filters)
	if err != nil {
		return "", 0, err
	}
	if c.Normalize {
		cleaned, err = utils.Normalize(cleaned)
	}
	return cleaned, removed, err
}

type FeedCmd struct {
	PolicyFlags

	Markdown bool   `help:"Convert item descriptions and contents to Markdown."`
	Source   string `arg:"" help:"Feed url, or - to read the feed from stdin."`
}

func (c *FeedCmd) Run(app *App) error {
	filters, err := c.filters()
	if err != nil {
		return err
	}

	cleaner := feed.NewCleaner(filters, app.Logger)
	cleaner.Markdown = c.Markdown

	var res *feed.Result
	if c.Source == "-" {
		res, err = cleaner.Clean(app.Stdin)
	} else {
		res, err = cleaner.CleanURL(context.Background(), c.Source)
	}
	if err != nil {
		return err
	}

	if app.Store != nil && res.Feed.Url != "" {
		err = app.Store.AddFeed(res.Feed.Slug, res.Feed.Url, res.Feed.Title)
		if err != nil {
			app.Logger.Warn("Failed to save feed", zap.String("feed", res.Feed.Url), zap.Error(err))
		}
	}
	for _, rec := range res.Records {
		if rec.Link != rec.OriginalLink {
			app.record(rec.OriginalLink, rec.Link, "feed:"+res.Feed.Slug)
		}
	}

	return app.print(res)
}

type PageCmd struct {
	PolicyFlags

	Markdown bool   `help:"Convert the article to Markdown."`
	URL      string `arg:"" name:"url" help:"Article url."`
}

func (c *PageCmd) Run(app *App) error {
	filters, err := c.filters()
	if err != nil {
		return err
	}

	cleaner := feed.NewCleaner(filters, app.Logger)
	cleaner.Markdown = c.Markdown

	page, err := cleaner.CleanPage(context.Background(), c.URL)
	if err != nil {
		return err
	}
	if page.Url != c.URL {
		app.record(c.URL, page.Url, "page")
	}

	return app.print(page)
}

type OpmlCmd struct {
	PolicyFlags

	Output string `help:"Write the cleaned list here instead of stdout." short:"o" type:"path"`
	File   string `arg:"" type:"existingfile" help:"OPML file."`
}

func (c *OpmlCmd) Run(app *App) error {
	filters, err := c.filters()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}

	out, n, err := feed.CleanOPML(data, filters)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.File, err)
	}
	app.Logger.Info("OPML cleaned", zap.String("file", c.File), zap.Int("cleaned", n))

	if c.Output == "" {
		_, err = app.Stdout.Write(out)
		return err
	}
	return os.WriteFile(c.Output, out, 0o644)
}

type ServeCmd struct {
	Addr string `help:"Listen address." default:":8080" env:"UNTRACK_ADDR"`
}

func (c *ServeCmd) Run(app *App) error {
	srv := server.New(app.Store, app.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		app.Logger.Info("Shutting down")
		if err := srv.Shutdown(); err != nil {
			app.Logger.Error("Failed to shut down", zap.Error(err))
		}
	}()

	return srv.Listen(c.Addr)
}

type HistoryCmd struct {
	Limit int `help:"Number of links to show, 0 for all." default:"20" short:"n"`
}

func (c *HistoryCmd) Run(app *App) error {
	if app.Store == nil {
		return errors.New("history needs a database, set --db or UNTRACK_DB")
	}

	links, err := app.Store.GetLinks(c.Limit)
	if err != nil {
		return err
	}
	for _, link := range links {
		_, err = fmt.Fprintf(app.Stdout, "%s\t%s\t%s\t%s\n",
			link.CreatedAt.Format("2006-01-02 15:04:05"), link.Source, link.Original, link.Cleaned)
		if err != nil {
			return err
		}
	}
	return nil
}

type TrackersCmd struct{}

func (c *TrackersCmd) Run(app *App) error {
	for _, tr := range utils.Trackers() {
		_, err := fmt.Fprintf(app.Stdout, "%s\t%s\t%s\n", tr.Name, tr.Prefix, tr.Family)
		if err != nil {
			return err
		}
	}
	return nil
}

func (app *App) record(original, cleaned, source string) {
	if app.Store == nil {
		return
	}
	_, err := app.Store.AddLink(internal.Link{
		Original: original,
		Cleaned:  cleaned,
		Source:   source,
	})
	if err != nil {
		app.Logger.Warn("Failed to record link", zap.String("url", original), zap.Error(err))
	}
}

func (app *App) print(v interface{}) error {
	enc := json.NewEncoder(app.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
