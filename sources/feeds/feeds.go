// Package feeds turns RSS and Atom feeds, such as YouTube channel feeds,
// into social post records.
package feeds

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/sources"
)

const (
	// Name is the default adapter identity written to source_name.
	Name = "feeds"
	// DefaultService is the rate-limit bucket used when a feed names none.
	DefaultService = "youtube"
)

// FeedQuery describes one feed. Categories are appended to every post.
type FeedQuery struct {
	Name       string   `yaml:"name"`
	URL        string   `yaml:"url"`
	Service    string   `yaml:"service"`
	Categories []string `yaml:"categories"`
}

func (q FeedQuery) sourceName() string {
	return cmp.Or(q.Name, Name)
}

func (q FeedQuery) service() string {
	return cmp.Or(q.Service, DefaultService)
}

// Adapter extracts posts from syndication feeds.
type Adapter struct {
	http   *sources.HTTPClient
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter) error

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) error {
		a.now = now
		return nil
	}
}

// WithLogger sets the logger for the adapter.
// If not provided, slog.Default() will be used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) error {
		a.logger = logger
		return nil
	}
}

// New creates a feed adapter.
func New(client *sources.HTTPClient, opts ...Option) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil http client", sources.ErrInvalidOption)
	}
	a := &Adapter{http: client, now: time.Now}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("source", Name)
	return a, nil
}

// Task wraps ExtractPosts for the orchestrator.
func (a *Adapter) Task(q FeedQuery) sources.Task {
	return sources.Task{
		Source:  q.sourceName(),
		Service: q.service(),
		Label:   "posts from " + q.sourceName(),
		Extract: func(ctx context.Context) sources.Result {
			return a.ExtractPosts(ctx, q)
		},
	}
}

// ExtractPosts fetches and parses one feed.
func (a *Adapter) ExtractPosts(ctx context.Context, q FeedQuery) sources.Result {
	logger := a.logger.With("feed", q.sourceName())
	if q.URL == "" {
		logger.Warn("feed URL not configured, returning mock data")
		return sources.Fallback(a.Fixtures(q), sources.ErrNotConfigured)
	}

	body, err := a.http.Get(ctx, q.URL, nil)
	if err != nil {
		logger.Error("error fetching feed", "url", q.URL, "err", err)
		return sources.Fallback(a.Fixtures(q), err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		err = fmt.Errorf("%w: %w", sources.ErrDecode, err)
		logger.Error("error parsing feed", "url", q.URL, "err", err)
		return sources.Fallback(a.Fixtures(q), err)
	}

	extractedAt := a.now().Format(time.RFC3339Nano)
	posts := make([]core.RawRecord, 0, len(feed.Items))
	for i, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Title) == "" {
			logger.Warn("skipping feed item without title", "index", i)
			continue
		}
		posts = append(posts, a.post(q, item, extractedAt))
	}
	return sources.Live(posts)
}

func (a *Adapter) post(q FeedQuery, item *gofeed.Item, extractedAt string) core.RawRecord {
	categories := make([]string, 0, len(item.Categories)+len(q.Categories))
	categories = append(categories, item.Categories...)
	categories = append(categories, q.Categories...)

	rec := core.RawRecord{
		core.FieldSourceType:  string(core.SourceTypeSocial),
		core.FieldSourceName:  q.sourceName(),
		core.FieldTitle:       item.Title,
		core.FieldDescription: cmp.Or(item.Description, mediaDescription(item)),
		"url":                 item.Link,
		core.FieldCategories:  categories,
		core.FieldExtractedAt: extractedAt,
		core.FieldRawData: map[string]any{
			"guid":  cmp.Or(item.GUID, item.Link),
			"feed":  q.sourceName(),
			"links": item.Links,
		},
	}
	if img := firstImage(item); img != "" {
		rec["image"] = img
	}
	if item.PublishedParsed != nil {
		rec["published_at"] = item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if item.Author != nil && item.Author.Name != "" {
		rec["author"] = item.Author.Name
	}
	return rec
}

// firstImage prefers the item image, then an image enclosure, then a
// media:thumbnail as published by YouTube.
func firstImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if thumb := mediaChild(item, "thumbnail"); thumb != nil {
		return thumb.Attrs["url"]
	}
	return ""
}

func mediaDescription(item *gofeed.Item) string {
	if desc := mediaChild(item, "description"); desc != nil {
		return desc.Value
	}
	return ""
}

// mediaChild looks up media:group/media:<name>, falling back to a top level media:<name>.
func mediaChild(item *gofeed.Item, name string) *ext.Extension {
	media, ok := item.Extensions["media"]
	if !ok {
		return nil
	}
	for _, group := range media["group"] {
		if children := group.Children[name]; len(children) > 0 {
			return &children[0]
		}
	}
	if direct := media[name]; len(direct) > 0 {
		return &direct[0]
	}
	return nil
}
