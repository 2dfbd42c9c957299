package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"newsreel/internal/config"
	"newsreel/internal/domain"
	"newsreel/internal/ports"
)

// RSSSource pulls candidates from one or more RSS/Atom feeds.
type RSSSource struct {
	id       string
	feeds    []string
	category string
	parser   *gofeed.Parser
	logger   *slog.Logger
}

var _ ports.Source = (*RSSSource)(nil)

// NewRSSSource wires the feed list from config.
func NewRSSSource(cfg config.SourceConfig, logger *slog.Logger) *RSSSource {
	feeds := cfg.Feeds
	if len(feeds) == 0 && cfg.URL != "" {
		feeds = []string{cfg.URL}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RSSSource{
		id:       cfg.Name,
		feeds:    feeds,
		category: cfg.Category,
		parser:   gofeed.NewParser(),
		logger:   logger,
	}
}

// ID identifies the source in dedupe and priority tables.
func (s *RSSSource) ID() string {
	return s.id
}

// Fetch parses every configured feed and merges their items up to limit.
// A single broken feed is logged and skipped; the source reports
// SourceUnavailable only when every feed fails.
func (s *RSSSource) Fetch(ctx context.Context, limit int) ([]domain.Candidate, error) {
	if len(s.feeds) == 0 {
		return nil, &domain.SourceUnavailableError{SourceID: s.id, Cause: fmt.Errorf("no feeds configured")}
	}

	var (
		candidates []domain.Candidate
		lastErr    error
		failed     int
	)

	for _, feedURL := range s.feeds {
		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			failed++
			lastErr = err
			s.logger.Warn("feed parse failed", "url", feedURL, "error", err)
			continue
		}

		for _, item := range feed.Items {
			if limit > 0 && len(candidates) >= limit {
				break
			}
			candidates = append(candidates, s.toCandidate(item))
		}
	}

	if failed == len(s.feeds) {
		return nil, &domain.SourceUnavailableError{SourceID: s.id, Cause: lastErr}
	}

	return candidates, nil
}

func (s *RSSSource) toCandidate(item *gofeed.Item) domain.Candidate {
	c := domain.Candidate{
		Headline: strings.TrimSpace(item.Title),
		Summary:  strings.TrimSpace(item.Description),
		SourceID: s.id,
		Category: s.category,
	}
	if item.PublishedParsed != nil {
		c.PublishedAt = *item.PublishedParsed
	}
	if item.Image != nil && item.Image.URL != "" {
		c.ImageURL = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
				c.ImageURL = enc.URL
				break
			}
		}
	}
	return c
}
