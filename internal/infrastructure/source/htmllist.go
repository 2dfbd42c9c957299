package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsreel/internal/config"
	"newsreel/internal/domain"
	"newsreel/internal/ports"
)

const defaultUserAgent = "newsreel/1.0"

// HTMLListSource extracts candidates from a site's listing page using
// configured CSS selectors (stories container, headline, image, summary).
type HTMLListSource struct {
	id        string
	pageURL   string
	category  string
	selectors config.SelectorConfig
	client    *http.Client
	logger    *slog.Logger
}

var _ ports.Source = (*HTMLListSource)(nil)

// NewHTMLListSource validates the selector config and wires an HTTP client.
func NewHTMLListSource(cfg config.SourceConfig, client *http.Client, logger *slog.Logger) (*HTMLListSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("html source %s: url is required", cfg.Name)
	}
	if cfg.Selectors.Stories == "" || cfg.Selectors.Headline == "" {
		return nil, fmt.Errorf("html source %s: stories and headline selectors are required", cfg.Name)
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLListSource{
		id:        cfg.Name,
		pageURL:   cfg.URL,
		category:  cfg.Category,
		selectors: cfg.Selectors,
		client:    client,
		logger:    logger,
	}, nil
}

// ID identifies the source in dedupe and priority tables.
func (s *HTMLListSource) ID() string {
	return s.id
}

// Fetch downloads the listing page and extracts up to limit candidates.
func (s *HTMLListSource) Fetch(ctx context.Context, limit int) ([]domain.Candidate, error) {
	doc, err := s.fetchDocument(ctx)
	if err != nil {
		return nil, &domain.SourceUnavailableError{SourceID: s.id, Cause: err}
	}

	var candidates []domain.Candidate
	doc.Find(s.selectors.Stories).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if limit > 0 && len(candidates) >= limit {
			return false
		}

		headline := strings.TrimSpace(sel.Find(s.selectors.Headline).First().Text())
		if headline == "" {
			return true
		}

		c := domain.Candidate{
			Headline: headline,
			SourceID: s.id,
			Category: s.category,
		}
		if s.selectors.Summary != "" {
			c.Summary = strings.TrimSpace(sel.Find(s.selectors.Summary).First().Text())
		}
		if s.selectors.Image != "" {
			if src, ok := sel.Find(s.selectors.Image).First().Attr("src"); ok {
				c.ImageURL = s.absoluteURL(src)
			}
		}

		candidates = append(candidates, c)
		return true
	})

	s.logger.Debug("listing page extracted", "url", s.pageURL, "candidates", len(candidates))
	return candidates, nil
}

func (s *HTMLListSource) fetchDocument(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}
	return doc, nil
}

// absoluteURL resolves protocol-relative and path-relative image refs
// against the listing page.
func (s *HTMLListSource) absoluteURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if parsed.IsAbs() {
		return ref
	}
	base, err := url.Parse(s.pageURL)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}
