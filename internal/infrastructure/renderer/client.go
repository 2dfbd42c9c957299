// Package renderer talks to the external template/video service over HTTP.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"newsreel/internal/config"
	"newsreel/internal/domain"
	"newsreel/internal/ports"
)

// Client submits finalized stories and returns artifact references.
// 5xx responses and transport errors classify as transient; 4xx responses
// mean the service rejected the content and are permanent.
type Client struct {
	endpoint   string
	apiKey     string
	templateID string
	http       *http.Client
}

var _ ports.Renderer = (*Client)(nil)

// NewClient builds a reusable HTTP client from configuration.
func NewClient(cfg config.RendererConfig) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		templateID: cfg.TemplateID,
		http:       &http.Client{Timeout: cfg.Timeout()},
	}
}

type renderRequest struct {
	TemplateID string `json:"template_id,omitempty"`
	Headline   string `json:"headline"`
	Summary    string `json:"summary"`
	ImageURL   string `json:"image_url,omitempty"`
	Source     string `json:"source"`
	Category   string `json:"category,omitempty"`
}

type renderResponse struct {
	ArtifactRef string `json:"artifact_ref"`
}

// Render posts one story and returns the artifact reference.
func (c *Client) Render(ctx context.Context, item domain.Selected) (string, error) {
	if c.endpoint == "" {
		return "", &domain.RenderError{Reason: "renderer endpoint not configured", Permanent: true}
	}

	body, err := json.Marshal(renderRequest{
		TemplateID: c.templateID,
		Headline:   item.Headline,
		Summary:    item.Summary,
		ImageURL:   item.ImageURL,
		Source:     item.SourceID,
		Category:   item.Category,
	})
	if err != nil {
		return "", &domain.RenderError{Reason: "marshal payload", Permanent: true, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &domain.RenderError{Reason: "build request", Permanent: true, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domain.RenderError{Reason: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", &domain.RenderError{Reason: fmt.Sprintf("service error %s", resp.Status)}
	case resp.StatusCode >= http.StatusBadRequest:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &domain.RenderError{
			Reason:    fmt.Sprintf("rejected %s: %s", resp.Status, strings.TrimSpace(string(detail))),
			Permanent: true,
		}
	}

	var parsed renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.RenderError{Reason: "decode response", Cause: err}
	}
	if parsed.ArtifactRef == "" {
		return "", &domain.RenderError{Reason: "response missing artifact_ref", Permanent: true}
	}

	return parsed.ArtifactRef, nil
}
