// Package source provides the concrete adapters that pull raw story
// candidates from configured sites and feeds.
package source

import (
	"fmt"
	"log/slog"

	"newsreel/internal/config"
	"newsreel/internal/ports"
)

// Factory builds one source adapter from its config entry.
type Factory func(cfg config.SourceConfig, logger *slog.Logger) (ports.Source, error)

// Registry keeps a mapping from adapter kinds to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces a factory for the given kind.
func (r *Registry) Register(kind string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[kind] = factory
}

// Resolve returns a factory by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Factory, error) {
	if factory, ok := r.factories[kind]; ok {
		return factory, nil
	}
	return nil, fmt.Errorf("source kind %q is not registered", kind)
}

// Build instantiates every configured source in priority order.
func (r *Registry) Build(cfgs []config.SourceConfig, logger *slog.Logger) ([]ports.Source, error) {
	sources := make([]ports.Source, 0, len(cfgs))
	for _, cfg := range cfgs {
		factory, err := r.Resolve(cfg.Kind)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", cfg.Name, err)
		}
		src, err := factory(cfg, logger.With("source", cfg.Name))
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", cfg.Name, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// DefaultRegistry registers the built-in adapter kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("rss", func(cfg config.SourceConfig, logger *slog.Logger) (ports.Source, error) {
		return NewRSSSource(cfg, logger), nil
	})
	r.Register("html", func(cfg config.SourceConfig, logger *slog.Logger) (ports.Source, error) {
		return NewHTMLListSource(cfg, nil, logger)
	})
	return r
}
