package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone    = "UTC"
	configPathEnv      = "NEWSREEL_CONFIG"
	stateDirEnv        = "NEWSREEL_STATE_DIR"
	rendererURLEnv     = "RENDERER_ENDPOINT"
	rendererAPIKeyEnv  = "RENDERER_API_KEY"
	rendererTplEnv     = "RENDERER_TEMPLATE_ID"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	maxItemsEnv        = "NEWSREEL_MAX_ITEMS"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Renderer      RendererConfig     `yaml:"renderer"`
	Storage       StorageConfig      `yaml:"storage"`
	Scoring       ScoringConfig      `yaml:"scoring"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SchedulerConfig defines when the daily run should fire.
type SchedulerConfig struct {
	DailyTime string         `yaml:"dailyTime"` // "HH:MM" in the configured timezone
	Timezone  string         `yaml:"timezone"`
	location  *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig bounds one run: item budget, concurrency, and retry policy.
type PipelineConfig struct {
	MaxItems          int `yaml:"maxItems"`     // stories rendered per run
	FetchLimit        int `yaml:"fetchLimit"`   // candidates requested per source
	Concurrency       int `yaml:"concurrency"`  // parallel fetch/dispatch bound
	StageAttempts     int `yaml:"stageAttempts"`
	StageDelaySec     int `yaml:"stageDelaySeconds"`
	RenderAttempts    int `yaml:"renderAttempts"`
	RenderDelaySec    int `yaml:"renderDelaySeconds"`
}

// StageDelay returns the delay between stage-level retry attempts.
func (p PipelineConfig) StageDelay() time.Duration {
	return time.Duration(p.StageDelaySec) * time.Second
}

// RenderDelay returns the delay between render retry attempts.
func (p PipelineConfig) RenderDelay() time.Duration {
	return time.Duration(p.RenderDelaySec) * time.Second
}

// RendererConfig describes the external template/video service endpoint.
type RendererConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"apiKey"`
	TemplateID string `yaml:"templateId"`
	TimeoutSec int    `yaml:"timeoutSeconds"`
}

// Timeout returns the per-request renderer timeout.
func (r RendererConfig) Timeout() time.Duration {
	if r.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.TimeoutSec) * time.Second
}

// StorageConfig points at the directory holding persistent run state.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// RuleConfig tunes one validation rule: its weight in the aggregate score
// and whether a failure vetoes acceptance outright.
type RuleConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
	Hard   bool    `yaml:"hard"`
}

// ScoringConfig drives the validator: acceptance threshold, rule bounds,
// keyword filters, and per-rule weights.
type ScoringConfig struct {
	Threshold      float64      `yaml:"threshold"`
	HeadlineMin    int          `yaml:"headlineMin"`
	HeadlineMax    int          `yaml:"headlineMax"`
	SummaryMin     int          `yaml:"summaryMin"`
	SummaryMax     int          `yaml:"summaryMax"`
	BannedKeywords []string     `yaml:"bannedKeywords"`
	AllowedSources []string     `yaml:"allowedSources"` // empty = all sources allowed
	Rules          []RuleConfig `yaml:"rules"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send run summaries.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SelectorConfig holds the CSS selectors for an HTML list source.
type SelectorConfig struct {
	Stories  string `yaml:"stories"`
	Headline string `yaml:"headline"`
	Image    string `yaml:"image"`
	Summary  string `yaml:"summary"`
}

// SourceConfig describes a single source with its adapter kind. Slice order
// in Config.Sources is the fixed priority ranking used for dedupe tie-breaks
// and selection ordering: earlier entries win.
type SourceConfig struct {
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind"` // "rss" or "html"
	URL       string         `yaml:"url"`
	Feeds     []string       `yaml:"feeds"`
	Category  string         `yaml:"category"`
	Selectors SelectorConfig `yaml:"selectors"`
}

// SourcePriority returns source names in configured priority order.
func (c Config) SourcePriority() []string {
	names := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		names = append(names, s.Name)
	}
	return names
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}
	if len(cfg.Scoring.Rules) == 0 {
		cfg.Scoring.Rules = defaultConfig().Scoring.Rules
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(stateDirEnv); v != "" {
		c.Storage.Dir = v
	}

	if v := os.Getenv(rendererURLEnv); v != "" {
		c.Renderer.Endpoint = v
	}
	if v := os.Getenv(rendererAPIKeyEnv); v != "" {
		c.Renderer.APIKey = v
	}
	if v := os.Getenv(rendererTplEnv); v != "" {
		c.Renderer.TemplateID = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(maxItemsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.MaxItems = n
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Scheduler.DailyTime != "" {
		base.Scheduler.DailyTime = override.Scheduler.DailyTime
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Pipeline.MaxItems > 0 {
		base.Pipeline.MaxItems = override.Pipeline.MaxItems
	}
	if override.Pipeline.FetchLimit > 0 {
		base.Pipeline.FetchLimit = override.Pipeline.FetchLimit
	}
	if override.Pipeline.Concurrency > 0 {
		base.Pipeline.Concurrency = override.Pipeline.Concurrency
	}
	if override.Pipeline.StageAttempts > 0 {
		base.Pipeline.StageAttempts = override.Pipeline.StageAttempts
	}
	if override.Pipeline.StageDelaySec > 0 {
		base.Pipeline.StageDelaySec = override.Pipeline.StageDelaySec
	}
	if override.Pipeline.RenderAttempts > 0 {
		base.Pipeline.RenderAttempts = override.Pipeline.RenderAttempts
	}
	if override.Pipeline.RenderDelaySec > 0 {
		base.Pipeline.RenderDelaySec = override.Pipeline.RenderDelaySec
	}

	if override.Renderer.Endpoint != "" {
		base.Renderer.Endpoint = override.Renderer.Endpoint
	}
	if override.Renderer.APIKey != "" {
		base.Renderer.APIKey = override.Renderer.APIKey
	}
	if override.Renderer.TemplateID != "" {
		base.Renderer.TemplateID = override.Renderer.TemplateID
	}
	if override.Renderer.TimeoutSec > 0 {
		base.Renderer.TimeoutSec = override.Renderer.TimeoutSec
	}

	if override.Storage.Dir != "" {
		base.Storage = override.Storage
	}

	if override.Scoring.Threshold > 0 {
		base.Scoring.Threshold = override.Scoring.Threshold
	}
	if override.Scoring.HeadlineMin > 0 {
		base.Scoring.HeadlineMin = override.Scoring.HeadlineMin
	}
	if override.Scoring.HeadlineMax > 0 {
		base.Scoring.HeadlineMax = override.Scoring.HeadlineMax
	}
	if override.Scoring.SummaryMin > 0 {
		base.Scoring.SummaryMin = override.Scoring.SummaryMin
	}
	if override.Scoring.SummaryMax > 0 {
		base.Scoring.SummaryMax = override.Scoring.SummaryMax
	}
	if len(override.Scoring.BannedKeywords) > 0 {
		base.Scoring.BannedKeywords = override.Scoring.BannedKeywords
	}
	if len(override.Scoring.AllowedSources) > 0 {
		base.Scoring.AllowedSources = override.Scoring.AllowedSources
	}
	if len(override.Scoring.Rules) > 0 {
		base.Scoring.Rules = override.Scoring.Rules
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{DailyTime: "06:00", Timezone: defaultTimezone, location: tz},
		Pipeline: PipelineConfig{
			MaxItems:       4,
			FetchLimit:     10,
			Concurrency:    4,
			StageAttempts:  3,
			StageDelaySec:  5,
			RenderAttempts: 3,
			RenderDelaySec: 60,
		},
		Renderer: RendererConfig{
			Endpoint:   "https://render.example.org/v1/videos",
			TimeoutSec: 30,
		},
		Storage: StorageConfig{Dir: "state"},
		Scoring: ScoringConfig{
			Threshold:   0.6,
			HeadlineMin: 10,
			HeadlineMax: 100,
			SummaryMin:  50,
			SummaryMax:  1200,
			Rules: []RuleConfig{
				{Name: "has_image", Weight: 0.3, Hard: true},
				{Name: "headline_length", Weight: 0.4},
				{Name: "summary_length", Weight: 0.2},
				{Name: "no_banned_keywords", Weight: 0.05, Hard: true},
				{Name: "source_allowed", Weight: 0.05, Hard: true},
			},
		},
		Sources: []SourceConfig{
			{
				Name: "crime-desk",
				Kind: "html",
				URL:  "https://news.example.org/topic/crime",
				Selectors: SelectorConfig{
					Stories:  "article",
					Headline: "h2, h3",
					Image:    "img",
					Summary:  "p",
				},
				Category: "crime",
			},
			{
				Name:     "wire-feed",
				Kind:     "rss",
				Feeds:    []string{"https://news.example.org/rss/crime.xml"},
				Category: "crime",
			},
		},
	}
}
