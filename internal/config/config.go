package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config carries every external dependency and tunable the pipeline needs.
// Components receive it (or a slice of it) at construction and fail fast on
// missing requirements; nothing reads the process environment after startup.
type Config struct {
	// Model service.
	AnthropicAPIKey string
	Model           string

	// Search services. TavilyAPIKey may be empty, in which case web search
	// degrades to the keyless DuckDuckGo fallback.
	TavilyAPIKey  string
	ArxivBaseURL  string
	TavilyBaseURL string
	UserAgent     string

	// Pipeline tunables.
	MaxResultsPerQuery int
	RankBatchSize      int
	GapTopK            int
	TopN               int

	// Persistence and transport.
	DBPath     string
	ListenAddr string
	ReportDir  string

	// Tracing. Empty endpoint disables the exporter.
	OTLPEndpoint string

	// Outer bound for a whole run; zero means no deadline.
	RunTimeout time.Duration
}

const (
	DefaultModel              = "claude-sonnet-4-5-20250929"
	DefaultArxivBaseURL       = "https://export.arxiv.org/api/query"
	DefaultTavilyBaseURL      = "https://api.tavily.com"
	DefaultUserAgent          = "research-assistant/1.0"
	DefaultMaxResultsPerQuery = 10
	DefaultRankBatchSize      = 5
	DefaultGapTopK            = 10
	DefaultTopN               = 10
	DefaultDBPath             = "research-assistant.db"
	DefaultListenAddr         = ":8080"
)

// ApplyDefaults fills zero-valued tunables. Credentials are left alone;
// Validate decides whether their absence is fatal.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if strings.TrimSpace(c.ArxivBaseURL) == "" {
		c.ArxivBaseURL = DefaultArxivBaseURL
	}
	if strings.TrimSpace(c.TavilyBaseURL) == "" {
		c.TavilyBaseURL = DefaultTavilyBaseURL
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxResultsPerQuery <= 0 {
		c.MaxResultsPerQuery = DefaultMaxResultsPerQuery
	}
	if c.RankBatchSize <= 0 {
		c.RankBatchSize = DefaultRankBatchSize
	}
	if c.GapTopK <= 0 {
		c.GapTopK = DefaultGapTopK
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = DefaultDBPath
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = DefaultListenAddr
	}
}

// Validate reports missing required configuration. This is the only fatal
// error class: once a run starts, every failure degrades to a fallback.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.AnthropicAPIKey) == "" {
		problems = append(problems, "ANTHROPIC_API_KEY is required")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a loggable summary without credentials.
func (c *Config) Redacted() string {
	web := "duckduckgo-fallback"
	if strings.TrimSpace(c.TavilyAPIKey) != "" {
		web = "tavily"
	}
	return fmt.Sprintf("model=%s web_search=%s db=%s max_results=%d batch=%d top_n=%d",
		c.Model, web, c.DBPath, c.MaxResultsPerQuery, c.RankBatchSize, c.TopN)
}
