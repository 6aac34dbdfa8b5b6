package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	c := &Config{}
	c.ApplyDefaults()

	assert.Equal(t, DefaultModel, c.Model)
	assert.Equal(t, DefaultArxivBaseURL, c.ArxivBaseURL)
	assert.Equal(t, DefaultMaxResultsPerQuery, c.MaxResultsPerQuery)
	assert.Equal(t, DefaultRankBatchSize, c.RankBatchSize)
	assert.Equal(t, DefaultTopN, c.TopN)
	assert.Equal(t, DefaultDBPath, c.DBPath)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	c := &Config{Model: "claude-haiku", MaxResultsPerQuery: 3}
	c.ApplyDefaults()

	assert.Equal(t, "claude-haiku", c.Model)
	assert.Equal(t, 3, c.MaxResultsPerQuery)
}

func TestValidateRequiresModelKey(t *testing.T) {
	c := &Config{}
	c.ApplyDefaults()
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	c.AnthropicAPIKey = "sk-test"
	require.NoError(t, c.Validate())
}

func TestRedactedOmitsCredentials(t *testing.T) {
	c := &Config{AnthropicAPIKey: "sk-secret", TavilyAPIKey: "tvly-secret"}
	c.ApplyDefaults()

	out := c.Redacted()
	require.NotContains(t, out, "secret")
	assert.True(t, strings.Contains(out, "web_search=tavily"))
}
