package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/wayfarer/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, DefaultStoreURL, c.StoreURL)
	assert.Equal(t, 100, c.BatchSize)
	assert.Equal(t, 3, c.MaxRetries)
	assert.Equal(t, 5*time.Second, c.RetryDelay)
	assert.Equal(t, 2*time.Second, c.ScrapingDelay)
	assert.Len(t, c.Plan.Destinations, 10)
	assert.Equal(t, "Tokyo", c.Plan.Destinations[0])
	assert.Equal(t, Route{Origin: "NYC", Destination: "LON"}, c.Plan.Routes[0])
	assert.Equal(t, 100, c.RateLimits["expedia"].MaxRequests)
	assert.Equal(t, 24*time.Hour, c.RateLimits["skyscanner"].Window)
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	c.ApplyEnv(envMap(map[string]string{
		EnvDatabaseURL:    "sqlite:///tmp/legacy.db",
		EnvStore:          "memory://",
		EnvExpediaKey:     "key",
		EnvExpediaSecret:  "secret",
		EnvSkyscannerKey:  "sky",
		EnvOpenAIKey:      "sk-test",
		EnvEmbeddingModel: "text-embedding-3-large",
		EnvAttractionsURL: "https://attractions.example.com/list",
	}))

	assert.Equal(t, "memory://", c.StoreURL)
	assert.Equal(t, Credentials{ExpediaKey: "key", ExpediaSecret: "secret", SkyscannerKey: "sky", OpenAIKey: "sk-test"}, c.Credentials)
	assert.Equal(t, "text-embedding-3-large", c.Embedding.Model)
	assert.Equal(t, "https://attractions.example.com/list", c.Plan.AttractionsURL)
}

func TestApplyEnv_DatabaseURLFallback(t *testing.T) {
	c := Default()
	c.ApplyEnv(envMap(map[string]string{EnvStore: "", EnvDatabaseURL: "sqlite://wayfarer.db"}))
	assert.Equal(t, "sqlite://wayfarer.db", c.StoreURL)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvStore, "memory://")
	t.Setenv(EnvOpenAIKey, "sk-env")

	c := FromEnv()
	assert.Equal(t, "memory://", c.StoreURL)
	assert.Equal(t, "sk-env", c.Credentials.OpenAIKey)
}

func TestLoad_Overlay(t *testing.T) {
	c := Default()
	err := c.Load(strings.NewReader(`
store: sqlite://travel.db
batch_size: 25
retry_delay: 250ms
embedding:
  enabled: false
rate_limits:
  expedia:
    requests: 5
    window: 1m
plan:
  destinations: [Lisbon]
  routes:
    - origin: TLV
      destination: ATH
  feeds:
    - name: travel-vlog
      url: https://www.youtube.com/feeds/videos.xml?channel_id=UC123
      categories: [video]
`))
	require.NoError(t, err)

	assert.Equal(t, "sqlite://travel.db", c.StoreURL)
	assert.Equal(t, 25, c.BatchSize)
	assert.Equal(t, 250*time.Millisecond, c.RetryDelay)
	assert.False(t, c.Embedding.Enabled)
	assert.NotEmpty(t, c.Embedding.Model, "untouched keys keep defaults")

	assert.Equal(t, 5, c.RateLimits["expedia"].MaxRequests)
	assert.Equal(t, time.Minute, c.RateLimits["expedia"].Window)
	assert.Equal(t, 1000, c.RateLimits["skyscanner"].MaxRequests, "other services keep defaults")

	assert.Equal(t, []string{"Lisbon"}, c.Plan.Destinations)
	assert.Equal(t, []Route{{Origin: "TLV", Destination: "ATH"}}, c.Plan.Routes)
	require.Len(t, c.Plan.Feeds, 1)
	assert.Equal(t, "travel-vlog", c.Plan.Feeds[0].Name)
}

func TestLoad_UnknownKey(t *testing.T) {
	err := Default().Load(strings.NewReader("batchsize: 10\n"))
	assert.ErrorIs(t, err, ErrReadFile)
}

func TestLoad_Empty(t *testing.T) {
	c := Default()
	require.NoError(t, c.Load(strings.NewReader("")))
	assert.Equal(t, Default(), c)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayfarer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 4\n"), 0o600))

	c := Default()
	require.NoError(t, c.LoadFile(path))
	assert.Equal(t, 4, c.Workers)

	err := c.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrReadFile)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Credentials.OpenAIKey = "sk-test"
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{"valid", func(*Config) {}, nil},
		{"no store", func(c *Config) { c.StoreURL = " " }, ErrMissingSetting},
		{"no embedding key", func(c *Config) { c.Credentials.OpenAIKey = "" }, ErrMissingSetting},
		{"embeddings disabled", func(c *Config) {
			c.Credentials.OpenAIKey = ""
			c.Embedding.Enabled = false
		}, nil},
		{"local embedding host", func(c *Config) {
			c.Credentials.OpenAIKey = ""
			c.Embedding.Host = "http://localhost:11434/v1"
		}, nil},
		{"no model", func(c *Config) { c.Embedding.Model = "" }, ErrMissingSetting},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, ErrInvalidSetting},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, ErrInvalidSetting},
		{"negative workers", func(c *Config) { c.Workers = -1 }, ErrInvalidSetting},
		{"negative delay", func(c *Config) { c.ScrapingDelay = -time.Second }, ErrInvalidSetting},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, ErrInvalidSetting},
		{"bad rate limit", func(c *Config) { c.RateLimits["custom"] = ratelimit.Limit{MaxRequests: 10} }, ErrInvalidSetting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestValidate_ListsAllMissing(t *testing.T) {
	c := Default()
	c.StoreURL = ""
	err := c.Validate()
	require.ErrorIs(t, err, ErrMissingSetting)
	assert.Contains(t, err.Error(), EnvStore)
	assert.Contains(t, err.Error(), EnvOpenAIKey)
}

func TestPlan_TestSubset(t *testing.T) {
	p := Default().Plan
	sub := p.TestSubset()

	assert.Equal(t, []string{"Tokyo"}, sub.Destinations)
	assert.Len(t, sub.Routes, 1)
	assert.Len(t, sub.Feeds, 1)
	assert.Equal(t, "youtube", sub.Feeds[0].Name)

	assert.Empty(t, Plan{}.TestSubset().Destinations)
}

func TestAIConfig(t *testing.T) {
	c := Default()
	c.Credentials.OpenAIKey = "sk-test"
	ac := c.AIConfig()
	require.NoError(t, ac.Validate())
	assert.Equal(t, "sk-test", ac.APIKey)
	assert.Equal(t, c.Embedding.Model, ac.EmbeddingModel)
}
