package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/wayfarer/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// clearEnv unsets every variable the config reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvStore, config.EnvDatabaseURL, config.EnvExpediaKey, config.EnvExpediaSecret,
		config.EnvSkyscannerKey, config.EnvOpenAIKey, config.EnvEmbeddingHost,
		config.EnvEmbeddingModel, config.EnvAttractionsURL,
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// offlineConfigFile writes a config that keeps the run off the network.
func offlineConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wayfarer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("geocoding:\n  enabled: false\nscraping_delay: 0s\n"), 0o600))
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"wayfarer", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestRunAndMaintenanceCommands(t *testing.T) {
	clearEnv(t)
	cfgPath := offlineConfigFile(t)
	store := "sqlite://" + filepath.Join(t.TempDir(), "wayfarer.db")

	out, err := runApp(t, "--config", cfgPath, "--store", store, "run", "--test", "--embeddings=false")
	require.NoError(t, err)
	assert.Contains(t, out, "extracted: 8")
	assert.Contains(t, out, "degraded: expedia")

	out, err = runApp(t, "--store", store, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total records:")
	assert.Contains(t, out, "social")

	out, err = runApp(t, "--store", store, "dedupe")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 duplicate records")

	out, err = runApp(t, "--store", store, "prune", "--days", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 0 records older than 30 days")
}

func TestImportCommand(t *testing.T) {
	clearEnv(t)
	cfgPath := offlineConfigFile(t)
	store := "sqlite://" + filepath.Join(t.TempDir(), "wayfarer.db")
	places := filepath.Join(t.TempDir(), "places.yaml")
	require.NoError(t, os.WriteFile(places, []byte(`
- title: Carmel Market
  description: Open-air market with produce, spices and street food
  categories: [market, food]
  source_url: https://example.com/carmel-market
- title: Jaffa Old Port
  description: Restored harbor with galleries and seafood restaurants
  source_url: https://example.com/jaffa-port
`), 0o600))

	out, err := runApp(t, "--config", cfgPath, "--store", store, "import", "--embeddings=false", places)
	require.NoError(t, err)
	assert.Contains(t, out, "extracted: 2")
	assert.Contains(t, out, "inserted: 2")

	out, err = runApp(t, "--config", cfgPath, "--store", store, "import", "--embeddings=false", places)
	require.NoError(t, err)
	assert.Contains(t, out, "inserted: 0  duplicates: 2")

	out, err = runApp(t, "--store", store, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total records: 2")

	_, err = runApp(t, "--store", store, "import")
	assert.Error(t, err)
}

func TestStoreFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvDatabaseURL, "memory://")

	out, err := runApp(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total records: 0")
}

func TestCommandErrors(t *testing.T) {
	clearEnv(t)

	t.Run("run without embedding key", func(t *testing.T) {
		_, err := runApp(t, "--store", "memory://", "run", "--test")
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrMissingSetting)
	})

	t.Run("reembed without embedding key", func(t *testing.T) {
		_, err := runApp(t, "--store", "memory://", "reembed")
		assert.ErrorIs(t, err, config.ErrMissingSetting)
	})

	t.Run("reembed with bad batch size", func(t *testing.T) {
		t.Setenv(config.EnvOpenAIKey, "sk-test")
		_, err := runApp(t, "--store", "memory://", "reembed", "--batch-size", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch size")
	})

	t.Run("search without query", func(t *testing.T) {
		_, err := runApp(t, "--store", "memory://", "search")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query is required")
	})

	t.Run("search with unknown source type", func(t *testing.T) {
		_, err := runApp(t, "--store", "memory://", "search", "--source-type", "fax", "hotels")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown source type")
	})

	t.Run("prune with zero days", func(t *testing.T) {
		_, err := runApp(t, "--store", "memory://", "prune", "--days", "0")
		assert.Error(t, err)
	})

	t.Run("unsupported store", func(t *testing.T) {
		_, err := runApp(t, "--store", "postgres://localhost/travel", "stats")
		assert.Error(t, err)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := runApp(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "stats")
		assert.ErrorIs(t, err, config.ErrReadFile)
	})
}

func TestReembedOnEmptyStore(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvOpenAIKey, "sk-test")

	out, err := runApp(t, "--store", "memory://", "reembed")
	require.NoError(t, err)
	assert.Contains(t, out, "Embedded 0 of 0 records")
}

func TestCommandFlags(t *testing.T) {
	app := newApp()
	byName := make(map[string]*cli.Command)
	for _, cmd := range app.Commands {
		byName[cmd.Name] = cmd
	}
	for _, name := range []string{"run", "import", "stats", "prune", "dedupe", "search", "reembed"} {
		assert.Contains(t, byName, name)
	}

	t.Run("prune defaults to 90 days", func(t *testing.T) {
		for _, flag := range byName["prune"].Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "days" {
				assert.Equal(t, 90, f.Value)
				return
			}
		}
		t.Fatal("days flag not found")
	})

	t.Run("embeddings default on", func(t *testing.T) {
		for _, flag := range byName["run"].Flags {
			if f, ok := flag.(*cli.BoolFlag); ok && f.Name == "embeddings" {
				assert.True(t, f.Value)
				return
			}
		}
		t.Fatal("embeddings flag not found")
	})

	t.Run("store reads env", func(t *testing.T) {
		for _, flag := range app.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "store" {
				assert.Equal(t, []string{config.EnvStore, config.EnvDatabaseURL}, f.EnvVars)
				return
			}
		}
		t.Fatal("store flag not found")
	})
}

func TestSetupLogger(t *testing.T) {
	newLoggerApp := func(action cli.ActionFunc) *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: setupLogger,
			Action: action,
		}
	}
	noop := func(c *cli.Context) error { return nil }

	t.Run("valid log levels", func(t *testing.T) {
		for _, tc := range []string{"debug", "info", "warn", "error", "DEBUG", "Info"} {
			t.Run(tc, func(t *testing.T) {
				require.NoError(t, newLoggerApp(noop).Run([]string{"test", "--log-level", tc}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newLoggerApp(noop).Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		app := newLoggerApp(func(c *cli.Context) error {
			assert.Equal(t, "debug", c.String("log-level"))
			return nil
		})
		require.NoError(t, app.Run([]string{"test", "-l", "debug"}))
	})
}
