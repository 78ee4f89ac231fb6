package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/civica/civica/internal/catalog"
	"github.com/civica/civica/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "meetings.csv", config.CatalogPath)
	assert.Equal(t, "downloads", config.OutputDir)
	assert.Equal(t, 4, config.Concurrent.Workers)
	assert.Equal(t, float64(2), config.Concurrent.RequestsPerSecond)
	assert.Equal(t, 3, config.Retry.MaxAttempts)
	assert.True(t, config.Include.Video)
	assert.True(t, config.Include.Audio)
	assert.True(t, config.Include.Documents)
	assert.True(t, config.Archive.Enabled)
	assert.Equal(t, "archive.db", config.Archive.Filename)
}

func TestLoadConfig_YAMLFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "civica.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog: /data/meetings.csv
limit: 5
concurrency:
  workers: 8
`), 0o644))

	t.Setenv("CIVICA_OUTPUT_DIR", "/data/downloads")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/meetings.csv", config.CatalogPath)
	assert.Equal(t, "/data/downloads", config.OutputDir, "environment must override the file")
	assert.Equal(t, 5, config.Limit)
	assert.Equal(t, 8, config.Concurrent.Workers)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CivicaConfig)
	}{
		{"zero workers", func(c *CivicaConfig) { c.Concurrent.Workers = 0 }},
		{"excessive workers", func(c *CivicaConfig) { c.Concurrent.Workers = 64 }},
		{"zero request rate", func(c *CivicaConfig) { c.Concurrent.RequestsPerSecond = 0 }},
		{"zero retry attempts", func(c *CivicaConfig) { c.Retry.MaxAttempts = 0 }},
		{"negative limit", func(c *CivicaConfig) { c.Limit = -1 }},
		{"unknown meeting type", func(c *CivicaConfig) { c.MeetingTypes = []string{"bogus"} }},
		{"malformed date bound", func(c *CivicaConfig) { c.FromDate = "17/01/2023" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config, err := LoadConfig("")
			require.NoError(t, err)

			test.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.NoError(t, config.Validate())
}

func TestFilter_MaterialisesConfiguredOptions(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	config.MeetingTypes = []string{"work-session", "regular-council"}
	config.FromDate = "2023-01-01"
	config.UntilDate = "2023-06-30"
	config.Limit = 3
	config.Include.Audio = false

	filter, err := config.filter()
	require.NoError(t, err)

	assert.ElementsMatch(t, []catalog.MeetingType{catalog.WorkSession, catalog.RegularCouncil}, filter.Types)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), filter.From)
	assert.Equal(t, time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), filter.Until)
	assert.Equal(t, 3, filter.Limit)
	assert.False(t, filter.Categories[task.Audio])
	assert.True(t, filter.Categories[task.Video])
}

func TestFilter_SingleDayWindowKeepsBothBounds(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	config.FromDate = "2023-01-10"
	config.UntilDate = "2023-01-10"

	filter, err := config.filter()
	require.NoError(t, err)

	day := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day, filter.From, "a same-day window must still set the lower bound")
	assert.Equal(t, day, filter.Until)
}

func TestEnsureOutputDirs(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	config.OutputDir = filepath.Join(t.TempDir(), "out")

	require.NoError(t, config.ensureOutputDirs())
	for _, sub := range []string{"videos", "audio", "documents"} {
		info, err := os.Stat(filepath.Join(config.OutputDir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
