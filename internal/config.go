package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/civica/civica/internal/catalog"
	"github.com/civica/civica/internal/download"
	"github.com/civica/civica/internal/task"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

// CivicaConfig is the full user-supplied configuration, loaded from a
// YAML file with environment variable overrides. Presentation-level
// concerns (CLI flags) are mapped on to this struct by the entry
// point before Validate is called.
type CivicaConfig struct {
	// CatalogPath points at the CSV the upstream scraper produced.
	CatalogPath string `yaml:"catalog" env:"CIVICA_CATALOG" env-default:"meetings.csv" validate:"required"`

	// OutputDir is the root under which the fixed videos/, audio/ and
	// documents/ subdirectories are created.
	OutputDir string `yaml:"output_dir" env:"CIVICA_OUTPUT_DIR" env-default:"downloads" validate:"required"`

	// MeetingTypes restricts downloads to the named meeting types
	// (e.g. "regular-council", "work-session"). Empty allows all.
	MeetingTypes []string `yaml:"meeting_types" env:"CIVICA_MEETING_TYPES"`

	// Limit bounds the number of meetings processed (0 = unlimited).
	Limit int `yaml:"limit" env:"CIVICA_LIMIT" validate:"gte=0"`

	// FromDate/UntilDate optionally bound the meeting date, in
	// YYYY-MM-DD form.
	FromDate  string `yaml:"from_date" env:"CIVICA_FROM_DATE"`
	UntilDate string `yaml:"until_date" env:"CIVICA_UNTIL_DATE"`

	Include    IncludeConfig    `yaml:"include"`
	Concurrent ConcurrentConfig `yaml:"concurrency"`
	Retry      RetryConfig      `yaml:"retry"`
	HTTP       HTTPConfig       `yaml:"http"`
	Archive    ArchiveConfig    `yaml:"archive"`
}

// IncludeConfig toggles whole download categories on or off.
type IncludeConfig struct {
	Video     bool `yaml:"video" env:"CIVICA_INCLUDE_VIDEO" env-default:"true"`
	Audio     bool `yaml:"audio" env:"CIVICA_INCLUDE_AUDIO" env-default:"true"`
	Documents bool `yaml:"documents" env:"CIVICA_INCLUDE_DOCUMENTS" env-default:"true"`
}

// ConcurrentConfig tunes the fetch worker pool. The worker count is
// deliberately capped - this tool talks to a municipal host that will
// throttle or block aggressive clients.
type ConcurrentConfig struct {
	Workers           int     `yaml:"workers" env:"CIVICA_WORKERS" env-default:"4" validate:"gte=1,lte=32"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"CIVICA_RPS" env-default:"2" validate:"gt=0,lte=50"`
}

// RetryConfig shapes the transient-failure retry behaviour.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" env:"CIVICA_RETRY_ATTEMPTS" env-default:"3" validate:"gte=1,lte=10"`
	BaseDelayMS int `yaml:"base_delay_ms" env:"CIVICA_RETRY_BASE_DELAY_MS" env-default:"1000" validate:"gte=1"`
	MaxDelayMS  int `yaml:"max_delay_ms" env:"CIVICA_RETRY_MAX_DELAY_MS" env-default:"30000" validate:"gte=1"`
}

type HTTPConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"CIVICA_HTTP_TIMEOUT" env-default:"120" validate:"gte=1"`
	UserAgent      string `yaml:"user_agent" env:"CIVICA_USER_AGENT" env-default:"civica/1.0 (archive mirror)"`
}

// ArchiveConfig controls the optional completed-download archive. The
// archive only accelerates reporting; disabling it never changes
// which tasks are skipped or retried.
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled" env:"CIVICA_ARCHIVE_ENABLED" env-default:"true"`
	Filename string `yaml:"filename" env:"CIVICA_ARCHIVE_FILENAME" env-default:"archive.db"`
}

// LoadConfig reads configuration from the YAML file at configPath
// (when non-empty), applying environment overrides and defaults. An
// empty path loads from environment and defaults alone.
func LoadConfig(configPath string) (*CivicaConfig, error) {
	config := &CivicaConfig{}

	var err error
	if configPath != "" {
		err = cleanenv.ReadConfig(configPath, config)
	} else {
		err = cleanenv.ReadEnv(config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return config, nil
}

// Validate normalises user-supplied paths and checks every field
// constraint. Must be called after any CLI overrides are applied.
func (config *CivicaConfig) Validate() error {
	for _, field := range []*string{&config.CatalogPath, &config.OutputDir} {
		expanded, err := homedir.Expand(*field)
		if err != nil {
			return fmt.Errorf("failed to expand path %s: %w", *field, err)
		}
		*field = expanded
	}

	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := config.filter(); err != nil {
		return err
	}

	return nil
}

// filter materialises the filtering options as a task.Filter.
func (config *CivicaConfig) filter() (task.Filter, error) {
	filter := task.Filter{
		Limit: config.Limit,
		Categories: map[task.Category]bool{
			task.Video:    config.Include.Video,
			task.Audio:    config.Include.Audio,
			task.Document: config.Include.Documents,
		},
	}

	for _, raw := range config.MeetingTypes {
		meetingType, err := catalog.MeetingTypeFromToken(raw)
		if err != nil {
			return task.Filter{}, err
		}
		filter.Types = append(filter.Types, meetingType)
	}

	if err := parseDateBound(config.FromDate, &filter.From); err != nil {
		return task.Filter{}, err
	}
	if err := parseDateBound(config.UntilDate, &filter.Until); err != nil {
		return task.Filter{}, err
	}

	return filter, nil
}

func parseDateBound(raw string, dst *time.Time) error {
	if raw == "" {
		return nil
	}

	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return fmt.Errorf("invalid date bound %q (expected YYYY-MM-DD): %w", raw, err)
	}
	*dst = parsed

	return nil
}

func (config *CivicaConfig) retryPolicy() download.RetryPolicy {
	policy := download.DefaultRetryPolicy()
	policy.MaxAttempts = config.Retry.MaxAttempts
	policy.InitialDelay = time.Duration(config.Retry.BaseDelayMS) * time.Millisecond
	policy.MaxDelay = time.Duration(config.Retry.MaxDelayMS) * time.Millisecond

	return policy
}

func (config *CivicaConfig) archivePath() string {
	return filepath.Join(config.OutputDir, config.Archive.Filename)
}

// ensureOutputDirs creates the output root and its fixed category
// subdirectories. Failure here is systemic; the run must not start.
func (config *CivicaConfig) ensureOutputDirs() error {
	dirs := []string{config.OutputDir}
	for _, category := range []task.Category{task.Video, task.Audio, task.Document} {
		dirs = append(dirs, filepath.Join(config.OutputDir, category.Subdirectory()))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	return nil
}
