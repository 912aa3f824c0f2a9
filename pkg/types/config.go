package types

import (
	"errors"
	"fmt"
	"time"
)

// Configuration validation errors.
var (
	ErrNoSources         = errors.New("at least one source must be enabled")
	ErrMissingBaseURL    = errors.New("base_url is required for an enabled source")
	ErrInvalidPageSize   = errors.New("page_size must be greater than zero")
	ErrInvalidMaxPages   = errors.New("max_pages must be greater than zero")
	ErrInvalidRetry      = errors.New("retry attempts must be at least 1")
	ErrInvalidSummaryLen = errors.New("summary_length must be greater than zero")
	ErrInvalidLogLevel   = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrUnknownDriver     = errors.New("store.driver must be sqlite3 or postgres")
	ErrInvalidInterval   = errors.New("schedule.interval must be positive")
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds each individual request (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries is the total number of attempts per request (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryDelay is multiplied by the attempt number between attempts (default 1s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`
}

// SourceConfig holds settings for one upstream source API.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Enabled controls whether the orchestrator collects from this source.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// BaseURL is the list endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// DetailURL is the single-item endpoint; empty disables FetchDetail.
	DetailURL string `json:"detail_url,omitempty" yaml:"detail_url,omitempty" mapstructure:"detail_url"`

	// APIKey is sent with every request. Usually loaded from .secrets/.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// PageSize is the number of items requested per page.
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// MaxPages caps the pagination loop.
	MaxPages int `json:"max_pages" yaml:"max_pages" mapstructure:"max_pages"`

	// PageDelay is the courtesy pause between successful page fetches.
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay" mapstructure:"page_delay"`

	// LookbackDays is the collection window for sources that accept a date range.
	LookbackDays int `json:"lookback_days,omitempty" yaml:"lookback_days,omitempty" mapstructure:"lookback_days"`

	// FetchDetails enriches each list item with the detail endpoint.
	FetchDetails bool `json:"fetch_details" yaml:"fetch_details" mapstructure:"fetch_details"`
}

// SourcesConfig groups the three upstream sources.
type SourcesConfig struct {
	News    SourceConfig `json:"news" yaml:"news" mapstructure:"news"`
	Welfare SourceConfig `json:"welfare" yaml:"welfare" mapstructure:"welfare"`
	Youth   SourceConfig `json:"youth" yaml:"youth" mapstructure:"youth"`
}

// For returns the configuration of the given source type.
func (s SourcesConfig) For(t SourceType) SourceConfig {
	switch t {
	case SourceWelfare:
		return s.Welfare
	case SourceYouth:
		return s.Youth
	default:
		return s.News
	}
}

// NormalizeConfig holds settings for the normalization stage.
type NormalizeConfig struct {
	// SummaryLength is the maximum derived summary length in characters (default 200).
	SummaryLength int `json:"summary_length" yaml:"summary_length" mapstructure:"summary_length"`

	// Timezone applies to source dates without an explicit zone (default Asia/Seoul).
	Timezone string `json:"timezone" yaml:"timezone" mapstructure:"timezone"`
}

// ClassifyConfig holds settings for the category classifier.
type ClassifyConfig struct {
	// KeywordsFile optionally replaces the built-in keyword table (YAML).
	KeywordsFile string `json:"keywords_file,omitempty" yaml:"keywords_file,omitempty" mapstructure:"keywords_file"`
}

// StoreConfig describes the relational store connection.
type StoreConfig struct {
	// Driver is "sqlite3" (default) or "postgres".
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is the database path (sqlite3) or connection string (postgres).
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`

	// BucketDir is the directory backing blob uploads for visual assets.
	BucketDir string `json:"bucket_dir" yaml:"bucket_dir" mapstructure:"bucket_dir"`
}

// PersistConfig holds the retry policy wrapped around store mutations.
type PersistConfig struct {
	// RetryAttempts is the total number of attempts per operation (default 3).
	RetryAttempts int `json:"retry_attempts" yaml:"retry_attempts" mapstructure:"retry_attempts"`

	// RetryDelay is multiplied by the attempt number between attempts (default 1s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// EnhanceConfig holds settings for the optional AI enhancement collaborator.
type EnhanceConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Enabled turns enhancement on; it is also skipped when no API key is set.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Timeout bounds each enhancement call (default 20s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ScheduleConfig holds settings for the scheduled and on-demand triggers.
type ScheduleConfig struct {
	// Interval between scheduled runs (default 6h).
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`

	// RunOnStart triggers a run as soon as the scheduler starts.
	RunOnStart bool `json:"run_on_start" yaml:"run_on_start" mapstructure:"run_on_start"`

	// ListenAddr is the address of the on-demand trigger server.
	ListenAddr string `json:"listen_addr" yaml:"listen_addr" mapstructure:"listen_addr"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Sources   SourcesConfig   `json:"sources" yaml:"sources" mapstructure:"sources"`
	Normalize NormalizeConfig `json:"normalize" yaml:"normalize" mapstructure:"normalize"`
	Classify  ClassifyConfig  `json:"classify" yaml:"classify" mapstructure:"classify"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Persist   PersistConfig   `json:"persist" yaml:"persist" mapstructure:"persist"`
	Enhance   EnhanceConfig   `json:"enhance" yaml:"enhance" mapstructure:"enhance"`
	Schedule  ScheduleConfig  `json:"schedule" yaml:"schedule" mapstructure:"schedule"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// DefaultUserAgent is sent with every upstream request unless overridden.
const DefaultUserAgent = "policy-feed/0.1"

func defaultHTTP() HTTPConfig {
	return HTTPConfig{
		Timeout:    30 * time.Second,
		UserAgent:  DefaultUserAgent,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// DefaultPipelineConfig returns the configuration used when no file or
// environment override is present.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Sources: SourcesConfig{
			News: SourceConfig{
				HTTPConfig:   defaultHTTP(),
				Enabled:      true,
				BaseURL:      "https://apis.data.go.kr/1371000/policyNewsService/policyNewsList",
				DetailURL:    "https://apis.data.go.kr/1371000/policyNewsService/policyNewsView",
				PageSize:     100,
				MaxPages:     10,
				PageDelay:    100 * time.Millisecond,
				LookbackDays: 3,
			},
			Welfare: SourceConfig{
				HTTPConfig:   defaultHTTP(),
				Enabled:      true,
				BaseURL:      "https://apis.data.go.kr/B554287/NationalWelfareInformationsV001/NationalWelfarelistV001",
				DetailURL:    "https://apis.data.go.kr/B554287/NationalWelfareInformationsV001/NationalWelfaredetailedV001",
				PageSize:     100,
				MaxPages:     5,
				PageDelay:    200 * time.Millisecond,
				FetchDetails: true,
			},
			Youth: SourceConfig{
				HTTPConfig: defaultHTTP(),
				Enabled:    true,
				BaseURL:    "https://www.youthcenter.go.kr/opi/youthPlcyList.do",
				DetailURL:  "https://www.youthcenter.go.kr/opi/youthPlcyList.do",
				PageSize:   100,
				MaxPages:   5,
				PageDelay:  200 * time.Millisecond,
			},
		},
		Normalize: NormalizeConfig{SummaryLength: 200, Timezone: "Asia/Seoul"},
		Store:     StoreConfig{Driver: "sqlite3", DSN: "data/policy-feed.db", BucketDir: "data/assets"},
		Persist:   PersistConfig{RetryAttempts: 3, RetryDelay: time.Second},
		Enhance: EnhanceConfig{
			AIConfig: AIConfig{Model: "claude-sonnet-4-5-20250929"},
			Timeout:  20 * time.Second,
		},
		Schedule: ScheduleConfig{Interval: 6 * time.Hour, ListenAddr: "127.0.0.1:8088"},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// EnabledSources returns the enabled source types in a stable order.
func (c PipelineConfig) EnabledSources() []SourceType {
	var out []SourceType
	for _, t := range AllSourceTypes {
		if c.Sources.For(t).Enabled {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c PipelineConfig) Validate() error {
	enabled := c.EnabledSources()
	if len(enabled) == 0 {
		return ErrNoSources
	}
	for _, t := range enabled {
		src := c.Sources.For(t)
		if src.BaseURL == "" {
			return fmt.Errorf("%w: %s", ErrMissingBaseURL, t)
		}
		if src.PageSize <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidPageSize, t)
		}
		if src.MaxPages <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidMaxPages, t)
		}
		if src.MaxRetries < 1 {
			return fmt.Errorf("%w: sources.%s.max_retries", ErrInvalidRetry, t)
		}
	}
	if c.Persist.RetryAttempts < 1 {
		return fmt.Errorf("%w: persist.retry_attempts", ErrInvalidRetry)
	}
	if c.Normalize.SummaryLength <= 0 {
		return ErrInvalidSummaryLen
	}
	switch c.Store.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	if c.Schedule.Interval <= 0 {
		return ErrInvalidInterval
	}
	return nil
}
