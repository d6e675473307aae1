// Package config provides configuration management for the crawler: the
// session settings, global crawl options, the task list, and the standalone
// credential file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pttgrab/internal/models"
)

// Configuration validation errors.
var (
	ErrNoTasks            = errors.New("at least one task is required")
	ErrMissingBaseURL     = errors.New("session.base_url is required")
	ErrInvalidTimeout     = errors.New("session.timeout_sec must be at least 1")
	ErrInvalidDelay       = errors.New("options.delay_between_requests must be non-negative")
	ErrInvalidMaxRetries  = errors.New("options.max_retries must be non-negative")
	ErrInvalidMaxScan     = errors.New("options.max_scan must be at least 1")
	ErrInvalidSampleStep  = errors.New("options.sample_step must be at least 1")
	ErrInvalidLogLevel    = errors.New("options.log_level must be one of: debug, info, warn, error")
	ErrUnknownTaskType    = errors.New("unknown task type")
	ErrTaskMissingBoard   = errors.New("board is required")
	ErrTaskMissingOutput  = errors.New("output is required")
	ErrTaskMissingKeyword = errors.New("keyword is required")
	ErrTaskMissingAuthor  = errors.New("author is required")
	ErrTaskInvalidIndex   = errors.New("index must be positive")
	ErrTaskMissingDates   = errors.New("start_date and end_date are required")
	ErrInvalidCount       = errors.New("count must be positive")
	ErrHalfWindow         = errors.New("start_time and end_time must be set together")
	ErrInvalidWindow      = errors.New("end_time must be after start_time")
	ErrInvalidDateRange   = errors.New("end_date must not precede start_date")
	ErrMissingCredentials = errors.New("credential file must contain account and password")
)

// Task types selecting the selection strategy variant.
const (
	TaskLatest        = "latest"
	TaskTitleSearch   = "title_search"
	TaskAuthorSearch  = "author_search"
	TaskCommentSearch = "comment_search"
	TaskCommentAuthor = "comment_author_search"
	TaskByIndex       = "by_index"
	TaskByDateRange   = "by_date_range"
)

// DefaultCount is the article count used when a task sets neither a count
// nor a time window.
const DefaultCount = 10

// Config is the complete crawler configuration.
type Config struct {
	Session SessionConfig `yaml:"session" json:"session"`
	Options OptionsConfig `yaml:"options" json:"options"`
	Tasks   []TaskConfig  `yaml:"tasks" json:"tasks"`
}

// SessionConfig describes how to reach the remote board service.
type SessionConfig struct {
	BaseURL        string `yaml:"base_url" json:"base_url"`
	CredentialFile string `yaml:"credential_file" json:"credential_file"`
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
	TimeoutSec     int    `yaml:"timeout_sec" json:"timeout_sec"`
}

// OptionsConfig contains global crawl behavior.
type OptionsConfig struct {
	DelayBetweenRequests float64 `yaml:"delay_between_requests" json:"delay_between_requests"`
	MaxRetries           int     `yaml:"max_retries" json:"max_retries"`
	MaxScan              int     `yaml:"max_scan" json:"max_scan"`
	SampleStep           int     `yaml:"sample_step" json:"sample_step"`
	LogLevel             string  `yaml:"log_level" json:"log_level"`
	ReportPath           string  `yaml:"report_path" json:"report_path"`
	HTTPToken            string  `yaml:"http_token" json:"http_token"`
}

// TaskConfig describes one crawl task. Which fields apply depends on Type.
type TaskConfig struct {
	Type      string `yaml:"type" json:"type"`
	Board     string `yaml:"board" json:"board"`
	Count     int    `yaml:"count" json:"count"`
	Keyword   string `yaml:"keyword" json:"keyword"`
	Author    string `yaml:"author" json:"author"`
	Index     int    `yaml:"index" json:"index"`
	StartTime string `yaml:"start_time" json:"start_time"`
	EndTime   string `yaml:"end_time" json:"end_time"`
	StartDate string `yaml:"start_date" json:"start_date"`
	EndDate   string `yaml:"end_date" json:"end_date"`
	Output    string `yaml:"output" json:"output"`
}

// Credentials hold the remote account/password pair, stored in a standalone
// JSON file so the main config stays committable.
type Credentials struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// DefaultConfig returns the configuration defaults. LoadConfig unmarshals
// over this, so absent keys keep their default values.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			BaseURL:    "https://www.ptt.cc",
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			TimeoutSec: 30,
		},
		Options: OptionsConfig{
			DelayBetweenRequests: 0.5,
			MaxRetries:           2,
			MaxScan:              1000,
			SampleStep:           100,
			LogLevel:             "info",
		},
	}
}

// LoadConfig loads configuration from a YAML or JSON file, chosen by the
// file extension. Task-level fields are validated later, per task, so one
// bad task cannot reject a whole batch.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadCredentials reads an {"account", "password"} JSON file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}

	if creds.Account == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}

	return &creds, nil
}

// Validate checks session and option settings. Per-task validation is the
// runner's job (a bad task fails alone; the batch continues).
func (c *Config) Validate() error {
	if c.Session.BaseURL == "" {
		return ErrMissingBaseURL
	}

	if c.Session.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Options.DelayBetweenRequests < 0 {
		return ErrInvalidDelay
	}

	if c.Options.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.Options.MaxScan < 1 {
		return ErrInvalidMaxScan
	}

	if c.Options.SampleStep < 1 {
		return ErrInvalidSampleStep
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Options.LogLevel] {
		return ErrInvalidLogLevel
	}

	if len(c.Tasks) == 0 {
		return ErrNoTasks
	}

	return nil
}

// GetDelay returns the politeness delay as a duration.
func (o *OptionsConfig) GetDelay() time.Duration {
	return time.Duration(o.DelayBetweenRequests * float64(time.Second))
}

// GetTimeout returns the per-request timeout as a duration.
func (s *SessionConfig) GetTimeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// Label identifies a task in logs and reports.
func (t *TaskConfig) Label() string {
	return t.Type + ":" + t.Board
}

// HasWindow reports whether the task carries a clock window.
func (t *TaskConfig) HasWindow() bool {
	return t.StartTime != "" && t.EndTime != ""
}

// Window parses the task's clock window. Call only when HasWindow.
func (t *TaskConfig) Window() (models.Clock, models.Clock, error) {
	start, err := models.ParseClock(t.StartTime)
	if err != nil {
		return 0, 0, err
	}

	end, err := models.ParseClock(t.EndTime)
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}

// DateRange parses the task's calendar range. Call only for by_date_range.
func (t *TaskConfig) DateRange() (time.Time, time.Time, error) {
	start, err := models.ParseDay(t.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end, err := models.ParseDay(t.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	return start, end, nil
}

// EffectiveCount returns the task's count, falling back to DefaultCount.
func (t *TaskConfig) EffectiveCount() int {
	if t.Count > 0 {
		return t.Count
	}

	return DefaultCount
}

// Validate checks the task's fields against its type. Any error here is an
// invalid-task-config outcome: the task fails, the batch continues.
func (t *TaskConfig) Validate() error {
	if t.Board == "" {
		return ErrTaskMissingBoard
	}

	if t.Output == "" {
		return ErrTaskMissingOutput
	}

	if t.Count < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, t.Count)
	}

	if (t.StartTime == "") != (t.EndTime == "") {
		return ErrHalfWindow
	}

	if t.HasWindow() {
		start, end, err := t.Window()
		if err != nil {
			return err
		}

		if end <= start {
			return fmt.Errorf("%w: %s >= %s", ErrInvalidWindow, t.StartTime, t.EndTime)
		}
	}

	switch t.Type {
	case TaskLatest:
		// Board, count and window checks above are sufficient.
	case TaskTitleSearch, TaskCommentSearch:
		if t.Keyword == "" {
			return ErrTaskMissingKeyword
		}
	case TaskAuthorSearch, TaskCommentAuthor:
		if t.Author == "" {
			return ErrTaskMissingAuthor
		}
	case TaskByIndex:
		if t.Index < 1 {
			return fmt.Errorf("%w: %d", ErrTaskInvalidIndex, t.Index)
		}
	case TaskByDateRange:
		if t.StartDate == "" || t.EndDate == "" {
			return ErrTaskMissingDates
		}

		start, end, err := t.DateRange()
		if err != nil {
			return err
		}

		if end.Before(start) {
			return fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, t.StartDate, t.EndDate)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTaskType, t.Type)
	}

	return nil
}

// String returns a short description of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Tasks: %d, Delay: %.1fs, BaseURL: %s}",
		len(c.Tasks),
		c.Options.DelayBetweenRequests,
		c.Session.BaseURL,
	)
}
