// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/api-harvester/internal/schemas"
	schemafiles "github.com/jonathan/api-harvester/schemas"
)

// Index modes.
const (
	IndexScan     = "scan"
	IndexFile     = "file"
	IndexPostgres = "postgres"
)

// ConfigurationError is a fatal problem with the configuration or with a
// required input. It aborts a run before any fetch key is processed.
type ConfigurationError struct {
	Source string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Source, e.Cause)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Pipeline holds the settings of one fetch pipeline. A zero DailyLimit
// means unlimited; SearchClient switches to the Custom Search API client.
// LedgerLayout names the error report columns ("keyword" or "domain").
type Pipeline struct {
	Input         string   `json:"input,omitempty"`
	InputEncoding string   `json:"input_encoding,omitempty" validate:"omitempty,oneof=utf-8 cp1252"`
	ArtifactsDir  string   `json:"artifacts_dir,omitempty"`
	ErrorLedger   string   `json:"error_ledger,omitempty"`
	LedgerLayout  string   `json:"ledger_layout,omitempty" validate:"omitempty,oneof=keyword domain"`
	Endpoints     []string `json:"endpoints,omitempty" validate:"dive,required"`
	MaxAttempts   int      `json:"max_attempts,omitempty" validate:"gte=0"`
	DailyLimit    int      `json:"daily_limit,omitempty" validate:"gte=0"`
	SearchClient  bool     `json:"search_client,omitempty"`
}

// Backoff selects the wait between retries.
type Backoff struct {
	Policy string `json:"policy,omitempty" validate:"omitempty,oneof=none fixed exponential jitter"`
	Base   string `json:"base,omitempty"`
	Max    string `json:"max,omitempty"`
}

// Index selects how freshness is decided.
type Index struct {
	Mode        string `json:"mode,omitempty" validate:"omitempty,oneof=scan file postgres"`
	Path        string `json:"path,omitempty"`         // JSON index file for mode=file
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL for mode=postgres
}

// Backup configures the zip-and-upload command.
type Backup struct {
	SourceDir          string `json:"source_dir,omitempty"`
	OutputDir          string `json:"output_dir,omitempty"`
	ArchivePrefix      string `json:"archive_prefix,omitempty"`
	Credential         string `json:"credential,omitempty"`           // Credential row naming the Drive folder
	FolderID           string `json:"folder_id,omitempty"`            // Overrides the credential row
	ServiceAccountFile string `json:"service_account_file,omitempty"` // Overrides the credential row
}

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or CLI flags.
type Config struct {
	Credentials         string `json:"credentials,omitempty"`
	CredentialsEncoding string `json:"credentials_encoding,omitempty" validate:"omitempty,oneof=utf-8 cp1252"`

	FreshnessWindow string  `json:"freshness_window,omitempty"` // e.g. "720h"
	Timeout         string  `json:"timeout,omitempty"`          // Per-request HTTP timeout
	MinInterval     string  `json:"min_interval,omitempty"`     // Minimum spacing between requests
	Backoff         Backoff `json:"backoff,omitempty"`
	Index           Index   `json:"index,omitempty"`

	FlushEachSuccess bool `json:"flush_each_success,omitempty"`
	Verbose          bool `json:"verbose,omitempty"`

	Domains  Pipeline `json:"domains,omitempty"`
	Keywords Pipeline `json:"keywords,omitempty"`
	Backup   Backup   `json:"backup,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Credentials:         "APIFetchData.csv",
		CredentialsEncoding: "cp1252",
		FreshnessWindow:     "720h",
		Timeout:             "30s",
		Backoff:             Backoff{Policy: "exponential", Base: "500ms", Max: "10s"},
		Index:               Index{Mode: IndexScan, Path: filepath.Join("state", "fetch_index.json")},
		Domains: Pipeline{
			Input:         "domains.csv",
			InputEncoding: "utf-8",
			ArtifactsDir:  "API_Ninja_Transaction_Log",
			ErrorLedger:   filepath.Join("API_Ninja_Transaction_Log", "error_report.csv"),
			LedgerLayout:  "domain",
			Endpoints:     []string{"API_Ninja_DNS", "API_Ninja_Who_Is", "API_Domain_Location"},
			MaxAttempts:   1,
		},
		Keywords: Pipeline{
			Input:         "unioned_keywords.csv",
			InputEncoding: "cp1252",
			ArtifactsDir:  "GSAPI_Transaction_Log",
			ErrorLedger:   filepath.Join("GSAPI_Transaction_Log", "error_report.csv"),
			LedgerLayout:  "keyword",
			Endpoints:     []string{"Google_Search_API_Google_Search_Text"},
			MaxAttempts:   5,
			DailyLimit:    5,
		},
		Backup: Backup{
			SourceDir:     ".",
			OutputDir:     ".",
			ArchivePrefix: "PythonTraining",
			Credential:    "Cloud Backup",
		},
	}
}

// LoadConfig loads configuration from a JSON file. The document is checked
// against the embedded schema before it is decoded.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, &ConfigurationError{Source: "config", Cause: errors.New("config path is empty")}
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Source: path, Cause: fmt.Errorf("failed to read config file: %w", err)}
	}

	if !json.Valid(data) {
		return nil, &ConfigurationError{Source: path, Cause: errors.New("failed to parse config JSON")}
	}
	if err := schemas.ValidateBytes(schemafiles.HarvesterConfig, data); err != nil {
		return nil, &ConfigurationError{Source: path, Cause: err}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{Source: path, Cause: fmt.Errorf("failed to parse config JSON: %w", err)}
	}

	return &cfg, nil
}

// Validate checks field values and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &ConfigurationError{Source: "config", Cause: err}
	}

	durations := map[string]string{
		"freshness_window": c.FreshnessWindow,
		"timeout":          c.Timeout,
		"min_interval":     c.MinInterval,
		"backoff.base":     c.Backoff.Base,
		"backoff.max":      c.Backoff.Max,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return &ConfigurationError{Source: field, Cause: err}
		}
		if d < 0 {
			return &ConfigurationError{Source: field, Cause: errors.New("must be non-negative")}
		}
	}
	if window := Duration(c.FreshnessWindow, time.Hour); window == 0 {
		return &ConfigurationError{Source: "freshness_window", Cause: errors.New("must be positive")}
	}

	switch c.Index.Mode {
	case IndexFile:
		if c.Index.Path == "" {
			return &ConfigurationError{Source: "index.path", Cause: errors.New("required when index mode is file")}
		}
	case IndexPostgres:
		if c.DatabaseURL() == "" {
			return &ConfigurationError{Source: "index.database_url", Cause: errors.New("required when index mode is postgres (or set HARVESTER_DATABASE_URL)")}
		}
	}

	return nil
}

// DatabaseURL returns the configured connection URL, falling back to the
// HARVESTER_DATABASE_URL and DATABASE_URL environment variables.
func (c *Config) DatabaseURL() string {
	if c.Index.DatabaseURL != "" {
		return c.Index.DatabaseURL
	}
	if v := os.Getenv("HARVESTER_DATABASE_URL"); v != "" {
		return v
	}
	return os.Getenv("DATABASE_URL")
}

// Duration parses a validated duration field, returning fallback when empty.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	result.Credentials = orDefault(result.Credentials, defaults.Credentials)
	result.CredentialsEncoding = orDefault(result.CredentialsEncoding, defaults.CredentialsEncoding)
	result.FreshnessWindow = orDefault(result.FreshnessWindow, defaults.FreshnessWindow)
	result.Timeout = orDefault(result.Timeout, defaults.Timeout)
	result.MinInterval = orDefault(result.MinInterval, defaults.MinInterval)
	result.Backoff.Policy = orDefault(result.Backoff.Policy, defaults.Backoff.Policy)
	result.Backoff.Base = orDefault(result.Backoff.Base, defaults.Backoff.Base)
	result.Backoff.Max = orDefault(result.Backoff.Max, defaults.Backoff.Max)
	result.Index.Mode = orDefault(result.Index.Mode, defaults.Index.Mode)
	result.Index.Path = orDefault(result.Index.Path, defaults.Index.Path)
	result.Index.DatabaseURL = orDefault(result.Index.DatabaseURL, defaults.Index.DatabaseURL)

	result.Domains = result.Domains.merge(defaults.Domains)
	result.Keywords = result.Keywords.merge(defaults.Keywords)

	result.Backup.SourceDir = orDefault(result.Backup.SourceDir, defaults.Backup.SourceDir)
	result.Backup.OutputDir = orDefault(result.Backup.OutputDir, defaults.Backup.OutputDir)
	result.Backup.ArchivePrefix = orDefault(result.Backup.ArchivePrefix, defaults.Backup.ArchivePrefix)
	result.Backup.Credential = orDefault(result.Backup.Credential, defaults.Backup.Credential)
	result.Backup.FolderID = orDefault(result.Backup.FolderID, defaults.Backup.FolderID)
	result.Backup.ServiceAccountFile = orDefault(result.Backup.ServiceAccountFile, defaults.Backup.ServiceAccountFile)

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func (p Pipeline) merge(defaults Pipeline) Pipeline {
	p.Input = orDefault(p.Input, defaults.Input)
	p.InputEncoding = orDefault(p.InputEncoding, defaults.InputEncoding)
	p.ArtifactsDir = orDefault(p.ArtifactsDir, defaults.ArtifactsDir)
	p.ErrorLedger = orDefault(p.ErrorLedger, defaults.ErrorLedger)
	p.LedgerLayout = orDefault(p.LedgerLayout, defaults.LedgerLayout)
	if len(p.Endpoints) == 0 {
		p.Endpoints = append([]string(nil), defaults.Endpoints...)
	}
	// Int fields: use default if zero
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.DailyLimit == 0 {
		p.DailyLimit = defaults.DailyLimit
	}
	return p
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
