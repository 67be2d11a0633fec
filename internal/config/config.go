// Package config loads and writes the mfetch.json settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/meza/manifest-fetcher/internal/constants"
	"github.com/meza/manifest-fetcher/internal/environment"
	"github.com/meza/manifest-fetcher/internal/mirror"
	"github.com/meza/manifest-fetcher/internal/models"
	"github.com/meza/manifest-fetcher/internal/walker"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	keyRepositories      = "repositories"
	keyMirrors           = "mirrors"
	keyMaxRetries        = "maxRetries"
	keyRetryInterval     = "retryInterval"
	keyWorkers           = "workers"
	keyRequestsPerSecond = "requestsPerSecond"
	keyAPIBaseURL        = "apiBaseURL"
	keySearchBaseURL     = "searchBaseURL"
	keyOutputDir         = "outputDir"
)

var DefaultRepositories = []string{
	"ManifestHub/ManifestHub",
	"ikun0014/ManifestHub",
	"Auiowu/ManifestAutoUpdate",
	"tymolu233/ManifestAutoUpdate",
}

type Config struct {
	Repositories      []string      `json:"repositories" mapstructure:"repositories"`
	Mirrors           []string      `json:"mirrors" mapstructure:"mirrors"`
	MaxRetries        int           `json:"maxRetries" mapstructure:"maxRetries"`
	RetryInterval     time.Duration `json:"-" mapstructure:"retryInterval"`
	Workers           int           `json:"workers" mapstructure:"workers"`
	RequestsPerSecond float64       `json:"requestsPerSecond" mapstructure:"requestsPerSecond"`
	APIBaseURL        string        `json:"apiBaseURL" mapstructure:"apiBaseURL"`
	SearchBaseURL     string        `json:"searchBaseURL" mapstructure:"searchBaseURL"`
	OutputDir         string        `json:"outputDir" mapstructure:"outputDir"`
}

// fileConfig is the on-disk shape; durations are stored as strings like "500ms".
type fileConfig struct {
	Config
	RetryInterval string `json:"retryInterval"`
}

func Default() Config {
	repositories := make([]string, len(DefaultRepositories))
	copy(repositories, DefaultRepositories)

	mirrors := mirror.DefaultConfig()
	return Config{
		Repositories:      repositories,
		Mirrors:           mirrors.Templates,
		MaxRetries:        mirrors.MaxRetries,
		RetryInterval:     mirrors.Backoff,
		Workers:           walker.DefaultWorkers,
		RequestsPerSecond: 0,
		APIBaseURL:        environment.APIURL(),
		SearchBaseURL:     environment.SearchURL(),
		OutputDir:         ".",
	}
}

// Load reads path from fs, applies MFETCH_* environment overrides and validates the result.
// A missing file yields the defaults.
func Load(fs afero.Fs, path string) (Config, error) {
	v := newViper(fs)

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if exists {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, &ConfigFileInvalidError{Path: path, Err: err}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &ConfigFileInvalidError{Path: path, Err: err}
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, &ConfigFileInvalidError{Path: path, Err: err}
	}
	return cfg, nil
}

func newViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)

	defaults := Default()
	v.SetDefault(keyRepositories, defaults.Repositories)
	v.SetDefault(keyMirrors, defaults.Mirrors)
	v.SetDefault(keyMaxRetries, defaults.MaxRetries)
	v.SetDefault(keyRetryInterval, defaults.RetryInterval)
	v.SetDefault(keyWorkers, defaults.Workers)
	v.SetDefault(keyRequestsPerSecond, defaults.RequestsPerSecond)
	v.SetDefault(keyAPIBaseURL, defaults.APIBaseURL)
	v.SetDefault(keySearchBaseURL, defaults.SearchBaseURL)
	v.SetDefault(keyOutputDir, defaults.OutputDir)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func (cfg *Config) normalize() {
	cfg.Repositories = trimAll(cfg.Repositories)
	cfg.Mirrors = trimAll(cfg.Mirrors)
	cfg.APIBaseURL = strings.TrimSpace(cfg.APIBaseURL)
	cfg.SearchBaseURL = strings.TrimSpace(cfg.SearchBaseURL)
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = "."
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func (cfg Config) Validate() error {
	var errs []error
	if len(cfg.Repositories) == 0 {
		errs = append(errs, errors.New("repositories must not be empty"))
	} else if _, err := models.ParseRepositories(cfg.Repositories); err != nil {
		errs = append(errs, err)
	}
	if len(cfg.Mirrors) == 0 {
		errs = append(errs, errors.New("mirrors must not be empty"))
	}
	for _, template := range cfg.Mirrors {
		if !strings.Contains(template, "{path}") {
			errs = append(errs, fmt.Errorf("mirror %q has no {path} placeholder", template))
		}
	}
	if cfg.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("maxRetries must be at least 1, got %d", cfg.MaxRetries))
	}
	if cfg.RetryInterval < 0 {
		errs = append(errs, fmt.Errorf("retryInterval must not be negative, got %s", cfg.RetryInterval))
	}
	if cfg.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers))
	}
	if cfg.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requestsPerSecond must not be negative, got %g", cfg.RequestsPerSecond))
	}
	for name, raw := range map[string]string{keyAPIBaseURL: cfg.APIBaseURL, keySearchBaseURL: cfg.SearchBaseURL} {
		if err := validateURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) url", raw)
	}
	return nil
}

// ParsedRepositories returns the repositories in priority order. Call Validate first.
func (cfg Config) ParsedRepositories() ([]models.Repository, error) {
	return models.ParseRepositories(cfg.Repositories)
}

func (cfg Config) MirrorConfig() mirror.Config {
	mirrors := mirror.DefaultConfig()
	mirrors.Templates = append([]string(nil), cfg.Mirrors...)
	mirrors.MaxRetries = cfg.MaxRetries
	mirrors.Backoff = cfg.RetryInterval
	return mirrors
}

func Marshal(cfg Config) ([]byte, error) {
	data, err := json.MarshalIndent(fileConfig{Config: cfg, RetryInterval: cfg.RetryInterval.String()}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func Write(fs afero.Fs, path string, cfg Config) error {
	_, err := write(configWriter{fs: fs}, path, cfg)
	return err
}

func write(writer configWriter, path string, cfg Config) (string, error) {
	data, err := Marshal(cfg)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := writer.fs.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	return writer.write(path, data)
}

// InitResult describes a finished init. BackupPath is set when overwrite replaced a file, and
// holds its previous content.
type InitResult struct {
	Config     Config
	BackupPath string
}

// InitConfig writes the defaults to path. An existing file is kept unless overwrite is set, in
// which case it is backed up beside the new one.
func InitConfig(fs afero.Fs, path string, overwrite bool) (InitResult, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return InitResult{}, err
	}
	if exists && !overwrite {
		return InitResult{}, &ConfigFileExistsError{Path: path}
	}

	cfg := Default()
	backup, err := write(configWriter{fs: fs, backup: overwrite}, path, cfg)
	if err != nil {
		return InitResult{}, err
	}
	return InitResult{Config: cfg, BackupPath: backup}, nil
}
