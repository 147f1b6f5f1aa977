package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"
)

const defaultCheckInterval = time.Hour

type Config struct {
	WatchDirs     []string
	IgnoreDirs    []string
	Mode          fs.FileMode
	CheckInterval time.Duration
}

type fileSchema struct {
	WatchDirs         []string `json:"watch_dirs"`
	IgnoreDirs        []string `json:"ignore_dirs"`
	DesiredPermission string   `json:"desired_permission"`
	CheckInterval     string   `json:"check_interval,omitempty"`
}

func defaultSchema() fileSchema {
	return fileSchema{
		WatchDirs:         []string{"./testdir"},
		IgnoreDirs:        []string{"./testdir/ignoreme"},
		DesiredPermission: "777",
	}
}

// DefaultPath returns the path of the config file next to the executable.
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("os.Executable: %w", err)
	}

	return filepath.Join(filepath.Dir(exe), ".config"), nil
}

// LoadOrDefault reads the JSON config at path. A missing file is not an
// error: the default config is written there and then returned.
func LoadOrDefault(fsys afero.Fs, path string) (Config, error) {
	content, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return writeDefault(fsys, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("afero.ReadFile: %w", err)
	}

	var schema fileSchema
	if err := json.Unmarshal(content, &schema); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	return build(schema)
}

func writeDefault(fsys afero.Fs, path string) (Config, error) {
	schema := defaultSchema()

	content, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return Config{}, fmt.Errorf("json.MarshalIndent: %w", err)
	}

	if err := afero.WriteFile(fsys, path, content, 0o644); err != nil {
		return Config{}, fmt.Errorf("afero.WriteFile: %w", err)
	}

	return build(schema)
}

func build(schema fileSchema) (Config, error) {
	cfg := Config{
		WatchDirs:     lo.Uniq(schema.WatchDirs),
		IgnoreDirs:    lo.Uniq(schema.IgnoreDirs),
		CheckInterval: defaultCheckInterval,
	}

	mode, err := ParseMode(schema.DesiredPermission)
	if err != nil {
		return cfg, err
	}
	cfg.Mode = mode

	if schema.CheckInterval != "" {
		interval, intervalErr := time.ParseDuration(schema.CheckInterval)
		if intervalErr != nil {
			return cfg, fmt.Errorf("%w: check_interval: %s", ErrValidationFailed, intervalErr)
		}
		cfg.CheckInterval = interval
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ParseMode parses a POSIX octal permission string like "777" or "0644".
func ParseMode(s string) (fs.FileMode, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: desired_permission is required", ErrValidationFailed)
	}

	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid permission %q: %s", ErrValidationFailed, s, err)
	}
	if mode > 0o777 {
		return 0, fmt.Errorf("%w: permission %q out of range", ErrValidationFailed, s)
	}

	return fs.FileMode(mode), nil
}

func (c *Config) validate() error {
	if len(c.WatchDirs) == 0 {
		return fmt.Errorf("%w: at least one watch directory is required", ErrValidationFailed)
	}

	if c.CheckInterval < 0 {
		return fmt.Errorf("%w: check_interval must not be negative", ErrValidationFailed)
	}

	return nil
}
