// Package config loads tsk configuration from JSONC files with the usual
// precedence chain: defaults, global user config, project config, explicit
// --config file, then CLI overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	VaultDir      string `json:"vault_dir"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // path to global config if loaded, empty otherwise
	Project string // path to project or explicit config if loaded, empty otherwise
}

// Overrides carries CLI-level settings that beat every config file. Each
// pointer is nil when the flag was not given.
type Overrides struct {
	VaultDir      *string
	CaseSensitive *bool
}

// Default returns the default configuration: the vault is the working
// directory, matching is case-insensitive.
func Default() Config {
	return Config{
		VaultDir: ".",
	}
}

// FileName is the project config file name.
const FileName = ".tsk.json"

// Config errors.
var (
	ErrFileNotFound  = errors.New("config file not found")
	ErrInvalid       = errors.New("invalid config")
	ErrVaultDirEmpty = errors.New("vault_dir must not be empty")
)

// Load resolves the effective configuration. Precedence, highest wins:
// defaults, global config ($XDG_CONFIG_HOME/tsk/config.json or
// ~/.config/tsk/config.json), project config (.tsk.json in workDir), explicit
// config via configPath, CLI overrides.
func Load(workDir, configPath string, overrides Overrides, env []string) (Config, Sources, error) {
	cfg := Default()

	var sources Sources

	globalCfg, globalPath, err := loadOptional(globalConfigPath(env))
	if err != nil {
		return Config{}, Sources{}, err
	}

	sources.Global = globalPath
	cfg = merge(cfg, globalCfg)

	projectCfg, projectPath, err := loadProject(workDir, configPath)
	if err != nil {
		return Config{}, Sources{}, err
	}

	sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	if overrides.VaultDir != nil {
		cfg.VaultDir = *overrides.VaultDir
	}

	if overrides.CaseSensitive != nil {
		cfg.CaseSensitive = *overrides.CaseSensitive
	}

	if cfg.VaultDir == "" {
		return Config{}, Sources{}, ErrVaultDirEmpty
	}

	return cfg, sources, nil
}

// fileConfig mirrors Config with pointer fields so a merge can tell "absent"
// from "explicitly false/empty".
type fileConfig struct {
	VaultDir      *string `json:"vault_dir"`
	CaseSensitive *bool   `json:"case_sensitive"`
}

// globalConfigPath returns $XDG_CONFIG_HOME/tsk/config.json if set, otherwise
// ~/.config/tsk/config.json, or empty when no home directory can be found.
func globalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok {
			return filepath.Join(after, "tsk", "config.json")
		}
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "tsk", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "tsk", "config.json")
	}

	return ""
}

func loadProject(workDir, configPath string) (fileConfig, string, error) {
	if configPath == "" {
		return loadOptional(filepath.Join(workDir, FileName))
	}

	// Explicit config file: it has to exist.
	cfgFile := configPath
	if !filepath.IsAbs(cfgFile) {
		cfgFile = filepath.Join(workDir, cfgFile)
	}

	if _, statErr := os.Stat(cfgFile); statErr != nil {
		return fileConfig{}, "", fmt.Errorf("%w: %s", ErrFileNotFound, configPath)
	}

	return loadRequired(cfgFile)
}

// loadOptional reads a config file that may be absent. A missing file is a
// zero config, not an error.
func loadOptional(path string) (fileConfig, string, error) {
	if path == "" {
		return fileConfig{}, "", nil
	}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return fileConfig{}, "", nil
	}

	cfg, parseErr := parse(data)
	if parseErr != nil {
		return fileConfig{}, "", fmt.Errorf("%w %s: %w", ErrInvalid, path, parseErr)
	}

	return cfg, path, nil
}

func loadRequired(path string) (fileConfig, string, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return fileConfig{}, "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	cfg, parseErr := parse(data)
	if parseErr != nil {
		return fileConfig{}, "", fmt.Errorf("%w %s: %w", ErrInvalid, path, parseErr)
	}

	return cfg, path, nil
}

func parse(data []byte) (fileConfig, error) {
	// Standardize JSONC to JSON.
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg fileConfig

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	return cfg, nil
}

func merge(base Config, overlay fileConfig) Config {
	if overlay.VaultDir != nil {
		base.VaultDir = *overlay.VaultDir
	}

	if overlay.CaseSensitive != nil {
		base.CaseSensitive = *overlay.CaseSensitive
	}

	return base
}

// Format returns the config as formatted JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}
