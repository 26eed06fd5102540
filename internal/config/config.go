// Package config loads sift's configuration file. The file uses a
// dnsmasq-style format: one "optionName value" pair per line, with optional
// [section] headers for per-command and feature-specific options.
package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config represents the application configuration.
type Config struct {
	// Global options that apply to all commands
	Global map[string]string
	// Command-specific options
	Commands map[string]map[string]string
	// History controls the operation history of each session.
	History HistoryConfig
	// View controls the interactive table view.
	View ViewConfig
	// Warnings contains any warnings generated during config loading
	Warnings []string
}

// HistoryConfig controls session operation histories.
type HistoryConfig struct {
	// MaxEntries caps the number of history entries kept per session.
	// Zero means unlimited.
	MaxEntries int `json:"maxEntries" default:"1000"`
}

// ViewConfig controls the interactive table view.
type ViewConfig struct {
	MaxRows  int `json:"maxRows" default:"20"`
	MaxWidth int `json:"maxWidth" default:"120"`
}

// NewConfig creates a new empty configuration.
func NewConfig() *Config {
	return &Config{
		Global:   make(map[string]string),
		Commands: make(map[string]map[string]string),
		History:  HistoryConfig{MaxEntries: 1000},
		View:     ViewConfig{MaxRows: 20, MaxWidth: 120},
		Warnings: make([]string, 0),
	}
}

// Load loads configuration from the default config file path.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads configuration from the specified file path.
//
// SECURITY: This function rejects symlinks to prevent symlink attacks
// that could read sensitive files through symlink traversal.
func LoadFromPath(path string) (*Config, error) {
	// Lstat checks the final path component for symlinks. Intermediate
	// directory symlinks are NOT checked: the threat model targets direct
	// file symlink substitution.
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	config := NewConfig()
	scanner := bufio.NewScanner(r)

	var currentCommand string
	var inHistorySection bool
	var inViewSection bool

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Check for section header [section_name]
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			sectionName := strings.Trim(line, "[]")
			inHistorySection = false
			inViewSection = false
			currentCommand = ""
			switch sectionName {
			case "history":
				inHistorySection = true
			case "view":
				inViewSection = true
			default:
				currentCommand = sectionName
				if config.Commands[currentCommand] == nil {
					config.Commands[currentCommand] = make(map[string]string)
				}
			}
			continue
		}

		// Parse option line: optionName remainingLineIsTheValue
		parts := strings.SplitN(line, " ", 2)
		optionName := parts[0]
		var value string
		if len(parts) > 1 {
			value = parts[1]
		}

		switch {
		case inHistorySection:
			if err := parseHistoryOption(&config.History, optionName, value); err != nil {
				return nil, fmt.Errorf("invalid history option %q: %w", optionName, err)
			}
		case inViewSection:
			if err := parseViewOption(&config.View, optionName, value); err != nil {
				return nil, fmt.Errorf("invalid view option %q: %w", optionName, err)
			}
		case currentCommand == "":
			config.Global[optionName] = value
		default:
			config.Commands[currentCommand][optionName] = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	// Validate config against schema: detect unknown options and type mismatches.
	for _, issue := range ValidateConfig(config, DefaultSchema()) {
		config.addWarning("%s", issue)
	}

	return config, nil
}

// addWarning adds a warning to the config's warnings list.
func (c *Config) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("[Config] " + msg)
}

// parseHistoryOption parses a [history] section option.
// Supported options:
//   - maxEntries <int>: Maximum history entries per session, 0 = unlimited (default: 1000)
func parseHistoryOption(hc *HistoryConfig, name, value string) error {
	switch name {
	case "maxEntries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value %q: %w", value, err)
		}
		if n < 0 {
			return fmt.Errorf("maxEntries cannot be negative: %d", n)
		}
		hc.MaxEntries = n
	default:
		return fmt.Errorf("unknown history option: %s", name)
	}
	return nil
}

// parseViewOption parses a [view] section option.
// Supported options:
//   - maxRows <int>: Rows shown in the table view (default: 20)
//   - maxWidth <int>: Maximum rendered table width in cells (default: 120)
func parseViewOption(vc *ViewConfig, name, value string) error {
	switch name {
	case "maxRows":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value %q: %w", value, err)
		}
		if n < 1 {
			return fmt.Errorf("maxRows must be at least 1: %d", n)
		}
		vc.MaxRows = n
	case "maxWidth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value %q: %w", value, err)
		}
		if n < 20 {
			return fmt.Errorf("maxWidth must be at least 20: %d", n)
		}
		vc.MaxWidth = n
	default:
		return fmt.Errorf("unknown view option: %s", name)
	}
	return nil
}

// parseBool parses a boolean value from string.
// Accepts: true, false, 1, 0, yes, no, on, off (case-insensitive)
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}

// GetGlobalOption returns a global configuration option.
func (c *Config) GetGlobalOption(name string) (string, bool) {
	value, exists := c.Global[name]
	return value, exists
}

// GetCommandOption returns a command-specific configuration option.
// It first checks command-specific options, then falls back to global options.
func (c *Config) GetCommandOption(command, name string) (string, bool) {
	if cmdOptions, exists := c.Commands[command]; exists {
		if value, exists := cmdOptions[name]; exists {
			return value, true
		}
	}

	return c.GetGlobalOption(name)
}

// SetGlobalOption sets a global configuration option.
func (c *Config) SetGlobalOption(name, value string) {
	c.Global[name] = value
}

// SetCommandOption sets a command-specific configuration option.
func (c *Config) SetCommandOption(command, name, value string) {
	if c.Commands[command] == nil {
		c.Commands[command] = make(map[string]string)
	}
	c.Commands[command][name] = value
}

// GetWarnings returns any warnings generated during config loading.
func (c *Config) GetWarnings() []string {
	return c.Warnings
}

// HasWarnings returns true if there are any warnings.
func (c *Config) HasWarnings() bool {
	return len(c.Warnings) > 0
}
