package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the option name as it appears in the config file.
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Section is "" for global options, or a command/section name.
	Section string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
}

// ConfigSchema declares the expected configuration options for the
// application. It is used for validation, documentation, and env var mapping.
type ConfigSchema struct {
	options   []*ConfigOption
	byKey     map[string]*ConfigOption
	bySection map[string]map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Duplicate keys within the same
// section are silently overwritten (last registration wins).
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.byKey[opt.Key] = ref
	} else {
		if s.bySection[opt.Section] == nil {
			s.bySection[opt.Section] = make(map[string]*ConfigOption)
		}
		s.bySection[opt.Section][opt.Key] = ref
	}
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for a key in a given section ("" for
// global). Returns nil if the key is not registered.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	if sec, ok := s.bySection[section]; ok {
		return sec[key]
	}
	return nil
}

// IsKnown returns true if the key is registered in the given section. For
// command sections, global keys are also considered known (they can appear in
// command sections and fall back to the global value).
func (s *ConfigSchema) IsKnown(section, key string) bool {
	if section == "" {
		return s.byKey[key] != nil
	}
	if sec, ok := s.bySection[section]; ok && sec[key] != nil {
		return true
	}
	return s.byKey[key] != nil
}

// Resolve returns the effective value for a global config key by checking, in
// order: (1) the environment variable declared in the schema for this key,
// (2) the config value, (3) the schema default. Returns "" if the key is not
// found anywhere.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	opt := s.Lookup("", key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if v, ok := c.GetGlobalOption(key); ok {
		return v
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig checks a loaded Config against the schema and returns a list
// of human-readable issues (empty if the config is valid). Validation covers
// unknown options and type mismatches.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	for section, opts := range c.Commands {
		for key, value := range opts {
			if !s.IsKnown(section, key) {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if opt != nil {
				if err := validateType(opt.Type, value); err != nil {
					issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// --- Typed getter methods on Config ---

// GetString returns the global option value for key, or "" if not set.
func (c *Config) GetString(key string) string {
	v, _ := c.GetGlobalOption(key)
	return v
}

// GetStringDefault returns the global option value for key, or defaultValue
// if not set.
func (c *Config) GetStringDefault(key, defaultValue string) string {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return defaultValue
	}
	return v
}

// GetBool returns the global option value for key parsed as a boolean.
// Returns false if the key is not set or the value cannot be parsed.
func (c *Config) GetBool(key string) bool {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return false
	}
	b, err := parseBool(v)
	if err != nil {
		return false
	}
	return b
}

// GetInt returns the global option value for key parsed as an integer.
// Returns 0 if the key is not set or the value cannot be parsed.
func (c *Config) GetInt(key string) int {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return 0
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return i
}

// --- Help text generation ---

// FormatHelp returns a formatted, human-readable reference of all registered
// options in the schema, grouped by section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder

	globals := s.GlobalOptions()
	if len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	for _, sec := range s.Sections() {
		opts := s.SectionOptions(sec)
		if len(opts) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n[%s] Options:\n", sec))
		for _, o := range opts {
			writeOptionHelp(&b, o)
		}
	}

	return b.String()
}

// GlobalOptions returns all registered global options (Section == "").
func (s *ConfigSchema) GlobalOptions() []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == "" {
			out = append(out, *o)
		}
	}
	return out
}

// SectionOptions returns all registered options for a specific section.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns a sorted list of all registered non-empty section names.
func (s *ConfigSchema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	b.WriteString(fmt.Sprintf("  %-20s %s", o.Key, o.Description))
	parts := make([]string, 0, 3)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		b.WriteString(fmt.Sprintf(" (%s)", strings.Join(parts, ", ")))
	}
	b.WriteString("\n")
}

// --- Default schema for sift ---

// DefaultSchema returns the canonical schema declaring all known sift
// configuration options. This is the single source of truth for option names,
// types, defaults, descriptions, and environment variable overrides.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: "mode", Type: TypeString, Default: "lazy", Description: "Default execution mode: lazy, eager", EnvVar: "SIFT_MODE"},
		{Key: "color", Type: TypeString, Default: "auto", Description: "Color mode: auto, always, never"},
		{Key: "quiet", Type: TypeBool, Default: "false", Description: "Suppress non-essential output"},
		{Key: "log.file", Type: TypeString, Default: "", Description: "Log file path (JSON output)", EnvVar: "SIFT_LOG_FILE"},
		{Key: "log.level", Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "SIFT_LOG_LEVEL"},
	})
	s.RegisterAll([]ConfigOption{
		// [history] and [view] are parsed into structured sections; the schema
		// entries exist for documentation and the 'config schema' subcommand.
		{Key: "maxEntries", Section: "history", Type: TypeInt, Default: "1000", Description: "Maximum history entries per session (0 = unlimited)"},
		{Key: "maxRows", Section: "view", Type: TypeInt, Default: "20", Description: "Rows shown in the table view"},
		{Key: "maxWidth", Section: "view", Type: TypeInt, Default: "120", Description: "Maximum rendered table width"},

		// [export] section
		{Key: "format", Section: "export", Type: TypeString, Default: "script", Description: "Default export format: script, markdown"},

		// [open] section
		{Key: "mode", Section: "open", Type: TypeString, Default: "", Description: "Execution mode for newly opened datasets"},
	})
	return s
}
