package command

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/siftdata/sift/internal/config"
)

// HelpCommand displays help information for commands.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand creates a new help command.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

// Execute displays help information.
func (c *HelpCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "sift - explore tabular data interactively from your terminal")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: sift <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'sift help <command>' for more information about a specific command (includes flags).")
		return nil
	}

	cmdName := args[0]
	cmd, err := c.registry.Get(cmdName)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", cmdName)
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: %s\n", cmd.Usage())

	// Show command-specific flags (if any) by invoking SetupFlags on a
	// temporary FlagSet.
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	buf := &bytes.Buffer{}
	fs.SetOutput(buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}

	return nil
}

// VersionCommand displays version information.
type VersionCommand struct {
	*BaseCommand
	version string
}

// NewVersionCommand creates a new version command.
func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
	}
}

// Execute displays version information.
func (c *VersionCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	_, _ = fmt.Fprintf(stdout, "sift version %s\n", c.version)
	return nil
}

// ConfigCommand manages configuration.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
	showAll    bool
}

// NewConfigCommand creates a new config command.
// If configPath is empty, persistence to disk is skipped (useful for tests
// and when the resolved path isn't known at construction time).
func NewConfigCommand(cfg *config.Config, configPath ...string) *ConfigCommand {
	var path string
	if len(configPath) > 0 {
		path = configPath[0]
	}
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Manage configuration settings",
			"config [options] [key] [value]",
		),
		config:     cfg,
		configPath: path,
	}
}

// SetupFlags configures the flags for the config command.
func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.showAll, "all", false, "Show all configuration (global and command-specific)")
}

// Execute manages configuration.
func (c *ConfigCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		if c.showAll {
			_, _ = fmt.Fprintln(stdout, "Global configuration:")
			for key, value := range c.config.Global {
				_, _ = fmt.Fprintf(stdout, "  %s: %s\n", key, value)
			}
			_, _ = fmt.Fprintln(stdout, "\nCommand-specific configuration:")
			for cmd, options := range c.config.Commands {
				_, _ = fmt.Fprintf(stdout, "  [%s]\n", cmd)
				for key, value := range options {
					_, _ = fmt.Fprintf(stdout, "    %s: %s\n", key, value)
				}
			}
			return nil
		}
		_, _ = fmt.Fprintln(stdout, "Configuration management:")
		_, _ = fmt.Fprintln(stdout, "  config <key>          - Get configuration value")
		_, _ = fmt.Fprintln(stdout, "  config <key> <value>  - Set configuration value")
		_, _ = fmt.Fprintln(stdout, "  config --all          - Show all configuration")
		_, _ = fmt.Fprintln(stdout, "  config validate       - Validate configuration")
		_, _ = fmt.Fprintln(stdout, "  config schema         - Show configuration schema")
		return nil
	}

	switch args[0] {
	case "validate":
		return c.executeValidate(stdout)
	case "schema":
		_, _ = fmt.Fprint(stdout, config.DefaultSchema().FormatHelp())
		return nil
	}

	if len(args) == 1 {
		// Get configuration value (schema-aware: checks env -> config -> default).
		key := args[0]
		value := config.DefaultSchema().Resolve(c.config, key)
		if value != "" {
			_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, value)
		} else if _, exists := c.config.GetGlobalOption(key); exists {
			_, _ = fmt.Fprintf(stdout, "%s: \n", key)
		} else {
			_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
		}
		return nil
	}

	if len(args) == 2 {
		key, value := args[0], args[1]
		c.config.SetGlobalOption(key, value)

		configPath := c.configPath
		if configPath == "" {
			// Best-effort resolve; if it fails, skip disk write
			configPath, _ = config.GetConfigPath()
		}
		if configPath != "" {
			if err := config.SetKeyInFile(configPath, key, value); err != nil {
				_, _ = fmt.Fprintf(stderr, "Warning: failed to persist config to disk: %v\n", err)
			}
		}

		_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
		return nil
	}

	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return fmt.Errorf("invalid arguments")
}

// executeValidate validates the current config against the schema.
func (c *ConfigCommand) executeValidate(stdout io.Writer) error {
	issues := config.ValidateConfig(c.config, config.DefaultSchema())
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return nil
}

// InitCommand writes a starter configuration file.
type InitCommand struct {
	*BaseCommand
	force bool
}

// NewInitCommand creates a new init command.
func NewInitCommand() *InitCommand {
	return &InitCommand{
		BaseCommand: NewBaseCommand(
			"init",
			"Initialize sift configuration",
			"init [options]",
		),
	}
}

// SetupFlags configures the flags for the init command.
func (c *InitCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "Force initialization even if config already exists")
}

// Execute initializes the environment.
func (c *InitCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil && !c.force {
		_, _ = fmt.Fprintf(stdout, "Configuration already exists at: %s\n", configPath)
		_, _ = fmt.Fprintln(stdout, "Use --force to overwrite existing configuration")
		return nil
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := `# sift configuration file
# Format: optionName remainingLineIsTheValue
# Use [section] headers for command- and feature-specific options

# Global options
mode lazy
color auto

[history]
maxEntries 1000

[view]
maxRows 20
maxWidth 120
`

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(stdout, "Initialized sift configuration at: %s\n", configPath)
	return nil
}
