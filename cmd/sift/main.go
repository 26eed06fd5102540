package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/siftdata/sift/internal/command"
	"github.com/siftdata/sift/internal/config"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// If config doesn't exist or can't be read, start from defaults
		cfg = config.NewConfig()
	}

	registry := command.NewRegistry()

	helpCmd := command.NewHelpCommand(registry)
	registry.Register(helpCmd)
	registry.Register(command.NewVersionCommand(version))
	registry.Register(command.NewConfigCommand(cfg))
	registry.Register(command.NewInitCommand())
	registry.Register(command.NewExploreCommand(cfg))
	registry.Register(command.NewReplayCommand(cfg))
	registry.Register(command.NewExportCommand(cfg))

	if len(os.Args) < 2 {
		// No command specified, show help
		return helpCmd.Execute([]string{}, os.Stdout, os.Stderr)
	}

	cmdName := os.Args[1]

	if cmdName == "-h" || cmdName == "--help" {
		return helpCmd.Execute([]string{}, os.Stdout, os.Stderr)
	}

	cmd, err := registry.Get(cmdName)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmdName)
		_, _ = fmt.Fprintln(os.Stderr, "Use 'sift help' to see available commands.")
		return err
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ExitOnError)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s\n", cmd.Usage())
		_, _ = fmt.Fprintf(os.Stderr, "\n%s\n\n", cmd.Description())
		_, _ = fmt.Fprintln(os.Stderr, "Options:")
		fs.PrintDefaults()
	}

	cmd.SetupFlags(fs)

	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	return cmd.Execute(fs.Args(), os.Stdout, os.Stderr)
}
