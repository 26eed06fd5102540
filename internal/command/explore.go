package command

import (
	"flag"
	"fmt"
	"io"

	"github.com/siftdata/sift/internal/config"
	"github.com/siftdata/sift/internal/repl"
	"github.com/siftdata/sift/internal/session"
)

// ExploreCommand opens datasets and starts the interactive prompt.
type ExploreCommand struct {
	*BaseCommand
	config *config.Config
	mode   string
}

// NewExploreCommand creates a new explore command.
func NewExploreCommand(cfg *config.Config) *ExploreCommand {
	return &ExploreCommand{
		BaseCommand: NewBaseCommand(
			"explore",
			"Explore datasets interactively",
			"explore [options] [dataset...]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the explore command.
func (c *ExploreCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.mode, "mode", "", "Execution mode for opened datasets (lazy or eager)")
}

// Execute loads the given datasets and hands control to the prompt.
func (c *ExploreCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if c.mode != "" {
		if !session.ValidMode(session.Mode(c.mode)) {
			return fmt.Errorf("unknown mode %q, want lazy or eager", c.mode)
		}
		c.config.SetGlobalOption("mode", c.mode)
	}

	r := repl.New(c.config, stdout)
	for _, path := range args {
		if err := r.Open(path, ""); err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
	}

	r.Run()
	return nil
}
