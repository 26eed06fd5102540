package command

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/siftdata/sift/internal/config"
	"github.com/siftdata/sift/internal/export"
	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/loader"
	"github.com/siftdata/sift/internal/persist"
)

// ExportCommand renders a saved analysis as a script or a Markdown report.
type ExportCommand struct {
	*BaseCommand
	config *config.Config
	format string
	output string
	replay bool
}

// NewExportCommand creates a new export command.
func NewExportCommand(cfg *config.Config) *ExportCommand {
	return &ExportCommand{
		BaseCommand: NewBaseCommand(
			"export",
			"Export a saved analysis as a script or Markdown report",
			"export [options] <analysis.json>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the export command.
func (c *ExportCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", "", "Output format: script or markdown (default from config)")
	fs.StringVar(&c.output, "o", "", "Output file (defaults to stdout)")
	fs.BoolVar(&c.replay, "replay", false, "Replay the analysis to include a result preview (markdown only)")
}

// Execute renders the analysis.
func (c *ExportCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(stderr, "usage: export [options] <analysis.json>")
		return fmt.Errorf("expected exactly one analysis file")
	}

	a, err := persist.Load(args[0])
	if err != nil {
		return err
	}

	format := c.format
	if format == "" {
		format, _ = c.config.GetCommandOption("export", "format")
	}
	if format == "" {
		format = "script"
	}

	out := stdout
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "script":
		return export.Script(out, a)
	case "markdown", "md":
		var result *frame.Frame
		if c.replay && a.Dataset != "" {
			res, err := persist.Replay("export", a, loader.Scan(a.Dataset), nil)
			if err != nil {
				return err
			}
			result = res.Session.Frame()
		}
		return export.Markdown(out, a, result)
	default:
		return fmt.Errorf("unknown export format %q, want script or markdown", format)
	}
}
