package command

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/siftdata/sift/internal/config"
	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/loader"
	"github.com/siftdata/sift/internal/persist"
)

// ReplayCommand re-applies a saved analysis against its dataset.
type ReplayCommand struct {
	*BaseCommand
	config  *config.Config
	dataset string
	rows    int
}

// NewReplayCommand creates a new replay command.
func NewReplayCommand(cfg *config.Config) *ReplayCommand {
	return &ReplayCommand{
		BaseCommand: NewBaseCommand(
			"replay",
			"Replay a saved analysis",
			"replay [options] <analysis.json>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the replay command.
func (c *ReplayCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.dataset, "dataset", "", "Dataset path override (defaults to the path recorded in the analysis)")
	fs.IntVar(&c.rows, "rows", 0, "Rows of the result to print (0 uses the configured view size)")
}

// Execute replays the analysis and prints the resulting frame.
func (c *ReplayCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(stderr, "usage: replay [options] <analysis.json>")
		return fmt.Errorf("expected exactly one analysis file")
	}

	a, err := persist.Load(args[0])
	if err != nil {
		return err
	}

	dataset := c.dataset
	if dataset == "" {
		dataset = a.Dataset
	}
	if dataset == "" {
		return fmt.Errorf("analysis records no dataset path; use -dataset")
	}

	res, err := persist.Replay("replay", a, loader.Scan(dataset), nil)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "applied %d of %d operations\n", res.Applied, len(a.Entries))
	if res.Failed != nil {
		_, _ = fmt.Fprintf(stderr, "halted at operation %d (%s): %s\n",
			res.Failed.Index+1, res.Failed.Label, res.Failed.Err)
	}

	rows := c.rows
	if rows <= 0 {
		rows = c.config.View.MaxRows
	}
	printFrame(stdout, res.Session.Frame(), rows)

	if res.Failed != nil {
		return fmt.Errorf("replay halted on a failed operation")
	}
	return nil
}

// printFrame renders up to n rows of f as an aligned text table.
func printFrame(w io.Writer, f *frame.Frame, n int) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	names := f.Columns()
	_, _ = fmt.Fprintln(tw, strings.Join(names, "\t"))

	head := f.Head(n)
	for i := 0; i < head.NumRows(); i++ {
		cells := make([]string, len(names))
		for j, name := range names {
			col, _ := head.Column(name)
			cells[j] = frame.FormatValue(col.Value(i))
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	if f.NumRows() > n {
		_, _ = fmt.Fprintf(w, "... %d more rows\n", f.NumRows()-n)
	}
}
