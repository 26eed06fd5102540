// Package repl implements the interactive prompt: one line per command,
// operating on the sessions of a workspace. Operation commands are parsed
// into structured params, validated against the active session's schema, and
// submitted through the session so mode, history, and undo semantics all
// apply exactly as they do for programmatic use.
package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/elk-language/go-prompt"
	istrings "github.com/elk-language/go-prompt/strings"

	"github.com/siftdata/sift/internal/argv"
	"github.com/siftdata/sift/internal/config"
	"github.com/siftdata/sift/internal/export"
	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/loader"
	"github.com/siftdata/sift/internal/op"
	"github.com/siftdata/sift/internal/persist"
	"github.com/siftdata/sift/internal/session"
	"github.com/siftdata/sift/internal/tableview"
)

// commandWords are the first-token completions offered at the prompt.
var commandWords = []prompt.Suggest{
	{Text: "open", Description: "Load a dataset into a new session"},
	{Text: "use", Description: "Switch the active session"},
	{Text: "sessions", Description: "List open sessions"},
	{Text: "close", Description: "Close a session"},
	{Text: "filter", Description: "Keep rows matching a condition"},
	{Text: "search", Description: "Keep rows containing text"},
	{Text: "agg", Description: "Group and aggregate"},
	{Text: "pivot", Description: "Pivot around an index column"},
	{Text: "join", Description: "Join with another dataset"},
	{Text: "sort", Description: "Sort rows"},
	{Text: "col", Description: "Rename, drop, cast, or derive a column"},
	{Text: "undo", Description: "Undo the most recent operation"},
	{Text: "redo", Description: "Redo the most recently undone operation"},
	{Text: "mode", Description: "Show or switch execution mode"},
	{Text: "run", Description: "Execute queued operations"},
	{Text: "cancel", Description: "Cancel the in-flight execution"},
	{Text: "ops", Description: "List the operation history"},
	{Text: "show", Description: "Print the current frame"},
	{Text: "view", Description: "Open the interactive table view"},
	{Text: "save", Description: "Save the analysis to a file"},
	{Text: "export", Description: "Export the analysis as script or markdown"},
	{Text: "help", Description: "Show command help"},
	{Text: "exit", Description: "Quit"},
}

const helpText = `Session commands:
  open <path> [name]        load a CSV or JSON dataset into a new session
  use <name>                switch the active session
  sessions                  list open sessions
  close <name>              close a session

Operations (recorded in the active session's history):
  filter <col> <op> <value>       ops: == != > >= < <= contains
  filter expr <expression>        free-form boolean expression
  search <text>                   match text columns, case-insensitive
  agg <func(col)[,...]> by <col[,...]>   funcs: sum mean min max count
  pivot <index> <column> <value> <func>
  join <path> <left-key> <right-key> [inner|left]
  sort <col[:desc][,...]>
  col rename <col> <new> | col drop <col>
  col cast <col> <numeric|text|date|boolean>
  col derive <name> = <expression>

History and execution:
  undo | redo               step the history (redo re-queues)
  mode [lazy|eager]         show or switch execution mode
  run                       execute queued operations, halting on failure
  cancel                    cancel the in-flight execution
  ops                       list history entries and their states

Output:
  show [n]                  print the first n rows (default from config)
  view                      open the interactive table view
  save <path>               save the analysis as JSON
  export <script|md> <path> export the analysis
`

// dispatcher fans session messages out to whichever sink is currently
// attached (the table view while it is open). Without a sink, messages are
// dropped; the prompt reports outcomes synchronously instead.
type dispatcher struct {
	mu   sync.Mutex
	sink func(session.Message)
}

func (d *dispatcher) Notify(msg session.Message) {
	d.mu.Lock()
	sink := d.sink
	d.mu.Unlock()
	if sink != nil {
		sink(msg)
	}
}

func (d *dispatcher) setSink(fn func(session.Message)) {
	d.mu.Lock()
	d.sink = fn
	d.mu.Unlock()
}

// REPL is the interactive prompt state.
type REPL struct {
	cfg      *config.Config
	ws       *session.Workspace
	out      io.Writer
	dispatch *dispatcher

	active   string
	datasets map[string]string // session name -> dataset path
}

// New creates a REPL over an empty workspace.
func New(cfg *config.Config, out io.Writer) *REPL {
	return &REPL{
		cfg:      cfg,
		ws:       session.NewWorkspace(),
		out:      out,
		dispatch: &dispatcher{},
		datasets: make(map[string]string),
	}
}

// Open creates a session over a deferred scan of the dataset at path; the
// file is only read once the workspace has accepted the session. An empty
// name derives the session name from the file name.
func (r *REPL) Open(path, name string) error {
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	mode := session.Mode(config.DefaultSchema().Resolve(r.cfg, "mode"))
	if v, ok := r.cfg.GetCommandOption("open", "mode"); ok && v != "" {
		mode = session.Mode(v)
	}
	if !session.ValidMode(mode) {
		mode = session.Lazy
	}

	s, err := r.ws.OpenSource(context.Background(), name, loader.Scan(path), mode, r.dispatch)
	if err != nil {
		return err
	}
	base := s.Base()
	r.active = name
	r.datasets[name] = path
	fmt.Fprintf(r.out, "opened %s as %q: %d rows x %d cols, %s mode\n",
		path, name, base.NumRows(), base.NumCols(), s.Mode())
	return nil
}

// Execute runs one command line. It returns false when the prompt should
// exit.
func (r *REPL) Execute(line string) bool {
	tokens := argv.ParseSlice(line)
	if len(tokens) == 0 {
		return true
	}

	var err error
	switch tokens[0] {
	case "exit", "quit":
		return false
	case "help":
		fmt.Fprint(r.out, helpText)
	case "open":
		err = r.cmdOpen(tokens[1:])
	case "use":
		err = r.cmdUse(tokens[1:])
	case "sessions":
		r.cmdSessions()
	case "close":
		err = r.cmdClose(tokens[1:])
	case "mode":
		err = r.cmdMode(tokens[1:])
	case "run":
		err = r.cmdRun()
	case "cancel":
		err = r.cmdCancel()
	case "undo":
		err = r.cmdUndo()
	case "redo":
		err = r.cmdRedo()
	case "ops":
		err = r.cmdOps()
	case "show":
		err = r.cmdShow(tokens[1:])
	case "view":
		err = r.cmdView()
	case "save":
		err = r.cmdSave(tokens[1:])
	case "export":
		err = r.cmdExport(tokens[1:])
	default:
		err = r.cmdOperation(tokens)
	}

	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
	}
	return true
}

func (r *REPL) activeSession() (*session.Session, error) {
	if r.active == "" {
		return nil, fmt.Errorf("no open session; use 'open <path>' first")
	}
	s, ok := r.ws.Get(r.active)
	if !ok {
		return nil, fmt.Errorf("session %q no longer exists", r.active)
	}
	return s, nil
}

func (r *REPL) cmdOpen(args []string) error {
	if len(args) != 1 && len(args) != 2 {
		return fmt.Errorf("usage: open <path> [name]")
	}
	name := ""
	if len(args) == 2 {
		name = args[1]
	}
	return r.Open(args[0], name)
}

func (r *REPL) cmdUse(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: use <name>")
	}
	if _, ok := r.ws.Get(args[0]); !ok {
		return fmt.Errorf("no session named %q", args[0])
	}
	r.active = args[0]
	fmt.Fprintf(r.out, "using %q\n", r.active)
	return nil
}

func (r *REPL) cmdSessions() {
	names := r.ws.Names()
	if len(names) == 0 {
		fmt.Fprintln(r.out, "no open sessions")
		return
	}
	for _, name := range names {
		marker := " "
		if name == r.active {
			marker = "*"
		}
		s, _ := r.ws.Get(name)
		fmt.Fprintf(r.out, "%s %s (%s, %d ops)\n", marker, name, s.Mode(), len(s.ActiveEntries()))
	}
}

func (r *REPL) cmdClose(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: close <name>")
	}
	if !r.ws.Close(args[0]) {
		return fmt.Errorf("no session named %q", args[0])
	}
	delete(r.datasets, args[0])
	if r.active == args[0] {
		r.active = ""
		if names := r.ws.Names(); len(names) > 0 {
			r.active = names[0]
		}
	}
	fmt.Fprintf(r.out, "closed %q\n", args[0])
	return nil
}

func (r *REPL) cmdMode(args []string) error {
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprintf(r.out, "%s\n", s.Mode())
		return nil
	}
	m := session.Mode(args[0])
	if !session.ValidMode(m) {
		return fmt.Errorf("unknown mode %q, want lazy or eager", args[0])
	}
	s.SetMode(m)
	fmt.Fprintf(r.out, "mode set to %s\n", m)
	return nil
}

func (r *REPL) cmdRun() error {
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	if err := s.ExecuteQueued(); err != nil {
		return err
	}
	s.Wait()
	r.reportOutcome(s)
	return nil
}

func (r *REPL) cmdCancel() error {
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	s.Cancel()
	s.Wait()
	fmt.Fprintln(r.out, "canceled")
	return nil
}

func (r *REPL) cmdUndo() error {
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	o, err := s.Undo()
	if err != nil {
		return err
	}
	s.Wait()
	fmt.Fprintf(r.out, "undone: %s\n", o.Label())
	return nil
}

func (r *REPL) cmdRedo() error {
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	o, err := s.Redo()
	if err != nil {
		return err
	}
	s.Wait()
	fmt.Fprintf(r.out, "redone: %s [%s]\n", o.Label(), o.State())
	return nil
}

func (r *REPL) cmdOps() error {
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	entries := s.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "history is empty")
		return nil
	}
	for _, o := range entries {
		line := fmt.Sprintf("%3d %s %s", o.Seq, stateGlyph(o.State()), o.Label())
		if e := o.Err(); e != nil {
			line += fmt.Sprintf("  (%s)", e)
		}
		fmt.Fprintln(r.out, line)
	}
	if n := s.RedoLen(); n > 0 {
		fmt.Fprintf(r.out, "(%d undone, redoable)\n", n)
	}
	return nil
}

func stateGlyph(st op.State) string {
	switch st {
	case op.Queued:
		return "·"
	case op.Executed:
		return "✓"
	case op.Failed:
		return "✗"
	case op.Undone:
		return "↩"
	default:
		return "?"
	}
}

func (r *REPL) cmdShow(args []string) error {
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	n := r.cfg.View.MaxRows
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("usage: show [rows]")
		}
		n = v
	}
	f := s.Frame()
	printFrame(r.out, f, n)
	fmt.Fprintf(r.out, "%d rows x %d cols\n", f.NumRows(), f.NumCols())
	return nil
}

func (r *REPL) cmdView() error {
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	return tableview.Run(s, r.cfg.View, r.dispatch.setSink)
}

func (r *REPL) cmdSave(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: save <path>")
	}
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	a, err := persist.Snapshot(s, r.datasets[r.active])
	if err != nil {
		return err
	}
	if err := persist.Save(args[0], a); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "saved %d operations to %s\n", len(a.Entries), args[0])
	return nil
}

func (r *REPL) cmdExport(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: export <script|md> <path>")
	}
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	a, err := persist.Snapshot(s, r.datasets[r.active])
	if err != nil {
		return err
	}

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	switch args[0] {
	case "script":
		err = export.Script(f, a)
	case "md", "markdown":
		err = export.Markdown(f, a, s.Frame())
	default:
		return fmt.Errorf("unknown export format %q, want script or md", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "exported %s to %s\n", args[0], args[1])
	return nil
}

// cmdOperation parses and submits an operation command against the active
// session. In eager mode it waits for the materialization pass and reports
// the outcome; in lazy mode the operation stays queued.
func (r *REPL) cmdOperation(tokens []string) error {
	s, err := r.activeSession()
	if err != nil {
		return err
	}
	params, err := parseOperation(tokens)
	if err != nil {
		return err
	}
	o, err := op.New(params, s.Schema())
	if err != nil {
		return err
	}
	if err := s.Submit(o); err != nil {
		return err
	}

	if s.Mode() == session.Eager {
		s.Wait()
		r.reportOutcome(s)
	} else {
		fmt.Fprintf(r.out, "queued: %s\n", o.Label())
	}
	return nil
}

// reportOutcome prints the state of the history's tail after an execution
// pass: the failure if one halted the pass, otherwise the new frame shape.
func (r *REPL) reportOutcome(s *session.Session) {
	for _, o := range s.ActiveEntries() {
		if o.State() == op.Failed {
			fmt.Fprintf(r.out, "failed: %s: %s\n", o.Label(), o.Err())
			return
		}
	}
	f := s.Frame()
	fmt.Fprintf(r.out, "ok: %d rows x %d cols\n", f.NumRows(), f.NumCols())
}

// printFrame renders up to n rows of f as an aligned text table.
func printFrame(w io.Writer, f *frame.Frame, n int) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	names := f.Columns()
	fmt.Fprintln(tw, strings.Join(names, "\t"))

	head := f.Head(n)
	for i := 0; i < head.NumRows(); i++ {
		cells := make([]string, len(names))
		for j, name := range names {
			col, _ := head.Column(name)
			cells[j] = frame.FormatValue(col.Value(i))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	if f.NumRows() > n {
		fmt.Fprintf(w, "... %d more rows\n", f.NumRows()-n)
	}
}

// Run starts the interactive prompt and blocks until exit.
func (r *REPL) Run() {
	fmt.Fprintln(r.out, "sift interactive prompt")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'exit' to quit")

	executor := func(line string) {
		if !r.Execute(line) {
			os.Exit(0)
		}
	}

	completer := func(document prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
		suggestions := r.completions(document)
		before := document.TextBeforeCursor()
		_, cur := argv.BeforeCursor(before)
		start := runeLen(before) - runeLen(cur.Text)
		end := runeLen(before)
		return suggestions, istrings.RuneNumber(start), istrings.RuneNumber(end)
	}

	options := []prompt.Option{
		prompt.WithPrefix(r.prefix()),
		prompt.WithCompleter(completer),
		prompt.WithInputTextColor(prompt.Green),
		prompt.WithPrefixTextColor(prompt.Cyan),
		prompt.WithSuggestionTextColor(prompt.Yellow),
		prompt.WithSuggestionBGColor(prompt.Black),
		prompt.WithSelectedSuggestionTextColor(prompt.Black),
		prompt.WithSelectedSuggestionBGColor(prompt.Cyan),
		prompt.WithDescriptionTextColor(prompt.White),
		prompt.WithDescriptionBGColor(prompt.Black),
	}
	if history := loadHistory(".sift_history"); len(history) > 0 {
		options = append(options, prompt.WithHistory(history))
	}

	prompt.New(executor, options...).Run()
}

func (r *REPL) prefix() string {
	if r.active == "" {
		return "sift> "
	}
	return "sift:" + r.active + "> "
}

// completions suggests command words for the first token and column names,
// keywords, and modes afterwards.
func (r *REPL) completions(document prompt.Document) []prompt.Suggest {
	before := document.TextBeforeCursor()
	completed, cur := argv.BeforeCursor(before)

	if len(completed) == 0 {
		return prompt.FilterHasPrefix(commandWords, cur.Text, true)
	}

	var pool []prompt.Suggest
	if s, ok := r.ws.Get(r.active); ok {
		for _, ct := range s.Schema() {
			pool = append(pool, prompt.Suggest{Text: ct.Name, Description: string(ct.Category) + " column"})
		}
	}
	switch completed[0] {
	case "agg":
		pool = append(pool, prompt.Suggest{Text: "by"})
	case "mode":
		pool = []prompt.Suggest{{Text: "lazy"}, {Text: "eager"}}
	case "join":
		pool = append(pool, prompt.Suggest{Text: "inner"}, prompt.Suggest{Text: "left"})
	case "col":
		if len(completed) == 1 {
			pool = []prompt.Suggest{{Text: "rename"}, {Text: "drop"}, {Text: "cast"}, {Text: "derive"}}
		}
	case "export":
		if len(completed) == 1 {
			pool = []prompt.Suggest{{Text: "script"}, {Text: "md"}}
		}
	case "use", "close":
		pool = pool[:0]
		for _, name := range r.ws.Names() {
			pool = append(pool, prompt.Suggest{Text: name, Description: "session"})
		}
	}
	return prompt.FilterHasPrefix(pool, cur.Text, true)
}

// runeLen is the length of s in runes.
func runeLen(s string) int {
	return len([]rune(s))
}

// loadHistory loads prompt history from a file.
func loadHistory(filename string) []string {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil
	}
	var history []string
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			history = append(history, line)
		}
	}
	return history
}
