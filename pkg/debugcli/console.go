package debugcli

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/replicatedhq/patchsmith/pkg/corpus"
	"github.com/replicatedhq/patchsmith/pkg/diff"
	"github.com/replicatedhq/patchsmith/pkg/extract"
	"github.com/replicatedhq/patchsmith/pkg/syntax"
)

var (
	boldBlue   = color.New(color.FgBlue, color.Bold).SprintFunc()
	boldGreen  = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldRed    = color.New(color.FgRed, color.Bold).SprintFunc()
	boldYellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	dimText    = color.New(color.Faint).SprintFunc()

	// To track double Ctrl+C for exit
	lastInterrupt *time.Time
)

// ConsoleOptions defines configuration options for the debug console
type ConsoleOptions struct {
	File           string       // Source file loaded at startup
	Language       string       // Language tag, detected from the file when empty
	EngineOptions  diff.Options // Options for the patch engine
	NonInteractive bool         // If true, execute Command and exit
	Command        []string     // Command to execute in non-interactive mode
	Out            io.Writer    // Defaults to stdout
}

// DebugConsole holds the console state: a source, the queued hunks and the
// result of the last apply.
type DebugConsole struct {
	ctx      context.Context
	engine   *diff.Engine
	readline *readline.Instance
	options  ConsoleOptions
	out      io.Writer

	filePath string
	language syntax.Language
	source   string
	hunks    []string
	result   *diff.ApplyResult
}

func newConsole(ctx context.Context, options ConsoleOptions) *DebugConsole {
	out := options.Out
	if out == nil {
		out = os.Stdout
	}
	return &DebugConsole{
		ctx:     ctx,
		engine:  diff.NewEngine(options.EngineOptions),
		options: options,
		out:     out,
	}
}

// RunConsole initializes and runs the debug console with the given options
func RunConsole(ctx context.Context, options ConsoleOptions) error {
	console := newConsole(ctx, options)

	if options.File != "" {
		if err := console.load([]string{options.File}); err != nil {
			return errors.Wrapf(err, "failed to load %s", options.File)
		}
	}
	if options.Language != "" {
		console.language = syntax.ParseLanguage(options.Language)
	}

	if options.NonInteractive {
		if len(options.Command) == 0 {
			return errors.New("no command specified in non-interactive mode")
		}
		return console.executeCommand(options.Command[0], options.Command[1:])
	}

	if err := console.run(); err != nil {
		return errors.Wrap(err, "console error")
	}
	return nil
}

func (c *DebugConsole) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *DebugConsole) println(args ...interface{}) {
	fmt.Fprintln(c.out, args...)
}

func (c *DebugConsole) prompt() string {
	if c.filePath == "" && c.source == "" {
		return boldYellow("[NO SOURCE]> ")
	}
	name := c.filePath
	if name == "" {
		name = "generated"
	}
	return boldGreen(fmt.Sprintf("%s[%d hunks]> ", filepath.Base(name), len(c.hunks)))
}

func (c *DebugConsole) run() error {
	c.println(boldBlue("Patchsmith Debug Console"))
	c.println(dimText("Type 'help' for available commands, 'exit' to quit"))
	c.println(dimText("Use 'load <file>' to pick a source and 'hunk' to queue a hunk"))
	c.println(dimText("Press Ctrl+C twice in quick succession to exit"))
	c.println()

	var historyFile string
	usr, err := user.Current()
	if err == nil {
		historyFile = filepath.Join(usr.HomeDir, ".patchsmith_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 c.prompt(),
		HistoryFile:            historyFile,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		HistorySearchFold:      true,
		DisableAutoSaveHistory: false,
		HistoryLimit:           1000,
		VimMode:                false,
		AutoComplete:           completer(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize readline")
	}
	defer rl.Close()

	c.readline = rl

	for {
		rl.SetPrompt(c.prompt())

		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				c.println("^C")
				if lastInterrupt != nil && time.Since(*lastInterrupt) < 2*time.Second {
					c.println("Exiting...")
					return nil
				}
				now := time.Now()
				lastInterrupt = &now
				continue
			} else if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "failed to read input")
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		parts := strings.Fields(strings.TrimPrefix(input, "/"))
		if err := c.executeCommand(parts[0], parts[1:]); err != nil {
			c.println(boldRed("Error:"), err)
		}
	}
}

func completer() *readline.PrefixCompleter {
	files := readline.PcItemDynamic(func(prefix string) []string {
		matches, _ := filepath.Glob("*")
		return matches
	})
	return readline.NewPrefixCompleter(
		readline.PcItem("load", files),
		readline.PcItem("hunk", files),
		readline.PcItem("hunks", files),
		readline.PcItem("clear"),
		readline.PcItem("apply", files),
		readline.PcItem("validate"),
		readline.PcItem("show",
			readline.PcItem("source"),
			readline.PcItem("result"),
			readline.PcItem("hunks"),
		),
		readline.PcItem("tiers"),
		readline.PcItem("random"),
		readline.PcItem("mutate"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

func (c *DebugConsole) executeCommand(cmd string, args []string) error {
	needsSource := map[string]bool{"apply": true, "validate": true, "mutate": true}
	if needsSource[cmd] && c.filePath == "" && c.source == "" {
		return errors.New("no source loaded. Use 'load <file>' or 'random'")
	}

	switch cmd {
	case "help":
		c.showHelp()
	case "load":
		return c.load(args)
	case "hunk":
		return c.addHunk(args)
	case "hunks":
		return c.addResponse(args)
	case "clear":
		c.hunks = nil
		c.result = nil
		c.println(dimText("Hunk queue cleared"))
	case "apply":
		return c.apply(args)
	case "validate":
		return c.validate()
	case "show":
		return c.show(args)
	case "tiers":
		c.showTiers()
	case "random":
		return c.random(args)
	case "mutate":
		return c.mutate(args)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return nil
}

func (c *DebugConsole) showHelp() {
	c.println(boldBlue("Source Commands:"))
	c.println("  " + boldGreen("load") + " <file>                 Load a source file")
	c.println("  " + boldGreen("random") + " [--complexity=low|medium|high] [--language=L]  Generate a random source")
	c.println("  " + boldGreen("show") + " [source|result|hunks]  Print the source, the last result or the queue")
	c.println()

	c.println(boldBlue("Hunk Commands:"))
	c.println("  " + boldGreen("hunk") + " [file]                 Queue a hunk from a file, or type one ending with '.'")
	c.println("  " + boldGreen("hunks") + " [file]                Queue the hunks found in a generator response, or list the queue")
	c.println("  " + boldGreen("mutate") + " [--edits=N] [--drift=D] [--seed=S]  Queue hunks for a random edit of the source")
	c.println("  " + boldGreen("clear") + "                       Drop every queued hunk")
	c.println()

	c.println(boldBlue("Apply Commands:"))
	c.println("  " + boldGreen("apply") + " [file...] [--commit] [--output=<path>]  Apply the queue, optionally keeping the result as the new source")
	c.println("  " + boldGreen("validate") + "                    Validate the last result, or the source")
	c.println("  " + boldGreen("tiers") + "                       Show which tiers are available")
	c.println()

	c.println(boldBlue("General Commands:"))
	c.println("  " + boldGreen("help") + "                        Show this help")
	c.println("  " + boldGreen("exit") + "                        Exit the console")
	c.println()
}

func (c *DebugConsole) load(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: load <file>")
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", args[0])
	}

	c.filePath = args[0]
	c.source = string(content)
	c.result = nil
	c.language = syntax.DetectLanguage(c.filePath, c.source)

	c.printf("%s %s (%d lines, %s)\n", boldBlue("Loaded"), c.filePath, strings.Count(c.source, "\n"), c.language)
	return nil
}

func (c *DebugConsole) addHunk(args []string) error {
	var text string
	switch {
	case len(args) == 1:
		content, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", args[0])
		}
		text = string(content)
	case c.readline != nil:
		typed, err := c.readHunk()
		if err != nil {
			return err
		}
		text = typed
	default:
		return errors.New("usage: hunk <file>")
	}

	split := diff.SplitHunks(text)
	if len(split) == 0 {
		return errors.New("hunk is empty")
	}
	c.hunks = append(c.hunks, split...)
	c.printf("%s %d hunk(s), %d queued\n", boldGreen("Queued"), len(split), len(c.hunks))
	return nil
}

// readHunk reads lines until a line holding a single ".".
func (c *DebugConsole) readHunk() (string, error) {
	c.println(dimText("Enter the hunk, finish with a line containing only '.'"))
	c.readline.SetPrompt("  ")
	defer c.readline.SetPrompt(c.prompt())

	var lines []string
	for {
		line, err := c.readline.Readline()
		if err != nil {
			return "", errors.Wrap(err, "failed to read hunk")
		}
		if line == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (c *DebugConsole) addResponse(args []string) error {
	if len(args) == 0 {
		return c.show([]string{"hunks"})
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", args[0])
	}

	found := extract.Hunks(string(content))
	if len(found) == 0 {
		return errors.Errorf("no hunks found in %s", args[0])
	}
	c.hunks = append(c.hunks, found...)
	c.printf("%s %d hunk(s) from %s, %d queued\n", boldGreen("Extracted"), len(found), args[0], len(c.hunks))
	return nil
}

func (c *DebugConsole) apply(args []string) error {
	commit := false
	outputPath := ""
	for _, arg := range args {
		switch {
		case arg == "--commit":
			commit = true
		case strings.HasPrefix(arg, "--output="):
			outputPath = strings.TrimPrefix(arg, "--output=")
		default:
			if err := c.addHunk([]string{arg}); err != nil {
				return err
			}
		}
	}
	if len(c.hunks) == 0 {
		return errors.New("no hunks queued")
	}

	res := c.engine.Apply(c.ctx, c.source, c.hunks)
	c.result = &res

	c.printf("%s tier=%s chunks=%d/%d in %s\n", boldBlue("Applied"), res.Tier, res.ChunksApplied, res.ChunksTotal, res.Duration.Round(time.Microsecond))
	for _, o := range res.Outcomes {
		status := string(o.Status)
		switch o.Status {
		case diff.StatusApplied:
			status = boldGreen(status)
		case diff.StatusRelocated, diff.StatusInserted:
			status = boldYellow(status)
		default:
			status = boldRed(status)
		}
		c.printf("  chunk %d: %s line %d\n", o.Index, status, o.Line)
	}
	for _, w := range res.Warnings {
		c.println(" ", boldYellow("warning:"), w)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(res.Text), 0644); err != nil {
			return errors.Wrapf(err, "failed to write %s", outputPath)
		}
		c.printf("  Saved to: %s\n", outputPath)
	}

	if commit {
		c.source = res.Text
		c.hunks = nil
		c.println(dimText("Result kept as the new source, queue cleared"))
	}
	return nil
}

func (c *DebugConsole) validate() error {
	text := c.source
	what := "source"
	if c.result != nil {
		text = c.result.Text
		what = "result"
	}

	ok, msg := syntax.Validate(c.ctx, text, c.language)
	if ok {
		c.printf("%s %s is valid %s: %s\n", boldGreen("OK"), what, c.language, msg)
	} else {
		c.printf("%s %s is not valid %s: %s\n", boldRed("INVALID"), what, c.language, msg)
	}
	return nil
}

func (c *DebugConsole) show(args []string) error {
	what := "result"
	if len(args) > 0 {
		what = args[0]
	}

	switch what {
	case "source":
		c.printf("%s", c.source)
	case "result":
		if c.result == nil {
			return errors.New("nothing applied yet")
		}
		c.printf("%s", c.result.Text)
	case "hunks":
		if len(c.hunks) == 0 {
			c.println(dimText("No hunks queued"))
			return nil
		}
		for i, h := range c.hunks {
			c.println(boldBlue(fmt.Sprintf("Hunk %d:", i+1)))
			c.println(h)
		}
	default:
		return errors.Errorf("unknown view %q, expected source, result or hunks", what)
	}
	return nil
}

func (c *DebugConsole) showTiers() {
	opts := c.engine.Options()

	external := !opts.DisableExternal
	for _, tool := range []string{"patch", "git"} {
		_, err := exec.LookPath(tool)
		state := boldGreen("found")
		if err != nil {
			state = boldRed("missing")
		}
		c.printf("  %-12s %s\n", tool, state)
	}

	c.printf("  %-12s %v\n", "external", external)
	c.printf("  %-12s %v\n", "structured", !opts.DisableStructured && diff.StructuredParserAvailable)
	c.printf("  %-12s %v\n", "manual", true)
	c.printf("  %s\n", dimText(fmt.Sprintf("window=%d widen=%d min-length-ratio=%.2f timeout=%s",
		opts.FuzzyWindow, opts.ContextWiden, opts.MinLengthRatio, opts.ExternalTimeout)))
}

func (c *DebugConsole) random(args []string) error {
	complexity := corpus.ComplexityMedium
	lang := syntax.Procedural
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--complexity="):
			switch v := strings.TrimPrefix(arg, "--complexity="); v {
			case "low", "medium", "high":
				complexity = corpus.Complexity(v)
			default:
				return errors.New("invalid complexity value, must be low, medium, or high")
			}
		case strings.HasPrefix(arg, "--language="):
			lang = syntax.ParseLanguage(strings.TrimPrefix(arg, "--language="))
		}
	}

	c.source = corpus.GenerateSource(rand.New(rand.NewSource(time.Now().UnixNano())), lang, complexity)
	c.filePath = ""
	c.language = lang
	c.result = nil
	c.hunks = nil

	c.printf("%s %s source with complexity %s (%d lines)\n", boldBlue("Generated"), lang, complexity, strings.Count(c.source, "\n"))
	return nil
}

func (c *DebugConsole) mutate(args []string) error {
	opts := corpus.SynthesizeOptions{
		Language: c.language,
		Seed:     time.Now().UnixNano(),
		Count:    1,
	}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return errors.Errorf("invalid argument %q", arg)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid value for %s", name)
		}
		switch name {
		case "--edits":
			opts.MaxEdits = n
		case "--drift":
			opts.Drift = n
		case "--seed":
			opts.Seed = int64(n)
		default:
			return errors.Errorf("unknown flag %s", name)
		}
	}

	cases, err := corpus.Synthesize(c.source, opts)
	if err != nil {
		return errors.Wrap(err, "failed to synthesize hunks")
	}

	c.hunks = append(c.hunks, cases[0].Hunks...)
	c.printf("%s %d hunk(s), %d queued\n", boldGreen("Synthesized"), len(cases[0].Hunks), len(c.hunks))
	return nil
}
