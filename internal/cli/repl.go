package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/tasksearch/tsk/internal/query"
	"github.com/tasksearch/tsk/internal/task"
)

// ReplCmd returns the repl command.
func ReplCmd(app *App) *Command {
	flags := flag.NewFlagSet("repl", flag.ContinueOnError)
	caseSensitive := flags.Bool("case-sensitive", false, "Match case-sensitively")

	return &Command{
		Flags: flags,
		Usage: "repl [flags]",
		Short: "Interactive query prompt",
		Long: "Load the vault once and evaluate each entered query against it.\n" +
			"Type :help for the line commands, :quit or Ctrl-D to leave.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			engine, tasks, err := app.OpenEngine()
			if err != nil {
				return err
			}

			// Flag beats config in both directions, like search.
			matchCase := app.Config.CaseSensitive
			if flags.Changed("case-sensitive") {
				matchCase = *caseSensitive
			}

			r := &repl{
				app:           app,
				engine:        engine,
				tasks:         tasks,
				caseSensitive: matchCase,
			}

			return r.run(ctx, o)
		},
	}
}

type repl struct {
	app           *App
	engine        *query.Engine
	tasks         []task.Task
	caseSensitive bool
	liner         *liner.State
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".tsk_history")
}

func (r *repl) run(ctx context.Context, o *IO) error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	o.Printf("tsk - %d tasks loaded from %s\n", len(r.tasks), r.app.VaultDir())
	o.Println("Type :help for commands.")
	o.Println()

	for {
		line, err := r.liner.Prompt("tsk> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				o.Println()

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			if done := r.lineCommand(o, line); done {
				break
			}

			continue
		}

		r.search(ctx, o, line)
	}

	r.saveHistory()

	return nil
}

// lineCommand handles the ":" commands. Returns true when the loop should
// end.
func (r *repl) lineCommand(o *IO, line string) bool {
	switch line {
	case ":quit", ":q", ":exit":
		return true

	case ":help", ":h":
		o.Println("Enter a query to run it against the vault, e.g.:")
		o.Println("  work -urgent")
		o.Println(`  "star wars" OR tag:movies`)
		o.Println("  scheduled:this week state:TODO")
		o.Println()
		o.Println("Commands:")
		o.Println("  :help   show this help")
		o.Println("  :quit   leave the prompt")

	default:
		o.Println("unknown command:", line, "(type :help)")
	}

	return false
}

func (r *repl) search(ctx context.Context, o *IO, queryText string) {
	if parseError := r.engine.ParseError(queryText); parseError != nil {
		o.Println("invalid query:", parseError.Message)
		o.Printf("  %s\n", queryText)
		o.Printf("  %s^\n", strings.Repeat(" ", parseError.Pos))

		return
	}

	count := 0

	for _, tsk := range r.tasks {
		ok, err := r.engine.Evaluate(ctx, queryText, &tsk, r.caseSensitive)
		if err != nil {
			o.Println("error:", err)

			return
		}

		if ok {
			count++

			o.Printf("%s:%d: %s\n", tsk.Path, tsk.Line, tsk.Text)
		}
	}

	o.Printf("%d match(es)\n", count)
}

// saveHistory persists prompt history to disk.
func (r *repl) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}

	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = r.liner.WriteHistory(f)
}
