package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/tasksearch/tsk/internal/task"
)

// ErrMissingQuery reports a search or check invocation without a query
// argument.
var ErrMissingQuery = errors.New("missing query argument")

// searchResult is the JSON shape of one exported match.
type searchResult struct {
	Path      string   `json:"path"`
	Line      int      `json:"line"`
	Text      string   `json:"text"`
	State     string   `json:"state"`
	Priority  string   `json:"priority,omitempty"`
	Scheduled string   `json:"scheduled,omitempty"`
	Deadline  string   `json:"deadline,omitempty"`
	Urgency   *float64 `json:"urgency,omitempty"`
}

// SearchCmd returns the search command.
func SearchCmd(app *App) *Command {
	flags := flag.NewFlagSet("search", flag.ContinueOnError)
	flags.SetInterspersed(false) // queries may contain "-", flags go first
	caseSensitive := flags.Bool("case-sensitive", false, "Match case-sensitively")
	countOnly := flags.Bool("count", false, "Print only the number of matches")
	outFile := flags.String("out", "", "Write matches as JSON to this file (atomic)")

	return &Command{
		Flags: flags,
		Usage: "search <query> [flags]",
		Short: "Search the vault's tasks",
		Long: "Evaluate a query against every task in the vault and print the matches.\n" +
			"The query supports words, \"phrases\", AND/OR/-, parentheses, field\n" +
			"prefixes (state:, tag:, scheduled:, ...), date ranges, and [property]\n" +
			"filters against frontmatter.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return ErrMissingQuery
			}

			queryText := strings.Join(args, " ")

			// The flag wins over the config file in both directions, so an
			// explicit --case-sensitive=false overrides a configured true.
			matchCase := app.Config.CaseSensitive
			if flags.Changed("case-sensitive") {
				matchCase = *caseSensitive
			}

			engine, tasks, err := app.OpenEngine()
			if err != nil {
				return err
			}

			if parseError := engine.ParseError(queryText); parseError != nil {
				return fmt.Errorf("invalid query: %w", parseError)
			}

			var matches []task.Task

			for _, tsk := range tasks {
				ok, evalErr := engine.Evaluate(ctx, queryText, &tsk, matchCase)
				if evalErr != nil {
					return evalErr
				}

				if ok {
					matches = append(matches, tsk)
				}
			}

			if *outFile != "" {
				if writeErr := writeResults(*outFile, matches); writeErr != nil {
					return writeErr
				}
			}

			if *countOnly {
				o.Println(len(matches))

				return nil
			}

			for _, m := range matches {
				o.Printf("%s:%d: %s\n", m.Path, m.Line, m.Text)
			}

			return nil
		},
	}
}

// writeResults exports matches as a JSON array, written atomically so a
// consumer never observes a partial file.
func writeResults(path string, matches []task.Task) error {
	results := make([]searchResult, 0, len(matches))

	for _, m := range matches {
		r := searchResult{
			Path:     m.Path,
			Line:     m.Line,
			Text:     m.Text,
			State:    m.State,
			Priority: m.Priority,
			Urgency:  m.Urgency,
		}

		if m.Scheduled != nil {
			r.Scheduled = m.Scheduled.Format("2006-01-02")
		}

		if m.Deadline != nil {
			r.Deadline = m.Deadline.Format("2006-01-02")
		}

		results = append(results, r)
	}

	data, marshalErr := json.MarshalIndent(results, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("encode results: %w", marshalErr)
	}

	data = append(data, '\n')

	if writeErr := atomic.WriteFile(path, bytes.NewReader(data)); writeErr != nil {
		return fmt.Errorf("write %s: %w", path, writeErr)
	}

	return nil
}
