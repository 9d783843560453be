package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/tasksearch/tsk/internal/query"
)

// ErrInvalidQuery reports a query that failed validation.
var ErrInvalidQuery = errors.New("invalid query")

// CheckCmd returns the check command.
func CheckCmd(_ *App) *Command {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)
	flags.SetInterspersed(false) // queries may contain "-"

	return &Command{
		Flags: flags,
		Usage: "check <query>",
		Short: "Validate a query without running it",
		Long: "Parse the query and report whether it is well-formed. On a syntax\n" +
			"error the message and byte position are printed and the exit code is 1.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return ErrMissingQuery
			}

			queryText := strings.Join(args, " ")

			_, parseErr := query.Parse(query.Tokenize(queryText))
			if parseErr == nil {
				o.Println("ok")

				return nil
			}

			var searchError *query.SearchError
			if errors.As(parseErr, &searchError) {
				o.Printf("%s\n", searchError.Message)
				o.Printf("  %s\n", queryText)
				o.Printf("  %s^\n", strings.Repeat(" ", searchError.Pos))
			}

			return ErrInvalidQuery
		},
	}
}
