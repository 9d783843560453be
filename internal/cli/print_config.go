package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/tasksearch/tsk/internal/config"
)

// ConfigCmd returns the config command.
func ConfigCmd(app *App) *Command {
	return &Command{
		Flags: flag.NewFlagSet("config", flag.ContinueOnError),
		Usage: "config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			formatted, err := config.Format(app.Config)
			if err != nil {
				return err
			}

			o.Println(formatted)
			o.Println()
			o.Println("# sources")

			if app.Sources.Global == "" && app.Sources.Project == "" {
				o.Println("(defaults only)")

				return nil
			}

			if app.Sources.Global != "" {
				o.Println("global_config=" + app.Sources.Global)
			}

			if app.Sources.Project != "" {
				o.Println("project_config=" + app.Sources.Project)
			}

			return nil
		},
	}
}
