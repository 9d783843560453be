// Package cli wires the tsk commands: search, check, repl, and config.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/tasksearch/tsk/internal/config"
	"github.com/tasksearch/tsk/internal/query"
	"github.com/tasksearch/tsk/internal/task"
	"github.com/tasksearch/tsk/internal/vault"
)

// App carries the resolved configuration and streams into the commands.
type App struct {
	In      io.Reader
	Config  config.Config
	Sources config.Sources
	WorkDir string
}

// VaultDir returns the configured vault directory as an absolute path.
func (a *App) VaultDir() string {
	dir := a.Config.VaultDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.WorkDir, dir)
	}

	return dir
}

// OpenEngine loads the vault's tasks and builds a query engine backed by the
// vault's frontmatter properties.
func (a *App) OpenEngine() (*query.Engine, []task.Task, error) {
	v, err := vault.Open(a.VaultDir())
	if err != nil {
		return nil, nil, err
	}

	tasks, err := v.Tasks(time.Now())
	if err != nil {
		return nil, nil, err
	}

	engine := query.NewEngine(query.Options{Properties: vault.NewProperties(v)})

	return engine, tasks, nil
}

// Run is the main entry point. Returns exit code.
func Run(ctx context.Context, in io.Reader, out, errOut io.Writer, args []string, env []string) int {
	o := NewIO(out, errOut)

	globals := flag.NewFlagSet("tsk", flag.ContinueOnError)
	globals.SetInterspersed(false) // first non-flag is the subcommand
	globals.SetOutput(io.Discard)

	workDirFlag := globals.StringP("cwd", "C", "", "Run as if started in this directory")
	configPath := globals.StringP("config", "c", "", "Explicit config file")
	vaultDir := globals.String("vault", "", "Vault directory (overrides config)")

	if err := globals.Parse(args); err != nil {
		if err == flag.ErrHelp {
			printUsage(o)

			return 0
		}

		o.ErrPrintln("error:", err)

		return 1
	}

	workDir := *workDirFlag
	if workDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			o.ErrPrintln("error: cannot get working directory:", err)

			return 1
		}

		workDir = cwd
	}

	var overrides config.Overrides
	if globals.Changed("vault") {
		overrides.VaultDir = vaultDir
	}

	cfg, sources, err := config.Load(workDir, *configPath, overrides, env)
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	app := &App{In: in, Config: cfg, Sources: sources, WorkDir: workDir}

	commands := []*Command{
		SearchCmd(app),
		CheckCmd(app),
		ReplCmd(app),
		ConfigCmd(app),
	}

	rest := globals.Args()
	if len(rest) == 0 {
		printUsageFor(o, commands)

		return 0
	}

	name := rest[0]
	if name == "help" || name == "-h" || name == "--help" {
		printUsageFor(o, commands)

		return 0
	}

	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd.Run(ctx, o, rest[1:])
		}
	}

	o.ErrPrintln("error: unknown command:", name)
	printUsageFor(o, commands)

	return 1
}

func printUsage(o *IO) {
	printUsageFor(o, nil)
}

func printUsageFor(o *IO, commands []*Command) {
	o.Println("Usage: tsk [global flags] <command> [args]")
	o.Println()
	o.Println("Search tasks in a markdown vault with a boolean query language.")

	if len(commands) > 0 {
		o.Println()
		o.Println("Commands:")

		for _, cmd := range commands {
			o.Println(cmd.HelpLine())
		}
	}

	o.Println()
	o.Println("Global flags:")
	o.Println("  -C, --cwd <dir>     Run as if started in this directory")
	o.Println("  -c, --config <file> Explicit config file")
	o.Println("      --vault <dir>   Vault directory (overrides config)")
}
