// Package main provides tsk, a boolean query language for searching tasks in
// a markdown vault.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tasksearch/tsk/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := cli.Run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:], os.Environ())

	stop()
	os.Exit(exitCode)
}
