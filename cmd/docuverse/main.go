package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
       _
    __| | ___   ___ _   ___   _____ _ __ ___  ___
   / _' |/ _ \ / __| | | \ \ / / _ \ '__/ __|/ _ \
  | (_| | (_) | (__| |_| |\ V /  __/ |  \__ \  __/
   \__,_|\___/ \___|\__,_| \_/ \___|_|  |___/\___|

  Outline-driven static site generator

  Usage: docuverse <command> [options]
         docuverse --help

  MCP server mode requires piped input.`)
}

func main() {
	args := os.Args
	if len(args) < 2 {
		// No args + interactive terminal → show banner and exit
		if isTerminal() {
			printBanner()
			return
		}
		// Piped stdin → MCP server
		args = append(args, "mcp")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newCLIApp(openRuntime)
	if err := app.RunContext(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
