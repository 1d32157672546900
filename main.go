package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"hyperliquid-trader/config"
	"hyperliquid-trader/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success (including orders the risk
// policy rejected), 1 on hard errors, 2 on bad arguments.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Please specify a command.")
		fmt.Fprintln(stderr)
		fmt.Fprint(stderr, usage)
		return 1
	}

	switch args[0] {
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	}

	// Arguments are validated before configuration or any service exists.
	inv, err := parseCommand(args[0], args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUnknownCommand) {
			fmt.Fprintln(stderr)
			fmt.Fprint(stderr, usage)
		}
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "❌ Configuration error: %v\n", err)
		if errors.Is(err, config.ErrMissingPrivateKey) {
			fmt.Fprintln(stderr, "Please set your private key:")
			fmt.Fprintln(stderr, `export HYPERLIQUID_PRIVATE_KEY="your_private_key_here"`)
			fmt.Fprintln(stderr, "or add it to your .env file")
		}
		return 1
	}

	log, err := logger.New(logger.ConfigFromEnv(os.Getenv))
	if err != nil {
		fmt.Fprintf(stderr, "❌ Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, log, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Failed to create client: %v\n", err)
		return 1
	}

	if err := a.execute(ctx, inv); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}
