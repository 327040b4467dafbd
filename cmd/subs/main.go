// Command subs is a terminal client for the subtrack API. It loads the
// subscription list once, applies at most one change and prints the
// monthly total in HNL.
//
// Usage:
//
//	subs [-api URL] [-rate N] list
//	subs [-api URL] [-rate N] total
//	subs [-api URL] add -name NAME -price N -currency USD|HNL -frequency monthly|annual -date DATE
//	subs [-api URL] update -name ... ID
//	subs [-api URL] rm ID
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"subtrack/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
