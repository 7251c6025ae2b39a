// Command missive composes and delivers templated email.
//
//	missive compose welcome.md --data data.json
//	missive send welcome.md --data data.json --attach ./terms.pdf
//	missive send digest.md --queue
//	missive serve
//	missive migrate
//
// Configuration is read from the environment and an optional .env file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
