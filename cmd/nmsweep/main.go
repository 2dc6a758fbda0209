package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nmsweep/internal/exitcodes"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.teardown()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitcodes.FromError(err))
}
