package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// interruptibleContext returns a context canceled on SIGINT/SIGTERM, so an
// in-flight encode/decode (internal/codec's errgroup workers sample
// progress.Aborted between blocks) unwinds instead of leaving a half-
// written archive. Mirrors distri's top-level InterruptibleContext.
func interruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		signal.Stop(sig)
		canc()
	}()
	return ctx, canc
}
