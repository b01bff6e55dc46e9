package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var onlyOneSignalHandler = make(chan struct{})

// SetupSignalContext returns a context canceled on SIGTERM or SIGINT. A
// second signal terminates the process directly. Only call once per process.
func SetupSignalContext() context.Context {
	close(onlyOneSignalHandler) // panics on second call

	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1) // second signal: exit immediately
	}()

	return ctx
}
