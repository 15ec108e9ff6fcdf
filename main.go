package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/YLivay/titlex/log"
)

func main() {
	ctx, cancelCtx := context.WithCancel(context.Background())

	cleanupOsSignals := setupOsSignals(ctx, cancelCtx)
	defer cleanupOsSignals()

	if err := newRootCommand(NewApplication()).ExecuteContext(ctx); err != nil {
		cleanupOsSignals()
		log.Fatalln("Error processing file:", err)
	}
}

func setupOsSignals(ctx context.Context, cancelCtx context.CancelFunc) (cleanup func()) {
	// Catch ctrl+c signal and make it close the context instead of immediately
	// exiting. This lets the run flush what it extracted so far.
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	cleanup = func() {
		signal.Stop(signalChan)
		cancelCtx()
	}

	go func() {
		select {
		case <-signalChan:
			log.Println("Interrupted, flushing output")
			cancelCtx()
		case <-ctx.Done():
		}
	}()

	return cleanup
}
