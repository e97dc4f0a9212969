// Package main is the entry point for the Shelfmark server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/di"
	"github.com/shelfmark/shelfmark-server/internal/di/providers"
	"github.com/shelfmark/shelfmark-server/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down gracefully")

	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}

	// The store uses a wrapper type, close it explicitly last.
	if storeHandle, err := do.Invoke[*providers.StoreHandle](injector); err == nil {
		if err := storeHandle.Shutdown(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}

	log.Info("goodbye")
}
