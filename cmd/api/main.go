package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/adapters/rest"
	"github.com/ooi-data/ooi-hyd-tools/internal/config"
	"github.com/ooi-data/ooi-hyd-tools/internal/version"
	"github.com/ooi-data/ooi-hyd-tools/internal/wire"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defaults, err := cfg.ReconstructParams()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// 2. Adapters and services
	app := wire.New(cfg)
	defer app.Close()

	runs, err := app.Runs()
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	pipeline, err := app.Pipeline()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// 3. HTTP interface
	handler := rest.NewHandler(rest.Deps{
		Index:    app.Reconstructor,
		Runner:   pipeline,
		Runs:     runs,
		Metrics:  app.Metrics,
		Defaults: defaults,
	})

	log.Printf("INFO api: %s listening on %s archive=%s", version.String(), cfg.HTTPAddr, cfg.Archive.Root)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal(err)
		}
	case <-ctx.Done():
		log.Println("INFO api: shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR api: shutdown error: %v", err)
		}
	}
}
