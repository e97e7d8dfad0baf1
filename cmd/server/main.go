package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markopsai/chapii-demo/internal/assistant"
	"github.com/markopsai/chapii-demo/internal/config"
	"github.com/markopsai/chapii-demo/internal/enrich"
	"github.com/markopsai/chapii-demo/internal/httpserver"
	"github.com/markopsai/chapii-demo/internal/notify"
	"github.com/markopsai/chapii-demo/internal/realtime"
	"github.com/markopsai/chapii-demo/internal/session"
	"github.com/markopsai/chapii-demo/internal/vapi"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	// The assistants collection prefers the server key; the dashboard web
	// token works there too when no server key is configured.
	assistantKey := cfg.VapiServerKey
	if assistantKey == "" {
		assistantKey = cfg.VapiWebToken
	}
	dir := assistant.NewDirectory(vapi.NewClient(cfg.VapiAPIURL, assistantKey))
	if err := dir.Refresh(context.Background()); err != nil {
		log.Printf("assistant list unavailable at startup: %v", err)
	}

	notifier := notify.New(notify.DefaultDismissAfter)
	rt := realtime.NewClient(cfg.VapiAPIURL, cfg.VapiWebToken)
	bridge := session.NewBridge(rt)

	enricher := enrich.New(
		vapi.NewClient(cfg.VapiAPIURL, cfg.VapiServerKey),
		bridge.MergeExtracted,
		func(fields []string) { notifier.Show(notify.FieldsCaptured(fields), notify.KindAdded) },
	)
	bridge.OnCallStart(enricher.CancelPending)
	bridge.OnCallEnd(enricher.Schedule)
	bridge.Attach()
	defer bridge.Detach()

	srv := httpserver.New(bridge, dir, notifier)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	enricher.CancelPending()
	if err := rt.Close(); err != nil {
		log.Printf("realtime close failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
