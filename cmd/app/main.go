package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/anisimovdk/cloud-range-blocker/internal/config"
	"github.com/anisimovdk/cloud-range-blocker/internal/firewall"
	"github.com/anisimovdk/cloud-range-blocker/internal/handler"
	"github.com/anisimovdk/cloud-range-blocker/internal/ipdata"
	"github.com/anisimovdk/cloud-range-blocker/internal/prefix"
	"github.com/anisimovdk/cloud-range-blocker/internal/version"
)

type prefixSource interface {
	GetPrefixes(ctx context.Context, provider string) ([]prefix.Prefix, error)
}

type enforcer interface {
	Block(ctx context.Context, prefixes []prefix.Prefix) error
	Reset(ctx context.Context) error
}

var (
	newProcessor   = ipdata.NewProcessor
	newConfig      = config.NewConfig
	newHandler     = handler.NewHandler
	newBlocker     = func(cfg *config.Config) enforcer { return firewall.NewBlocker(cfg) }
	setupLogging   = config.SetupLogging
	listenAndServe = http.ListenAndServe
	signalNotify   = signal.Notify
	logFatal       = log.Fatal
)

func main() {
	cfg := newConfig()
	setupLogging(cfg.LogLevel)

	log.Info("Starting Cloud Range Blocker", "version", version.GetVersion())

	processor := newProcessor(cfg)

	if cfg.Serve {
		serve(cfg, processor)
		return
	}

	if err := run(context.Background(), cfg, processor, newBlocker(cfg)); err != nil {
		logFatal("Run failed", "error", err)
	}
}

// run resets and blocks once. Providers are fetched concurrently but blocked
// in the order they were requested.
func run(ctx context.Context, cfg *config.Config, source prefixSource, fw enforcer) error {
	if len(cfg.Block) == 0 && !cfg.Reset {
		log.Warn("Nothing to do, pass --block <provider> or --reset")
		return nil
	}

	if cfg.Reset {
		if err := fw.Reset(ctx); err != nil {
			return err
		}
	}

	if len(cfg.Block) == 0 {
		return nil
	}

	results := make([][]prefix.Prefix, len(cfg.Block))
	g, gctx := errgroup.WithContext(ctx)
	for i, provider := range cfg.Block {
		i, provider := i, provider
		g.Go(func() error {
			prefixes, err := source.GetPrefixes(gctx, provider)
			if err != nil {
				return fmt.Errorf("provider %s: %w", provider, err)
			}
			results[i] = prefixes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, provider := range cfg.Block {
		log.Info("Blocking provider ranges", "provider", provider, "prefixes", len(results[i]))
		if err := fw.Block(ctx, results[i]); err != nil {
			return fmt.Errorf("provider %s: %w", provider, err)
		}
	}

	log.Info("All providers blocked", "providers", len(cfg.Block))
	return nil
}

func serve(cfg *config.Config, processor ipdata.IPProcessor) {
	serverAddr := ":" + cfg.ServerPort

	h := newHandler(processor, cfg)
	h.RegisterRoutes()

	// Create a channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signalNotify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("Server started", "addr", serverAddr)
		if err := listenAndServe(serverAddr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logFatal("Failed to start server", "error", err)
		}
	}()

	<-sigChan
	log.Info("Shutting down server...")
}
