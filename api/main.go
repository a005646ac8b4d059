package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/metasearch-overlay/internal/config"
	"github.com/DeafMist/metasearch-overlay/internal/dedupe"
	"github.com/DeafMist/metasearch-overlay/internal/elasticsearch"
	"github.com/DeafMist/metasearch-overlay/internal/favicon"
	"github.com/DeafMist/metasearch-overlay/internal/logger"
)

const faviconFailureCapacity = 4096

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	fetcher := favicon.NewFetcher(
		&http.Client{Timeout: cfg.FaviconTimeout},
		dedupe.NewCache(faviconFailureCapacity, cfg.FaviconFailureTTL),
		log,
	)
	srv := newServer(log, cfg, esClient, fetcher)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(ctx),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("favicon_resolver", cfg.FaviconResolver),
			slog.Bool("proxify_results", cfg.Proxy.Enabled),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
