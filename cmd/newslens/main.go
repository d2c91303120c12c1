package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newslens-hq/newslens-backend/internal/auth"
	"github.com/newslens-hq/newslens-backend/internal/chat"
	"github.com/newslens-hq/newslens-backend/internal/config"
	"github.com/newslens-hq/newslens-backend/internal/headline"
	"github.com/newslens-hq/newslens-backend/internal/llm"
	"github.com/newslens-hq/newslens-backend/internal/logger"
	"github.com/newslens-hq/newslens-backend/internal/pipeline"
	"github.com/newslens-hq/newslens-backend/internal/ranker"
	"github.com/newslens-hq/newslens-backend/internal/scraper"
	"github.com/newslens-hq/newslens-backend/internal/server"
	"github.com/newslens-hq/newslens-backend/internal/store"
	"github.com/newslens-hq/newslens-backend/pkg/feeds"
	"github.com/newslens-hq/newslens-backend/pkg/httpclient"
	"github.com/newslens-hq/newslens-backend/pkg/publishers"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return fmt.Errorf("build gemini client: %w", err)
	}

	table := feeds.DefaultTopicTable()
	if cfg.TopicsFile != "" {
		table, err = feeds.LoadTopicTable(cfg.TopicsFile)
		if err != nil {
			return fmt.Errorf("load topics: %w", err)
		}
	}

	var cache scraper.Cache
	switch cfg.CacheBackend {
	case "bbolt":
		bc, err := scraper.NewBoltCache(cfg.CachePath)
		if err != nil {
			return fmt.Errorf("open scrape cache: %w", err)
		}
		defer bc.Close()
		cache = bc
	default:
		cache = scraper.NewMemoryCache()
	}

	client := httpclient.NewRestyClient(cfg.News.ScrapeTimeout)
	scr := scraper.NewScraper(client, cache, log, cfg.News.ScrapeTimeout)
	fetcher := feeds.NewFetcher(nil, log)
	resolver := feeds.NewResolver(table)

	agg := pipeline.NewAggregator(resolver, fetcher, scr, log, pipeline.Options{
		EntriesPerFeed:  cfg.News.EntriesPerFeed,
		OverfetchFactor: cfg.News.OverfetchFactor,
		FeedWorkers:     cfg.News.FeedWorkers,
		ScrapeWorkers:   cfg.News.ScrapeWorkers,
	})

	deps := server.Deps{
		Log:            log,
		Ranker:         ranker.New(gen),
		Aggregator:     agg,
		Personalizer:   headline.New(gen, log),
		Chat:           chat.NewService(gen),
		DefaultResults: cfg.News.DefaultResults,
	}

	if cfg.FirestoreProjectID != "" {
		fs, err := store.NewFirestore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentials)
		if err != nil {
			return fmt.Errorf("connect firestore: %w", err)
		}
		defer fs.Close()
		deps.Store = fs
	}

	if cfg.JWTSecret != "" {
		issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			return fmt.Errorf("build token issuer: %w", err)
		}
		deps.Issuer = issuer
	}

	if cfg.PublishersFile != "" {
		reg, err := publishers.LoadRegistry(cfg.PublishersFile)
		if err != nil {
			return fmt.Errorf("load publishers: %w", err)
		}
		pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), reg.Enabled(), log)
		if err != nil {
			return fmt.Errorf("build publishers: %w", err)
		}
		deps.Publishers = pubs
	}

	e := server.New(deps)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(cfg.ServerAddr)
	}()

	log.InfoObj("server started", "startup", map[string]any{
		"addr":  cfg.ServerAddr,
		"cache": cfg.CacheBackend,
	})

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	return nil
}
