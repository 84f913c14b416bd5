package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/aggregation"
	"github.com/trendtruth/trendtruth/internal/analysis"
	"github.com/trendtruth/trendtruth/internal/config"
	"github.com/trendtruth/trendtruth/internal/enrichment"
	"github.com/trendtruth/trendtruth/internal/metrics"
	"github.com/trendtruth/trendtruth/internal/scoring"
	"github.com/trendtruth/trendtruth/internal/sources"
	"github.com/trendtruth/trendtruth/internal/storage"
	"github.com/trendtruth/trendtruth/internal/verifier"
)

const pageFetchTimeout = 3500 * time.Millisecond

// pipeline holds the wired analysis stack
type pipeline struct {
	reddit     *sources.RedditSource
	hackerNews *sources.HackerNewsSource
	googleNews *sources.GoogleNewsSource
	x          *sources.TwitterSource
	analysis   *analysis.Service
}

func buildPipeline(cfg *config.Config, recorder metrics.Recorder) *pipeline {
	p := &pipeline{
		reddit:     sources.NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditRequestsPerMinute),
		hackerNews: sources.NewHackerNewsSource(),
		googleNews: sources.NewGoogleNewsSource(),
		x:          sources.NewTwitterSource(cfg.XBearerToken, cfg.NitterInstances),
	}

	reader := enrichment.NewMetadataReader(
		enrichment.NewSafeFetcher(pageFetchTimeout, enrichment.MaxPageBytes),
		cfg.MetadataCacheTTL, pageFetchTimeout, recorder,
	)
	enricher := enrichment.NewEnricher(reader, cfg.EnrichWorkers, recorder)
	aggregator := aggregation.NewService(p.reddit, p.hackerNews, p.googleNews, p.x, enricher, recorder)

	engine := scoring.NewEngine(verifier.New(p.googleNews, cfg.EvidenceCacheTTL, recorder))
	p.analysis = analysis.NewService(aggregator, engine, cfg.ResultCacheTTL, recorder)
	return p
}

// buildArchive returns blob-backed snapshot storage when an account is configured
func buildArchive(ctx context.Context, cfg *config.Config) *storage.Archive {
	if cfg.StorageAccount == "" {
		logrus.Info("No storage account configured, keeping snapshots in memory")
		return storage.NewArchive(storage.NewMemoryStorage())
	}

	store, err := storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
	if err != nil {
		logrus.Warnf("Snapshot storage unavailable, keeping snapshots in memory: %v", err)
		return storage.NewArchive(storage.NewMemoryStorage())
	}
	return storage.NewArchive(store)
}
