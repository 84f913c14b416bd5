package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/trendtruth/trendtruth/internal/metrics"
	"github.com/trendtruth/trendtruth/internal/sources"
)

var flagProbeCategory string

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check connectivity to every trend source",
	RunE:  runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&flagProbeCategory, "category", "all", "category to fetch from each source")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	fmt.Println("TrendTruth source connectivity check")
	fmt.Println(strings.Repeat("=", 40))

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	p := buildPipeline(cfg, metrics.Noop{})
	failures := 0
	for _, src := range []sources.Source{p.reddit, p.hackerNews, p.googleNews, p.x} {
		if !probeSource(ctx, src, flagProbeCategory) {
			failures++
		}
	}

	if p.x.HasAPIToken() {
		fmt.Println("\nX: using API v2 recent search")
	} else {
		fmt.Println("\nX: no bearer token, using nitter RSS fallback")
	}

	if failures > 0 {
		return fmt.Errorf("%d sources failed", failures)
	}
	fmt.Println("All sources reachable")
	return nil
}

func probeSource(ctx context.Context, src sources.Source, category string) bool {
	fmt.Printf("- %s... ", src.GetName())

	if !src.IsEnabled() {
		fmt.Println("DISABLED")
		return true
	}

	start := time.Now()
	items, err := src.FetchTrends(ctx, 3, category)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		return false
	}

	fmt.Printf("OK (%d items in %v)\n", len(items), time.Since(start).Round(time.Millisecond))
	if len(items) > 0 {
		fmt.Printf("    sample: %q\n", items[0].Title)
	}
	return true
}
