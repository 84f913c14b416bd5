package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/trendtruth/trendtruth/internal/analysis"
	"github.com/trendtruth/trendtruth/internal/metrics"
)

var (
	flagLimit    int
	flagCategory string
	flagQuery    string
	flagTimeout  time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis and print the JSON response",
	Example: `  trendtruth analyze --category sports --limit 10
  trendtruth analyze --query "flood warning"`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&flagLimit, "limit", analysis.DefaultLimit, "number of trends to analyze (5-40)")
	analyzeCmd.Flags().StringVar(&flagCategory, "category", "all", "category to browse")
	analyzeCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "free-text search instead of browsing")
	analyzeCmd.Flags().DurationVar(&flagTimeout, "timeout", 90*time.Second, "overall deadline")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	p := buildPipeline(cfg, metrics.Noop{})
	resp, err := p.analysis.Analyze(ctx, analysis.Request{
		Limit:    flagLimit,
		Category: flagCategory,
		Query:    flagQuery,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
