package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/analysis"
	"github.com/trendtruth/trendtruth/internal/categories"
	"github.com/trendtruth/trendtruth/internal/config"
	"github.com/trendtruth/trendtruth/internal/models"
	"github.com/trendtruth/trendtruth/internal/notifications"
)

const runTimeout = 2 * time.Minute

// ErrRunInProgress is returned when a warming run is already executing
var ErrRunInProgress = errors.New("warming run already in progress")

// Analyzer produces analyze responses
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*models.AnalyzeResponse, error)
}

// SnapshotArchive persists responses and drops old ones
type SnapshotArchive interface {
	Save(ctx context.Context, resp *models.AnalyzeResponse) (string, error)
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// RunSummary describes one warming run
type RunSummary struct {
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`
	AnalyzedCount int       `json:"analyzed_count"`
	HighRisk      int       `json:"high_risk"`
	Snapshot      string    `json:"snapshot,omitempty"`
	DigestSent    bool      `json:"digest_sent"`
}

// Service keeps the default feed warm on a cron schedule
type Service struct {
	config   *config.Config
	analyzer Analyzer
	archive  SnapshotArchive
	notifier notifications.NotificationInterface
	cron     *cron.Cron
	now      func() time.Time

	// a run already in progress makes the next tick a no-op
	running sync.Mutex
}

// NewService creates a new scheduler service. archive and notifier may be nil.
func NewService(cfg *config.Config, analyzer Analyzer, archive SnapshotArchive, notifier notifications.NotificationInterface) *Service {
	return &Service{
		config:   cfg,
		analyzer: analyzer,
		archive:  archive,
		notifier: notifier,
		cron:     cron.New(cron.WithSeconds()),
		now:      time.Now,
	}
}

// Start registers the warming job and starts the cron runner
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.config.WarmSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if _, err := s.RunOnce(ctx); err != nil {
			logrus.Errorf("Scheduled warming run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid warm schedule %q: %w", s.config.WarmSchedule, err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.config.WarmSchedule)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}

// RunOnce refreshes the default browse feed, archives it and sends a digest
// when enough trends are rated High Risk.
func (s *Service) RunOnce(ctx context.Context) (*RunSummary, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	start := s.now()
	logrus.Info("Starting cache warming run")

	resp, err := s.analyzer.Analyze(ctx, analysis.Request{
		Limit:    s.config.DefaultLimit,
		Category: categories.All,
		Refresh:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze default feed: %w", err)
	}

	summary := &RunSummary{
		StartedAt:     start,
		AnalyzedCount: resp.AnalyzedCount,
		HighRisk:      len(resp.HighRisk()),
	}

	if s.archive != nil {
		name, err := s.archive.Save(ctx, resp)
		if err != nil {
			logrus.Errorf("Failed to archive snapshot: %v", err)
		} else {
			summary.Snapshot = name
		}

		if days := s.config.SnapshotRetentionDays; days > 0 {
			if _, err := s.archive.Prune(ctx, start.AddDate(0, 0, -days)); err != nil {
				logrus.Warnf("Failed to prune snapshots: %v", err)
			}
		}
	}

	if s.notifier != nil && summary.HighRisk > 0 && summary.HighRisk >= s.config.HighRiskAlertThreshold {
		logrus.Infof("Found %d high-risk trends, sending digest", summary.HighRisk)
		if err := s.notifier.SendDigest(ctx, notifications.NewDigest(resp)); err != nil {
			return summary, fmt.Errorf("failed to send digest: %w", err)
		}
		summary.DigestSent = true
	}

	summary.Duration = s.now().Sub(start).String()
	logrus.Infof("Warming run completed in %s: %d analyzed, %d high risk", summary.Duration, summary.AnalyzedCount, summary.HighRisk)
	return summary, nil
}
