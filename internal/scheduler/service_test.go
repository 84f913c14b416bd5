package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trendtruth/trendtruth/internal/analysis"
	"github.com/trendtruth/trendtruth/internal/config"
	"github.com/trendtruth/trendtruth/internal/models"
)

var now = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, req analysis.Request) (*models.AnalyzeResponse, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*models.AnalyzeResponse)
	return resp, args.Error(1)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Save(ctx context.Context, resp *models.AnalyzeResponse) (string, error) {
	args := m.Called(resp)
	return args.String(0), args.Error(1)
}

func (m *MockArchive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(cutoff)
	return args.Int(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendDigest(ctx context.Context, digest *models.Digest) error {
	args := m.Called(digest)
	return args.Error(0)
}

func response(high int) *models.AnalyzeResponse {
	resp := &models.AnalyzeResponse{GeneratedAt: now, SelectedCategory: "all"}
	for i := 0; i < high; i++ {
		resp.Results = append(resp.Results, models.AnalysisResult{Verdict: models.VerdictHigh})
	}
	resp.Results = append(resp.Results, models.AnalysisResult{Verdict: models.VerdictLow})
	resp.AnalyzedCount = len(resp.Results)
	return resp
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultLimit:           20,
		WarmSchedule:           "0 */3 * * * *",
		SnapshotRetentionDays:  7,
		HighRiskAlertThreshold: 3,
	}
}

func TestRunOnce_ArchivesAndNotifies(t *testing.T) {
	resp := response(3)

	analyzer := &MockAnalyzer{}
	analyzer.On("Analyze", analysis.Request{Limit: 20, Category: "all", Refresh: true}).Return(resp, nil).Once()

	archive := &MockArchive{}
	archive.On("Save", resp).Return("snapshots/2026/03/09/120000-all-id.json", nil).Once()
	archive.On("Prune", now.AddDate(0, 0, -7)).Return(2, nil).Once()

	notifier := &MockNotifier{}
	notifier.On("SendDigest", mock.MatchedBy(func(d *models.Digest) bool {
		return len(d.HighRisk) == 3 && d.TotalAnalyzed == 4
	})).Return(nil).Once()

	svc := NewService(testConfig(), analyzer, archive, notifier)
	svc.now = func() time.Time { return now }

	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.AnalyzedCount)
	assert.Equal(t, 3, summary.HighRisk)
	assert.Equal(t, "snapshots/2026/03/09/120000-all-id.json", summary.Snapshot)
	assert.True(t, summary.DigestSent)

	analyzer.AssertExpectations(t)
	archive.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRunOnce_BelowThreshold(t *testing.T) {
	analyzer := &MockAnalyzer{}
	analyzer.On("Analyze", mock.Anything).Return(response(2), nil)
	notifier := &MockNotifier{}

	svc := NewService(testConfig(), analyzer, nil, notifier)
	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.False(t, summary.DigestSent)
	assert.Empty(t, summary.Snapshot)
	notifier.AssertNotCalled(t, "SendDigest", mock.Anything)
}

func TestRunOnce_ArchiveFailureIsNotFatal(t *testing.T) {
	analyzer := &MockAnalyzer{}
	analyzer.On("Analyze", mock.Anything).Return(response(0), nil)
	archive := &MockArchive{}
	archive.On("Save", mock.Anything).Return("", errors.New("storage down"))
	archive.On("Prune", mock.Anything).Return(0, errors.New("storage down"))

	svc := NewService(testConfig(), analyzer, archive, nil)
	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Snapshot)
}

func TestRunOnce_Errors(t *testing.T) {
	t.Run("Analyze failure", func(t *testing.T) {
		analyzer := &MockAnalyzer{}
		analyzer.On("Analyze", mock.Anything).Return(nil, context.DeadlineExceeded)

		svc := NewService(testConfig(), analyzer, nil, nil)
		_, err := svc.RunOnce(context.Background())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Digest failure", func(t *testing.T) {
		analyzer := &MockAnalyzer{}
		analyzer.On("Analyze", mock.Anything).Return(response(5), nil)
		notifier := &MockNotifier{}
		notifier.On("SendDigest", mock.Anything).Return(errors.New("webhook gone"))

		svc := NewService(testConfig(), analyzer, nil, notifier)
		summary, err := svc.RunOnce(context.Background())
		require.Error(t, err)
		assert.False(t, summary.DigestSent)
	})

	t.Run("Run in progress", func(t *testing.T) {
		svc := NewService(testConfig(), &MockAnalyzer{}, nil, nil)
		svc.running.Lock()
		defer svc.running.Unlock()

		_, err := svc.RunOnce(context.Background())
		assert.ErrorIs(t, err, ErrRunInProgress)
	})
}

func TestStart_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.WarmSchedule = "every now and then"

	svc := NewService(cfg, &MockAnalyzer{}, nil, nil)
	assert.Error(t, svc.Start())
}

func TestStartStop(t *testing.T) {
	svc := NewService(testConfig(), &MockAnalyzer{}, nil, nil)
	require.NoError(t, svc.Start())
	svc.Stop()
}
