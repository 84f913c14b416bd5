package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/models"
)

const snapshotPrefix = "snapshots/"

// Archive stores analyze responses as dated JSON snapshots
type Archive struct {
	store StorageInterface
	newID func() string
}

// NewArchive creates an archive on top of store
func NewArchive(store StorageInterface) *Archive {
	return &Archive{
		store: store,
		newID: func() string { return uuid.NewString() },
	}
}

// SnapshotName builds the blob name for a response generated at the given time
func SnapshotName(generatedAt time.Time, category, id string) string {
	generatedAt = generatedAt.UTC()
	return path.Join(
		strings.TrimSuffix(snapshotPrefix, "/"),
		generatedAt.Format("2006/01/02"),
		fmt.Sprintf("%s-%s-%s.json", generatedAt.Format("150405"), category, id),
	)
}

// Save writes resp and returns the snapshot name
func (a *Archive) Save(ctx context.Context, resp *models.AnalyzeResponse) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	name := SnapshotName(resp.GeneratedAt, resp.SelectedCategory, a.newID())
	if err := a.store.Store(ctx, name, data); err != nil {
		return "", fmt.Errorf("failed to store snapshot: %w", err)
	}

	logrus.Infof("Archived snapshot %s with %d results", name, resp.AnalyzedCount)
	return name, nil
}

// Load reads a snapshot back
func (a *Archive) Load(ctx context.Context, name string) (*models.AnalyzeResponse, error) {
	data, err := a.store.Retrieve(ctx, name)
	if err != nil {
		return nil, err
	}

	var resp models.AnalyzeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	return &resp, nil
}

// List returns the snapshot names for one UTC day, oldest first
func (a *Archive) List(ctx context.Context, day time.Time) ([]string, error) {
	return a.store.List(ctx, snapshotPrefix+day.UTC().Format("2006/01/02")+"/")
}

// Prune deletes snapshots from days before cutoff and returns how many were removed
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	names, err := a.store.List(ctx, snapshotPrefix)
	if err != nil {
		return 0, err
	}

	cutoffDay := cutoff.UTC().Format("2006/01/02")
	removed := 0
	for _, name := range names {
		rest := strings.TrimPrefix(name, snapshotPrefix)
		if len(rest) < len(cutoffDay) || rest[:len(cutoffDay)] >= cutoffDay {
			continue
		}
		if err := a.store.Delete(ctx, name); err != nil && !isNotFound(err) {
			return removed, fmt.Errorf("failed to prune %s: %w", name, err)
		}
		removed++
	}

	if removed > 0 {
		logrus.Infof("Pruned %d snapshots older than %s", removed, cutoffDay)
	}
	return removed, nil
}
