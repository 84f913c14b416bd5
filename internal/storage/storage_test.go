package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendtruth/trendtruth/internal/models"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	data := []byte("payload")
	require.NoError(t, store.Store(ctx, "a/1.json", data))
	require.NoError(t, store.Store(ctx, "a/2.json", []byte("second")))
	require.NoError(t, store.Store(ctx, "b/1.json", []byte("other")))

	// stored data is copied
	data[0] = 'X'
	got, err := store.Retrieve(ctx, "a/1.json")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	names, err := store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1.json", "a/2.json"}, names)

	require.NoError(t, store.Delete(ctx, "a/1.json"))
	_, err = store.Retrieve(ctx, "a/1.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "a/1.json"), ErrNotFound)
}

func TestSnapshotName(t *testing.T) {
	at := time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "snapshots/2026/03/09/140507-sports-abc.json", SnapshotName(at, "sports", "abc"))
}

func TestArchive_SaveLoadList(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(NewMemoryStorage())
	archive.newID = func() string { return "fixed" }

	resp := &models.AnalyzeResponse{
		GeneratedAt:      time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC),
		AnalyzedCount:    1,
		SelectedCategory: "all",
		SourceHealth:     map[string]string{"reddit": "ok:1"},
		Results: []models.AnalysisResult{{
			Trend:           models.TrendItem{ID: "reddit:1", Title: "Title"},
			Verdict:         models.VerdictHigh,
			FakeProbability: 70,
			Reasons:         []string{"reason"},
			Evidence:        models.EmptyEvidence("Title"),
		}},
	}

	name, err := archive.Save(ctx, resp)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/2026/03/09/140507-all-fixed.json", name)

	loaded, err := archive.Load(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, resp, loaded)

	names, err := archive.List(ctx, resp.GeneratedAt)
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)

	_, err = archive.Load(ctx, "snapshots/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchive_Prune(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	archive := NewArchive(store)

	for day := 1; day <= 5; day++ {
		at := time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC)
		_, err := archive.Save(ctx, &models.AnalyzeResponse{GeneratedAt: at, SelectedCategory: "all"})
		require.NoError(t, err)
	}
	require.NoError(t, store.Store(ctx, "other/keep.json", []byte("{}")))

	removed, err := archive.Prune(ctx, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	remaining, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, remaining, 3)
	assert.Equal(t, "other/keep.json", remaining[0])
	for i, day := range []int{4, 5} {
		assert.Contains(t, remaining[i+1], fmt.Sprintf("snapshots/2026/03/%02d/", day))
	}
}
