package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobarin/dramacast/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "dramacast.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := store.StartRun(ctx, "run-1", started); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].ID != "run-1" || !runs[0].StartedAt.Equal(started) {
		t.Errorf("run round-trip mismatch: %+v", runs[0])
	}
	if runs[0].FinishedAt != nil {
		t.Error("an unfinished run must have no finish time")
	}

	finished := started.Add(3 * time.Minute)
	if err := store.FinishRun(ctx, "run-1", finished, 4, 3, 1); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err = store.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	got := runs[0]
	if got.Processed != 4 || got.Completed != 3 || got.Failed != 1 {
		t.Errorf("unexpected counters: %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("unexpected finish time: %v", got.FinishedAt)
	}
}

func TestRecordAndListOutcomes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.StartRun(ctx, "run-1", time.Now()); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	outcomes := []models.Outcome{
		{RunID: "run-1", RowNum: 2, Title: "Show A", Status: models.StatusCompleted, ResultURL: "https://gofile.io/d/a", DurationMs: 92000},
		{RunID: "run-1", RowNum: 3, Title: "Show B", Status: models.StatusUploadFailed, DurationMs: 85000},
		{RunID: "run-1", RowNum: 4, Title: "Show C", Status: models.ErrorStatus(errors.New("no images found")), Error: "no images found", DurationMs: 4000},
	}
	for _, o := range outcomes {
		if err := store.RecordOutcome(ctx, o); err != nil {
			t.Fatalf("RecordOutcome failed: %v", err)
		}
	}

	recent, err := store.RecentOutcomes(ctx, 2)
	if err != nil {
		t.Fatalf("RecentOutcomes failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected limit of 2 outcomes, got %d", len(recent))
	}
	// Newest first.
	if recent[0].RowNum != 4 || recent[1].RowNum != 3 {
		t.Errorf("unexpected order: rows %d, %d", recent[0].RowNum, recent[1].RowNum)
	}

	all, err := store.RecentOutcomes(ctx, 10)
	if err != nil {
		t.Fatalf("RecentOutcomes failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(all))
	}
	last := all[2]
	if last.ResultURL != "https://gofile.io/d/a" || last.DurationMs != 92000 {
		t.Errorf("outcome round-trip mismatch: %+v", last)
	}
	if last.CreatedAt.IsZero() {
		t.Error("created_at should be filled in when the outcome omits it")
	}
}

func TestRecentOutcomesEmpty(t *testing.T) {
	store := openTestStore(t)

	outcomes, err := store.RecentOutcomes(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentOutcomes failed: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dramacast.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if err := store.StartRun(context.Background(), "run-1", time.Now()); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer reopened.Close()

	runs, err := reopened.RecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected the recorded run to survive a reopen, got %d runs", len(runs))
	}
}
