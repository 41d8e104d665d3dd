package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockPruner はFavoritesPrunerのモック実装。
type mockPruner struct {
	calls   atomic.Int32
	deleted int64
	err     error
}

func (m *mockPruner) PruneFavorites(_ context.Context) (int64, error) {
	m.calls.Add(1)
	return m.deleted, m.err
}

// mockMetrics はPruneMetricsのモック実装。
type mockMetrics struct {
	mu     sync.Mutex
	counts []int64
}

func (m *mockMetrics) RecordFavoritesPruned(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = append(m.counts, count)
}

// syncBuffer は並行書き込みに耐えるログバッファ。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(w *syncBuffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestCleanupJob_Run_RecordsDeletedCount(t *testing.T) {
	var buf syncBuffer
	pruner := &mockPruner{deleted: 5}
	metrics := &mockMetrics{}
	job := NewCleanupJob(pruner, metrics, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if pruner.calls.Load() != 1 {
		t.Errorf("PruneFavorites calls = %d, want 1", pruner.calls.Load())
	}
	if len(metrics.counts) != 1 || metrics.counts[0] != 5 {
		t.Errorf("recorded counts = %v, want [5]", metrics.counts)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("failed to parse log: %v\nraw: %s", err, buf.String())
	}
	if entry["deleted_count"] != float64(5) {
		t.Errorf("deleted_count = %v, want 5", entry["deleted_count"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms in log entry")
	}
}

func TestCleanupJob_Run_NothingToDelete(t *testing.T) {
	var buf syncBuffer
	job := NewCleanupJob(&mockPruner{}, &mockMetrics{}, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run returned error: %v", err)
	}
}

func TestCleanupJob_Run_PrunerError(t *testing.T) {
	var buf syncBuffer
	metrics := &mockMetrics{}
	job := NewCleanupJob(&mockPruner{err: errors.New("connection refused")}, metrics, newTestLogger(&buf))

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error = %v, want wrapped cause", err)
	}
	if len(metrics.counts) != 0 {
		t.Errorf("metrics should not be recorded on failure, got %v", metrics.counts)
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("expected error log, got %s", buf.String())
	}
}

func TestCleanupJob_Start_InvalidSchedule(t *testing.T) {
	var buf syncBuffer
	pruner := &mockPruner{}
	job := NewCleanupJob(pruner, &mockMetrics{}, newTestLogger(&buf))

	if err := job.Start(context.Background(), "not a schedule"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if pruner.calls.Load() != 0 {
		t.Error("job should not run when the schedule is invalid")
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf syncBuffer
	pruner := &mockPruner{deleted: 1}
	job := NewCleanupJob(pruner, &mockMetrics{}, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- job.Start(ctx, "@every 1h")
	}()

	deadline := time.After(2 * time.Second)
	for pruner.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job did not run at start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	if !strings.Contains(buf.String(), "お気に入り整理スケジューラを停止しました") {
		t.Error("expected stop log")
	}
}

func TestCleanupJob_Start_RunsOnSchedule(t *testing.T) {
	var buf syncBuffer
	pruner := &mockPruner{}
	job := NewCleanupJob(pruner, &mockMetrics{}, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go job.Start(ctx, "@every 1s")

	deadline := time.After(5 * time.Second)
	for pruner.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("PruneFavorites calls = %d, want >= 2", pruner.calls.Load())
		case <-time.After(50 * time.Millisecond):
		}
	}
}
