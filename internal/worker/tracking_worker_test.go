package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"carriersync/internal/tracking"
)

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (r *countingRunner) Run(ctx context.Context) (tracking.RunStats, error) {
	r.runs.Add(1)
	return tracking.RunStats{Orders: 1}, r.err
}

func TestTrackingWorkerRunsUntilCancelled(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"successful runs", nil},
		{"failed runs keep the worker alive", errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &countingRunner{err: tt.err}
			w := NewTrackingWorker(runner, 5*time.Millisecond)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				w.Start(ctx)
				close(done)
			}()

			deadline := time.After(2 * time.Second)
			for runner.runs.Load() < 2 {
				select {
				case <-deadline:
					t.Fatal("worker did not run twice")
				case <-time.After(time.Millisecond):
				}
			}
			cancel()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("worker did not stop")
			}
		})
	}
}

func TestNewTrackingWorkerDefaultInterval(t *testing.T) {
	if w := NewTrackingWorker(&countingRunner{}, 0); w.interval != time.Hour {
		t.Errorf("interval = %v, want 1h", w.interval)
	}
}

func TestTrackingWorkerRunsOnStart(t *testing.T) {
	runner := &countingRunner{}
	w := NewTrackingWorker(runner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runner.runs.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("worker did not run before the first tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := runner.runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}
