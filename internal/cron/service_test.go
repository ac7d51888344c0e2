package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	releases int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name        string
	err         error
	runs        int
	hadDeadline bool
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	_, t.hadDeadline = ctx.Deadline()
	return t.err
}

type recordedMetrics struct {
	durations map[string]int
	successes map[string]int
	failures  map[string]int
}

func newRecordedMetrics() *recordedMetrics {
	return &recordedMetrics{durations: map[string]int{}, successes: map[string]int{}, failures: map[string]int{}}
}

func (m *recordedMetrics) ObserveDuration(job string, _ time.Duration) { m.durations[job]++ }
func (m *recordedMetrics) IncSuccess(job string)                       { m.successes[job]++ }
func (m *recordedMetrics) IncFailure(job string)                       { m.failures[job]++ }

func newTestService(t *testing.T, lock Lock, metrics jobMetrics, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics,
		JobTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestRunOnceRunsEveryJobEvenAfterFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	last := &testJob{name: "last"}
	lock := &fakeLock{}
	metrics := newRecordedMetrics()
	svc := newTestService(t, lock, metrics, ok, failing, last)

	if ran := svc.RunOnce(context.Background()); !ran {
		t.Fatal("expected the cycle to run")
	}
	for _, job := range []*testJob{ok, failing, last} {
		if job.runs != 1 {
			t.Fatalf("job %s ran %d times", job.name, job.runs)
		}
		if !job.hadDeadline {
			t.Fatalf("job %s ran without a timeout", job.name)
		}
	}
	if metrics.successes["ok"] != 1 || metrics.successes["last"] != 1 {
		t.Fatalf("unexpected successes %v", metrics.successes)
	}
	if metrics.failures["failing"] != 1 {
		t.Fatalf("unexpected failures %v", metrics.failures)
	}
	if metrics.durations["failing"] != 1 {
		t.Fatalf("duration not observed for failing job")
	}
	if lock.held || lock.releases != 1 {
		t.Fatalf("lock not released: held=%v releases=%d", lock.held, lock.releases)
	}
}

func TestRunOnceSkipsWhenAnotherReplicaHoldsTheLock(t *testing.T) {
	job := &testJob{name: "job"}
	lock := &fakeLock{held: true}
	svc := newTestService(t, lock, nil, job)

	if ran := svc.RunOnce(context.Background()); ran {
		t.Fatal("expected the cycle to be skipped")
	}
	if job.runs != 0 {
		t.Fatalf("job ran %d times without the lock", job.runs)
	}
	if lock.releases != 0 {
		t.Fatal("must not release a lock it never took")
	}
}

func TestRunOnceSkipsWhenLockErrors(t *testing.T) {
	job := &testJob{name: "job"}
	svc := newTestService(t, &fakeLock{err: errors.New("redis down")}, nil, job)

	if ran := svc.RunOnce(context.Background()); ran {
		t.Fatal("expected the cycle to be skipped")
	}
	if job.runs != 0 {
		t.Fatal("job must not run when the lock is unavailable")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "job"}
	svc := newTestService(t, &fakeLock{}, nil, job)
	svc.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	registry, _ := NewRegistry()
	if _, err := NewService(ServiceParams{Registry: registry, Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry}); err == nil {
		t.Fatal("expected lock error")
	}
	if _, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected registry error")
	}
}
