package reconciler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
)

type fakeResumer struct {
	resumed int
	err     error
	calls   int
	limit   int
}

func (f *fakeResumer) ResumeUnsettled(_ context.Context, limit int) (int, error) {
	f.calls++
	f.limit = limit
	return f.resumed, f.err
}

type fakeLedger struct {
	stale []models.Transaction
	err   error
	calls int
	age   time.Duration
}

func (f *fakeLedger) ListStalePending(_ context.Context, age time.Duration, _ int) ([]models.Transaction, error) {
	f.calls++
	f.age = age
	return f.stale, f.err
}

type fakeLease struct {
	held     bool
	setCalls int
	delCalls int
	err      error
}

func (f *fakeLease) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	f.setCalls++
	if f.err != nil {
		return false, f.err
	}
	return !f.held, nil
}

func (f *fakeLease) Del(context.Context, ...string) error {
	f.delCalls++
	return nil
}

func (f *fakeLease) LockKey(name string) string {
	return "lotto:lock:" + name
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, resumer *fakeResumer, ledger *fakeLedger, lease *fakeLease) *Service {
	t.Helper()
	params := ServiceParams{
		Settlement:   resumer,
		Ledger:       ledger,
		Logger:       testLogger(),
		PollInterval: time.Minute,
		PendingAge:   5 * time.Minute,
	}
	if lease != nil {
		params.Lease = lease
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRunOnceResumesAndScans(t *testing.T) {
	resumer := &fakeResumer{resumed: 2}
	ledger := &fakeLedger{stale: []models.Transaction{{ID: uuid.New(), AccountID: uuid.New(), Reference: "bet:abc", CreatedAt: time.Now().Add(-10 * time.Minute)}}}
	svc := newTestService(t, resumer, ledger, nil)

	svc.runOnce(context.Background())

	if resumer.calls != 1 {
		t.Fatalf("expected 1 resume call got %d", resumer.calls)
	}
	if resumer.limit != batchLimit {
		t.Fatalf("expected batch limit %d got %d", batchLimit, resumer.limit)
	}
	if ledger.calls != 1 {
		t.Fatalf("expected 1 ledger scan got %d", ledger.calls)
	}
	if ledger.age != 5*time.Minute {
		t.Fatalf("expected pending age 5m got %s", ledger.age)
	}
}

func TestRunOnceSkipsWhenLeaseHeld(t *testing.T) {
	resumer := &fakeResumer{}
	ledger := &fakeLedger{}
	lease := &fakeLease{held: true}
	svc := newTestService(t, resumer, ledger, lease)

	svc.runOnce(context.Background())

	if resumer.calls != 0 {
		t.Fatalf("expected no resume while lease held, got %d calls", resumer.calls)
	}
	if lease.delCalls != 0 {
		t.Fatalf("lease should not be released by a non-holder")
	}
}

func TestRunOnceProceedsOnLeaseError(t *testing.T) {
	resumer := &fakeResumer{}
	ledger := &fakeLedger{}
	lease := &fakeLease{err: errors.New("redis down")}
	svc := newTestService(t, resumer, ledger, lease)

	svc.runOnce(context.Background())

	if resumer.calls != 1 {
		t.Fatalf("expected pass to run despite lease error, got %d calls", resumer.calls)
	}
}

func TestRunOnceReleasesLease(t *testing.T) {
	lease := &fakeLease{}
	svc := newTestService(t, &fakeResumer{}, &fakeLedger{}, lease)

	svc.runOnce(context.Background())

	if lease.setCalls != 1 || lease.delCalls != 1 {
		t.Fatalf("expected lease acquired and released, got set=%d del=%d", lease.setCalls, lease.delCalls)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc := newTestService(t, &fakeResumer{}, &fakeLedger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(ServiceParams{Ledger: &fakeLedger{}, Logger: testLogger(), PollInterval: time.Minute, PendingAge: time.Minute}); err == nil {
		t.Fatalf("expected error without settlement resumer")
	}
	if _, err := NewService(ServiceParams{Settlement: &fakeResumer{}, Logger: testLogger(), PollInterval: time.Minute, PendingAge: time.Minute}); err == nil {
		t.Fatalf("expected error without ledger reader")
	}
	if _, err := NewService(ServiceParams{Settlement: &fakeResumer{}, Ledger: &fakeLedger{}, Logger: testLogger(), PendingAge: time.Minute}); err == nil {
		t.Fatalf("expected error without poll interval")
	}
}
