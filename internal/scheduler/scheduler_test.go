package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/weather"
)

type fakeRefresher struct {
	mu    sync.Mutex
	dates []common.Date
	err   error
	done  chan struct{}

	// release, when set, blocks RefreshDay until closed.
	release chan struct{}
}

func newFakeRefresher(err error) *fakeRefresher {
	return &fakeRefresher{err: err, done: make(chan struct{}, 4)}
}

func (f *fakeRefresher) RefreshDay(_ context.Context, date common.Date) (weather.Snapshot, error) {
	f.mu.Lock()
	f.dates = append(f.dates, date)
	f.mu.Unlock()
	f.done <- struct{}{}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return weather.Snapshot{}, f.err
	}
	return weather.Snapshot{Date: date, Condition: weather.ConditionClear}, nil
}

func (f *fakeRefresher) calls() []common.Date {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.Date(nil), f.dates...)
}

func TestRunNowRefreshesToday(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	f := newFakeRefresher(nil)
	s := New(f, "01:00", loc, false, nil)

	if err := s.RunNow(context.Background()); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	calls := f.calls()
	if len(calls) != 1 {
		t.Fatalf("RefreshDay called %d times, want 1", len(calls))
	}
	if want := common.Today(loc); !calls[0].Equal(want) {
		t.Errorf("refreshed %s, want %s", calls[0], want)
	}
}

func TestRunNowPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	s := New(newFakeRefresher(boom), "01:00", time.UTC, false, nil)

	if err := s.RunNow(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("RunNow error = %v, want %v", err, boom)
	}
}

func TestStartSchedulesDailyJob(t *testing.T) {
	f := newFakeRefresher(nil)
	s := New(f, "03:15", time.UTC, true, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh on start did not run")
	}

	jobs := s.scheduler.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("scheduled %d jobs, want 1", len(jobs))
	}
}

func TestStopWaitsForRefreshInFlight(t *testing.T) {
	f := newFakeRefresher(nil)
	f.release = make(chan struct{})
	s := New(f, "03:15", time.UTC, true, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh on start did not run")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a refresh was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the refresh finished")
	}
}

func TestStoppedSchedulerSkipsRuns(t *testing.T) {
	f := newFakeRefresher(nil)
	s := New(f, "03:15", time.UTC, false, nil)
	s.Stop()

	s.run()
	if calls := f.calls(); len(calls) != 0 {
		t.Errorf("RefreshDay called %d times after Stop, want 0", len(calls))
	}
}
