package scheduler

import (
	"testing"
	"time"
)

func TestScheduler_AddFuncInvalidSpec(t *testing.T) {
	s := New()
	if err := s.AddFunc("not a cron spec", func() {}); err == nil {
		t.Fatal("AddFunc() expected error for invalid spec")
	}
}

func TestScheduler_RunsRegisteredFunc(t *testing.T) {
	s := New()

	ran := make(chan struct{}, 1)
	err := s.AddFunc("@every 10ms", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("AddFunc() error = %v", err)
	}

	s.Start()
	defer func() {
		if err := s.StopWithTimeout(time.Second); err != nil {
			t.Errorf("StopWithTimeout() error = %v", err)
		}
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled func did not run")
	}
}

func TestScheduler_StopWithTimeoutIdle(t *testing.T) {
	s := New()
	s.Start()

	if err := s.StopWithTimeout(time.Second); err != nil {
		t.Fatalf("StopWithTimeout() error = %v", err)
	}
}
