package utils

import (
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsFirstTry(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewNopLogger()}

	calls := 0
	err := r.Do("op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v; want nil", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times; want 1", calls)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewNopLogger()}

	calls := 0
	err := r.Do("op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v; want nil after recovery", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times; want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewNopLogger()}

	boom := errors.New("permanent")
	calls := 0
	err := r.Do("op", func() error {
		calls++
		return boom
	})
	if err == nil {
		t.Fatal("Do returned nil; want the final error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error chain lost the cause: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times; want 3", calls)
	}
}
