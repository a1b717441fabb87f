package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTokenBucket(t *testing.T) {
	// 600/min refills one token every 100ms
	tb := NewTokenBucket(600, 2)

	if !tb.Allow() || !tb.Allow() {
		t.Fatal("burst tokens should be available immediately")
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty after burst")
	}

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Wait returned too early: %v", elapsed)
	}

	tb.Reset()
	if !tb.Allow() {
		t.Error("Reset should refill the bucket")
	}
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	tb.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err == nil {
		t.Fatal("expected an error when the context expires before a token")
	}
}

func TestFixedPause(t *testing.T) {
	fp := NewFixedPause(30 * time.Millisecond)

	if !fp.Allow() {
		t.Error("fresh limiter should allow")
	}

	start := time.Now()
	if err := fp.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("pause too short: %v", elapsed)
	}
	if fp.Allow() {
		t.Error("should not allow right after a pause")
	}

	fp.Reset()
	if !fp.Allow() {
		t.Error("Reset should clear the last pause")
	}
}

func TestFixedPauseCancelled(t *testing.T) {
	fp := NewFixedPause(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := fp.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFixedPauseZero(t *testing.T) {
	fp := NewFixedPause(0)
	if err := fp.Wait(context.Background()); err != nil {
		t.Fatalf("zero pause should not fail: %v", err)
	}
}
