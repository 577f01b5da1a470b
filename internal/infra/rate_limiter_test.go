package infra

import (
	"testing"
	"time"
)

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(3, 1)

	for i := 0; i < 3; i++ {
		if !rl.TryAcquire() {
			t.Fatalf("token %d should be available in burst", i)
		}
	}
	if rl.TryAcquire() {
		t.Error("bucket should be empty after burst")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(1, 1000)
	if !rl.TryAcquire() {
		t.Fatal("first token should be available")
	}
	// At 1000 req/s, Wait should return almost immediately.
	done := make(chan struct{})
	go func() {
		rl.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after refill")
	}
}
