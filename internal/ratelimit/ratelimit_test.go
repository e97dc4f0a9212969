package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		key      string
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			key:      "10.0.0.1",
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			key:      "10.0.0.1",
			calls:    5,
			wantPass: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow(tt.key) {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") {
		t.Error("first key should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("first key should be exhausted")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("second key should have its own bucket")
	}
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New(10, 1) // 10 rps, burst of 1
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// First call should succeed immediately
	start := time.Now()
	if err := rl.Wait(ctx, "upstream"); err != nil {
		t.Errorf("first Wait() failed: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("first Wait() should be immediate")
	}

	// Second call should wait ~100ms (1/10 rps)
	start = time.Now()
	if err := rl.Wait(ctx, "upstream"); err != nil {
		t.Errorf("second Wait() failed: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 80*time.Millisecond || elapsed > 200*time.Millisecond {
		t.Errorf("second Wait() took %v, want ~100ms", elapsed)
	}
}

func TestKeyedRateLimiter_WaitContextCancelled(t *testing.T) {
	rl := New(0.1, 1) // 1 request per 10 seconds
	defer rl.Stop()

	rl.Allow("10.0.0.1") // exhaust the burst

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx, "10.0.0.1"); err == nil {
		t.Error("Wait() should fail when context canceled")
	}
}
