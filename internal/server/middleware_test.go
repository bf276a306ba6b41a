package server

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)

	for i := 0; i < 3; i++ {
		if !rl.Allow("conn1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("conn1") {
		t.Error("request over the limit should be blocked")
	}
}

func TestRateLimiterIsPerConnection(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)

	if !rl.Allow("conn1") {
		t.Fatal("conn1 first request should be allowed")
	}
	if !rl.Allow("conn2") {
		t.Error("conn2 should not be affected by conn1's usage")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)

	if !rl.Allow("conn1") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("conn1") {
		t.Fatal("second request inside the window should be blocked")
	}

	time.Sleep(30 * time.Millisecond)

	if !rl.Allow("conn1") {
		t.Error("request after the window passed should be allowed")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(5, 10*time.Millisecond)

	rl.Allow("conn1")
	rl.Allow("conn2")

	time.Sleep(20 * time.Millisecond)
	rl.Cleanup()

	if len(rl.requests) != 0 {
		t.Errorf("cleanup left %d stale connections", len(rl.requests))
	}
}

func TestRateLimiterRemoveConnection(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	rl.Allow("conn1")
	rl.RemoveConnection("conn1")

	if !rl.Allow("conn1") {
		t.Error("removed connection should start with a clean window")
	}
}

func TestValidateMessageType(t *testing.T) {
	for _, valid := range []string{"ping", "create_match", "join_match", "reconnect", "set_ready", "leave_match", "execute_move"} {
		if err := ValidateMessageType(valid); err != nil {
			t.Errorf("ValidateMessageType(%q) = %v, want nil", valid, err)
		}
	}

	for _, invalid := range []string{"", "execute-move", "draw", "unknown"} {
		if err := ValidateMessageType(invalid); err == nil {
			t.Errorf("ValidateMessageType(%q) = nil, want error", invalid)
		}
	}
}
