package aggregator

import (
	"testing"
	"time"
)

func TestDeviceTrackerRateLimit(t *testing.T) {
	tracker := NewDeviceTracker(5 * time.Second)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	steps := []struct {
		device string
		offset time.Duration
		want   bool
	}{
		{"esp-1", 0, true},
		{"esp-1", 2 * time.Second, false},
		{"esp-2", 2 * time.Second, true},
		{"esp-1", 4 * time.Second, false},
		{"esp-1", 5 * time.Second, true},
		{"esp-1", 9 * time.Second, false},
		{"esp-1", 10 * time.Second, true},
	}
	for i, s := range steps {
		if got := tracker.Allow(s.device, start.Add(s.offset)); got != s.want {
			t.Errorf("step %d: Allow(%s, +%v) = %v, want %v", i, s.device, s.offset, got, s.want)
		}
	}

	state, ok := tracker.GetDeviceState("esp-1")
	if !ok {
		t.Fatal("Expected state for esp-1")
	}
	if state.Requests != 3 || state.Rejected != 3 {
		t.Errorf("Expected 3 served and 3 rejected, got %d/%d", state.Requests, state.Rejected)
	}
	if !state.LastRequest.Equal(start.Add(10 * time.Second)) {
		t.Errorf("Unexpected last request time %v", state.LastRequest)
	}

	devices := tracker.GetAllDevices()
	if len(devices) != 2 || devices[0] != "esp-1" || devices[1] != "esp-2" {
		t.Errorf("Expected [esp-1 esp-2], got %v", devices)
	}
}

func TestDeviceTrackerDisabled(t *testing.T) {
	tracker := NewDeviceTracker(0)
	now := time.Now()
	for i := 0; i < 5; i++ {
		if !tracker.Allow("esp-1", now) {
			t.Fatalf("request %d rejected with rate limiting disabled", i)
		}
	}
	if _, ok := tracker.GetDeviceState("unknown"); ok {
		t.Error("Expected no state for an unknown device")
	}
}
