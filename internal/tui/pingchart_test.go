package tui

import (
	"testing"
	"time"

	"github.com/leoleoasd/rping/internal/icmpcore"
)

func TestLatencyWindow_Stats(t *testing.T) {
	w := NewLatencyWindow()
	for _, ms := range []int{10, 20, 30, 40, 50} {
		w.Update(icmpcore.Event{OK: true, Latency: time.Duration(ms) * time.Millisecond})
	}
	w.Update(icmpcore.Event{OK: false})

	stats := w.Stats()
	if stats.Min != 10 || stats.Max != 50 {
		t.Errorf("stats = %+v, want Min=10 Max=50", stats)
	}
	if stats.Timeouts != 1 {
		t.Errorf("Timeouts = %d, want 1", stats.Timeouts)
	}
}

func TestLatencyWindow_EvictsOldSamples(t *testing.T) {
	w := NewLatencyWindow()
	for i := 0; i < windowCapacity+10; i++ {
		w.Update(icmpcore.Event{OK: true, Latency: time.Duration(i) * time.Millisecond})
	}
	if len(w.samples) != windowCapacity {
		t.Fatalf("len(samples) = %d, want %d", len(w.samples), windowCapacity)
	}
	// the oldest 10 samples (0..9ms) should have been evicted
	min, _ := w.Bounds()
	if min != 10 {
		t.Errorf("min = %v, want 10 (oldest samples evicted)", min)
	}
}

func TestLatencyWindow_Sparkline(t *testing.T) {
	w := NewLatencyWindow()
	w.Update(icmpcore.Event{OK: true, Latency: 10 * time.Millisecond})
	w.Update(icmpcore.Event{OK: false})
	w.Update(icmpcore.Event{OK: true, Latency: 20 * time.Millisecond})

	spark := w.Sparkline()
	if len([]rune(spark)) != 3 {
		t.Fatalf("len(spark) = %d, want 3", len([]rune(spark)))
	}
	if []rune(spark)[1] != ' ' {
		t.Errorf("spark[1] = %q, want blank for timeout", []rune(spark)[1])
	}
}
