package ping

import (
	"net"
	"testing"
	"time"

	"github.com/leoleoasd/rping/internal/icmpcore"
)

func TestAccumulator_LossPercent(t *testing.T) {
	acc := newAccumulator(net.ParseIP("127.0.0.1"))
	acc.observe(icmpcore.Event{Seq: 0, OK: true, Latency: 10 * time.Millisecond})
	acc.observe(icmpcore.Event{Seq: 1, OK: false})
	acc.observe(icmpcore.Event{Seq: 2, OK: true, Latency: 20 * time.Millisecond})
	acc.observe(icmpcore.Event{Seq: 3, OK: false})

	snap := acc.snapshot()
	if snap.Sent != 4 || snap.Received != 2 || snap.Lost != 2 {
		t.Fatalf("snap = %+v, want Sent=4 Received=2 Lost=2", snap)
	}
	if snap.LossPercent != 50 {
		t.Errorf("LossPercent = %v, want 50", snap.LossPercent)
	}
}

func TestAccumulator_RTTStats(t *testing.T) {
	acc := newAccumulator(net.ParseIP("127.0.0.1"))
	for _, ms := range []int{10, 20, 30, 40, 50} {
		acc.observe(icmpcore.Event{OK: true, Latency: time.Duration(ms) * time.Millisecond})
	}
	snap := acc.snapshot()
	if snap.MinRTT != 10*time.Millisecond {
		t.Errorf("MinRTT = %v, want 10ms", snap.MinRTT)
	}
	if snap.MaxRTT != 50*time.Millisecond {
		t.Errorf("MaxRTT = %v, want 50ms", snap.MaxRTT)
	}
	if snap.AvgRTT != 30*time.Millisecond {
		t.Errorf("AvgRTT = %v, want 30ms", snap.AvgRTT)
	}
	if snap.JitterRTT != 40*time.Millisecond {
		t.Errorf("JitterRTT = %v, want 40ms", snap.JitterRTT)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = "127.0.0.1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := cfg
	bad.Timeout = 0
	if err := bad.Validate(); err != ErrInvalidTimeout {
		t.Errorf("err = %v, want ErrInvalidTimeout", err)
	}

	bad = cfg
	bad.Count = -1
	if err := bad.Validate(); err != ErrInvalidCount {
		t.Errorf("err = %v, want ErrInvalidCount", err)
	}
}
