package trace

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/leoleoasd/rping/internal/icmpcore"
)

func TestNew_DefaultConfig(t *testing.T) {
	tr, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tr.Close()
	if tr.config.MaxHops != 30 {
		t.Errorf("MaxHops = %d, want 30", tr.config.MaxHops)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHops = 0
	if _, err := New(cfg); err != ErrInvalidMaxHops {
		t.Fatalf("err = %v, want ErrInvalidMaxHops", err)
	}
}

func TestHopFromResult_Responded(t *testing.T) {
	hop := hopFromResult(icmpcore.HopResult{
		TTL: 3, From: net.ParseIP("10.0.0.1"), RTT: 15 * time.Millisecond,
		Responded: true,
	})
	if hop.Number != 3 || !hop.Responded {
		t.Fatalf("hop = %+v", hop)
	}
	if hop.AvgRTT != 15 || hop.MinRTT != 15 || hop.MaxRTT != 15 {
		t.Errorf("RTT fields = %+v, want 15", hop)
	}
	if hop.LossPercent != 0 {
		t.Errorf("LossPercent = %v, want 0", hop.LossPercent)
	}
}

func TestHopFromResult_Silent(t *testing.T) {
	hop := hopFromResult(icmpcore.HopResult{TTL: 5})
	if hop.Responded {
		t.Fatalf("hop = %+v, want Responded=false", hop)
	}
	if hop.LossPercent != 100 {
		t.Errorf("LossPercent = %v, want 100", hop.LossPercent)
	}
	if len(hop.RTTs) != 1 || hop.RTTs[0] != -1 {
		t.Errorf("RTTs = %v, want [-1]", hop.RTTs)
	}
}

func TestBuildResult_Completed(t *testing.T) {
	tr, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tr.Close()

	dest := net.ParseIP("203.0.113.1")
	hops := []Hop{
		{Number: 1, IP: net.ParseIP("10.0.0.1"), Responded: true, AvgRTT: 5},
		{Number: 2, IP: dest, Responded: true, AvgRTT: 20},
	}
	result := tr.buildResult("example.test", dest, hops)
	if !result.Completed {
		t.Errorf("Completed = false, want true")
	}
	if result.ProbeMethod != "icmp" {
		t.Errorf("ProbeMethod = %q, want icmp", result.ProbeMethod)
	}
	if result.Summary.TotalHops != 2 {
		t.Errorf("TotalHops = %d, want 2", result.Summary.TotalHops)
	}
	if result.Summary.TotalTimeMs != 20 {
		t.Errorf("TotalTimeMs = %v, want 20", result.Summary.TotalTimeMs)
	}
}

func TestBuildResult_Incomplete(t *testing.T) {
	tr, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tr.Close()

	dest := net.ParseIP("203.0.113.1")
	hops := []Hop{
		{Number: 1, IP: net.ParseIP("10.0.0.1"), Responded: true, AvgRTT: 5},
		{Number: 2, Responded: false, LossPercent: 100},
	}
	result := tr.buildResult("example.test", dest, hops)
	if result.Completed {
		t.Errorf("Completed = true, want false")
	}
	if result.Summary.PacketLossPercent != 50 {
		t.Errorf("PacketLossPercent = %v, want 50", result.Summary.PacketLossPercent)
	}
}

func TestResolveTarget_LiteralIPv4(t *testing.T) {
	tr, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tr.Close()

	ip, err := tr.resolveTarget(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatalf("resolveTarget: %v", err)
	}
	if !ip.Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("ip = %v, want 127.0.0.1", ip)
	}
}

func TestResolveTarget_RejectsIPv6Literal(t *testing.T) {
	tr, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tr.Close()

	if _, err := tr.resolveTarget(context.Background(), "::1"); err == nil {
		t.Fatal("expected error for IPv6 literal")
	}
}
