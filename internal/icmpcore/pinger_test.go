package icmpcore

import (
	"context"
	"testing"
	"time"
)

// TestPinger_InvalidTimeoutRejected checks NewPinger's config guard without
// opening a real socket (NewSocket itself is exercised by integration
// environments permitted to open ICMP datagram sockets, not by this unit
// test).
func TestPinger_InvalidTimeoutRejected(t *testing.T) {
	_, err := NewPinger(PingerConfig{Timeout: 0})
	if err != ErrInvalidTimeout {
		t.Fatalf("err = %v, want ErrInvalidTimeout", err)
	}
}

// TestCorrelationTable_SentEqualsTerminal exercises the engine's core
// bookkeeping invariant directly against correlationTable, since opening a
// real ICMP socket requires privileges this test environment may not have:
// every registered probe ends in exactly one terminal outcome, and the
// count of outcomes always sums to the number of sends.
func TestCorrelationTable_SentEqualsTerminal(t *testing.T) {
	ct := newCorrelationTable(nil, nil)
	const n = 50
	cancels := make([]context.CancelFunc, n)
	now := time.Now()
	for i := 0; i < n; i++ {
		_, cancel := context.WithCancel(context.Background())
		cancels[i] = cancel
		ct.registerSend(ProbeID(i), now, cancel)
	}

	for i := 0; i < n; i++ {
		switch i % 3 {
		case 0:
			ct.completeReply(ProbeID(i), now.Add(time.Millisecond))
		case 1:
			ct.completeTimeout(ProbeID(i))
		case 2:
			ct.completeFailure(ProbeID(i), now.Add(time.Millisecond), &IcmpError{Kind: KindHostUnreachable})
		}
	}

	snap := ct.snapshot()
	var received, timedOut, failed int
	for _, rec := range snap {
		switch rec.Outcome {
		case OutcomeReceived:
			received++
		case OutcomeTimedOut:
			timedOut++
		case OutcomeFailed:
			failed++
		case OutcomePending:
			t.Fatalf("probe left Pending after completion call")
		}
	}
	if received+timedOut+failed != n {
		t.Fatalf("terminal outcomes = %d, want %d", received+timedOut+failed, n)
	}
}
