package icmpcore

import (
	"testing"
	"time"
)

func TestNewTracer_InvalidTimeoutRejected(t *testing.T) {
	_, err := NewTracer(TracerConfig{Timeout: 0})
	if err != ErrInvalidTimeout {
		t.Fatalf("err = %v, want ErrInvalidTimeout", err)
	}
}

func TestTTLCeiling(t *testing.T) {
	if TTLCeiling != 127 {
		t.Errorf("TTLCeiling = %d, want 127", TTLCeiling)
	}
}

// TestTracer_ToHopResult exercises the record-to-HopResult mapping for both
// terminal outcomes directly against the correlation table, since a real
// Trace requires a live socket.
func TestTracer_ToHopResult(t *testing.T) {
	tr := &Tracer{cfg: TracerConfig{Dest: Destination{}}}
	tr.done = make(chan Event, 1)
	tr.table = newCorrelationTable(nil, func(ev Event) { tr.done <- ev })

	now := time.Now()
	tr.table.registerSend(0, now, func() {})
	tr.table.completeReply(0, now)
	ev := <-tr.done
	hop := tr.toHopResult(1, ev)
	if !hop.Reached || !hop.Responded {
		t.Errorf("hop = %+v, want Reached and Responded", hop)
	}

	tr.table.registerSend(1, now, func() {})
	ierr := &IcmpError{Kind: KindTimeExceeded, Hop: nil}
	tr.table.completeFailure(1, now, ierr)
	ev2 := <-tr.done
	hop2 := tr.toHopResult(2, ev2)
	if hop2.Reached {
		t.Errorf("hop2 = %+v, want not Reached", hop2)
	}
	if hop2.Err != ierr {
		t.Errorf("hop2.Err = %v, want %v", hop2.Err, ierr)
	}
}
