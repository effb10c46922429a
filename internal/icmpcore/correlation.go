package icmpcore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProbeID is a 16-bit sequence number, monotonic within a single engine run.
type ProbeID uint16

// Outcome is the terminal (or pending) state of a ProbeRecord.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeReceived
	OutcomeTimedOut
	OutcomeFailed
)

// ProbeRecord tracks one outstanding probe. It transitions from Pending to
// exactly one terminal state.
type ProbeRecord struct {
	SendInstant time.Time
	Outcome     Outcome
	Latency     time.Duration // valid iff Outcome == OutcomeReceived
	Err         *IcmpError    // valid iff Outcome == OutcomeFailed
}

// correlationTable maps ProbeID to ProbeRecord and the cancel function for
// its timeout goroutine. Insertion order equals ProbeID order; no entry is
// ever removed before the engine shuts down. A single mutex guards both the
// record slice and the emission cursor, so the drain-forward walk performed
// by tryEmit runs atomically with the completion that triggered it — see
// Design Note on correlation-slot synchronization.
type correlationTable struct {
	mu         sync.Mutex
	records    []ProbeRecord
	cancels    []context.CancelFunc
	nextToEmit ProbeID
	emit       func(Event)
	log        *zap.Logger
}

func newCorrelationTable(log *zap.Logger, emit func(Event)) *correlationTable {
	if log == nil {
		log = zap.NewNop()
	}
	return &correlationTable{emit: emit, log: log}
}

// registerSend appends a Pending record at index probeID and stores the
// timeout goroutine's cancel function. Panics if probeID is not exactly
// len(records), enforcing strict in-order registration.
func (t *correlationTable) registerSend(probeID ProbeID, now time.Time, cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(probeID) != len(t.records) {
		panic("icmpcore: probes must be registered in strict sequence order")
	}
	t.records = append(t.records, ProbeRecord{SendInstant: now, Outcome: OutcomePending})
	t.cancels = append(t.cancels, cancel)
}

// completeReply transitions probeID to Received if still Pending, cancels
// its timeout goroutine, and emits/drains in-order events. A reply for an
// already-terminal slot (duplicate, or arriving after the timeout fired) is
// a logged no-op.
func (t *correlationTable) completeReply(probeID ProbeID, arrival time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(probeID) >= len(t.records) {
		return
	}
	rec := &t.records[probeID]
	if rec.Outcome != OutcomePending {
		t.log.Debug("duplicate or post-terminal reply ignored", zap.Uint16("seq", uint16(probeID)))
		return
	}
	rec.Outcome = OutcomeReceived
	rec.Latency = arrival.Sub(rec.SendInstant)
	if cancel := t.cancels[probeID]; cancel != nil {
		cancel()
	}
	t.drainFrom(probeID)
}

// completeTimeout transitions probeID to TimedOut if still Pending. Invoked
// by the Pinger's per-probe timeout goroutine and by the Tracer when a
// hop's timer fires.
func (t *correlationTable) completeTimeout(probeID ProbeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(probeID) >= len(t.records) {
		return
	}
	rec := &t.records[probeID]
	if rec.Outcome != OutcomePending {
		return
	}
	rec.Outcome = OutcomeTimedOut
	t.drainFrom(probeID)
}

// completeFailure transitions probeID to Failed if still Pending and cancels
// its timeout goroutine. arrival is used to compute Latency the same way a
// reply would, since a Time Exceeded / Unreachable notification is itself a
// round trip to the responding hop.
func (t *correlationTable) completeFailure(probeID ProbeID, arrival time.Time, err *IcmpError) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(probeID) >= len(t.records) {
		return
	}
	rec := &t.records[probeID]
	if rec.Outcome != OutcomePending {
		t.log.Debug("failure for already-terminal probe ignored", zap.Uint16("seq", uint16(probeID)))
		return
	}
	rec.Outcome = OutcomeFailed
	rec.Latency = arrival.Sub(rec.SendInstant)
	rec.Err = err
	if cancel := t.cancels[probeID]; cancel != nil {
		cancel()
	}
	t.drainFrom(probeID)
}

// drainFrom emits k's event if k is the next expected ordinal, then walks
// forward emitting every already-terminal slot until hitting a still-Pending
// one. Must be called with t.mu held.
func (t *correlationTable) drainFrom(k ProbeID) {
	if k != t.nextToEmit {
		return
	}
	for int(t.nextToEmit) < len(t.records) {
		rec := &t.records[t.nextToEmit]
		if rec.Outcome == OutcomePending {
			break
		}
		seq := t.nextToEmit
		ev := Event{Seq: seq}
		if rec.Outcome == OutcomeReceived {
			ev.Latency = rec.Latency
			ev.OK = true
		}
		if t.emit != nil {
			t.emit(ev)
		}
		t.nextToEmit++
	}
}

// snapshot returns a copy of every record for statistics/consumers.
func (t *correlationTable) snapshot() []ProbeRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ProbeRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Event is streamed to the consumer in strict ProbeID order. OK=false means
// timeout or failure (the Option<Duration>=None case in the source spec).
type Event struct {
	Seq     ProbeID
	Latency time.Duration
	OK      bool
}
