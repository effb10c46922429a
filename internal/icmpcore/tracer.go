package icmpcore

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// TTLCeiling is the highest hop limit a Tracer will probe; probes never
// exceed it regardless of TracerConfig.MaxTTL.
const TTLCeiling = 127

// TracerConfig configures a Tracer.
type TracerConfig struct {
	Dest Destination

	// MaxTTL bounds how many hops are probed; clamped to TTLCeiling.
	MaxTTL int

	// Timeout bounds how long a single hop waits for a response.
	Timeout time.Duration

	// PayloadSize is the total ICMP datagram size, header included.
	PayloadSize int

	Broadcast bool
	DontRoute bool

	Logger *zap.Logger
}

// HopResult is the outcome of probing a single TTL.
type HopResult struct {
	TTL       int
	From      net.IP
	RTT       time.Duration
	Responded bool // true if any notification (reply or error) arrived
	Reached   bool // true if the Echo Reply came from Dest itself
	Err       *IcmpError
}

// Tracer sends one ICMP Echo Request per hop, TTL 1..n, stopping as soon as
// the destination answers directly or MaxTTL is exhausted.
type Tracer struct {
	cfg   TracerConfig
	sock  *Socket
	table *correlationTable
	log   *zap.Logger
	done  chan Event
}

// NewTracer opens the underlying socket.
func NewTracer(cfg TracerConfig) (*Tracer, error) {
	if cfg.Timeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	sock, err := NewSocket(cfg.Dest, SocketConfig{
		TTL:       1,
		Broadcast: cfg.Broadcast,
		DontRoute: cfg.DontRoute,
	})
	if err != nil {
		return nil, err
	}

	t := &Tracer{cfg: cfg, sock: sock, log: log}
	t.done = make(chan Event, 1)
	t.table = newCorrelationTable(log, func(ev Event) { t.done <- ev })
	return t, nil
}

// Trace probes successive TTLs sequentially and returns every hop visited,
// in TTL order, stopping once Dest itself replies or MaxTTL is reached.
func (t *Tracer) Trace(ctx context.Context) ([]HopResult, error) {
	if len(t.table.snapshot()) > 0 {
		return nil, ErrAlreadyStarted
	}
	maxTTL := t.cfg.MaxTTL
	if maxTTL <= 0 || maxTTL > TTLCeiling {
		maxTTL = TTLCeiling
	}

	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go t.recvLoop(recvCtx)
	go t.recvErrLoop(recvCtx)

	var hops []HopResult
	for ttl := 1; ttl <= maxTTL; ttl++ {
		if ctx.Err() != nil {
			return hops, ctx.Err()
		}
		hop, err := t.probeHop(ctx, ttl)
		if err != nil {
			return hops, err
		}
		hops = append(hops, hop)
		if hop.Reached {
			break
		}
	}
	return hops, nil
}

func (t *Tracer) probeHop(ctx context.Context, ttl int) (HopResult, error) {
	if err := t.sock.SetTTL(ttl); err != nil {
		return HopResult{}, err
	}

	seq := ProbeID(ttl - 1)
	pkt := Encode(uint16(seq), t.cfg.PayloadSize)
	now := time.Now()
	t.table.registerSend(seq, now, func() {})

	if err := t.sock.Send(ctx, pkt); err != nil {
		t.log.Error("send failed", zap.Int("ttl", ttl), zap.Error(err))
		return HopResult{TTL: ttl}, err
	}

	select {
	case <-ctx.Done():
		return HopResult{}, ctx.Err()
	case ev := <-t.done:
		return t.toHopResult(ttl, ev), nil
	case <-time.After(t.cfg.Timeout):
		// A reply may have landed in the same instant the timer fired; give
		// it priority over declaring the hop silent.
		select {
		case ev := <-t.done:
			return t.toHopResult(ttl, ev), nil
		default:
		}
		t.table.completeTimeout(seq)
		drainStale(t.done)
		return HopResult{TTL: ttl}, nil
	}
}

// toHopResult reconstructs a HopResult from the correlation table's record
// for ev.Seq: the event itself only carries success/latency, while the
// responding address and error classification live in the record.
func (t *Tracer) toHopResult(ttl int, ev Event) HopResult {
	rec := t.table.snapshot()[ev.Seq]
	hop := HopResult{TTL: ttl, RTT: rec.Latency, Responded: true}
	switch rec.Outcome {
	case OutcomeReceived:
		hop.Reached = true
		hop.From = t.cfg.Dest.IP
	case OutcomeFailed:
		hop.Err = rec.Err
		if rec.Err != nil {
			hop.From = rec.Err.Hop
		}
	}
	return hop
}

// drainStale discards the buffered event for a hop that probeHop has
// already settled: the timeout event completeTimeout just emitted, or a
// completion that raced the timer.
func drainStale(ch <-chan Event) {
	select {
	case <-ch:
	default:
	}
}

func (t *Tracer) recvLoop(ctx context.Context) {
	buf := make([]byte, 2048)
	for {
		n, _, err := t.sock.Recv(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Error("recv failed", zap.Error(err))
			continue
		}
		dec, err := Decode(buf[:n])
		if err != nil {
			continue
		}
		switch dec.Kind {
		case DecodedEchoReply:
			t.table.completeReply(ProbeID(dec.Seq), time.Now())
		case DecodedTimeExceeded:
			t.log.Debug("time exceeded on normal receive path")
		default:
			t.log.Warn("unexpected icmp type on normal receive path", zap.Uint8("type", dec.Type), zap.Uint8("code", dec.Code))
		}
	}
}

func (t *Tracer) recvErrLoop(ctx context.Context) {
	for {
		ierr, err := t.sock.RecvErr()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Error("recv-err failed", zap.Error(err))
			continue
		}
		t.table.completeFailure(ierr.Seq, time.Now(), ierr)
	}
}

// Close releases the underlying socket.
func (t *Tracer) Close() error {
	return t.sock.Close()
}
