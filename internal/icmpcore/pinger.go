package icmpcore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PingerConfig configures a Pinger.
type PingerConfig struct {
	Dest Destination

	// Count is the number of probes to send. Zero means no fixed count —
	// the caller stops the run by cancelling the context passed to Start.
	// At most 65536 probes (the 16-bit sequence space) are sent per run;
	// when Count is zero or larger than that, sending stops there and the
	// run still ends only when ctx is cancelled.
	Count int

	// Interval is the gap between successive sends. Send cadence catches
	// up after a slow tick rather than drifting.
	Interval time.Duration

	// Timeout bounds how long a single probe waits for a reply before it
	// is declared OutcomeTimedOut.
	Timeout time.Duration

	// PayloadSize is the total ICMP datagram size, header included.
	// Clamped up to 8 by Encode.
	PayloadSize int

	TTL       int
	Broadcast bool
	DontRoute bool

	Logger *zap.Logger
}

// Pinger drives repeated ICMPv4 echo probes against a single destination
// and streams results in strict send order via Start's returned channel.
type Pinger struct {
	cfg   PingerConfig
	sock  *Socket
	table *correlationTable
	log   *zap.Logger

	events   chan Event
	wg       sync.WaitGroup
	stopRecv context.CancelFunc

	started bool
	mu      sync.Mutex
}

// NewPinger opens the underlying socket and prepares the engine. The
// socket is not used until Start is called.
func NewPinger(cfg PingerConfig) (*Pinger, error) {
	if cfg.Timeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	sock, err := NewSocket(cfg.Dest, SocketConfig{
		TTL:       cfg.TTL,
		Broadcast: cfg.Broadcast,
		DontRoute: cfg.DontRoute,
	})
	if err != nil {
		return nil, err
	}

	p := &Pinger{cfg: cfg, sock: sock, log: log}
	p.events = make(chan Event, 16)
	p.table = newCorrelationTable(log, func(ev Event) {
		p.events <- ev
		// Once the final requested probe has drained, there is nothing left
		// to listen for; stop the receive loops so the run ends on its own
		// instead of waiting on the caller to cancel ctx.
		if cfg.Count > 0 && int(ev.Seq)+1 == cfg.Count && p.stopRecv != nil {
			p.stopRecv()
		}
	})
	return p, nil
}

// Start launches the send/receive/timeout goroutines and returns the
// channel of in-order Events. It closes the channel once every probe has
// reached a terminal state (count runs exhausted) or ctx is cancelled.
// Start may only be called once.
func (p *Pinger) Start(ctx context.Context) (<-chan Event, error) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	p.started = true
	p.mu.Unlock()

	recvCtx, stopRecv := context.WithCancel(ctx)
	p.stopRecv = stopRecv

	p.wg.Add(3)
	go func() {
		defer p.wg.Done()
		p.sendLoop(ctx)
	}()
	go func() {
		defer p.wg.Done()
		p.recvLoop(recvCtx)
	}()
	go func() {
		defer p.wg.Done()
		p.recvErrLoop(recvCtx)
	}()

	go func() {
		<-recvCtx.Done()
		p.sock.Close()
	}()

	go func() {
		p.wg.Wait()
		stopRecv()
		close(p.events)
	}()

	return p.events, nil
}

// sendLoop emits one probe per tick on a catch-up ticker (a slow tick does
// not compound delay into later ticks) until cfg.Count probes have been
// sent or ctx is done.
func (p *Pinger) sendLoop(ctx context.Context) {
	ticker := time.NewTicker(maxDuration(p.cfg.Interval, time.Millisecond))
	defer ticker.Stop()

	var seq ProbeID
	sendOne := func() bool {
		if ctx.Err() != nil {
			return false
		}
		pkt := Encode(uint16(seq), p.cfg.PayloadSize)
		now := time.Now()

		probeCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		s := seq
		p.table.registerSend(s, now, cancel)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			<-probeCtx.Done()
			if probeCtx.Err() == context.DeadlineExceeded {
				p.table.completeTimeout(s)
			}
			cancel()
		}()

		if err := p.sock.Send(ctx, pkt); err != nil {
			p.log.Error("send failed", zap.Uint16("seq", uint16(s)), zap.Error(err))
			p.table.completeFailure(s, time.Now(), &IcmpError{Kind: KindIO, Seq: s, Err: err})
		}
		seq++
		// seq wraps to 0 once all 65536 sequence numbers are used; the
		// correlation table cannot take another probe, so sending stops.
		return seq != 0 && (p.cfg.Count == 0 || int(seq) < p.cfg.Count)
	}

	if !sendOne() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !sendOne() {
				return
			}
		}
	}
}

// recvLoop dispatches ordinary ICMP datagrams (Echo Replies) arriving on
// the socket's normal receive path.
func (p *Pinger) recvLoop(ctx context.Context) {
	buf := make([]byte, 2048)
	for {
		n, _, err := p.sock.Recv(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Error("recv failed", zap.Error(err))
			continue
		}
		dec, err := Decode(buf[:n])
		if err != nil {
			continue
		}
		switch dec.Kind {
		case DecodedEchoReply:
			p.table.completeReply(ProbeID(dec.Seq), time.Now())
		case DecodedTimeExceeded:
			p.log.Debug("time exceeded on normal receive path")
		default:
			p.log.Warn("unexpected icmp type on normal receive path", zap.Uint8("type", dec.Type), zap.Uint8("code", dec.Code))
		}
	}
}

// recvErrLoop dispatches kernel error-queue notifications (Time Exceeded,
// Destination Unreachable) — the path by which those ICMP types reach an
// unprivileged datagram socket.
func (p *Pinger) recvErrLoop(ctx context.Context) {
	for {
		ierr, err := p.sock.RecvErr()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Error("recv-err failed", zap.Error(err))
			continue
		}
		p.log.Error("icmp error", zap.Uint16("seq", uint16(ierr.Seq)), zap.Error(ierr))
		p.table.completeFailure(ierr.Seq, time.Now(), ierr)
	}
}

// Snapshot returns the current state of every probe sent so far.
func (p *Pinger) Snapshot() []ProbeRecord {
	return p.table.snapshot()
}

// Close releases the underlying socket. Safe to call after the events
// channel has been drained; Start also closes it once the run completes.
func (p *Pinger) Close() error {
	return p.sock.Close()
}

func maxDuration(d, floor time.Duration) time.Duration {
	if d < floor {
		return floor
	}
	return d
}
