// Package ping implements the ping command's orchestration layer: target
// resolution, wiring a PingerConfig into icmpcore, and turning its raw
// Event stream into the running statistics the output/TUI layers render.
package ping

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/leoleoasd/rping/internal/icmpcore"
)

// Config holds the user-facing ping parameters.
type Config struct {
	Target string

	Count     int
	Interval  time.Duration
	Timeout   time.Duration
	Size      int
	TTL       int
	Broadcast bool
	DontRoute bool

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults for an interactive ping run.
func DefaultConfig() Config {
	return Config{
		Interval: time.Second,
		Timeout:  3 * time.Second,
		Size:     56,
		TTL:      64,
	}
}

// Validate checks c for obviously invalid values before a socket is
// opened.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Interval <= 0 {
		return ErrInvalidInterval
	}
	if c.Count < 0 {
		return ErrInvalidCount
	}
	if c.Size < 8 {
		return icmpcore.ErrPayloadTooSmall
	}
	return nil
}

// Run resolves Target, opens the probing engine, and streams a Stats
// snapshot after every probe completes until Count probes have finished
// (or, if Count is zero, until at most 65536 probes have been sent) or ctx
// is cancelled; a zero-Count run ends only on cancellation. The returned
// channel is closed when the run ends.
func Run(ctx context.Context, cfg Config) (<-chan Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ip, err := resolveTarget(ctx, cfg.Target)
	if err != nil {
		return nil, err
	}

	pinger, err := icmpcore.NewPinger(icmpcore.PingerConfig{
		Dest:        icmpcore.Destination{IP: ip},
		Count:       cfg.Count,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		PayloadSize: cfg.Size,
		TTL:         cfg.TTL,
		Broadcast:   cfg.Broadcast,
		DontRoute:   cfg.DontRoute,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	events, err := pinger.Start(ctx)
	if err != nil {
		pinger.Close()
		return nil, err
	}

	out := make(chan Stats, 4)
	go func() {
		defer close(out)
		defer pinger.Close()
		acc := newAccumulator(ip)
		for ev := range events {
			acc.observe(ev)
			out <- acc.snapshot()
		}
	}()
	return out, nil
}

// resolveTarget resolves target to an IPv4 address. An already-parsed IP
// is returned as-is. IPv6 targets are rejected; this engine is IPv4-only.
func resolveTarget(ctx context.Context, target string) (net.IP, error) {
	if ip := net.ParseIP(target); ip != nil {
		if ip.To4() == nil {
			return nil, ErrIPv6Unsupported
		}
		return ip, nil
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", target)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, ErrTargetResolution
	}
	return ips[0], nil
}
