// Package trace provides traceroute functionality.
package trace

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/leoleoasd/rping/internal/enrich"
	"github.com/leoleoasd/rping/internal/icmpcore"
)

// Tracer performs network path tracing operations.
type Tracer struct {
	config   *Config
	enricher *enrich.Enricher
}

// New creates a new Tracer with the given configuration.
func New(config *Config) (*Tracer, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	var enricher *enrich.Enricher
	if config.EnableEnrichment {
		enricherConfig := enrich.EnricherConfig{
			EnableRDNS:  config.EnableRDNS,
			EnableASN:   config.EnableASN,
			EnableGeoIP: config.EnableGeoIP,
		}
		if maxmindDB, ok := config.MaxMindDB.(*enrich.MaxMindDB); ok && maxmindDB != nil {
			enricher = enrich.NewEnricherWithMaxMind(enricherConfig, maxmindDB)
		} else {
			enricher = enrich.NewEnricher(enricherConfig)
		}
	}

	return &Tracer{config: config, enricher: enricher}, nil
}

// Trace performs a traceroute to the specified target.
func (t *Tracer) Trace(ctx context.Context, target string) (*TraceResult, error) {
	dest, err := t.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	tr, err := icmpcore.NewTracer(icmpcore.TracerConfig{
		Dest:        icmpcore.Destination{IP: dest},
		MaxTTL:      t.config.MaxHops,
		Timeout:     t.config.Timeout,
		PayloadSize: t.config.Size,
		Broadcast:   t.config.Broadcast,
		DontRoute:   t.config.DontRoute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open trace socket: %w", err)
	}
	defer tr.Close()

	rawHops, err := tr.Trace(ctx)
	if err != nil {
		return nil, err
	}

	hops := make([]Hop, 0, len(rawHops))
	for _, rh := range rawHops {
		hop := hopFromResult(rh)
		hops = append(hops, hop)
		if t.config.OnHop != nil {
			t.config.OnHop(&hop)
		}
	}

	if t.enricher != nil {
		t.enrichHops(ctx, hops, dest)
	}

	return t.buildResult(target, dest, hops), nil
}

// hopFromResult converts a single icmpcore.HopResult into the output Hop
// shape. Each hop carries exactly one probe, so Min/Max/Avg collapse to
// that probe's RTT and Jitter is zero.
func hopFromResult(rh icmpcore.HopResult) Hop {
	hop := Hop{Number: rh.TTL, IP: rh.From, Responded: rh.Responded}
	if rh.Reached {
		hop.Responded = true
	}
	if rh.Responded {
		ms := float64(rh.RTT.Microseconds()) / 1000.0
		hop.RTTs = []float64{ms}
		hop.AvgRTT, hop.MinRTT, hop.MaxRTT = ms, ms, ms
	} else {
		hop.RTTs = []float64{-1}
		hop.LossPercent = 100
	}
	return hop
}

// enrichHops fills in Hostname/ASN/Geo for every hop that produced an
// address; dest gets no special treatment.
func (t *Tracer) enrichHops(ctx context.Context, hops []Hop, dest net.IP) {
	ips := make([]net.IP, 0, len(hops))
	for _, hop := range hops {
		if hop.IP != nil {
			ips = append(ips, hop.IP)
		}
	}

	results := t.enricher.EnrichIPs(ctx, ips)
	for i := range hops {
		if hops[i].IP == nil {
			continue
		}
		result := results[hops[i].IP.String()]
		if result == nil {
			continue
		}
		hops[i].Hostname = result.Hostname
		if result.ASN != nil {
			hops[i].ASN = &ASNInfo{
				Number:  result.ASN.Number,
				Org:     result.ASN.Org,
				Country: result.ASN.Country,
			}
		}
		if result.Geo != nil {
			hops[i].Geo = &GeoInfo{
				Country:     result.Geo.Country,
				CountryCode: result.Geo.CountryCode,
				City:        result.Geo.City,
				Latitude:    result.Geo.Latitude,
				Longitude:   result.Geo.Longitude,
			}
		}
	}
}

// Close releases resources held by the tracer.
func (t *Tracer) Close() error {
	if t.enricher != nil {
		return t.enricher.Close()
	}
	return nil
}

// resolveTarget resolves a hostname or IPv4 string to a net.IP.
func (t *Tracer) resolveTarget(ctx context.Context, target string) (net.IP, error) {
	if ip := net.ParseIP(target); ip != nil {
		if ip.To4() == nil {
			return nil, fmt.Errorf("%s is an IPv6 address; this tracer is IPv4-only", target)
		}
		return ip, nil
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	if len(ips) == 0 {
		return nil, ErrTargetResolution
	}
	return ips[0], nil
}

// buildResult creates a TraceResult from the collected hops.
func (t *Tracer) buildResult(target string, dest net.IP, hops []Hop) *TraceResult {
	result := &TraceResult{
		Target:      target,
		ResolvedIP:  dest,
		Timestamp:   time.Now(),
		ProbeMethod: "icmp",
		Hops:        hops,
	}

	if len(hops) > 0 {
		lastHop := hops[len(hops)-1]
		if lastHop.IP != nil && lastHop.IP.Equal(dest) {
			result.Completed = true
		}
	}

	result.Summary = t.calculateSummary(hops)
	return result
}

// calculateSummary calculates aggregate statistics for the trace.
func (t *Tracer) calculateSummary(hops []Hop) Summary {
	summary := Summary{TotalHops: len(hops)}

	var totalLoss float64
	for _, hop := range hops {
		totalLoss += hop.LossPercent
	}
	if len(hops) > 0 {
		summary.PacketLossPercent = totalLoss / float64(len(hops))
	}

	for i := len(hops) - 1; i >= 0; i-- {
		if hops[i].AvgRTT > 0 {
			summary.TotalTimeMs = hops[i].AvgRTT
			break
		}
	}

	return summary
}
