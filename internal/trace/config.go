package trace

import (
	"net"
	"time"

	"github.com/leoleoasd/rping/internal/icmpcore"
)

// Config holds the configuration for a trace operation. Probing is always
// sequential ICMPv4 Echo Request with a rising TTL ceiling: one probe per
// hop, waiting for its outcome before moving on.
type Config struct {
	// Probe settings
	MaxHops  int           // Maximum TTL/hops (default: 30)
	FirstHop int           // Checked by Validate (default: 1); the trace always starts at TTL 1
	Timeout  time.Duration // Per-probe timeout (default: 3s)
	Size     int           // ICMP payload size in bytes

	// Network settings
	SourceIP  net.IP // Not read by the tracer; the source address is left to the kernel
	Broadcast bool   // Permit tracing toward a broadcast address
	DontRoute bool   // Bypass the routing table (SO_DONTROUTE)

	// Enrichment settings
	EnableEnrichment bool // Enable any enrichment
	EnableRDNS       bool // Enable reverse DNS lookup
	EnableASN        bool // Enable ASN lookup
	EnableGeoIP      bool // Enable GeoIP lookup

	// MaxMind database (optional, for offline/faster lookups)
	MaxMindDB interface{} // *enrich.MaxMindDB - use interface to avoid import cycle

	// Callback for per-hop updates (streaming output). It is called once per
	// hop, in TTL order, after the whole path has been probed and before
	// enrichment, so the hops it sees carry no hostname, ASN or geo data.
	OnHop func(hop *Hop)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxHops:          30,
		FirstHop:         1,
		Timeout:          3 * time.Second,
		Size:             56,
		EnableEnrichment: true,
		EnableRDNS:       true,
		EnableASN:        true,
		EnableGeoIP:      true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxHops < 1 || c.MaxHops > 127 {
		return ErrInvalidMaxHops
	}
	if c.Timeout < 100*time.Millisecond {
		return ErrInvalidTimeout
	}
	if c.FirstHop < 1 || c.FirstHop > c.MaxHops {
		return ErrInvalidFirstHop
	}
	if c.Size < 8 {
		return icmpcore.ErrPayloadTooSmall
	}
	return nil
}
