package ping

import (
	"math"
	"net"
	"sort"
	"time"

	"github.com/leoleoasd/rping/internal/icmpcore"
)

// Stats is a running snapshot of a ping run's aggregate statistics,
// restoring the header-stats view the original implementation computed
// over its rolling latency window (min/max/avg/jitter/p95/loss).
type Stats struct {
	Target net.IP

	Sent     int
	Received int
	Lost     int

	LastSeq     icmpcore.ProbeID
	LastOK      bool
	LastLatency time.Duration

	MinRTT     time.Duration
	MaxRTT     time.Duration
	AvgRTT     time.Duration
	JitterRTT  time.Duration
	P95RTT     time.Duration
	LossPercent float64
}

// accumulator folds icmpcore.Events into a Stats snapshot incrementally.
type accumulator struct {
	target    net.IP
	sent      int
	received  int
	latencies []time.Duration // successful RTTs only, in arrival order
	last      Stats
}

func newAccumulator(target net.IP) *accumulator {
	return &accumulator{target: target}
}

func (a *accumulator) observe(ev icmpcore.Event) {
	a.sent++
	a.last.LastSeq = ev.Seq
	a.last.LastOK = ev.OK
	a.last.LastLatency = ev.Latency
	if ev.OK {
		a.received++
		a.latencies = append(a.latencies, ev.Latency)
	}
}

func (a *accumulator) snapshot() Stats {
	s := a.last
	s.Target = a.target
	s.Sent = a.sent
	s.Received = a.received
	s.Lost = a.sent - a.received
	if a.sent > 0 {
		s.LossPercent = 100 * float64(s.Lost) / float64(a.sent)
	}
	if len(a.latencies) > 0 {
		s.MinRTT, s.MaxRTT, s.AvgRTT, s.JitterRTT, s.P95RTT = rttStats(a.latencies)
	}
	return s
}

// rttStats computes min/max/average/jitter (max-min spread) and the 95th
// percentile over a set of successful round-trip times.
func rttStats(latencies []time.Duration) (min, max, avg, jitter, p95 time.Duration) {
	min, max = latencies[0], latencies[0]
	var sum time.Duration
	for _, l := range latencies {
		if l < min {
			min = l
		}
		if l > max {
			max = l
		}
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	jitter = max - min

	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(0.95*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	p95 = sorted[idx]
	return
}
