package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/leoleoasd/rping/internal/icmpcore"
)

// windowCapacity bounds how many recent samples the rolling chart keeps,
// restoring the header-stats view the original implementation computed
// over a fixed-size ring buffer rather than the whole run's history.
const windowCapacity = 120

// LatencyWindow is a rolling buffer of recent ping outcomes, feeding both
// the header statistics and the sparkline view.
type LatencyWindow struct {
	samples  []float64 // milliseconds, NaN-like sentinel -1 for a timeout/loss
	timeouts int
	total    int
}

// NewLatencyWindow creates an empty rolling window.
func NewLatencyWindow() *LatencyWindow {
	return &LatencyWindow{samples: make([]float64, 0, windowCapacity)}
}

// Update folds a single probe event into the window.
func (w *LatencyWindow) Update(ev icmpcore.Event) {
	w.total++
	var v float64
	if ev.OK {
		v = float64(ev.Latency.Microseconds()) / 1000.0
	} else {
		v = -1
		w.timeouts++
	}
	if len(w.samples) >= windowCapacity {
		w.samples = w.samples[1:]
	}
	w.samples = append(w.samples, v)
}

// Bounds returns the min/max successful latency currently in the window.
func (w *LatencyWindow) Bounds() (min, max float64) {
	first := true
	for _, v := range w.samples {
		if v < 0 {
			continue
		}
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// PingStats is the header-stats summary. The latency figures cover the
// rolling window; Timeouts counts every timeout since the window was made.
type PingStats struct {
	Min, Max, Avg, Jitter, P95 float64
	Timeouts                   int
}

// Stats computes the rolling-window statistics.
func (w *LatencyWindow) Stats() PingStats {
	var sum float64
	var ok []float64
	for _, v := range w.samples {
		if v < 0 {
			continue
		}
		ok = append(ok, v)
		sum += v
	}
	if len(ok) == 0 {
		return PingStats{Timeouts: w.timeouts}
	}
	min, max := w.Bounds()
	return PingStats{
		Min:      min,
		Max:      max,
		Avg:      sum / float64(len(ok)),
		Jitter:   max - min,
		P95:      percentile95(ok),
		Timeouts: w.timeouts,
	}
}

func percentile95(sorted []float64) float64 {
	cp := append([]float64(nil), sorted...)
	for i := 1; i < len(cp); i++ {
		for j := i; j > 0 && cp[j-1] > cp[j]; j-- {
			cp[j-1], cp[j] = cp[j], cp[j-1]
		}
	}
	idx := int(0.95*float64(len(cp)-1) + 0.5)
	return cp[idx]
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders the rolling window as a single-line bar chart, a
// timeout rendering as a blank column.
func (w *LatencyWindow) Sparkline() string {
	if len(w.samples) == 0 {
		return ""
	}
	min, max := w.Bounds()
	span := max - min
	var b strings.Builder
	for _, v := range w.samples {
		if v < 0 {
			b.WriteRune(' ')
			continue
		}
		if span <= 0 {
			b.WriteRune(sparkLevels[0])
			continue
		}
		idx := int((v - min) / span * float64(len(sparkLevels)-1))
		b.WriteRune(sparkLevels[idx])
	}
	return b.String()
}

// RenderHeader renders the min/max/avg/jitter/p95/loss header line.
func RenderHeader(styles Styles, stats PingStats, sent int) string {
	lossPct := 0.0
	if sent > 0 {
		lossPct = 100 * float64(stats.Timeouts) / float64(sent)
	}
	line := fmt.Sprintf("min/avg/max/jitter/p95 = %.2f/%.2f/%.2f/%.2f/%.2f ms, loss %.1f%%",
		stats.Min, stats.Avg, stats.Max, stats.Jitter, stats.P95, lossPct)
	return styles.Subtle.Render(line)
}

// RenderChart renders the sparkline inside a bordered box.
func RenderChart(styles Styles, w *LatencyWindow) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.Header.Render("latency"),
		w.Sparkline(),
	)
	return styles.Box.Render(body)
}
