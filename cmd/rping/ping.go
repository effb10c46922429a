package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leoleoasd/rping/internal/ping"
	"github.com/leoleoasd/rping/internal/tui"
)

var (
	pingCount     int
	pingInterval  time.Duration
	pingTimeout   time.Duration
	pingSize      int
	pingTTL       int
	pingBroadcast bool
	pingDontRoute bool
	pingTUI       bool
	pingVerbose   bool
)

var pingCmd = &cobra.Command{
	Use:   "ping <target>",
	Short: "Send ICMP Echo Requests to a host",
	Args:  cobra.ExactArgs(1),
	RunE:  runPing,
}

func init() {
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 0, "Number of probes to send (0 = until interrupted, at most 65536)")
	pingCmd.Flags().DurationVarP(&pingInterval, "interval", "i", 0, "Gap between probes")
	pingCmd.Flags().DurationVarP(&pingTimeout, "timeout", "W", 0, "Per-probe timeout")
	pingCmd.Flags().IntVarP(&pingSize, "size", "s", 0, "ICMP payload size in bytes")
	pingCmd.Flags().IntVarP(&pingTTL, "ttl", "t", 0, "Outgoing IP TTL")
	pingCmd.Flags().BoolVarP(&pingBroadcast, "broadcast", "b", false, "Allow pinging a broadcast address")
	pingCmd.Flags().BoolVar(&pingDontRoute, "dont-route", false, "Bypass the routing table (SO_DONTROUTE)")
	pingCmd.Flags().BoolVar(&pingTUI, "tui", false, "Interactive TUI mode with a live latency chart")
	pingCmd.Flags().BoolVarP(&pingVerbose, "verbose", "v", false, "Log protocol-level details to stderr")
}

func runPing(cmd *cobra.Command, args []string) error {
	target := resolveAlias(args[0])

	pingConfig := ping.DefaultConfig()
	pingConfig.Target = target
	applyPingDefaults(cmd)
	pingConfig.Count = pingCount
	pingConfig.Interval = pingInterval
	pingConfig.Timeout = pingTimeout
	pingConfig.Size = pingSize
	pingConfig.TTL = pingTTL
	pingConfig.Broadcast = pingBroadcast
	pingConfig.DontRoute = pingDontRoute

	if pingVerbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			pingConfig.Logger = logger
			defer logger.Sync()
		}
	}

	if err := pingConfig.Validate(); err != nil {
		return err
	}

	if pingTUI {
		return tui.RunPing(target, pingConfig)
	}

	return runPingStream(target, pingConfig)
}

// applyPingDefaults fills in defaults from ping.DefaultConfig() and the
// loaded config file for any flag the user did not explicitly set.
func applyPingDefaults(cmd *cobra.Command) {
	def := ping.DefaultConfig()
	if cfg != nil {
		d := cfg.Defaults
		if d.Interval > 0 {
			def.Interval = d.Interval
		}
		if d.Timeout > 0 {
			def.Timeout = d.Timeout
		}
		if d.TTL > 0 {
			def.TTL = d.TTL
		}
		if d.Size > 0 {
			def.Size = d.Size
		}
		if !cmd.Flags().Changed("count") && d.Count > 0 {
			pingCount = d.Count
		}
		if !cmd.Flags().Changed("broadcast") && d.Broadcast {
			pingBroadcast = true
		}
		if !cmd.Flags().Changed("dont-route") && d.DontRoute {
			pingDontRoute = true
		}
		if !cmd.Flags().Changed("tui") && d.TUI {
			pingTUI = true
		}
	}
	if !cmd.Flags().Changed("interval") {
		pingInterval = def.Interval
	}
	if !cmd.Flags().Changed("timeout") {
		pingTimeout = def.Timeout
	}
	if !cmd.Flags().Changed("ttl") {
		pingTTL = def.TTL
	}
	if !cmd.Flags().Changed("size") {
		pingSize = def.Size
	}
}

// runPingStream drives a plain-text streaming ping run: one line per
// probe, a trailing summary, until the run ends or is interrupted.
func runPingStream(target string, pingConfig ping.Config) error {
	ctx, cancel := interruptContext()
	defer cancel()

	fmt.Printf("PING %s\n", target)

	statsCh, err := ping.Run(ctx, pingConfig)
	if err != nil {
		return fmt.Errorf("failed to start ping: %w", err)
	}

	var last ping.Stats
	for stats := range statsCh {
		last = stats
		printPingLine(stats)
	}

	fmt.Printf("\n--- %s ping statistics ---\n", target)
	fmt.Printf("%d packets transmitted, %d received, %.1f%% packet loss\n",
		last.Sent, last.Received, last.LossPercent)
	if last.Received > 0 {
		fmt.Printf("rtt min/avg/max/jitter/p95 = %v/%v/%v/%v/%v\n",
			last.MinRTT, last.AvgRTT, last.MaxRTT, last.JitterRTT, last.P95RTT)
	}

	return nil
}

func printPingLine(stats ping.Stats) {
	if !stats.LastOK {
		fmt.Fprintf(os.Stdout, "Request timeout for icmp_seq %d\n", stats.LastSeq)
		return
	}
	fmt.Printf("reply from %s: icmp_seq=%d time=%v\n", stats.Target, stats.LastSeq, stats.LastLatency)
}
