package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/leoleoasd/rping/internal/output"
	"github.com/leoleoasd/rping/internal/trace"
	"github.com/leoleoasd/rping/internal/tui"
)

var (
	traceMaxHops   int
	traceFirstHop  int
	traceTimeout   time.Duration
	traceSize      int
	traceBroadcast bool
	traceDontRoute bool
	traceVerbose   bool
	traceJSON      bool
	traceCSV       bool
	traceHTML      string
	traceTUI       bool
	traceNoEnrich  bool
	traceNoRDNS    bool
	traceNoASN     bool
	traceNoGeoIP   bool
	traceNoColor   bool
)

var traceCmd = &cobra.Command{
	Use:   "trace [target]",
	Short: "Trace the network path to a host",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTrace,
}

func init() {
	traceCmd.Flags().IntVarP(&traceMaxHops, "max-hops", "m", 0, "Maximum number of hops")
	traceCmd.Flags().IntVarP(&traceFirstHop, "first-hop", "f", 0, "First hop, checked against --max-hops (probing always starts at TTL 1)")
	traceCmd.Flags().DurationVarP(&traceTimeout, "timeout", "w", 0, "Per-hop probe timeout")
	traceCmd.Flags().IntVarP(&traceSize, "size", "s", 0, "ICMP payload size in bytes")
	traceCmd.Flags().BoolVar(&traceBroadcast, "broadcast", false, "Allow tracing toward a broadcast address")
	traceCmd.Flags().BoolVar(&traceDontRoute, "dont-route", false, "Bypass the routing table (SO_DONTROUTE)")
	traceCmd.Flags().BoolVarP(&traceVerbose, "verbose", "v", false, "Show detailed table output")
	traceCmd.Flags().BoolVarP(&traceJSON, "json", "j", false, "Output in JSON format")
	traceCmd.Flags().BoolVar(&traceCSV, "csv", false, "Output in CSV format")
	traceCmd.Flags().StringVar(&traceHTML, "html", "", "Generate HTML report to file")
	traceCmd.Flags().BoolVarP(&traceTUI, "tui", "t", false, "Interactive TUI mode")
	traceCmd.Flags().BoolVar(&traceNoColor, "no-color", false, "Disable colored output")
	traceCmd.Flags().BoolVar(&traceNoEnrich, "no-enrich", false, "Disable all enrichment")
	traceCmd.Flags().BoolVar(&traceNoRDNS, "no-rdns", false, "Disable reverse DNS lookups")
	traceCmd.Flags().BoolVar(&traceNoASN, "no-asn", false, "Disable ASN lookups")
	traceCmd.Flags().BoolVar(&traceNoGeoIP, "no-geoip", false, "Disable GeoIP lookups")
}

func runTrace(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) == 0 {
		var err error
		target, err = promptForTarget()
		if err != nil {
			return err
		}
	} else {
		target = args[0]
	}
	target = resolveAlias(target)

	traceConfig := trace.DefaultConfig()
	applyTraceDefaults(cmd, traceConfig)
	traceConfig.MaxHops = traceMaxHops
	traceConfig.FirstHop = traceFirstHop
	traceConfig.Timeout = traceTimeout
	traceConfig.Size = traceSize
	traceConfig.Broadcast = traceBroadcast
	traceConfig.DontRoute = traceDontRoute

	traceConfig.EnableEnrichment = !traceNoEnrich
	traceConfig.EnableRDNS = !traceNoRDNS && !traceNoEnrich
	traceConfig.EnableASN = !traceNoASN && !traceNoEnrich
	traceConfig.EnableGeoIP = !traceNoGeoIP && !traceNoEnrich

	if cfg != nil && cfg.MaxMind.Enabled && cfg.MaxMind.LicenseKey != "" {
		maxmindDB, err := initMaxMind(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: MaxMind initialization failed: %v\n", err)
		} else if maxmindDB != nil {
			traceConfig.MaxMindDB = maxmindDB
		}
	}

	outputConfig := output.Config{
		Colors:  !traceNoColor,
		NoASN:   traceNoASN,
		NoGeoIP: traceNoGeoIP,
	}

	if traceTUI {
		return tui.RunTrace(target, traceConfig)
	}

	var textFormatter *output.TextFormatter
	if !traceJSON && !traceCSV {
		textFormatter = output.NewTextFormatter(outputConfig)
		traceConfig.OnHop = func(hop *trace.Hop) {
			fmt.Print(textFormatter.FormatHop(hop))
		}
	}

	tracer, err := trace.New(traceConfig)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	defer tracer.Close()

	ctx, cancel := interruptContext()
	defer cancel()

	if !traceJSON && !traceCSV {
		fmt.Printf("traceroute to %s, %d hops max\n\n", target, traceConfig.MaxHops)
	}

	result, err := tracer.Trace(ctx, target)
	if err != nil {
		return fmt.Errorf("trace failed: %w", err)
	}

	switch {
	case traceJSON:
		writer := output.NewWriter(output.FormatJSON, outputConfig)
		if err := writer.Write(result); err != nil {
			return err
		}
	case traceCSV:
		writer := output.NewWriter(output.FormatCSV, outputConfig)
		if err := writer.Write(result); err != nil {
			return err
		}
	case traceVerbose:
		writer := output.NewWriter(output.FormatVerbose, outputConfig)
		if err := writer.Write(result); err != nil {
			return err
		}
	default:
		fmt.Println()
		if result.Completed {
			fmt.Printf("Trace complete. %d hops, %.2f ms total\n",
				result.Summary.TotalHops, result.Summary.TotalTimeMs)
		} else {
			fmt.Printf("Trace incomplete after %d hops\n", result.Summary.TotalHops)
		}
	}

	if traceHTML != "" {
		htmlFormatter := output.NewHTMLFormatter(outputConfig)
		if err := output.WriteToFile(result, traceHTML, htmlFormatter); err != nil {
			return fmt.Errorf("failed to write HTML report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\nHTML report saved to: %s\n", traceHTML)
	}

	return nil
}

// applyTraceDefaults fills in defaults from trace.DefaultConfig() and the
// loaded config file for any flag the user did not explicitly set.
func applyTraceDefaults(cmd *cobra.Command, traceConfig *trace.Config) {
	def := trace.DefaultConfig()
	if cfg != nil {
		d := cfg.Defaults
		if d.MaxHops > 0 {
			def.MaxHops = d.MaxHops
		}
		if d.FirstHop > 0 {
			def.FirstHop = d.FirstHop
		}
		if d.Timeout > 0 {
			def.Timeout = d.Timeout
		}
		if d.Size > 0 {
			def.Size = d.Size
		}
		if !cmd.Flags().Changed("broadcast") && d.Broadcast {
			traceBroadcast = true
		}
		if !cmd.Flags().Changed("dont-route") && d.DontRoute {
			traceDontRoute = true
		}
		if !cmd.Flags().Changed("tui") && d.TUI {
			traceTUI = true
		}
		if !cmd.Flags().Changed("verbose") && d.Verbose {
			traceVerbose = true
		}
		if !cmd.Flags().Changed("json") && d.JSON {
			traceJSON = true
		}
		if !cmd.Flags().Changed("csv") && d.CSV {
			traceCSV = true
		}
		if !cmd.Flags().Changed("no-color") && d.NoColor {
			traceNoColor = true
		}
		if !d.Enrichment.Enabled {
			traceNoEnrich = true
		}
		if !cmd.Flags().Changed("no-rdns") && !d.Enrichment.RDNS {
			traceNoRDNS = true
		}
		if !cmd.Flags().Changed("no-asn") && !d.Enrichment.ASN {
			traceNoASN = true
		}
		if !cmd.Flags().Changed("no-geoip") && !d.Enrichment.GeoIP {
			traceNoGeoIP = true
		}
	}
	if !cmd.Flags().Changed("max-hops") {
		traceMaxHops = def.MaxHops
	}
	if !cmd.Flags().Changed("first-hop") {
		traceFirstHop = def.FirstHop
	}
	if !cmd.Flags().Changed("timeout") {
		traceTimeout = def.Timeout
	}
	if !cmd.Flags().Changed("size") {
		traceSize = def.Size
	}
}

// promptForTarget displays an interactive prompt for the user to enter a target.
func promptForTarget() (string, error) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	cyan.Println("rping - ICMP ping and traceroute")
	fmt.Println()

	fmt.Println("  Examples:")
	yellow.Println("    • google.com      - Trace to Google")
	yellow.Println("    • 8.8.8.8         - Trace to Google DNS")
	fmt.Println()

	if cfg != nil && len(cfg.Aliases) > 0 {
		fmt.Println("  Aliases:")
		for alias, target := range cfg.Aliases {
			yellow.Printf("    • %s → %s\n", alias, target)
		}
		fmt.Println()
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		green.Print("  Enter target (IP or hostname): ")

		input, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		target := strings.TrimSpace(input)
		if target == "" {
			color.Red("  Target cannot be empty. Please try again.")
			fmt.Println()
			continue
		}
		if target == "q" || target == "quit" || target == "exit" {
			fmt.Println("  Goodbye!")
			os.Exit(0)
		}

		fmt.Println()
		return target, nil
	}
}
