package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leoleoasd/rping/internal/config"
	"github.com/leoleoasd/rping/internal/enrich"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rping",
	Short: "ICMP ping and traceroute",
	Long: `rping - an unprivileged ICMPv4 ping and traceroute tool

rping sends ICMP Echo Requests over a datagram socket (no raw-socket
capability required on Linux) and reports round-trip latency, or walks the
path to a destination hop by hop with rising TTLs.

Examples:
  rping ping google.com              Ping until interrupted
  rping ping -c 4 8.8.8.8            Send 4 probes and stop
  rping ping --tui google.com        Live terminal chart
  rping trace google.com             Traceroute with enrichment
  rping trace --json google.com      JSON trace report
  rping config --init                Create default config file`,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/rping/config.yaml)")
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads configuration from file, creating a default one at the
// user config path on first run, when that file does not exist yet. A
// config that fails to load is replaced by defaults for this run only.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error

	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	}

	cfg, err = config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
		return nil
	}
	if _, statErr := os.Stat(config.GetConfigPath()); os.IsNotExist(statErr) {
		if saveErr := cfg.Save(); saveErr == nil {
			fmt.Fprintf(os.Stderr, "Created default config: %s\n", config.GetConfigPath())
		}
	}
	return nil
}

// resolveAlias substitutes a configured alias for target, if one exists.
func resolveAlias(target string) string {
	if cfg != nil && cfg.Aliases != nil {
		if alias, ok := cfg.Aliases[target]; ok {
			return alias
		}
	}
	return target
}

// interruptContext returns a context cancelled on SIGINT/SIGTERM, for
// bounded and unbounded ping runs alike.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rping %s\n", version)
		fmt.Printf("  Commit: %s\n", commit)
		fmt.Printf("  Built:  %s\n", date)
		fmt.Printf("  Config: %s\n", config.GetConfigPath())
	},
}

var (
	configInit bool
	configShow bool
	configPath bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage rping configuration file.

Commands:
  rping config --init     Create default config file
  rping config --show     Print an example configuration
  rping config --path     Show config file path`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&configShow, "show", false, "Print an example configuration (not the loaded one)")
	configCmd.Flags().BoolVar(&configPath, "path", false, "Show config file path")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configPath {
		fmt.Println(config.GetConfigPath())
		return nil
	}

	if configInit {
		path := config.GetConfigPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		c := config.DefaultConfig()
		if err := c.Save(); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}
		fmt.Printf("Created config file: %s\n", path)
		return nil
	}

	if configShow {
		fmt.Println(config.GenerateExample())
		return nil
	}

	return cmd.Help()
}

// initMaxMind opens the local MaxMind databases, downloading them first if
// none are cached yet or the cache has aged past UpdateHours.
func initMaxMind(c *config.Config) (*enrich.MaxMindDB, error) {
	if !c.MaxMind.Enabled || c.MaxMind.LicenseKey == "" {
		return nil, nil
	}

	db, err := enrich.NewMaxMindDB(enrich.MaxMindDBConfig{
		LicenseKey: c.MaxMind.LicenseKey,
		ASNDBPath:  config.GetASNDBPath(),
		GeoDBPath:  config.GetGeoDBPath(),
	})
	if err != nil {
		return nil, err
	}

	if c.MaxMind.UpdateHours > 0 {
		maxAge := time.Duration(c.MaxMind.UpdateHours) * time.Hour
		if db.NeedsUpdate(maxAge) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := db.DownloadDatabases(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to update MaxMind databases: %v\n", err)
			}
		}
	}

	if !db.HasASN() && !db.HasGeo() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := db.DownloadDatabases(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to download MaxMind databases: %w", err)
		}
	}

	return db, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets version information for the CLI.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}
