// Package config provides configuration file support for rping.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the rping configuration file structure.
type Config struct {
	// Defaults are applied when flags are not specified
	Defaults Defaults `yaml:"defaults"`

	// Aliases for common targets
	Aliases map[string]string `yaml:"aliases,omitempty"`

	// MaxMind holds settings for offline GeoLite2 enrichment databases
	MaxMind MaxMindConfig `yaml:"maxmind"`
}

// MaxMindConfig holds settings for the optional local MaxMind GeoLite2
// databases used by offline ASN/GeoIP enrichment.
type MaxMindConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LicenseKey  string `yaml:"license_key"`
	UpdateHours int    `yaml:"update_hours"`
}

// Defaults holds default values shared by the ping and trace commands.
type Defaults struct {
	// Output mode
	TUI     bool `yaml:"tui"`
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
	CSV     bool `yaml:"csv"`
	NoColor bool `yaml:"no_color"`

	// Probe parameters, shared between ping and trace
	Count     int           `yaml:"count"`
	Interval  time.Duration `yaml:"interval"`
	Timeout   time.Duration `yaml:"timeout"`
	TTL       int           `yaml:"ttl"`
	Size      int           `yaml:"size"`
	Broadcast bool          `yaml:"broadcast"`
	DontRoute bool          `yaml:"dont_route"`

	// Trace-only parameters
	MaxHops  int `yaml:"max_hops"`
	FirstHop int `yaml:"first_hop"`

	// Enrichment
	Enrichment EnrichmentConfig `yaml:"enrichment"`
}

// EnrichmentConfig holds enrichment settings.
type EnrichmentConfig struct {
	Enabled bool `yaml:"enabled"`
	RDNS    bool `yaml:"rdns"`
	ASN     bool `yaml:"asn"`
	GeoIP   bool `yaml:"geoip"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Defaults: Defaults{
			TUI:      false,
			Verbose:  false,
			JSON:     false,
			CSV:      false,
			NoColor:  false,
			Count:    0,
			Interval: time.Second,
			Timeout:  3 * time.Second,
			TTL:      64,
			Size:     56,
			MaxHops:  30,
			FirstHop: 1,
			Enrichment: EnrichmentConfig{
				Enabled: true,
				RDNS:    true,
				ASN:     true,
				GeoIP:   true,
			},
		},
		Aliases: make(map[string]string),
	}
}

// Load reads configuration from the default config file locations.
// It searches in order:
//  1. ./rping.yaml (current directory)
//  2. ~/.config/rping/config.yaml (Linux/macOS)
//  3. %APPDATA%\rping\config.yaml (Windows)
//
// If no config file is found, returns default configuration.
func Load() (*Config, error) {
	paths := getConfigPaths()

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return LoadFrom(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save writes the configuration to the default user config path.
func (c *Config) Save() error {
	return c.SaveTo(getUserConfigPath())
}

// SaveTo writes the configuration to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// getConfigPaths returns the list of config file paths to search.
func getConfigPaths() []string {
	paths := []string{
		"rping.yaml",
		"rping.yml",
		".rping.yaml",
		".rping.yml",
	}

	if userPath := getUserConfigPath(); userPath != "" {
		paths = append(paths, userPath)
	}

	return paths
}

// getUserConfigPath returns the user-specific config file path.
func getUserConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "rping", "config.yaml")
		}
	default: // Linux, macOS, etc.
		home, err := os.UserHomeDir()
		if err == nil {
			if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
				return filepath.Join(xdgConfig, "rping", "config.yaml")
			}
			return filepath.Join(home, ".config", "rping", "config.yaml")
		}
	}
	return ""
}

// GetConfigPath returns the path where user config would be saved.
func GetConfigPath() string {
	return getUserConfigPath()
}

// getDataDir returns the directory rping stores downloaded enrichment
// databases in. It does not create the directory.
func getDataDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "rping")
		}
	default:
		home, err := os.UserHomeDir()
		if err == nil {
			if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
				return filepath.Join(xdgData, "rping")
			}
			return filepath.Join(home, ".local", "share", "rping")
		}
	}
	return "."
}

// GetASNDBPath returns the on-disk path of the cached MaxMind ASN database.
func GetASNDBPath() string {
	return filepath.Join(getDataDir(), "GeoLite2-ASN.mmdb")
}

// GetGeoDBPath returns the on-disk path of the cached MaxMind City database.
func GetGeoDBPath() string {
	return filepath.Join(getDataDir(), "GeoLite2-City.mmdb")
}

// GenerateExample generates an example configuration file content.
func GenerateExample() string {
	return `# rping Configuration File
# Location: ~/.config/rping/config.yaml (Linux/macOS)
#           %APPDATA%\rping\config.yaml (Windows)
#           ./rping.yaml (current directory)

defaults:
  # Output mode (only one should be true)
  tui: false              # Interactive TUI mode
  verbose: false          # Detailed table output
  json: false             # JSON output
  csv: false              # CSV output
  no_color: false         # Disable colors

  # Probe parameters
  count: 0                # Number of probes to send (0 = until interrupted, at most 65536)
  interval: 1s            # Gap between probes
  timeout: 3s             # Per-probe timeout
  ttl: 64                 # Outgoing TTL / hop limit
  size: 56                # ICMP payload size in bytes
  broadcast: false        # Allow pinging a broadcast address
  dont_route: false       # Bypass the routing table (SO_DONTROUTE)

  # Trace-only parameters
  max_hops: 30            # Maximum number of hops
  first_hop: 1            # Checked against max_hops; tracing always starts at TTL 1

  # Enrichment settings (trace only)
  enrichment:
    enabled: true         # Master switch for all enrichment
    rdns: true            # Reverse DNS lookups
    asn: true             # ASN lookups
    geoip: true           # GeoIP lookups

# Target aliases (optional)
aliases:
  dns: 8.8.8.8
  cf: 1.1.1.1
  google: google.com

# Offline MaxMind GeoLite2 enrichment (optional, requires a free license key)
maxmind:
  enabled: false
  license_key: ""
  update_hours: 168
`
}
