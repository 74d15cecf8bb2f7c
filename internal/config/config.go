package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/BioHazard786/pastedrop/internal/dns"
)

// Default configuration values
const (
	DefaultSTUN      = "stun:stun.l.google.com:19302"
	DefaultOutputDir = "."
)

// Config holds application configuration
type Config struct {
	// STUNServer is the single ICE server used for candidate gathering
	STUNServer string

	// OutputDir is where received files are written
	OutputDir string

	// StatusAddr is the listen address of the websocket status feed, empty disables it
	StatusAddr string

	// Compact selects the short paste form for printed descriptors
	Compact bool

	// ResolveSTUN pre-resolves the STUN host, falling back to public DNS
	ResolveSTUN bool
}

// Options for loading config with CLI flag overrides
type Options struct {
	STUNServer  string
	OutputDir   string
	StatusAddr  string
	Compact     bool
	ResolveSTUN bool
}

// lookup is swapped in tests
var lookup = dns.Lookup

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		STUNServer:  pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		OutputDir:   pick(opts.OutputDir, "PASTEDROP_OUTPUT_DIR", DefaultOutputDir),
		StatusAddr:  pick(opts.StatusAddr, "PASTEDROP_STATUS_ADDR", ""),
		Compact:     opts.Compact || envBool("PASTEDROP_COMPACT"),
		ResolveSTUN: opts.ResolveSTUN,
	}

	if !strings.HasPrefix(cfg.STUNServer, "stun:") && !strings.HasPrefix(cfg.STUNServer, "stuns:") {
		return nil, fmt.Errorf("invalid STUN server %q: expected stun: or stuns: scheme", cfg.STUNServer)
	}

	info, err := os.Stat(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("output directory %s: %w", cfg.OutputDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("output directory %s: not a directory", cfg.OutputDir)
	}

	return cfg, nil
}

// GetSTUNServers returns STUN server URLs as strings.
// With ResolveSTUN set the host part is replaced by its resolved address;
// a failed lookup keeps the hostname and lets ICE try on its own.
func (c *Config) GetSTUNServers() []string {
	if !c.ResolveSTUN {
		return []string{c.STUNServer}
	}

	scheme, hostport, _ := strings.Cut(c.STUNServer, ":")
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, "3478"
	}
	if net.ParseIP(host) != nil {
		return []string{c.STUNServer}
	}

	ip, err := lookup(host)
	if err != nil {
		slog.Warn("STUN host lookup failed", "host", host, "err", err)
		return []string{c.STUNServer}
	}
	return []string{scheme + ":" + net.JoinHostPort(ip, port)}
}

func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func envBool(env string) bool {
	switch strings.ToLower(os.Getenv(env)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
