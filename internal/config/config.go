package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/anisimovdk/cloud-range-blocker/internal/version"
)

var (
	osExit           = os.Exit
	stdOut io.Writer = os.Stdout
)

const (
	defaultCacheDuration = time.Hour
	defaultFetchTimeout  = 60 * time.Second
)

// Config represents the application configuration
type Config struct {
	Block         []string `arg:"-b,--block,separate" help:"Provider whose ranges should be blocked (amazon, google); repeatable"`
	Reset         bool     `arg:"-r,--reset" help:"Flush previously applied firewall rules before blocking"`
	DryRun        bool     `arg:"--dry-run,env:DRY_RUN" help:"Print firewall commands instead of running them"`
	Chain         string   `arg:"--chain,env:FIREWALL_CHAIN" help:"iptables chain to append DROP rules to"`
	RuleName      string   `arg:"--rule-name,env:FIREWALL_RULE_NAME" help:"Rule name used for Windows firewall rules"`
	StrictLengths bool     `arg:"--strict-lengths,env:STRICT_LENGTHS" help:"Reject prefixes longer than /32 (IPv4) or /128 (IPv6)"`
	Dedupe        bool     `arg:"--dedupe,env:DEDUPE" help:"Drop duplicate prefixes within a provider"`
	SnapshotDir   string   `arg:"--snapshot-dir,env:SNAPSHOT_DIR" help:"Download feeds into this directory and read them from disk"`
	FetchTimeout  string   `arg:"--fetch-timeout,env:FETCH_TIMEOUT" help:"Timeout for downloading one feed (e.g., 60s)"`
	LogLevel      string   `arg:"--log-level,env:LOG_LEVEL" help:"Log level (debug, info, warn, error)"`
	Serve         bool     `arg:"--serve,env:SERVE" help:"Serve prefix lists over HTTP instead of blocking"`
	ServerPort    string   `arg:"--port,env:SERVER_PORT" help:"Port to run the server on"`
	AuthToken     string   `arg:"--auth-token,env:AUTH_TOKEN" help:"Authentication token for API requests (leave empty to disable auth)"`
	CacheDuration string   `arg:"--cache-duration,env:CACHE_DURATION" help:"Duration to cache provider ranges (e.g., 24h)"`
	ShowVersion   bool     `arg:"--version,-v" help:"Show version information"`
}

// Version returns the version string for go-arg
func (Config) Version() string {
	return version.GetFullVersion()
}

// Description returns the program description for go-arg
func (Config) Description() string {
	return "Cloud Range Blocker - Blocks or serves the published IP ranges of cloud providers"
}

// NewConfig parses command-line arguments and returns a Config instance
func NewConfig() *Config {
	cfg := &Config{
		Chain:         "OUTPUT",
		RuleName:      "CloudRangeBlocker",
		FetchTimeout:  "60s",
		LogLevel:      "info",
		ServerPort:    "8080",
		AuthToken:     "", // Empty by default = no authentication required
		CacheDuration: "1h",
	}

	arg.MustParse(cfg)

	if cfg.ShowVersion {
		fmt.Fprintln(stdOut, version.GetFullVersion())
		osExit(0)
	}

	for i, provider := range cfg.Block {
		cfg.Block[i] = strings.ToLower(strings.TrimSpace(provider))
	}

	return cfg
}

// CacheTTL returns CacheDuration, falling back to one hour when it does not parse.
func (c *Config) CacheTTL() time.Duration {
	return parseDuration(c.CacheDuration, defaultCacheDuration)
}

// FetchTimeoutDuration returns FetchTimeout, falling back to 60s when it does not parse.
func (c *Config) FetchTimeoutDuration() time.Duration {
	return parseDuration(c.FetchTimeout, defaultFetchTimeout)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
