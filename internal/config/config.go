// Package config loads the haintsec configuration and turns a target URL
// into a validated scan.Request.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/michelemendel/haintsec/internal/probes/tlscheck"
)

// DefaultFile is the configuration file read when none is given.
const DefaultFile = "haintsec.yaml"

// Config represents the application configuration.
type Config struct {
	OutputDir       string        `yaml:"output_dir"`
	LogFile         string        `yaml:"log_file"`
	TimeoutPerStage time.Duration `yaml:"timeout_per_stage"`
	Proxy           string        `yaml:"proxy"`        // http, https or socks5 URL
	MetricsFile     string        `yaml:"metrics_file"` // Prometheus textfile, optional

	Tools      ToolsConfig      `yaml:"tools"`
	Nmap       NmapConfig       `yaml:"nmap"`
	SQLMap     SQLMapConfig     `yaml:"sqlmap"`
	Subdomains SubdomainsConfig `yaml:"subdomains"`
	TLS        TLSConfig        `yaml:"tls"`
	Web        WebConfig        `yaml:"web"`
}

// ToolsConfig names the external executables, either bare names looked up
// in PATH or paths.
type ToolsConfig struct {
	Nmap      string `yaml:"nmap"`
	Sublist3r string `yaml:"sublist3r"`
	SQLMap    string `yaml:"sqlmap"`
	PDF       string `yaml:"pdf"` // accepted for compatibility, the PDF is rendered in-process
}

type NmapConfig struct {
	Ports    string `yaml:"ports"`
	Speed    string `yaml:"speed"`    // timing template, e.g. -T4
	Protocol string `yaml:"protocol"` // tcp or udp
}

type SQLMapConfig struct {
	Level     int      `yaml:"level"`
	ExtraArgs []string `yaml:"extra_args"`
}

type SubdomainsConfig struct {
	// RegistrableDomain enumerates the registrable domain (eTLD+1) instead
	// of the URL host.
	RegistrableDomain bool `yaml:"registrable_domain"`
}

type TLSConfig struct {
	Port               int           `yaml:"port"`
	Timeout            time.Duration `yaml:"timeout"`
	Fingerprint        string        `yaml:"fingerprint"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
}

type WebConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second
	MaxForms  int           `yaml:"max_forms"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		OutputDir:       "reports",
		LogFile:         "haintsec.log",
		TimeoutPerStage: 30 * time.Minute,
		Tools: ToolsConfig{
			Nmap:      "nmap",
			Sublist3r: "sublist3r",
			SQLMap:    "sqlmap",
		},
		Nmap:   NmapConfig{Ports: "1-65535", Speed: "-T4", Protocol: "tcp"},
		SQLMap: SQLMapConfig{Level: 2},
		TLS:    TLSConfig{Port: 443, Timeout: 10 * time.Second, Fingerprint: "golang"},
		Web:    WebConfig{Timeout: 15 * time.Second, RateLimit: 5, MaxForms: 10},
	}
}

// Load reads path over the defaults. A missing file yields the defaults;
// unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values a run depends on.
func (c Config) Validate() error {
	var problems []string
	if c.OutputDir == "" {
		problems = append(problems, "output_dir is empty")
	}
	if c.TimeoutPerStage <= 0 {
		problems = append(problems, "timeout_per_stage must be positive")
	}
	if c.Tools.Nmap == "" || c.Tools.Sublist3r == "" || c.Tools.SQLMap == "" {
		problems = append(problems, "tools.nmap, tools.sublist3r and tools.sqlmap must be set")
	}
	if c.Nmap.Protocol != "tcp" && c.Nmap.Protocol != "udp" {
		problems = append(problems, fmt.Sprintf("nmap.protocol %q is not tcp or udp", c.Nmap.Protocol))
	}
	if c.SQLMap.Level < 1 || c.SQLMap.Level > 5 {
		problems = append(problems, fmt.Sprintf("sqlmap.level %d is outside 1-5", c.SQLMap.Level))
	}
	if _, ok := tlscheck.Fingerprints[c.TLS.Fingerprint]; !ok {
		problems = append(problems, fmt.Sprintf("tls.fingerprint %q is unknown", c.TLS.Fingerprint))
	}
	if c.TLS.Port <= 0 || c.TLS.Port > 65535 {
		problems = append(problems, fmt.Sprintf("tls.port %d is out of range", c.TLS.Port))
	}
	if c.Web.RateLimit <= 0 {
		problems = append(problems, "web.rate_limit must be positive")
	}
	if c.Proxy != "" {
		if err := validateProxy(c.Proxy); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func validateProxy(raw string) error {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("proxy: %v", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return fmt.Errorf("proxy scheme %q is not supported", u.Scheme)
	}
	if u.Hostname() == "" {
		return errors.New("proxy URL has no host")
	}
	return nil
}
