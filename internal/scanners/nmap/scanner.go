// Package nmap wraps the nmap port scanner.
package nmap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/michelemendel/haintsec/internal/scan"
	"github.com/michelemendel/haintsec/internal/toolexec"
)

// Config controls the nmap invocation.
type Config struct {
	Path     string        // executable, default "nmap"
	Ports    string        // port range, default "1-65535"
	Speed    string        // timing template flag, default "-T4"
	Protocol scan.Protocol // protocol kept in results, default tcp
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = "nmap"
	}
	if c.Ports == "" {
		c.Ports = "1-65535"
	}
	if c.Speed == "" {
		c.Speed = "-T4"
	}
	if c.Protocol == "" {
		c.Protocol = scan.ProtocolTCP
	}
	return c
}

// Scanner runs port scans.
type Scanner struct {
	cfg    Config
	logger *slog.Logger
	onLine func(string)
}

// NewScanner creates a Scanner. logger may be nil. onLine, if set, receives
// nmap's raw output lines.
func NewScanner(cfg Config, logger *slog.Logger, onLine func(string)) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{cfg: cfg.withDefaults(), logger: logger, onLine: onLine}
}

// Args returns the nmap arguments for host. XML goes to stdout.
func (s *Scanner) Args(host string) []string {
	args := []string{"-oX", "-", "-p", s.cfg.Ports}
	if s.cfg.Protocol == scan.ProtocolUDP {
		args = append(args, "-sU")
	}
	if s.cfg.Speed != "" {
		args = append(args, strings.Fields(s.cfg.Speed)...)
	}
	return append(args, host)
}

// Scan port-scans host and returns its port records grouped by scanned
// address.
func (s *Scanner) Scan(ctx context.Context, host string) ([]scan.HostPorts, error) {
	if host == "" {
		return nil, scan.Errorf(scan.ReasonParseError, "no host to scan")
	}
	s.logger.Info("port scan started", "host", host, "ports", s.cfg.Ports, "protocol", s.cfg.Protocol)

	res, err := toolexec.Run(ctx, toolexec.Command{
		Path:   s.cfg.Path,
		Args:   s.Args(host),
		OnLine: s.onLine,
	})
	if err != nil {
		return nil, fmt.Errorf("nmap: %w", err)
	}

	run, err := ParseXML([]byte(res.Output()))
	if err != nil {
		return nil, err
	}
	hosts := Records(run, s.cfg.Protocol)
	s.logger.Info("port scan completed", "host", host, "hosts", len(hosts), "ports", scan.PortCount(hosts), "duration", res.Duration)
	return hosts, nil
}
