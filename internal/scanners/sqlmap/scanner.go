// Package sqlmap wraps sqlmap. Its output is passed through as ordered
// diagnostic lines; no structured parsing is attempted.
package sqlmap

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/michelemendel/haintsec/internal/toolexec"
)

// Config controls the sqlmap invocation.
type Config struct {
	Path      string   // executable, default "sqlmap"
	Level     int      // --level, default 2
	Proxy     string   // optional --proxy
	ExtraArgs []string // appended verbatim
}

// Scanner runs sqlmap.
type Scanner struct {
	cfg    Config
	logger *slog.Logger
	onLine func(string)
}

// NewScanner creates a Scanner. logger may be nil.
func NewScanner(cfg Config, logger *slog.Logger, onLine func(string)) *Scanner {
	if cfg.Path == "" {
		cfg.Path = "sqlmap"
	}
	if cfg.Level <= 0 {
		cfg.Level = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{cfg: cfg, logger: logger, onLine: onLine}
}

// Args returns the sqlmap arguments for targetURL.
func (s *Scanner) Args(targetURL string) []string {
	args := []string{"-u", targetURL, "--batch", "--level=" + strconv.Itoa(s.cfg.Level)}
	if s.cfg.Proxy != "" {
		args = append(args, "--proxy="+s.cfg.Proxy)
	}
	return append(args, s.cfg.ExtraArgs...)
}

// Test runs sqlmap against targetURL and returns its trimmed, non-blank
// output lines in order.
func (s *Scanner) Test(ctx context.Context, targetURL string) ([]string, error) {
	s.logger.Info("sql injection test started", "url", targetURL, "level", s.cfg.Level)

	res, err := toolexec.Run(ctx, toolexec.Command{
		Path:   s.cfg.Path,
		Args:   s.Args(targetURL),
		OnLine: s.onLine,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlmap: %w", err)
	}

	lines := Passthrough(res.Lines)
	s.logger.Info("sql injection test completed", "url", targetURL, "lines", len(lines), "duration", res.Duration)
	return lines, nil
}

// Passthrough trims each line and drops blank ones.
func Passthrough(raw []string) []string {
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
