// Package sublist3r wraps the sublist3r subdomain enumerator. The tool only
// writes results to a file, so every run hands off through a temp file that
// is removed on all exit paths.
package sublist3r

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/michelemendel/haintsec/internal/scan"
	"github.com/michelemendel/haintsec/internal/toolexec"
)

// Config controls the sublist3r invocation.
type Config struct {
	Path    string // executable, default "sublist3r"
	TempDir string // directory for the handoff file, default os.TempDir()
}

// Scanner enumerates subdomains.
type Scanner struct {
	cfg    Config
	logger *slog.Logger
	onLine func(string)
}

// NewScanner creates a Scanner. logger may be nil.
func NewScanner(cfg Config, logger *slog.Logger, onLine func(string)) *Scanner {
	if cfg.Path == "" {
		cfg.Path = "sublist3r"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{cfg: cfg, logger: logger, onLine: onLine}
}

// Enumerate runs sublist3r for domain. runID makes the handoff file name
// unique across concurrent runs.
func (s *Scanner) Enumerate(ctx context.Context, domain, runID string) ([]string, error) {
	if domain == "" {
		return nil, scan.Errorf(scan.ReasonParseError, "no domain to enumerate")
	}
	s.logger.Info("subdomain enumeration started", "domain", domain)

	tmp, err := os.CreateTemp(s.cfg.TempDir, "haintsec-subdomains-"+runID+"-*.txt")
	if err != nil {
		return nil, scan.Wrap(scan.ReasonToolExecutionError, fmt.Errorf("create handoff file: %w", err))
	}
	outputFile := tmp.Name()
	tmp.Close()
	defer os.Remove(outputFile)

	res, err := toolexec.Run(ctx, toolexec.Command{
		Path:   s.cfg.Path,
		Args:   []string{"-d", domain, "-o", outputFile},
		OnLine: s.onLine,
	})
	if err != nil {
		return nil, fmt.Errorf("sublist3r: %w", err)
	}

	subdomains, err := readSubdomains(outputFile)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subdomain enumeration completed", "domain", domain, "subdomains", len(subdomains), "duration", res.Duration)
	return subdomains, nil
}

// readSubdomains reads one subdomain per line. A missing file means the
// tool found nothing.
func readSubdomains(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, scan.Wrap(scan.ReasonParseError, fmt.Errorf("open sublist3r output: %w", err))
	}
	defer f.Close()

	subdomains, err := ParseLines(f)
	if err != nil {
		return nil, scan.Wrap(scan.ReasonParseError, fmt.Errorf("read sublist3r output: %w", err))
	}
	return subdomains, nil
}

// ParseLines returns the trimmed, non-blank lines of r in order.
func ParseLines(r io.Reader) ([]string, error) {
	subdomains := []string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			subdomains = append(subdomains, line)
		}
	}
	return subdomains, sc.Err()
}
