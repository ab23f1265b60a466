package pipeline

import (
	"context"
	"log/slog"

	"github.com/michelemendel/haintsec/internal/probes/tlscheck"
	"github.com/michelemendel/haintsec/internal/probes/webvuln"
	"github.com/michelemendel/haintsec/internal/scan"
	"github.com/michelemendel/haintsec/internal/scanners/nmap"
	"github.com/michelemendel/haintsec/internal/scanners/sqlmap"
	"github.com/michelemendel/haintsec/internal/scanners/sublist3r"
)

// Stages holds the work function of every stage. Each receives the run's
// request and reports data or an error; the activities turn that into an
// Outcome.
type Stages struct {
	Subdomains      func(context.Context, scan.Request) ([]string, error)
	Vulnerabilities func(context.Context, scan.Request) ([]scan.Vulnerability, error)
	Ports           func(context.Context, scan.Request) ([]scan.HostPorts, error)
	TLS             func(context.Context, scan.Request) ([]scan.TLSIssue, error)
	SQL             func(context.Context, scan.Request) ([]string, error)
}

// Options configures the concrete stages. Tool paths and the proxy come
// from the request, not from here.
type Options struct {
	Nmap    nmap.Config
	SQLMap  sqlmap.Config
	TLS     tlscheck.Config
	Web     webvuln.Config
	TempDir string

	// OnLine, when set, receives every stdout line of the external tools.
	OnLine func(scan.Stage, string)
}

// NewStages wires the adapters and probes.
func NewStages(opts Options, logger *slog.Logger) Stages {
	if logger == nil {
		logger = slog.Default()
	}
	lines := func(stage scan.Stage) func(string) {
		if opts.OnLine == nil {
			return nil
		}
		return func(l string) { opts.OnLine(stage, l) }
	}

	return Stages{
		Subdomains: func(ctx context.Context, req scan.Request) ([]string, error) {
			s := sublist3r.NewScanner(sublist3r.Config{Path: req.Tools.SubdomainTool, TempDir: opts.TempDir},
				logger.With("stage", scan.StageSubdomains), lines(scan.StageSubdomains))
			return s.Enumerate(ctx, req.Domain, req.RunID)
		},
		Vulnerabilities: func(ctx context.Context, req scan.Request) ([]scan.Vulnerability, error) {
			cfg := opts.Web
			cfg.Proxy = req.Proxy
			p, err := webvuln.NewProber(cfg, logger.With("stage", scan.StageVulnerabilities))
			if err != nil {
				return nil, err
			}
			return p.Probe(ctx, req.TargetURL)
		},
		Ports: func(ctx context.Context, req scan.Request) ([]scan.HostPorts, error) {
			cfg := opts.Nmap
			cfg.Path = req.Tools.PortScanner
			s := nmap.NewScanner(cfg, logger.With("stage", scan.StagePorts), lines(scan.StagePorts))
			return s.Scan(ctx, req.Host)
		},
		TLS: func(ctx context.Context, req scan.Request) ([]scan.TLSIssue, error) {
			p := tlscheck.NewProber(opts.TLS, logger.With("stage", scan.StageTLS))
			return p.Check(ctx, req.Host)
		},
		SQL: func(ctx context.Context, req scan.Request) ([]string, error) {
			cfg := opts.SQLMap
			cfg.Path = req.Tools.SQLTool
			cfg.Proxy = req.Proxy
			s := sqlmap.NewScanner(cfg, logger.With("stage", scan.StageSQL), lines(scan.StageSQL))
			return s.Test(ctx, req.TargetURL)
		},
	}
}
