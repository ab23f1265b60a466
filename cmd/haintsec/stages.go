package main

import (
	"github.com/michelemendel/haintsec/internal/config"
	"github.com/michelemendel/haintsec/internal/pipeline"
	"github.com/michelemendel/haintsec/internal/probes/tlscheck"
	"github.com/michelemendel/haintsec/internal/probes/webvuln"
	"github.com/michelemendel/haintsec/internal/scan"
	"github.com/michelemendel/haintsec/internal/scanners/nmap"
	"github.com/michelemendel/haintsec/internal/scanners/sqlmap"
)

// stageOptions maps the configuration onto the stage implementations.
func stageOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		Nmap: nmap.Config{
			Ports:    cfg.Nmap.Ports,
			Speed:    cfg.Nmap.Speed,
			Protocol: scan.Protocol(cfg.Nmap.Protocol),
		},
		SQLMap: sqlmap.Config{
			Level:     cfg.SQLMap.Level,
			ExtraArgs: cfg.SQLMap.ExtraArgs,
		},
		TLS: tlscheck.Config{
			Port:               cfg.TLS.Port,
			Timeout:            cfg.TLS.Timeout,
			Fingerprint:        cfg.TLS.Fingerprint,
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		},
		Web: webvuln.Config{
			Timeout:   cfg.Web.Timeout,
			RateLimit: cfg.Web.RateLimit,
			MaxForms:  cfg.Web.MaxForms,
			UserAgent: "haintsec/" + version,
		},
	}
}
