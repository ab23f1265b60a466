// Package aggregate merges the outcomes of a scan run into a report.
package aggregate

import (
	"time"

	"github.com/michelemendel/haintsec/internal/scan"
)

// Build folds the five stage outcomes into a Report. It never fails: a
// failed stage contributes an empty field and a StageFailure entry.
// Failures are listed in stage order, not completion order.
func Build(req scan.Request, o scan.Outcomes, now time.Time) scan.Report {
	r := scan.Report{
		Target:          req.TargetURL,
		Domain:          req.Domain,
		Subdomains:      orEmpty(o.Subdomains.Data()),
		Vulnerabilities: DedupVulnerabilities(o.Vulnerabilities.Data()),
		Ports:           MergeHosts(o.Ports.Data()),
		TLSIssues:       orEmpty(o.TLS.Data()),
		SQLFindings:     orEmpty(o.SQL.Data()),
		GeneratedAt:     now,
	}

	for _, f := range []func() (scan.StageFailure, bool){
		o.Subdomains.Failure,
		o.Vulnerabilities.Failure,
		o.Ports.Failure,
		o.TLS.Failure,
		o.SQL.Failure,
	} {
		if sf, ok := f(); ok {
			r.Failures = append(r.Failures, sf)
		}
	}
	return r
}

// DedupVulnerabilities drops repeated (kind, detail) pairs, keeping the
// first occurrence of each.
func DedupVulnerabilities(in []scan.Vulnerability) []scan.Vulnerability {
	seen := make(map[scan.Vulnerability]struct{}, len(in))
	out := make([]scan.Vulnerability, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// MergeHosts joins entries for the same host, keeping the order in which
// hosts and ports first appeared.
func MergeHosts(in []scan.HostPorts) []scan.HostPorts {
	index := make(map[string]int, len(in))
	out := make([]scan.HostPorts, 0, len(in))
	for _, h := range in {
		i, ok := index[h.Host]
		if !ok {
			index[h.Host] = len(out)
			out = append(out, scan.HostPorts{Host: h.Host, Ports: append([]scan.PortRecord(nil), h.Ports...)})
			continue
		}
		out[i].Ports = append(out[i].Ports, h.Ports...)
	}
	return out
}

func orEmpty[E any](s []E) []E {
	if s == nil {
		return []E{}
	}
	return s
}
