package config

import (
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/michelemendel/haintsec/internal/scan"
)

// schemePrefix matches a leading "scheme://". A "://" later in the URL,
// e.g. inside a query string, does not count.
var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// NormalizeURL trims raw and prepends https:// when no scheme is given.
// added reports whether the scheme was added.
func NormalizeURL(raw string) (normalized string, added bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("%w: target URL", ErrMissingRequired)
	}
	if !schemePrefix.MatchString(raw) {
		raw = "https://" + raw
		added = true
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("%w: target URL: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false, fmt.Errorf("%w: target URL scheme %q is not http or https", ErrInvalidConfig, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", false, fmt.Errorf("%w: target URL %q has no host", ErrInvalidConfig, raw)
	}
	return u.String(), added, nil
}

// BuildRequest validates rawURL and assembles the request for one run.
// Tool names are kept as configured; ResolveTools swaps in absolute paths.
func BuildRequest(cfg Config, rawURL, runID string) (scan.Request, error) {
	target, _, err := NormalizeURL(rawURL)
	if err != nil {
		return scan.Request{}, err
	}
	u, _ := url.Parse(target)
	host := u.Hostname()

	if runID == "" {
		runID = uuid.NewString()
	}
	return scan.Request{
		TargetURL: target,
		Host:      host,
		Domain:    enumerationDomain(host, cfg.Subdomains.RegistrableDomain),
		Tools: scan.Tools{
			PortScanner:   cfg.Tools.Nmap,
			SubdomainTool: cfg.Tools.Sublist3r,
			SQLTool:       cfg.Tools.SQLMap,
			PDFTool:       cfg.Tools.PDF,
		},
		TimeoutPerStage: cfg.TimeoutPerStage,
		RunID:           runID,
		Proxy:           cfg.Proxy,
	}, nil
}

// enumerationDomain returns host, or its registrable domain when asked.
// Hosts without one (IP addresses, bare suffixes) are returned unchanged.
func enumerationDomain(host string, registrable bool) string {
	if !registrable || net.ParseIP(host) != nil {
		return host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(host))
	if err != nil {
		return host
	}
	return d
}

// ToolStatus represents the availability of one external tool.
type ToolStatus struct {
	Name      string
	Available bool
	Path      string
}

// CheckTool resolves a tool name or path.
func CheckTool(name string) ToolStatus {
	path, err := exec.LookPath(name)
	if err != nil {
		return ToolStatus{Name: name}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return ToolStatus{Name: name, Available: true, Path: path}
}

// ResolveTools checks every external tool and returns tools with the
// found ones replaced by absolute paths. Missing tools keep their name so
// the stage that needs them fails with ToolNotFound.
func ResolveTools(tools scan.Tools) (scan.Tools, []ToolStatus) {
	resolve := func(name string) (string, ToolStatus) {
		st := CheckTool(name)
		if st.Available {
			return st.Path, st
		}
		return name, st
	}

	var statuses []ToolStatus
	var st ToolStatus
	tools.PortScanner, st = resolve(tools.PortScanner)
	statuses = append(statuses, st)
	tools.SubdomainTool, st = resolve(tools.SubdomainTool)
	statuses = append(statuses, st)
	tools.SQLTool, st = resolve(tools.SQLTool)
	statuses = append(statuses, st)
	return tools, statuses
}
