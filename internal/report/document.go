// Package report renders a scan.Report as a Markdown document and a PDF
// export derived from the same document model.
package report

import (
	"fmt"
	"strings"

	"github.com/michelemendel/haintsec/internal/scan"
)

// Recommendations shown under an empty section.
const (
	InsightSubdomains      = "Consider performing subdomain enumeration to uncover potential attack vectors."
	InsightVulnerabilities = "Regularly scan and patch web applications to prevent exploitation of common vulnerabilities."
	InsightPorts           = "Ensure unnecessary ports are closed and services are properly firewalled."
	InsightTLS             = "Verify that TLS certificates are valid, current, and issued by a trusted authority."
	InsightSQL             = "Use parameterized queries and input validation to mitigate SQL injection risks."
)

// Document is the format-neutral layout of a report. Every renderer works
// from a Document, never from the scan data directly.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
}

// Section is one heading and its paragraphs. An empty section carries the
// "No <category> found." line and a recommendation instead.
type Section struct {
	Heading    string
	Paragraphs []Paragraph
	EmptyLine  string
	Insight    string
}

// Empty reports whether the section has no entries.
func (s Section) Empty() bool { return len(s.Paragraphs) == 0 }

// Paragraph is a block of lines rendered together.
type Paragraph struct {
	Lines []string
}

func para(lines ...string) Paragraph { return Paragraph{Lines: lines} }

func section(heading, category, insight string, paragraphs []Paragraph) Section {
	s := Section{Heading: heading, Paragraphs: paragraphs}
	if s.Empty() {
		s.EmptyLine = fmt.Sprintf("No %s found.", category)
		s.Insight = insight
	}
	return s
}

// NewDocument lays out r. The five category sections always appear in the
// same order; a Stage Errors section follows only when a stage failed.
func NewDocument(r scan.Report) Document {
	doc := Document{
		Title:    "Vulnerability Report for " + r.Domain,
		Subtitle: fmt.Sprintf("Target: %s | Generated: %s", r.Target, r.GeneratedAt.Format("2006-01-02 15:04:05 MST")),
	}

	var subs []Paragraph
	for _, s := range r.Subdomains {
		subs = append(subs, para(s))
	}

	var vulns []Paragraph
	for _, v := range r.Vulnerabilities {
		vulns = append(vulns, para(fmt.Sprintf("Type: %s - Detail: %s", v.Kind, v.Detail)))
	}

	var ports []Paragraph
	for _, h := range r.Ports {
		lines := []string{"Host: " + h.Host}
		for _, p := range h.Ports {
			lines = append(lines, PortLine(p))
		}
		ports = append(ports, para(lines...))
	}

	var tls []Paragraph
	for _, i := range r.TLSIssues {
		tls = append(tls, para(i.Message))
	}

	var sql []Paragraph
	for _, l := range r.SQLFindings {
		sql = append(sql, para(l))
	}

	doc.Sections = []Section{
		section("Subdomains Identified", "subdomains", InsightSubdomains, subs),
		section("Vulnerabilities Found", "vulnerabilities", InsightVulnerabilities, vulns),
		section("Open Ports", "open ports", InsightPorts, ports),
		section("SSL Issues", "SSL/TLS issues", InsightTLS, tls),
		section("SQLMap Results", "SQLMap results", InsightSQL, sql),
	}

	if len(r.Failures) > 0 {
		errs := Section{Heading: "Stage Errors"}
		for _, f := range r.Failures {
			errs.Paragraphs = append(errs.Paragraphs, para(fmt.Sprintf("%s: %s: %s", f.Stage, f.Reason, f.Detail)))
		}
		doc.Sections = append(doc.Sections, errs)
	}
	return doc
}

// PortLine formats one port record as "port/proto state service product version".
func PortLine(p scan.PortRecord) string {
	fields := []string{
		fmt.Sprintf("%d/%s", p.Port, p.Protocol),
		string(p.State),
		orNA(p.ServiceName),
		orNA(p.Product),
		orNA(p.Version),
	}
	line := strings.Join(fields, " ")
	if p.ExtraInfo != "" && p.ExtraInfo != scan.NotAvailable {
		line += " (" + p.ExtraInfo + ")"
	}
	return line
}

func orNA(s string) string {
	if s == "" {
		return scan.NotAvailable
	}
	return s
}
