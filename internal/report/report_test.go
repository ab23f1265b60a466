package report

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michelemendel/haintsec/internal/scan"
)

var generated = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func emptyReport() scan.Report {
	return scan.Report{
		Target:          "https://example.com",
		Domain:          "example.com",
		Subdomains:      []string{},
		Vulnerabilities: []scan.Vulnerability{},
		Ports:           []scan.HostPorts{},
		TLSIssues:       []scan.TLSIssue{},
		SQLFindings:     []string{},
		GeneratedAt:     generated,
	}
}

func fullReport() scan.Report {
	r := emptyReport()
	r.Subdomains = []string{"www.example.com", "api.example.com"}
	r.Vulnerabilities = []scan.Vulnerability{{Kind: "XSS", Detail: "form X"}}
	r.Ports = []scan.HostPorts{{Host: "1.2.3.4", Ports: []scan.PortRecord{
		{Host: "1.2.3.4", Port: 80, Protocol: scan.ProtocolTCP, State: scan.PortOpen, ServiceName: "http", Product: "N/A", Version: "N/A", ExtraInfo: "N/A"},
		{Host: "1.2.3.4", Port: 443, Protocol: scan.ProtocolTCP, State: scan.PortOpen, ServiceName: "https", Product: "nginx", Version: "1.25.3", ExtraInfo: "Ubuntu"},
	}}}
	r.TLSIssues = []scan.TLSIssue{{Category: scan.TLSExpired, Message: "certificate expired"}}
	r.SQLFindings = []string{"[INFO] testing 'AND boolean-based blind'"}
	return r
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "example.com_vulnerability_report_20240102_030405.md", FileName("example.com", generated, "md"))
	assert.Equal(t, "example.com_vulnerability_report_20240102_030405.pdf", FileName("example.com", generated, "pdf"))
}

func TestSanitizeDomain(t *testing.T) {
	tests := map[string]string{
		"example.com":           "example.com",
		"https://example.com/":  "example.com",
		"example.com:8443":      "example.com_8443",
		"../../etc/passwd":      "etc_passwd",
		"":                      "target",
		"sub.example.co.uk/a/b": "sub.example.co.uk_a_b",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeDomain(in), in)
	}
}

func TestNewDocument_EmptySectionsCarryInsights(t *testing.T) {
	doc := NewDocument(emptyReport())
	require.Len(t, doc.Sections, 5)

	want := []struct{ heading, empty, insight string }{
		{"Subdomains Identified", "No subdomains found.", InsightSubdomains},
		{"Vulnerabilities Found", "No vulnerabilities found.", InsightVulnerabilities},
		{"Open Ports", "No open ports found.", InsightPorts},
		{"SSL Issues", "No SSL/TLS issues found.", InsightTLS},
		{"SQLMap Results", "No SQLMap results found.", InsightSQL},
	}
	for i, w := range want {
		s := doc.Sections[i]
		assert.Equal(t, w.heading, s.Heading)
		assert.True(t, s.Empty())
		assert.Equal(t, w.empty, s.EmptyLine)
		assert.Equal(t, w.insight, s.Insight)
	}
	assert.Equal(t, "Consider performing subdomain enumeration to uncover potential attack vectors.", InsightSubdomains)
}

func TestNewDocument_Entries(t *testing.T) {
	doc := NewDocument(fullReport())
	require.Len(t, doc.Sections, 5)

	assert.Equal(t, "Vulnerability Report for example.com", doc.Title)
	assert.Len(t, doc.Sections[0].Paragraphs, 2)
	assert.Equal(t, []string{"Type: XSS - Detail: form X"}, doc.Sections[1].Paragraphs[0].Lines)
	assert.Equal(t, []string{
		"Host: 1.2.3.4",
		"80/tcp open http N/A N/A",
		"443/tcp open https nginx 1.25.3 (Ubuntu)",
	}, doc.Sections[2].Paragraphs[0].Lines)
	assert.Equal(t, []string{"certificate expired"}, doc.Sections[3].Paragraphs[0].Lines)
	for _, s := range doc.Sections {
		assert.Empty(t, s.Insight)
	}
}

func TestNewDocument_StageErrors(t *testing.T) {
	r := emptyReport()
	r.Failures = []scan.StageFailure{{Stage: scan.StagePorts, Reason: scan.ReasonToolNotFound, Detail: "nmap not found"}}

	doc := NewDocument(r)
	require.Len(t, doc.Sections, 6)
	assert.Equal(t, "Stage Errors", doc.Sections[5].Heading)
	assert.Equal(t, []string{"ports: ToolNotFound: nmap not found"}, doc.Sections[5].Paragraphs[0].Lines)
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, NewDocument(fullReport())))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Vulnerability Report for example.com\n"))
	assert.Contains(t, out, "## Subdomains Identified\n\nwww.example.com\n\napi.example.com\n")
	assert.Contains(t, out, "Host: 1.2.3.4  \n80/tcp open http N/A N/A  \n443/tcp")
	assert.Less(t, strings.Index(out, "## Open Ports"), strings.Index(out, "## SSL Issues"))
	assert.NotContains(t, out, "Stage Errors")
}

func TestWriteMarkdown_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, NewDocument(emptyReport())))
	out := buf.String()

	for _, line := range []string{
		"No subdomains found.", InsightSubdomains,
		"No vulnerabilities found.", InsightVulnerabilities,
		"No open ports found.", InsightPorts,
		"No SSL/TLS issues found.", InsightTLS,
		"No SQLMap results found.", InsightSQL,
	} {
		assert.Contains(t, out, line)
	}
	assert.Contains(t, out, "No subdomains found.\n\n> "+InsightSubdomains)
}

func TestWriteMarkdown_EntriesStayLiteral(t *testing.T) {
	r := emptyReport()
	r.Vulnerabilities = []scan.Vulnerability{{Kind: "Version Disclosure", Detail: "Server: <img src=x onerror=alert(1)>"}}
	r.SQLFindings = []string{
		"# sqlmap identified the following injection point(s)",
		"---",
		"Payload: id=1<script>alert(1)</script>",
		"___",
		"1. boolean-based blind",
		"[*] ending @ 10:00:00",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, NewDocument(r)))
	out := buf.String()

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, `Payload: id=1\<script\>alert(1)\</script\>`)
	assert.Contains(t, out, `\# sqlmap identified`)
	assert.Contains(t, out, `\_\_\_`)
	assert.Contains(t, out, `1\. boolean-based blind`)
	assert.Contains(t, out, `\[\*\] ending`)

	sql := out[strings.Index(out, "## SQLMap Results"):]
	for _, line := range strings.Split(sql, "\n")[1:] {
		assert.False(t, strings.HasPrefix(line, "#"), "heading inside section: %q", line)
		assert.NotEqual(t, "---", strings.TrimSpace(line))
	}
	assert.True(t, strings.HasPrefix(out, "# Vulnerability Report for example.com\n"))
	assert.Zero(t, strings.Count(out, "\n# "), "only the title is an H1")
}

func TestEscapeMarkdown(t *testing.T) {
	tests := map[string]string{
		"www.example.com":      "www.example.com",
		"---":                  `\---`,
		"+ item":               `\+ item`,
		"===":                  `\===`,
		"> quote":              `\> quote`,
		"a_b*c":                `a\_b\*c`,
		"id=1&x=2":             `id=1\&x=2`,
		"line\nbreak":          "line break",
		"2) second":            `2\) second`,
		"80/tcp open http N/A": "80/tcp open http N/A",
	}
	for in, want := range tests {
		assert.Equal(t, want, EscapeMarkdown(in), in)
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, NewDocument(fullReport())))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	res, err := NewWriter(dir).Write(fullReport())
	require.NoError(t, err)
	require.NoError(t, res.ExportErr)

	assert.Equal(t, filepath.Join(dir, "example.com_vulnerability_report_20240102_030405.md"), res.Document)
	assert.Equal(t, filepath.Join(dir, "example.com_vulnerability_report_20240102_030405.pdf"), res.Export)
	assert.FileExists(t, res.Document)
	assert.FileExists(t, res.Export)
}

func TestWriter_ExportFailureKeepsDocument(t *testing.T) {
	w := NewWriter(t.TempDir())
	w.renderPDF = func(io.Writer, Document) error { return errors.New("font missing") }

	res, err := w.Write(emptyReport())
	require.NoError(t, err)
	assert.ErrorContains(t, res.ExportErr, "font missing")
	assert.Empty(t, res.Export)
	assert.FileExists(t, res.Document)

	entries, err := os.ReadDir(w.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no partial pdf is left behind")
}

func TestWriter_DocumentFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewWriter(file).Write(emptyReport())
	assert.Error(t, err)
}
