// Package scan holds the data model shared by every stage of a scan run:
// the request, the per-stage outcome, the normalized findings and the
// aggregated report.
package scan

import "time"

// Tools holds the resolved executables the adapters invoke.
type Tools struct {
	PortScanner   string `json:"port_scanner"`
	SubdomainTool string `json:"subdomain_tool"`
	SQLTool       string `json:"sql_tool"`
	// PDFTool is carried for configuration parity only; the PDF export is
	// rendered in-process.
	PDFTool string `json:"pdf_tool,omitempty"`
}

// Request is the validated input to a scan run. It is a value type and is
// never mutated once built.
type Request struct {
	TargetURL       string        `json:"target_url"`
	Host            string        `json:"host"`   // URL host without port
	Domain          string        `json:"domain"` // domain handed to subdomain enumeration
	Tools           Tools         `json:"tools"`
	TimeoutPerStage time.Duration `json:"timeout_per_stage"`
	RunID           string        `json:"run_id"`
	Proxy           string        `json:"proxy,omitempty"`
}

// Stage identifies one independent scan activity.
type Stage string

const (
	StageSubdomains      Stage = "subdomains"
	StageVulnerabilities Stage = "vulnerabilities"
	StagePorts           Stage = "ports"
	StageTLS             Stage = "tls"
	StageSQL             Stage = "sql"
)

// Stages lists every stage in aggregation order.
var Stages = []Stage{StageSubdomains, StageVulnerabilities, StagePorts, StageTLS, StageSQL}

// Vulnerability is a single heuristic finding. Two findings are equal when
// both fields are equal.
type Vulnerability struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Protocol is a transport protocol reported by the port scanner.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// PortState is the state the port scanner assigned to a port.
type PortState string

const (
	PortOpen     PortState = "open"
	PortClosed   PortState = "closed"
	PortFiltered PortState = "filtered"
	PortUnknown  PortState = "unknown"
)

// ParsePortState maps a scanner state string onto PortState. Compound nmap
// states such as "open|filtered" are reported as filtered.
func ParsePortState(s string) PortState {
	switch s {
	case "open":
		return PortOpen
	case "closed":
		return PortClosed
	case "filtered", "open|filtered", "closed|filtered":
		return PortFiltered
	}
	return PortUnknown
}

// NotAvailable fills port record fields the scanner did not report.
const NotAvailable = "N/A"

// PortRecord describes one scanned port on one host.
type PortRecord struct {
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Protocol    Protocol  `json:"protocol"`
	State       PortState `json:"state"`
	ServiceName string    `json:"service_name"`
	Product     string    `json:"product"`
	Version     string    `json:"version"`
	Reason      string    `json:"reason"`
	ExtraInfo   string    `json:"extra_info"`
	Confidence  string    `json:"confidence"`
}

// HostPorts groups the port records of one host in scanner order.
type HostPorts struct {
	Host  string       `json:"host"`
	Ports []PortRecord `json:"ports"`
}

// TLSCategory tags a TLS issue without assigning a severity.
type TLSCategory string

const (
	TLSExpired         TLSCategory = "expired"
	TLSSelfSigned      TLSCategory = "self-signed"
	TLSVerifyFailed    TLSCategory = "verify-failed"
	TLSConnectionError TLSCategory = "connection-error"
	TLSOther           TLSCategory = "other"
)

// TLSIssue is one observation from the TLS probe.
type TLSIssue struct {
	Category TLSCategory `json:"category"`
	Message  string      `json:"message"`
}

// StageFailure records why a stage produced no data.
type StageFailure struct {
	Stage  Stage  `json:"stage"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail"`
}

// Report is the aggregate of all stage outcomes. It fully determines what
// gets rendered and is only ever read after construction.
type Report struct {
	Target          string          `json:"target"`
	Domain          string          `json:"domain"`
	Subdomains      []string        `json:"subdomains"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Ports           []HostPorts     `json:"ports"`
	TLSIssues       []TLSIssue      `json:"tls_issues"`
	SQLFindings     []string        `json:"sql_findings"`
	Failures        []StageFailure  `json:"failures,omitempty"`
	GeneratedAt     time.Time       `json:"generated_at"`
}
