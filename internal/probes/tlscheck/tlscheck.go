// Package tlscheck inspects the TLS certificate a host presents.
package tlscheck

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/michelemendel/haintsec/internal/scan"
)

// Issue messages. They are rendered verbatim in the report.
const (
	MsgNoCertificate  = "certificate invalid or not found"
	MsgExpired        = "certificate expired"
	MsgSelfSigned     = "self-signed certificate detected"
	MsgVerifyFailed   = "certificate verification failed"
	MsgTimeout        = "timeout connecting to host"
	msgConnectPrefix  = "error connecting to host: "
	msgTLSErrorPrefix = "TLS error: "
)

// Fingerprints maps configuration names onto uTLS ClientHello profiles.
var Fingerprints = map[string]utls.ClientHelloID{
	"golang":     utls.HelloGolang,
	"chrome":     utls.HelloChrome_Auto,
	"firefox":    utls.HelloFirefox_Auto,
	"randomized": utls.HelloRandomized,
}

// Config controls the probe.
type Config struct {
	Port               int           // default 443
	Timeout            time.Duration // connect and handshake budget, default 10s
	Fingerprint        string        // key of Fingerprints, default "golang"
	InsecureSkipVerify bool          // inspect the presented chain without verifying it
	RootCAs            *x509.CertPool
	Now                func() time.Time
}

// Prober performs TLS checks.
type Prober struct {
	cfg    Config
	hello  utls.ClientHelloID
	logger *slog.Logger
}

// NewProber creates a Prober. logger may be nil.
func NewProber(cfg Config, logger *slog.Logger) *Prober {
	if cfg.Port == 0 {
		cfg.Port = 443
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	hello, ok := Fingerprints[cfg.Fingerprint]
	if !ok {
		hello = utls.HelloGolang
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{cfg: cfg, hello: hello, logger: logger}
}

// Check handshakes with host and reports what is wrong with its
// certificate. Connection and handshake failures are reported as issues,
// not errors; the error return is reserved for unusable input.
func (p *Prober) Check(ctx context.Context, host string) ([]scan.TLSIssue, error) {
	if host == "" {
		return nil, scan.Errorf(scan.ReasonParseError, "no host to check")
	}
	addr := net.JoinHostPort(host, strconv.Itoa(p.cfg.Port))
	p.logger.Info("tls check started", "addr", addr)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	certs, err := p.handshake(ctx, addr, host)
	var issues []scan.TLSIssue
	if err != nil {
		issues = []scan.TLSIssue{issueFromError(err)}
		p.logger.Info("tls handshake failed", "addr", addr, "error", err)
	} else {
		issues = Inspect(certs, p.cfg.Now().UTC())
	}
	p.logger.Info("tls check completed", "addr", addr, "issues", len(issues))
	return issues, nil
}

func (p *Prober) handshake(ctx context.Context, addr, host string) ([]*x509.Certificate, error) {
	dialer := &net.Dialer{Timeout: p.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	uconn := utls.UClient(conn, &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: p.cfg.InsecureSkipVerify,
		RootCAs:            p.cfg.RootCAs,
	}, p.hello)
	if err := uconn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return uconn.ConnectionState().PeerCertificates, nil
}

// Inspect applies the direct certificate checks to a presented chain. The
// checks are independent, so an expired self-signed leaf yields both issues.
func Inspect(certs []*x509.Certificate, now time.Time) []scan.TLSIssue {
	if len(certs) == 0 || certs[0] == nil {
		return []scan.TLSIssue{{Category: scan.TLSOther, Message: MsgNoCertificate}}
	}
	leaf := certs[0]

	var issues []scan.TLSIssue
	if leaf.NotAfter.Before(now) {
		issues = append(issues, scan.TLSIssue{Category: scan.TLSExpired, Message: MsgExpired})
	}
	if isSelfSigned(leaf) {
		issues = append(issues, scan.TLSIssue{Category: scan.TLSSelfSigned, Message: MsgSelfSigned})
	}
	return issues
}

func isSelfSigned(c *x509.Certificate) bool {
	return bytes.Equal(c.RawIssuer, c.RawSubject)
}

// issueFromError maps a failed connection or handshake onto exactly one
// issue.
func issueFromError(err error) scan.TLSIssue {
	var uae x509.UnknownAuthorityError
	if errors.As(err, &uae) {
		if uae.Cert != nil && isSelfSigned(uae.Cert) {
			return scan.TLSIssue{Category: scan.TLSSelfSigned, Message: MsgSelfSigned}
		}
		return scan.TLSIssue{Category: scan.TLSVerifyFailed, Message: MsgVerifyFailed}
	}
	var invalid x509.CertificateInvalidError
	var hostname x509.HostnameError
	var verify *utls.CertificateVerificationError
	if errors.As(err, &invalid) || errors.As(err, &hostname) || errors.As(err, &verify) {
		return scan.TLSIssue{Category: scan.TLSVerifyFailed, Message: MsgVerifyFailed}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return scan.TLSIssue{Category: scan.TLSConnectionError, Message: MsgTimeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return scan.TLSIssue{Category: scan.TLSConnectionError, Message: MsgTimeout}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if (errors.As(err, &opErr) && opErr.Op == "dial") || errors.As(err, &dnsErr) {
		return scan.TLSIssue{Category: scan.TLSConnectionError, Message: msgConnectPrefix + err.Error()}
	}
	return scan.TLSIssue{Category: scan.TLSOther, Message: fmt.Sprintf("%s%v", msgTLSErrorPrefix, err)}
}
