// Package webvuln runs lightweight vulnerability heuristics against a web
// page: response headers, cookies and the page's HTML forms.
package webvuln

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/michelemendel/haintsec/internal/scan"
)

// Finding kinds.
const (
	KindMissingHeader      = "Missing Security Header"
	KindVersionDisclosure  = "Version Disclosure"
	KindInsecureCookie     = "Insecure Cookie"
	KindMissingCSRFToken   = "Missing CSRF Token"
	KindInsecurePassword   = "Insecure Password Form"
	KindInsecureFormAction = "Insecure Form Action"
	KindXSS                = "XSS"
)

const (
	maxBodyBytes     = 2 << 20
	reflectWorkers   = 4
	defaultUserAgent = "haintsec/1.0"
)

var (
	versionRe   = regexp.MustCompile(`\d`)
	csrfFieldRe = regexp.MustCompile(`(?i)csrf|xsrf|authenticity|requestverificationtoken|nonce|token`)
)

// Config controls the probe.
type Config struct {
	Timeout   time.Duration // per request, default 15s
	RateLimit float64       // requests per second, default 5
	MaxForms  int           // GET forms tested for reflection, default 10
	Proxy     string        // http, https or socks5 URL
	UserAgent string
}

// Prober runs the web heuristics.
type Prober struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewProber creates a Prober. logger may be nil.
func NewProber(cfg Config, logger *slog.Logger) (*Prober, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.MaxForms <= 0 {
		cfg.MaxForms = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := newHTTPClient(cfg.Proxy, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	burst := int(cfg.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return &Prober{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		logger:  logger,
	}, nil
}

type page struct {
	url    *url.URL
	header http.Header
	body   []byte
	cookie []*http.Cookie
}

// Probe fetches target and returns the findings in a stable order: header
// checks, cookie checks, static form checks, then reflection results in
// form order. A failure to fetch the page itself is an error; failed
// reflection requests are logged and skipped.
func (p *Prober) Probe(ctx context.Context, target string) ([]scan.Vulnerability, error) {
	base, err := url.Parse(target)
	if err != nil || base.Host == "" {
		return nil, scan.Errorf(scan.ReasonParseError, "invalid target URL %q", target)
	}
	p.logger.Info("web probe started", "url", target)

	pg, err := p.fetch(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}

	var findings []scan.Vulnerability
	findings = append(findings, CheckHeaders(pg.url, pg.header)...)
	findings = append(findings, CheckCookies(pg.url, pg.cookie)...)

	forms := ParseForms(bytes.NewReader(pg.body))
	findings = append(findings, CheckForms(pg.url, forms)...)
	findings = append(findings, p.checkReflection(ctx, pg.url, forms)...)

	p.logger.Info("web probe completed", "url", target, "forms", len(forms), "findings", len(findings))
	return findings, nil
}

func (p *Prober) fetch(ctx context.Context, u *url.URL) (*page, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, scan.Wrap(scan.ReasonParseError, err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return &page{url: resp.Request.URL, header: resp.Header, body: body, cookie: resp.Cookies()}, nil
}

// CheckHeaders reports missing hardening headers and version disclosure.
func CheckHeaders(u *url.URL, h http.Header) []scan.Vulnerability {
	required := []string{
		"Content-Security-Policy",
		"X-Frame-Options",
		"X-Content-Type-Options",
		"Strict-Transport-Security",
		"Referrer-Policy",
	}

	var out []scan.Vulnerability
	for _, name := range required {
		if name == "Strict-Transport-Security" && u.Scheme != "https" {
			continue
		}
		if h.Get(name) == "" {
			out = append(out, scan.Vulnerability{Kind: KindMissingHeader, Detail: name + " header not present"})
		}
	}
	for _, name := range []string{"Server", "X-Powered-By"} {
		if v := h.Get(name); v != "" && versionRe.MatchString(v) {
			out = append(out, scan.Vulnerability{Kind: KindVersionDisclosure, Detail: name + ": " + v})
		}
	}
	return out
}

// CheckCookies reports cookies set without Secure (on https) or HttpOnly.
func CheckCookies(u *url.URL, cookies []*http.Cookie) []scan.Vulnerability {
	var out []scan.Vulnerability
	for _, c := range cookies {
		if u.Scheme == "https" && !c.Secure {
			out = append(out, scan.Vulnerability{Kind: KindInsecureCookie, Detail: fmt.Sprintf("cookie %s set without Secure flag", c.Name)})
		}
		if !c.HttpOnly {
			out = append(out, scan.Vulnerability{Kind: KindInsecureCookie, Detail: fmt.Sprintf("cookie %s set without HttpOnly flag", c.Name)})
		}
	}
	return out
}

// CheckForms applies the checks that need no extra requests.
func CheckForms(base *url.URL, forms []Form) []scan.Vulnerability {
	var out []scan.Vulnerability
	for i, f := range forms {
		action := f.Target(base)
		label := formLabel(i, action)

		if f.Method == http.MethodPost && !hasCSRFToken(f) {
			out = append(out, scan.Vulnerability{Kind: KindMissingCSRFToken, Detail: label + " submits via POST without an anti-CSRF token"})
		}
		if f.HasPassword() {
			if action.Scheme == "http" {
				out = append(out, scan.Vulnerability{Kind: KindInsecurePassword, Detail: label + " submits a password over http"})
			}
			if f.Method == http.MethodGet {
				out = append(out, scan.Vulnerability{Kind: KindInsecurePassword, Detail: label + " submits a password via GET"})
			}
		}
		if action.Scheme == "http" && !strings.EqualFold(action.Host, base.Host) {
			out = append(out, scan.Vulnerability{Kind: KindInsecureFormAction, Detail: label + " posts to foreign origin " + action.Host + " over http"})
		}
	}
	return out
}

func hasCSRFToken(f Form) bool {
	for _, in := range f.Inputs {
		if in.Type == "hidden" && csrfFieldRe.MatchString(in.Name) {
			return true
		}
	}
	return false
}

func formLabel(i int, action *url.URL) string {
	return fmt.Sprintf("form #%d (%s)", i+1, action.String())
}

// checkReflection submits a unique marker through each GET form and looks
// for it echoed back unescaped.
func (p *Prober) checkReflection(ctx context.Context, base *url.URL, forms []Form) []scan.Vulnerability {
	type candidate struct {
		index int
		form  Form
	}
	var candidates []candidate
	for i, f := range forms {
		if f.Method != http.MethodGet || len(fillable(f)) == 0 {
			continue
		}
		if len(candidates) == p.cfg.MaxForms {
			p.logger.Info("reflection checks capped", "max_forms", p.cfg.MaxForms, "forms", len(forms))
			break
		}
		candidates = append(candidates, candidate{i, f})
	}

	results := make([]*scan.Vulnerability, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reflectWorkers)
	for j, c := range candidates {
		g.Go(func() error {
			v, err := p.reflect(gctx, base, c.index, c.form)
			if err != nil {
				p.logger.Warn("reflection check failed", "form", c.index+1, "error", err)
				return nil
			}
			results[j] = v
			return nil
		})
	}
	_ = g.Wait()

	var out []scan.Vulnerability
	for _, v := range results {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func (p *Prober) reflect(ctx context.Context, base *url.URL, index int, f Form) (*scan.Vulnerability, error) {
	payload := Marker()

	action := f.Target(base)
	q := action.Query()
	names := fillable(f)
	for _, in := range f.Inputs {
		if in.Name == "" {
			continue
		}
		if isFillable(in) {
			q.Set(in.Name, payload)
		} else if in.Value != "" {
			q.Set(in.Name, in.Value)
		}
	}
	action.RawQuery = q.Encode()

	pg, err := p.fetch(ctx, action)
	if err != nil {
		return nil, err
	}
	if !bytes.Contains(pg.body, []byte(payload)) {
		return nil, nil
	}
	return &scan.Vulnerability{
		Kind:   KindXSS,
		Detail: fmt.Sprintf("%s reflects parameter(s) %s unescaped", formLabel(index, f.Target(base)), strings.Join(names, ", ")),
	}, nil
}

// Marker returns a unique reflection payload. It contains characters that a
// correctly escaping page never echoes verbatim.
func Marker() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "hs" + id[:12] + `"'<x>`
}

func fillable(f Form) []string {
	var names []string
	for _, in := range f.Inputs {
		if in.Name != "" && isFillable(in) {
			names = append(names, in.Name)
		}
	}
	return names
}

func isFillable(in Input) bool {
	switch in.Type {
	case "text", "search", "email", "url", "tel", "textarea":
		return true
	}
	return false
}
