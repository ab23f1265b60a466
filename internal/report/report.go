package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/michelemendel/haintsec/internal/scan"
)

const timestampLayout = "20060102_150405"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeDomain makes domain safe to use in a file name.
func SanitizeDomain(domain string) string {
	d := strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
	d = strings.Trim(unsafeNameChars.ReplaceAllString(d, "_"), "._")
	if d == "" {
		return "target"
	}
	return d
}

// FileName returns "{domain}_vulnerability_report_{YYYYMMDD_HHMMSS}.{ext}".
func FileName(domain string, ts time.Time, ext string) string {
	return fmt.Sprintf("%s_vulnerability_report_%s.%s", SanitizeDomain(domain), ts.Format(timestampLayout), ext)
}

// Result lists what Write produced. ExportErr is set when the PDF could not
// be generated; the document is saved regardless.
type Result struct {
	Document  string
	Export    string
	ExportErr error
}

// Writer saves reports under Dir.
type Writer struct {
	Dir       string
	renderDoc func(io.Writer, Document) error
	renderPDF func(io.Writer, Document) error
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, renderDoc: WriteMarkdown, renderPDF: WritePDF}
}

// Write renders r and saves the Markdown document, then the PDF export.
// The returned error only concerns the document.
func (w *Writer) Write(r scan.Report) (Result, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	doc := NewDocument(r)

	var res Result
	docPath := filepath.Join(w.Dir, FileName(r.Domain, r.GeneratedAt, "md"))
	if err := writeFile(docPath, doc, w.renderDoc); err != nil {
		return Result{}, fmt.Errorf("write document: %w", err)
	}
	res.Document = docPath

	pdfPath := filepath.Join(w.Dir, FileName(r.Domain, r.GeneratedAt, "pdf"))
	if err := writeFile(pdfPath, doc, w.renderPDF); err != nil {
		res.ExportErr = fmt.Errorf("export pdf: %w", err)
		return res, nil
	}
	res.Export = pdfPath
	return res, nil
}

// writeFile renders into memory first so a failed render leaves no
// partial file behind.
func writeFile(path string, doc Document, render func(io.Writer, Document) error) error {
	var buf bytes.Buffer
	if err := render(&buf, doc); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
