package report

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const markdownTemplate = `# {{ md .Title }}

_{{ md .Subtitle }}_
{{ range .Sections }}
## {{ md .Heading }}
{{ if .Empty }}
{{ .EmptyLine }}
{{- if .Insight }}

> {{ .Insight }}
{{- end }}
{{ else }}
{{- range .Paragraphs }}
{{ .Lines | mdEach | join "  \n" }}
{{ end -}}
{{ end -}}
{{ end -}}
`

var markdownTmpl = template.Must(template.New("report.md").
	Funcs(sprig.TxtFuncMap()).
	Funcs(template.FuncMap{"md": EscapeMarkdown, "mdEach": escapeAll}).
	Parse(markdownTemplate))

var (
	inlineEscaper = strings.NewReplacer(
		`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
		"<", `\<`, ">", `\>`, "&", `\&`, "|", `\|`, "~", `\~`,
		"\r\n", " ", "\n", " ", "\r", " ",
	)
	orderedListMarker = regexp.MustCompile(`^(\d+)([.)])`)
)

// EscapeMarkdown makes s render as literal text on a single line. Scanner
// output and values sent by the target must not turn into headings, rules,
// lists or raw HTML.
func EscapeMarkdown(s string) string {
	s = inlineEscaper.Replace(s)
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return s
	}
	switch s[0] {
	case '#', '-', '+', '=':
		return `\` + s
	}
	return orderedListMarker.ReplaceAllString(s, `$1\$2`)
}

func escapeAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = EscapeMarkdown(l)
	}
	return out
}

// WriteMarkdown renders doc as Markdown.
func WriteMarkdown(w io.Writer, doc Document) error {
	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, doc); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
