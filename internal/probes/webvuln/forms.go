package webvuln

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Form is an HTML form as found in the page.
type Form struct {
	Action string // raw action attribute
	Method string // upper-case, GET when absent
	Inputs []Input
}

// Input is a named form control.
type Input struct {
	Name  string
	Type  string // lower-case; "textarea" and "select" for those elements
	Value string
}

// HasPassword reports whether the form contains a password field.
func (f Form) HasPassword() bool {
	for _, in := range f.Inputs {
		if in.Type == "password" {
			return true
		}
	}
	return false
}

// Target resolves the form action against the page URL.
func (f Form) Target(base *url.URL) *url.URL {
	if f.Action == "" {
		u := *base
		return &u
	}
	ref, err := url.Parse(strings.TrimSpace(f.Action))
	if err != nil {
		u := *base
		return &u
	}
	return base.ResolveReference(ref)
}

// ParseForms extracts every form from an HTML document. Controls outside a
// form are ignored.
func ParseForms(r io.Reader) []Form {
	var forms []Form
	var cur *Form

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if cur != nil {
				forms = append(forms, *cur)
			}
			return forms
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			switch t.DataAtom {
			case atom.Form:
				if cur != nil {
					forms = append(forms, *cur)
				}
				method := strings.ToUpper(strings.TrimSpace(attr(t, "method")))
				if method == "" {
					method = "GET"
				}
				cur = &Form{Action: attr(t, "action"), Method: method}
			case atom.Input:
				if cur == nil {
					continue
				}
				typ := strings.ToLower(strings.TrimSpace(attr(t, "type")))
				if typ == "" {
					typ = "text"
				}
				cur.Inputs = append(cur.Inputs, Input{Name: attr(t, "name"), Type: typ, Value: attr(t, "value")})
			case atom.Textarea, atom.Select:
				if cur == nil {
					continue
				}
				cur.Inputs = append(cur.Inputs, Input{Name: attr(t, "name"), Type: t.DataAtom.String()})
			}
		case html.EndTagToken:
			if cur != nil && z.Token().DataAtom == atom.Form {
				forms = append(forms, *cur)
				cur = nil
			}
		}
	}
}

func attr(t html.Token, key string) string {
	for _, a := range t.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
