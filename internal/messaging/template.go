package messaging

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var executiveTemplate = template.Must(template.ParseFS(templateFS, "templates/executive.html.tmpl"))

// Row is one label/value line of the overview box.
type Row struct {
	Label string
	Value string
}

// CTA is the call-to-action button.
type CTA struct {
	Text string
	URL  string
}

// Executive is the branded message layout.
type Executive struct {
	Headline      string
	RecipientName string
	Body          template.HTML
	Rows          []Row
	CTA           *CTA
	Year          int
}

// Render executes the executive template.
func (e Executive) Render() (string, error) {
	if e.Year == 0 {
		e.Year = time.Now().Year()
	}
	var buf bytes.Buffer
	if err := executiveTemplate.Execute(&buf, e); err != nil {
		return "", fmt.Errorf("render executive template: %w", err)
	}
	return buf.String(), nil
}

// Emphasize formats a trusted format string, escaping each argument and
// wrapping it in <strong>.
func Emphasize(format string, args ...string) template.HTML {
	strong := make([]any, len(args))
	for i, a := range args {
		strong[i] = "<strong>" + template.HTMLEscapeString(a) + "</strong>"
	}
	return template.HTML(fmt.Sprintf(format, strong...))
}

// plain builds the short admin-mirror body. Values are escaped.
func plain(lines ...Row) string {
	var buf bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			buf.WriteString("<br>")
		}
		if l.Label != "" {
			buf.WriteString(template.HTMLEscapeString(l.Label))
			buf.WriteString(": ")
		}
		buf.WriteString(template.HTMLEscapeString(l.Value))
	}
	return buf.String()
}
