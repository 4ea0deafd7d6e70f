// Package richtext implements the insight body editor: snippet insertion at
// a selection, Markdown rendering, and plain-text excerpts.
package richtext

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Tag is an editor toolbar action.
type Tag string

const (
	TagHeading   Tag = "h1"
	TagParagraph Tag = "p"
	TagBold      Tag = "bold"
	TagGap       Tag = "gap"
	TagHighlight Tag = "highlight"
	TagImage     Tag = "img"
)

// InsertTag wraps the selection [start, end) of content in the snippet for
// tag, or inserts placeholder text when the selection is empty. Offsets are
// in runes and are clamped to the content. TagImage replaces the selection
// with an image of imageURL.
func InsertTag(content string, start, end int, tag Tag, imageURL string) (string, error) {
	runes := []rune(content)
	start = clamp(start, 0, len(runes))
	end = clamp(end, start, len(runes))
	before, selection, after := string(runes[:start]), string(runes[start:end]), string(runes[end:])

	or := func(placeholder string) string {
		if selection == "" {
			return placeholder
		}
		return selection
	}

	var snippet string
	switch tag {
	case TagImage:
		if strings.TrimSpace(imageURL) == "" {
			return "", fmt.Errorf("image URL is required")
		}
		snippet = fmt.Sprintf(`<img src="%s" class="w-full my-8" />`, template.HTMLEscapeString(imageURL))
	case TagHeading:
		snippet = `<h1 class="text-4xl font-serif mt-12 mb-6">` + or("Heading") + `</h1>`
	case TagParagraph:
		snippet = `<p class="text-lg leading-relaxed mb-6">` + or("Paragraph text...") + `</p>`
	case TagBold:
		snippet = `<b>` + or("Bold Text") + `</b>`
	case TagGap:
		snippet = `<div class="h-12"></div>`
	case TagHighlight:
		snippet = `<span class="bg-[#CC1414] text-white px-2 py-1">` + or("Highlighted Text") + `</span>`
	default:
		return "", fmt.Errorf("unknown editor tag: %q", tag)
	}
	return before + snippet + after, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// markdown renders admin-authored bodies. Inline HTML from the editor
// toolbar is passed through.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		gmhtml.WithHardWraps(),
		gmhtml.WithUnsafe(),
	),
)

// Render converts an insight body to HTML.
func Render(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// Excerpt returns the first maxRunes of the visible text of html, cut at a
// word boundary with an ellipsis when truncated.
func Excerpt(html string, maxRunes int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style").Remove()

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if utf8.RuneCountInString(text) <= maxRunes {
		return text, nil
	}

	runes := []rune(text)[:maxRunes]
	cut := len(runes)
	for i := len(runes) - 1; i > maxRunes/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + "…", nil
}

// AssetRefs lists the image, audio and document URLs referenced by html,
// in document order without duplicates.
func AssetRefs(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]bool)
	var refs []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		refs = append(refs, u)
	}

	doc.Find("img[src], audio[src], source[src], a[href]").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "a" {
			href, _ := s.Attr("href")
			if strings.HasSuffix(strings.ToLower(href), ".pdf") {
				add(href)
			}
			return
		}
		src, _ := s.Attr("src")
		add(src)
	})
	return refs, nil
}
