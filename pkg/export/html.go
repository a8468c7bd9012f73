// Package export turns exported transcripts into files a browser can open.
package export

import (
	"bytes"
	"html/template"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// markdown keeps raw HTML: exported cells are HTML blocks inside a GFM table.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// Markdown joins exported markdown lines into one document.
func Markdown(lines []string) string {
	return strings.Join(lines, "")
}

// WriteMarkdown writes exported lines as a markdown file.
func WriteMarkdown(w io.Writer, lines []string) error {
	_, err := io.WriteString(w, Markdown(lines))
	return errors.Wrap(err, "write markdown")
}

// HTML renders exported markdown lines into a standalone HTML page.
func HTML(title string, lines []string) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(lines)), &body); err != nil {
		return nil, errors.Wrap(err, "convert markdown")
	}
	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return nil, errors.Wrap(err, "render page")
	}
	return out.Bytes(), nil
}
