package report

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"

	"github.com/otherjamesbrown/minutes-cli/pkg/summarizer"
)

const htmlHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; max-width: 48em; margin: 2em auto; line-height: 1.5; }
code { background: #f3f3f3; padding: 0 .25em; }
</style>
</head>
<body>
`

// HTML renders the markdown report through goldmark inside a standalone
// HTML document. Raw HTML in the transcript is not passed through.
func (g *Generator) HTML(s *summarizer.MeetingSummary) (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(g.Markdown(s)), &body); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	title := "Meeting Minutes"
	if s.Title != "" {
		title += ": " + s.Title
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, htmlHead, html.EscapeString(title))
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.String(), nil
}
