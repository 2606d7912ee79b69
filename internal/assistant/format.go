package assistant

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Formatter converts model markdown into sanitized HTML, truncating overly
// long replies before rendering so the cut never splits a markdown
// construct mid-stream.
type Formatter struct {
	MaxChars int

	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewFormatter applies the default ceiling for non-positive values.
func NewFormatter(maxChars int) *Formatter {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Formatter{
		MaxChars: maxChars,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Format truncates and renders markdown. The returned bool reports whether
// truncation occurred.
func (f *Formatter) Format(markdown string) (htmlOut string, truncated bool, err error) {
	markdown, truncated = TruncateMarkdown(markdown, f.MaxChars)

	var buf bytes.Buffer
	if err := f.md.Convert([]byte(markdown), &buf); err != nil {
		return "", truncated, eris.Wrap(err, "format: render markdown")
	}
	return f.policy.Sanitize(buf.String()), truncated, nil
}

// TruncateMarkdown cuts markdown to at most maxChars bytes while keeping it
// renderable: the cut lands on a line boundary and any code fence left open
// by the cut is closed. The closing fence fits inside the ceiling.
func TruncateMarkdown(markdown string, maxChars int) (string, bool) {
	if len(markdown) <= maxChars {
		return markdown, false
	}

	const closingFence = "\n```"
	cut := maxChars - len(closingFence)
	if cut < 0 {
		cut = 0
	}
	truncated := markdown[:cut]

	// Back up to the previous newline so no line is split mid-construct.
	if idx := strings.LastIndexByte(truncated, '\n'); idx > 0 {
		truncated = truncated[:idx]
	}

	if openFence(truncated) {
		truncated += closingFence
	}
	return truncated, true
}

// openFence reports whether the text ends inside an unclosed ``` code block.
func openFence(text string) bool {
	open := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			open = !open
		}
	}
	return open
}
