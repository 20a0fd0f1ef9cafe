package telegram

import (
	"regexp"
	"strings"
)

// The relay emits a small Markdown subset: bold, italic, inline code, and
// links. Telegram wants its own HTML dialect, so rendering is line-oriented
// inline processing with HTML escaping of everything else.

var (
	// Order matters — protect code spans before emphasis markers.
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic     = regexp.MustCompile(`\*(.+?)\*`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// RenderHTML converts relay Markdown to Telegram's HTML subset.
func RenderHTML(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = renderInline(line)
	}
	return strings.Join(lines, "\n")
}

func renderInline(line string) string {
	// Protect inline code spans first
	type codeSpan struct {
		placeholder string
		html        string
	}
	var spans []codeSpan
	counter := 0

	line = reInlineCode.ReplaceAllStringFunc(line, func(match string) string {
		inner := reInlineCode.FindStringSubmatch(match)[1]
		placeholder := "\x00CODE" + string(rune('A'+counter)) + "\x00"
		counter++
		spans = append(spans, codeSpan{
			placeholder: placeholder,
			html:        "<code>" + escapeHTML(inner) + "</code>",
		})
		return placeholder
	})

	// Escape HTML in non-code content
	line = escapeHTML(line)

	// Bold before italic (** before *)
	line = reBold.ReplaceAllString(line, "<b>$1</b>")
	line = reItalic.ReplaceAllString(line, "<i>$1</i>")
	line = reLink.ReplaceAllString(line, `<a href="$2">$1</a>`)

	// Restore code spans
	for _, s := range spans {
		line = strings.Replace(line, escapeHTML(s.placeholder), s.html, 1)
	}

	return line
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// StripFormatting removes the relay's Markdown markers, returning plain text.
// Used as the fallback when Telegram rejects the rendered HTML.
func StripFormatting(md string) string {
	result := reInlineCode.ReplaceAllString(md, "$1")
	result = reBold.ReplaceAllString(result, "$1")
	result = reItalic.ReplaceAllString(result, "$1")
	// Links become "text (url)"
	result = reLink.ReplaceAllString(result, "$1 ($2)")
	return result
}
