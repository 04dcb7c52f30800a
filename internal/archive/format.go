package archive

import (
	"strings"

	"golang.org/x/net/html"
)

var bodyEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// FormatBody turns a message body into markup: &, < and > are escaped and
// newlines become <br>. No other sanitization is applied.
func FormatBody(body string) string {
	return strings.ReplaceAll(bodyEscaper.Replace(body), "\n", "<br>")
}

// MarkupText renders body markup as terminal text. Character references are
// decoded, <br> becomes a line break and every other tag is dropped.
func MarkupText(markup string) string {
	var out strings.Builder
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out.String()
		case html.TextToken:
			out.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				out.WriteByte('\n')
			}
		}
	}
}
