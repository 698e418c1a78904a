package transcript

import "strings"

// FormatText cleans raw transcript text into one sentence per paragraph.
//
// Literal "\n" escape sequences become line breaks, whitespace runs collapse
// to single spaces, the text is split on every '.', empty pieces are dropped,
// and the rest are joined with ".\n\n" plus a closing '.'. The split is a
// heuristic: abbreviations and decimals are broken apart too.
func FormatText(text string) string {
	text = strings.ReplaceAll(text, `\n`, "\n")
	text = strings.Join(strings.Fields(text), " ")

	var sentences []string
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	return strings.Join(sentences, ".\n\n") + "."
}

// Paragraphs splits formatted text into its non-empty paragraphs.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var markupEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeMarkup escapes &, < and > so user text cannot inject markup.
func EscapeMarkup(s string) string {
	return markupEscaper.Replace(s)
}
