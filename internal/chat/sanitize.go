package chat

import "strings"

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// Sanitize flattens text to one line, caps it at maxRunes (when > 0) and
// neutralizes the mass-mention token by swapping its "o" for a Greek omicron.
func Sanitize(text string, maxRunes int) string {
	out := strings.TrimSpace(lineBreaks.Replace(text))
	if maxRunes > 0 {
		if r := []rune(out); len(r) > maxRunes {
			out = string(r[:maxRunes])
		}
	}
	return strings.ReplaceAll(out, "@everyone", "@everyοne")
}
