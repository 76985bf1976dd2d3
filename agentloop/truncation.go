package agentloop

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncateDiagnostics caps the compiler text embedded in a correction
// prompt. rustc reports the first errors at the top and the error count
// at the bottom, so both ends survive and the middle is dropped: first
// whole lines down to maxLines, then characters down to maxChars. A
// non-positive limit disables that pass.
func TruncateDiagnostics(text string, maxChars, maxLines int) string {
	return dropMiddleChars(dropMiddleLines(text, maxLines), maxChars)
}

func dropMiddleLines(text string, maxLines int) string {
	if maxLines <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	head := maxLines / 2
	tail := maxLines - head
	omitted := len(lines) - maxLines

	var sb strings.Builder
	sb.WriteString(strings.Join(lines[:head], "\n"))
	fmt.Fprintf(&sb, "\n[... %d lines omitted ...]\n", omitted)
	sb.WriteString(strings.Join(lines[len(lines)-tail:], "\n"))
	return sb.String()
}

func dropMiddleChars(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	// Cuts move inward to rune boundaries; rustc quotes source lines verbatim.
	head := maxChars / 2
	for head > 0 && !utf8.RuneStart(text[head]) {
		head--
	}
	tailStart := len(text) - (maxChars - maxChars/2)
	for tailStart < len(text) && !utf8.RuneStart(text[tailStart]) {
		tailStart++
	}
	removed := utf8.RuneCountInString(text[head:tailStart])
	return text[:head] +
		fmt.Sprintf("\n\n[compiler output truncated: %d characters removed from the middle]\n\n", removed) +
		text[tailStart:]
}
