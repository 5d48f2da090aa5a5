package outbound

import (
	"strings"
	"unicode/utf8"
)

// wordBreakRatio is the earliest acceptable word-boundary cut, as a fraction
// of maxLen. A space before this point would leave a degenerate tiny chunk,
// so the split is forced at maxLen instead.
const wordBreakRatio = 0.6

// Split breaks text into chunks of at most maxLen bytes, cutting at the last
// space that fits whenever one exists late enough. Whitespace at the break
// point is dropped; everything else survives verbatim, so rejoining the
// chunks (with single spaces for word-boundary cuts, directly for forced
// ones) reconstructs the original content.
func Split(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > maxLen {
		cut := strings.LastIndexByte(remaining[:maxLen+1], ' ')
		if cut < int(float64(maxLen)*wordBreakRatio) {
			cut = forcedCut(remaining, maxLen)
		}
		if chunk := strings.TrimRight(remaining[:cut], " "); chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimLeft(remaining[cut:], " ")
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// forcedCut backs a byte-offset cut up to the nearest rune boundary so a
// multi-byte character is never halved.
func forcedCut(s string, max int) int {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return max
	}
	return cut
}
