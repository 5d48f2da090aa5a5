package outbound

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitFitsUnchanged(t *testing.T) {
	for _, text := range []string{"", "hi", strings.Repeat("a", 500)} {
		chunks := Split(text, 500)
		if len(chunks) != 1 || chunks[0] != text {
			t.Errorf("Split(%d bytes) = %d chunks, want the text back unchanged", len(text), len(chunks))
		}
	}
}

func TestSplitOnWordBoundaries(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 120)) // 599 bytes
	chunks := Split(text, 500)

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 500 {
			t.Errorf("chunk %d is %d bytes, over the limit", i, len(c))
		}
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Errorf("chunk %d carries boundary whitespace: %q", i, c)
		}
	}
	if rejoined := strings.Join(chunks, " "); rejoined != text {
		t.Errorf("rejoined text differs from original\n got: %q\nwant: %q", rejoined, text)
	}
}

func TestSplitForcedWithoutSpaces(t *testing.T) {
	text := strings.Repeat("x", 600)
	chunks := Split(text, 500)

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 500 {
			t.Errorf("chunk %d is %d bytes, over the limit", i, len(c))
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("direct concatenation does not reproduce the original")
	}
}

func TestSplitIgnoresTooEarlySpace(t *testing.T) {
	// The only space sits well before 60% of the limit, so the cut is
	// forced at the limit instead of emitting a tiny fragment.
	text := "tiny " + strings.Repeat("y", 600)
	chunks := Split(text, 500)

	if len(chunks[0]) != 500 {
		t.Fatalf("first chunk is %d bytes, want a forced cut at 500", len(chunks[0]))
	}
	if strings.Join(chunks, "") != text {
		t.Error("forced-cut chunks do not reproduce the original")
	}
}

func TestSplitForcedCutRespectsRuneBoundaries(t *testing.T) {
	text := strings.Repeat("é", 400) // 800 bytes, no spaces
	chunks := Split(text, 500)

	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d cuts through a rune", i)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("chunks do not reproduce the original")
	}
}

func TestSplitLongText(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("lorem ipsum dolor ", 200))
	chunks := Split(text, 500)

	var words []string
	for _, c := range chunks {
		words = append(words, strings.Fields(c)...)
	}
	if got, want := strings.Join(words, " "), text; got != want {
		t.Error("content lost or duplicated across chunks")
	}
}
