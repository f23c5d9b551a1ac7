package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortTextUntouched(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
	}{
		{name: "empty", input: "", limit: 10},
		{name: "under limit", input: "hello", limit: 10},
		{name: "exactly at limit", input: "0123456789", limit: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.input, tt.limit)
			require.Len(t, chunks, 1)
			assert.Equal(t, tt.input, chunks[0])
		})
	}
}

func TestSplitAtWhitespace(t *testing.T) {
	chunks := Split("word1 word2", 7)
	assert.Equal(t, []string{"word1", "word2"}, chunks)
}

func TestSplitPrefersNewline(t *testing.T) {
	chunks := Split("line one\nline two and more", 20)
	require.Len(t, chunks, 2)
	assert.Equal(t, "line one", chunks[0])
	assert.Equal(t, "line two and more", chunks[1])
}

func TestSplitHardCutLongToken(t *testing.T) {
	token := strings.Repeat("x", 25)
	chunks := Split(token, 10)
	assert.Equal(t, []string{
		strings.Repeat("x", 10),
		strings.Repeat("x", 10),
		strings.Repeat("x", 5),
	}, chunks)
}

func TestSplitPreservesOrderAndContent(t *testing.T) {
	words := make([]string, 300)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunks := Split(text, 100)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 100)
		assert.NotEmpty(t, c)
	}
	assert.Equal(t, text, strings.Join(chunks, " "), "rejoining with the consumed separators restores the input")
}

func TestSplitRuneAware(t *testing.T) {
	// 12 two-byte runes must count as 12 characters, not 24.
	text := strings.Repeat("ю", 12)
	chunks := Split(text, 12)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitTextAndCaptionLimits(t *testing.T) {
	body := strings.Repeat("a", TextLimit+1)
	chunks := SplitText(body)
	assert.Len(t, chunks, 2)

	caption := strings.Repeat("b", CaptionLimit+1)
	chunks = SplitCaption(caption)
	assert.Len(t, chunks, 2)
}
