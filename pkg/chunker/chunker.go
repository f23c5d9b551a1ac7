// Package chunker splits oversized text payloads into an ordered
// sequence of delivery units that respect platform length limits.
package chunker

import (
	"unicode"

	"bifrost/internal/constants"
)

// Limits for the two payload classes.
const (
	TextLimit    = constants.TextMessageLimit
	CaptionLimit = constants.MediaCaptionLimit
)

// Split breaks text into chunks of at most limit runes each. Chunks
// break preferentially at the last newline at or before the limit, then
// at the last whitespace, and only hard-cut mid-token when a single
// token exceeds the limit on its own. Order is preserved and
// concatenating the chunks (with the consumed boundary runes) yields
// the original text. Text at or under the limit comes back as a single
// chunk.
func Split(text string, limit int) []string {
	if limit <= 0 || text == "" {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/limit+1)
	for len(runes) > limit {
		cut := boundaryAt(runes, limit)
		chunks = append(chunks, string(runes[:cut]))
		// The boundary rune itself is dropped; it only separated words.
		if cut < len(runes) && isBoundary(runes[cut]) {
			cut++
		}
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// boundaryAt returns the cut position for the next chunk: the index
// just before the last newline at or before limit, else the last
// whitespace, else limit (hard cut).
func boundaryAt(runes []rune, limit int) int {
	window := runes[:limit+1]
	if i := lastIndexRune(window, '\n'); i > 0 {
		return i
	}
	for i := limit; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i
		}
	}
	return limit
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func isBoundary(r rune) bool {
	return unicode.IsSpace(r)
}

// SplitText chunks a message body under the platform text limit.
func SplitText(text string) []string {
	return Split(text, TextLimit)
}

// SplitCaption chunks a media caption under the caption limit. The
// first element rides on the media message; the rest go out as
// follow-up text messages.
func SplitCaption(text string) []string {
	return Split(text, CaptionLimit)
}
