// Package markdown converts lenient rich-text markup into the strict
// escaped form the Telegram MarkdownV2 parser accepts. Reserved
// characters are escaped everywhere except inside code spans, fenced
// blocks and link URLs, where they are legitimate content.
package markdown

import "strings"

// Parse modes understood by Format.
const (
	ModePlain    = ""
	ModeMarkdown = "Markdown"
	ModeHTML     = "HTML"
)

// reserved is the MarkdownV2 character set that must be
// backslash-escaped when it appears as literal text.
const reserved = "_*[]()~`>#+-=|{}.!"

type scanState int

const (
	stateNormal scanState = iota
	stateInlineCode
	stateFencedCode
	stateLinkLabel
	stateLinkURL
)

// Format prepares text for delivery under the given parse mode. Only
// Markdown input needs escaping; plain and HTML text pass through.
func Format(text, mode string) string {
	if mode == ModeMarkdown {
		return Escape(text)
	}
	return text
}

// Escape runs a single left-to-right scan over text with an explicit
// state machine. Code spans, fenced blocks and link URLs pass through
// verbatim; everything else gets its reserved characters escaped. An
// opener with no matching closer before end of input is treated as
// literal text, so malformed input degrades to plain escaping instead
// of swallowing the rest of the string. Escape never fails; malformed
// markup at worst comes out over-escaped, and the delivery fallback
// handles any rejection that causes.
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)

	state := stateNormal
	// Open emphasis markers awaiting their closer. Only consulted in
	// the Normal state, so markers inside code spans stay inert.
	open := map[byte]bool{}
	for i := 0; i < len(text); {
		c := text[i]
		switch state {
		case stateNormal:
			switch {
			case strings.HasPrefix(text[i:], "```"):
				if strings.Contains(text[i+3:], "```") {
					b.WriteString("```")
					i += 3
					state = stateFencedCode
					continue
				}
				// Unterminated fence, the backticks are literal.
				b.WriteString("\\`\\`\\`")
				i += 3
				continue
			case c == '`':
				if strings.IndexByte(text[i+1:], '`') >= 0 {
					b.WriteByte('`')
					i++
					state = stateInlineCode
					continue
				}
			case c == '[':
				if isLinkAt(text[i:]) {
					b.WriteByte('[')
					i++
					state = stateLinkLabel
					continue
				}
			case c == '*' || c == '_':
				// Emphasis markers in matched pairs are structural
				// and must survive unescaped. A marker with neither
				// an open partner nor a closer ahead is literal.
				if open[c] {
					open[c] = false
					b.WriteByte(c)
					i++
					continue
				}
				if strings.IndexByte(text[i+1:], c) >= 0 {
					open[c] = true
					b.WriteByte(c)
					i++
					continue
				}
			}
			writeEscaped(&b, c)
			i++

		case stateInlineCode:
			b.WriteByte(c)
			i++
			if c == '`' {
				state = stateNormal
			}

		case stateFencedCode:
			if strings.HasPrefix(text[i:], "```") {
				b.WriteString("```")
				i += 3
				state = stateNormal
				continue
			}
			b.WriteByte(c)
			i++

		case stateLinkLabel:
			// isLinkAt guaranteed the "](" and the closing ")".
			if c == ']' {
				b.WriteString("](")
				i += 2
				state = stateLinkURL
				continue
			}
			writeEscaped(&b, c)
			i++

		case stateLinkURL:
			b.WriteByte(c)
			i++
			if c == ')' {
				state = stateNormal
			}
		}
	}
	return b.String()
}

// isLinkAt reports whether s starts a complete [label](url) construct.
func isLinkAt(s string) bool {
	closeLabel := strings.IndexByte(s, ']')
	if closeLabel < 0 || closeLabel+1 >= len(s) || s[closeLabel+1] != '(' {
		return false
	}
	return strings.IndexByte(s[closeLabel+2:], ')') >= 0
}

func writeEscaped(b *strings.Builder, c byte) {
	if strings.IndexByte(reserved, c) >= 0 {
		b.WriteByte('\\')
	}
	b.WriteByte(c)
}
