package ast

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// StringValue returns the decoded value of a plain string literal. Template
// literals and anything else report false.
func StringValue(n *Node) (string, bool) {
	if n == nil || n.Kind != "string" || !n.Named {
		return "", false
	}

	// The first and last children are the quotes
	var raw strings.Builder
	for i, child := range n.Children {
		if i == 0 || i == len(n.Children)-1 {
			continue
		}
		raw.WriteString(child.Text)
	}
	return decodeEscapes(raw.String()), true
}

func decodeEscapes(raw string) string {
	if strings.IndexByte(raw, '\\') < 0 {
		return raw
	}

	var sb strings.Builder
	var pendingHigh rune = -1

	flushHigh := func() {
		if pendingHigh >= 0 {
			sb.WriteRune(utf8.RuneError)
			pendingHigh = -1
		}
	}
	writeRune := func(r rune) {
		if utf16.IsSurrogate(r) {
			if r < 0xDC00 {
				flushHigh()
				pendingHigh = r
				return
			}
			if pendingHigh >= 0 {
				sb.WriteRune(utf16.DecodeRune(pendingHigh, r))
				pendingHigh = -1
				return
			}
			sb.WriteRune(utf8.RuneError)
			return
		}
		flushHigh()
		sb.WriteRune(r)
	}

	for i := 0; i < len(raw); {
		c := raw[i]
		if c != '\\' || i+1 == len(raw) {
			r, size := utf8.DecodeRuneInString(raw[i:])
			writeRune(r)
			i += size
			continue
		}

		i++
		c = raw[i]
		i++
		switch c {
		case 'b':
			writeRune('\b')
		case 'f':
			writeRune('\f')
		case 'n':
			writeRune('\n')
		case 'r':
			writeRune('\r')
		case 't':
			writeRune('\t')
		case 'v':
			writeRune('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			// Legacy octal: up to three digits starting with 0-3, two otherwise,
			// so the value never exceeds 0377
			value := rune(c - '0')
			digits := 2
			if c <= '3' {
				digits = 3
			}
			for n := 1; n < digits && i < len(raw) && raw[i] >= '0' && raw[i] <= '7'; n++ {
				value = value*8 + rune(raw[i]-'0')
				i++
			}
			writeRune(value)

		case '\r':
			// Line continuation, "\r\n" counts as one line terminator
			if i < len(raw) && raw[i] == '\n' {
				i++
			}
		case '\n':

		case 'x':
			if value, ok := parseHex(raw, i, 2); ok {
				writeRune(rune(value))
				i += 2
			} else {
				writeRune('x')
			}

		case 'u':
			if i < len(raw) && raw[i] == '{' {
				end := strings.IndexByte(raw[i:], '}')
				if end > 1 {
					if value, ok := parseHex(raw, i+1, end-1); ok && value <= utf8.MaxRune {
						writeRune(rune(value))
						i += end + 1
						break
					}
				}
				writeRune('u')
			} else if value, ok := parseHex(raw, i, 4); ok {
				writeRune(rune(value))
				i += 4
			} else {
				writeRune('u')
			}

		default:
			// Unknown escapes stand for the character itself, except for the
			// line continuations
			r, size := utf8.DecodeRuneInString(raw[i-1:])
			if r != '\u2028' && r != '\u2029' {
				writeRune(r)
			}
			i += size - 1
		}
	}
	flushHigh()
	return sb.String()
}

func parseHex(text string, start int, length int) (uint64, bool) {
	if start+length > len(text) {
		return 0, false
	}
	value, err := strconv.ParseUint(text[start:start+length], 16, 32)
	if err != nil {
		return 0, false
	}
	return value, true
}
