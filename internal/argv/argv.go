// Package argv tokenizes prompt command lines. Quoting matters for values
// with spaces (search queries, file paths); the tokenizer also reports token
// spans so completion can replace the word under the cursor.
package argv

import "unicode/utf8"

// Token is one parsed argument with its bounds in rune indices. Start is the
// rune index of the logical content (after an opening quote if present), End
// is the rune index at the end of the token within the original string.
type Token struct {
	Text   string
	Start  int
	End    int
	Quoted bool
}

// Tokenize splits s into tokens.
// Rules:
//   - Unquoted spaces and tabs split tokens.
//   - Single quotes preserve contents literally until the next single quote.
//   - Double quotes preserve contents; backslash escapes " and \ inside them.
//   - Outside quotes, backslash escapes the following rune.
//   - No environment expansion, globbing, or comment handling.
func Tokenize(s string) []Token {
	var (
		tokens   []Token
		buf      []rune
		start    = -1
		quoted   bool
		inSingle bool
		inDouble bool
		esc      bool
		pos      int
	)

	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, Token{Text: string(buf), Start: start, End: end, Quoted: quoted})
			buf = buf[:0]
			start = -1
			quoted = false
		}
	}

	for _, r := range s {
		cur := pos
		pos++

		if esc {
			// Inside double quotes only " and \ are escapable; elsewhere the
			// backslash is literal.
			if inDouble && r != '"' && r != '\\' {
				buf = append(buf, '\\')
			}
			if start < 0 {
				start = cur
			}
			buf = append(buf, r)
			esc = false
			continue
		}

		switch {
		case r == '\\' && !inSingle:
			esc = true
		case r == '\'' && !inDouble:
			if inSingle {
				inSingle = false
			} else if len(buf) == 0 {
				inSingle = true
				quoted = true
				start = cur + 1
			} else {
				buf = append(buf, r)
			}
		case r == '"' && !inSingle:
			if inDouble {
				inDouble = false
			} else if len(buf) == 0 {
				inDouble = true
				quoted = true
				start = cur + 1
			} else {
				buf = append(buf, r)
			}
		case (r == ' ' || r == '\t' || r == '\n') && !inSingle && !inDouble:
			flush(cur)
		default:
			if start < 0 {
				start = cur
			}
			buf = append(buf, r)
		}
	}
	if start >= 0 || inSingle || inDouble {
		flush(pos)
	}
	return tokens
}

// ParseSlice returns the token texts of s.
func ParseSlice(s string) []string {
	tokens := Tokenize(s)
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

// BeforeCursor tokenizes s (the text before the cursor) and returns the
// completed tokens plus the token under the cursor, which is empty when the
// cursor sits on whitespace.
func BeforeCursor(s string) (completed []string, current Token) {
	end := utf8.RuneCountInString(s)
	for _, t := range Tokenize(s) {
		if t.End == end {
			current = t
			return
		}
		completed = append(completed, t.Text)
	}
	current = Token{Text: "", Start: end, End: end}
	return
}
