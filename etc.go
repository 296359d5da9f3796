package main

import (
	"strings"
	"unicode"
)

// This is something like n^2 worst-case.
func diffStrings(new, old []string) (added, removed []string) {
Add:
	for _, x := range new {
		for _, y := range old {
			if x == y {
				continue Add
			}
		}
		added = append(added, x)
	}
Rem:
	for _, x := range old {
		for _, y := range new {
			if x == y {
				continue Rem
			}
		}
		removed = append(removed, x)
	}

	return added, removed
}

// Unquote splits command text into words. Double quotes group and take
// backslash escapes; single quotes group rc-style, with '' for a quote.
func unquote(b []byte) []string {
	var s []string
	var cur strings.Builder
	var word bool
	var quote rune
	r := []rune(string(b))
	for i := 0; i < len(r); i++ {
		ch := r[i]
		switch {
		case quote == '\'' && ch == '\'':
			if i+1 < len(r) && r[i+1] == '\'' {
				cur.WriteRune('\'')
				i++
				continue
			}
			quote = 0
		case quote == '\'':
			cur.WriteRune(ch)
		case ch == '\\' && i+1 < len(r):
			i++
			if r[i] != '"' {
				cur.WriteRune('\\')
			}
			cur.WriteRune(r[i])
			word = true
		case ch == '"':
			if quote == '"' {
				quote = 0
			} else {
				quote = '"'
			}
			word = true
		case ch == '\'':
			quote = '\''
			word = true
		case unicode.IsSpace(ch) && quote == 0:
			if word {
				s = append(s, cur.String())
				cur.Reset()
				word = false
			}
		default:
			cur.WriteRune(ch)
			word = true
		}
	}
	if word {
		s = append(s, cur.String())
	}
	return s
}
