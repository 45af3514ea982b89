package ident

import (
	"strings"
)

// SplitQualified splits a potentially schema-qualified identifier into its parts.
// Both double quotes and backticks delimit quoted parts.
func SplitQualified(ident string) []string {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil
	}
	var parts []string
	var buf strings.Builder
	var quote rune
	runes := []rune(ident)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == 0 && (r == '"' || r == '`'):
			quote = r
		case quote != 0 && r == quote:
			if i+1 < len(runes) && runes[i+1] == quote {
				buf.WriteRune(r)
				i++
				continue
			}
			quote = 0
		case quote == 0 && r == '.':
			parts = append(parts, strings.TrimSpace(buf.String()))
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	parts = append(parts, strings.TrimSpace(buf.String()))
	return parts
}

// Quote wraps a single identifier part in q, doubling any embedded q.
func Quote(part string, q rune) string {
	s := string(q)
	return s + strings.ReplaceAll(part, s, s+s) + s
}

// IsQuoted reports whether s is already wrapped in q.
func IsQuoted(s string, q rune) bool {
	qs := string(q)
	return len(s) >= 2 && strings.HasPrefix(s, qs) && strings.HasSuffix(s, qs)
}

// IsPlain reports whether s can be rendered without quoting:
// a letter or underscore followed by letters, digits, underscores or dollars.
func IsPlain(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '$' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}

// BaseTableName returns the last segment of a qualified identifier.
func BaseTableName(ident string) string {
	parts := SplitQualified(ident)
	if len(parts) == 0 {
		return strings.TrimSpace(ident)
	}
	return parts[len(parts)-1]
}
