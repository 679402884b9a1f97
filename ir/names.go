package ir

import (
	"strings"
	"unicode"
)

var primitives = map[string]bool{
	"boolean": true,
	"byte":    true,
	"char":    true,
	"short":   true,
	"int":     true,
	"long":    true,
	"float":   true,
	"double":  true,
}

func IsPrimitive(typ string) bool { return primitives[typ] }

// BaseName derives the unnumbered variable name for a source type: "bo"
// for boolean, the first letter of other primitives, the lowercase simple
// name of short class names and the initials of longer ones. Array types
// get an "Arr" suffix.
func BaseName(typ string) string {
	dims := 0
	for strings.HasSuffix(typ, "[]") {
		typ = strings.TrimSuffix(typ, "[]")
		dims++
	}

	var base string
	switch {
	case typ == "boolean":
		base = "bo"
	case IsPrimitive(typ):
		base = typ[:1]
	default:
		simple := typ[strings.LastIndexByte(typ, '.')+1:]
		if len(simple) <= 4 {
			base = strings.ToLower(simple)
		} else {
			base = ToInitials(simple)
		}
	}
	if base == "" {
		base = "v"
	}
	if dims > 0 {
		base += "Arr"
	}
	return base
}

// ToInitials compresses a CamelCase identifier into its lowercase word
// initials: "HashMap" becomes "hm", "URLConnection" becomes "uc". A word
// starts at the first letter, after '_' or '$', and at an uppercase letter
// that follows a non-uppercase letter or precedes a lowercase one.
func ToInitials(s string) string {
	r := []rune(s)
	if len(r) < 3 {
		return strings.ToLower(s)
	}

	var sb strings.Builder
	for i, ch := range r {
		if ch == '_' || ch == '$' || !unicode.IsLetter(ch) {
			continue
		}
		var prev, next rune
		if i > 0 {
			prev = r[i-1]
		}
		if i+1 < len(r) {
			next = r[i+1]
		}
		boundary := i == 0 ||
			prev == '_' || prev == '$' ||
			(unicode.IsUpper(ch) && (!unicode.IsUpper(prev) || unicode.IsLower(next)))
		if boundary {
			sb.WriteRune(unicode.ToLower(ch))
		}
	}
	return sb.String()
}
