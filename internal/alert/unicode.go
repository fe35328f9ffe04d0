package alert

import "strings"

// Invisible and direction-override runes are a known smuggling vector in log
// text: an attacker-controlled field can reorder or hide content in whatever
// downstream surface renders it, including a model prompt. The normalizer
// flags affected records and strips the runes from the body.

var smuggledRunes = map[rune]bool{
	'\u200b': true, // zero-width space
	'\u200c': true, // zero-width non-joiner
	'\u200d': true, // zero-width joiner
	'\u2060': true, // word joiner
	'\ufeff': true, // zero-width no-break space / BOM
	'\u202a': true, // left-to-right embedding
	'\u202b': true, // right-to-left embedding
	'\u202c': true, // pop directional formatting
	'\u202d': true, // left-to-right override
	'\u202e': true, // right-to-left override
	'\u2066': true, // left-to-right isolate
	'\u2067': true, // right-to-left isolate
	'\u2068': true, // first strong isolate
	'\u2069': true, // pop directional isolate
}

func containsSmuggledRunes(s string) bool {
	for _, r := range s {
		if smuggledRunes[r] {
			return true
		}
	}
	return false
}

func stripSmuggledRunes(s string) string {
	if !containsSmuggledRunes(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !smuggledRunes[r] {
			b.WriteRune(r)
		}
	}
	return b.String()
}
