// Package category normalizes product category names, maps them to fee
// table groups and guesses missing categories from product descriptions.
//
// Guessing is a heuristic kept apart from fee math: callers run a Guesser
// before pricing and hand the result to the engine as an ordinary category.
package category

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fee table groups.
const (
	GroupGeneral     = "geral"
	GroupBooks       = "livros"
	GroupSupermarket = "supermercado"
)

// Normalize lowercases s, strips diacritics and collapses whitespace so that
// "Eletrônicos,  Áudio" and "eletronicos, audio" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Group maps a category to the fee table group used for operating costs.
// Unknown and empty categories belong to the general group.
func Group(category string) string {
	c := Normalize(category)
	switch {
	case c == "":
		return GroupGeneral
	case strings.Contains(c, "livro"):
		return GroupBooks
	case strings.Contains(c, "supermercado"), strings.Contains(c, "alimentos e bebidas"):
		return GroupSupermarket
	default:
		return GroupGeneral
	}
}
