// Package slug derives URL-safe identity keys and index letters from display names.
package slug

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRe   = regexp.MustCompile(`[^\w\s-]`)
	separatorRe = regexp.MustCompile(`[-\s]+`)
)

// Latin letters that have no decomposition and would otherwise be dropped
var latinFolds = strings.NewReplacer(
	"Æ", "AE", "æ", "ae",
	"Œ", "OE", "œ", "oe",
	"Ø", "O", "ø", "o",
	"Ł", "L", "ł", "l",
	"Đ", "D", "đ", "d",
	"Ð", "D", "ð", "d",
	"Þ", "TH", "þ", "th",
	"Ħ", "H", "ħ", "h",
	"ẞ", "SS", "ß", "ss",
	"ı", "i",
)

// Make lowercases value, drops accents and anything that is not a word
// character, and joins the remaining words with hyphens.
// "Émile Zola" becomes "emile-zola".
func Make(value string) string {
	folded := fold(latinFolds.Replace(value), norm.NFKD)

	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, folded)

	ascii = nonWordRe.ReplaceAllString(strings.ToLower(ascii), "")
	ascii = separatorRe.ReplaceAllString(strings.TrimSpace(ascii), "-")

	return strings.Trim(ascii, "-_")
}

// Letter returns the upper-cased, accent-free first character of value,
// or "" when value is blank.
func Letter(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	first, _ := utf8.DecodeRuneInString(value)
	folded := fold(latinFolds.Replace(string(first)), norm.NFD)
	if folded == "" {
		folded = string(first)
	}
	letter, _ := utf8.DecodeRuneInString(folded)

	return strings.ToUpper(string(letter))
}

func fold(value string, form norm.Form) string {
	t := transform.Chain(form, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return result
}
