package feed

import (
	"regexp"
	"strings"
)

// Word characters are Unicode letters, digits and underscore.
var (
	hyphenAfterWordRe  = regexp.MustCompile(`([\p{L}\p{N}_]"?)-`)
	hyphenBeforeWordRe = regexp.MustCompile(`-("?[\p{L}\p{N}_])`)
	commaRe            = regexp.MustCompile(`([\p{L}\p{N}_]),([\p{L}\p{N}_])`)
	spaceCommaRe       = regexp.MustCompile(`([\p{L}\p{N}_]) ,`)
	openParenRe        = regexp.MustCompile(`([\p{L}\p{N}_])\(`)
	closeParenRe       = regexp.MustCompile(`\)([\p{L}\p{N}_])`)
)

// NormalizeTitle rewrites punctuation so titles from different feeds read
// the same way. The steps run in a fixed order:
//
//   - strip one layer of wrapping double quotes, then single quotes
//   - strip a trailing period unless the title ends with an ellipsis
//   - collapse whitespace
//   - "word-word" becomes "word - word"
//   - "word,word" becomes "word, word" and "word ," becomes "word,"
//   - "word(" becomes "word (" and ")word" becomes ") word"
func NormalizeTitle(value string) string {
	if value == "" {
		return value
	}

	value = unwrap(value, `"`)
	value = unwrap(value, `'`)

	if strings.HasSuffix(value, ".") && !strings.HasSuffix(value, "...") {
		value = strings.TrimSuffix(value, ".")
	}

	value = strings.Join(strings.Fields(value), " ")

	value = hyphenAfterWordRe.ReplaceAllString(value, "${1} -")
	value = hyphenBeforeWordRe.ReplaceAllString(value, "- ${1}")

	value = commaRe.ReplaceAllString(value, "${1}, ${2}")
	value = spaceCommaRe.ReplaceAllString(value, "${1},")

	value = openParenRe.ReplaceAllString(value, "${1} (")
	value = closeParenRe.ReplaceAllString(value, ") ${1}")

	return value
}

func unwrap(value, quote string) string {
	if len(value) >= 2 && strings.HasPrefix(value, quote) && strings.HasSuffix(value, quote) {
		return value[1 : len(value)-1]
	}
	return value
}
