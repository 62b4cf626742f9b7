package strings

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts identifiers to snake_case.
// Runs of non-alphanumeric characters become a single underscore and
// acronyms are kept together (HTTPRequest -> http_request).
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	pendingSep := false

	for i, r := range runes {
		if !isWordRune(r) {
			pendingSep = result.Len() > 0
			continue
		}
		if unicode.IsUpper(r) && i > 0 && isWordRune(runes[i-1]) {
			prev := runes[i-1]
			// Split before an uppercase letter that follows a lowercase letter
			// or digit, or that starts a word after an acronym.
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				pendingSep = true
			} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				pendingSep = true
			}
		}
		if pendingSep && result.Len() > 0 {
			result.WriteRune('_')
		}
		pendingSep = false
		result.WriteRune(unicode.ToLower(r))
	}
	return result.String()
}

// ToPascalCase splits on non-alphanumeric characters and upper-cases the
// first letter of each segment (wp-post -> WpPost, book -> Book).
func ToPascalCase(s string) string {
	var result strings.Builder
	for _, segment := range strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) }) {
		runes := []rune(segment)
		result.WriteRune(unicode.ToUpper(runes[0]))
		result.WriteString(string(runes[1:]))
	}
	return result.String()
}

func isWordRune(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
