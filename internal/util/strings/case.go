package strings

import (
	"strings"
	"unicode"
)

// ToPascalCase turns a capability id or constant name into an exported Go
// identifier fragment: "vote.cast" -> "VoteCast", "LEADER_PLUGIN" ->
// "LeaderPlugin", "leaderPluginRef" -> "LeaderPluginRef".
// Words in all caps are lowered; mixed-case words keep their inner casing.
func ToPascalCase(s string) string {
	var result strings.Builder
	for _, word := range Words(s) {
		runes := []rune(word)
		if isUpperWord(runes) {
			runes = []rune(strings.ToLower(word))
		}
		runes[0] = unicode.ToUpper(runes[0])
		result.WriteString(string(runes))
	}
	return result.String()
}

// Words splits s on every rune that cannot appear in a Go identifier.
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isUpperWord(runes []rune) bool {
	letters := 0
	for _, r := range runes {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters > 1
}
