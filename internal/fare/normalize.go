package fare

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	separators    = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// systemPhrases name a rail system and may lead or trail a station name.
// Longer phrases come first so "lrt 1" is removed whole.
var systemPhrases = [][]string{
	{"lrt", "1"}, {"lrt", "2"}, {"mrt", "3"},
	{"line", "1"}, {"line", "2"}, {"line", "3"},
	{"lrt1"}, {"lrt2"}, {"mrt3"},
	{"lrt"}, {"mrt"}, {"pnr"},
}

// stationSuffixes only ever trail a station name.
var stationSuffixes = [][]string{
	{"train", "station"},
	{"station"}, {"stn"},
}

// NormalizeStation reduces a stop or fare table station name to its lookup
// key: lowercase, punctuation and parentheticals removed, whitespace
// collapsed, and rail system names or "Station" suffixes stripped.
//
//	"EDSA Station (LRT-1)"     -> "edsa"
//	"LRT-1 Monumento"          -> "monumento"
//	"Taft Avenue MRT-3 Station" -> "taft avenue"
//
// A name made only of such words is kept rather than reduced to nothing.
func NormalizeStation(name string) string {
	s := strings.ToLower(name)
	s = parenthetical.ReplaceAllString(s, " ")
	s = separators.ReplaceAllString(s, " ")
	tokens := strings.Fields(s)
	for {
		trimmed := trimAffix(tokens)
		if len(trimmed) == len(tokens) {
			break
		}
		tokens = trimmed
	}
	return strings.Join(tokens, " ")
}

// trimAffix removes one leading system phrase or one trailing system phrase
// or station suffix, never emptying tokens.
func trimAffix(tokens []string) []string {
	for _, p := range stationSuffixes {
		if hasSuffixTokens(tokens, p) {
			return tokens[:len(tokens)-len(p)]
		}
	}
	for _, p := range systemPhrases {
		if hasSuffixTokens(tokens, p) {
			return tokens[:len(tokens)-len(p)]
		}
		if hasPrefixTokens(tokens, p) {
			return tokens[len(p):]
		}
	}
	return tokens
}

func hasSuffixTokens(tokens, phrase []string) bool {
	if len(tokens) <= len(phrase) {
		return false
	}
	tail := tokens[len(tokens)-len(phrase):]
	for i := range phrase {
		if tail[i] != phrase[i] {
			return false
		}
	}
	return true
}

func hasPrefixTokens(tokens, phrase []string) bool {
	if len(tokens) <= len(phrase) {
		return false
	}
	for i := range phrase {
		if tokens[i] != phrase[i] {
			return false
		}
	}
	return true
}
