package assembler

import (
	"path"
	"regexp"
	"strings"
)

// capitalizedWord matches capitalized or CamelCase terms in a question, the
// usual way people name types and components ("UserProfile", "Cache Manager").
var capitalizedWord = regexp.MustCompile(`\b[A-Z][A-Za-z0-9]*\b`)

// boostCandidates turns capitalized noun phrases in the question into
// conventional file paths worth trying. Consecutive capitalized words are
// also joined into one phrase, so "Cache Manager" yields cache_manager too.
func boostCandidates(question string) []string {
	words := capitalizedWord.FindAllStringIndex(question, -1)
	if len(words) == 0 {
		return nil
	}

	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		s := snake(name)
		if s != "" && !seen[s] {
			seen[s] = true
			names = append(names, s)
		}
	}

	var phrase []string
	lastEnd := -1
	for _, span := range words {
		word := question[span[0]:span[1]]
		add(word)
		// Words separated by a single space extend the current phrase.
		if lastEnd >= 0 && span[0] == lastEnd+1 && question[lastEnd] == ' ' {
			phrase = append(phrase, word)
		} else {
			if len(phrase) > 1 {
				add(strings.Join(phrase, ""))
			}
			phrase = []string{word}
		}
		lastEnd = span[1]
	}
	if len(phrase) > 1 {
		add(strings.Join(phrase, ""))
	}

	var candidates []string
	for _, n := range names {
		candidates = append(candidates,
			n+".go",
			path.Join("internal", n, n+".go"),
			path.Join("pkg", n, n+".go"),
			n+".py",
			n+".rb",
			path.Join("app", "models", n+".rb"),
			path.Join("lib", n+".rb"),
			n+".ts",
			n+".js",
		)
	}
	return candidates
}

// snake converts CamelCase to snake_case ("UserProfile" → "user_profile").
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
