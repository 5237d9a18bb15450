package report

import (
	"math"
	"regexp"
	"strings"
)

var (
	nonTextual  = regexp.MustCompile(`[^\w\s.?!]`)
	sentenceEnd = regexp.MustCompile(`[.?!]+`)
)

// ReadingLevel scores text on the Flesch-Kincaid grade-level scale, rounded
// to one decimal. The second return is false when the text holds no scorable
// words.
func ReadingLevel(text string) (float64, bool) {
	clean := nonTextual.ReplaceAllString(text, "")
	words := strings.Fields(clean)
	if len(words) == 0 {
		return 0, false
	}

	sentences := 0
	for _, s := range sentenceEnd.Split(clean, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		return 0, false
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	score := 0.39*(float64(len(words))/float64(sentences)) +
		11.8*(float64(syllables)/float64(len(words))) - 15.59
	return math.Round(score*10) / 10, true
}

// countSyllables estimates syllables by counting vowel groups, with the usual
// silent-e adjustment. Every word counts as at least one syllable.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	isVowel := func(r rune) bool {
		return strings.ContainsRune("aeiouy", r)
	}

	count := 0
	prevVowel := false
	for i, r := range word {
		v := isVowel(r)
		if v && (i == 0 || !prevVowel) {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(word, "e") {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}
