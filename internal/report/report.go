// Package report computes the content-strategy summaries consumed by the API:
// n-gram frequency over competitor language and per-module feature frequency
// across recent runs.
package report

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mstrand/serp-audit/internal/models"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "to": {}, "of": {}, "a": {}, "in": {}, "is": {},
	"for": {}, "on": {}, "with": {}, "as": {}, "at": {}, "by": {}, "an": {},
	"be": {}, "or": {}, "are": {}, "from": {}, "that": {}, "this": {},
	"it": {}, "we": {}, "our": {}, "us": {}, "can": {}, "will": {},
	"your": {}, "you": {}, "my": {}, "me": {}, "not": {}, "have": {},
	"has": {}, "but": {}, "so": {}, "if": {}, "their": {}, "they": {},
}

// NGrams splits text into n-word phrases after dropping punctuation,
// stop-words, and tokens shorter than three characters.
func NGrams(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	clean := nonWord.ReplaceAllString(strings.ToLower(text), "")
	fields := strings.Fields(clean)
	words := fields[:0]
	for _, w := range fields {
		if len([]rune(w)) <= 2 {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		words = append(words, w)
	}
	if len(words) < n {
		return nil
	}
	grams := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		grams = append(grams, strings.Join(words[i:i+n], " "))
	}
	return grams
}

// PhraseCount is one row of the language report.
type PhraseCount struct {
	Type   string `json:"type"`
	Phrase string `json:"phrase"`
	Count  int    `json:"count"`
}

// LanguageReport counts bigrams and trigrams over the competitor-facing text
// of the given records: organic snippets, AI-overview blocks, ad copy, and
// expansion terms. Bigrams come first, each group sorted by count descending
// then phrase ascending, so output is deterministic.
func LanguageReport(records []models.NormalizedRecord) []PhraseCount {
	var snippets []string
	for i := range records {
		rec := &records[i]
		for _, o := range rec.Organic {
			if o.Snippet != "" {
				snippets = append(snippets, o.Snippet)
			}
		}
		if rec.AIOverview != nil {
			for _, b := range rec.AIOverview.Blocks {
				if b.Text != "" {
					snippets = append(snippets, b.Text)
				}
			}
		}
		for _, p := range rec.Paid {
			if p.Description != "" {
				snippets = append(snippets, p.Description)
			}
		}
		for _, r := range rec.RelatedSearches {
			if r.Term != "" {
				snippets = append(snippets, r.Term)
			}
		}
	}

	bigrams := map[string]int{}
	trigrams := map[string]int{}
	for _, s := range snippets {
		for _, g := range NGrams(s, 2) {
			bigrams[g]++
		}
		for _, g := range NGrams(s, 3) {
			trigrams[g]++
		}
	}

	out := countRows("bigram", bigrams)
	return append(out, countRows("trigram", trigrams)...)
}

func countRows(typ string, freq map[string]int) []PhraseCount {
	rows := make([]PhraseCount, 0, len(freq))
	for phrase, count := range freq {
		rows = append(rows, PhraseCount{Type: typ, Phrase: phrase, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Phrase < rows[j].Phrase
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// FeatureSummary counts how many of the given runs carried each module kind.
func FeatureSummary(records []models.NormalizedRecord) map[models.ModuleKind]int {
	summary := make(map[models.ModuleKind]int, len(models.Catalog()))
	for _, kind := range models.Catalog() {
		summary[kind] = 0
	}
	for i := range records {
		for kind, present := range records[i].FeatureFlags {
			if present {
				summary[kind]++
			}
		}
	}
	return summary
}
