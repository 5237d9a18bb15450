// Package classify holds the rules-based classifiers: intent buckets for
// people-also-ask questions and entity types for result domains.
package classify

import "strings"

// Intent buckets for question text. Anything that matches no trigger stays
// General with the baseline score.
const (
	IntentGeneral    = "general"
	IntentCommercial = "commercial"
	IntentDistress   = "distress"
	IntentReactivity = "reactivity"
)

const (
	baseScore    = 1
	triggerScore = 10
)

// triggerMap is evaluated in a fixed order so classification is deterministic
// when a question matches more than one bucket.
var triggerOrder = []string{IntentCommercial, IntentDistress, IntentReactivity}

var triggerMap = map[string][]string{
	IntentCommercial: {"cost", "price", "how much", "fees"},
	IntentDistress:   {"survive", "divorce", "infidelity", "leave", "separation"},
	IntentReactivity: {"narcissist", "toxic", "signs", "mean", "angry", "cut off", "hate"},
}

// Intent scores a question by its first matching trigger bucket.
func Intent(question string) (category string, score int) {
	q := strings.ToLower(question)
	if q == "" {
		return IntentGeneral, baseScore
	}
	for _, cat := range triggerOrder {
		for _, trigger := range triggerMap[cat] {
			if strings.Contains(q, trigger) {
				return cat, triggerScore
			}
		}
	}
	return IntentGeneral, baseScore
}
