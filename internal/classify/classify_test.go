package classify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mstrand/serp-audit/internal/classify"
)

func TestIntent(t *testing.T) {
	cases := []struct {
		question string
		category string
		score    int
	}{
		{"How much does couples therapy cost?", classify.IntentCommercial, 10},
		{"What are the fees for a consultation?", classify.IntentCommercial, 10},
		{"Can a marriage survive infidelity?", classify.IntentDistress, 10},
		{"Signs of a toxic relationship", classify.IntentReactivity, 10},
		{"What is cognitive behavioral therapy?", classify.IntentGeneral, 1},
		{"", classify.IntentGeneral, 1},
	}

	for _, tc := range cases {
		t.Run(tc.question, func(t *testing.T) {
			category, score := classify.Intent(tc.question)
			require.Equal(t, tc.category, category)
			require.Equal(t, tc.score, score)
		})
	}
}

func TestIntentBucketOrderIsDeterministic(t *testing.T) {
	// Matches both commercial ("cost") and distress ("divorce"); commercial is
	// evaluated first.
	category, _ := classify.Intent("How much does a divorce cost?")
	require.Equal(t, classify.IntentCommercial, category)
}

func TestEntityClassifierDefaults(t *testing.T) {
	c, err := classify.NewEntityClassifier(nil)
	require.NoError(t, err)

	cases := map[string]string{
		"canada.gc.ca":            classify.EntityGovernment,
		"nih.gov":                 classify.EntityGovernment,
		"harvard.edu":             classify.EntityEducation,
		"redcross.org":            classify.EntityNonprofit,
		"yelp.com":                classify.EntityDirectory,
		"www.psychologytoday.com": classify.EntityDirectory,
		"psychologytoday.com":     classify.EntityDirectory,
		"random-shop.com":         classify.EntityCommercial,
		"":                        classify.EntityCommercial,
	}

	for domain, want := range cases {
		require.Equal(t, want, c.Classify(domain), domain)
	}
}

func TestEntityClassifierOverrides(t *testing.T) {
	overrides := []byte("special.org: directory\nanother.com: government\n")
	c, err := classify.NewEntityClassifier(overrides)
	require.NoError(t, err)

	require.Equal(t, classify.EntityDirectory, c.Classify("special.org"))
	require.Equal(t, classify.EntityGovernment, c.Classify("Another.COM"))
	require.Equal(t, classify.EntityNonprofit, c.Classify("plain.org"))
}

func TestEntityClassifierRejectsBadYAML(t *testing.T) {
	_, err := classify.NewEntityClassifier([]byte("not: [valid: yaml"))
	require.Error(t, err)
}
