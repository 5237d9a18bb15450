package extract_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mstrand/serp-audit/internal/extract"
	"github.com/mstrand/serp-audit/internal/models"
)

func TestRichFeaturesArrayItemsCapped(t *testing.T) {
	in := testInput(`{
		"inline_videos": [
			{"title": "v1", "link": "https://v.example/1"},
			{"title": "v2", "link": "https://v.example/2"},
			{"title": "v3", "link": "https://v.example/3"},
			{"title": "v4", "link": "https://v.example/4"}
		]
	}`)
	in.MaxFeatureItems = 2

	records, warnings := extract.RichFeatures(in)
	require.Len(t, records, 1)
	require.Empty(t, warnings)

	feature := records[0]
	require.Equal(t, models.FeatureVideoPack, feature.Feature)
	require.Equal(t, "inline_videos", feature.RawPath)
	require.Equal(t, "4 items", feature.Detail)
	require.False(t, feature.PresenceOnly)

	require.Len(t, feature.Items, 2)
	require.Equal(t, "v1", feature.Items[0].Title)
	require.Equal(t, "v.example", feature.Items[0].Domain)
	require.Equal(t, 2, feature.Items[1].Rank)
}

func TestRichFeaturesObjectFeature(t *testing.T) {
	in := testInput(`{
		"knowledge_graph": {"title": "Some Entity", "link": "https://kg.example"}
	}`)

	records, warnings := extract.RichFeatures(in)
	require.Len(t, records, 1)
	require.Empty(t, warnings)

	feature := records[0]
	require.Equal(t, models.FeatureKnowledgePanel, feature.Feature)
	require.Equal(t, "Some Entity", feature.Detail)
	require.Len(t, feature.Items, 1)
	require.False(t, feature.PresenceOnly)
}

func TestRichFeaturesPresenceOnly(t *testing.T) {
	in := testInput(`{
		"answer_box": {"unrecognized": "shape"}
	}`)

	records, warnings := extract.RichFeatures(in)
	require.Len(t, records, 1)

	feature := records[0]
	require.Equal(t, models.FeatureFeaturedSnippet, feature.Feature)
	require.True(t, feature.PresenceOnly)
	require.Empty(t, feature.Items)

	// One warning for the unresolvable title, one for the itemless feature.
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		require.Equal(t, string(models.KindRichFeatures), w.Module)
	}
}

func TestRichFeaturesCatalogOrderAndRank(t *testing.T) {
	in := testInput(`{
		"top_stories": [{"title": "story", "link": "https://n.example"}],
		"answer_box": {"title": "snippet box"},
		"faq": [{"question": "Q?", "link": "https://f.example"}]
	}`)

	records, warnings := extract.RichFeatures(in)
	require.Empty(t, warnings)
	require.Len(t, records, 3)

	// Detection follows the fixed catalog order, not payload order.
	require.Equal(t, models.FeatureFeaturedSnippet, records[0].Feature)
	require.Equal(t, 1, records[0].Rank)
	require.Equal(t, models.FeatureFAQ, records[1].Feature)
	require.Equal(t, 2, records[1].Rank)
	require.Equal(t, models.FeatureTopStories, records[2].Feature)
	require.Equal(t, 3, records[2].Rank)
}

func TestRichFeaturesSitelinksNested(t *testing.T) {
	in := testInput(`{
		"organic_results": [
			{"title": "A", "link": "https://a.example", "sitelinks": {"inline": [{"title": "About", "link": "https://a.example/about"}]}}
		]
	}`)

	records, warnings := extract.RichFeatures(in)
	require.Empty(t, warnings)
	require.Len(t, records, 1)
	require.Equal(t, models.FeatureSitelinks, records[0].Feature)
	require.Len(t, records[0].Items, 1)
	require.Equal(t, "About", records[0].Items[0].Title)
}

func TestRichFeaturesNoneDetected(t *testing.T) {
	records, warnings := extract.RichFeatures(testInput(`{"organic_results": []}`))
	require.Nil(t, records)
	require.Nil(t, warnings)
}
