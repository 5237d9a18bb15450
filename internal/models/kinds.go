package models

// ModuleKind identifies one SERP content block kind. The set of kinds is a
// fixed catalog: every run produces exactly one ModuleOrderEntry per kind,
// present or not, so downstream tabular comparison sees a constant layout.
type ModuleKind string

const (
	KindPaid            ModuleKind = "paid"
	KindAIOverview      ModuleKind = "ai_overview"
	KindLocalPack       ModuleKind = "local_pack"
	KindOrganic         ModuleKind = "organic"
	KindPAA             ModuleKind = "paa"
	KindRelatedSearches ModuleKind = "related_searches"
	KindRichFeatures    ModuleKind = "rich_features"
	KindMapsResults     ModuleKind = "maps_results"
)

// Catalog returns the module kinds in fallback precedence order: the order a
// module typically occupies on the page when the payload carries no explicit
// ordering signal. Maps results come last since they never render on the page
// itself.
func Catalog() []ModuleKind {
	return []ModuleKind{
		KindPaid,
		KindAIOverview,
		KindLocalPack,
		KindOrganic,
		KindPAA,
		KindRelatedSearches,
		KindRichFeatures,
		KindMapsResults,
	}
}

// KnownKind reports whether name matches a catalog kind.
func KnownKind(name string) (ModuleKind, bool) {
	for _, k := range Catalog() {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// RichFeatureKind names one entry of the fixed rich-feature catalog.
type RichFeatureKind string

const (
	FeatureKnowledgePanel  RichFeatureKind = "knowledge_panel"
	FeatureFeaturedSnippet RichFeatureKind = "featured_snippet"
	FeatureFAQ             RichFeatureKind = "faq"
	FeatureHowTo           RichFeatureKind = "how_to"
	FeatureVideoPack       RichFeatureKind = "video_pack"
	FeatureImagePack       RichFeatureKind = "image_pack"
	FeatureShopping        RichFeatureKind = "shopping"
	FeatureTopStories      RichFeatureKind = "top_stories"
	FeatureSitelinks       RichFeatureKind = "sitelinks"
)

// RichFeatureCatalog lists every feature kind checked during extraction.
func RichFeatureCatalog() []RichFeatureKind {
	return []RichFeatureKind{
		FeatureKnowledgePanel,
		FeatureFeaturedSnippet,
		FeatureFAQ,
		FeatureHowTo,
		FeatureVideoPack,
		FeatureImagePack,
		FeatureShopping,
		FeatureTopStories,
		FeatureSitelinks,
	}
}
