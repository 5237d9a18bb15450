package models

// RecordMeta carries the traceability fields shared by every module record:
// the run it belongs to, the engine call it came from, and a stable locator
// into the originating raw payload.
type RecordMeta struct {
	RunID        string `json:"run_id"`
	Query        string `json:"query"`
	SourceEngine string `json:"source_engine"`
	RawPath      string `json:"raw_path"`
	Rank         int    `json:"rank"`
}

// PaidResult is one ad, top or bottom block.
type PaidResult struct {
	RecordMeta
	BlockPosition string `json:"block_position"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Link          string `json:"link"`
	DisplayedLink string `json:"displayed_link"`
}

// OrganicResult is one organic listing.
type OrganicResult struct {
	RecordMeta
	Title         string `json:"title"`
	Link          string `json:"link"`
	DisplayedLink string `json:"displayed_link"`
	Snippet       string `json:"snippet"`
	Domain        string `json:"domain"`
	EntityType    string `json:"entity_type,omitempty"`
}

// LocalPlace is one local-pack or maps listing. Optional attributes stay nil
// when the payload carried nothing under any candidate key.
type LocalPlace struct {
	RecordMeta
	Name     string   `json:"name"`
	Category *string  `json:"category"`
	Rating   *float64 `json:"rating"`
	Reviews  *int64   `json:"reviews"`
	Address  *string  `json:"address"`
	Phone    *string  `json:"phone"`
	Website  *string  `json:"website"`
	PlaceID  *string  `json:"place_id"`
}

// PAAQuestion is one people-also-ask entry. Question keeps the original text
// for display; dedupe uses the canonical form computed at merge time.
type PAAQuestion struct {
	RecordMeta
	Question    string `json:"question"`
	Snippet     string `json:"snippet,omitempty"`
	Link        string `json:"link,omitempty"`
	Category    string `json:"category"`
	Score       int    `json:"score"`
	AIGenerated bool   `json:"ai_generated"`
}

// RelatedSearch is one query-expansion term: a bottom-of-page related search
// or a people-also-search-for item found inline or in the knowledge box.
type RelatedSearch struct {
	RecordMeta
	Type string `json:"type"`
	Term string `json:"term"`
	Link string `json:"link,omitempty"`
}

const (
	RelatedTypeSearch     = "related_search"
	RelatedTypePASFInline = "pasf_inline"
	RelatedTypePASFBox    = "pasf_box"
)

// AIOverviewBlock is one paragraph-level block of the synthesized answer.
type AIOverviewBlock struct {
	Rank int    `json:"rank"`
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// AIOverviewCitation is one source the answer cites.
type AIOverviewCitation struct {
	RecordMeta
	Title      string `json:"title"`
	Link       string `json:"link"`
	Domain     string `json:"domain"`
	EntityType string `json:"entity_type,omitempty"`
}

// AIOverview bundles the answer blocks with their citations. Incomplete marks
// a section that needs a dedicated follow-up call to be read in full.
// ReadingLevel is the Flesch-Kincaid grade of the joined block text, nil when
// the text holds no scorable words.
type AIOverview struct {
	SourceEngine string               `json:"source_engine"`
	RawPath      string               `json:"raw_path"`
	Blocks       []AIOverviewBlock    `json:"blocks"`
	Citations    []AIOverviewCitation `json:"citations"`
	Incomplete   bool                 `json:"incomplete"`
	ReadingLevel *float64             `json:"reading_level,omitempty"`
	PageToken    string               `json:"-"`
}

// AI-overview completion modes, mirrored onto the record for auditability.
const (
	AIOModeNotPresent      = "not_present"
	AIOModeDirectInMain    = "direct_in_main"
	AIOModeFollowupSuccess = "token_followup_success"
	AIOModeFollowupFailed  = "token_followup_failed"
)

// RichItem is one representative item of a rich feature.
type RichItem struct {
	Rank   int    `json:"rank"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// RichFeature records one detected feature of the fixed feature catalog.
// PresenceOnly means the feature was detected but its items could not be
// parsed into RichItems.
type RichFeature struct {
	RecordMeta
	Feature      RichFeatureKind `json:"feature"`
	Detail       string          `json:"detail,omitempty"`
	Items        []RichItem      `json:"items"`
	PresenceOnly bool            `json:"presence_only"`
}

// OrderSource tells whether a module's position came from the payload or from
// the fallback precedence.
type OrderSource string

const (
	OrderExplicit OrderSource = "explicit"
	OrderInferred OrderSource = "inferred"
)

// ModuleOrderEntry places one catalog kind on the page. Absent kinds still get
// an entry with Present=false so the list length never varies between runs.
type ModuleOrderEntry struct {
	Module      ModuleKind  `json:"module"`
	OrderIndex  int         `json:"order_index"`
	Present     bool        `json:"present"`
	OrderSource OrderSource `json:"order_source"`
	Basis       string      `json:"basis,omitempty"`
}

// NormalizedRecord is the per-run aggregate handed to every downstream
// consumer. It is assembled once by the merge coordinator and immutable after
// that.
type NormalizedRecord struct {
	QueryContext    QueryContext        `json:"query_context"`
	Modules         []ModuleOrderEntry  `json:"modules"`
	Paid            []PaidResult        `json:"paid"`
	Organic         []OrganicResult     `json:"organic"`
	LocalPack       []LocalPlace        `json:"local_pack"`
	MapsResults     []LocalPlace        `json:"maps_results"`
	PAA             []PAAQuestion       `json:"paa"`
	RelatedSearches []RelatedSearch     `json:"related_searches"`
	AIOverview      *AIOverview         `json:"ai_overview"`
	RichFeatures    []RichFeature       `json:"rich_features"`
	AIOverviewMode  string              `json:"ai_overview_mode"`
	FeatureFlags    map[ModuleKind]bool `json:"feature_flags"`
	ParsingWarnings []ParsingWarning    `json:"parsing_warnings"`
	DroppedDupes    int                 `json:"dropped_duplicates"`
}

// RecordCount returns how many records the kind's list holds.
func (r *NormalizedRecord) RecordCount(kind ModuleKind) int {
	switch kind {
	case KindPaid:
		return len(r.Paid)
	case KindOrganic:
		return len(r.Organic)
	case KindLocalPack:
		return len(r.LocalPack)
	case KindMapsResults:
		return len(r.MapsResults)
	case KindPAA:
		return len(r.PAA)
	case KindRelatedSearches:
		return len(r.RelatedSearches)
	case KindRichFeatures:
		return len(r.RichFeatures)
	case KindAIOverview:
		if r.AIOverview == nil {
			return 0
		}
		return len(r.AIOverview.Blocks)
	}
	return 0
}

// DeriveFeatureFlags recomputes the flag set from the record lists. Flags are
// a derived view only; there is no other way to set them, which keeps flag and
// data from ever diverging.
func (r *NormalizedRecord) DeriveFeatureFlags() {
	flags := make(map[ModuleKind]bool, len(Catalog()))
	for _, kind := range Catalog() {
		flags[kind] = r.RecordCount(kind) > 0
	}
	r.FeatureFlags = flags
}

// ModuleCounts returns the per-kind record counts, the input the order
// inference engine works from.
func (r *NormalizedRecord) ModuleCounts() map[ModuleKind]int {
	counts := make(map[ModuleKind]int, len(Catalog()))
	for _, kind := range Catalog() {
		counts[kind] = r.RecordCount(kind)
	}
	return counts
}
