package engine

import (
	"fmt"
	"sort"

	"github.com/mstrand/serp-audit/internal/canonical"
	"github.com/mstrand/serp-audit/internal/models"
)

// Dedupe runs within one module kind only; cross-kind collisions are never
// merged. First occurrence by rank wins. Duplication is expected, so drops
// are counted, not warned.

func dedupeOrganic(records []models.OrganicResult) ([]models.OrganicResult, int) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Rank < records[j].Rank })
	return dedupeBy(records, func(r models.OrganicResult) string {
		return canonical.URL(r.Link)
	})
}

func dedupePaid(records []models.PaidResult) ([]models.PaidResult, int) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Rank < records[j].Rank })
	return dedupeBy(records, func(r models.PaidResult) string {
		return canonical.URL(r.Link)
	})
}

func dedupePAA(records []models.PAAQuestion) ([]models.PAAQuestion, int) {
	return dedupeBy(records, func(r models.PAAQuestion) string {
		return canonical.Text(r.Question)
	})
}

func dedupeRelated(records []models.RelatedSearch) ([]models.RelatedSearch, int) {
	return dedupeBy(records, func(r models.RelatedSearch) string {
		return canonical.Text(r.Term)
	})
}

// dedupePlaces keys on the place identifier when one exists, else on the
// canonical name+address composite.
func dedupePlaces(records []models.LocalPlace) ([]models.LocalPlace, int) {
	return dedupeBy(records, placeKey)
}

func placeKey(r models.LocalPlace) string {
	if r.PlaceID != nil && *r.PlaceID != "" {
		return "id:" + *r.PlaceID
	}
	address := ""
	if r.Address != nil {
		address = *r.Address
	}
	return "na:" + canonical.Text(r.Name) + "|" + canonical.Text(address)
}

func dedupeRichFeatures(records []models.RichFeature) ([]models.RichFeature, int) {
	return dedupeBy(records, func(r models.RichFeature) string {
		return string(r.Feature)
	})
}

func dedupeCitations(records []models.AIOverviewCitation) ([]models.AIOverviewCitation, int) {
	return dedupeBy(records, func(r models.AIOverviewCitation) string {
		return canonical.URL(r.Link)
	})
}

// dedupeBy keeps the first record per key, preserving order. Records with an
// empty key are never considered duplicates of each other.
func dedupeBy[T any](records []T, key func(T) string) ([]T, int) {
	if len(records) == 0 {
		return records, 0
	}
	seen := make(map[string]struct{}, len(records))
	kept := records[:0]
	dropped := 0
	for i, r := range records {
		k := key(r)
		if k == "" {
			k = fmt.Sprintf("\x00empty:%d", i)
		}
		if _, dup := seen[k]; dup {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dropped
}
