package extract

import (
	"github.com/mstrand/serp-audit/internal/canonical"
	"github.com/mstrand/serp-audit/internal/models"
	"github.com/mstrand/serp-audit/internal/resolve"
)

// Organic extracts the organic result list. Rank follows payload list order
// (1-based); when an explicit position field disagrees with list order, the
// explicit field wins and a discrepancy warning is emitted. Ranks stay unique
// within the list: a position already taken falls back to list order.
func Organic(in Input) ([]models.OrganicResult, []models.ParsingWarning) {
	var warnings []models.ParsingWarning

	list, listKey, ok := resolve.AttrPath(in.Payload, "organic.results", resolve.List)
	if !ok {
		return nil, nil
	}

	ranks := newRankTracker()
	var records []models.OrganicResult
	for i, item := range list.Array() {
		rawPath := itemPath(listKey, i)
		explicit := 0
		if pos, found := resolve.Attr(item, "organic.position", resolve.Scalar); found {
			explicit = int(pos.Int())
		}
		rank := ranks.assign(string(models.KindOrganic), rawPath, i+1, explicit, &warnings)

		link := stringField(item, "organic.link", string(models.KindOrganic), "link", rawPath, &warnings)
		domain := canonical.Domain(link)

		rec := models.OrganicResult{
			RecordMeta: in.meta(rank, rawPath),
			Title:      stringField(item, "organic.title", string(models.KindOrganic), "title", rawPath, &warnings),
			Link:       link,
			Snippet:    stringField(item, "organic.snippet", string(models.KindOrganic), "snippet", rawPath, &warnings),
			Domain:     domain,
			EntityType: in.entityType(domain),
		}
		if v, found := resolve.Attr(item, "organic.displayed_link", resolve.Scalar); found {
			rec.DisplayedLink = v.String()
		}
		records = append(records, rec)
	}

	return records, warnings
}
