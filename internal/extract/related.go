package extract

import (
	"github.com/mstrand/serp-audit/internal/models"
	"github.com/mstrand/serp-audit/internal/resolve"
)

// RelatedSearches extracts every query-expansion item: bottom-of-page related
// searches plus the two people-also-search-for placements. Ranks run across
// the three groups in that order. No semantic filtering.
func RelatedSearches(in Input) ([]models.RelatedSearch, []models.ParsingWarning) {
	var records []models.RelatedSearch
	var warnings []models.ParsingWarning

	groups := []struct {
		listAttr string
		termAttr string
		typ      string
	}{
		{"related.results", "related.term", models.RelatedTypeSearch},
		{"pasf.inline", "pasf.term", models.RelatedTypePASFInline},
		{"pasf.box", "pasf.term", models.RelatedTypePASFBox},
	}

	rank := 0
	for _, g := range groups {
		list, listKey, ok := resolve.AttrPath(in.Payload, g.listAttr, resolve.List)
		if !ok {
			continue
		}
		for i, item := range list.Array() {
			rawPath := itemPath(listKey, i)
			rank++
			rec := models.RelatedSearch{
				RecordMeta: in.meta(rank, rawPath),
				Type:       g.typ,
				Term:       stringField(item, g.termAttr, string(models.KindRelatedSearches), "term", rawPath, &warnings),
			}
			if v, found := resolve.Attr(item, "related.link", resolve.Scalar); found {
				rec.Link = v.String()
			}
			records = append(records, rec)
		}
	}

	return records, warnings
}
