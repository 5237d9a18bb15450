package extract

import (
	"github.com/mstrand/serp-audit/internal/models"
	"github.com/mstrand/serp-audit/internal/resolve"
)

// Paid extracts the ad blocks. Same ranking rule as organic: list order wins
// unless an explicit position field disagrees, and ranks stay unique within
// the list.
func Paid(in Input) ([]models.PaidResult, []models.ParsingWarning) {
	var warnings []models.ParsingWarning

	list, listKey, ok := resolve.AttrPath(in.Payload, "paid.results", resolve.List)
	if !ok {
		return nil, nil
	}

	ranks := newRankTracker()
	var records []models.PaidResult
	for i, item := range list.Array() {
		rawPath := itemPath(listKey, i)
		explicit := 0
		if pos, found := resolve.Attr(item, "paid.position", resolve.Scalar); found {
			explicit = int(pos.Int())
		}
		rank := ranks.assign(string(models.KindPaid), rawPath, i+1, explicit, &warnings)

		block := "top"
		if v, found := resolve.Attr(item, "paid.block_position", resolve.Scalar); found && v.String() == "bottom" {
			block = "bottom"
		}

		rec := models.PaidResult{
			RecordMeta:    in.meta(rank, rawPath),
			BlockPosition: block,
			Title:         stringField(item, "paid.title", string(models.KindPaid), "title", rawPath, &warnings),
			Link:          stringField(item, "paid.link", string(models.KindPaid), "link", rawPath, &warnings),
		}
		if v, found := resolve.Attr(item, "paid.description", resolve.Scalar); found {
			rec.Description = v.String()
		}
		if v, found := resolve.Attr(item, "paid.displayed_link", resolve.Scalar); found {
			rec.DisplayedLink = v.String()
		}
		records = append(records, rec)
	}

	return records, warnings
}
