package extract

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/mstrand/serp-audit/internal/canonical"
	"github.com/mstrand/serp-audit/internal/models"
	"github.com/mstrand/serp-audit/internal/resolve"
)

// RichFeatures checks the fixed feature catalog against the payload. A
// detected feature with item-level data yields up to MaxFeatureItems
// representative items; a feature whose shape cannot be parsed into items is
// recorded presence-only with a warning.
func RichFeatures(in Input) ([]models.RichFeature, []models.ParsingWarning) {
	var records []models.RichFeature
	var warnings []models.ParsingWarning

	maxItems := in.MaxFeatureItems
	if maxItems <= 0 {
		maxItems = 5
	}

	rank := 0
	for _, feature := range models.RichFeatureCatalog() {
		attr := "feature." + string(feature)
		node, matchedKey, ok := resolve.AttrPath(in.Payload, attr, resolve.Any)
		if !ok {
			continue
		}
		rank++

		rec := models.RichFeature{
			RecordMeta: in.meta(rank, matchedKey),
			Feature:    feature,
		}

		switch {
		case node.IsArray():
			rec.Items = featureItems(node, maxItems)
			rec.Detail = fmt.Sprintf("%d items", len(node.Array()))
		case node.IsObject():
			rec.Detail = objectDetail(node)
			if rec.Detail == "" {
				warnings = append(warnings, models.SchemaWarning(
					string(models.KindRichFeatures), string(feature)+".title",
					resolve.Keys("feature.item_title"), matchedKey))
			}
			if item, itemOK := objectItem(node); itemOK {
				rec.Items = []models.RichItem{item}
			}
		}

		if len(rec.Items) == 0 {
			rec.PresenceOnly = true
			warnings = append(warnings, models.ParsingWarning{
				Module:  string(models.KindRichFeatures),
				Field:   string(feature),
				RawPath: matchedKey,
				Message: "feature present but items could not be parsed",
			})
		}
		records = append(records, rec)
	}

	return records, warnings
}

func featureItems(list gjson.Result, maxItems int) []models.RichItem {
	var items []models.RichItem
	for i, node := range list.Array() {
		if i >= maxItems {
			break
		}
		if !node.IsObject() {
			continue
		}
		item := richItem(node, i+1)
		if item.Title == "" && item.Link == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// objectDetail summarizes a single-object feature (knowledge panel, featured
// snippet) by its title.
func objectDetail(node gjson.Result) string {
	if t, ok := resolve.Attr(node, "feature.item_title", resolve.Scalar); ok {
		return t.String()
	}
	return ""
}

func objectItem(node gjson.Result) (models.RichItem, bool) {
	item := richItem(node, 1)
	return item, item.Title != "" || item.Link != ""
}

func richItem(node gjson.Result, rank int) models.RichItem {
	item := models.RichItem{Rank: rank}
	if t, ok := resolve.Attr(node, "feature.item_title", resolve.Scalar); ok {
		item.Title = t.String()
	}
	if l, ok := resolve.Attr(node, "feature.item_link", resolve.Scalar); ok {
		item.Link = l.String()
		item.Domain = canonical.Domain(item.Link)
	}
	return item
}
