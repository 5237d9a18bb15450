package extract

import (
	"github.com/tidwall/gjson"

	"github.com/mstrand/serp-audit/internal/models"
	"github.com/mstrand/serp-audit/internal/resolve"
)

// LocalPack extracts the local-pack places embedded in a primary payload.
func LocalPack(in Input) ([]models.LocalPlace, []models.ParsingWarning) {
	return places(in, "local.results", models.KindLocalPack)
}

// MapsResults extracts places from a dedicated maps payload.
func MapsResults(in Input) ([]models.LocalPlace, []models.ParsingWarning) {
	return places(in, "maps.results", models.KindMapsResults)
}

// places resolves each optional place attribute against its candidate-key
// list. Anything not found is stored null with one warning naming the
// attribute and keys tried; extraction never aborts for missing attributes.
func places(in Input, listAttr string, kind models.ModuleKind) ([]models.LocalPlace, []models.ParsingWarning) {
	var warnings []models.ParsingWarning

	list, listKey, ok := resolve.AttrPath(in.Payload, listAttr, resolve.List)
	if !ok {
		return nil, nil
	}

	module := string(kind)
	var records []models.LocalPlace
	for i, item := range list.Array() {
		rawPath := itemPath(listKey, i)
		rec := models.LocalPlace{
			RecordMeta: in.meta(i+1, rawPath),
			Name:       stringField(item, "local.name", module, "name", rawPath, &warnings),
			Category:   optString(item, "local.category", module, "category", rawPath, &warnings),
			Rating:     optFloat(item, "local.rating", module, "rating", rawPath, &warnings),
			Reviews:    optInt(item, "local.reviews", module, "reviews", rawPath, &warnings),
			Address:    optString(item, "local.address", module, "address", rawPath, &warnings),
			Phone:      optString(item, "local.phone", module, "phone", rawPath, &warnings),
			Website:    optString(item, "local.website", module, "website", rawPath, &warnings),
			PlaceID:    optString(item, "local.place_id", module, "place_id", rawPath, &warnings),
		}
		records = append(records, rec)
	}

	return records, warnings
}

func optFloat(node gjson.Result, attr, module, field, rawPath string, warnings *[]models.ParsingWarning) *float64 {
	v, ok := resolve.Attr(node, attr, resolve.Scalar)
	if !ok {
		*warnings = append(*warnings, models.SchemaWarning(module, field, resolve.Keys(attr), rawPath))
		return nil
	}
	f := v.Float()
	return &f
}

func optInt(node gjson.Result, attr, module, field, rawPath string, warnings *[]models.ParsingWarning) *int64 {
	v, ok := resolve.Attr(node, attr, resolve.Scalar)
	if !ok {
		*warnings = append(*warnings, models.SchemaWarning(module, field, resolve.Keys(attr), rawPath))
		return nil
	}
	n := v.Int()
	return &n
}
