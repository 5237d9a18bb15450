// Package serporder infers the on-page ordering of result modules. The
// upstream API rarely states where a module sat on the page; when it does
// (a modules_order array), that signal is used verbatim, otherwise a fixed
// precedence over the module catalog stands in, flagged as inferred.
package serporder

import (
	"github.com/tidwall/gjson"

	"github.com/mstrand/serp-audit/internal/models"
	"github.com/mstrand/serp-audit/internal/resolve"
)

// Hint reads the explicit ordering signal out of a payload, if any. Unknown
// module names are dropped.
func Hint(payload gjson.Result) []models.ModuleKind {
	if !payload.Exists() || payload.Type != gjson.JSON {
		return nil
	}
	list, ok := resolve.Value(payload, resolve.Keys("order.hint"), resolve.List)
	if !ok {
		return nil
	}
	var kinds []models.ModuleKind
	seen := map[models.ModuleKind]bool{}
	for _, item := range list.Array() {
		kind, known := models.KnownKind(item.String())
		if !known || seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds
}

// Infer produces the ordered module list. The entry set is always exhaustive
// over the catalog: absent kinds get present=false and an index consistent
// with the fallback precedence, keeping list length constant across runs.
// One warning is emitted per run when the fallback precedence stood in for an
// explicit signal: the payload carried no hint at all, or a present module
// had to be placed by inference.
func Infer(counts map[models.ModuleKind]int, hint []models.ModuleKind) ([]models.ModuleOrderEntry, []models.ParsingWarning) {
	entries := make([]models.ModuleOrderEntry, 0, len(models.Catalog()))
	placed := map[models.ModuleKind]bool{}

	for _, kind := range hint {
		entries = append(entries, models.ModuleOrderEntry{
			Module:      kind,
			OrderIndex:  len(entries) + 1,
			Present:     counts[kind] > 0,
			OrderSource: models.OrderExplicit,
			Basis:       "payload order signal",
		})
		placed[kind] = true
	}

	inferredPresent := false
	for _, kind := range models.Catalog() {
		if placed[kind] {
			continue
		}
		present := counts[kind] > 0
		if present {
			inferredPresent = true
		}
		entries = append(entries, models.ModuleOrderEntry{
			Module:      kind,
			OrderIndex:  len(entries) + 1,
			Present:     present,
			OrderSource: models.OrderInferred,
			Basis:       "fallback precedence",
		})
	}

	var warnings []models.ParsingWarning
	if inferredPresent || len(hint) == 0 {
		warnings = append(warnings, models.OrderInferenceWarning())
	}
	return entries, warnings
}
