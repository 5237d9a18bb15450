// Package extract turns raw payload subtrees into typed module records. Every
// extractor follows the same contract: consume the payload through the field
// resolver, return records plus warnings, never abort on a missing field, and
// touch no shared state.
package extract

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/mstrand/serp-audit/internal/classify"
	"github.com/mstrand/serp-audit/internal/models"
	"github.com/mstrand/serp-audit/internal/resolve"
)

// Input bundles what every extractor needs about the call being parsed.
type Input struct {
	Payload         gjson.Result
	Context         models.QueryContext
	Engine          string
	Entities        *classify.EntityClassifier
	MaxFeatureItems int
}

// Parse wraps a raw payload for extraction.
func Parse(payload []byte) gjson.Result {
	return gjson.ParseBytes(payload)
}

func (in Input) meta(rank int, rawPath string) models.RecordMeta {
	return models.RecordMeta{
		RunID:        in.Context.RunID,
		Query:        in.Context.Query,
		SourceEngine: in.Engine,
		RawPath:      rawPath,
		Rank:         rank,
	}
}

func (in Input) entityType(domain string) string {
	if in.Entities == nil || domain == "" {
		return ""
	}
	return in.Entities.Classify(domain)
}

func itemPath(listKey string, i int) string {
	return fmt.Sprintf("%s.%d", listKey, i)
}

// rankTracker assigns unique ranks within one ranked module list. An explicit
// position field wins over list order when it is free; when two items claim
// the same position, the first claimant keeps it and later ones fall back to
// list order, bumped past taken ranks.
type rankTracker struct {
	claimed map[int]bool
}

func newRankTracker() *rankTracker {
	return &rankTracker{claimed: map[int]bool{}}
}

func (t *rankTracker) assign(module, rawPath string, listRank, explicit int, warnings *[]models.ParsingWarning) int {
	desired := listRank
	if explicit > 0 {
		desired = explicit
	}
	if desired != listRank && !t.claimed[desired] {
		*warnings = append(*warnings, models.DiscrepancyWarning(module, rawPath, listRank, desired))
	}

	rank := desired
	if t.claimed[rank] {
		rank = listRank
		for t.claimed[rank] {
			rank++
		}
		*warnings = append(*warnings, models.RankCollisionWarning(module, rawPath, desired, rank))
	}
	t.claimed[rank] = true
	return rank
}

// stringField resolves a scalar attribute on a node, emitting a schema
// warning when nothing matched. The zero value stands in for null.
func stringField(node gjson.Result, attr, module, field, rawPath string, warnings *[]models.ParsingWarning) string {
	v, ok := resolve.Attr(node, attr, resolve.Scalar)
	if !ok {
		*warnings = append(*warnings, models.SchemaWarning(module, field, resolve.Keys(attr), rawPath))
		return ""
	}
	return v.String()
}

// optString resolves an optional scalar attribute to a nullable string. One
// warning names the attribute and the keys tried; extraction continues.
func optString(node gjson.Result, attr, module, field, rawPath string, warnings *[]models.ParsingWarning) *string {
	v, ok := resolve.Attr(node, attr, resolve.Scalar)
	if !ok {
		*warnings = append(*warnings, models.SchemaWarning(module, field, resolve.Keys(attr), rawPath))
		return nil
	}
	s := v.String()
	return &s
}
