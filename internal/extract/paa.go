package extract

import (
	"strings"

	"github.com/mstrand/serp-audit/internal/classify"
	"github.com/mstrand/serp-audit/internal/models"
	"github.com/mstrand/serp-audit/internal/resolve"
)

// PAA extracts people-also-ask questions. Each question is scored into an
// intent bucket; AI-generated answers have their text blocks flattened into
// the snippet.
func PAA(in Input) ([]models.PAAQuestion, []models.ParsingWarning) {
	var warnings []models.ParsingWarning

	list, listKey, ok := resolve.AttrPath(in.Payload, "paa.results", resolve.List)
	if !ok {
		return nil, nil
	}

	var records []models.PAAQuestion
	for i, item := range list.Array() {
		rawPath := itemPath(listKey, i)
		question := stringField(item, "paa.question", string(models.KindPAA), "question", rawPath, &warnings)
		category, score := classify.Intent(question)

		rec := models.PAAQuestion{
			RecordMeta: in.meta(i+1, rawPath),
			Question:   question,
			Category:   category,
			Score:      score,
		}
		if v, found := resolve.Attr(item, "paa.snippet", resolve.Scalar); found {
			rec.Snippet = v.String()
		}
		if v, found := resolve.Attr(item, "paa.link", resolve.Scalar); found {
			rec.Link = v.String()
		}

		if v, found := resolve.Attr(item, "paa.type", resolve.Scalar); found && v.String() == "ai_overview" {
			rec.AIGenerated = true
			if blocks, found := resolve.Attr(item, "paa.text_blocks", resolve.List); found {
				var parts []string
				for _, b := range blocks.Array() {
					if t, ok := resolve.Attr(b, "aio.block_text", resolve.Scalar); ok {
						parts = append(parts, t.String())
					}
				}
				if len(parts) > 0 {
					rec.Snippet = strings.Join(parts, " ")
				}
			}
		}

		records = append(records, rec)
	}

	return records, warnings
}
