package extract

import (
	"github.com/tidwall/gjson"

	"github.com/mstrand/serp-audit/internal/canonical"
	"github.com/mstrand/serp-audit/internal/models"
	"github.com/mstrand/serp-audit/internal/resolve"
)

// AIOverview extracts the synthesized answer section of a primary payload.
// A nil overview means the section was absent from the page. Incomplete is
// set when the section needs a dedicated follow-up call (page token present)
// or carries no readable content, so the merge coordinator can trigger the
// completion pass.
func AIOverview(in Input) (*models.AIOverview, []models.ParsingWarning) {
	section, sectionKey, ok := resolve.AttrPath(in.Payload, "aio.section", resolve.Object)
	if !ok {
		return nil, nil
	}
	return parseOverviewNode(in, section, sectionKey)
}

// AIOverviewPayload extracts an overview from a dedicated completion call,
// where the blocks live at the payload root rather than under a section key.
func AIOverviewPayload(in Input) (*models.AIOverview, []models.ParsingWarning) {
	if section, sectionKey, ok := resolve.AttrPath(in.Payload, "aio.section", resolve.Object); ok {
		return parseOverviewNode(in, section, sectionKey)
	}
	return parseOverviewNode(in, in.Payload, "")
}

func parseOverviewNode(in Input, section gjson.Result, basePath string) (*models.AIOverview, []models.ParsingWarning) {
	var warnings []models.ParsingWarning

	ov := &models.AIOverview{
		SourceEngine: in.Engine,
		RawPath:      basePath,
	}

	if token, ok := resolve.Attr(section, "aio.page_token", resolve.Scalar); ok {
		ov.PageToken = token.String()
		ov.Incomplete = true
	}
	if _, ok := resolve.Attr(section, "aio.error", resolve.Scalar); ok {
		ov.Incomplete = true
	}

	if blocks, blocksKey, ok := resolve.AttrPath(section, "aio.text_blocks", resolve.List); ok {
		for i, b := range blocks.Array() {
			block := models.AIOverviewBlock{Rank: i + 1}
			if t, found := resolve.Attr(b, "aio.block_text", resolve.Scalar); found {
				block.Text = t.String()
			} else {
				warnings = append(warnings, models.SchemaWarning(
					string(models.KindAIOverview), "text",
					resolve.Keys("aio.block_text"), join(basePath, itemPath(blocksKey, i))))
			}
			if t, found := resolve.Attr(b, "aio.block_type", resolve.Scalar); found {
				block.Type = t.String()
			}
			ov.Blocks = append(ov.Blocks, block)
		}
	} else if snippet, ok := resolve.Attr(section, "aio.snippet", resolve.Scalar); ok {
		// Older payload shape: one flat snippet instead of blocks.
		ov.Blocks = append(ov.Blocks, models.AIOverviewBlock{Rank: 1, Text: snippet.String()})
	}

	if citations, citationsKey, ok := resolve.AttrPath(section, "aio.citations", resolve.List); ok {
		for i, c := range citations.Array() {
			rawPath := join(basePath, itemPath(citationsKey, i))
			link := stringField(c, "aio.citation_link", "ai_citations", "link", rawPath, &warnings)
			domain := canonical.Domain(link)
			cit := models.AIOverviewCitation{
				RecordMeta: in.meta(i+1, rawPath),
				Link:       link,
				Domain:     domain,
				EntityType: in.entityType(domain),
			}
			if t, found := resolve.Attr(c, "aio.citation_title", resolve.Scalar); found {
				cit.Title = t.String()
			}
			ov.Citations = append(ov.Citations, cit)
		}
	}

	if len(ov.Blocks) == 0 && len(ov.Citations) == 0 {
		ov.Incomplete = true
	}

	return ov, warnings
}

func join(base, path string) string {
	if base == "" {
		return path
	}
	return base + "." + path
}
