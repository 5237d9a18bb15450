// Package engine holds the merge coordinator: the component that turns the
// raw call results of one keyword run into a single NormalizedRecord. The
// engine performs no I/O of its own; upstream calls are made by the
// collaborator behind the CallSource interface and handed in already fetched.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mstrand/serp-audit/internal/classify"
	"github.com/mstrand/serp-audit/internal/extract"
	"github.com/mstrand/serp-audit/internal/models"
	"github.com/mstrand/serp-audit/internal/report"
	"github.com/mstrand/serp-audit/internal/serporder"
)

// SecondaryKind names one conditional follow-up pass.
type SecondaryKind string

const (
	SecondaryAIOverview SecondaryKind = "ai_overview_completion"
	SecondaryMaps       SecondaryKind = "maps_depth"
	SecondaryPAA        SecondaryKind = "paa_expansion"
)

// SecondaryRequest asks the call source for one follow-up payload.
type SecondaryRequest struct {
	Kind      SecondaryKind
	PageToken string
	Context   models.QueryContext
}

// ErrSourceUnavailable is returned by a CallSource that has no payload for
// the requested pass. The coordinator keeps the module partial and records an
// incomplete-source warning instead of failing the run.
var ErrSourceUnavailable = errors.New("secondary source unavailable")

// CallSource supplies the payloads of conditional secondary calls. The
// coordinator decides whether a pass is needed; how the payload was obtained
// is the collaborator's business.
type CallSource interface {
	Fetch(ctx context.Context, req SecondaryRequest) (models.RawCallResult, error)
}

// Options carry the per-run knobs a caller controls.
type Options struct {
	// ForceFresh bypasses the idempotency cache read; the fresh result is
	// still written back.
	ForceFresh bool
	// ExhaustivePAA requests the question-expansion pass.
	ExhaustivePAA bool
	// LocalIntent marks the query as location-sensitive, triggering the maps
	// pass even when the primary payload shows no local pack.
	LocalIntent bool
}

// Coordinator drives a run through
// Pending -> PrimaryDone -> (SecondaryInFlight)* -> Assembled -> Terminal.
// It holds no mutable run-spanning state beyond the idempotency cache;
// distinct runs may execute concurrently.
type Coordinator struct {
	cache           *RecordCache
	group           singleflight.Group
	entities        *classify.EntityClassifier
	maxFeatureItems int
}

// New creates a coordinator around the given idempotency cache.
func New(cache *RecordCache, entities *classify.EntityClassifier, maxFeatureItems int) *Coordinator {
	return &Coordinator{
		cache:           cache,
		entities:        entities,
		maxFeatureItems: maxFeatureItems,
	}
}

// Run normalizes one keyword run. Only an invalid context fails; every other
// problem degrades to warnings on a still-usable record. Runs sharing a
// parameters hash are serialized per key: concurrent identical runs perform
// one extraction and share the result.
func (c *Coordinator) Run(ctx context.Context, qc models.QueryContext, primary models.RawCallResult, src CallSource, opts Options) (*models.NormalizedRecord, error) {
	if err := qc.Validate(); err != nil {
		return nil, err
	}
	if qc.ParamsHash == "" {
		qc.ParamsHash = qc.ComputeParamsHash()
	}
	if qc.RunID == "" {
		qc.RunID = uuid.NewString()
	}
	if qc.CapturedAt.IsZero() {
		qc.CapturedAt = time.Now().UTC()
	}

	if opts.ForceFresh {
		rec, err := c.assemble(ctx, qc, primary, src, opts)
		if err != nil {
			return nil, err
		}
		c.cache.Put(qc.ParamsHash, rec)
		return rec, nil
	}

	v, err, _ := c.group.Do(qc.ParamsHash, func() (any, error) {
		if rec, ok := c.cache.Get(qc.ParamsHash); ok {
			return rec, nil
		}
		rec, err := c.assemble(ctx, qc, primary, src, opts)
		if err != nil {
			return nil, err
		}
		c.cache.Put(qc.ParamsHash, rec)
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.NormalizedRecord), nil
}

func (c *Coordinator) assemble(ctx context.Context, qc models.QueryContext, primary models.RawCallResult, src CallSource, opts Options) (*models.NormalizedRecord, error) {
	rec := &models.NormalizedRecord{
		QueryContext:   qc,
		AIOverviewMode: models.AIOModeNotPresent,
	}
	var warnings []models.ParsingWarning
	var hint []models.ModuleKind
	var primaryOverview *models.AIOverview

	// PrimaryDone: one extraction pass over the main payload populates every
	// kind that does not require a dedicated call. A status-ok call can still
	// carry a scalar body (an inline upstream error); that degrades to a
	// warning like any other partial-data condition.
	switch {
	case !primary.OK():
		warnings = append(warnings, models.CallWarning("primary", primary.Status))
	case !traversable(extract.Parse(primary.Payload)):
		warnings = append(warnings, models.MalformedPayloadWarning("primary"))
	default:
		payload := extract.Parse(primary.Payload)
		in := extract.Input{
			Payload:         payload,
			Context:         qc,
			Engine:          engineName(primary.Engine, "google"),
			Entities:        c.entities,
			MaxFeatureItems: c.maxFeatureItems,
		}
		var w []models.ParsingWarning
		rec.Paid, w = extract.Paid(in)
		warnings = append(warnings, w...)
		rec.Organic, w = extract.Organic(in)
		warnings = append(warnings, w...)
		rec.LocalPack, w = extract.LocalPack(in)
		warnings = append(warnings, w...)
		rec.PAA, w = extract.PAA(in)
		warnings = append(warnings, w...)
		rec.RelatedSearches, w = extract.RelatedSearches(in)
		warnings = append(warnings, w...)
		rec.RichFeatures, w = extract.RichFeatures(in)
		warnings = append(warnings, w...)
		primaryOverview, w = extract.AIOverview(in)
		warnings = append(warnings, w...)
		hint = serporder.Hint(payload)
	}

	// SecondaryInFlight: the conditional passes are independent, write
	// disjoint module kinds, and may run in parallel. Failure of one never
	// blocks the others or final assembly.
	needAIO := primaryOverview != nil && primaryOverview.Incomplete
	needMaps := len(rec.LocalPack) > 0 || opts.LocalIntent
	needPAA := opts.ExhaustivePAA

	var (
		aioOverview *models.AIOverview
		aioWarnings []models.ParsingWarning
		aioFailed   bool

		mapsRecords  []models.LocalPlace
		mapsWarnings []models.ParsingWarning

		paaRecords  []models.PAAQuestion
		paaWarnings []models.ParsingWarning
	)

	g, gctx := errgroup.WithContext(ctx)
	if needAIO {
		token := primaryOverview.PageToken
		g.Go(func() error {
			res, warn := fetchPass(gctx, src, SecondaryRequest{Kind: SecondaryAIOverview, PageToken: token, Context: qc}, string(models.KindAIOverview))
			if warn != nil {
				aioWarnings = append(aioWarnings, *warn)
				aioFailed = true
				return nil
			}
			payload := extract.Parse(res.Payload)
			if !traversable(payload) {
				aioWarnings = append(aioWarnings, models.MalformedPayloadWarning(string(models.KindAIOverview)))
				aioFailed = true
				return nil
			}
			in := extract.Input{
				Payload:  payload,
				Context:  qc,
				Engine:   engineName(res.Engine, "google_ai_overview"),
				Entities: c.entities,
			}
			var w []models.ParsingWarning
			aioOverview, w = extract.AIOverviewPayload(in)
			aioWarnings = append(aioWarnings, w...)
			return nil
		})
	}
	if needMaps {
		g.Go(func() error {
			res, warn := fetchPass(gctx, src, SecondaryRequest{Kind: SecondaryMaps, Context: qc}, string(models.KindMapsResults))
			if warn != nil {
				mapsWarnings = append(mapsWarnings, *warn)
				return nil
			}
			payload := extract.Parse(res.Payload)
			if !traversable(payload) {
				mapsWarnings = append(mapsWarnings, models.MalformedPayloadWarning(string(models.KindMapsResults)))
				return nil
			}
			in := extract.Input{
				Payload:  payload,
				Context:  qc,
				Engine:   engineName(res.Engine, "google_maps"),
				Entities: c.entities,
			}
			mapsRecords, mapsWarnings = extract.MapsResults(in)
			return nil
		})
	}
	if needPAA {
		g.Go(func() error {
			res, warn := fetchPass(gctx, src, SecondaryRequest{Kind: SecondaryPAA, Context: qc}, string(models.KindPAA))
			if warn != nil {
				paaWarnings = append(paaWarnings, *warn)
				return nil
			}
			payload := extract.Parse(res.Payload)
			if !traversable(payload) {
				paaWarnings = append(paaWarnings, models.MalformedPayloadWarning(string(models.KindPAA)))
				return nil
			}
			in := extract.Input{
				Payload:  payload,
				Context:  qc,
				Engine:   engineName(res.Engine, "google_paa"),
				Entities: c.entities,
			}
			paaRecords, paaWarnings = extract.PAA(in)
			return nil
		})
	}
	// Pass closures never return errors; Wait only joins them.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		// Cancelled runs discard partial data and write no cache entry, so an
		// incomplete result is never served as if complete.
		return nil, err
	}

	warnings = append(warnings, aioWarnings...)
	warnings = append(warnings, mapsWarnings...)
	warnings = append(warnings, paaWarnings...)

	// Assembled: secondary records are appended after primary records of the
	// same kind, then deduplicated per kind. The more complete AI overview
	// wins wholesale; the discarded source is dropped silently.
	rec.MapsResults = mapsRecords
	if len(paaRecords) > 0 {
		offset := len(rec.PAA)
		for i := range paaRecords {
			paaRecords[i].Rank += offset
		}
		rec.PAA = append(rec.PAA, paaRecords...)
	}

	switch {
	case primaryOverview == nil:
		rec.AIOverviewMode = models.AIOModeNotPresent
	case !needAIO:
		rec.AIOverview = primaryOverview
		rec.AIOverviewMode = models.AIOModeDirectInMain
	case aioOverview != nil && len(aioOverview.Blocks)+len(aioOverview.Citations) > 0:
		rec.AIOverview = aioOverview
		rec.AIOverviewMode = models.AIOModeFollowupSuccess
	default:
		rec.AIOverview = primaryOverview
		rec.AIOverviewMode = models.AIOModeFollowupFailed
		if !aioFailed {
			warnings = append(warnings, models.IncompleteSourceWarning(string(models.KindAIOverview), "follow-up returned no content"))
		}
	}

	if rec.AIOverview != nil {
		if level, ok := report.ReadingLevel(overviewText(rec.AIOverview)); ok {
			rec.AIOverview.ReadingLevel = &level
		}
	}

	rec.DroppedDupes = c.dedupe(rec)

	orderEntries, w := serporder.Infer(rec.ModuleCounts(), hint)
	warnings = append(warnings, w...)
	rec.Modules = orderEntries

	rec.ParsingWarnings = warnings
	rec.DeriveFeatureFlags()
	finalizeSlices(rec)
	return rec, nil
}

func (c *Coordinator) dedupe(rec *models.NormalizedRecord) int {
	total := 0
	var n int
	rec.Paid, n = dedupePaid(rec.Paid)
	total += n
	rec.Organic, n = dedupeOrganic(rec.Organic)
	total += n
	rec.LocalPack, n = dedupePlaces(rec.LocalPack)
	total += n
	rec.MapsResults, n = dedupePlaces(rec.MapsResults)
	total += n
	rec.PAA, n = dedupePAA(rec.PAA)
	total += n
	rec.RelatedSearches, n = dedupeRelated(rec.RelatedSearches)
	total += n
	rec.RichFeatures, n = dedupeRichFeatures(rec.RichFeatures)
	total += n
	if rec.AIOverview != nil {
		rec.AIOverview.Citations, n = dedupeCitations(rec.AIOverview.Citations)
		total += n
	}
	return total
}

// fetchPass obtains one secondary payload, translating every failure mode
// into the warning the run should carry.
func fetchPass(ctx context.Context, src CallSource, req SecondaryRequest, module string) (models.RawCallResult, *models.ParsingWarning) {
	if src == nil {
		w := models.IncompleteSourceWarning(module, "no call source configured")
		return models.RawCallResult{}, &w
	}
	res, err := src.Fetch(ctx, req)
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		w := models.IncompleteSourceWarning(module, err.Error())
		return models.RawCallResult{}, &w
	case err != nil:
		w := models.CallWarning(module, models.CallTransientError)
		return models.RawCallResult{}, &w
	case !res.OK():
		status := res.Status
		if status == "" {
			status = models.CallTransientError
		}
		w := models.CallWarning(module, status)
		return models.RawCallResult{}, &w
	}
	return res, nil
}

// traversable reports whether a parsed payload is a JSON container the
// resolver can walk. A status-ok call may still carry a bare scalar or null
// body, which must degrade to a warning rather than reach the extractors.
func traversable(node gjson.Result) bool {
	return node.Exists() && node.Type == gjson.JSON
}

func overviewText(ov *models.AIOverview) string {
	parts := make([]string, 0, len(ov.Blocks))
	for _, block := range ov.Blocks {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, " ")
}

func engineName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// finalizeSlices pins nil list fields to empty slices so the serialized
// record always carries the same top-level arrays.
func finalizeSlices(rec *models.NormalizedRecord) {
	if rec.Paid == nil {
		rec.Paid = []models.PaidResult{}
	}
	if rec.Organic == nil {
		rec.Organic = []models.OrganicResult{}
	}
	if rec.LocalPack == nil {
		rec.LocalPack = []models.LocalPlace{}
	}
	if rec.MapsResults == nil {
		rec.MapsResults = []models.LocalPlace{}
	}
	if rec.PAA == nil {
		rec.PAA = []models.PAAQuestion{}
	}
	if rec.RelatedSearches == nil {
		rec.RelatedSearches = []models.RelatedSearch{}
	}
	if rec.RichFeatures == nil {
		rec.RichFeatures = []models.RichFeature{}
	}
	if rec.ParsingWarnings == nil {
		rec.ParsingWarnings = []models.ParsingWarning{}
	}
	if rec.AIOverview != nil && rec.AIOverview.Citations == nil {
		rec.AIOverview.Citations = []models.AIOverviewCitation{}
	}
}
