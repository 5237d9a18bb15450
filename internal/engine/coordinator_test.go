package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mstrand/serp-audit/internal/classify"
	"github.com/mstrand/serp-audit/internal/models"
)

// stubSource hands out canned secondary payloads and records every request.
type stubSource struct {
	mu        sync.Mutex
	responses map[SecondaryKind]models.RawCallResult
	errs      map[SecondaryKind]error
	requests  []SecondaryRequest
}

func (s *stubSource) Fetch(_ context.Context, req SecondaryRequest) (models.RawCallResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err, ok := s.errs[req.Kind]; ok {
		return models.RawCallResult{}, err
	}
	if res, ok := s.responses[req.Kind]; ok {
		return res, nil
	}
	return models.RawCallResult{}, ErrSourceUnavailable
}

func (s *stubSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	entities, err := classify.NewEntityClassifier(nil)
	require.NoError(t, err)
	return New(NewRecordCache(100, time.Hour), entities, 5)
}

func okCall(engine, payload string) models.RawCallResult {
	return models.RawCallResult{Engine: engine, Status: models.CallOK, Payload: json.RawMessage(payload)}
}

func testContext(query string) models.QueryContext {
	return models.QueryContext{
		Query:    query,
		Country:  "ca",
		Language: "en",
		Device:   "desktop",
	}
}

func TestRunOrganicOnly(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{}

	primary := okCall("google", `{
		"organic_results": [
			{"title": "First", "link": "https://one.example/a", "snippet": "first snippet", "position": 1},
			{"title": "Second", "link": "https://two.example/b", "snippet": "second snippet", "position": 2}
		]
	}`)

	rec, err := c.Run(context.Background(), testContext("golang testing"), primary, src, Options{})
	require.NoError(t, err)

	require.Len(t, rec.Organic, 2)
	require.Equal(t, 1, rec.Organic[0].Rank)
	require.Equal(t, "one.example", rec.Organic[0].Domain)
	require.Equal(t, models.AIOModeNotPresent, rec.AIOverviewMode)
	require.Nil(t, rec.AIOverview)
	require.Zero(t, src.fetchCount())

	// The module list is exhaustive over the catalog, present or not.
	require.Len(t, rec.Modules, len(models.Catalog()))
	presentKinds := map[models.ModuleKind]bool{}
	for _, entry := range rec.Modules {
		presentKinds[entry.Module] = entry.Present
	}
	require.True(t, presentKinds[models.KindOrganic])
	require.False(t, presentKinds[models.KindPaid])

	// Flags never disagree with the record lists.
	for _, kind := range models.Catalog() {
		require.Equal(t, rec.RecordCount(kind) > 0, rec.FeatureFlags[kind], string(kind))
	}

	// Order had to be inferred; exactly one warning says so.
	inferred := 0
	for _, w := range rec.ParsingWarnings {
		if w.Module == "modules" {
			inferred++
		}
	}
	require.Equal(t, 1, inferred)

	// Empty module lists serialize as arrays, not null.
	require.NotNil(t, rec.Paid)
	require.NotNil(t, rec.MapsResults)
	require.NotNil(t, rec.ParsingWarnings)
}

func TestRunExplicitOrderHint(t *testing.T) {
	c := newCoordinator(t)

	primary := okCall("google", `{
		"modules_order": ["organic", "paa", "unknown_block"],
		"organic_results": [{"title": "A", "link": "https://a.example", "snippet": "s"}],
		"related_questions": [{"question": "What is it?", "snippet": "a thing"}]
	}`)

	rec, err := c.Run(context.Background(), testContext("explicit order"), primary, &stubSource{}, Options{})
	require.NoError(t, err)

	require.Len(t, rec.Modules, len(models.Catalog()))
	require.Equal(t, models.KindOrganic, rec.Modules[0].Module)
	require.Equal(t, models.OrderExplicit, rec.Modules[0].OrderSource)
	require.Equal(t, models.KindPAA, rec.Modules[1].Module)
	require.Equal(t, models.OrderExplicit, rec.Modules[1].OrderSource)
	require.Equal(t, models.OrderInferred, rec.Modules[2].OrderSource)

	// Every present kind was hinted, so no inference warning.
	for _, w := range rec.ParsingWarnings {
		require.NotEqual(t, "modules", w.Module)
	}
}

func TestRunAIOverviewDirectInMain(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{}

	primary := okCall("google", `{
		"ai_overview": {
			"text_blocks": [{"type": "paragraph", "snippet": "Direct answer text."}],
			"citations": [{"title": "Source", "link": "https://cite.example/page"}]
		}
	}`)

	rec, err := c.Run(context.Background(), testContext("direct aio"), primary, src, Options{})
	require.NoError(t, err)

	require.Equal(t, models.AIOModeDirectInMain, rec.AIOverviewMode)
	require.NotNil(t, rec.AIOverview)
	require.Len(t, rec.AIOverview.Blocks, 1)
	require.Equal(t, "Direct answer text.", rec.AIOverview.Blocks[0].Text)
	require.Len(t, rec.AIOverview.Citations, 1)
	require.Equal(t, "cite.example", rec.AIOverview.Citations[0].Domain)
	require.Zero(t, src.fetchCount(), "no follow-up when the section is complete")

	require.NotNil(t, rec.AIOverview.ReadingLevel)
	require.InDelta(t, 5.2, *rec.AIOverview.ReadingLevel, 0.001)
}

func TestRunAIOverviewFollowupSuccess(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{
		responses: map[SecondaryKind]models.RawCallResult{
			SecondaryAIOverview: okCall("google_ai_overview", `{
				"text_blocks": [
					{"type": "paragraph", "snippet": "Full answer, part one."},
					{"type": "paragraph", "snippet": "Full answer, part two."}
				],
				"references": [{"title": "Ref", "link": "https://ref.example"}]
			}`),
		},
	}

	primary := okCall("google", `{
		"ai_overview": {"page_token": "tok-123"}
	}`)

	rec, err := c.Run(context.Background(), testContext("followup aio"), primary, src, Options{})
	require.NoError(t, err)

	require.Equal(t, models.AIOModeFollowupSuccess, rec.AIOverviewMode)
	require.Len(t, rec.AIOverview.Blocks, 2)
	require.Len(t, rec.AIOverview.Citations, 1)
	require.Equal(t, "google_ai_overview", rec.AIOverview.SourceEngine)

	require.Equal(t, 1, src.fetchCount())
	require.Equal(t, SecondaryAIOverview, src.requests[0].Kind)
	require.Equal(t, "tok-123", src.requests[0].PageToken)
}

func TestRunAIOverviewFollowupFailed(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{
		errs: map[SecondaryKind]error{SecondaryAIOverview: ErrSourceUnavailable},
	}

	primary := okCall("google", `{
		"ai_overview": {
			"page_token": "tok-456",
			"text_blocks": [{"snippet": "Teaser text."}]
		}
	}`)

	rec, err := c.Run(context.Background(), testContext("failed followup"), primary, src, Options{})
	require.NoError(t, err)

	// The partial primary section is kept rather than dropped.
	require.Equal(t, models.AIOModeFollowupFailed, rec.AIOverviewMode)
	require.NotNil(t, rec.AIOverview)
	require.True(t, rec.AIOverview.Incomplete)
	require.Len(t, rec.AIOverview.Blocks, 1)

	found := false
	for _, w := range rec.ParsingWarnings {
		if w.Module == string(models.KindAIOverview) {
			found = true
		}
	}
	require.True(t, found, "unavailable follow-up must leave a warning")
}

func TestRunMapsPassTriggeredByLocalPack(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{
		responses: map[SecondaryKind]models.RawCallResult{
			SecondaryMaps: okCall("google_maps", `{
				"local_results": [
					{"title": "Deep Place", "address": "1 Main St", "rating": 4.5, "reviews": 120, "type": "plumber", "phone": "555-0100", "place_id": "p1", "links": {"website": "https://deep.example"}}
				]
			}`),
		},
	}

	primary := okCall("google", `{
		"local_results": {
			"places": [
				{"title": "Shallow Place", "address": "1 Main St", "rating": 4.4, "reviews": 100, "type": "plumber", "phone": "555-0100", "place_id": "p0", "links": {"website": "https://shallow.example"}}
			]
		}
	}`)

	rec, err := c.Run(context.Background(), testContext("plumber near me"), primary, src, Options{})
	require.NoError(t, err)

	require.Len(t, rec.LocalPack, 1)
	require.Len(t, rec.MapsResults, 1)
	require.Equal(t, "Deep Place", rec.MapsResults[0].Name)
	require.NotNil(t, rec.MapsResults[0].Rating)
	require.InDelta(t, 4.5, *rec.MapsResults[0].Rating, 0.001)

	require.Equal(t, 1, src.fetchCount())
	require.Equal(t, SecondaryMaps, src.requests[0].Kind)
	require.True(t, rec.FeatureFlags[models.KindMapsResults])
}

func TestRunMapsPassTriggeredByLocalIntent(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{
		errs: map[SecondaryKind]error{SecondaryMaps: ErrSourceUnavailable},
	}

	primary := okCall("google", `{"organic_results": [{"title": "A", "link": "https://a.example", "snippet": "s"}]}`)

	rec, err := c.Run(context.Background(), testContext("dentist downtown"), primary, src, Options{LocalIntent: true})
	require.NoError(t, err)

	require.Equal(t, 1, src.fetchCount())
	require.Empty(t, rec.MapsResults)
	require.False(t, rec.FeatureFlags[models.KindMapsResults])
}

func TestRunPAAExpansion(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{
		responses: map[SecondaryKind]models.RawCallResult{
			SecondaryPAA: okCall("google_paa", `{
				"related_questions": [
					{"question": "How much does it cost?", "snippet": "dupe of primary"},
					{"question": "Is it worth it?", "snippet": "fresh question"}
				]
			}`),
		},
	}

	primary := okCall("google", `{
		"related_questions": [
			{"question": "How much does it cost?", "snippet": "about $100"},
			{"question": "How does it work?", "snippet": "like this"}
		]
	}`)

	rec, err := c.Run(context.Background(), testContext("service pricing"), primary, src, Options{ExhaustivePAA: true})
	require.NoError(t, err)

	// 2 primary + 2 expansion, one duplicate question dropped; primary wins.
	require.Len(t, rec.PAA, 3)
	require.Equal(t, 1, rec.DroppedDupes)
	require.Equal(t, "about $100", rec.PAA[0].Snippet)
	require.Equal(t, classify.IntentCommercial, rec.PAA[0].Category)

	// Expansion ranks continue after the primary block.
	require.Equal(t, []int{1, 2, 4}, []int{rec.PAA[0].Rank, rec.PAA[1].Rank, rec.PAA[2].Rank})
}

func TestRunDegradedPrimary(t *testing.T) {
	c := newCoordinator(t)

	primary := models.RawCallResult{Engine: "google", Status: models.CallTransientError}

	rec, err := c.Run(context.Background(), testContext("degraded run"), primary, &stubSource{}, Options{})
	require.NoError(t, err, "a failed call degrades the run, never fails it")

	require.Empty(t, rec.Organic)
	require.Equal(t, models.AIOModeNotPresent, rec.AIOverviewMode)
	require.Len(t, rec.Modules, len(models.Catalog()))
	for _, kind := range models.Catalog() {
		require.False(t, rec.FeatureFlags[kind])
	}

	// One warning for the failed call, one for the inferred module order.
	require.Len(t, rec.ParsingWarnings, 2)
	require.Equal(t, "primary", rec.ParsingWarnings[0].Module)
	require.Contains(t, rec.ParsingWarnings[0].Message, "transient_error")
	require.Equal(t, "modules", rec.ParsingWarnings[1].Module)
}

func TestRunNonContainerPrimaryPayload(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{}

	// A status-ok call can still carry a scalar body, typically an inline
	// upstream error string. The run degrades instead of failing.
	for _, payload := range []string{`"upstream error"`, `null`, `42`, `true`} {
		rec, err := c.Run(context.Background(), testContext("scalar body "+payload), okCall("google", payload), src, Options{})
		require.NoError(t, err, payload)

		require.Empty(t, rec.Organic, payload)
		require.Equal(t, models.AIOModeNotPresent, rec.AIOverviewMode, payload)
		require.Len(t, rec.Modules, len(models.Catalog()), payload)

		found := false
		for _, w := range rec.ParsingWarnings {
			if w.Module == "primary" && w.Message == "payload is not a traversable JSON structure" {
				found = true
			}
		}
		require.True(t, found, payload)
	}
}

func TestRunNonContainerSecondaryPayload(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{
		responses: map[SecondaryKind]models.RawCallResult{
			SecondaryAIOverview: okCall("google_ai_overview", `"quota exceeded"`),
		},
	}

	primary := okCall("google", `{
		"ai_overview": {
			"page_token": "tok-789",
			"text_blocks": [{"snippet": "Teaser text."}]
		}
	}`)

	rec, err := c.Run(context.Background(), testContext("scalar followup"), primary, src, Options{})
	require.NoError(t, err)

	// The partial primary section survives, same as any failed follow-up.
	require.Equal(t, models.AIOModeFollowupFailed, rec.AIOverviewMode)
	require.NotNil(t, rec.AIOverview)
	require.Len(t, rec.AIOverview.Blocks, 1)

	count := 0
	for _, w := range rec.ParsingWarnings {
		if w.Module == string(models.KindAIOverview) {
			count++
			require.Equal(t, "payload is not a traversable JSON structure", w.Message)
		}
	}
	require.Equal(t, 1, count)
}

func TestRunInvalidContext(t *testing.T) {
	c := newCoordinator(t)
	_, err := c.Run(context.Background(), models.QueryContext{Query: "  "}, okCall("google", `{}`), nil, Options{})
	require.ErrorIs(t, err, models.ErrInvalidContext)
}

func TestRunCacheHitSkipsExtraction(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{
		responses: map[SecondaryKind]models.RawCallResult{
			SecondaryAIOverview: okCall("google_ai_overview", `{"text_blocks": [{"snippet": "answer"}]}`),
		},
	}

	primary := okCall("google", `{"ai_overview": {"page_token": "tok"}}`)
	qc := testContext("cached query")

	first, err := c.Run(context.Background(), qc, primary, src, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, src.fetchCount())

	second, err := c.Run(context.Background(), qc, primary, src, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, src.fetchCount(), "cache hit must not refetch")
	require.Same(t, first, second)

	// ForceFresh bypasses the cache read and replaces the entry.
	third, err := c.Run(context.Background(), qc, primary, src, Options{ForceFresh: true})
	require.NoError(t, err)
	require.Equal(t, 2, src.fetchCount())
	require.NotSame(t, first, third)
}

func TestRunCancellationWritesNoCacheEntry(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{}
	primary := okCall("google", `{"organic_results": [{"title": "A", "link": "https://a.example", "snippet": "s"}]}`)
	qc := testContext("cancelled run")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, qc, primary, src, Options{})
	require.ErrorIs(t, err, context.Canceled)

	_, cached := c.cache.Get(qc.ComputeParamsHash())
	require.False(t, cached)

	// A later run with a live context succeeds normally.
	rec, err := c.Run(context.Background(), qc, primary, src, Options{})
	require.NoError(t, err)
	require.Len(t, rec.Organic, 1)
}

func TestRunConcurrentIdenticalRunsShareOneExtraction(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{
		responses: map[SecondaryKind]models.RawCallResult{
			SecondaryMaps: okCall("google_maps", `{"local_results": [{"title": "P", "address": "1 St", "rating": 4, "reviews": 1, "type": "t", "phone": "p", "place_id": "x", "links": {"website": "https://w"}}]}`),
		},
	}
	primary := okCall("google", `{"local_results": {"places": [{"title": "P", "address": "1 St", "rating": 4, "reviews": 1, "type": "t", "phone": "p", "place_id": "x", "links": {"website": "https://w"}}]}}`)
	qc := testContext("concurrent query")

	const n = 8
	records := make([]*models.NormalizedRecord, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = c.Run(context.Background(), qc, primary, src, Options{})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}
	for i := 1; i < n; i++ {
		require.Same(t, records[0], records[i])
	}
	require.Equal(t, 1, src.fetchCount())
}

func TestRunDeterministicForFixedInput(t *testing.T) {
	c := newCoordinator(t)
	src := &stubSource{
		responses: map[SecondaryKind]models.RawCallResult{
			SecondaryPAA: okCall("google_paa", `{"related_questions": [{"question": "Extra?", "snippet": "x"}]}`),
		},
	}
	primary := okCall("google", `{
		"ads": [{"title": "Ad", "link": "https://ad.example", "description": "buy now", "position": 1}],
		"organic_results": [{"title": "A", "link": "https://a.example", "snippet": "s"}],
		"related_questions": [{"question": "Why?", "snippet": "because"}],
		"related_searches": [{"query": "more terms"}]
	}`)

	qc := testContext("deterministic")
	qc.RunID = "fixed-run"
	qc.CapturedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := c.Run(context.Background(), qc, primary, src, Options{ForceFresh: true, ExhaustivePAA: true})
	require.NoError(t, err)
	second, err := c.Run(context.Background(), qc, primary, src, Options{ForceFresh: true, ExhaustivePAA: true})
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	require.JSONEq(t, string(firstJSON), string(secondJSON))
}
