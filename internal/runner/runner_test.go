package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tradeops-labs/orderscope/internal/cache"
	"github.com/tradeops-labs/orderscope/internal/investigation"
	"github.com/tradeops-labs/orderscope/internal/worker"
)

// stubWorker counts executions and replays a scripted error sequence.
type stubWorker struct {
	id        worker.ID
	cacheable bool
	calls     int
	errs      []error // error per attempt; nil past the end
	out       worker.Outcome
}

func (w *stubWorker) ID() worker.ID { return w.id }

func (w *stubWorker) Capabilities() worker.Capabilities {
	return worker.Capabilities{Cacheable: w.cacheable}
}

func (w *stubWorker) Execute(_ context.Context, _ Call, _ *investigation.State) (worker.Outcome, error) {
	w.calls++
	if w.calls <= len(w.errs) && w.errs[w.calls-1] != nil {
		return worker.Outcome{}, w.errs[w.calls-1]
	}
	return w.out, nil
}

type stubAnalyzer struct {
	calls int
	reply string
	err   error
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ string, _ worker.Outcome) (string, error) {
	a.calls++
	return a.reply, a.err
}

func newState(t *testing.T) *investigation.State {
	t.Helper()
	st := investigation.New("why did order A123 misprice")
	require.NoError(t, st.SetParams(&investigation.Params{
		Intent:    investigation.IntentInvestigation,
		OrderID:   "A123",
		OrderDate: "2025-01-01",
	}))
	return st
}

func testRunner(t *testing.T, c cache.Cache, a Analyzer, opts Options) *Runner {
	t.Helper()
	r := New(c, a, opts, zaptest.NewLogger(t))
	r.sleep = func(time.Duration) {} // no real waiting in tests
	return r
}

func TestRunRecordsFinding(t *testing.T) {
	r := testRunner(t, nil, nil, Options{})
	st := newState(t)
	w := &stubWorker{id: worker.IDLogSearch, out: worker.Outcome{
		Summary: "3 pricing events for A123",
		Flags:   map[string]bool{worker.FlagRecordsFound: true},
	}}

	require.NoError(t, r.Run(context.Background(), w, worker.PurposeSearch, st))

	rec, ok := st.Finding(investigation.PhasePrimary, worker.IDLogSearch, worker.PurposeSearch)
	require.True(t, ok)
	assert.Equal(t, "3 pricing events for A123", rec.Summary)
	assert.True(t, rec.Flags[worker.FlagRecordsFound])
	assert.False(t, rec.FromCache)
	assert.False(t, rec.Degraded)
	assert.Equal(t, "A123", rec.EntityID)

	tr := st.Transcript()
	require.Len(t, tr, 1)
	assert.Contains(t, tr[0].Message, "[PRIMARY ORDER]")
	assert.Contains(t, tr[0].Message, "3 pricing events for A123")
}

func TestRunCacheHitSkipsExecution(t *testing.T) {
	c := cache.NewLocal(16, zaptest.NewLogger(t))
	defer c.Close()
	r := testRunner(t, c, nil, Options{})
	ctx := context.Background()

	first := &stubWorker{id: worker.IDLogSearch, cacheable: true, out: worker.Outcome{
		Summary: "3 pricing events for A123",
		Flags:   map[string]bool{worker.FlagRecordsFound: true},
	}}
	st1 := newState(t)
	require.NoError(t, r.Run(ctx, first, worker.PurposeSearch, st1))
	assert.Equal(t, 1, first.calls)

	// Same worker/purpose/id/date in a fresh investigation hits the cache.
	second := &stubWorker{id: worker.IDLogSearch, cacheable: true}
	st2 := newState(t)
	require.NoError(t, r.Run(ctx, second, worker.PurposeSearch, st2))
	assert.Equal(t, 0, second.calls, "cached outcome served without execution")

	rec1, _ := st1.Finding(investigation.PhasePrimary, worker.IDLogSearch, worker.PurposeSearch)
	rec2, ok := st2.Finding(investigation.PhasePrimary, worker.IDLogSearch, worker.PurposeSearch)
	require.True(t, ok)
	assert.True(t, rec2.FromCache)
	assert.Equal(t, rec1.Summary, rec2.Summary)
	assert.Equal(t, rec1.Flags, rec2.Flags)
}

func TestRunNonCacheableNeverCached(t *testing.T) {
	c := cache.NewLocal(16, zaptest.NewLogger(t))
	defer c.Close()
	r := testRunner(t, c, nil, Options{})
	ctx := context.Background()

	w := &stubWorker{id: worker.IDSummarize, out: worker.Outcome{Summary: "report"}}
	require.NoError(t, r.Run(ctx, w, worker.PurposeReport, newState(t)))

	again := &stubWorker{id: worker.IDSummarize, out: worker.Outcome{Summary: "report"}}
	require.NoError(t, r.Run(ctx, again, worker.PurposeReport, newState(t)))
	assert.Equal(t, 1, again.calls, "non-cacheable workers always execute")
	assert.Equal(t, 0, c.Len())
}

func TestRunRetriesTransientFailures(t *testing.T) {
	var slept []time.Duration
	r := New(nil, nil, Options{
		MaxAttempts: 3,
		BackoffMin:  2 * time.Second,
		BackoffMax:  10 * time.Second,
	}, zaptest.NewLogger(t))
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	w := &stubWorker{id: worker.IDLogSearch, errs: []error{
		worker.Transient(errors.New("backend timeout")),
		worker.Transient(errors.New("backend timeout")),
	}, out: worker.Outcome{Summary: "3 pricing events for A123"}}
	st := newState(t)
	require.NoError(t, r.Run(context.Background(), w, worker.PurposeSearch, st))

	assert.Equal(t, 3, w.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)

	rec, ok := st.Finding(investigation.PhasePrimary, worker.IDLogSearch, worker.PurposeSearch)
	require.True(t, ok)
	assert.False(t, rec.Degraded)
	assert.Empty(t, st.Errors())
}

func TestRunExhaustedRetriesDegrades(t *testing.T) {
	r := testRunner(t, nil, nil, Options{MaxAttempts: 3})
	w := &stubWorker{id: worker.IDLogSearch, errs: []error{
		worker.Transient(errors.New("backend timeout")),
		worker.Transient(errors.New("backend timeout")),
		worker.Transient(errors.New("backend timeout")),
	}}
	st := newState(t)

	require.NoError(t, r.Run(context.Background(), w, worker.PurposeSearch, st),
		"worker failure never aborts the investigation")

	assert.Equal(t, 3, w.calls, "exactly the attempt ceiling")

	rec, ok := st.Finding(investigation.PhasePrimary, worker.IDLogSearch, worker.PurposeSearch)
	require.True(t, ok)
	assert.True(t, rec.Degraded)
	assert.Contains(t, rec.Summary, "could not complete")
	assert.NotContains(t, rec.Summary, "backend timeout", "raw error stays off the summary")

	errs := st.Errors()
	require.Len(t, errs, 1, "one error log entry per degraded call")
	assert.Contains(t, errs[0], "backend timeout")
	assert.Contains(t, errs[0], "retries exhausted after 3 attempts")
}

func TestRunNonTransientFailsImmediately(t *testing.T) {
	r := testRunner(t, nil, nil, Options{MaxAttempts: 3})
	w := &stubWorker{id: worker.IDLogSearch, errs: []error{
		errors.New("malformed order id"),
		errors.New("malformed order id"),
		errors.New("malformed order id"),
	}}
	st := newState(t)

	require.NoError(t, r.Run(context.Background(), w, worker.PurposeSearch, st))
	assert.Equal(t, 1, w.calls, "non-transient errors are not retried")

	rec, _ := st.Finding(investigation.PhasePrimary, worker.IDLogSearch, worker.PurposeSearch)
	assert.True(t, rec.Degraded)
	require.Len(t, st.Errors(), 1)
}

func TestRunFailureNotCached(t *testing.T) {
	c := cache.NewLocal(16, zaptest.NewLogger(t))
	defer c.Close()
	r := testRunner(t, c, nil, Options{MaxAttempts: 1})
	ctx := context.Background()

	w := &stubWorker{id: worker.IDLogSearch, cacheable: true, errs: []error{errors.New("boom")}}
	require.NoError(t, r.Run(ctx, w, worker.PurposeSearch, newState(t)))
	assert.Equal(t, 0, c.Len(), "degraded outcomes are never cached")

	// Errored-but-returned outcomes are not cached either.
	w2 := &stubWorker{id: worker.IDDatabase, cacheable: true, out: worker.Outcome{
		Summary: "no record", Err: "order not found",
	}}
	require.NoError(t, r.Run(ctx, w2, worker.PurposeRetrieval, newState(t)))
	assert.Equal(t, 0, c.Len())
}

func TestRunCachedResolutionReplaysEnrichment(t *testing.T) {
	c := cache.NewLocal(16, zaptest.NewLogger(t))
	defer c.Close()
	r := testRunner(t, c, nil, Options{})
	ctx := context.Background()

	resolver := func() *stubWorker {
		return &stubWorker{id: worker.IDDatabase, cacheable: true, out: worker.Outcome{
			Summary: "Resolved D12345678 to canonical id ORD12345678",
			Flags:   map[string]bool{worker.FlagResolutionCompleted: true},
			Meta:    map[string]string{"resolved_id": "ORD12345678"},
		}}
	}

	seed := func() *investigation.State {
		st := investigation.New("why did order D12.345.678 misprice")
		require.NoError(t, st.SetParams(&investigation.Params{
			Intent:    investigation.IntentInvestigation,
			OrderID:   "D12.345.678",
			OrderDate: "2025-01-01",
		}))
		require.NoError(t, st.BeginEnrichment(investigation.PhasePrimary, "D12.345.678", "D12345678"))
		return st
	}

	// First run populates the cache; mimic the worker finishing enrichment.
	st1 := seed()
	w1 := resolver()
	require.NoError(t, r.Run(ctx, w1, worker.PurposeResolution, st1))
	assert.Equal(t, 1, w1.calls)

	// Second investigation hits the cache; the canonical id is still installed.
	st2 := seed()
	w2 := resolver()
	require.NoError(t, r.Run(ctx, w2, worker.PurposeResolution, st2))
	assert.Equal(t, 0, w2.calls)

	e := st2.EnrichmentView(investigation.PhasePrimary)
	assert.Equal(t, investigation.EnrichmentResolved, e.Status)
	assert.Equal(t, "ORD12345678", e.ResolvedID)
}

func TestAnalysisThreshold(t *testing.T) {
	big := strings.Repeat("x", 6000)

	a := &stubAnalyzer{reply: "distilled insight"}
	r := testRunner(t, nil, a, Options{AnalyzeThreshold: 5000})
	st := newState(t)
	w := &stubWorker{id: worker.IDLogSearch, out: worker.Outcome{
		Summary: "bulk records", RawPayload: big,
	}}
	require.NoError(t, r.Run(context.Background(), w, worker.PurposeSearch, st))
	assert.Equal(t, 1, a.calls)
	rec, _ := st.Finding(investigation.PhasePrimary, worker.IDLogSearch, worker.PurposeSearch)
	assert.Equal(t, "distilled insight", rec.Analysis)

	// Below the threshold the analyzer stays idle.
	a2 := &stubAnalyzer{reply: "distilled insight"}
	r2 := testRunner(t, nil, a2, Options{AnalyzeThreshold: 5000})
	st2 := newState(t)
	w2 := &stubWorker{id: worker.IDLogSearch, out: worker.Outcome{Summary: "few records", RawPayload: "small"}}
	require.NoError(t, r2.Run(context.Background(), w2, worker.PurposeSearch, st2))
	assert.Equal(t, 0, a2.calls)
	rec2, _ := st2.Finding(investigation.PhasePrimary, worker.IDLogSearch, worker.PurposeSearch)
	assert.Equal(t, "few records", rec2.Analysis)
}

func TestAnalysisAlwaysAndErrTrigger(t *testing.T) {
	a := &stubAnalyzer{reply: "insight"}
	r := testRunner(t, nil, a, Options{AnalyzeAlways: true})
	require.NoError(t, r.Run(context.Background(),
		&stubWorker{id: worker.IDKnowledge, out: worker.Outcome{Summary: "doc"}},
		worker.PurposeLookup, newState(t)))
	assert.Equal(t, 1, a.calls)

	a2 := &stubAnalyzer{reply: "insight"}
	r2 := testRunner(t, nil, a2, Options{})
	require.NoError(t, r2.Run(context.Background(),
		&stubWorker{id: worker.IDDatabase, out: worker.Outcome{Summary: "no record", Err: "order not found"}},
		worker.PurposeRetrieval, newState(t)))
	assert.Equal(t, 1, a2.calls, "errored outcomes always get analysis")
}

func TestAnalysisFallsBackToSummary(t *testing.T) {
	a := &stubAnalyzer{err: fmt.Errorf("analyzer unavailable")}
	r := testRunner(t, nil, a, Options{AnalyzeAlways: true})
	st := newState(t)
	require.NoError(t, r.Run(context.Background(),
		&stubWorker{id: worker.IDKnowledge, out: worker.Outcome{Summary: "doc excerpt"}},
		worker.PurposeLookup, st))

	rec, _ := st.Finding(investigation.PhasePrimary, worker.IDKnowledge, worker.PurposeLookup)
	assert.Equal(t, "doc excerpt", rec.Analysis)
	assert.Empty(t, st.Errors(), "analyzer failure is not an investigation error")
}

func TestDisplayPrefix(t *testing.T) {
	assert.Equal(t, "[PRIMARY ORDER]", displayPrefix(investigation.PhasePrimary, false))
	assert.Equal(t, "[PRIMARY ORDER] [resolved]", displayPrefix(investigation.PhasePrimary, true))
	assert.Equal(t, "[COMPARISON ORDER]", displayPrefix(investigation.PhaseComparison, false))
}
