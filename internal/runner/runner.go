// Package runner is the execution wrapper applied uniformly to every worker
// call: effective-id resolution, caching, retry with backoff, conditional
// deep analysis, and finding/transcript recording. A worker failure degrades
// the finding; it never aborts the enclosing investigation.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradeops-labs/orderscope/internal/cache"
	"github.com/tradeops-labs/orderscope/internal/investigation"
	"github.com/tradeops-labs/orderscope/internal/metrics"
	"github.com/tradeops-labs/orderscope/internal/worker"
)

// Call carries the per-invocation context handed to a worker.
type Call struct {
	Phase         investigation.Phase
	Purpose       worker.Purpose
	EffectiveID   string
	EffectiveDate string
	Resolved      bool // effective id came from enrichment
	Prefix        string
	Query         string
}

// Worker is a pluggable unit of retrieval/analysis. Implementations mutate
// state only through the state container's accessors.
type Worker interface {
	ID() worker.ID
	Capabilities() worker.Capabilities
	Execute(ctx context.Context, call Call, st *investigation.State) (worker.Outcome, error)
}

// Analyzer produces a deep analysis of a worker outcome. It is an external
// collaborator; failures fall back to the cheap summary.
type Analyzer interface {
	Analyze(ctx context.Context, query string, out worker.Outcome) (string, error)
}

// Options configures the wrapper.
type Options struct {
	MaxAttempts      int
	BackoffMin       time.Duration
	BackoffMax       time.Duration
	CacheTTL         time.Duration
	AnalyzeAlways    bool
	AnalyzeThreshold int
}

// Runner applies the wrapper to worker calls. One Runner is shared by all
// workers of an engine; the cache may additionally be shared across engines.
type Runner struct {
	cache    cache.Cache
	analyzer Analyzer
	opts     Options
	logger   *zap.Logger

	sleep func(time.Duration) // swappable in tests
}

// New creates a Runner. cache and analyzer may be nil, which disables
// caching and deep analysis respectively.
func New(c cache.Cache, a Analyzer, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = 2 * time.Second
	}
	if opts.BackoffMax < opts.BackoffMin {
		opts.BackoffMax = 10 * time.Second
	}
	if opts.AnalyzeThreshold <= 0 {
		opts.AnalyzeThreshold = 5000
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &Runner{cache: c, analyzer: a, opts: opts, logger: logger, sleep: time.Sleep}
}

// Run executes one worker invocation through the wrapper. The returned error
// is reserved for engine-level faults; worker failures are absorbed into a
// degraded finding.
func (r *Runner) Run(ctx context.Context, w Worker, purpose worker.Purpose, st *investigation.State) error {
	phase := st.Phase()
	id, date, resolved := st.CurrentEntityID(phase)

	call := Call{
		Phase:         phase,
		Purpose:       purpose,
		EffectiveID:   id,
		EffectiveDate: date,
		Resolved:      resolved,
		Prefix:        displayPrefix(phase, resolved),
		Query:         st.Query,
	}

	start := time.Now()
	key := cache.Key(w.ID().String(), string(purpose), id, date)

	if r.cache != nil && w.Capabilities().Cacheable {
		if raw, ok := r.cache.Get(ctx, key); ok {
			var out worker.Outcome
			if err := json.Unmarshal([]byte(raw), &out); err == nil {
				r.logger.Debug("Serving worker outcome from cache",
					zap.String("worker", w.ID().String()),
					zap.String("key", key),
				)
				r.replayStateEffects(st, call, out)
				r.record(st, w.ID(), call, out, key, true)
				metrics.RecordWorkerMetrics(w.ID().String(), string(purpose), "cached",
					float64(time.Since(start).Milliseconds()))
				return nil
			}
			r.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
		}
	}

	out, err := r.invoke(ctx, w, call, st)
	if err != nil {
		r.degrade(st, w.ID(), call, err)
		metrics.RecordWorkerMetrics(w.ID().String(), string(purpose), "degraded",
			float64(time.Since(start).Milliseconds()))
		return nil
	}

	out.Analysis = r.analysis(ctx, call.Query, out)

	if r.cache != nil && w.Capabilities().Cacheable && out.Err == "" {
		if raw, err := json.Marshal(out); err == nil {
			r.cache.Set(ctx, key, string(raw), r.opts.CacheTTL)
		}
	}

	r.record(st, w.ID(), call, out, key, false)
	metrics.RecordWorkerMetrics(w.ID().String(), string(purpose), "ok",
		float64(time.Since(start).Milliseconds()))
	return nil
}

// replayStateEffects reapplies the state mutation a cached outcome carried
// when it was first produced. A resolution lookup served from cache must
// still install the canonical id, or the phase would stay unresolved.
func (r *Runner) replayStateEffects(st *investigation.State, call Call, out worker.Outcome) {
	if call.Purpose != worker.PurposeResolution {
		return
	}
	rid := out.Meta["resolved_id"]
	if rid == "" {
		return
	}
	if err := st.CompleteEnrichment(call.Phase, rid); err != nil {
		r.logger.Warn("Could not replay cached resolution", zap.Error(err))
	}
}

// invoke runs the worker's core operation, retrying transient failures with
// exponential backoff up to the attempt ceiling.
func (r *Runner) invoke(ctx context.Context, w Worker, call Call, st *investigation.State) (worker.Outcome, error) {
	var out worker.Outcome
	var err error
	backoff := r.opts.BackoffMin
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		out, err = w.Execute(ctx, call, st)
		if err == nil {
			return out, nil
		}
		if !worker.IsTransient(err) {
			return out, fmt.Errorf("%s: %w", w.ID(), err)
		}
		if attempt == r.opts.MaxAttempts {
			break
		}
		r.logger.Warn("Transient worker failure, retrying",
			zap.String("worker", w.ID().String()),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		metrics.WorkerRetries.WithLabelValues(w.ID().String()).Inc()
		r.sleep(backoff)
		backoff *= 2
		if backoff > r.opts.BackoffMax {
			backoff = r.opts.BackoffMax
		}
	}
	return out, fmt.Errorf("%s: retries exhausted after %d attempts: %w", w.ID(), r.opts.MaxAttempts, err)
}

// analysis decides between a deep analysis and a cheap derived summary.
// This is a cost trade-off, not a correctness requirement.
func (r *Runner) analysis(ctx context.Context, query string, out worker.Outcome) string {
	needed := out.Err != "" ||
		len(out.RawPayload) > r.opts.AnalyzeThreshold ||
		r.opts.AnalyzeAlways
	if needed && r.analyzer != nil {
		if a, err := r.analyzer.Analyze(ctx, query, out); err == nil && a != "" {
			return a
		} else if err != nil {
			r.logger.Warn("Deep analysis failed, using summary", zap.Error(err))
		}
	}
	return simpleSummary(out)
}

func (r *Runner) record(st *investigation.State, id worker.ID, call Call, out worker.Outcome, key string, fromCache bool) {
	rec := investigation.FindingRecord{
		Worker:     id,
		Purpose:    call.Purpose,
		Summary:    out.Summary,
		Analysis:   out.Analysis,
		PayloadRef: key,
		Flags:      out.Flags,
		Meta:       out.Meta,
		EntityID:   call.EffectiveID,
		Resolved:   call.Resolved,
		FromCache:  fromCache,
		Err:        out.Err,
		Timestamp:  time.Now(),
	}
	if err := st.RecordFinding(call.Phase, rec); err != nil {
		r.logger.Error("Failed to record finding", zap.Error(err))
	}
	st.AppendTranscript(investigation.TranscriptEntry{
		Worker:    id,
		Purpose:   call.Purpose,
		Phase:     call.Phase,
		Step:      st.Step(),
		Message:   fmt.Sprintf("%s %s: %s", call.Prefix, id, out.Summary),
		Resolved:  call.Resolved,
		FromCache: fromCache,
	})
}

// degrade stores the failure as a flagged degraded finding and logs it.
// Raw error detail stays in the error log, off the user-facing summary.
func (r *Runner) degrade(st *investigation.State, id worker.ID, call Call, err error) {
	r.logger.Error("Worker failed unrecoverably",
		zap.String("worker", id.String()),
		zap.String("phase", string(call.Phase)),
		zap.Error(err),
	)
	st.AppendError(err.Error())
	metrics.DegradedFindings.WithLabelValues(id.String()).Inc()

	summary := fmt.Sprintf("%s worker could not complete; its contribution is unavailable", id)
	rec := investigation.FindingRecord{
		Worker:    id,
		Purpose:   call.Purpose,
		Summary:   summary,
		EntityID:  call.EffectiveID,
		Resolved:  call.Resolved,
		Degraded:  true,
		Err:       err.Error(),
		Timestamp: time.Now(),
	}
	if recErr := st.RecordFinding(call.Phase, rec); recErr != nil {
		r.logger.Error("Failed to record degraded finding", zap.Error(recErr))
	}
	st.AppendTranscript(investigation.TranscriptEntry{
		Worker:  id,
		Purpose: call.Purpose,
		Phase:   call.Phase,
		Step:    st.Step(),
		Message: fmt.Sprintf("%s %s: %s", call.Prefix, id, summary),
	})
}

func displayPrefix(phase investigation.Phase, resolved bool) string {
	p := "[PRIMARY ORDER]"
	if phase == investigation.PhaseComparison {
		p = "[COMPARISON ORDER]"
	}
	if resolved {
		p += " [resolved]"
	}
	return p
}

func simpleSummary(out worker.Outcome) string {
	if out.Summary != "" {
		return out.Summary
	}
	raw := out.RawPayload
	if len(raw) > 500 {
		raw = raw[:500]
	}
	return raw
}
