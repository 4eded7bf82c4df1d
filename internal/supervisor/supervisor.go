// Package supervisor drives one investigation end to end: classify the
// query, select the entry worker, loop worker -> router until summarization
// terminates the chain, then synthesize the final answer.
package supervisor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradeops-labs/orderscope/internal/investigation"
	"github.com/tradeops-labs/orderscope/internal/metrics"
	"github.com/tradeops-labs/orderscope/internal/router"
	"github.com/tradeops-labs/orderscope/internal/runner"
	"github.com/tradeops-labs/orderscope/internal/worker"
)

// Classifier maps a natural-language query to structured parameters. It is
// an external (typically LLM-backed) collaborator.
type Classifier interface {
	Classify(ctx context.Context, query string) (*investigation.Params, error)
}

// Synthesizer reduces both phases' findings into one narrative answer.
type Synthesizer interface {
	Synthesize(ctx context.Context,
		primary, comparison map[investigation.FindingKey]investigation.FindingRecord,
		params *investigation.Params, query string) (string, error)
}

// Engine is the investigation supervisor.
type Engine struct {
	classifier  Classifier
	synthesizer Synthesizer
	runner      *runner.Runner
	workers     map[worker.ID]runner.Worker
	maxSteps    int
	logger      *zap.Logger
}

// New creates an Engine. synthesizer may be nil; the concatenation fallback
// then produces the final answer.
func New(classifier Classifier, synthesizer Synthesizer, r *runner.Runner,
	workers map[worker.ID]runner.Worker, maxSteps int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSteps < 1 {
		maxSteps = 25
	}
	return &Engine{
		classifier:  classifier,
		synthesizer: synthesizer,
		runner:      r,
		workers:     workers,
		maxSteps:    maxSteps,
		logger:      logger,
	}
}

// Investigate runs one investigation to completion. The returned state
// always carries a non-empty final answer; worker failures degrade findings
// rather than aborting.
func (e *Engine) Investigate(ctx context.Context, query string) (*investigation.State, error) {
	st := investigation.New(query)
	metrics.InvestigationsStarted.Inc()
	start := time.Now()

	e.classify(ctx, st)

	intent := "unknown"
	if p := st.Params(); p != nil {
		intent = string(p.Intent)
	}

	dec := router.Entry(st)
	steps := 0
	for !dec.Synthesize {
		if steps >= e.maxSteps {
			st.AppendError(fmt.Sprintf("step ceiling %d reached; forcing synthesis", e.maxSteps))
			e.logger.Warn("Step ceiling reached", zap.String("investigation", st.ID))
			break
		}
		steps++

		if dec.SwitchTo != "" {
			if err := st.SwitchPhase(dec.SwitchTo); err != nil {
				st.AppendError(fmt.Sprintf("phase transition failed: %v", err))
				break
			}
			metrics.PhaseFlips.Inc()
			st.AppendTranscript(investigation.TranscriptEntry{
				Supervisor: true,
				Phase:      dec.SwitchTo,
				Message:    fmt.Sprintf("switching to %s phase", dec.SwitchTo),
			})
		}

		w, ok := e.workers[dec.Worker]
		if !ok {
			st.AppendError(fmt.Sprintf("no worker registered for %s", dec.Worker))
			break
		}

		st.AdvanceStep()
		if err := e.runner.Run(ctx, w, dec.Purpose, st); err != nil {
			return st, fmt.Errorf("engine fault running %s: %w", dec.Worker, err)
		}

		dec = router.Next(st)
	}

	e.synthesize(ctx, st)

	metrics.InvestigationsCompleted.WithLabelValues(intent, completionStatus(st)).Inc()
	metrics.InvestigationDuration.WithLabelValues(intent).Observe(time.Since(start).Seconds())
	e.logger.Info("Investigation completed",
		zap.String("investigation", st.ID),
		zap.String("intent", intent),
		zap.Int("steps", steps),
		zap.Int("errors", len(st.Errors())),
	)
	return st, nil
}

// classify populates the parameters, substituting a low-confidence default
// set on failure so the engine still reaches synthesis.
func (e *Engine) classify(ctx context.Context, st *investigation.State) {
	params, err := e.classifier.Classify(ctx, st.Query)
	if err == nil && params != nil {
		if nerr := params.Normalize(); nerr == nil {
			if verr := params.Validate(); verr == nil {
				serr := st.SetParams(params)
				if serr == nil {
					st.AppendTranscript(investigation.TranscriptEntry{
						Supervisor: true,
						Phase:      st.Phase(),
						Message: fmt.Sprintf("classified intent=%s order=%s comparison=%s: %s",
							params.Intent, params.OrderID, params.ComparisonOrderID, params.Rationale),
					})
					return
				}
				err = serr
			} else {
				err = verr
			}
		} else {
			err = nerr
		}
	}
	if err == nil {
		err = fmt.Errorf("classifier returned no parameters")
	}

	e.logger.Warn("Classification failed, using fallback parameters", zap.Error(err))
	st.AppendError(fmt.Sprintf("classification failed: %v", err))
	fallback := &investigation.Params{
		Intent:    investigation.IntentKnowledge,
		OrderDate: investigation.CurrentDate(),
		Rationale: "fallback after classification failure",
		Fallback:  true,
	}
	if serr := st.SetParams(fallback); serr != nil {
		e.logger.Error("Failed to install fallback parameters", zap.Error(serr))
		return
	}
	st.AppendTranscript(investigation.TranscriptEntry{
		Supervisor: true,
		Phase:      st.Phase(),
		Message:    "classification failed; continuing with fallback parameters",
	})
}

// synthesize produces the final answer, falling back to a concatenation of
// worker summaries so the answer is always non-empty.
func (e *Engine) synthesize(ctx context.Context, st *investigation.State) {
	var text string
	if e.synthesizer != nil {
		answer, err := e.synthesizer.Synthesize(ctx,
			st.PhaseFindings(investigation.PhasePrimary),
			st.PhaseFindings(investigation.PhaseComparison),
			st.Params(), st.Query)
		if err != nil {
			e.logger.Warn("Synthesis failed, using concatenation fallback", zap.Error(err))
			st.AppendError(fmt.Sprintf("synthesis failed: %v", err))
		} else {
			text = answer
		}
	}
	if text == "" {
		text = e.concatFindings(st)
	}
	if errs := st.Errors(); len(errs) > 0 {
		text += "\n\nIssues encountered:\n"
		for _, msg := range errs {
			text += "- " + sanitizeError(msg) + "\n"
		}
	}
	if err := st.SetFinalAnswer(text); err != nil {
		e.logger.Error("Failed to set final answer", zap.Error(err))
	}
	st.AppendTranscript(investigation.TranscriptEntry{
		Supervisor: true,
		Phase:      st.Phase(),
		Message:    "final answer synthesized",
	})
}

// concatFindings is the naive synthesis fallback.
func (e *Engine) concatFindings(st *investigation.State) string {
	var lines []string
	for _, phase := range []investigation.Phase{investigation.PhasePrimary, investigation.PhaseComparison} {
		findings := st.PhaseFindings(phase)
		keys := make([]investigation.FindingKey, 0, len(findings))
		for k := range findings {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			rec := findings[k]
			text := rec.Summary
			if rec.Analysis != "" {
				text = rec.Analysis
			}
			lines = append(lines, fmt.Sprintf("[%s] %s: %s", phase, k, text))
		}
	}
	if len(lines) == 0 {
		return "No findings were gathered for this query."
	}
	return strings.Join(lines, "\n")
}

// sanitizeError keeps raw internal error detail out of the user-facing
// answer; the transcript and error log retain the full text.
func sanitizeError(msg string) string {
	if i := strings.IndexByte(msg, ':'); i > 0 {
		return msg[:i] + " (details logged)"
	}
	return msg
}

func completionStatus(st *investigation.State) string {
	if len(st.Errors()) > 0 {
		return "degraded"
	}
	return "ok"
}
