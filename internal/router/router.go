// Package router decides, step by step, which worker runs next. Decisions
// are pure functions of (last worker, intent, phase, domain flags): repeated
// evaluation over the same inputs yields the same decision.
package router

import (
	"github.com/tradeops-labs/orderscope/internal/enrichment"
	"github.com/tradeops-labs/orderscope/internal/investigation"
	"github.com/tradeops-labs/orderscope/internal/worker"
)

// Decision names the next step. Exactly one of Worker/Synthesize applies;
// SwitchTo, when set, is applied by the supervisor before running Worker.
type Decision struct {
	Worker     worker.ID
	Purpose    worker.Purpose
	SwitchTo   investigation.Phase // "" when no phase transition
	Synthesize bool
}

// Flags are the domain flags a decision depends on, extracted from the
// active phase's findings and enrichment state.
type Flags struct {
	RecordsFound       bool // log search reported records for the effective id
	LogSearchRan       bool // a log-search finding exists in this phase
	ResolutionActive   bool // enrichment normalize done, canonical id not yet looked up
	ResolutionComplete bool // canonical id stored, resolved id preferred from here on
	ResolutionFailed   bool // enrichment abandoned for this phase
}

// FlagsFor extracts the routing flags for a phase.
func FlagsFor(st *investigation.State, phase investigation.Phase) Flags {
	var f Flags
	if rec, ok := st.Finding(phase, worker.IDLogSearch, worker.PurposeSearch); ok {
		f.LogSearchRan = true
		f.RecordsFound = rec.Flag(worker.FlagRecordsFound)
	}
	e := st.EnrichmentView(phase)
	f.ResolutionActive = e.Active
	f.ResolutionComplete = e.Status == investigation.EnrichmentResolved
	f.ResolutionFailed = e.Status == investigation.EnrichmentFailed
	return f
}

// Entry selects the first worker of an investigation. When classification
// never populated parameters, the engine goes straight to synthesis.
func Entry(st *investigation.State) Decision {
	p := st.Params()
	if p == nil {
		return Decision{Synthesize: true}
	}
	return entryFor(p, investigation.PhasePrimary)
}

// entryFor is the entry rule for one phase, re-entered after the phase flip.
func entryFor(p *investigation.Params, phase investigation.Phase) Decision {
	id, _ := p.IDForPhase(phase)

	switch p.Intent {
	case investigation.IntentInvestigation, investigation.IntentComparison, investigation.IntentData:
		if id != "" && enrichment.Required(id) {
			return Decision{Worker: worker.IDNormalize, Purpose: worker.PurposeNormalize}
		}
	}

	switch p.Intent {
	case investigation.IntentKnowledge:
		return Decision{Worker: worker.IDKnowledge, Purpose: worker.PurposeLookup}
	case investigation.IntentMonitoring:
		return Decision{Worker: worker.IDMonitoring, Purpose: worker.PurposeHealth}
	case investigation.IntentCodeAnalysis:
		if id != "" {
			return Decision{Worker: worker.IDDatabase, Purpose: worker.PurposeRetrieval}
		}
		return Decision{Worker: worker.IDCodeAnalysis, Purpose: worker.PurposeAnalysis}
	default: // data, investigation, comparison
		return Decision{Worker: worker.IDLogSearch, Purpose: worker.PurposeSearch}
	}
}

// Next decides the step after the worker that just finished. The identity of
// that worker is derived by scanning the transcript backward, never from a
// field that might not yet be updated.
func Next(st *investigation.State) Decision {
	p := st.Params()
	if p == nil {
		return Decision{Synthesize: true}
	}
	last, ok := st.LastWorker()
	if !ok {
		return entryFor(p, st.Phase())
	}
	return decide(last, p, st.Phase(), FlagsFor(st, st.Phase()))
}

// decide is the pure decision core.
func decide(last worker.ID, p *investigation.Params, phase investigation.Phase, f Flags) Decision {
	// Summarization funnels into terminal synthesis for every intent.
	if last == worker.IDSummarize {
		return Decision{Synthesize: true}
	}

	switch p.Intent {
	case investigation.IntentKnowledge, investigation.IntentData, investigation.IntentMonitoring:
		return summarize()

	case investigation.IntentCodeAnalysis:
		switch last {
		case worker.IDDatabase:
			return Decision{Worker: worker.IDCodeAnalysis, Purpose: worker.PurposeAnalysis}
		default:
			return summarize()
		}

	case investigation.IntentInvestigation:
		if d, done := chainStep(last, f); !done {
			return d
		}
		return summarize()

	case investigation.IntentComparison:
		if last == worker.IDDifferencing {
			return summarize()
		}
		d, done := chainStep(last, f)
		if !done {
			return d
		}
		if phase == investigation.PhasePrimary {
			return flipToComparison(p)
		}
		// Both orders investigated; difference them.
		return Decision{Worker: worker.IDDifferencing, Purpose: worker.PurposeDiff}

	default:
		return summarize()
	}
}

// chainStep advances the single-order chain: enrichment (when routed in),
// log search, then database+simulation only when log search found nothing.
// done=true means the chain reached its terminal point for this phase.
func chainStep(last worker.ID, f Flags) (Decision, bool) {
	switch last {
	case worker.IDNormalize:
		if f.ResolutionActive {
			return Decision{Worker: worker.IDDatabase, Purpose: worker.PurposeResolution}, false
		}
		// Normalization failed; proceed on the classified id.
		return Decision{Worker: worker.IDLogSearch, Purpose: worker.PurposeSearch}, false

	case worker.IDDatabase:
		// The resolution lookup and the trade retrieval are told apart by
		// enrichment-state flags alone, never by an invocation counter: a
		// database call before log search has run can only be the lookup.
		if !f.LogSearchRan {
			return Decision{Worker: worker.IDLogSearch, Purpose: worker.PurposeSearch}, false
		}
		return Decision{Worker: worker.IDSimulation, Purpose: worker.PurposeReplay}, false

	case worker.IDLogSearch:
		if f.RecordsFound {
			return Decision{}, true
		}
		return Decision{Worker: worker.IDDatabase, Purpose: worker.PurposeRetrieval}, false

	case worker.IDSimulation:
		return Decision{}, true

	default:
		return Decision{}, true
	}
}

// flipToComparison is the phase-flip rule: switch phases and re-enter the
// enrichment-check/entry logic for the comparison identifier.
func flipToComparison(p *investigation.Params) Decision {
	d := entryFor(p, investigation.PhaseComparison)
	d.SwitchTo = investigation.PhaseComparison
	return d
}

func summarize() Decision {
	return Decision{Worker: worker.IDSummarize, Purpose: worker.PurposeReport}
}
