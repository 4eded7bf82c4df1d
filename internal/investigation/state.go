package investigation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradeops-labs/orderscope/internal/worker"
)

// Phase names one independent pass of the investigation chain against one
// order. Exactly one phase is active at any time.
type Phase string

const (
	PhasePrimary    Phase = "primary"
	PhaseComparison Phase = "comparison"
)

// EnrichmentStatus tracks the per-phase enrichment sub-flow.
type EnrichmentStatus int

const (
	EnrichmentNone EnrichmentStatus = iota
	EnrichmentNormalizing
	EnrichmentResolving
	EnrichmentResolved
	EnrichmentFailed
)

func (s EnrichmentStatus) String() string {
	switch s {
	case EnrichmentNormalizing:
		return "normalizing"
	case EnrichmentResolving:
		return "resolving"
	case EnrichmentResolved:
		return "resolved"
	case EnrichmentFailed:
		return "failed"
	default:
		return "none"
	}
}

// Enrichment is the per-phase enrichment state. Fields are independent
// between phases; nothing here is shared or read across phases.
type Enrichment struct {
	Status     EnrichmentStatus
	RawID      string
	CleanID    string
	Active     bool
	ResolvedID string
	Reason     string // failure explanation when Status is EnrichmentFailed
}

// State is the mutable record threaded through one investigation. It has a
// single writer (the engine's synchronous execution path); independent
// investigations never share a State.
type State struct {
	ID        string
	Query     string
	CreatedAt time.Time

	params *Params

	phase       Phase
	stepCounter int
	enrichment  map[Phase]*Enrichment
	findings    map[Phase]map[FindingKey]FindingRecord
	transcript  []TranscriptEntry
	errorLog    []string
	finalAnswer string
}

// New creates the state for one investigation of query.
func New(query string) *State {
	return &State{
		ID:        uuid.New().String(),
		Query:     query,
		CreatedAt: time.Now(),
		phase:     PhasePrimary,
		enrichment: map[Phase]*Enrichment{
			PhasePrimary:    {},
			PhaseComparison: {},
		},
		findings: map[Phase]map[FindingKey]FindingRecord{
			PhasePrimary:    {},
			PhaseComparison: {},
		},
	}
}

// SetParams installs the classified parameters. It refuses a second call
// unless the replacement is a classification-failure fallback.
func (s *State) SetParams(p *Params) error {
	if s.params != nil && (p == nil || !p.Fallback) {
		return fmt.Errorf("parameters already set for investigation %s", s.ID)
	}
	s.params = p
	return nil
}

// Params returns the classified parameters, nil if classification never ran.
func (s *State) Params() *Params { return s.params }

// Phase returns the active phase.
func (s *State) Phase() Phase { return s.phase }

// Step returns the step counter for the active phase.
func (s *State) Step() int { return s.stepCounter }

// AdvanceStep increments the step counter.
func (s *State) AdvanceStep() { s.stepCounter++ }

// SwitchPhase activates the target phase, resetting the step counter and the
// target phase's enrichment state. The other phase's findings and enrichment
// are left untouched. It fails if the target phase already holds findings,
// which would indicate a routing bug.
func (s *State) SwitchPhase(to Phase) error {
	if to == s.phase {
		return fmt.Errorf("already in phase %s", to)
	}
	if len(s.findings[to]) != 0 {
		return fmt.Errorf("phase %s already holds %d findings", to, len(s.findings[to]))
	}
	s.phase = to
	s.stepCounter = 0
	s.enrichment[to] = &Enrichment{}
	return nil
}

// CurrentEntityID resolves the effective order id and date for a phase. Once
// enrichment has resolved (resolved id present, active flag cleared) the
// resolved id always wins over the classified id.
func (s *State) CurrentEntityID(phase Phase) (id, date string, resolved bool) {
	if s.params != nil {
		id, date = s.params.IDForPhase(phase)
	}
	e := s.enrichment[phase]
	if e.ResolvedID != "" && !e.Active {
		return e.ResolvedID, date, true
	}
	return id, date, false
}

// EnrichmentView returns a copy of a phase's enrichment state.
func (s *State) EnrichmentView(phase Phase) Enrichment {
	return *s.enrichment[phase]
}

// BeginEnrichment records a successful normalization: the phase enters the
// resolving stage with the cleaned id and the active flag set. Only one
// enrichment pass is legal per phase.
func (s *State) BeginEnrichment(phase Phase, raw, clean string) error {
	e := s.enrichment[phase]
	if e.Status == EnrichmentResolved || e.Status == EnrichmentFailed {
		return fmt.Errorf("enrichment already finished for phase %s (%s)", phase, e.Status)
	}
	e.Status = EnrichmentResolving
	e.RawID = raw
	e.CleanID = clean
	e.Active = true
	return nil
}

// FailEnrichment abandons enrichment for a phase. Downstream workers run
// with the classified id.
func (s *State) FailEnrichment(phase Phase, raw, reason string) {
	e := s.enrichment[phase]
	e.Status = EnrichmentFailed
	e.RawID = raw
	e.Active = false
	e.Reason = reason
}

// CompleteEnrichment stores the canonical id looked up from the cleaned id
// and clears the active flag; subsequent workers in the phase use it.
func (s *State) CompleteEnrichment(phase Phase, resolvedID string) error {
	e := s.enrichment[phase]
	if e.Status != EnrichmentResolving {
		return fmt.Errorf("phase %s not resolving (status %s)", phase, e.Status)
	}
	e.Status = EnrichmentResolved
	e.ResolvedID = resolvedID
	e.Active = false
	return nil
}

// RecordFinding merges a finding into the phase's findings map. Entries
// under other (worker, purpose) keys are never touched.
func (s *State) RecordFinding(phase Phase, rec FindingRecord) error {
	if rec.Worker == worker.IDNone {
		return fmt.Errorf("finding without a worker identity")
	}
	s.findings[phase][FindingKey{Worker: rec.Worker, Purpose: rec.Purpose}] = rec
	return nil
}

// Finding returns the finding for a (worker, purpose) key in a phase.
func (s *State) Finding(phase Phase, id worker.ID, purpose worker.Purpose) (FindingRecord, bool) {
	rec, ok := s.findings[phase][FindingKey{Worker: id, Purpose: purpose}]
	return rec, ok
}

// PhaseFindings returns a copy of a phase's findings map. Mutating the copy
// does not affect the investigation.
func (s *State) PhaseFindings(phase Phase) map[FindingKey]FindingRecord {
	out := make(map[FindingKey]FindingRecord, len(s.findings[phase]))
	for k, v := range s.findings[phase] {
		out[k] = v
	}
	return out
}

// HasFinding reports whether any finding exists for a worker in a phase,
// regardless of purpose.
func (s *State) HasFinding(phase Phase, id worker.ID) bool {
	for k := range s.findings[phase] {
		if k.Worker == id {
			return true
		}
	}
	return false
}

// AppendTranscript appends one step record.
func (s *State) AppendTranscript(e TranscriptEntry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.transcript = append(s.transcript, e)
}

// Transcript returns the ordered step records.
func (s *State) Transcript() []TranscriptEntry {
	out := make([]TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// LastWorker scans the transcript backward for the most recent non-supervisor
// entry. The router depends on this rather than on any stored field.
func (s *State) LastWorker() (worker.ID, bool) {
	for i := len(s.transcript) - 1; i >= 0; i-- {
		if !s.transcript[i].Supervisor && s.transcript[i].Worker != worker.IDNone {
			return s.transcript[i].Worker, true
		}
	}
	return worker.IDNone, false
}

// AppendError appends one error string to the log.
func (s *State) AppendError(text string) {
	s.errorLog = append(s.errorLog, text)
}

// Errors returns the accumulated error log.
func (s *State) Errors() []string {
	out := make([]string, len(s.errorLog))
	copy(out, s.errorLog)
	return out
}

// SetFinalAnswer records the synthesized answer. It may be set once.
func (s *State) SetFinalAnswer(text string) error {
	if s.finalAnswer != "" {
		return fmt.Errorf("final answer already set for investigation %s", s.ID)
	}
	s.finalAnswer = text
	return nil
}

// FinalAnswer returns the synthesized answer, empty until termination.
func (s *State) FinalAnswer() string { return s.finalAnswer }
