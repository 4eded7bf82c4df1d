package worker

import (
	"errors"
	"fmt"
)

// ID identifies a worker in the investigation graph. The set is closed:
// the router switches exhaustively over these values.
type ID int

const (
	IDNone ID = iota
	IDKnowledge
	IDLogSearch
	IDDatabase
	IDSimulation
	IDMonitoring
	IDCodeAnalysis
	IDDifferencing
	IDNormalize
	IDSummarize
)

func (id ID) String() string {
	switch id {
	case IDKnowledge:
		return "knowledge"
	case IDLogSearch:
		return "log_search"
	case IDDatabase:
		return "database"
	case IDSimulation:
		return "simulation"
	case IDMonitoring:
		return "monitoring"
	case IDCodeAnalysis:
		return "code_analysis"
	case IDDifferencing:
		return "differencing"
	case IDNormalize:
		return "normalize"
	case IDSummarize:
		return "summarize"
	default:
		return "none"
	}
}

// Purpose tags one invocation of a worker. The database worker runs twice
// per phase (resolution lookup, then trade retrieval), so findings are keyed
// by (ID, Purpose) rather than ID alone.
type Purpose string

const (
	PurposeSearch     Purpose = "search"
	PurposeResolution Purpose = "resolution"
	PurposeRetrieval  Purpose = "retrieval"
	PurposeReplay     Purpose = "replay"
	PurposeLookup     Purpose = "lookup"
	PurposeHealth     Purpose = "health"
	PurposeAnalysis   Purpose = "analysis"
	PurposeDiff       Purpose = "diff"
	PurposeReport     Purpose = "report"
	PurposeNormalize  Purpose = "normalize"
)

// Capabilities describes wrapper-relevant behavior of a worker.
type Capabilities struct {
	// Cacheable workers have their outcome cached by (id, entity, date).
	// Workers whose output depends on accumulated findings (summarize,
	// differencing) are not cacheable.
	Cacheable bool
}

// Domain flag names carried on outcomes and findings. The router reads
// these; workers set them.
const (
	FlagRecordsFound        = "records_found"
	FlagResolutionCompleted = "resolution_completed"
	FlagComparisonCompleted = "comparison_completed"
)

// Outcome is the uniform result of one worker invocation.
type Outcome struct {
	Summary    string            `json:"summary"`
	Analysis   string            `json:"analysis,omitempty"`
	RawPayload string            `json:"raw_payload,omitempty"`
	Flags      map[string]bool   `json:"flags,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
	Err        string            `json:"err,omitempty"`
}

// Flag returns the named domain flag, false if unset.
func (o Outcome) Flag(name string) bool {
	return o.Flags[name]
}

// TransientError marks a failure as timeout/connectivity-class. The
// execution wrapper retries these with backoff; anything else fails fast.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Returns nil for nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
