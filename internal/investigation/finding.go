package investigation

import (
	"time"

	"github.com/tradeops-labs/orderscope/internal/worker"
)

// FindingKey addresses one finding in a phase's findings map. Purpose is
// part of the key because some workers legitimately run twice per phase.
type FindingKey struct {
	Worker  worker.ID
	Purpose worker.Purpose
}

func (k FindingKey) String() string {
	return k.Worker.String() + "/" + string(k.Purpose)
}

// FindingRecord is the immutable result of one worker invocation. It is
// created exactly once by the execution wrapper and merged into the owning
// phase's findings map.
type FindingRecord struct {
	Worker     worker.ID
	Purpose    worker.Purpose
	Summary    string
	Analysis   string
	PayloadRef string // cache key of the raw payload, if cached
	Flags      map[string]bool
	Meta       map[string]string
	EntityID   string
	Resolved   bool // entity id came from enrichment
	FromCache  bool
	Degraded   bool
	Err        string
	Timestamp  time.Time
}

// Flag returns the named domain flag, false if unset.
func (r FindingRecord) Flag(name string) bool {
	return r.Flags[name]
}

// TranscriptEntry is one human-readable step record. Entries are
// append-only; the router derives "last worker" by scanning them backward.
type TranscriptEntry struct {
	Supervisor bool
	Worker     worker.ID
	Purpose    worker.Purpose
	Phase      Phase
	Step       int
	Message    string
	Resolved   bool
	FromCache  bool
	Timestamp  time.Time
}
