package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/tradeops-labs/orderscope/internal/investigation"
	"github.com/tradeops-labs/orderscope/internal/runner"
	"github.com/tradeops-labs/orderscope/internal/worker"
)

// Summarize assembles the investigation report from every finding gathered
// so far. Every intent subgraph funnels through it exactly once before
// terminal synthesis.
type Summarize struct{}

func NewSummarize() *Summarize { return &Summarize{} }

func (s *Summarize) ID() worker.ID { return worker.IDSummarize }

func (s *Summarize) Capabilities() worker.Capabilities {
	return worker.Capabilities{Cacheable: false}
}

func (s *Summarize) Execute(_ context.Context, call runner.Call, st *investigation.State) (worker.Outcome, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Investigation report for: %s\n", st.Query)

	phases := []investigation.Phase{investigation.PhasePrimary}
	if p := st.Params(); p != nil && p.Intent == investigation.IntentComparison {
		phases = append(phases, investigation.PhaseComparison)
	}

	total := 0
	for _, phase := range phases {
		findings := st.PhaseFindings(phase)
		if len(findings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n[%s]\n", strings.ToUpper(string(phase)))
		for _, k := range sortedKeys(findings) {
			rec := findings[k]
			if rec.Worker == worker.IDSummarize {
				continue
			}
			total++
			fmt.Fprintf(&b, "- %s: %s\n", k, rec.Summary)
			if rec.Analysis != "" && rec.Analysis != rec.Summary {
				fmt.Fprintf(&b, "  analysis: %s\n", rec.Analysis)
			}
			if rec.Degraded {
				b.WriteString("  (degraded: this worker could not complete)\n")
			}
		}
	}

	return worker.Outcome{
		Summary:    fmt.Sprintf("Report assembled from %d findings", total),
		RawPayload: b.String(),
	}, nil
}
