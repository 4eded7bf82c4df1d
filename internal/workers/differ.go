package workers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tradeops-labs/orderscope/internal/investigation"
	"github.com/tradeops-labs/orderscope/internal/runner"
	"github.com/tradeops-labs/orderscope/internal/worker"
)

// Differencing compares the findings of the two phases once both orders
// have been investigated. It reads copies of both findings maps and never
// mutates either phase.
type Differencing struct{}

func NewDifferencing() *Differencing { return &Differencing{} }

func (d *Differencing) ID() worker.ID { return worker.IDDifferencing }

func (d *Differencing) Capabilities() worker.Capabilities {
	// Output depends on accumulated findings, not on (id, date) alone.
	return worker.Capabilities{Cacheable: false}
}

func (d *Differencing) Execute(_ context.Context, call runner.Call, st *investigation.State) (worker.Outcome, error) {
	primary := st.PhaseFindings(investigation.PhasePrimary)
	comparison := st.PhaseFindings(investigation.PhaseComparison)

	if len(primary) == 0 || len(comparison) == 0 {
		return worker.Outcome{
			Summary: "Comparison incomplete: findings missing for one or both orders",
			Err:     "insufficient data for comparison",
		}, nil
	}

	p := st.Params()
	primaryID, _ := p.IDForPhase(investigation.PhasePrimary)
	comparisonID, _ := p.IDForPhase(investigation.PhaseComparison)

	var b strings.Builder
	fmt.Fprintf(&b, "PRIMARY ORDER %s\n", primaryID)
	writeFindings(&b, primary)
	fmt.Fprintf(&b, "\nCOMPARISON ORDER %s\n", comparisonID)
	writeFindings(&b, comparison)

	divergent := divergentFlags(primary, comparison)
	if len(divergent) > 0 {
		fmt.Fprintf(&b, "\nDivergent signals: %s\n", strings.Join(divergent, ", "))
	}

	summary := fmt.Sprintf("Compared %s with %s across %d and %d findings",
		primaryID, comparisonID, len(primary), len(comparison))
	if len(divergent) > 0 {
		summary += fmt.Sprintf("; %d divergent signals", len(divergent))
	}

	return worker.Outcome{
		Summary:    summary,
		RawPayload: b.String(),
		Flags:      map[string]bool{worker.FlagComparisonCompleted: true},
	}, nil
}

func writeFindings(b *strings.Builder, findings map[investigation.FindingKey]investigation.FindingRecord) {
	for _, k := range sortedKeys(findings) {
		rec := findings[k]
		line := rec.Summary
		if rec.Degraded {
			line += " (degraded)"
		}
		fmt.Fprintf(b, "  %s: %s\n", k, line)
	}
}

// divergentFlags lists domain flags whose value differs between phases for
// the same (worker, purpose) key.
func divergentFlags(primary, comparison map[investigation.FindingKey]investigation.FindingRecord) []string {
	var out []string
	for _, k := range sortedKeys(primary) {
		crec, ok := comparison[k]
		if !ok {
			out = append(out, k.String()+" missing for comparison order")
			continue
		}
		prec := primary[k]
		for name, v := range prec.Flags {
			if crec.Flags[name] != v {
				out = append(out, fmt.Sprintf("%s.%s", k, name))
			}
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[investigation.FindingKey]investigation.FindingRecord) []investigation.FindingKey {
	keys := make([]investigation.FindingKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
