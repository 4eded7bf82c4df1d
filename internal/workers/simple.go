package workers

import (
	"context"
	"fmt"

	"github.com/tradeops-labs/orderscope/internal/investigation"
	"github.com/tradeops-labs/orderscope/internal/runner"
	"github.com/tradeops-labs/orderscope/internal/worker"
)

// Simulation replays pricing for the effective order and compares the
// replayed price with the recorded one.
type Simulation struct {
	sim PricingSimulator
}

func NewSimulation(sim PricingSimulator) *Simulation { return &Simulation{sim: sim} }

func (s *Simulation) ID() worker.ID { return worker.IDSimulation }

func (s *Simulation) Capabilities() worker.Capabilities {
	return worker.Capabilities{Cacheable: true}
}

func (s *Simulation) Execute(ctx context.Context, call runner.Call, _ *investigation.State) (worker.Outcome, error) {
	if call.EffectiveID == "" {
		return worker.Outcome{
			Summary: "Pricing replay skipped: no order id",
			Err:     "order id required for pricing replay",
		}, nil
	}
	res, err := s.sim.Replay(ctx, call.EffectiveID, call.EffectiveDate)
	if err != nil {
		return worker.Outcome{}, err
	}
	verdict := "replayed price matches the recorded price"
	if !res.Matches {
		verdict = fmt.Sprintf("replayed price %.4f diverges from recorded %.4f", res.ReplayedPrice, res.ActualPrice)
	}
	return worker.Outcome{
		Summary:    fmt.Sprintf("Pricing replay for %s: %s", res.OrderID, verdict),
		RawPayload: res.Detail,
		Flags:      map[string]bool{"replay_matches": res.Matches},
	}, nil
}

// Knowledge answers domain questions from the knowledge base.
type Knowledge struct {
	kb KnowledgeBase
}

func NewKnowledge(kb KnowledgeBase) *Knowledge { return &Knowledge{kb: kb} }

func (k *Knowledge) ID() worker.ID { return worker.IDKnowledge }

func (k *Knowledge) Capabilities() worker.Capabilities {
	return worker.Capabilities{Cacheable: true}
}

func (k *Knowledge) Execute(ctx context.Context, call runner.Call, _ *investigation.State) (worker.Outcome, error) {
	answer, err := k.kb.Lookup(ctx, call.Query)
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Outcome{
		Summary:    "Knowledge base answer retrieved",
		RawPayload: answer,
	}, nil
}

// Monitoring reports a platform health snapshot.
type Monitoring struct {
	mon HealthMonitor
}

func NewMonitoring(mon HealthMonitor) *Monitoring { return &Monitoring{mon: mon} }

func (m *Monitoring) ID() worker.ID { return worker.IDMonitoring }

func (m *Monitoring) Capabilities() worker.Capabilities {
	return worker.Capabilities{Cacheable: true}
}

func (m *Monitoring) Execute(ctx context.Context, _ runner.Call, _ *investigation.State) (worker.Outcome, error) {
	snap, err := m.mon.Snapshot(ctx)
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Outcome{
		Summary:    "Platform health snapshot captured",
		RawPayload: snap,
	}, nil
}

// CodeAnalysis explains the pricing code paths involved in a query.
type CodeAnalysis struct {
	idx CodeIndex
}

func NewCodeAnalysis(idx CodeIndex) *CodeAnalysis { return &CodeAnalysis{idx: idx} }

func (c *CodeAnalysis) ID() worker.ID { return worker.IDCodeAnalysis }

func (c *CodeAnalysis) Capabilities() worker.Capabilities {
	return worker.Capabilities{Cacheable: true}
}

func (c *CodeAnalysis) Execute(ctx context.Context, call runner.Call, _ *investigation.State) (worker.Outcome, error) {
	explanation, err := c.idx.Explain(ctx, call.Query)
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Outcome{
		Summary:    "Code path analysis completed",
		RawPayload: explanation,
	}, nil
}
