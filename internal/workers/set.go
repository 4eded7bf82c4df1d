package workers

import (
	"go.uber.org/zap"

	"github.com/tradeops-labs/orderscope/internal/runner"
	"github.com/tradeops-labs/orderscope/internal/worker"
)

// Deps bundles the external collaborators the worker set is built from.
type Deps struct {
	Logs      LogStore
	Orders    OrderStore
	Simulator PricingSimulator
	Knowledge KnowledgeBase
	Health    HealthMonitor
	Code      CodeIndex
	Logger    *zap.Logger
}

// Set builds the complete worker graph. The same set is reused across both
// investigation phases.
func Set(d Deps) map[worker.ID]runner.Worker {
	return map[worker.ID]runner.Worker{
		worker.IDNormalize:    NewNormalize(d.Logger),
		worker.IDLogSearch:    NewLogSearch(d.Logs, d.Logger),
		worker.IDDatabase:     NewDatabase(d.Orders, d.Logger),
		worker.IDSimulation:   NewSimulation(d.Simulator),
		worker.IDKnowledge:    NewKnowledge(d.Knowledge),
		worker.IDMonitoring:   NewMonitoring(d.Health),
		worker.IDCodeAnalysis: NewCodeAnalysis(d.Code),
		worker.IDDifferencing: NewDifferencing(),
		worker.IDSummarize:    NewSummarize(),
	}
}

// FakeDeps returns the in-memory collaborator set used by the demo binary
// and the tests. knownOrders lists ids for which logs exist.
func FakeDeps(logger *zap.Logger, knownOrders ...string) Deps {
	known := make(map[string]bool, len(knownOrders))
	for _, id := range knownOrders {
		known[id] = true
	}
	return Deps{
		Logs:      &MemoryLogStore{Known: known},
		Orders:    &MemoryOrderStore{},
		Simulator: &MemorySimulator{},
		Knowledge: &MemoryKnowledgeBase{Topics: map[string]string{
			"pricing": "Pricing applies the client tier spread adjustment to the market base price.",
			"tier":    "GOLD tier clients receive a 10% spread discount.",
		}},
		Health: MemoryHealthMonitor{},
		Code:   MemoryCodeIndex{},
		Logger: logger,
	}
}
