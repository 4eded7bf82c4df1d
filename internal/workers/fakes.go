package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/tradeops-labs/orderscope/internal/worker"
)

// In-memory collaborators. The real log/database/simulation/knowledge
// integrations live outside this engine; these stand-ins carry enough
// simulated order data for the demo binary and the tests.

// MemoryLogStore returns canned log entries for known orders.
type MemoryLogStore struct {
	// Known maps order id to whether logs exist for it. Unknown ids get
	// RecordsFound=false; an empty id is a system-wide search.
	Known map[string]bool
}

func (m *MemoryLogStore) Search(_ context.Context, orderID, date string) (LogResult, error) {
	query := fmt.Sprintf("index=trading sourcetype=pricing order_id=%s date=%s", orderID, date)
	if orderID == "" {
		return LogResult{
			Query:        "index=trading sourcetype=pricing earliest=-1h",
			Entries:      []string{"system processing 125 orders", "no errors in the last hour"},
			RecordsFound: true,
		}, nil
	}
	found, ok := m.Known[orderID]
	if !ok || !found {
		return LogResult{Query: query, RecordsFound: false}, nil
	}
	return LogResult{
		Query: query,
		Entries: []string{
			fmt.Sprintf("order received order_id=%s", orderID),
			"pricing calculation initiated",
			"client tier GOLD instrument EURUSD",
			"base price 1.0850 spread 0.0002",
			"final price calculated 1.0852",
		},
		RecordsFound: true,
	}, nil
}

// MemoryOrderStore resolves display-format ids by swapping the sentinel
// prefix for the canonical one, and returns canned trade records.
type MemoryOrderStore struct {
	Trades map[string]TradeRecord
}

func (m *MemoryOrderStore) ResolveOrderID(_ context.Context, cleanID string) (string, error) {
	if cleanID == "" {
		return "", fmt.Errorf("empty order id")
	}
	return "ORD" + cleanID[1:], nil
}

func (m *MemoryOrderStore) FetchTrade(_ context.Context, orderID string) (TradeRecord, error) {
	if t, ok := m.Trades[orderID]; ok {
		return t, nil
	}
	return TradeRecord{
		OrderID:    orderID,
		ClientID:   "CLI_001",
		Tier:       "GOLD",
		Instrument: "EURUSD",
		Quantity:   1000000,
		Status:     "COMPLETED",
		BasePrice:  1.0850,
		Spread:     0.0002,
	}, nil
}

// MemorySimulator replays pricing with a fixed result.
type MemorySimulator struct {
	Diverge map[string]bool // order ids whose replay diverges
}

func (m *MemorySimulator) Replay(_ context.Context, orderID, date string) (SimulationResult, error) {
	diverges := m.Diverge[orderID]
	res := SimulationResult{
		OrderID:       orderID,
		ReplayedPrice: 1.0852,
		ActualPrice:   1.0852,
		Matches:       !diverges,
		Detail:        fmt.Sprintf("replayed pricing pipeline for %s on %s", orderID, date),
	}
	if diverges {
		res.ReplayedPrice = 1.0861
	}
	return res, nil
}

// MemoryKnowledgeBase answers from a small topic map.
type MemoryKnowledgeBase struct {
	Topics map[string]string
}

func (m *MemoryKnowledgeBase) Lookup(_ context.Context, query string) (string, error) {
	q := strings.ToLower(query)
	for topic, answer := range m.Topics {
		if strings.Contains(q, strings.ToLower(topic)) {
			return answer, nil
		}
	}
	return "No knowledge base article matched the query.", nil
}

// MemoryHealthMonitor reports a fixed healthy snapshot.
type MemoryHealthMonitor struct{}

func (MemoryHealthMonitor) Snapshot(context.Context) (string, error) {
	return "all pricing services healthy; queue depth nominal", nil
}

// MemoryAnalyzer condenses a worker outcome deterministically. The real
// deep-analysis collaborator is LLM-backed.
type MemoryAnalyzer struct{}

func (MemoryAnalyzer) Analyze(_ context.Context, _ string, out worker.Outcome) (string, error) {
	if out.Err != "" {
		return fmt.Sprintf("The step reported an error (%s); treat its contribution as unreliable.", out.Err), nil
	}
	payload := out.RawPayload
	if len(payload) > 200 {
		payload = payload[:200] + "..."
	}
	if payload == "" {
		return out.Summary, nil
	}
	return fmt.Sprintf("%s Key data: %s", out.Summary, payload), nil
}

// MemoryCodeIndex explains a fixed code path.
type MemoryCodeIndex struct{}

func (MemoryCodeIndex) Explain(_ context.Context, topic string) (string, error) {
	return fmt.Sprintf("pricing pipeline: request parsing -> tier lookup -> spread adjustment -> final price (topic: %s)", topic), nil
}
