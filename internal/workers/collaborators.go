// Package workers holds the specialist workers routed by the engine. Each
// worker wraps one external collaborator and mutates investigation state
// only through the state container's accessors.
package workers

import "context"

// LogResult is a log store query result. RecordsFound drives the router's
// skip-ahead: when logs exist, database and simulation are skipped.
type LogResult struct {
	Query        string
	Entries      []string
	RecordsFound bool
}

// LogStore searches processing logs for an order. Empty id/date mean a
// system-wide search.
type LogStore interface {
	Search(ctx context.Context, orderID, date string) (LogResult, error)
}

// TradeRecord is the database view of one order.
type TradeRecord struct {
	OrderID    string
	ClientID   string
	Tier       string
	Instrument string
	Quantity   int64
	Status     string
	BasePrice  float64
	Spread     float64
}

// OrderStore is the order database. ResolveOrderID maps a cleaned
// display-format id to the canonical id used by backing systems.
type OrderStore interface {
	ResolveOrderID(ctx context.Context, cleanID string) (string, error)
	FetchTrade(ctx context.Context, orderID string) (TradeRecord, error)
}

// SimulationResult is a pricing replay outcome.
type SimulationResult struct {
	OrderID       string
	ReplayedPrice float64
	ActualPrice   float64
	Matches       bool
	Detail        string
}

// PricingSimulator replays pricing for an order.
type PricingSimulator interface {
	Replay(ctx context.Context, orderID, date string) (SimulationResult, error)
}

// KnowledgeBase answers domain-knowledge questions.
type KnowledgeBase interface {
	Lookup(ctx context.Context, query string) (string, error)
}

// HealthMonitor reports platform health.
type HealthMonitor interface {
	Snapshot(ctx context.Context) (string, error)
}

// CodeIndex answers code-path questions about the pricing system.
type CodeIndex interface {
	Explain(ctx context.Context, topic string) (string, error)
}
