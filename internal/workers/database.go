package workers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tradeops-labs/orderscope/internal/investigation"
	"github.com/tradeops-labs/orderscope/internal/runner"
	"github.com/tradeops-labs/orderscope/internal/worker"
)

// Database serves two call purposes within one phase: the enrichment
// resolution lookup (cleaned id to canonical id) and the trade-data
// retrieval. The router tells them apart via enrichment flags and tags the
// call purpose accordingly.
type Database struct {
	store  OrderStore
	logger *zap.Logger
}

func NewDatabase(store OrderStore, logger *zap.Logger) *Database {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Database{store: store, logger: logger}
}

func (d *Database) ID() worker.ID { return worker.IDDatabase }

func (d *Database) Capabilities() worker.Capabilities {
	return worker.Capabilities{Cacheable: true}
}

func (d *Database) Execute(ctx context.Context, call runner.Call, st *investigation.State) (worker.Outcome, error) {
	if call.Purpose == worker.PurposeResolution {
		return d.resolve(ctx, call, st)
	}
	return d.retrieve(ctx, call)
}

func (d *Database) resolve(ctx context.Context, call runner.Call, st *investigation.State) (worker.Outcome, error) {
	e := st.EnrichmentView(call.Phase)
	if e.CleanID == "" {
		return worker.Outcome{
			Summary: "Resolution lookup skipped: no normalized id",
			Err:     "resolution requested without a normalized order id",
		}, nil
	}

	resolved, err := d.store.ResolveOrderID(ctx, e.CleanID)
	if err != nil {
		return worker.Outcome{}, err
	}
	if err := st.CompleteEnrichment(call.Phase, resolved); err != nil {
		return worker.Outcome{}, err
	}

	d.logger.Info("Order id resolved",
		zap.String("clean", e.CleanID),
		zap.String("resolved", resolved),
		zap.String("phase", string(call.Phase)),
	)
	return worker.Outcome{
		Summary:    fmt.Sprintf("Resolved %s to canonical id %s", e.CleanID, resolved),
		RawPayload: fmt.Sprintf("clean_id=%s resolved_id=%s", e.CleanID, resolved),
		Flags:      map[string]bool{worker.FlagResolutionCompleted: true},
		Meta:       map[string]string{"resolved_id": resolved},
	}, nil
}

func (d *Database) retrieve(ctx context.Context, call runner.Call) (worker.Outcome, error) {
	if call.EffectiveID == "" {
		return worker.Outcome{
			Summary: "Database lookup skipped: no order id",
			Err:     "order id required for trade retrieval",
		}, nil
	}

	trade, err := d.store.FetchTrade(ctx, call.EffectiveID)
	if err != nil {
		return worker.Outcome{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "order=%s client=%s tier=%s instrument=%s quantity=%d status=%s base_price=%.4f spread=%.4f",
		trade.OrderID, trade.ClientID, trade.Tier, trade.Instrument,
		trade.Quantity, trade.Status, trade.BasePrice, trade.Spread)

	return worker.Outcome{
		Summary:    fmt.Sprintf("Trade record retrieved for %s (%s tier, %s)", trade.OrderID, trade.Tier, trade.Instrument),
		RawPayload: b.String(),
		Meta: map[string]string{
			"client_id":  trade.ClientID,
			"tier":       trade.Tier,
			"instrument": trade.Instrument,
		},
	}, nil
}
