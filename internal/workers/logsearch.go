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

// LogSearch queries the log store for order processing events. Its
// records-found flag decides whether the router skips ahead to
// summarization or falls through to database and simulation.
type LogSearch struct {
	store  LogStore
	logger *zap.Logger
}

func NewLogSearch(store LogStore, logger *zap.Logger) *LogSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSearch{store: store, logger: logger}
}

func (l *LogSearch) ID() worker.ID { return worker.IDLogSearch }

func (l *LogSearch) Capabilities() worker.Capabilities {
	return worker.Capabilities{Cacheable: true}
}

func (l *LogSearch) Execute(ctx context.Context, call runner.Call, _ *investigation.State) (worker.Outcome, error) {
	res, err := l.store.Search(ctx, call.EffectiveID, call.EffectiveDate)
	if err != nil {
		return worker.Outcome{}, err
	}

	scope := "system-wide"
	if call.EffectiveID != "" {
		scope = "order " + call.EffectiveID
	}
	summary := fmt.Sprintf("Logs not found for %s", scope)
	if res.RecordsFound {
		summary = fmt.Sprintf("%d log entries found for %s", len(res.Entries), scope)
	}

	l.logger.Debug("Log search completed",
		zap.String("scope", scope),
		zap.Bool("records_found", res.RecordsFound),
		zap.Int("entries", len(res.Entries)),
	)
	return worker.Outcome{
		Summary:    summary,
		RawPayload: fmt.Sprintf("query=%s\n%s", res.Query, strings.Join(res.Entries, "\n")),
		Flags:      map[string]bool{worker.FlagRecordsFound: res.RecordsFound},
	}, nil
}
