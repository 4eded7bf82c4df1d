package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradeops-labs/orderscope/internal/enrichment"
	"github.com/tradeops-labs/orderscope/internal/investigation"
	"github.com/tradeops-labs/orderscope/internal/runner"
	"github.com/tradeops-labs/orderscope/internal/worker"
)

// Normalize is the first enrichment step: strip separators from the
// display-format order id and validate its shape. On success the phase
// enters the resolving stage; on validation failure enrichment is abandoned
// for the phase and downstream workers run with the classified id.
type Normalize struct {
	logger *zap.Logger
}

func NewNormalize(logger *zap.Logger) *Normalize {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalize{logger: logger}
}

func (n *Normalize) ID() worker.ID { return worker.IDNormalize }

func (n *Normalize) Capabilities() worker.Capabilities {
	// Normalization mutates enrichment state; replaying a cached outcome
	// would skip that mutation.
	return worker.Capabilities{Cacheable: false}
}

func (n *Normalize) Execute(ctx context.Context, call runner.Call, st *investigation.State) (worker.Outcome, error) {
	raw := call.EffectiveID
	if raw == "" {
		reason := "no order id provided for enrichment"
		st.FailEnrichment(call.Phase, raw, reason)
		return worker.Outcome{
			Summary: "Normalization failed: no order id",
			Err:     reason,
		}, nil
	}

	clean := enrichment.Clean(raw)
	if err := enrichment.Validate(clean); err != nil {
		st.FailEnrichment(call.Phase, raw, err.Error())
		return worker.Outcome{
			Summary:    fmt.Sprintf("Normalization failed for %s", raw),
			RawPayload: fmt.Sprintf("original=%s cleaned=%s error=%s", raw, clean, err),
			Err:        err.Error(),
		}, nil
	}

	if err := st.BeginEnrichment(call.Phase, raw, clean); err != nil {
		// A second pass per phase is illegal; surface it as a finding error.
		return worker.Outcome{
			Summary: fmt.Sprintf("Normalization skipped for %s", raw),
			Err:     err.Error(),
		}, nil
	}

	n.logger.Info("Order id normalized",
		zap.String("raw", raw),
		zap.String("clean", clean),
		zap.String("phase", string(call.Phase)),
	)
	return worker.Outcome{
		Summary:    fmt.Sprintf("Normalized %s to %s; ready for canonical lookup", raw, clean),
		RawPayload: fmt.Sprintf("original=%s cleaned=%s date=%s", raw, clean, call.EffectiveDate),
		Meta:       map[string]string{"clean_id": clean},
	}, nil
}
