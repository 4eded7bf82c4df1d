package investigation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Intent is the classified category of a query. Each intent owns a minimal
// routing subgraph.
type Intent string

const (
	IntentKnowledge     Intent = "knowledge"
	IntentData          Intent = "data"
	IntentInvestigation Intent = "investigation"
	IntentMonitoring    Intent = "monitoring"
	IntentCodeAnalysis  Intent = "code_analysis"
	IntentComparison    Intent = "comparison"
)

var validate = validator.New()

// Params holds the classified query parameters. Set once by the supervisor;
// replaced only by a low-confidence fallback on classification failure.
type Params struct {
	Intent            Intent `validate:"required,oneof=knowledge data investigation monitoring code_analysis comparison"`
	OrderID           string
	OrderDate         string `validate:"omitempty,datetime=2006-01-02"`
	ComparisonOrderID string
	ComparisonDate    string `validate:"omitempty,datetime=2006-01-02"`
	Rationale         string
	Fallback          bool // true when classification failed and defaults were substituted
}

// Normalize brings dates into canonical form and defaults missing dates to
// the current date for intents that carry an order id.
func (p *Params) Normalize() error {
	var err error
	if p.OrderDate != "" {
		if p.OrderDate, err = NormalizeDate(p.OrderDate); err != nil {
			return fmt.Errorf("order date: %w", err)
		}
	}
	if p.ComparisonDate != "" {
		if p.ComparisonDate, err = NormalizeDate(p.ComparisonDate); err != nil {
			return fmt.Errorf("comparison date: %w", err)
		}
	}
	switch p.Intent {
	case IntentInvestigation, IntentData:
		if p.OrderID != "" && p.OrderDate == "" {
			p.OrderDate = CurrentDate()
		}
	case IntentComparison:
		if p.OrderID != "" && p.OrderDate == "" {
			p.OrderDate = CurrentDate()
		}
		if p.ComparisonOrderID != "" && p.ComparisonDate == "" {
			p.ComparisonDate = CurrentDate()
		}
	}
	return nil
}

// Validate checks the structural constraints on the parameters.
func (p *Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	if p.Intent == IntentComparison && p.ComparisonOrderID == "" {
		return fmt.Errorf("comparison intent requires a comparison order id")
	}
	return nil
}

// IDForPhase returns the classified order id and date for a phase.
func (p *Params) IDForPhase(phase Phase) (id, date string) {
	if phase == PhaseComparison {
		return p.ComparisonOrderID, p.ComparisonDate
	}
	return p.OrderID, p.OrderDate
}
