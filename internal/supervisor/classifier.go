package supervisor

import (
	"context"
	"regexp"
	"strings"

	"github.com/tradeops-labs/orderscope/internal/investigation"
)

// KeywordClassifier is a heuristic classifier for environments without an
// LLM-backed collaborator (the demo binary, tests). It recognizes the
// intent keywords and order-id/date shapes the production classifier is
// prompted with.
type KeywordClassifier struct{}

var (
	orderIDRe = regexp.MustCompile(`\b(?:[A-Z]{1,4}\d[\d.\-]*\d|D[\d.]{8,})\b`)
	dateRe    = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{2}[-/.]\d{2}[-/.]\d{4}|today|yesterday)\b`)
)

func (KeywordClassifier) Classify(_ context.Context, query string) (*investigation.Params, error) {
	q := strings.ToLower(query)
	ids := orderIDRe.FindAllString(query, 2)
	dates := dateRe.FindAllString(q, 2)

	p := &investigation.Params{Rationale: "keyword classification"}
	switch {
	case strings.Contains(q, "compare") || strings.Contains(q, " vs "):
		p.Intent = investigation.IntentComparison
	case strings.Contains(q, "health") || strings.Contains(q, "monitor"):
		p.Intent = investigation.IntentMonitoring
	case strings.Contains(q, "code") || strings.Contains(q, "implement"):
		p.Intent = investigation.IntentCodeAnalysis
	case strings.Contains(q, "investigate") || strings.Contains(q, "why"):
		p.Intent = investigation.IntentInvestigation
	case strings.Contains(q, "log") || strings.Contains(q, "show"):
		p.Intent = investigation.IntentData
	default:
		p.Intent = investigation.IntentKnowledge
	}

	if len(ids) > 0 && p.Intent != investigation.IntentKnowledge {
		p.OrderID = ids[0]
	}
	if len(ids) > 1 && p.Intent == investigation.IntentComparison {
		p.ComparisonOrderID = ids[1]
	}
	if len(dates) > 0 {
		p.OrderDate = dates[0]
	}
	if len(dates) > 1 {
		p.ComparisonDate = dates[1]
	}
	return p, nil
}
