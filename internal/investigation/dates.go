package investigation

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical order-date format used across the engine.
const DateLayout = "2006-01-02"

// now is swappable in tests.
var now = time.Now

var dateLayouts = []string{
	DateLayout,
	"02-01-2006",
	"01/02/2006",
	"2006/01/02",
	"02.01.2006",
}

// CurrentDate returns today in canonical form.
func CurrentDate() string {
	return now().Format(DateLayout)
}

// NormalizeDate converts a date in any accepted format (including "today"
// and "yesterday") to canonical yyyy-mm-dd.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return "", fmt.Errorf("empty date")
	case "today":
		return now().Format(DateLayout), nil
	case "yesterday":
		return now().AddDate(0, 0, -1).Format(DateLayout), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format: %q", s)
}
