// Package warn defines the non-fatal warning taxonomy accumulated during a
// calculation (spec.md §4.13): severities, categories, and the warning
// value itself. Warnings never abort a computation; fatal conditions are
// modeled as errors in internal/engine instead.
package warn

import (
	"fmt"

	"cgtengine/internal/calendar"
)

// Severity classifies how serious a warning is.
type Severity string

const (
	Info    Severity = "Info"
	Warning Severity = "Warning"
	Error   Severity = "Error"
)

// Category classifies what kind of condition produced a warning.
type Category string

const (
	MissingData  Category = "MissingData"
	DataQuality  Category = "DataQuality"
	Matching     Category = "Matching"
	Position     Category = "Position"
	OpenPosition Category = "OpenPosition"
)

// W is one accumulated warning (spec.md §4.13).
type W struct {
	Severity Severity
	Category Category
	Symbol   string
	Date     *calendar.DayKey
	Details  string
}

// String renders a human-readable summary, used by the report assembler
// and CLI for plain-text display.
func (w W) String() string {
	loc := w.Symbol
	if w.Date != nil {
		if loc != "" {
			loc = fmt.Sprintf("%s@%s", loc, w.Date)
		} else {
			loc = w.Date.String()
		}
	}
	if loc == "" {
		return fmt.Sprintf("[%s/%s] %s", w.Severity, w.Category, w.Details)
	}
	return fmt.Sprintf("[%s/%s] %s: %s", w.Severity, w.Category, loc, w.Details)
}

// New builds a symbol/date-less warning.
func New(sev Severity, cat Category, details string) W {
	return W{Severity: sev, Category: cat, Details: details}
}

// NewAt builds a warning located at a specific symbol and date.
func NewAt(sev Severity, cat Category, symbol string, date calendar.DayKey, details string) W {
	d := date
	return W{Severity: sev, Category: cat, Symbol: symbol, Date: &d, Details: details}
}
