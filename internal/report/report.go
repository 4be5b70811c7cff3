// Package report assembles a human- or machine-readable form from an
// engine.Report: flattened disposal lines, the allowance-adjusted taxable
// gain, and a minimal CSV rendering (SPEC_FULL.md §4.16). It stands in for
// the out-of-scope PDF/CSV report renderer collaborator named in spec.md
// §1, kept deliberately small.
package report

import (
	"strings"

	"cgtengine/internal/audit"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/engine"
)

// DisposalLine is one row per disposal-matching audit entry (SAME_DAY,
// BED_AND_BREAKFAST, SECTION_104, SHORT_COVER), the shape a report
// consumer renders per spec.md §6's "traverses calculation_log".
type DisposalLine struct {
	Date          string
	Symbol        string
	Rule          audit.Tag
	Quantity      dec.Decimal
	Proceeds      dec.Decimal
	AllowableCost dec.Decimal
	Gain          dec.Decimal
}

// disposalTags is the set of audit tags FlattenDisposals includes; ERI,
// DIVIDEND and INTEREST entries are bookkeeping/income entries, not
// disposals, and are left for a separate consumer traversal.
var disposalTags = map[audit.Tag]bool{
	audit.SameDay:         true,
	audit.BedAndBreakfast: true,
	audit.Section104:      true,
	audit.ShortCover:      true,
}

// FlattenDisposals extracts one DisposalLine per disposal-matching entry in
// log, in the order the calculation driver produced them. SECTION_104
// entries recorded for acquisitions (buy$...) and spin-offs (spinoff$...)
// are not disposals and are skipped.
func FlattenDisposals(log []audit.Entry) []DisposalLine {
	lines := make([]DisposalLine, 0, len(log))
	for _, e := range log {
		if !disposalTags[e.Tag] {
			continue
		}
		if strings.HasPrefix(e.CategoryKey, "buy$") || strings.HasPrefix(e.CategoryKey, "spinoff$") {
			continue
		}
		lines = append(lines, DisposalLine{
			Date: e.Date.String(), Symbol: e.Symbol, Rule: e.Tag,
			Quantity: e.Quantity, Proceeds: e.GrossAmount,
			AllowableCost: e.AllowableCost, Gain: e.Gain,
		})
	}
	return lines
}

// AllowanceResult is the outcome of applying the annual exempt amount to a
// Report's net gain (SPEC_FULL.md §4.16).
type AllowanceResult struct {
	TaxYear     int
	NetGain     dec.Decimal // capital_gain + capital_loss (loss is already signed negative)
	Allowance   int64
	TaxableGain dec.Decimal // 2dp, floored at zero
}

// ApplyAllowance computes taxable_gain = max(0, capital_gain + capital_loss
// - allowance), where capital_loss is already signed negative, using the decimal kernel's round-half-up policy for the
// final figure (spec.md §4.1), looked up read-only against table.
func ApplyAllowance(r *engine.Report, table Table) AllowanceResult {
	allowance, _ := table.Lookup(r.TaxYear)
	netGain := r.CapitalGain.Add(r.CapitalLoss)
	taxable := netGain.Sub(dec.FromInt64(allowance))
	if taxable.IsNegative() {
		taxable = dec.Zero
	}
	return AllowanceResult{
		TaxYear:     r.TaxYear,
		NetGain:     dec.RoundHalfUp(netGain, 2),
		Allowance:   allowance,
		TaxableGain: dec.RoundHalfUp(taxable, 2),
	}
}
