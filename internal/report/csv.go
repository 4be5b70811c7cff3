package report

import (
	"bytes"
	"encoding/csv"

	"cgtengine/internal/engine"
)

// RenderCSV writes a minimal CSV rendering of FlattenDisposals(r.CalculationLog),
// one row per matched disposal, using the standard encoding/csv writer the
// way the teacher's own trade-upload handler uses encoding/csv for the
// opposite direction (SPEC_FULL.md §4.16).
func RenderCSV(r *engine.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"date", "symbol", "rule", "quantity", "proceeds_gbp", "allowable_cost_gbp", "gain_gbp"}); err != nil {
		return nil, err
	}

	for _, line := range FlattenDisposals(r.CalculationLog) {
		record := []string{
			line.Date,
			line.Symbol,
			string(line.Rule),
			line.Quantity.String(),
			line.Proceeds.String(),
			line.AllowableCost.String(),
			line.Gain.String(),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
