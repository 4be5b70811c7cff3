package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/engine"
)

// CSVAdapter normalizes a Trading212/IBKR-style broker export: one header
// row naming "Action, Time, ISIN, Ticker, Name, No. of shares, Price /
// share, Currency (Price / share), Total, Currency (Total), Withholding
// tax, Currency (Withholding tax), Notes", in any column order, followed
// by one data row per transaction. It borrows the teacher's tolerant CSV
// reading idiom (FieldsPerRecord=-1, LazyQuotes, quote-trimming) from its
// own trade-upload handler.
type CSVAdapter struct {
	r      io.Reader
	Broker string
}

// NewCSVAdapter wraps r, a CSV file already positioned at its first byte.
func NewCSVAdapter(r io.Reader, broker string) *CSVAdapter {
	return &CSVAdapter{r: r, Broker: broker}
}

var csvActionAliases = map[string]engine.Action{
	"market buy":                engine.ActionBuy,
	"limit buy":                 engine.ActionBuy,
	"buy":                       engine.ActionBuy,
	"market sell":               engine.ActionSell,
	"limit sell":                engine.ActionSell,
	"sell":                      engine.ActionSell,
	"stock split":               engine.ActionStockSplit,
	"stock activity":            engine.ActionStockActivity,
	"dividend":                  engine.ActionDividend,
	"dividend (dividend)":       engine.ActionDividend,
	"dividend (tax)":            engine.ActionDividendTax,
	"interest":                  engine.ActionInterest,
	"interest on cash":          engine.ActionInterest,
	"fee":                       engine.ActionFee,
	"transfer":                  engine.ActionTransfer,
	"spin off":                  engine.ActionSpinOff,
	"spinoff":                   engine.ActionSpinOff,
	"excess reported income":    engine.ActionExcessReportedIncome,
	"cash merger":               engine.ActionCashMerger,
	"full redemption":           engine.ActionFullRedemption,
	"adjustment":                engine.ActionAdjustment,
	"capital gain distribution": engine.ActionCapitalGain,
	"reinvest shares":           engine.ActionReinvestShares,
	"reinvest dividends":        engine.ActionReinvestDividends,
	"wire funds received":       engine.ActionWireFundsReceived,
}

// expected header names, matched case-insensitively after trimming quotes
// and spaces; otherwise a header must match exactly, so a suffixed name
// such as "Total (GBP)" is not recognized as "total".
var csvColumnNames = struct {
	action, time, isin, ticker, name, qty, price, priceCcy, total, totalCcy, wht, whtCcy, notes string
}{
	action: "action", time: "time", isin: "isin", ticker: "ticker", name: "name",
	qty: "no. of shares", price: "price / share", priceCcy: "currency (price / share)",
	total: "total", totalCcy: "currency (total)",
	wht: "withholding tax", whtCcy: "currency (withholding tax)", notes: "notes",
}

// Transactions implements Adapter.
func (a *CSVAdapter) Transactions(ctx context.Context) (<-chan Row, <-chan error) {
	rows := make(chan Row)
	errs := make(chan error, 1)

	go func() {
		defer close(rows)
		defer close(errs)

		reader := csv.NewReader(a.r)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		header, err := reader.Read()
		if err != nil {
			if err != io.EOF {
				errs <- &RowError{Err: err}
			}
			return
		}
		columns := indexHeader(header)

		line := 1
		for {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			default:
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			line++
			if err != nil {
				errs <- &RowError{Line: line, Err: err}
				continue
			}
			if isBlankRecord(record) {
				continue
			}

			row, err := a.normalizeRecord(record, columns, line)
			if err != nil {
				errs <- &RowError{Line: line, Err: err}
				continue
			}
			select {
			case rows <- row:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return rows, errs
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(trimQuotes(h)))] = i
	}
	return idx
}

func trimQuotes(s string) string { return strings.Trim(s, "\"") }

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(trimQuotes(record[i]))
}

func (a *CSVAdapter) normalizeRecord(record []string, columns map[string]int, line int) (Row, error) {
	rawAction := strings.ToLower(field(record, columns, csvColumnNames.action))
	action, ok := csvActionAliases[rawAction]
	if !ok {
		return Row{}, &engine.InvalidTransactionError{Message: "unrecognized action " + rawAction}
	}

	timeStr := field(record, columns, csvColumnNames.time)
	date, err := parseBrokerTime(timeStr)
	if err != nil {
		return Row{}, err
	}

	symbol := field(record, columns, csvColumnNames.ticker)
	currency := field(record, columns, csvColumnNames.priceCcy)
	if currency == "" {
		currency = field(record, columns, csvColumnNames.totalCcy)
	}

	// Description carries the Notes column, not the security Name column:
	// it is the field a spin-off row's "<dest symbol>:<cost proportion>"
	// annotation lives in (feed.go's parseSpinoffNotes), matching the
	// Postgres adapter's "description" column semantics.
	row := Row{
		Date: date, Action: action, Symbol: symbol, Currency: currency,
		Broker: a.Broker, ISIN: field(record, columns, csvColumnNames.isin),
		Description: field(record, columns, csvColumnNames.notes), SourceLine: line,
	}

	if qtyStr := field(record, columns, csvColumnNames.qty); qtyStr != "" {
		qty, err := dec.New(qtyStr)
		if err != nil {
			return Row{}, &engine.MissingFieldError{Action: action, Field: "quantity"}
		}
		row.Quantity = &qty
	}
	if priceStr := field(record, columns, csvColumnNames.price); priceStr != "" {
		price, err := dec.New(priceStr)
		if err != nil {
			return Row{}, &engine.MissingFieldError{Action: action, Field: "price"}
		}
		row.Price = &price
	}
	if totalStr := field(record, columns, csvColumnNames.total); totalStr != "" {
		total, err := dec.New(totalStr)
		if err != nil {
			return Row{}, &engine.MissingFieldError{Action: action, Field: "amount"}
		}
		row.Amount = &total
	}
	if whtStr := field(record, columns, csvColumnNames.wht); whtStr != "" {
		wht, err := dec.New(whtStr)
		if err == nil {
			row.Fees = wht
		}
	}

	switch action {
	case engine.ActionBuy, engine.ActionStockActivity, engine.ActionStockSplit:
		if row.Quantity == nil {
			return Row{}, &engine.MissingFieldError{Action: action, Field: "quantity"}
		}
	case engine.ActionSell:
		if row.Quantity == nil {
			return Row{}, &engine.MissingFieldError{Action: action, Field: "quantity"}
		}
		if row.Amount == nil {
			return Row{}, &engine.MissingFieldError{Action: action, Field: "amount"}
		}
	}

	return row, nil
}

// parseBrokerTime parses the Trading212-style "2023-05-01 14:32:05" export
// timestamp down to its calendar day.
func parseBrokerTime(s string) (calendar.DayKey, error) {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return calendar.DayKey{}, &engine.MissingFieldError{Field: "date"}
	}
	return calendar.ParseDayKey(s[:10])
}
