package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cgtengine/internal/calendar"
	dec "cgtengine/internal/decimal"
	"cgtengine/internal/engine"
)

// RawTransactionRow is the shape some out-of-scope ingestion pipeline has
// already persisted (SPEC_FULL.md §3): the same fields a Transaction
// carries, plus a source_row reference used only for error attribution.
type RawTransactionRow struct {
	SourceRow int64
	Date      calendar.DayKey
	Action    engine.Action
	Symbol    string
	Quantity  *dec.Decimal
	Price     *dec.Decimal
	Amount    *dec.Decimal
	Fees      dec.Decimal
	Currency  string
	Broker    string
	ISIN      string
	Description string
}

// PostgresAdapter streams previously-normalized rows out of a Postgres
// table, using the teacher's exact pgxpool driver (utils/conn.go). It never
// parses a broker-specific format itself; it only reads what some other
// ingestion pipeline already wrote.
type PostgresAdapter struct {
	Pool  *pgxpool.Pool
	Table string // defaults to "raw_transactions" when empty
}

// NewPostgresAdapter wraps an existing pool.
func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{Pool: pool, Table: "raw_transactions"}
}

// Transactions implements Adapter, querying the table ordered by date and
// streaming rows through the same Row normalization the CSV adapter uses.
func (a *PostgresAdapter) Transactions(ctx context.Context) (<-chan Row, <-chan error) {
	rows := make(chan Row)
	errs := make(chan error, 1)

	table := a.Table
	if table == "" {
		table = "raw_transactions"
	}

	go func() {
		defer close(rows)
		defer close(errs)

		query := fmt.Sprintf(
			`SELECT source_row, txn_date, action, symbol, quantity, price, amount, fees, currency, broker, isin, description
			 FROM %s ORDER BY txn_date ASC`, pgx.Identifier{table}.Sanitize())

		pgRows, err := a.Pool.Query(ctx, query)
		if err != nil {
			errs <- fmt.Errorf("ingest: postgres query: %w", err)
			return
		}
		defer pgRows.Close()

		for pgRows.Next() {
			var (
				sourceRow             int64
				date                  calendar.DayKey
				actionStr, symbol     string
				quantity, price, amt  *string
				fees                  string
				currency, broker, isin, description string
			)
			var dateStr string
			if err := pgRows.Scan(&sourceRow, &dateStr, &actionStr, &symbol, &quantity, &price, &amt, &fees, &currency, &broker, &isin, &description); err != nil {
				errs <- &RowError{Line: int(sourceRow), Err: err}
				continue
			}

			row, err := a.normalizeScanned(sourceRow, dateStr, actionStr, symbol, quantity, price, amt, fees, currency, broker, isin, description)
			if err != nil {
				errs <- &RowError{Line: int(sourceRow), Err: err}
				continue
			}

			select {
			case rows <- row:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := pgRows.Err(); err != nil {
			errs <- fmt.Errorf("ingest: postgres row iteration: %w", err)
		}
	}()

	return rows, errs
}

func (a *PostgresAdapter) normalizeScanned(sourceRow int64, dateStr, actionStr, symbol string, quantity, price, amt *string, fees, currency, broker, isin, description string) (Row, error) {
	date, err := calendar.ParseDayKey(dateStr)
	if err != nil {
		return Row{}, fmt.Errorf("ingest: row %d: bad date %q: %w", sourceRow, dateStr, err)
	}

	row := Row{
		Date: date, Action: engine.Action(actionStr), Symbol: symbol,
		Currency: currency, Broker: broker, ISIN: isin, Description: description,
		SourceLine: int(sourceRow),
	}

	if quantity != nil {
		v, err := dec.New(*quantity)
		if err != nil {
			return Row{}, &engine.MissingFieldError{Action: row.Action, Field: "quantity"}
		}
		row.Quantity = &v
	}
	if price != nil {
		v, err := dec.New(*price)
		if err != nil {
			return Row{}, &engine.MissingFieldError{Action: row.Action, Field: "price"}
		}
		row.Price = &v
	}
	if amt != nil {
		v, err := dec.New(*amt)
		if err != nil {
			return Row{}, &engine.MissingFieldError{Action: row.Action, Field: "amount"}
		}
		row.Amount = &v
	}
	if feesVal, err := dec.New(fees); err == nil {
		row.Fees = feesVal
	}

	return row, nil
}
