// Package extract turns the first worksheet of an upload into normalized
// payment records, applying the filtering rules of each source.
package extract

import (
	"fmt"
	"strings"

	"reconciliation-service/internal/core/columns"
	"reconciliation-service/internal/core/normalize"
	"reconciliation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Options controls extraction for one source.
type Options struct {
	Hint           *domain.ColumnHint
	Layout         *domain.FixedLayout
	IncludeCredits bool
}

// Stats counts what happened to each data row. Malformed rows never fail the
// extraction; they only show up here.
type Stats struct {
	Rows      int `json:"rows"`
	Accepted  int `json:"accepted"`
	Empty     int `json:"empty"`
	NoAmount  int `json:"no_amount"`
	Credits   int `json:"credits"`
	Summaries int `json:"summaries"`
	NoDate    int `json:"no_date"`
}

// Result is the outcome of extracting one sheet.
type Result struct {
	Records []domain.PaymentRecord
	Headers []string
	Mapping columns.Mapping
	Stats   Stats
}

type direction int

const (
	directionUnknown direction = iota
	directionDebit
	directionCredit
)

// Extract reads sheet rows in order and emits one record per accepted row.
// Statement rows only count when they represent a debit, unless
// IncludeCredits is set. The only error is an invalid fixed layout.
func Extract(sheet *domain.Sheet, origin domain.Origin, opts Options) (*Result, error) {
	table, mapping, err := locate(sheet, origin, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{Headers: table.Headers, Mapping: mapping}
	for _, row := range table.Rows {
		res.Stats.Rows++
		if row.IsEmpty() {
			res.Stats.Empty++
			continue
		}

		description := strings.TrimSpace(mapping.Value(row, domain.FieldDescription).String())
		if isSummaryLine(row, description) {
			res.Stats.Summaries++
			continue
		}

		amount, raw, dir, ok := readAmount(row, mapping, origin)
		if !ok {
			res.Stats.NoAmount++
			continue
		}
		if origin == domain.OriginStatement && dir != directionDebit && !opts.IncludeCredits {
			res.Stats.Credits++
			continue
		}

		rec := domain.PaymentRecord{
			ID:             fmt.Sprintf("%s#%d", origin, row.Index),
			Origin:         origin,
			SourceRowIndex: row.Index,
			Amount:         amount,
			RawAmount:      raw,
			Description:    description,
			DocumentID:     normalize.DocumentID(mapping.Value(row, domain.FieldDocument).String()),
			TaxID:          normalize.TaxID(mapping.Value(row, domain.FieldTaxID).String()),
		}

		dateCell := mapping.Value(row, domain.FieldDate)
		rec.RawDate = dateCell.String()
		if d, ok := normalize.Date(dateCell); ok {
			rec.Date = &d
		} else {
			res.Stats.NoDate++
		}

		res.Records = append(res.Records, rec)
		res.Stats.Accepted++
	}
	return res, nil
}

func locate(sheet *domain.Sheet, origin domain.Origin, opts Options) (columns.Table, columns.Mapping, error) {
	if opts.Layout != nil {
		mapping, err := columns.FromLayout(*opts.Layout)
		if err != nil {
			return columns.Table{}, nil, err
		}
		return layoutTable(sheet, opts.Layout.FirstDataRow), mapping, nil
	}
	table := columns.Frame(sheet)
	mapping := columns.Resolve(table, columns.Options{Origin: origin, Hint: opts.Hint})
	return table, mapping, nil
}

// layoutTable keeps the rows from firstDataRow (1-based, default 2) on.
func layoutTable(sheet *domain.Sheet, firstDataRow int) columns.Table {
	if firstDataRow <= 0 {
		firstDataRow = 2
	}
	t := columns.Table{HeaderRow: firstDataRow - 1}
	if sheet == nil {
		return t
	}
	for _, row := range sheet.Rows {
		switch {
		case row.Index == firstDataRow-1:
			for _, c := range row.Cells {
				t.Headers = append(t.Headers, c.String())
			}
		case row.Index >= firstDataRow:
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// readAmount resolves the row amount and, for statements, its direction:
// a populated debit column wins, then a populated credit column, then the
// amount column with its sign or D/C marker.
func readAmount(row domain.Row, m columns.Mapping, origin domain.Origin) (decimal.Decimal, string, direction, bool) {
	if origin == domain.OriginStatement {
		if c := m.Value(row, domain.FieldDebit); !c.IsEmpty() {
			if amount, ok := positiveAmount(c); ok {
				return amount, c.String(), directionDebit, true
			}
		}
		if c := m.Value(row, domain.FieldCredit); !c.IsEmpty() {
			if amount, ok := positiveAmount(c); ok {
				return amount, c.String(), directionCredit, true
			}
		}
	}

	c := m.Value(row, domain.FieldAmount)
	amount, ok := positiveAmount(c)
	if !ok {
		return decimal.Zero, "", directionUnknown, false
	}

	dir := directionCredit
	if normalize.IsNegative(c) {
		dir = directionDebit
	}
	switch readDirection(m.Value(row, domain.FieldDirection)) {
	case directionDebit:
		dir = directionDebit
	case directionCredit:
		dir = directionCredit
	}
	return amount, c.String(), dir, true
}

func positiveAmount(c domain.Cell) (decimal.Decimal, bool) {
	if c.Kind == domain.CellText {
		c = domain.TextCell(normalize.StripDirection(c.Text))
	}
	amount, ok := normalize.Amount(c)
	if !ok || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

func readDirection(c domain.Cell) direction {
	key := normalize.Key(c.String())
	switch {
	case key == "":
		return directionUnknown
	case key == "D" || strings.HasPrefix(key, "DEB") || strings.HasPrefix(key, "SAIDA") || strings.HasPrefix(key, "PAGAMENTO"):
		return directionDebit
	case key == "C" || strings.HasPrefix(key, "CRED") || strings.HasPrefix(key, "ENTRADA") || strings.HasPrefix(key, "RECEB"):
		return directionCredit
	}
	return directionUnknown
}

// isSummaryLine skips balance and total lines ("SALDO ANTERIOR", "TOTAL").
func isSummaryLine(row domain.Row, description string) bool {
	if isSummaryLabel(description) {
		return true
	}
	for _, c := range row.Cells {
		if c.IsEmpty() {
			continue
		}
		return c.Kind == domain.CellText && isSummaryLabel(c.Text)
	}
	return false
}

func isSummaryLabel(s string) bool {
	key := normalize.Key(s)
	return strings.HasPrefix(key, "SALDO") || key == "TOTAL" || key == "TOTAIS" || strings.HasPrefix(key, "TOTAL ")
}
