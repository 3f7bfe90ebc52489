// package domain/models.go
package domain

import (
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Origin identifies which uploaded sheet produced a record.
type Origin string

// Constants for record origins.
const (
	OriginStatement Origin = "statement"
	OriginReport    Origin = "report"
)

// --- Planilhas ---

// CellKind defines how a raw cell value was stored in the source sheet.
type CellKind int

// Constants for cell kinds.
const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

// Cell is a raw cell value as read from a worksheet.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

// TextCell builds a text cell; blank strings become empty cells.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Kind: CellEmpty, Text: s}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell builds a numeric cell keeping the text the sheet displayed.
func NumberCell(f float64, raw string) Cell {
	if raw == "" {
		raw = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return Cell{Kind: CellNumber, Number: f, Text: raw}
}

// DateCell builds a native date cell.
func DateCell(t time.Time, raw string) Cell {
	if raw == "" {
		raw = t.Format("02/01/2006")
	}
	return Cell{Kind: CellDate, Time: t, Text: raw}
}

// IsEmpty reports whether the cell carries no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String returns the cell as displayed in the sheet.
func (c Cell) String() string {
	return strings.TrimSpace(c.Text)
}

// Row is one worksheet line. Index is the 1-based sheet row number.
type Row struct {
	Index int
	Cells []Cell
}

// Cell returns the cell at the zero-based column index, or an empty cell.
func (r Row) Cell(col int) Cell {
	if col < 0 || col >= len(r.Cells) {
		return Cell{}
	}
	return r.Cells[col]
}

// IsEmpty reports whether every cell of the row is blank.
func (r Row) IsEmpty() bool {
	for _, c := range r.Cells {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Sheet holds the first worksheet of an uploaded workbook, every line in
// sheet order. Header detection happens later, in the column resolver.
type Sheet struct {
	Name string
	Rows []Row
}

// --- Registros ---

// PaymentRecord is one normalized payment observation. It is created once per
// accepted row and never mutated afterwards.
type PaymentRecord struct {
	ID             string          `json:"id"`
	Origin         Origin          `json:"origin"`
	SourceRowIndex int             `json:"source_row_index"`
	Amount         decimal.Decimal `json:"amount"`
	RawAmount      string          `json:"raw_amount"`
	Date           *civil.Date     `json:"date,omitempty"`
	RawDate        string          `json:"raw_date,omitempty"`
	Description    string          `json:"description"`
	DocumentID     string          `json:"document_id,omitempty"`
	TaxID          string          `json:"tax_id,omitempty"`
}

// HasDate reports whether the record carries a parsed calendar date.
func (p PaymentRecord) HasDate() bool {
	return p.Date != nil
}

// SameDate reports whether both records carry the same calendar date.
func (p PaymentRecord) SameDate(o PaymentRecord) bool {
	return p.Date != nil && o.Date != nil && *p.Date == *o.Date
}

// --- Conciliação ---

// MatchMethod identifies the strategy that produced an accepted match.
type MatchMethod string

// Constants for match methods, in decreasing trust order.
const (
	MethodExactID            MatchMethod = "exact_id"
	MethodPartialID          MatchMethod = "partial_id"
	MethodValueDate          MatchMethod = "value_date"
	MethodValueDateTolerance MatchMethod = "value_date_tolerance"
	MethodTaxIDName          MatchMethod = "tax_id_name"
	MethodValueWords         MatchMethod = "value_words"
)

// Confidence is the trust tier attached to a match method.
type Confidence string

// Constants for confidence tiers.
const (
	ConfidenceHigh      Confidence = "high"
	ConfidenceMedium    Confidence = "medium"
	ConfidenceLowMedium Confidence = "low-medium"
	ConfidenceLow       Confidence = "low"
)

// Match is an accepted pairing of one statement record with one report record.
type Match struct {
	Statement  PaymentRecord `json:"statement"`
	Report     PaymentRecord `json:"report"`
	Method     MatchMethod   `json:"method"`
	Confidence Confidence    `json:"confidence"`
	Score      float64       `json:"score"`
}

// NearMiss is an other-side record whose amount is close to an unmatched one.
type NearMiss struct {
	Record     PaymentRecord   `json:"record"`
	Difference decimal.Decimal `json:"difference"`
}

// Unmatched is a record with no accepted match, plus diagnostic near misses.
type Unmatched struct {
	Record     PaymentRecord `json:"record"`
	NearMisses []NearMiss    `json:"near_misses,omitempty"`
}

// ReconciliationResult is the matcher output. MissingFromStatement holds report
// records absent from the statement; MissingFromReport holds statement records
// absent from the report.
type ReconciliationResult struct {
	Matches              []Match     `json:"matches"`
	MissingFromStatement []Unmatched `json:"missing_from_statement"`
	MissingFromReport    []Unmatched `json:"missing_from_report"`
}

// Summary aggregates a reconciliation result.
type Summary struct {
	StatementRecords           int             `json:"statement_records"`
	ReportRecords              int             `json:"report_records"`
	MatchedCount               int             `json:"matched_count"`
	MatchedAmount              decimal.Decimal `json:"matched_amount"`
	MissingFromStatementCount  int             `json:"missing_from_statement_count"`
	MissingFromStatementAmount decimal.Decimal `json:"missing_from_statement_amount"`
	MissingFromReportCount     int             `json:"missing_from_report_count"`
	MissingFromReportAmount    decimal.Decimal `json:"missing_from_report_amount"`
	ReconciliationRate         float64         `json:"reconciliation_rate"`
	FullyReconciled            bool            `json:"fully_reconciled"`
	MethodCounts               map[string]int  `json:"method_counts"`
}

// ReconciliationReport is the payload returned to the client.
type ReconciliationReport struct {
	RunID         string               `json:"run_id"`
	StatementFile string               `json:"statement_file"`
	ReportFile    string               `json:"report_file"`
	Summary       Summary              `json:"summary"`
	Result        ReconciliationResult `json:"result"`
	Workbook      string               `json:"workbook,omitempty"`
}

// --- Mapeamento de colunas ---

// ColumnHint is an optional, externally detected description of a workbook.
type ColumnHint struct {
	Sheets []SheetHint `json:"sheets"`
}

// SheetHint describes the columns of one sheet.
type SheetHint struct {
	Columns []ColumnHintEntry `json:"columns"`
}

// ColumnHintEntry describes one detected column.
type ColumnHintEntry struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Format   string   `json:"format"`
	Examples []string `json:"examples"`
}

// Field is a semantic column a record can be built from.
type Field string

// Constants for semantic fields.
const (
	FieldAmount      Field = "amount"
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldDocument    Field = "document"
	FieldTaxID       Field = "tax_id"
	FieldDebit       Field = "debit"
	FieldCredit      Field = "credit"
	FieldDirection   Field = "direction"
)

// FixedLayout addresses columns of a rigid template by spreadsheet letter.
type FixedLayout struct {
	Columns      map[Field]string `yaml:"columns" json:"columns"`
	FirstDataRow int              `yaml:"first_data_row" json:"first_data_row"`
}
