// Package columns maps the arbitrary columns of an uploaded sheet onto the
// semantic fields a payment record is built from.
package columns

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"reconciliation-service/internal/core/normalize"
	"reconciliation-service/internal/domain"

	"github.com/schollz/closestmatch"
	"github.com/xuri/excelize/v2"
)

const (
	maxHeaderSearchRows = 40
	defaultSampleRows   = 5
)

var allFields = []domain.Field{
	domain.FieldTaxID,
	domain.FieldDate,
	domain.FieldDebit,
	domain.FieldCredit,
	domain.FieldDirection,
	domain.FieldAmount,
	domain.FieldDocument,
	domain.FieldDescription,
}

var reportFields = []domain.Field{
	domain.FieldTaxID,
	domain.FieldDate,
	domain.FieldAmount,
	domain.FieldDocument,
	domain.FieldDescription,
}

var (
	dateShapeRegex  = regexp.MustCompile(`^(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2})(\s|T|$)`)
	cpfRegex        = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	cnpjRegex       = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
	moneyShapeRegex = regexp.MustCompile(`^[-(+]?\s*(R\$)?\s*[-(]?\d[\d.]*,\d{1,2}\)?-?(\s?[DC])?$|^[-(+]?\s*(R\$|\$)?\s*[-(]?\d[\d,]*\.\d{2}\)?-?$`)
)

// Table is a sheet split into its header labels and the data rows below them.
type Table struct {
	HeaderRow int
	Headers   []string
	Rows      []domain.Row
	// Headerless is set when the sheet starts with data; Headers are then
	// column letters.
	Headerless bool
}

// Mapping binds semantic fields to zero-based column indexes.
type Mapping map[domain.Field]int

// Index returns the column bound to f.
func (m Mapping) Index(f domain.Field) (int, bool) {
	idx, ok := m[f]
	return idx, ok
}

// Value returns the cell of row bound to f, or an empty cell.
func (m Mapping) Value(row domain.Row, f domain.Field) domain.Cell {
	idx, ok := m[f]
	if !ok {
		return domain.Cell{}
	}
	return row.Cell(idx)
}

// Describe renders the mapping with header labels, for logging.
func (m Mapping) Describe(headers []string) map[string]string {
	out := make(map[string]string, len(m))
	for f, idx := range m {
		label := columnLetter(idx)
		if idx < len(headers) && headers[idx] != "" {
			label = fmt.Sprintf("%s (%s)", headers[idx], label)
		}
		out[string(f)] = label
	}
	return out
}

// Options controls column resolution for one source.
type Options struct {
	Origin     domain.Origin
	Hint       *domain.ColumnHint
	SampleRows int
}

// Frame locates the header row and splits the sheet into labels and data.
func Frame(sheet *domain.Sheet) Table {
	if sheet == nil || len(sheet.Rows) == 0 {
		return Table{}
	}
	width := 0
	for _, r := range sheet.Rows {
		if len(r.Cells) > width {
			width = len(r.Cells)
		}
	}
	headers := make([]string, width)

	idx := FindHeaderRow(sheet.Rows)
	if idx < 0 {
		// sem cabeçalho: todas as linhas são dados
		for i := range headers {
			headers[i] = columnLetter(i)
		}
		return Table{Headers: headers, Rows: sheet.Rows, Headerless: true}
	}

	header := sheet.Rows[idx]
	for i := range headers {
		label := header.Cell(i).String()
		if label == "" {
			label = columnLetter(i)
		}
		headers[i] = label
	}
	return Table{HeaderRow: header.Index, Headers: headers, Rows: sheet.Rows[idx+1:]}
}

// FindHeaderRow returns the position of the first row, among the first 40,
// with at least two recognizable header labels. Without one, the first
// non-empty row is taken as the header when its cells read as labels. It
// returns -1 when the sheet has no header row.
func FindHeaderRow(rows []domain.Row) int {
	limit := maxHeaderSearchRows
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		hits := 0
		for _, c := range rows[i].Cells {
			if c.Kind == domain.CellText && isHeaderLabel(c.Text) {
				hits++
			}
		}
		if hits >= 2 {
			return i
		}
	}
	for i, r := range rows {
		if r.IsEmpty() {
			continue
		}
		if looksLikeLabels(r) {
			return i
		}
		return -1
	}
	return -1
}

// looksLikeLabels reports whether every filled cell of the row is text that
// is neither a date, an amount nor a tax id.
func looksLikeLabels(r domain.Row) bool {
	labels := 0
	for _, c := range r.Cells {
		if c.IsEmpty() {
			continue
		}
		if c.Kind != domain.CellText || isMoney(c) {
			return false
		}
		s := c.String()
		if dateShapeRegex.MatchString(s) || cpfRegex.MatchString(s) || cnpjRegex.MatchString(s) {
			return false
		}
		if strings.IndexFunc(s, unicode.IsLetter) < 0 {
			return false
		}
		labels++
	}
	return labels > 0
}

// Resolve binds every field it can find to a column: first from the hint,
// then from header keywords, then from the shape of the first data rows.
// Each column is bound to at most one field.
func Resolve(t Table, opts Options) Mapping {
	fields := allFields
	if opts.Origin == domain.OriginReport {
		fields = reportFields
	}
	sampleSize := opts.SampleRows
	if sampleSize <= 0 {
		sampleSize = defaultSampleRows
	}

	r := &resolver{
		table:   t,
		fields:  fields,
		mapping: Mapping{},
		bound:   make(map[int]bool),
		sample:  sampleRows(t.Rows, sampleSize),
	}
	r.fromHint(opts.Hint)
	if !t.Headerless {
		r.fromHeaders()
	}
	r.fromValues(opts.Origin)
	return r.mapping
}

type resolver struct {
	table   Table
	fields  []domain.Field
	mapping Mapping
	bound   map[int]bool
	sample  []domain.Row
}

func (r *resolver) bind(f domain.Field, idx int) bool {
	if _, done := r.mapping[f]; done || r.bound[idx] || idx < 0 {
		return false
	}
	r.mapping[f] = idx
	r.bound[idx] = true
	return true
}

func (r *resolver) wants(f domain.Field) bool {
	if _, done := r.mapping[f]; done {
		return false
	}
	for _, x := range r.fields {
		if x == f {
			return true
		}
	}
	return false
}

func (r *resolver) fromHint(hint *domain.ColumnHint) {
	if hint == nil || len(hint.Sheets) == 0 || len(r.table.Headers) == 0 {
		return
	}
	entries := hint.Sheets[0].Columns
	classified := make([]domain.Field, len(entries))
	for i, e := range entries {
		classified[i] = classifyHint(e, r.fields)
	}

	var cm *closestmatch.ClosestMatch
	keys := make([]string, len(r.table.Headers))
	for i, h := range r.table.Headers {
		keys[i] = normalize.Key(h)
	}

	for _, f := range r.fields {
		for i, e := range entries {
			if classified[i] != f {
				continue
			}
			idx := exactHeader(keys, e.Name)
			if idx < 0 {
				if cm == nil {
					cm = closestmatch.New(keys, []int{2, 3})
				}
				idx = indexOf(keys, cm.Closest(normalize.Key(e.Name)))
			}
			if r.bind(f, idx) {
				break
			}
		}
	}
}

func (r *resolver) fromHeaders() {
	for _, f := range r.fields {
		if !r.wants(f) {
			continue
		}
	keywords:
		for _, kw := range headerKeywords[f] {
			for idx, h := range r.table.Headers {
				if r.bound[idx] {
					continue
				}
				if matchesKeyword(normalize.Key(h), kw) && r.bind(f, idx) {
					break keywords
				}
			}
		}
	}
}

func (r *resolver) fromValues(origin domain.Origin) {
	width := len(r.table.Headers)

	if r.wants(domain.FieldTaxID) {
		r.scan(domain.FieldTaxID, width, func(c domain.Cell) bool {
			s := c.String()
			return cpfRegex.MatchString(s) || cnpjRegex.MatchString(s)
		})
	}
	if r.wants(domain.FieldDate) {
		r.scan(domain.FieldDate, width, func(c domain.Cell) bool {
			return c.Kind == domain.CellDate || (c.Kind == domain.CellText && dateShapeRegex.MatchString(c.String()))
		})
	}
	// um extrato lista os débitos como valores negativos
	if origin == domain.OriginStatement && r.wants(domain.FieldAmount) {
		r.scan(domain.FieldAmount, width, func(c domain.Cell) bool {
			return isMoney(c) && normalize.IsNegative(c)
		})
	}
	if r.wants(domain.FieldAmount) {
		r.scan(domain.FieldAmount, width, isMoney)
	}
	if r.wants(domain.FieldDescription) {
		r.scan(domain.FieldDescription, width, func(c domain.Cell) bool {
			if c.Kind != domain.CellText || isMoney(c) || dateShapeRegex.MatchString(c.String()) {
				return false
			}
			return strings.IndexFunc(c.Text, unicode.IsLetter) >= 0
		})
	}
}

// scan binds f to the first free column where any sample cell satisfies pred.
func (r *resolver) scan(f domain.Field, width int, pred func(domain.Cell) bool) {
	for idx := 0; idx < width; idx++ {
		if r.bound[idx] {
			continue
		}
		for _, row := range r.sample {
			if pred(row.Cell(idx)) {
				r.bind(f, idx)
				return
			}
		}
	}
}

func isMoney(c domain.Cell) bool {
	switch c.Kind {
	case domain.CellNumber:
		return true
	case domain.CellText:
		return moneyShapeRegex.MatchString(strings.ToUpper(c.String()))
	}
	return false
}

// classifyHint decides which field a hinted column describes: by its declared
// type, then by keywords in its name, then by the shape of its examples.
func classifyHint(e domain.ColumnHintEntry, fields []domain.Field) domain.Field {
	allowed := func(f domain.Field) bool {
		for _, x := range fields {
			if x == f {
				return true
			}
		}
		return false
	}

	if f, ok := hintTypes[normalize.Key(e.Type)]; ok && allowed(f) {
		return f
	}
	if f, ok := keywordField(e.Name, fields); ok {
		return f
	}
	for _, ex := range e.Examples {
		s := strings.TrimSpace(ex)
		switch {
		case cpfRegex.MatchString(s) || cnpjRegex.MatchString(s):
			if allowed(domain.FieldTaxID) {
				return domain.FieldTaxID
			}
		case dateShapeRegex.MatchString(s):
			if allowed(domain.FieldDate) {
				return domain.FieldDate
			}
		case moneyShapeRegex.MatchString(strings.ToUpper(s)):
			if allowed(domain.FieldAmount) {
				return domain.FieldAmount
			}
		}
	}
	return ""
}

func exactHeader(keys []string, name string) int {
	return indexOf(keys, normalize.Key(name))
}

func indexOf(keys []string, key string) int {
	if key == "" {
		return -1
	}
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

func sampleRows(rows []domain.Row, n int) []domain.Row {
	out := make([]domain.Row, 0, n)
	for _, r := range rows {
		if r.IsEmpty() {
			continue
		}
		out = append(out, r)
		if len(out) == n {
			break
		}
	}
	return out
}

// --- layout fixo ---

// FromLayout builds a mapping from spreadsheet column letters, bypassing
// detection entirely.
func FromLayout(layout domain.FixedLayout) (Mapping, error) {
	m := Mapping{}
	for f, letter := range layout.Columns {
		idx, err := LetterToIndex(letter)
		if err != nil {
			return nil, fmt.Errorf("coluna inválida para %s: %w", f, err)
		}
		m[f] = idx
	}
	if _, ok := m[domain.FieldAmount]; !ok {
		if _, ok := m[domain.FieldDebit]; !ok {
			return nil, fmt.Errorf("layout fixo sem coluna de valor")
		}
	}
	return m, nil
}

// LetterToIndex converts a column letter ("A", "E", "AA") into a zero-based index.
func LetterToIndex(letter string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(letter))
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

func columnLetter(idx int) string {
	name, err := excelize.ColumnNumberToName(idx + 1)
	if err != nil {
		return fmt.Sprintf("#%d", idx+1)
	}
	return name
}
