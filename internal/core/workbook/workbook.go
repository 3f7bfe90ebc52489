// Package workbook reads the first worksheet of an uploaded spreadsheet
// (.xlsx, .xls or .csv) into raw cells.
package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"reconciliation-service/internal/domain"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ErrUnreadable is returned when the bytes cannot be parsed as a spreadsheet.
var ErrUnreadable = errors.New("planilha ilegível")

// Load parses data according to the file extension and returns the first
// worksheet. Unknown extensions are tried as xlsx and then as xls.
func Load(data []byte, filename string) (*domain.Sheet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: arquivo vazio", ErrUnreadable)
	}

	var (
		sheet *domain.Sheet
		err   error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		sheet, err = loadCSV(data)
	case ".xls":
		sheet, err = loadXLS(data)
		if err != nil {
			// talvez seja xlsx salvo com extensão .xls
			if s, errX := loadXLSX(data); errX == nil {
				sheet, err = s, nil
			}
		}
	default:
		sheet, err = loadXLSX(data)
		if err != nil {
			if s, errX := loadXLS(data); errX == nil {
				sheet, err = s, nil
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, filename, err)
	}
	return sheet, nil
}

func loadXLSX(data []byte) (*domain.Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("o arquivo não contém planilhas")
	}
	name := sheets[0]

	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	formatted, err := f.GetRows(name)
	if err != nil {
		return nil, err
	}

	styles := &dateStyles{f: f, cache: make(map[int]bool)}
	sheet := &domain.Sheet{Name: name, Rows: make([]domain.Row, 0, len(raw))}
	for r, cols := range raw {
		row := domain.Row{Index: r + 1, Cells: make([]domain.Cell, len(cols))}
		for c, value := range cols {
			display := value
			if r < len(formatted) && c < len(formatted[r]) {
				display = formatted[r][c]
			}
			row.Cells[c] = xlsxCell(f, name, r+1, c+1, value, display, styles)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func xlsxCell(f *excelize.File, sheet string, row, col int, value, display string, styles *dateStyles) domain.Cell {
	if strings.TrimSpace(value) == "" {
		return domain.Cell{}
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return domain.TextCell(display)
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return domain.TextCell(display)
	}

	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return domain.TextCell(display)
		}
		if styles.isDate(sheet, axis) {
			if t, err := excelize.ExcelDateToTime(n, false); err == nil {
				return domain.DateCell(t, display)
			}
		}
		return domain.NumberCell(n, display)
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, value); err == nil {
				return domain.DateCell(t, display)
			}
		}
	}
	return domain.TextCell(display)
}

// dateStyles caches whether a style index carries a date number format.
type dateStyles struct {
	f     *excelize.File
	cache map[int]bool
}

func (d *dateStyles) isDate(sheet, axis string) bool {
	idx, err := d.f.GetCellStyle(sheet, axis)
	if err != nil || idx == 0 {
		return false
	}
	if v, ok := d.cache[idx]; ok {
		return v
	}
	style, err := d.f.GetStyle(idx)
	v := err == nil && isDateFormat(style)
	d.cache[idx] = v
	return v
}

func isDateFormat(style *excelize.Style) bool {
	if style.CustomNumFmt != nil {
		format := strings.ToLower(stripQuoted(*style.CustomNumFmt))
		return strings.Contains(format, "yy") || (strings.Contains(format, "d") && strings.Contains(format, "m"))
	}
	switch n := style.NumFmt; {
	case n >= 14 && n <= 17, n == 22, n >= 27 && n <= 36, n >= 50 && n <= 58:
		return true
	}
	return false
}

// stripQuoted drops literal text and bracketed sections ("[Red]", "\"dia\"").
func stripQuoted(format string) string {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range format {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '[' && !inQuote:
			inBracket = true
		case r == ']' && !inQuote:
			inBracket = false
		case !inQuote && !inBracket:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func loadXLS(data []byte) (out *domain.Sheet, err error) {
	// o leitor de .xls entra em pânico com arquivos corrompidos
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("arquivo .xls corrompido: %v", r)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(workbook.GetSheets()) == 0 {
		return nil, errors.New("o arquivo .xls não contém planilhas")
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("erro ao obter planilha do arquivo .xls: %w", err)
	}

	out = &domain.Sheet{Name: sheet.GetName()}
	for i, row := range sheet.GetRows() {
		cols := row.GetCols()
		r := domain.Row{Index: i + 1, Cells: make([]domain.Cell, len(cols))}
		for j, cell := range cols {
			r.Cells[j] = domain.TextCell(cell.GetString())
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

func loadCSV(data []byte) (*domain.Sheet, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		src = transform.NewReader(src, charmap.ISO8859_1.NewDecoder())
	}

	reader := csv.NewReader(src)
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	sheet := &domain.Sheet{Name: "csv", Rows: make([]domain.Row, 0, len(records))}
	for i, record := range records {
		row := domain.Row{Index: i + 1, Cells: make([]domain.Cell, len(record))}
		for j, value := range record {
			row.Cells[j] = domain.TextCell(value)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

// detectDelimiter picks the most frequent separator on the first line.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ';', 0
	for _, sep := range []rune{';', ',', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(sep))); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}
