package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"reconciliation-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Sheet names of the exported workbook.
const (
	SheetMissingFromStatement = "Ausentes no Extrato"
	SheetMissingFromReport    = "Ausentes no Relatorio"
	SheetSummary              = "Resumo"
)

var recordHeader = []string{"Linha", "Data", "Descrição", "Documento", "CPF/CNPJ", "Valor", "Possíveis correspondências"}

// ExportWorkbook renders both unmatched lists, each on its own sheet, plus a
// summary sheet.
func ExportWorkbook(result domain.ReconciliationResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetMissingFromStatement); err != nil {
		return nil, fmt.Errorf("erro ao nomear planilha: %w", err)
	}
	for _, name := range []string{SheetMissingFromReport, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("erro ao criar planilha %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}

	if err := writeRecordSheet(f, SheetMissingFromStatement, result.MissingFromStatement, bold, money); err != nil {
		return nil, err
	}
	if err := writeRecordSheet(f, SheetMissingFromReport, result.MissingFromReport, bold, money); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, Summarize(result), bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar planilha: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRecordSheet(f *excelize.File, sheet string, items []domain.Unmatched, bold, money int) error {
	header := make([]interface{}, len(recordHeader))
	for i, h := range recordHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	for i, u := range items {
		rec := u.Record
		row := []interface{}{
			rec.SourceRowIndex,
			formatDate(rec),
			rec.Description,
			rec.DocumentID,
			rec.TaxID,
			rec.Amount.InexactFloat64(),
			describeNearMisses(u.NearMisses),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if len(items) > 0 {
		if err := f.SetCellStyle(sheet, "F2", fmt.Sprintf("F%d", len(items)+1), money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "C", "C", 40); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "G", "G", 50)
}

func writeSummarySheet(f *excelize.File, s domain.Summary, bold int) error {
	rows := [][]interface{}{
		{"Indicador", "Valor"},
		{"Registros no extrato", s.StatementRecords},
		{"Registros no relatório", s.ReportRecords},
		{"Conciliados", s.MatchedCount},
		{"Valor conciliado", s.MatchedAmount.InexactFloat64()},
		{"Ausentes no extrato", s.MissingFromStatementCount},
		{"Valor ausente no extrato", s.MissingFromStatementAmount.InexactFloat64()},
		{"Ausentes no relatório", s.MissingFromReportCount},
		{"Valor ausente no relatório", s.MissingFromReportAmount.InexactFloat64()},
		{"Taxa de conciliação (%)", s.ReconciliationRate},
		{"Totalmente conciliado", yesNo(s.FullyReconciled)},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(SheetSummary, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(SheetSummary, 1, 1, bold); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "A", 30)
}

// ExportCSV renders both unmatched lists as a single semicolon separated
// file in Windows-1252, the encoding spreadsheet tools here expect.
func ExportCSV(result domain.ReconciliationResult) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	encoded := transform.NewWriter(&buffer, encoder)
	writer := csv.NewWriter(encoded)
	writer.Comma = ';'

	header := append([]string{"Situação"}, recordHeader[:len(recordHeader)-1]...)
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	write := func(status string, items []domain.Unmatched) error {
		for _, u := range items {
			rec := u.Record
			record := []string{
				status,
				fmt.Sprint(rec.SourceRowIndex),
				sanitizeForCSV(formatDate(rec)),
				sanitizeForCSV(rec.Description),
				sanitizeForCSV(rec.DocumentID),
				sanitizeForCSV(rec.TaxID),
				formatAmount(rec.Amount),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write("Ausente no extrato", result.MissingFromStatement); err != nil {
		return nil, err
	}
	if err := write("Ausente no relatório", result.MissingFromReport); err != nil {
		return nil, err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	if err := encoded.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

func describeNearMisses(misses []domain.NearMiss) string {
	parts := make([]string, 0, len(misses))
	for _, m := range misses {
		parts = append(parts, fmt.Sprintf("linha %d: %s (dif. %s)",
			m.Record.SourceRowIndex, formatAmount(m.Record.Amount), formatAmount(m.Difference)))
	}
	return strings.Join(parts, "; ")
}

func formatDate(rec domain.PaymentRecord) string {
	if rec.Date == nil {
		return rec.RawDate
	}
	return fmt.Sprintf("%02d/%02d/%04d", rec.Date.Day, int(rec.Date.Month), rec.Date.Year)
}

// formatAmount writes at least two decimals, more when the amount carries them.
func formatAmount(d decimal.Decimal) string {
	places := int32(2)
	if exp := -d.Exponent(); exp > places {
		places = exp
	}
	return strings.Replace(d.StringFixed(places), ".", ",", 1)
}

// sanitizeForCSV trims the value and drops line breaks and control characters.
func sanitizeForCSV(s string) string {
	s = strings.TrimFunc(s, unicode.IsSpace)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == '\r' || r == '\n' || r == '\t':
			continue
		case r < 32:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
