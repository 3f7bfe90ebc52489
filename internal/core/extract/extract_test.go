package extract

import (
	"testing"
	"time"

	"reconciliation-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sheetOf(rows ...[]string) *domain.Sheet {
	sheet := &domain.Sheet{Name: "Plan1"}
	for i, values := range rows {
		row := domain.Row{Index: i + 1, Cells: make([]domain.Cell, len(values))}
		for j, v := range values {
			row.Cells[j] = domain.TextCell(v)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func TestExtract_StatementKeepsOnlyDebits(t *testing.T) {
	sheet := sheetOf(
		[]string{"Data", "Histórico", "Documento", "Valor"},
		[]string{"05/01/2024", "SALDO ANTERIOR", "", "1.000,00"},
		[]string{"05/01/2024", "PIX ENVIADO ACME", "abc-1", "-150,00"},
		[]string{"06/01/2024", "TED RECEBIDA", "", "300,00"},
		[]string{"", "", "", ""},
		[]string{"07/01/2024", "TARIFA", "", "12,90 D"},
		[]string{"08/01/2024", "ESTORNO", "", "0,00"},
		[]string{"xx", "SEM DATA", "", "-5,00"},
	)

	res, err := Extract(sheet, domain.OriginStatement, Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	first := res.Records[0]
	assert.Equal(t, "statement#3", first.ID)
	assert.Equal(t, domain.OriginStatement, first.Origin)
	assert.Equal(t, 3, first.SourceRowIndex)
	assert.Equal(t, "150.00", first.Amount.StringFixed(2))
	assert.Equal(t, "-150,00", first.RawAmount)
	require.NotNil(t, first.Date)
	assert.Equal(t, "2024-01-05", first.Date.String())
	assert.Equal(t, "PIX ENVIADO ACME", first.Description)
	assert.Equal(t, "ABC-1", first.DocumentID)

	assert.Equal(t, "12.90", res.Records[1].Amount.StringFixed(2))
	assert.Equal(t, 6, res.Records[1].SourceRowIndex)

	noDate := res.Records[2]
	assert.Nil(t, noDate.Date)
	assert.Equal(t, "xx", noDate.RawDate)

	assert.Equal(t, Stats{Rows: 7, Accepted: 3, Empty: 1, NoAmount: 1, Credits: 1, Summaries: 1, NoDate: 1}, res.Stats)
}

func TestExtract_StatementWithoutHeaderRow(t *testing.T) {
	sheet := sheetOf(
		[]string{"05/01/2024", "PIX ENVIADO ACME", "-150,00"},
		[]string{"06/01/2024", "TARIFA", "-12,90"},
	)

	res, err := Extract(sheet, domain.OriginStatement, Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Records[0].SourceRowIndex)
	assert.Equal(t, "PIX ENVIADO ACME", res.Records[0].Description)
	assert.Equal(t, "150", res.Records[0].Amount.String())
}

func TestExtract_StatementIncludeCredits(t *testing.T) {
	sheet := sheetOf(
		[]string{"Data", "Histórico", "Valor"},
		[]string{"05/01/2024", "PIX ENVIADO", "-150,00"},
		[]string{"06/01/2024", "TED RECEBIDA", "300,00"},
	)
	res, err := Extract(sheet, domain.OriginStatement, Options{IncludeCredits: true})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
}

func TestExtract_StatementDebitCreditColumns(t *testing.T) {
	sheet := sheetOf(
		[]string{"Data", "Descrição", "Débito", "Crédito"},
		[]string{"05/01/2024", "BOLETO", "99,90", ""},
		[]string{"05/01/2024", "DEPOSITO", "", "50,00"},
	)
	res, err := Extract(sheet, domain.OriginStatement, Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "BOLETO", res.Records[0].Description)
	assert.Equal(t, "99.90", res.Records[0].Amount.StringFixed(2))
	assert.Equal(t, 1, res.Stats.Credits)
}

func TestExtract_StatementDirectionColumn(t *testing.T) {
	sheet := sheetOf(
		[]string{"Data", "Histórico", "Valor", "D/C"},
		[]string{"05/01/2024", "BOLETO", "99,90", "D"},
		[]string{"05/01/2024", "DEPOSITO", "50,00", "C"},
	)
	res, err := Extract(sheet, domain.OriginStatement, Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "BOLETO", res.Records[0].Description)
}

func TestExtract_ReportKeepsPositiveAmounts(t *testing.T) {
	sheet := sheetOf(
		[]string{"Relatório financeiro - outubro"},
		[]string{"Vencimento", "Favorecido", "CPF/CNPJ", "Nº Documento", "Valor"},
		[]string{"28/10/2025", "José da Silva", "123.456.789-01", " nf-77 ", "R$ 1.234,56"},
		[]string{"29/10/2025", "Maria", "", "", "abc"},
		[]string{"TOTAL", "", "", "", "1.234,56"},
	)
	res, err := Extract(sheet, domain.OriginReport, Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, "report#3", rec.ID)
	assert.Equal(t, "1234.56", rec.Amount.String())
	assert.Equal(t, "12345678901", rec.TaxID)
	assert.Equal(t, "NF-77", rec.DocumentID)
	assert.Equal(t, "José da Silva", rec.Description)
	assert.Equal(t, "2025-10-28", rec.Date.String())
	assert.Equal(t, 1, res.Stats.NoAmount)
	assert.Equal(t, 1, res.Stats.Summaries)
}

func TestExtract_HintAndHeuristicAgree(t *testing.T) {
	sheet := sheetOf(
		[]string{"Quando", "Quem", "Quanto"},
		[]string{"28/10/2025", "ACME", "10,00"},
		[]string{"29/10/2025", "Outro", "20,00"},
	)
	hint := &domain.ColumnHint{Sheets: []domain.SheetHint{{Columns: []domain.ColumnHintEntry{
		{Name: "Quando", Type: "date", Examples: []string{"28/10/2025"}},
		{Name: "Quanto", Type: "currency", Examples: []string{"10,00"}},
	}}}}

	withHint, err := Extract(sheet, domain.OriginReport, Options{Hint: hint})
	require.NoError(t, err)
	withoutHint, err := Extract(sheet, domain.OriginReport, Options{})
	require.NoError(t, err)

	require.Len(t, withoutHint.Records, 2)
	assert.Equal(t, withHint.Records, withoutHint.Records)
	assert.Equal(t, "2025-10-28", withoutHint.Records[0].Date.String())
}

func TestExtract_FixedLayout(t *testing.T) {
	sheet := sheetOf(
		[]string{"cabecalho", "ignorado", "", "", ""},
		[]string{"05/01/2024", "x", "PIX ACME", "", "-10,00"},
		[]string{"06/01/2024", "x", "TED", "", "-20,00"},
	)
	layout := &domain.FixedLayout{Columns: map[domain.Field]string{
		domain.FieldDate:        "A",
		domain.FieldDescription: "C",
		domain.FieldAmount:      "E",
	}}

	res, err := Extract(sheet, domain.OriginStatement, Options{Layout: layout})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "PIX ACME", res.Records[0].Description)
	assert.Equal(t, 2, res.Records[0].SourceRowIndex)
	assert.Equal(t, []string{"cabecalho", "ignorado", "", "", ""}, res.Headers)

	_, err = Extract(sheet, domain.OriginStatement, Options{Layout: &domain.FixedLayout{
		Columns: map[domain.Field]string{domain.FieldAmount: "1"},
	}})
	assert.Error(t, err)
}

func TestExtract_NativeCells(t *testing.T) {
	sheet := &domain.Sheet{Rows: []domain.Row{
		{Index: 1, Cells: []domain.Cell{domain.TextCell("Data"), domain.TextCell("Descrição"), domain.TextCell("Valor")}},
		{Index: 2, Cells: []domain.Cell{
			domain.DateCell(time.Date(2024, time.January, 5, 15, 30, 0, 0, time.UTC), ""),
			domain.TextCell("Boleto"),
			domain.NumberCell(-99.9, "-99,90"),
		}},
	}}
	res, err := Extract(sheet, domain.OriginStatement, Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2024-01-05", res.Records[0].Date.String())
	assert.Equal(t, "99.90", res.Records[0].Amount.StringFixed(2))
	assert.Equal(t, "-99,90", res.Records[0].RawAmount)
}

func TestExtract_EmptySheet(t *testing.T) {
	res, err := Extract(&domain.Sheet{}, domain.OriginReport, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}
