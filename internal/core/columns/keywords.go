package columns

import (
	"strings"

	"reconciliation-service/internal/core/normalize"
	"reconciliation-service/internal/domain"
)

// headerKeywords lists, per field, the header words recognized after folding
// (see normalize.Key), in preference order.
var headerKeywords = map[domain.Field][]string{
	domain.FieldTaxID:       {"CPF CNPJ", "CNPJ CPF", "CPF", "CNPJ", "INSCRICAO"},
	domain.FieldDate:        {"DATA PAGAMENTO", "DATA", "DT", "DATE", "VENCIMENTO", "DIA"},
	domain.FieldDebit:       {"DEBITO", "DEBITOS", "SAIDA", "SAIDAS", "DEBIT", "WITHDRAWAL"},
	domain.FieldCredit:      {"CREDITO", "CREDITOS", "ENTRADA", "ENTRADAS", "CREDIT", "DEPOSIT"},
	domain.FieldDirection:   {"D C", "DC", "C D", "NATUREZA", "TIPO"},
	domain.FieldAmount:      {"VALOR PAGO", "VALOR", "VLR", "VL", "AMOUNT", "VALUE", "MONTANTE", "QUANTIA", "IMPORTE", "TOTAL"},
	domain.FieldDocument:    {"DOCUMENTO", "DOC", "NUMERO DOCUMENTO", "NR", "NUM", "IDENTIFICADOR", "ID", "NF", "NFE", "NOTA", "TITULO", "REFERENCIA", "REF"},
	domain.FieldDescription: {"HISTORICO", "DESCRICAO", "DESCRIPTION", "LANCAMENTO", "FAVORECIDO", "BENEFICIARIO", "FORNECEDOR", "RAZAO SOCIAL", "NOME", "CLIENTE", "PAYEE", "MEMO", "DETALHE", "OBSERVACAO"},
}

// hintTypes maps folded hint types onto fields.
var hintTypes = map[string]domain.Field{
	"CURRENCY":    domain.FieldAmount,
	"MONEY":       domain.FieldAmount,
	"MOEDA":       domain.FieldAmount,
	"AMOUNT":      domain.FieldAmount,
	"VALOR":       domain.FieldAmount,
	"DATE":        domain.FieldDate,
	"DATETIME":    domain.FieldDate,
	"DATA":        domain.FieldDate,
	"CPF":         domain.FieldTaxID,
	"CNPJ":        domain.FieldTaxID,
	"CPF CNPJ":    domain.FieldTaxID,
	"TAX ID":      domain.FieldTaxID,
	"TAXID":       domain.FieldTaxID,
	"ID":          domain.FieldDocument,
	"IDENTIFIER":  domain.FieldDocument,
	"DOCUMENT":    domain.FieldDocument,
	"DOCUMENTO":   domain.FieldDocument,
	"DESCRIPTION": domain.FieldDescription,
	"DESCRICAO":   domain.FieldDescription,
}

// matchesKeyword reports whether the folded header contains the keyword as a
// run of words. Short keyword words (two letters or fewer) must match a whole
// header word; longer ones may prefix it ("DEBITO" matches "DEBITOS").
func matchesKeyword(headerKey, keyword string) bool {
	words := strings.Fields(headerKey)
	kw := strings.Fields(keyword)
	if len(kw) == 0 || len(kw) > len(words) {
		return false
	}
	for start := 0; start+len(kw) <= len(words); start++ {
		ok := true
		for i, k := range kw {
			w := words[start+i]
			if len(k) <= 2 {
				if w != k {
					ok = false
					break
				}
			} else if !strings.HasPrefix(w, k) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// keywordField returns the first field whose keywords match the label, trying
// fields in the given order.
func keywordField(label string, fields []domain.Field) (domain.Field, bool) {
	key := normalize.Key(label)
	if key == "" {
		return "", false
	}
	for _, f := range fields {
		for _, kw := range headerKeywords[f] {
			if matchesKeyword(key, kw) {
				return f, true
			}
		}
	}
	return "", false
}

// isHeaderLabel reports whether any field keyword matches the label.
func isHeaderLabel(label string) bool {
	_, ok := keywordField(label, allFields)
	return ok
}
