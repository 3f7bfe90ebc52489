package normalize

import (
	"strings"

	"reconciliation-service/internal/domain"

	"github.com/shopspring/decimal"
)

var currencyReplacer = strings.NewReplacer(
	"R$", "",
	"US$", "",
	"$", "",
	"€", "",
	"\u00a0", "",
	" ", "",
	"\t", "",
)

// Amount normalizes a raw cell into an absolute amount at the precision the
// sheet carries. The second result is false when the cell holds no parsable amount.
func Amount(c domain.Cell) (decimal.Decimal, bool) {
	switch c.Kind {
	case domain.CellEmpty:
		return decimal.Zero, false
	case domain.CellNumber:
		return decimal.NewFromFloat(c.Number).Abs(), true
	case domain.CellDate:
		return decimal.Zero, false
	}
	return AmountText(c.Text)
}

// AmountText parses Brazilian formatted amounts ("R$ 1.234,56", "-123,00",
// "123.00") and returns the absolute value. With both separators present the
// period groups thousands and the comma marks decimals. The sign is discarded;
// use IsNegative on the raw cell when the direction matters.
func AmountText(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	s = currencyReplacer.Replace(s)
	s = strings.Trim(s, "()+-")
	if s == "" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndex(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case lastDot >= 0 && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 > 2 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, false
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Abs(), true
}

// IsNegative reports whether a raw amount cell is written as a debit:
// "-10,00", "(10,00)", "10,00-" or "10,00 D".
func IsNegative(c domain.Cell) bool {
	switch c.Kind {
	case domain.CellNumber:
		return c.Number < 0
	case domain.CellText:
		s := strings.ToUpper(strings.TrimSpace(c.Text))
		s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
		if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
			return true
		}
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			return true
		}
		return strings.HasSuffix(s, " D") || strings.HasSuffix(s, "D") && len(s) > 1 && isDigit(s[len(s)-2])
	}
	return false
}

// StripDirection removes a trailing debit/credit marker ("10,00 D", "10,00 C").
func StripDirection(s string) string {
	t := strings.TrimSpace(s)
	u := strings.ToUpper(t)
	if len(u) > 1 && (strings.HasSuffix(u, "D") || strings.HasSuffix(u, "C")) {
		prev := strings.TrimSpace(u[:len(u)-1])
		if prev != "" && (isDigit(prev[len(prev)-1]) || prev[len(prev)-1] == ')') {
			return strings.TrimSpace(t[:len(t)-1])
		}
	}
	return t
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
