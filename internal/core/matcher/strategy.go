package matcher

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"reconciliation-service/internal/core/normalize"
	"reconciliation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// dateBonus makes any date-matching value_words candidate outrank any
// number of shared words without a date match.
const dateBonus = 10000

// Pair is one statement/report combination under evaluation.
type Pair struct {
	Statement *domain.PaymentRecord
	Report    *domain.PaymentRecord

	statementFeatures *features
	reportFeatures    *features
}

func (p Pair) statement() *features {
	if p.statementFeatures != nil {
		return p.statementFeatures
	}
	return newFeatures(p.Statement)
}

func (p Pair) report() *features {
	if p.reportFeatures != nil {
		return p.reportFeatures
	}
	return newFeatures(p.Report)
}

// words counts the report description tokens found in the statement
// description. It is the fine score inside a strategy.
func (p Pair) words() int {
	return normalize.CountIn(p.report().tokens, p.statement().words)
}

// Strategy decides whether a pair qualifies and scores it. Higher scores win
// among candidates of the same strategy.
type Strategy interface {
	Method() domain.MatchMethod
	Confidence() domain.Confidence
	Score(p Pair) (float64, bool)
}

// StrategiesFromNames builds the strategy list in the given order.
func StrategiesFromNames(names []string, cfg Config) ([]Strategy, error) {
	tol := decimal.NewFromFloat(cfg.Tolerance)
	seen := make(map[string]bool, len(names))
	out := make([]Strategy, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			return nil, fmt.Errorf("estratégia repetida: %s", name)
		}
		seen[name] = true

		switch name {
		case StrategyExactID:
			out = append(out, exactID{})
		case StrategyPartialID:
			out = append(out, partialID{minLength: cfg.MinPartialIDLength})
		case StrategyValueDate:
			out = append(out, valueDate{})
		case StrategyValueDateTolerance:
			out = append(out, valueDateTolerance{tolerance: tol})
		case StrategyTaxIDName:
			out = append(out, taxIDName{tolerance: tol})
		case StrategyValueWords:
			out = append(out, valueWords{})
		default:
			return nil, fmt.Errorf("estratégia desconhecida: %s", raw)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("nenhuma estratégia configurada")
	}
	return out, nil
}

// exactID pairs records carrying the same document identifier.
type exactID struct{}

func (exactID) Method() domain.MatchMethod    { return domain.MethodExactID }
func (exactID) Confidence() domain.Confidence { return domain.ConfidenceHigh }

func (exactID) Score(p Pair) (float64, bool) {
	if p.Statement.DocumentID == "" || p.Statement.DocumentID != p.Report.DocumentID {
		return 0, false
	}
	return float64(p.words()), true
}

// partialID pairs records when one identifier contains the other. Short
// numeric identifiers match a lot of things, so minLength bounds the
// contained one.
type partialID struct {
	minLength int
}

func (partialID) Method() domain.MatchMethod    { return domain.MethodPartialID }
func (partialID) Confidence() domain.Confidence { return domain.ConfidenceMedium }

func (s partialID) Score(p Pair) (float64, bool) {
	a, b := p.Statement.DocumentID, p.Report.DocumentID
	if a == "" || b == "" {
		return 0, false
	}
	if len(a) < len(b) {
		a, b = b, a
	}
	if utf8.RuneCountInString(b) < s.minLength || !strings.Contains(a, b) {
		return 0, false
	}
	return float64(p.words()), true
}

// valueDate pairs equal amounts on the same calendar date.
type valueDate struct{}

func (valueDate) Method() domain.MatchMethod    { return domain.MethodValueDate }
func (valueDate) Confidence() domain.Confidence { return domain.ConfidenceHigh }

func (valueDate) Score(p Pair) (float64, bool) {
	if !p.Statement.Amount.Equal(p.Report.Amount) || !p.Statement.SameDate(*p.Report) {
		return 0, false
	}
	return float64(p.words()), true
}

// valueDateTolerance pairs amounts within a relative tolerance on the same date.
type valueDateTolerance struct {
	tolerance decimal.Decimal
}

func (valueDateTolerance) Method() domain.MatchMethod    { return domain.MethodValueDateTolerance }
func (valueDateTolerance) Confidence() domain.Confidence { return domain.ConfidenceLowMedium }

func (s valueDateTolerance) Score(p Pair) (float64, bool) {
	if !p.Statement.SameDate(*p.Report) || !withinTolerance(p.Statement.Amount, p.Report.Amount, s.tolerance) {
		return 0, false
	}
	return float64(p.words()), true
}

// taxIDName pairs records whose statement description mentions the report
// tax id or the payee first name, on the same date and within tolerance.
type taxIDName struct {
	tolerance decimal.Decimal
}

func (taxIDName) Method() domain.MatchMethod    { return domain.MethodTaxIDName }
func (taxIDName) Confidence() domain.Confidence { return domain.ConfidenceLow }

func (s taxIDName) Score(p Pair) (float64, bool) {
	if !p.Statement.SameDate(*p.Report) || !withinTolerance(p.Statement.Amount, p.Report.Amount, s.tolerance) {
		return 0, false
	}
	if !mentionsPayee(p.statement(), p.report(), p.Report.TaxID) {
		return 0, false
	}
	return float64(p.words()), true
}

func mentionsPayee(statement, report *features, taxID string) bool {
	if taxID != "" && strings.Contains(statement.taxDigits, taxID) {
		return true
	}
	if len(report.tokens) == 0 || utf8.RuneCountInString(report.tokens[0]) <= 2 {
		return false
	}
	return strings.Contains(statement.folded, report.tokens[0])
}

// valueWords pairs equal amounts, preferring same-date candidates and then
// shared description words.
type valueWords struct{}

func (valueWords) Method() domain.MatchMethod    { return domain.MethodValueWords }
func (valueWords) Confidence() domain.Confidence { return domain.ConfidenceLow }

func (valueWords) Score(p Pair) (float64, bool) {
	if !p.Statement.Amount.Equal(p.Report.Amount) {
		return 0, false
	}
	score := p.words()
	if p.Statement.SameDate(*p.Report) {
		score += dateBonus
	}
	return float64(score), true
}
