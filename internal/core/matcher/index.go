package matcher

import (
	"sort"
	"strings"

	"reconciliation-service/internal/core/normalize"
	"reconciliation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// features caches the description forms the strategies compare, so each
// record is folded once per run instead of once per pair.
type features struct {
	tokens    []string
	words     map[string]struct{}
	folded    string
	taxDigits string
}

func newFeatures(rec *domain.PaymentRecord) *features {
	folded := normalize.Fold(rec.Description)
	tokens := strings.Fields(folded)
	words := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		words[t] = struct{}{}
	}
	return &features{
		tokens:    tokens,
		words:     words,
		folded:    folded,
		taxDigits: normalize.TaxID(rec.Description),
	}
}

func featuresOf(records []domain.PaymentRecord) []*features {
	out := make([]*features, len(records))
	for i := range records {
		out[i] = newFeatures(&records[i])
	}
	return out
}

// amountIndex orders record positions by amount. Equal amounts keep their
// row order.
type amountIndex struct {
	records []domain.PaymentRecord
	order   []int
}

func newAmountIndex(records []domain.PaymentRecord) amountIndex {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return records[order[i]].Amount.LessThan(records[order[j]].Amount)
	})
	return amountIndex{records: records, order: order}
}

// within returns the positions whose amount lies in [lo, hi], by amount.
func (ix amountIndex) within(lo, hi decimal.Decimal) []int {
	start := sort.Search(len(ix.order), func(i int) bool {
		return ix.records[ix.order[i]].Amount.GreaterThanOrEqual(lo)
	})
	end := sort.Search(len(ix.order), func(i int) bool {
		return ix.records[ix.order[i]].Amount.GreaterThan(hi)
	})
	if end < start {
		end = start
	}
	return ix.order[start:end]
}

// around returns the positions within the relative tolerance tol of base.
func (ix amountIndex) around(base, tol decimal.Decimal) []int {
	margin := base.Abs().Mul(tol)
	return ix.within(base.Sub(margin), base.Add(margin))
}

// bucketPositions returns, for each record, how many earlier records share
// its exact amount.
func (ix amountIndex) bucketPositions() []int {
	pos := make([]int, len(ix.records))
	for i := 1; i < len(ix.order); i++ {
		prev, cur := ix.order[i-1], ix.order[i]
		if ix.records[cur].Amount.Equal(ix.records[prev].Amount) {
			pos[cur] = pos[prev] + 1
		}
	}
	return pos
}

// reach says which statement records a report record can pair with under
// the configured strategies.
type reach struct {
	ids      bool
	exact    bool
	tolerant bool
	all      bool
}

func reachOf(strategies []Strategy) reach {
	var r reach
	for _, s := range strategies {
		switch s.(type) {
		case exactID, partialID:
			r.ids = true
		case valueDate, valueWords:
			r.exact = true
		case valueDateTolerance, taxIDName:
			r.tolerant = true
		default:
			r.all = true
		}
	}
	return r
}
