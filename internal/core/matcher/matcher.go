package matcher

import (
	"context"
	"sort"

	"reconciliation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Engine runs reconciliations with a fixed strategy list. It holds no state
// between runs and is safe for concurrent use.
type Engine struct {
	config     Config
	strategies []Strategy
}

// NewEngine creates an engine from config, filling unset values with defaults.
func NewEngine(config Config) (*Engine, error) {
	config = config.withDefaults()
	strategies, err := StrategiesFromNames(config.Strategies, config)
	if err != nil {
		return nil, err
	}
	return &Engine{config: config, strategies: strategies}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Strategies returns the strategy list in trust order.
func (e *Engine) Strategies() []Strategy {
	return append([]Strategy(nil), e.strategies...)
}

// candidate is a scored pair, addressed by slice position on both sides.
type candidate struct {
	statement int
	report    int
	rank      int
	score     float64
}

// Reconcile computes a one-to-one assignment between statement and report
// records. Records are identified by their position in the slices, so the
// same inputs always produce the same result.
func (e *Engine) Reconcile(statement, report []domain.PaymentRecord) domain.ReconciliationResult {
	result, _ := e.ReconcileContext(context.Background(), statement, report)
	return result
}

// ReconcileContext is Reconcile with cancellation, checked while candidates
// are enumerated and before near misses are collected.
func (e *Engine) ReconcileContext(ctx context.Context, statement, report []domain.PaymentRecord) (domain.ReconciliationResult, error) {
	statementIndex := newAmountIndex(statement)
	reportIndex := newAmountIndex(report)

	candidates, err := e.candidates(ctx, statement, report, statementIndex)
	if err != nil {
		return domain.ReconciliationResult{}, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if a.report != b.report {
			return a.report < b.report
		}
		return a.statement < b.statement
	})

	claimedStatement := make([]bool, len(statement))
	claimedReport := make([]bool, len(report))
	accepted := make([]candidate, 0, min(len(statement), len(report)))
	for _, c := range candidates {
		if claimedStatement[c.statement] || claimedReport[c.report] {
			continue
		}
		claimedStatement[c.statement] = true
		claimedReport[c.report] = true
		accepted = append(accepted, c)
	}

	if err := ctx.Err(); err != nil {
		return domain.ReconciliationResult{}, err
	}

	// matches saem na ordem do relatório
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].report < accepted[j].report })

	result := domain.ReconciliationResult{
		Matches:              make([]domain.Match, 0, len(accepted)),
		MissingFromStatement: make([]domain.Unmatched, 0),
		MissingFromReport:    make([]domain.Unmatched, 0),
	}
	for _, c := range accepted {
		s := e.strategies[c.rank]
		result.Matches = append(result.Matches, domain.Match{
			Statement:  statement[c.statement],
			Report:     report[c.report],
			Method:     s.Method(),
			Confidence: s.Confidence(),
			Score:      c.score,
		})
	}

	for i := range report {
		if !claimedReport[i] {
			result.MissingFromStatement = append(result.MissingFromStatement, domain.Unmatched{
				Record:     report[i],
				NearMisses: e.nearMisses(report[i], statementIndex),
			})
		}
	}
	for i := range statement {
		if !claimedStatement[i] {
			result.MissingFromReport = append(result.MissingFromReport, domain.Unmatched{
				Record:     statement[i],
				NearMisses: e.nearMisses(statement[i], reportIndex),
			})
		}
	}
	return result, nil
}

// candidates enumerates every pair accepted by some strategy. Each pair is
// scored by the first strategy, in trust order, that accepts it. A report
// record only visits the statement records some strategy could accept: the
// ones carrying a document id, and the ones in its exact amount bucket or
// tolerance window.
func (e *Engine) candidates(ctx context.Context, statement, report []domain.PaymentRecord, index amountIndex) ([]candidate, error) {
	r := reachOf(e.strategies)
	tol := decimal.NewFromFloat(e.config.Tolerance)

	var bucketPos []int
	if e.config.MaxBucketSize > 0 {
		bucketPos = index.bucketPositions()
	}

	var withID []int
	if r.ids {
		for si := range statement {
			if statement[si].DocumentID != "" {
				withID = append(withID, si)
			}
		}
	}

	statementFeatures := featuresOf(statement)
	reportFeatures := featuresOf(report)

	// visited[si] == ri+1 when si is already in the pool of report ri
	visited := make([]int, len(statement))
	pool := make([]int, 0, 64)

	var out []candidate
	for ri := range report {
		if ri%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		pool = pool[:0]
		add := func(positions []int) {
			for _, si := range positions {
				if visited[si] != ri+1 {
					visited[si] = ri + 1
					pool = append(pool, si)
				}
			}
		}
		switch {
		case r.all:
			add(index.order)
		default:
			if r.ids && report[ri].DocumentID != "" {
				add(withID)
			}
			if r.tolerant {
				add(index.around(report[ri].Amount, tol))
			} else if r.exact {
				add(index.within(report[ri].Amount, report[ri].Amount))
			}
		}

		for _, si := range pool {
			pair := Pair{
				Statement:         &statement[si],
				Report:            &report[ri],
				statementFeatures: statementFeatures[si],
				reportFeatures:    reportFeatures[ri],
			}
			for rank, s := range e.strategies {
				if bucketPos != nil && s.Method() == domain.MethodValueWords && bucketPos[si] >= e.config.MaxBucketSize {
					continue
				}
				if score, ok := s.Score(pair); ok {
					out = append(out, candidate{statement: si, report: ri, rank: rank, score: score})
					break
				}
			}
		}
	}
	return out, nil
}

// nearMisses lists other-side records whose amount is within the near-miss
// tolerance of rec, closest first.
func (e *Engine) nearMisses(rec domain.PaymentRecord, others amountIndex) []domain.NearMiss {
	if e.config.NearMissLimit < 0 {
		return nil
	}
	tol := decimal.NewFromFloat(e.config.NearMissTolerance)

	type scored struct {
		idx  int
		diff decimal.Decimal
	}
	window := others.around(rec.Amount, tol)
	if len(window) == 0 {
		return nil
	}
	found := make([]scored, 0, len(window))
	for _, i := range window {
		found = append(found, scored{idx: i, diff: others.records[i].Amount.Sub(rec.Amount).Abs()})
	}
	sort.Slice(found, func(i, j int) bool {
		if c := found[i].diff.Cmp(found[j].diff); c != 0 {
			return c < 0
		}
		return found[i].idx < found[j].idx
	})
	if len(found) > e.config.NearMissLimit {
		found = found[:e.config.NearMissLimit]
	}

	out := make([]domain.NearMiss, 0, len(found))
	for _, f := range found {
		out = append(out, domain.NearMiss{Record: others.records[f.idx], Difference: f.diff})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
