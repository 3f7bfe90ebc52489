// Package matcher pairs statement records with report records one to one.
//
// Every feasible pair is scored by the first configured strategy that
// accepts it, all candidates are ranked globally, and a single greedy pass
// commits the best ones. Records that end up unclaimed are reported as
// missing from the other side, with near misses for investigation.
//
// Example usage:
//
//	engine, err := matcher.NewEngine(matcher.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	result := engine.Reconcile(statementRecords, reportRecords)
package matcher

import (
	"github.com/shopspring/decimal"
)

// Strategy names accepted in Config.Strategies.
const (
	StrategyExactID            = "exact_id"
	StrategyPartialID          = "partial_id"
	StrategyValueDate          = "value_date"
	StrategyValueDateTolerance = "value_date_tolerance"
	StrategyTaxIDName          = "tax_id_name"
	StrategyValueWords         = "value_words"
)

// Config holds matching configuration.
type Config struct {
	// Strategies lists strategy names in trust order. Empty means all of
	// them, in the default order.
	Strategies []string `yaml:"strategies"`
	// Tolerance is the relative amount tolerance of the tolerant strategies
	// (0.01 = 1% of the report amount).
	Tolerance float64 `yaml:"tolerance"`
	// MinPartialIDLength is the shortest identifier allowed to match as a
	// substring of the other one.
	MinPartialIDLength int `yaml:"min_partial_id_length"`
	// NearMissTolerance is the relative amount window for near misses.
	NearMissTolerance float64 `yaml:"near_miss_tolerance"`
	// NearMissLimit caps near misses per unmatched record. Negative disables them.
	NearMissLimit int `yaml:"near_miss_limit"`
	// MaxBucketSize caps how many statement records sharing one amount are
	// considered by value_words. Zero means unbounded.
	MaxBucketSize int `yaml:"max_bucket_size"`
}

// DefaultStrategies is the full strategy list in decreasing trust order.
var DefaultStrategies = []string{
	StrategyExactID,
	StrategyPartialID,
	StrategyValueDate,
	StrategyValueDateTolerance,
	StrategyTaxIDName,
	StrategyValueWords,
}

// DefaultConfig returns sensible defaults for matching.
func DefaultConfig() Config {
	return Config{
		Strategies:         append([]string(nil), DefaultStrategies...),
		Tolerance:          0.01,
		MinPartialIDLength: 1,
		NearMissTolerance:  0.01,
		NearMissLimit:      5,
	}
}

// withDefaults fills zero values with the defaults.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.Strategies) == 0 {
		c.Strategies = def.Strategies
	}
	if c.Tolerance <= 0 {
		c.Tolerance = def.Tolerance
	}
	if c.MinPartialIDLength <= 0 {
		c.MinPartialIDLength = def.MinPartialIDLength
	}
	if c.NearMissTolerance <= 0 {
		c.NearMissTolerance = def.NearMissTolerance
	}
	if c.NearMissLimit == 0 {
		c.NearMissLimit = def.NearMissLimit
	}
	if c.MaxBucketSize < 0 {
		c.MaxBucketSize = 0
	}
	return c
}

// withinTolerance reports whether a is within tol (relative) of base.
func withinTolerance(a, base, tol decimal.Decimal) bool {
	return a.Sub(base).Abs().LessThanOrEqual(base.Abs().Mul(tol))
}
