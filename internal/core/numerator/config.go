// Package numerator declares document numbering contracts.
package numerator

// Strategy selects how numbers are reserved.
type Strategy int

const (
	// StrategyStrict reserves one number per UPDATE ... RETURNING. Gapless.
	StrategyStrict Strategy = iota

	// StrategyCached reserves a range in memory. A restart may leave gaps.
	StrategyCached
)

type Options struct {
	Strategy Strategy
	// RangeSize for StrategyCached; 50 when zero.
	RangeSize int64
}

func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Config describes one numbering sequence.
type Config struct {
	Prefix      string
	IncludeYear bool
	PadWidth    int
	// ResetPeriod is "year", "month" or "never".
	ResetPeriod string
}

// DefaultConfig numbers as PREFIX-YYYY-NNNNN, restarting every year.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// Workshop sequences.
const (
	PrefixWorkOrder  = "OT"
	PrefixSale       = "REM"
	PrefixSettlement = "LIQ"
)
