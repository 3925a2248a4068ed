package stock

// Config holds policy configuration for the reconciliation engine.
type Config struct {
	// AllowNegative controls how a run that drives an on-hand balance below
	// zero is handled. When true the run commits and the affected items are
	// flagged in the run notes; when false the run is rejected with an
	// invariant violation. Upstream data is known to be occasionally
	// inconsistent, so the default is to accept and flag.
	AllowNegative bool `mapstructure:"allow_negative" default:"true"`
}
