package executor

// Config holds run-wide tunables for the DAG executor.
// It is supplied at construction and immutable for the run.
type Config struct {
	// MaxConcurrency is the maximum number of steps running at once.
	MaxConcurrency int

	// MaxRetries is the number of retry attempts per step after the
	// initial attempt, so each step is dispatched at most MaxRetries+1
	// times.
	MaxRetries int

	// SummarizeResults enables summarization of step outputs longer than
	// the summary threshold before they are exposed to dependents.
	SummarizeResults bool

	// SummaryModel names the model the summarizer should use.
	SummaryModel string

	// LockedCodingAgent, when non-empty, pins every coding-capability
	// step to this agent on every attempt. It also disables the coding
	// failover and overrides conflicting fixer switch suggestions.
	LockedCodingAgent string
}

// DefaultConfig returns sensible defaults for executor configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:   3,
		MaxRetries:       2,
		SummarizeResults: true,
		SummaryModel:     "fast",
	}
}

const (
	// summaryThreshold is the result length in runes beyond which a
	// completed step's output is summarized (or clipped) before caching.
	summaryThreshold = 500

	// rawContextLimit is the per-dependency clip length in runes applied
	// when no cached summary exists during context assembly.
	rawContextLimit = 1000
)
