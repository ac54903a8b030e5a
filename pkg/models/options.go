package models

import "time"

// QueryOptions carries backend-neutral knobs for a metric query. Each
// connector converts the canonical duration to its own wire format.
type QueryOptions struct {
	TimeRange   time.Duration // zero means DefaultTimeRange
	Range       bool          // range query instead of instant
	Step        string        // range query resolution, e.g. "30s"
	Aggregation Aggregation
	ResourceID  string // cloud backends: query this resource directly
}

// EffectiveRange returns the time range with the default applied.
func (o QueryOptions) EffectiveRange() time.Duration {
	if o.TimeRange <= 0 {
		return DefaultTimeRange
	}

	return o.TimeRange
}
