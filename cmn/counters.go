package cmn

import "go.uber.org/atomic"

// JobCounters holds cumulative job counts, only ever incremented: Zipping
// when a job is filed, Ready/Cancelled when the background worker finishes
// it, Succeeded when it is retrieved.
type JobCounters struct {
	Zipping   atomic.Int64
	Ready     atomic.Int64
	Succeeded atomic.Int64
	Cancelled atomic.Int64
}

// Snapshot reads every counter without blocking writers.
func (c *JobCounters) Snapshot() map[string]int64 {
	return map[string]int64{
		"zipping":   c.Zipping.Load(),
		"ready":     c.Ready.Load(),
		"succeeded": c.Succeeded.Load(),
		"cancelled": c.Cancelled.Load(),
	}
}
