package merklekv

import "sync/atomic"

// Stats contains cumulative operation counters. All fields are updated
// atomically and a snapshot is safe to read at any time.
type Stats struct {
	Gets             uint64 // Total Get operations
	GetHits          uint64 // Get operations that found the key
	Sets             uint64 // Total Set operations
	Deletes          uint64 // Total Delete operations
	Increments       uint64 // Total Increment/Decrement operations
	Mutations        uint64 // Total Append/Prepend operations
	PipelineCommands uint64 // Total commands issued through Pipeline
	Retries          uint64 // Get attempts beyond the first
	Reconnects       uint64 // Proactive reconnects after large sets
	Errors           uint64 // Total errors across all operations
}

// statsCollector updates Stats counters. Not exported; operations record
// their own outcomes.
type statsCollector struct {
	stats *Stats
}

func newStatsCollector() *statsCollector {
	return &statsCollector{stats: &Stats{}}
}

func (c *statsCollector) recordGet(hit bool) {
	atomic.AddUint64(&c.stats.Gets, 1)
	if hit {
		atomic.AddUint64(&c.stats.GetHits, 1)
	}
}

func (c *statsCollector) recordSet() {
	atomic.AddUint64(&c.stats.Sets, 1)
}

func (c *statsCollector) recordDelete() {
	atomic.AddUint64(&c.stats.Deletes, 1)
}

func (c *statsCollector) recordIncrement() {
	atomic.AddUint64(&c.stats.Increments, 1)
}

func (c *statsCollector) recordMutation() {
	atomic.AddUint64(&c.stats.Mutations, 1)
}

func (c *statsCollector) recordPipeline(commands int) {
	atomic.AddUint64(&c.stats.PipelineCommands, uint64(commands))
}

func (c *statsCollector) recordRetry() {
	atomic.AddUint64(&c.stats.Retries, 1)
}

func (c *statsCollector) recordReconnect() {
	atomic.AddUint64(&c.stats.Reconnects, 1)
}

func (c *statsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *statsCollector) snapshot() Stats {
	return Stats{
		Gets:             atomic.LoadUint64(&c.stats.Gets),
		GetHits:          atomic.LoadUint64(&c.stats.GetHits),
		Sets:             atomic.LoadUint64(&c.stats.Sets),
		Deletes:          atomic.LoadUint64(&c.stats.Deletes),
		Increments:       atomic.LoadUint64(&c.stats.Increments),
		Mutations:        atomic.LoadUint64(&c.stats.Mutations),
		PipelineCommands: atomic.LoadUint64(&c.stats.PipelineCommands),
		Retries:          atomic.LoadUint64(&c.stats.Retries),
		Reconnects:       atomic.LoadUint64(&c.stats.Reconnects),
		Errors:           atomic.LoadUint64(&c.stats.Errors),
	}
}
