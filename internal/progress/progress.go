// Package progress implements the observable counters and the cooperative
// cancellation token that the block codec pipeline reports through.
//
// This mirrors misc/multithreading.h in the original tk2k_lib: workers are
// handed a partialProgress/totalProgress pointer pair and a shared aborting
// flag. Here the pointers become atomic counters and the flag becomes a
// context.Context. The codec pipeline samples it once per block, before
// that block's transforms start; the transforms themselves (between stages
// and inside the DC3/AC/rANS loops) do not sample it.
package progress

import (
	"context"
	"sync/atomic"
)

// Counters are the two monotonic 32-bit integers external callers (a UI, a
// test) may poll at any time. They are reset to 0 at the start of each
// top-level archive operation.
type Counters struct {
	partial uint32
	total   uint32
}

// SetTotal establishes the number of units of work (typically block count)
// the current operation will perform.
func (c *Counters) SetTotal(n uint32) {
	atomic.StoreUint32(&c.total, n)
}

// Advance increments the completed-units counter by one. Workers call this
// each time they finish a block, matching the original's "written each time
// a stage finishes" behavior.
func (c *Counters) Advance() {
	atomic.AddUint32(&c.partial, 1)
}

// Snapshot returns (partial, total) for display.
func (c *Counters) Snapshot() (partial, total uint32) {
	return atomic.LoadUint32(&c.partial), atomic.LoadUint32(&c.total)
}

// Reset zeroes both counters; called at the start of each top-level
// operation (open/save/load/add/remove/unpack).
func (c *Counters) Reset() {
	atomic.StoreUint32(&c.partial, 0)
	atomic.StoreUint32(&c.total, 0)
}

// Aborted reports whether ctx has been cancelled. The codec pipeline calls
// it before each block's transforms and Archive.RemoveNodes calls it before
// repacking; a block whose transforms have already started runs to
// completion.
func Aborted(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
