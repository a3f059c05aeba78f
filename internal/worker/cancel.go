package worker

import (
	"go.uber.org/atomic"

	"github.com/omarelawady/godownload/internal/types"
)

// CancelSignal is the per-job latest-value broadcast from the Manager to
// the single worker that owns a job. It starts at {false, false} and is
// only ever moved to {true, false} or {true, true} — never reset — so a
// worker can poll it between chunks without any handshake with the sender.
//
// A one-shot flag plus an event would be equally correct (see the design
// note on cancellation); this uses two independent atomics because the
// two flags are only ever set together and read together, so there's no
// observable difference, and it avoids a mutex on the worker's hot path.
type CancelSignal struct {
	cancel atomic.Bool
	delete atomic.Bool
}

// NewCancelSignal returns a signal in its initial, un-cancelled state.
func NewCancelSignal() *CancelSignal {
	return &CancelSignal{}
}

// Broadcast moves the signal forward. Per the data model, info.Cancel is
// always true when this is called; info.Delete is false or true.
func (c *CancelSignal) Broadcast(info types.CancelInfo) {
	if info.Delete {
		c.delete.Store(true)
	}
	if info.Cancel {
		c.cancel.Store(true)
	}
}

// Get reads the current value.
func (c *CancelSignal) Get() types.CancelInfo {
	return types.CancelInfo{Cancel: c.cancel.Load(), Delete: c.delete.Load()}
}
