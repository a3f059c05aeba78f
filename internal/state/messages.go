package state

import "github.com/omarelawady/godownload/internal/types"

// request is the mailbox message the actor reads. Exactly one of the
// payload fields is meaningful per op; reply always receives exactly one
// value before the actor moves to the next request.
type request struct {
	op    op
	info  types.JobInfo
	name  string
	state types.State
	reply chan reply
}

type op int

const (
	opUpdate op = iota
	opUpdateState
	opDelete
	opGet
	opList
)

// reply is the single value sent back on a request's reply channel: either
// the expected payload for op, or err set to a non-nil *errs.ManagerError.
type reply struct {
	err  error
	info types.JobInfo
	list []types.JobInfo
}
