package manager

import "github.com/omarelawady/godownload/internal/types"

// op identifies which Manager operation an envelope carries.
type op int

const (
	opAdd op = iota
	opList
	opInfo
	opCancel
)

// envelope is the (request, reply-channel) pair that lets the REST adapter
// cross into the Manager's single-consumer inbox without knowing anything
// about the worker queue or the cancellation map behind it.
type envelope struct {
	op     op
	url    string
	name   string
	forget bool
	delete bool
	reply  chan reply
}

// reply is the single value the Manager sends back per envelope.
type reply struct {
	err  error
	info types.JobInfo
	list []types.JobInfo
}
