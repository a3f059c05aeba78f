package state

import (
	"github.com/omarelawady/godownload/internal/types"
)

// Client is the call-site facade over an Actor's mailbox. Every method
// constructs a fresh single-capacity reply channel, sends one request,
// and awaits exactly one reply.
type Client struct {
	inbox chan request
}

func (c *Client) call(req request) reply {
	req.reply = make(chan reply, 1)
	c.inbox <- req
	return <-req.reply
}

// Update persists the full JobInfo row (insert-or-replace semantics).
func (c *Client) Update(info types.JobInfo) error {
	r := c.call(request{op: opUpdate, info: info})
	return r.err
}

// UpdateState transitions name's state column only.
func (c *Client) UpdateState(name string, st types.State) error {
	r := c.call(request{op: opUpdateState, name: name, state: st})
	return r.err
}

// Delete removes name's row. Not an error if it was already absent.
func (c *Client) Delete(name string) error {
	r := c.call(request{op: opDelete, name: name})
	return r.err
}

// Get fetches name's row, returning a DownloadJobNotFound ManagerError if
// absent.
func (c *Client) Get(name string) (types.JobInfo, error) {
	r := c.call(request{op: opGet, name: name})
	if r.err != nil {
		return types.JobInfo{}, r.err
	}
	return r.info, nil
}

// List returns every persisted job.
func (c *Client) List() ([]types.JobInfo, error) {
	r := c.call(request{op: opList})
	if r.err != nil {
		return nil, r.err
	}
	return r.list, nil
}
