package manager

import "github.com/omarelawady/godownload/internal/types"

// Client is the call-site facade the REST adapter uses to reach the
// Manager: one envelope per call, one reply awaited, matching the State
// Client's shape in internal/state.
type Client struct {
	inbox chan envelope
}

func (c *Client) call(env envelope) reply {
	env.reply = make(chan reply, 1)
	c.inbox <- env
	return <-env.reply
}

// Add submits a new job; name may be empty to let the manager derive one.
func (c *Client) Add(url, name string) (types.JobInfo, error) {
	r := c.call(envelope{op: opAdd, url: url, name: name})
	return r.info, r.err
}

// List returns every persisted job.
func (c *Client) List() ([]types.JobInfo, error) {
	r := c.call(envelope{op: opList})
	return r.list, r.err
}

// Info fetches one job by name.
func (c *Client) Info(name string) (types.JobInfo, error) {
	r := c.call(envelope{op: opInfo, name: name})
	return r.info, r.err
}

// Cancel stops a job; forget drops its row, del removes the file and the
// row.
func (c *Client) Cancel(name string, forget, del bool) error {
	r := c.call(envelope{op: opCancel, name: name, forget: forget, delete: del})
	return r.err
}
