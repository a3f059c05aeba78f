// Package apiclient is the HTTP client the CLI uses to reach a running
// daemon's REST adapter: one method per operation, bodies marshaled
// through json-iterator.
package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/omarelawady/godownload/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client talks to a running daemon's REST adapter over HTTP.
type Client struct {
	addr string
	http *http.Client
}

// New returns a client targeting the daemon listening on addr (host:port,
// no scheme).
func New(addr string) *Client {
	return &Client{addr: addr, http: &http.Client{}}
}

type errorBody struct {
	Error string `json:"Error"`
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("http://%s%s", c.addr, path)
}

func (c *Client) do(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.url(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var eb errorBody
		if jsonErr := json.Unmarshal(raw, &eb); jsonErr == nil && eb.Error != "" {
			return fmt.Errorf("%s", eb.Error)
		}
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Add submits a new job. name may be empty to let the daemon derive one.
func (c *Client) Add(url, name string) (types.JobInfo, error) {
	var info types.JobInfo
	err := c.do(http.MethodPost, "/api/v1/jobs", map[string]string{"url": url, "name": name}, &info)
	return info, err
}

// List returns every job known to the daemon.
func (c *Client) List() ([]types.JobInfo, error) {
	var list []types.JobInfo
	err := c.do(http.MethodGet, "/api/v1/jobs", nil, &list)
	return list, err
}

// Info fetches a single job by name.
func (c *Client) Info(name string) (types.JobInfo, error) {
	var info types.JobInfo
	err := c.do(http.MethodGet, "/api/v1/jobs/"+name, nil, &info)
	return info, err
}

// Cancel cancels a job, optionally forgetting its row and/or deleting its
// file.
func (c *Client) Cancel(name string, forget, del bool) error {
	return c.do(http.MethodDelete, "/api/v1/jobs/"+name, map[string]bool{"forget": forget, "delete": del}, nil)
}
