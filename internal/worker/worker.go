// Package worker implements the download worker pool: a fixed population
// of goroutines that pull DownloadJob values off a shared queue, stream the
// remote body to disk, and report progress through the state client. The
// chunk loop doubles as the cancellation checkpoint: the flag is polled
// before every read and again before each progress or Done publish, so a
// cancel lands between chunks, never mid-write.
package worker

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/omarelawady/godownload/internal/errs"
	"github.com/omarelawady/godownload/internal/metrics"
	"github.com/omarelawady/godownload/internal/state"
	"github.com/omarelawady/godownload/internal/types"
)

// chunkSize is how much of the body is read (and the cancellation flag
// checked) per iteration of the per-job loop.
const chunkSize = 32 * 1024

// DownloadJob is the in-memory unit a worker consumes: a name, URL, target
// file path, and a receiver onto the job's cancellation broadcast.
type DownloadJob struct {
	Name   string
	URL    string
	Path   string
	Cancel *CancelSignal
}

// Pool is a fixed population of workers reading from a shared queue that
// buffers up to 1024 jobs; once it is full, sending another job blocks until
// a worker dequeues one. Workers never exit under normal operation.
type Pool struct {
	n       int
	queue   chan DownloadJob
	client  *http.Client
	state   *state.Client
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewPool creates a pool backed by n workers. Call Run to start them.
func NewPool(n int, stateClient *state.Client, log zerolog.Logger, m *metrics.Metrics) *Pool {
	return &Pool{
		n:       n,
		queue:   make(chan DownloadJob, 1024),
		client:  &http.Client{},
		state:   stateClient,
		log:     log.With().Str("component", "worker-pool").Logger(),
		metrics: m,
	}
}

// Queue returns the send side of the worker queue; the Manager is the only
// writer.
func (p *Pool) Queue() chan<- DownloadJob {
	return p.queue
}

// Run spawns the pool's worker goroutines, each looping over the shared
// queue forever. It does not block.
func (p *Pool) Run() {
	for i := 0; i < p.n; i++ {
		id := i
		go p.loop(id)
	}
}

func (p *Pool) loop(id int) {
	log := p.log.With().Int("worker", id).Logger()
	log.Info().Msg("worker starting")
	for job := range p.queue {
		p.process(job, log)
	}
}

// process runs the per-job state machine: probe, GET, stream, terminal
// state.
func (p *Pool) process(job DownloadJob, log zerolog.Logger) {
	log = log.With().Str("job", job.Name).Logger()

	// Step 2: the cancel flag may already be set if the job was cancelled
	// between being enqueued and being dequeued (or, on startup replay, an
	// operator cancelled it before the replayed worker even started). The
	// Manager has already marked the row Cancelled; publishing nothing here
	// is what keeps that row from being clobbered.
	if job.Cancel.Get().Cancel {
		log.Debug().Msg("job already cancelled before dequeue")
		return
	}

	info := types.JobInfo{Name: job.Name, URL: job.URL, Path: job.Path, State: types.Active}
	done := p.metrics.JobStarted()

	fail := func(err error) {
		info.State = types.Failed
		info.Msg = err.Error()
		if perr := p.state.Update(info); perr != nil {
			log.Error().Err(perr).Msg("failed to publish failed state")
		}
		log.Warn().Err(err).Msg("job failed")
		done(types.Failed.String())
	}

	// Step 3: probe for an existing partial file and, if present, whether
	// the remote side supports resuming it.
	var rangeHeader string
	if fi, err := os.Stat(job.Path); err == nil {
		size := uint64(fi.Size())
		supported, err := p.probeResumeSupport(job.URL)
		if err != nil {
			fail(errs.Wrap(errs.HTTPError, err))
			return
		}
		if !supported {
			fail(errs.New(errs.HTTPError, "remote url doesn't support partial downloads"))
			return
		}
		info.Downloaded = size
		rangeHeader = fmt.Sprintf("bytes=%d-", size)
	} else if !os.IsNotExist(err) {
		fail(errs.Wrap(errs.IO, err))
		return
	}

	// Step 4: publish the Active snapshot.
	if err := p.state.Update(info); err != nil {
		log.Error().Err(err).Msg("failed to publish active state")
	}

	// Step 5: issue the GET.
	req, err := http.NewRequest(http.MethodGet, job.URL, nil)
	if err != nil {
		fail(errs.Wrap(errs.HTTPError, err))
		return
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		fail(errs.Wrap(errs.HTTPError, err))
		return
	}
	defer resp.Body.Close()

	// Step 6: total = prior size (if any) + Content-Length, when present.
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseUint(cl, 10, 64); err == nil {
			info.Total = info.Downloaded + n
		}
	}
	if err := p.state.Update(info); err != nil {
		log.Error().Err(err).Msg("failed to publish content-length snapshot")
	}

	// Step 7: open the file in append+create mode.
	f, err := os.OpenFile(job.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fail(errs.Wrap(errs.IO, err))
		return
	}
	defer f.Close()

	// Step 8: chunk loop.
	buf := make([]byte, chunkSize)
	for {
		if c := job.Cancel.Get(); c.Cancel {
			if c.Delete {
				if rerr := os.Remove(job.Path); rerr != nil && !os.IsNotExist(rerr) {
					log.Debug().Err(rerr).Msg("failed to remove file on cancel-delete")
				}
			}
			log.Info().Msg("job cancelled; suppressing further state publishes")
			done(types.Cancelled.String())
			return
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				fail(errs.Wrap(errs.IO, werr))
				return
			}
			info.Downloaded += uint64(n)
			p.metrics.AddBytes(int64(n))
			if job.Cancel.Get().Cancel {
				// Cancelled during the read: the top of the loop stops the
				// job without publishing over the Manager's Cancelled row.
				continue
			}
			if perr := p.state.Update(info); perr != nil {
				log.Error().Err(perr).Msg("failed to publish progress")
			}
		}
		if job.Cancel.Get().Cancel {
			continue
		}
		if rerr == io.EOF {
			info.State = types.Done
			if perr := p.state.Update(info); perr != nil {
				log.Error().Err(perr).Msg("failed to publish done state")
			}
			log.Info().Uint64("downloaded", info.Downloaded).Msg("job done")
			done(types.Done.String())
			return
		}
		if rerr != nil {
			fail(errs.Wrap(errs.HTTPError, rerr))
			return
		}
	}
}

// probeResumeSupport issues a Range: bytes=0-0 request and reports whether
// the server answered 206 Partial Content.
func (p *Pool) probeResumeSupport(url string) (bool, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusPartialContent, nil
}
