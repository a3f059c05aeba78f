// Package manager implements the orchestrator: it validates and names
// incoming add requests, persists initial state, dispatches jobs to the
// worker queue, tracks per-job cancellation senders, performs
// cancel/cleanup, and replays active jobs at startup. It is the single
// consumer of its own inbox, the same single-task-owns-one-channel shape
// as the State Actor.
package manager

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/omarelawady/godownload/internal/errs"
	"github.com/omarelawady/godownload/internal/metrics"
	"github.com/omarelawady/godownload/internal/namegen"
	"github.com/omarelawady/godownload/internal/state"
	"github.com/omarelawady/godownload/internal/types"
	"github.com/omarelawady/godownload/internal/worker"
)

// Manager owns the worker queue sender, the state client, and the
// name -> cancellation-sender map. Nothing else touches the map.
type Manager struct {
	inbox        chan envelope
	state        *state.Client
	queue        chan<- worker.DownloadJob
	downloadsDir string
	log          zerolog.Logger
	metrics      *metrics.Metrics

	cancels  map[string]*worker.CancelSignal
	inFlight atomic.Int64
}

// New creates a Manager. Call Replay once at startup before Run, then Run
// to begin serving envelopes.
func New(stateClient *state.Client, queue chan<- worker.DownloadJob, downloadsDir string, log zerolog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		inbox:        make(chan envelope, 256),
		state:        stateClient,
		queue:        queue,
		downloadsDir: downloadsDir,
		log:          log.With().Str("component", "manager").Logger(),
		metrics:      m,
		cancels:      make(map[string]*worker.CancelSignal),
	}
}

// Client returns a facade bound to this manager's inbox, for the REST
// adapter to call without knowing about envelopes or channels.
func (m *Manager) Client() *Client {
	return &Client{inbox: m.inbox}
}

// InFlight reports the number of jobs the manager currently holds a
// cancellation sender for (i.e. Pending or Active).
func (m *Manager) InFlight() int64 {
	return m.inFlight.Load()
}

// Replay re-enqueues every persisted job whose state is Active, before the
// first new submission is accepted: after replay, every Active row has
// either been re-queued or will be. Errors are logged, never fatal — a
// store that can't be listed at all still lets the daemon come up and
// serve new submissions.
func (m *Manager) Replay() {
	jobs, err := m.state.List()
	if err != nil {
		m.log.Error().Err(err).Msg("startup replay: failed to list jobs")
		return
	}
	for _, info := range jobs {
		if info.State != types.Active {
			continue
		}
		sig := worker.NewCancelSignal()
		m.cancels[info.Name] = sig
		m.inFlight.Inc()
		m.queue <- worker.DownloadJob{Name: info.Name, URL: info.URL, Path: info.Path, Cancel: sig}
		m.log.Info().Str("job", info.Name).Msg("replayed active job")
	}
}

// Run drains the inbox until it is closed, handling one envelope at a
// time and sweeping the cancellation map after each.
func (m *Manager) Run() {
	m.log.Info().Msg("manager starting")
	for env := range m.inbox {
		r := m.handle(env)
		m.sweep()
		env.reply <- r
	}
	m.log.Info().Msg("manager exiting: inbox closed")
}

func (m *Manager) handle(env envelope) reply {
	switch env.op {
	case opAdd:
		info, err := m.add(env.url, env.name)
		return reply{err: err, info: info}
	case opList:
		list, err := m.state.List()
		return reply{err: err, list: list}
	case opInfo:
		info, err := m.state.Get(env.name)
		return reply{err: err, info: info}
	case opCancel:
		err := m.cancel(env.name, env.forget, env.delete)
		return reply{err: err}
	default:
		return reply{err: errs.Newf(errs.InvalidMessage, "unknown manager op %d", env.op)}
	}
}

// add validates the URL, resolves a unique name, persists a Pending row,
// and enqueues the job.
func (m *Manager) add(rawURL, name string) (types.JobInfo, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() {
		return types.JobInfo{}, errs.Newf(errs.InvalidAddress, "invalid url %q", rawURL)
	}

	name, err = m.resolveName(parsed, name)
	if err != nil {
		return types.JobInfo{}, err
	}

	_, err = m.state.Get(name)
	switch {
	case errs.Is(err, errs.DownloadJobNotFound):
		// expected: proceed
	case err != nil:
		return types.JobInfo{}, err
	default:
		return types.JobInfo{}, errs.Newf(errs.DownloadJobNameAlreadyExist, "job %q already exists", name)
	}

	sig := worker.NewCancelSignal()
	path := filepath.Join(m.downloadsDir, name)
	info := types.JobInfo{Name: name, URL: rawURL, Path: path, State: types.Pending}

	// Persist before enqueuing: a worker that picks the job straight off
	// the queue must already be able to observe the row.
	if err := m.state.Update(info); err != nil {
		return types.JobInfo{}, err
	}
	m.queue <- worker.DownloadJob{Name: name, URL: rawURL, Path: path, Cancel: sig}
	m.cancels[name] = sig
	m.inFlight.Inc()
	m.metrics.JobSubmitted()

	m.log.Info().Str("job", name).Str("url", rawURL).Msg("job added")
	return info, nil
}

// resolveName picks the caller's name, else the URL's last path segment,
// else a random 7-character name. A path ending in "/" has an empty last
// segment, so it always falls through to generation. The segment is used
// as-is, never percent-decoded.
func (m *Manager) resolveName(parsed *url.URL, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	segments := strings.Split(parsed.EscapedPath(), "/")
	if last := segments[len(segments)-1]; last != "" {
		return last, nil
	}
	return namegen.Generate()
}

// cancel signals the worker, marks the row Cancelled, and optionally
// removes the file and/or the row. Every step tolerates its own successful
// predecessor having already run, so a retried cancel converges.
func (m *Manager) cancel(name string, forget, del bool) error {
	if sig, ok := m.cancels[name]; ok {
		delete(m.cancels, name)
		m.inFlight.Dec()
		sig.Broadcast(types.CancelInfo{Cancel: true, Delete: del})
		if err := m.state.UpdateState(name, types.Cancelled); err != nil {
			return err
		}
		m.log.Info().Str("job", name).Bool("delete", del).Msg("job cancelled")
	}

	if del {
		info, err := m.state.Get(name)
		switch {
		case errs.Is(err, errs.DownloadJobNotFound):
			// no row to read a path from; nothing to remove
		case err != nil:
			return err
		default:
			if rmErr := removeFile(info.Path); rmErr != nil {
				return rmErr
			}
		}
	}

	if del || forget {
		if err := m.state.Delete(name); err != nil && !errs.Is(err, errs.DownloadJobNotFound) {
			return err
		}
	}
	return nil
}

// removeFile deletes path, tolerating its absence.
func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.IO, err)
	}
	return nil
}

// sweep drops cancellation senders for jobs that reached a terminal state
// on their own, reclaiming the map entry without waiting for an explicit
// cancel. Runs after every handled request.
func (m *Manager) sweep() {
	for name := range m.cancels {
		info, err := m.state.Get(name)
		if errs.Is(err, errs.DownloadJobNotFound) || (err == nil && info.State.IsTerminal()) {
			delete(m.cancels, name)
			m.inFlight.Dec()
		}
	}
}
