package manager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/omarelawady/godownload/internal/errs"
	"github.com/omarelawady/godownload/internal/metrics"
	"github.com/omarelawady/godownload/internal/state"
	"github.com/omarelawady/godownload/internal/store"
	"github.com/omarelawady/godownload/internal/types"
	"github.com/omarelawady/godownload/internal/worker"
)

type harness struct {
	mgr    *Manager
	client *Client
	state  *state.Client
	queue  chan worker.DownloadJob
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	actor := state.NewActor(st, zerolog.Nop())
	go actor.Run()
	stateClient := actor.Client()

	queue := make(chan worker.DownloadJob, 16)
	mgr := New(stateClient, queue, dir, zerolog.Nop(), metrics.New())
	go mgr.Run()

	return &harness{mgr: mgr, client: mgr.Client(), state: stateClient, queue: queue, dir: dir}
}

func TestAddDerivesNameFromURL(t *testing.T) {
	h := newHarness(t)

	info, err := h.client.Add("http://host/path/file.bin", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if info.Name != "file.bin" {
		t.Errorf("name = %q, want %q", info.Name, "file.bin")
	}
	if info.State != types.Pending {
		t.Errorf("state = %v, want Pending", info.State)
	}
	if info.Path != filepath.Join(h.dir, "file.bin") {
		t.Errorf("path = %q, want under downloads dir", info.Path)
	}

	persisted, err := h.state.Get("file.bin")
	if err != nil {
		t.Fatalf("get persisted: %v", err)
	}
	if persisted != info {
		t.Errorf("persisted %+v, want %+v", persisted, info)
	}

	select {
	case job := <-h.queue:
		if job.Name != "file.bin" || job.URL != "http://host/path/file.bin" {
			t.Errorf("queued job = %+v", job)
		}
		if job.Cancel == nil || job.Cancel.Get().Cancel {
			t.Error("queued job's cancel signal not in initial state")
		}
	default:
		t.Fatal("no job on the worker queue after add")
	}
}

func TestAddExplicitName(t *testing.T) {
	h := newHarness(t)

	info, err := h.client.Add("http://host/file.bin", "mydownload")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if info.Name != "mydownload" {
		t.Errorf("name = %q, want %q", info.Name, "mydownload")
	}
}

func TestAddGeneratesNameForBareURL(t *testing.T) {
	h := newHarness(t)

	for _, u := range []string{"http://host", "http://host/", "http://host/some/dir/"} {
		info, err := h.client.Add(u, "")
		if err != nil {
			t.Fatalf("add %s: %v", u, err)
		}
		if len(info.Name) != 7 {
			t.Errorf("generated name %q for %s, want 7 chars", info.Name, u)
		}
	}
}

func TestAddInvalidURL(t *testing.T) {
	h := newHarness(t)

	for _, u := range []string{"not a url at all \x7f", "relative/path"} {
		_, err := h.client.Add(u, "")
		if !errs.Is(err, errs.InvalidAddress) {
			t.Errorf("Add(%q) = %v, want InvalidAddress", u, err)
		}
	}
	if list, _ := h.state.List(); len(list) != 0 {
		t.Errorf("store has %d rows after rejected adds, want 0", len(list))
	}
}

func TestAddDuplicateName(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Add("http://host/a.zip", ""); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := h.client.Add("http://host/a.zip", "")
	if !errs.Is(err, errs.DownloadJobNameAlreadyExist) {
		t.Errorf("second add = %v, want DownloadJobNameAlreadyExist", err)
	}
	list, err := h.client.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len(list) = %d, want 1", len(list))
	}
}

func TestInfoAndList(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Add("http://host/a", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	info, err := h.client.Info("a")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.URL != "http://host/a" {
		t.Errorf("info = %+v", info)
	}
	if _, err := h.client.Info("missing"); !errs.Is(err, errs.DownloadJobNotFound) {
		t.Errorf("Info(missing) = %v, want DownloadJobNotFound", err)
	}
}

func TestCancelKeepsFileAndRow(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Add("http://host/a", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	job := <-h.queue

	if err := h.client.Cancel("a", false, false); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if c := job.Cancel.Get(); !c.Cancel || c.Delete {
		t.Errorf("broadcast = %+v, want {Cancel:true Delete:false}", c)
	}
	info, err := h.state.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if info.State != types.Cancelled {
		t.Errorf("state = %v, want Cancelled", info.State)
	}
	if h.mgr.InFlight() != 0 {
		t.Errorf("InFlight = %d after cancel, want 0", h.mgr.InFlight())
	}
}

func TestCancelForgetRemovesRow(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Add("http://host/a", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	<-h.queue

	if err := h.client.Cancel("a", true, false); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := h.state.Get("a"); !errs.Is(err, errs.DownloadJobNotFound) {
		t.Errorf("Get after forget = %v, want DownloadJobNotFound", err)
	}
}

func TestCancelDeleteRemovesFileAndRow(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Add("http://host/a", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	job := <-h.queue

	// Simulate a worker having written some bytes.
	path := filepath.Join(h.dir, "a")
	if err := os.WriteFile(path, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := h.client.Cancel("a", false, true); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if c := job.Cancel.Get(); !c.Cancel || !c.Delete {
		t.Errorf("broadcast = %+v, want {Cancel:true Delete:true}", c)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still present after cancel-delete (stat err %v)", err)
	}
	if _, err := h.state.Get("a"); !errs.Is(err, errs.DownloadJobNotFound) {
		t.Errorf("Get after delete = %v, want DownloadJobNotFound", err)
	}
}

func TestCancelDeleteToleratesMissingFile(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Add("http://host/a", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	<-h.queue

	if err := h.client.Cancel("a", false, true); err != nil {
		t.Errorf("cancel with missing file: %v, want nil", err)
	}
}

func TestCancelUnknownJobIsNoop(t *testing.T) {
	h := newHarness(t)

	if err := h.client.Cancel("nothere", false, false); err != nil {
		t.Errorf("cancel unknown = %v, want nil", err)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Add("http://host/a", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	<-h.queue

	if err := h.client.Cancel("a", true, true); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if err := h.client.Cancel("a", true, true); err != nil {
		t.Errorf("retried cancel: %v, want nil", err)
	}
}

func TestSweepReclaimsTerminalJobs(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Add("http://host/a", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	<-h.queue
	if h.mgr.InFlight() != 1 {
		t.Fatalf("InFlight = %d, want 1", h.mgr.InFlight())
	}

	// The job finishes on its own, without an explicit cancel.
	if err := h.state.UpdateState("a", types.Done); err != nil {
		t.Fatalf("update state: %v", err)
	}
	// Any handled request triggers the sweep.
	if _, err := h.client.List(); err != nil {
		t.Fatalf("list: %v", err)
	}
	if h.mgr.InFlight() != 0 {
		t.Errorf("InFlight = %d after sweep, want 0", h.mgr.InFlight())
	}
}

func TestReplayRequeuesActiveJobs(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	actor := state.NewActor(st, zerolog.Nop())
	go actor.Run()
	stateClient := actor.Client()

	rows := []types.JobInfo{
		{Name: "active1", URL: "http://host/active1", Path: filepath.Join(dir, "active1"), State: types.Active},
		{Name: "active2", URL: "http://host/active2", Path: filepath.Join(dir, "active2"), State: types.Active},
		{Name: "done", URL: "http://host/done", Path: filepath.Join(dir, "done"), State: types.Done},
		{Name: "pending", URL: "http://host/pending", Path: filepath.Join(dir, "pending"), State: types.Pending},
	}
	for _, r := range rows {
		if err := stateClient.Update(r); err != nil {
			t.Fatalf("seed %s: %v", r.Name, err)
		}
	}

	queue := make(chan worker.DownloadJob, 16)
	mgr := New(stateClient, queue, dir, zerolog.Nop(), metrics.New())
	mgr.Replay()

	replayed := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case job := <-queue:
			replayed[job.Name] = true
		default:
			t.Fatalf("only %d jobs replayed, want 2", i)
		}
	}
	if !replayed["active1"] || !replayed["active2"] {
		t.Errorf("replayed = %v, want active1 and active2", replayed)
	}
	select {
	case job := <-queue:
		t.Errorf("unexpected extra replayed job %q", job.Name)
	default:
	}
	if mgr.InFlight() != 2 {
		t.Errorf("InFlight = %d after replay, want 2", mgr.InFlight())
	}
}
