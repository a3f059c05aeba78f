// Command downloadmanager is the daemon + CLI binary. With no subcommand
// it runs the daemon (state actor, worker pool, manager, REST server).
// Its subcommands (list/add/info/cancel) are a thin client talking to a
// running daemon's REST adapter.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli"

	"github.com/omarelawady/godownload/internal/config"
	"github.com/omarelawady/godownload/internal/logging"
	"github.com/omarelawady/godownload/internal/manager"
	"github.com/omarelawady/godownload/internal/metrics"
	"github.com/omarelawady/godownload/internal/rest"
	"github.com/omarelawady/godownload/internal/state"
	"github.com/omarelawady/godownload/internal/store"
	"github.com/omarelawady/godownload/internal/worker"
)

func main() {
	app := cli.NewApp()
	app.Name = "downloadmanager"
	app.Usage = "persistent multi-worker HTTP download manager"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "addr", Value: "127.0.0.1:8000", Usage: "listen address for the daemon / target for the CLI"},
		cli.IntFlag{Name: "workers", Value: 5, Usage: "number of concurrent download workers"},
		cli.StringFlag{Name: "downloads", Value: "~/Downloads", Usage: "directory downloaded files are written to"},
		cli.StringFlag{Name: "database", Value: "/tmp/downloads.db", Usage: "path to the sqlite job database"},
		cli.BoolFlag{Name: "debug", Usage: "console-pretty, debug-level logging"},
	}
	app.Action = runDaemon
	app.Commands = []cli.Command{
		listCommand,
		addCommand,
		infoCommand,
		cancelCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the app-level flags. The Global accessors resolve them
// both from the root context (daemon mode) and from inside a subcommand.
func loadConfig(c *cli.Context) (config.Config, error) {
	return config.Load(config.Overrides{
		Addr:            c.GlobalString("addr"),
		AddrSet:         c.GlobalIsSet("addr"),
		Workers:         c.GlobalInt("workers"),
		WorkersSet:      c.GlobalIsSet("workers"),
		DownloadsDir:    c.GlobalString("downloads"),
		DownloadsDirSet: c.GlobalIsSet("downloads"),
		DatabasePath:    c.GlobalString("database"),
		DatabasePathSet: c.GlobalIsSet("database"),
	})
}

// runDaemon is app.Action: invoked when downloadmanager is run with no
// subcommand. It wires the state actor, worker pool, and manager together,
// replays active jobs, and serves the REST adapter until the process is
// killed.
func runDaemon(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logging.New(c.GlobalBool("debug"))

	if err := os.MkdirAll(cfg.DownloadsDir, 0o755); err != nil {
		return fmt.Errorf("create downloads dir: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()

	actor := state.NewActor(st, log)
	go actor.Run()
	stateClient := actor.Client()

	pool := worker.NewPool(cfg.Workers, stateClient, log, m)
	pool.Run()

	mgr := manager.New(stateClient, pool.Queue(), cfg.DownloadsDir, log, m)
	mgr.Replay()
	go mgr.Run()

	router := rest.New(mgr.Client(), m, log)
	log.Info().Str("addr", cfg.Addr).Int("workers", cfg.Workers).Msg("downloadmanager listening")
	return http.ListenAndServe(cfg.Addr, router)
}
