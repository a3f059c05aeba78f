package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/omarelawady/godownload/internal/apiclient"
	"github.com/omarelawady/godownload/internal/types"
)

var listCommand = cli.Command{
	Name:   "list",
	Usage:  "list every job known to the daemon",
	Action: listHandler,
}

var addCommand = cli.Command{
	Name:      "add",
	Usage:     "submit a new download",
	ArgsUsage: "URL [NAME]",
	Action:    addHandler,
}

var infoCommand = cli.Command{
	Name:      "info",
	Usage:     "show one job's details",
	ArgsUsage: "NAME",
	Action:    infoHandler,
}

var cancelCommand = cli.Command{
	Name:      "cancel",
	Usage:     "cancel a job",
	ArgsUsage: "NAME",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "forget, f", Usage: "also remove the job's row once cancelled"},
		cli.BoolFlag{Name: "delete, d", Usage: "also remove the downloaded file (implies --forget)"},
	},
	Action: cancelHandler,
}

func listHandler(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	list, err := apiclient.New(cfg.Addr).List()
	if err != nil {
		return err
	}
	for _, info := range list {
		fmt.Println(formatListLine(info))
	}
	return nil
}

func formatListLine(info types.JobInfo) string {
	if info.Total == 0 {
		return fmt.Sprintf("- %s: [%s] [%d]", info.Name, info.State, info.Downloaded)
	}
	return fmt.Sprintf("- %s: [%s] [%d/%d]", info.Name, info.State, info.Downloaded, info.Total)
}

func addHandler(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("usage: downloadmanager add URL [NAME]", 1)
	}
	url := c.Args().Get(0)
	name := c.Args().Get(1)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if _, err := apiclient.New(cfg.Addr).Add(url, name); err != nil {
		fmt.Println(err.Error())
		return cli.NewExitError("", 1)
	}
	fmt.Println("ok")
	return nil
}

func infoHandler(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("usage: downloadmanager info NAME", 1)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	info, err := apiclient.New(cfg.Addr).Info(c.Args().Get(0))
	if err != nil {
		fmt.Println(err.Error())
		return cli.NewExitError("", 1)
	}
	fmt.Printf("name: %s\n", info.Name)
	fmt.Printf("url: %s\n", info.URL)
	fmt.Printf("path: %s\n", info.Path)
	fmt.Printf("downloaded: %d\n", info.Downloaded)
	if info.Total != 0 {
		fmt.Printf("total: %d\n", info.Total)
	}
	fmt.Printf("state: %s\n", info.State)
	if info.Msg != "" {
		fmt.Printf("msg: %s\n", info.Msg)
	}
	return nil
}

func cancelHandler(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("usage: downloadmanager cancel NAME [-f] [-d]", 1)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	name := c.Args().Get(0)
	if err := apiclient.New(cfg.Addr).Cancel(name, c.Bool("forget"), c.Bool("delete")); err != nil {
		fmt.Println(err.Error())
		return cli.NewExitError("", 1)
	}
	fmt.Println("ok")
	return nil
}
