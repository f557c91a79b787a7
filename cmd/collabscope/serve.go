package main

import (
	"errors"
	"net/http"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/collabscope/collabscope/internal/httpapi"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the analysis HTTP API (SSE stream, status, cancel, teams)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides server.addr)"},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := cfg.Server.Addr
	if flagAddr := c.String("addr"); flagAddr != "" {
		addr = flagAddr
	}

	server := httpapi.NewServer(a.orchestrator, a.machine, a.store)
	color.Green("listening on %s", addr)

	err = http.ListenAndServe(addr, server.Handler())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
