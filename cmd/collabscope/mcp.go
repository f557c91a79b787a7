package main

import (
	"github.com/urfave/cli/v2"

	"github.com/collabscope/collabscope/internal/mcpserver"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve persisted analysis results over MCP (stdio)",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return mcpserver.NewServer(version, a.machine, a.store).Run(c.Context)
		},
	}
}
