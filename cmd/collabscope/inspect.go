package main

import (
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/collabscope/collabscope/internal/output"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the analysis state of an exercise",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "exercise", Required: true, Usage: "Exercise id"},
		},
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

			status, err := a.machine.Status(c.Int64("exercise"))
			if err != nil {
				return err
			}

			formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), true)
			if err != nil {
				return err
			}
			defer formatter.Close()
			return formatter.Output(output.StatusTable(status))
		},
	}
}

func teamsCommand() *cli.Command {
	return &cli.Command{
		Name:  "teams",
		Usage: "List persisted per-team results of an exercise",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "exercise", Required: true, Usage: "Exercise id"},
		},
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

			teams, err := a.store.ListParticipations(c.Int64("exercise"))
			if err != nil {
				return err
			}

			formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), true)
			if err != nil {
				return err
			}
			defer formatter.Close()
			return formatter.Output(output.TeamsTable(c.Int64("exercise"), teams))
		},
	}
}

func cancelCommand() *cli.Command {
	return &cli.Command{
		Name:  "cancel",
		Usage: "Pause a running analysis; it resumes on the next analyze",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "exercise", Required: true, Usage: "Exercise id"},
		},
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

			if err := a.machine.CancelAnalysis(c.Int64("exercise")); err != nil {
				return err
			}
			color.Yellow("analysis for exercise %d paused", c.Int64("exercise"))
			return nil
		},
	}
}
