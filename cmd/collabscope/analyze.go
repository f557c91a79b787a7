package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/collabscope/collabscope/internal/orchestrator"
	"github.com/collabscope/collabscope/internal/output"
	"github.com/collabscope/collabscope/internal/platform"
	"github.com/collabscope/collabscope/internal/progress"
	"github.com/collabscope/collabscope/internal/stream"
	"github.com/collabscope/collabscope/pkg/models"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Run the collaboration analysis for one exercise",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "exercise", Required: true, Usage: "Exercise id"},
			&cli.Int64Flag{Name: "course", Usage: "Course id (for the session schedule)"},
			&cli.StringFlag{Name: "server-url", Required: true, Usage: "Exercise platform base URL", EnvVars: []string{"COLLABSCOPE_SERVER_URL"}},
			&cli.StringFlag{Name: "jwt", Required: true, Usage: "Platform JWT", EnvVars: []string{"COLLABSCOPE_JWT"}},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sink := stream.NewChannelSink(256)
	done := make(chan error, 1)
	go func() {
		done <- a.orchestrator.Run(c.Context, orchestrator.RunInput{
			Credentials: platform.Credentials{
				BaseURL: c.String("server-url"),
				JWT:     c.String("jwt"),
			},
			ExerciseID: c.Int64("exercise"),
			CourseID:   c.Int64("course"),
		}, sink)
		sink.Close()
	}()

	var tracker *progress.Tracker
	for event := range sink.Events() {
		switch event.Type {
		case models.EventStart:
			tracker = progress.NewTracker("analyzing teams", event.Total)
		case models.EventUpdate:
			if tracker != nil {
				tracker.Tick()
			}
			if c.Bool("verbose") && event.Data != nil {
				fmt.Printf("  %s: CQI %.1f\n", event.Data.TeamName, event.Data.CQIResult.CQI)
			}
		case models.EventAlreadyRunning:
			color.Yellow("analysis already running for exercise %d", c.Int64("exercise"))
		case models.EventError:
			if tracker != nil {
				tracker.FinishError(fmt.Errorf("%s", event.Message))
			}
		case models.EventDone:
			if tracker != nil {
				tracker.FinishSuccess()
			}
		}
	}

	if err := <-done; err != nil {
		return err
	}

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
}
