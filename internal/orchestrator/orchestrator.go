// Package orchestrator drives one exercise run: it fans teams out to a
// worker pool, streams incremental results to subscribers and persists
// them, with cooperative cancellation through the state machine.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/collabscope/collabscope/internal/analyzer"
	"github.com/collabscope/collabscope/internal/fanout"
	"github.com/collabscope/collabscope/internal/platform"
	"github.com/collabscope/collabscope/internal/service"
	"github.com/collabscope/collabscope/internal/state"
	"github.com/collabscope/collabscope/internal/stream"
	"github.com/collabscope/collabscope/pkg/models"
)

// Persistence is the slice of the store the orchestrator needs.
type Persistence interface {
	GetParticipation(exerciseID, participationID int64) (*models.TeamParticipation, error)
	SaveParticipation(p *models.TeamParticipation) error
	ReplaceChunks(exerciseID, participationID int64, chunks []models.AnalyzedChunk) error
	GetEmailMappings(exerciseID int64) (map[string]models.EmailMapping, error)
}

// RepoSyncer maintains local repository snapshots. Satisfied by
// *vcs.Syncer.
type RepoSyncer interface {
	CloneOrPull(ctx context.Context, repoURI string, participationID int64) (string, error)
}

// ServiceFactory builds a fairness service bound to a course schedule.
// The schedule is only known once the run has fetched it.
type ServiceFactory func(schedule *analyzer.ScheduleIndex) *service.FairnessService

// Orchestrator runs exercises.
type Orchestrator struct {
	machine    *state.Machine
	store      Persistence
	platform   platform.Client
	syncer     RepoSyncer
	newService ServiceFactory
	workers    int
}

// OrchestratorOption is a functional option for configuring Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithWorkers sets the team worker pool size.
func WithWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// New creates an orchestrator.
func New(machine *state.Machine, store Persistence, client platform.Client, syncer RepoSyncer, factory ServiceFactory, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		machine:    machine,
		store:      store,
		platform:   client,
		syncer:     syncer,
		newService: factory,
		workers:    4,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunInput identifies one exercise run.
type RunInput struct {
	Credentials platform.Credentials
	ExerciseID  int64
	CourseID    int64
}

// Run executes the exercise analysis, emitting START, UPDATE and a
// terminal DONE or ERROR on the sink. A second Run on an already-RUNNING
// exercise emits ALREADY_RUNNING and returns without double-running.
// Subscriber disconnects never abort the run.
func (o *Orchestrator) Run(ctx context.Context, in RunInput, sink stream.Sink) error {
	teams, err := o.teamsToAnalyze(ctx, in)
	if err != nil {
		return err
	}

	if err := o.machine.StartAnalysis(in.ExerciseID, len(teams)); err != nil {
		var conflict *state.StateConflictError
		if errors.As(err, &conflict) {
			o.send(sink, models.Event{Type: models.EventAlreadyRunning})
			return nil
		}
		return err
	}

	o.send(sink, models.Event{Type: models.EventStart, Total: len(teams)})

	if err := o.runTeams(ctx, in, teams, sink); err != nil {
		slog.Error("analysis failed", "exercise", in.ExerciseID, "error", err)
		if ferr := o.machine.FailAnalysis(in.ExerciseID, err.Error()); ferr != nil {
			slog.Warn("could not record failure", "exercise", in.ExerciseID, "error", ferr)
		}
		o.send(sink, models.Event{Type: models.EventError, Message: err.Error()})
		return err
	}

	// A cancel mid-run leaves the machine PAUSED; no terminal DONE then.
	if o.machine.IsRunning(in.ExerciseID) {
		if err := o.machine.CompleteAnalysis(in.ExerciseID); err != nil {
			return err
		}
		o.send(sink, models.Event{Type: models.EventDone})
	}
	return nil
}

// teamsToAnalyze fetches participations and drops those without a
// repository or with a persisted CQI from an earlier completed run.
func (o *Orchestrator) teamsToAnalyze(ctx context.Context, in RunInput) ([]models.TeamParticipation, error) {
	participations, err := o.platform.Participations(ctx, in.Credentials, in.ExerciseID)
	if err != nil {
		return nil, err
	}

	var teams []models.TeamParticipation
	for _, p := range participations {
		if p.RepositoryURI == "" {
			continue
		}
		persisted, err := o.store.GetParticipation(in.ExerciseID, p.ID)
		if err != nil {
			return nil, err
		}
		if persisted != nil && persisted.Analyzed() {
			continue
		}
		teams = append(teams, p)
	}
	return teams, nil
}

func (o *Orchestrator) runTeams(ctx context.Context, in RunInput, teams []models.TeamParticipation, sink stream.Sink) error {
	schedules, err := o.platform.Schedule(ctx, in.Credentials, in.CourseID)
	if err != nil {
		slog.Warn("schedule unavailable, pair programming will not apply", "error", err)
	}
	deadline, err := o.platform.Deadline(ctx, in.Credentials, in.ExerciseID)
	if err != nil {
		slog.Warn("deadline unavailable, using commit range", "error", err)
	}

	mappings, err := o.store.GetEmailMappings(in.ExerciseID)
	if err != nil {
		return err
	}

	svc := o.newService(analyzer.NewScheduleIndex(schedules))

	// Teams completed by an earlier, paused run stay counted; this run's
	// progress adds on top.
	baseProcessed := 0
	if status, err := o.machine.Status(in.ExerciseID); err == nil {
		baseProcessed = status.ProcessedTeams
	}

	processed := models.NewProcessedSet()
	var progressMu sync.Mutex

	advance := func(team models.TeamParticipation, stage models.AnalysisStage) {
		progressMu.Lock()
		defer progressMu.Unlock()
		count := baseProcessed + processed.Count()
		if err := o.machine.UpdateProgress(in.ExerciseID, team.TeamName, stage, count); err != nil {
			slog.Debug("progress update rejected", "team", team.TeamName, "error", err)
		}
	}

	finish := func(team models.TeamParticipation) {
		progressMu.Lock()
		defer progressMu.Unlock()
		processed.Mark(team.ID)
		if err := o.machine.UpdateProgress(in.ExerciseID, team.TeamName, models.StageDone, baseProcessed+processed.Count()); err != nil {
			slog.Debug("progress update rejected", "team", team.TeamName, "error", err)
		}
	}

	fanout.ForEach(ctx, teams, o.workers, func(ctx context.Context, team models.TeamParticipation) {
		// The state machine is the cancellation source of truth; a
		// cancelled run lets in-flight stages finish and exits here.
		if !o.machine.IsRunning(in.ExerciseID) {
			return
		}

		report, err := o.analyzeTeam(ctx, in, team, svc, deadline, mappings, advance)
		if err != nil {
			// A cancel seen between stages is not a team failure: nothing is
			// persisted, so a resumed run analyzes the team again.
			if errors.Is(err, context.Canceled) && !o.machine.IsRunning(in.ExerciseID) {
				return
			}
			slog.Error("team analysis failed", "team", team.TeamName, "error", err)
			report = service.ErrorReport(team, err)
		}

		o.persist(in.ExerciseID, team, report)
		finish(team)
		o.send(sink, models.Event{Type: models.EventUpdate, Data: report})
	})

	return nil
}

func (o *Orchestrator) analyzeTeam(ctx context.Context, in RunInput, team models.TeamParticipation, svc *service.FairnessService, deadline time.Time, mappings map[string]models.EmailMapping, advance func(models.TeamParticipation, models.AnalysisStage)) (*models.FairnessReport, error) {
	advance(team, models.StageDownloading)
	repoPath, err := o.syncer.CloneOrPull(ctx, team.RepositoryURI, team.ID)
	if err != nil {
		return nil, err
	}

	if !o.machine.IsRunning(in.ExerciseID) {
		return nil, context.Canceled
	}

	advance(team, models.StageGitAnalyzing)
	accessLog, err := o.platform.AccessLog(ctx, in.Credentials, team.ID)
	if err != nil {
		return nil, err
	}

	if !o.machine.IsRunning(in.ExerciseID) {
		return nil, context.Canceled
	}

	advance(team, models.StageAIAnalyzing)
	return svc.AnalyzeTeam(ctx, service.TeamInput{
		Participation: team,
		RepoPath:      repoPath,
		AccessLog:     accessLog,
		EmailMappings: mappings,
		ProjectEnd:    deadline,
	})
}

// persist writes the team result and its chunks; only the latest
// successful run's chunks are kept.
func (o *Orchestrator) persist(exerciseID int64, team models.TeamParticipation, report *models.FairnessReport) {
	cqi := report.CQIResult.CQI
	now := time.Now()
	team.CQI = &cqi
	team.IsSuspicious = report.RequiresManualReview
	team.Components = &report.CQIResult.Components
	team.AnalyzedAt = &now

	if err := o.store.SaveParticipation(&team); err != nil {
		slog.Error("failed to persist team result", "team", team.TeamName, "error", err)
		return
	}
	if !report.HasFlag(models.FlagAnalysisError) {
		if err := o.store.ReplaceChunks(exerciseID, team.ID, report.AnalyzedChunks); err != nil {
			slog.Error("failed to persist chunks", "team", team.TeamName, "error", err)
		}
	}
}

// send delivers an event, demoting subscriber disconnects to trace noise
// so the analysis keeps running in the background.
func (o *Orchestrator) send(sink stream.Sink, event models.Event) {
	if sink == nil {
		return
	}
	if err := sink.Send(event); err != nil {
		if stream.IsClientDisconnect(err) {
			slog.Debug("subscriber disconnected, continuing in background", "event", event.Type)
			return
		}
		slog.Warn("event delivery failed", "event", event.Type, "error", err)
	}
}
