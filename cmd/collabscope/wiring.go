package main

import (
	"time"

	"github.com/collabscope/collabscope/internal/analyzer"
	"github.com/collabscope/collabscope/internal/cache"
	"github.com/collabscope/collabscope/internal/orchestrator"
	"github.com/collabscope/collabscope/internal/platform"
	"github.com/collabscope/collabscope/internal/rater"
	"github.com/collabscope/collabscope/internal/service"
	"github.com/collabscope/collabscope/internal/state"
	"github.com/collabscope/collabscope/internal/store"
	"github.com/collabscope/collabscope/internal/vcs"
	"github.com/collabscope/collabscope/pkg/config"
)

// app bundles the wired components of one process.
type app struct {
	cfg          *config.Config
	store        *store.Store
	machine      *state.Machine
	orchestrator *orchestrator.Orchestrator
}

// buildApp wires the store, state machine and orchestrator from config.
// RecoverOnStart runs here so interrupted runs resume cleanly.
func buildApp(cfg *config.Config) (*app, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	machine := state.NewMachine(st)
	if err := machine.RecoverOnStart(); err != nil {
		st.Close()
		return nil, err
	}

	ratingCache, err := cache.New(cfg.Git.CacheDir+"/ratings", 7*24, true)
	if err != nil {
		st.Close()
		return nil, err
	}

	client := rater.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model,
		time.Duration(cfg.AI.TimeoutSec)*time.Second)
	effortRater := rater.NewEffortRater(client,
		rater.WithEnabled(cfg.AI.Enabled),
		rater.WithCache(ratingCache),
	)

	prefilter := analyzer.NewPreFilter(
		analyzer.WithGeneratedFilePatterns(cfg.PreFilter.GeneratedFilePatterns),
		analyzer.WithTrivialMessagePatterns(cfg.PreFilter.TrivialMessagePatterns),
		analyzer.WithFormatMessageTokens(cfg.PreFilter.FormatMessageTokens),
	)
	chunker := analyzer.NewCommitChunker(
		analyzer.WithMaxChunkLines(cfg.Chunker.MaxChunkLines),
		analyzer.WithBundleMaxLines(cfg.Chunker.BundleMaxLines),
		analyzer.WithBundleWindow(time.Duration(cfg.Chunker.BundleWindowMin)*time.Minute),
	)

	factory := func(schedule *analyzer.ScheduleIndex) *service.FairnessService {
		calculator := analyzer.NewCQICalculator(
			analyzer.WithWeights(analyzer.Weights{
				Effort:          cfg.CQI.Weights.Effort,
				Loc:             cfg.CQI.Weights.Loc,
				Temporal:        cfg.CQI.Weights.Temporal,
				Ownership:       cfg.CQI.Weights.Ownership,
				PairProgramming: cfg.CQI.Weights.PairProgramming,
			}),
			analyzer.WithPenaltiesEnabled(cfg.CQI.Penalties.Enabled),
			analyzer.WithScheduleIndex(schedule),
			analyzer.WithSessionsToKeep(cfg.Attendance.SessionsToKeep),
		)
		return service.New(effortRater,
			service.WithChunker(chunker),
			service.WithPreFilter(prefilter),
			service.WithCalculator(calculator),
			service.WithAIWorkers(cfg.AI.Workers),
			service.WithAIEnabled(cfg.AI.Enabled),
			service.WithModel(cfg.AI.Model),
		)
	}

	syncer := vcs.NewSyncer(cfg.Git.CacheDir, cfg.Git.Username, cfg.Git.Password)
	orch := orchestrator.New(machine, st, platform.NewHTTPClient(), syncer, factory,
		orchestrator.WithWorkers(cfg.Orchestrator.Workers))

	return &app{
		cfg:          cfg,
		store:        st,
		machine:      machine,
		orchestrator: orch,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() error {
	return a.store.Close()
}
