// Package state implements the per-exercise analysis lifecycle:
// IDLE → RUNNING → {PAUSED, DONE, ERROR}, with restart-safe recovery.
package state

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/collabscope/collabscope/pkg/models"
)

// StateConflictError is returned when a transition is not in the
// lifecycle graph, e.g. starting an analysis that is already running.
type StateConflictError struct {
	ExerciseID int64
	From       models.AnalysisState
	Attempted  string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("exercise %d: cannot %s while %s", e.ExerciseID, e.Attempted, e.From)
}

// StatusStore persists analysis statuses across restarts.
type StatusStore interface {
	GetStatus(exerciseID int64) (*models.AnalysisStatus, error)
	SaveStatus(status *models.AnalysisStatus) error
	ListStatuses() ([]models.AnalysisStatus, error)
}

// Machine serializes all lifecycle transitions for every exercise. It is
// the single source of truth for cancellation: workers poll IsRunning
// between stages.
type Machine struct {
	mu    sync.Mutex
	store StatusStore
	now   func() time.Time
}

// MachineOption is a functional option for configuring Machine.
type MachineOption func(*Machine)

// WithClock substitutes the time source (useful for testing).
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) {
		m.now = now
	}
}

// NewMachine creates a state machine over the given store.
func NewMachine(store StatusStore, opts ...MachineOption) *Machine {
	m := &Machine{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RecoverOnStart promotes every persisted RUNNING analysis to PAUSED,
// preserving its progress, so work resumes on the next StartAnalysis
// without re-doing completed teams. Call once at process start.
func (m *Machine) RecoverOnStart() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses, err := m.store.ListStatuses()
	if err != nil {
		return err
	}
	for i := range statuses {
		if statuses[i].State != models.StateRunning {
			continue
		}
		statuses[i].State = models.StatePaused
		statuses[i].LastUpdatedAt = m.now()
		if err := m.store.SaveStatus(&statuses[i]); err != nil {
			return err
		}
		slog.Info("recovered interrupted analysis",
			"exercise", statuses[i].ExerciseID,
			"processed", statuses[i].ProcessedTeams,
			"total", statuses[i].TotalTeams)
	}
	return nil
}

// StartAnalysis begins or resumes an analysis. A RUNNING exercise yields
// a StateConflictError; PAUSED flips back to RUNNING keeping its
// counters; anything else starts fresh.
func (m *Machine) StartAnalysis(exerciseID int64, totalTeams int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.load(exerciseID)
	if err != nil {
		return err
	}

	switch status.State {
	case models.StateRunning:
		return &StateConflictError{ExerciseID: exerciseID, From: status.State, Attempted: "start"}
	case models.StatePaused:
		// Resume: the new total is the remainder plus what already ran.
		status.State = models.StateRunning
		status.TotalTeams = status.ProcessedTeams + totalTeams
	default:
		started := m.now()
		status.State = models.StateRunning
		status.TotalTeams = totalTeams
		status.ProcessedTeams = 0
		status.StartedAt = &started
		status.ErrorMessage = ""
	}
	status.LastUpdatedAt = m.now()
	return m.store.SaveStatus(status)
}

// UpdateProgress records per-team progress. Valid only while RUNNING.
func (m *Machine) UpdateProgress(exerciseID int64, teamName string, stage models.AnalysisStage, processed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.load(exerciseID)
	if err != nil {
		return err
	}
	if status.State != models.StateRunning {
		return &StateConflictError{ExerciseID: exerciseID, From: status.State, Attempted: "update progress"}
	}

	status.CurrentTeamName = teamName
	status.CurrentStage = stage
	status.ProcessedTeams = processed
	status.LastUpdatedAt = m.now()
	return m.store.SaveStatus(status)
}

// PauseAnalysis transitions RUNNING to PAUSED, preserving progress.
func (m *Machine) PauseAnalysis(exerciseID int64) error {
	return m.toPaused(exerciseID, "pause")
}

// CancelAnalysis is the idempotent cancel entry point; like pause, it
// lands on PAUSED so the exercise can resume later.
func (m *Machine) CancelAnalysis(exerciseID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.load(exerciseID)
	if err != nil {
		return err
	}
	if status.State != models.StateRunning {
		// Already paused, done or never started; cancel is a no-op.
		return nil
	}
	status.State = models.StatePaused
	status.LastUpdatedAt = m.now()
	return m.store.SaveStatus(status)
}

func (m *Machine) toPaused(exerciseID int64, attempted string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.load(exerciseID)
	if err != nil {
		return err
	}
	if status.State != models.StateRunning {
		return &StateConflictError{ExerciseID: exerciseID, From: status.State, Attempted: attempted}
	}
	status.State = models.StatePaused
	status.LastUpdatedAt = m.now()
	return m.store.SaveStatus(status)
}

// CompleteAnalysis transitions RUNNING to DONE.
func (m *Machine) CompleteAnalysis(exerciseID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.load(exerciseID)
	if err != nil {
		return err
	}
	if status.State != models.StateRunning {
		return &StateConflictError{ExerciseID: exerciseID, From: status.State, Attempted: "complete"}
	}
	status.State = models.StateDone
	status.CurrentTeamName = ""
	status.CurrentStage = ""
	status.LastUpdatedAt = m.now()
	return m.store.SaveStatus(status)
}

// FailAnalysis transitions RUNNING to ERROR with a message.
func (m *Machine) FailAnalysis(exerciseID int64, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.load(exerciseID)
	if err != nil {
		return err
	}
	if status.State != models.StateRunning {
		return &StateConflictError{ExerciseID: exerciseID, From: status.State, Attempted: "fail"}
	}
	status.State = models.StateError
	status.ErrorMessage = message
	status.LastUpdatedAt = m.now()
	return m.store.SaveStatus(status)
}

// Reset returns a finished, paused or failed analysis to IDLE.
func (m *Machine) Reset(exerciseID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.load(exerciseID)
	if err != nil {
		return err
	}
	if status.State == models.StateRunning {
		return &StateConflictError{ExerciseID: exerciseID, From: status.State, Attempted: "reset"}
	}
	status.State = models.StateIdle
	status.TotalTeams = 0
	status.ProcessedTeams = 0
	status.CurrentTeamName = ""
	status.CurrentStage = ""
	status.StartedAt = nil
	status.ErrorMessage = ""
	status.LastUpdatedAt = m.now()
	return m.store.SaveStatus(status)
}

// IsRunning reports whether the exercise is currently RUNNING. Workers
// poll this between stages to observe cancellation.
func (m *Machine) IsRunning(exerciseID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.load(exerciseID)
	if err != nil {
		return false
	}
	return status.State == models.StateRunning
}

// Status returns a copy of the exercise's status snapshot.
func (m *Machine) Status(exerciseID int64) (models.AnalysisStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.load(exerciseID)
	if err != nil {
		return models.AnalysisStatus{}, err
	}
	return *status, nil
}

// load fetches the persisted status or initializes an IDLE one.
func (m *Machine) load(exerciseID int64) (*models.AnalysisStatus, error) {
	status, err := m.store.GetStatus(exerciseID)
	if err != nil {
		return nil, err
	}
	if status == nil {
		status = &models.AnalysisStatus{
			ExerciseID:    exerciseID,
			State:         models.StateIdle,
			LastUpdatedAt: m.now(),
		}
	}
	return status, nil
}
