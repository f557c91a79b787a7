package models

import "time"

// AnalysisState is the lifecycle state of an exercise analysis.
type AnalysisState string

// Analysis lifecycle states.
const (
	StateIdle    AnalysisState = "IDLE"
	StateRunning AnalysisState = "RUNNING"
	StatePaused  AnalysisState = "PAUSED"
	StateDone    AnalysisState = "DONE"
	StateError   AnalysisState = "ERROR"
)

// AnalysisStage labels the orchestrator-visible step a team is in.
type AnalysisStage string

// Per-team pipeline stages.
const (
	StageDownloading  AnalysisStage = "DOWNLOADING"
	StageGitAnalyzing AnalysisStage = "GIT_ANALYZING"
	StageAIAnalyzing  AnalysisStage = "AI_ANALYZING"
	StageDone         AnalysisStage = "DONE"
)

// AnalysisStatus is the per-exercise progress snapshot.
type AnalysisStatus struct {
	ExerciseID      int64         `json:"exercise_id"`
	State           AnalysisState `json:"state"`
	TotalTeams      int           `json:"total_teams"`
	ProcessedTeams  int           `json:"processed_teams"`
	CurrentTeamName string        `json:"current_team_name,omitempty"`
	CurrentStage    AnalysisStage `json:"current_stage,omitempty"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	LastUpdatedAt   time.Time     `json:"last_updated_at"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

// EventType identifies a streamed pipeline event.
type EventType string

// Streamed event types.
const (
	EventStart          EventType = "START"
	EventUpdate         EventType = "UPDATE"
	EventDone           EventType = "DONE"
	EventError          EventType = "ERROR"
	EventAlreadyRunning EventType = "ALREADY_RUNNING"
)

// Event is one message on the streaming sink.
type Event struct {
	Type    EventType       `json:"type"`
	Total   int             `json:"total,omitempty"`
	Data    *FairnessReport `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}
