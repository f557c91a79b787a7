// Package httpapi exposes the analysis pipeline over HTTP: a live SSE
// stream, status reads, cancellation and persisted team results.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/collabscope/collabscope/internal/orchestrator"
	"github.com/collabscope/collabscope/internal/platform"
	"github.com/collabscope/collabscope/internal/state"
	"github.com/collabscope/collabscope/internal/stream"
	"github.com/collabscope/collabscope/pkg/models"
)

// TeamReader is the slice of the store the read endpoints need.
type TeamReader interface {
	ListParticipations(exerciseID int64) ([]models.TeamParticipation, error)
}

// Server wires the HTTP handlers.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	machine      *state.Machine
	teams        TeamReader
}

// NewServer creates the HTTP server facade.
func NewServer(o *orchestrator.Orchestrator, machine *state.Machine, teams TeamReader) *Server {
	return &Server{orchestrator: o, machine: machine, teams: teams}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /analysis/stream", s.handleStream)
	mux.HandleFunc("GET /analysis/status/{exerciseID}", s.handleStatus)
	mux.HandleFunc("POST /analysis/{exerciseID}/cancel", s.handleCancel)
	// "GET /analysis/{exerciseID}/teams" would overlap the status route
	// (both match /analysis/status/teams) with neither more specific, which
	// ServeMux rejects; the teams route takes a wildcard last segment and
	// handleTeams answers 404 for anything but "teams".
	mux.HandleFunc("GET /analysis/{exerciseID}/{resource}", s.handleTeams)
	return mux
}

// handleStream starts (or joins) an exercise analysis and streams events
// until it finishes. The analysis itself survives client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	exerciseID, err := strconv.ParseInt(r.URL.Query().Get("exerciseId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid exerciseId", http.StatusBadRequest)
		return
	}
	courseID, _ := strconv.ParseInt(r.URL.Query().Get("courseId"), 10, 64)

	creds, err := credentialsFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	sink, err := stream.NewSSESink(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Detach from the request context: closing the connection must not
	// cancel the analysis. The state machine remains the only way to stop
	// a run.
	runCtx := context.WithoutCancel(r.Context())

	err = s.orchestrator.Run(runCtx, orchestrator.RunInput{
		Credentials: creds,
		ExerciseID:  exerciseID,
		CourseID:    courseID,
	}, sink)
	if err != nil {
		slog.Error("stream run failed", "exercise", exerciseID, "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	exerciseID, ok := pathID(w, r)
	if !ok {
		return
	}
	status, err := s.machine.Status(exerciseID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, status)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	exerciseID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.machine.CancelAnalysis(exerciseID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("resource") != "teams" {
		http.NotFound(w, r)
		return
	}
	exerciseID, ok := pathID(w, r)
	if !ok {
		return
	}
	teams, err := s.teams.ListParticipations(exerciseID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, teams)
}

// credentialsFromRequest extracts the platform credentials transported as
// cookies. Password decryption is the credential service's concern; this
// layer only forwards the JWT.
func credentialsFromRequest(r *http.Request) (platform.Credentials, error) {
	serverURL, err := r.Cookie("serverUrl")
	if err != nil {
		return platform.Credentials{}, err
	}
	jwt, err := r.Cookie("jwt")
	if err != nil {
		return platform.Credentials{}, err
	}
	return platform.Credentials{BaseURL: serverURL.Value, JWT: jwt.Value}, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("exerciseID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid exercise id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response write failed", "error", err)
	}
}
