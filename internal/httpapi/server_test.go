package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/collabscope/collabscope/internal/state"
	"github.com/collabscope/collabscope/pkg/models"
)

type memStatusStore struct {
	mu       sync.Mutex
	statuses map[int64]models.AnalysisStatus
}

func (s *memStatusStore) GetStatus(exerciseID int64) (*models.AnalysisStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[exerciseID]
	if !ok {
		return nil, nil
	}
	copied := status
	return &copied, nil
}

func (s *memStatusStore) SaveStatus(status *models.AnalysisStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.ExerciseID] = *status
	return nil
}

func (s *memStatusStore) ListStatuses() ([]models.AnalysisStatus, error) {
	return nil, nil
}

type memTeams struct {
	teams []models.TeamParticipation
}

func (m *memTeams) ListParticipations(exerciseID int64) ([]models.TeamParticipation, error) {
	return m.teams, nil
}

func newTestServer(t *testing.T) (*Server, *state.Machine) {
	machine := state.NewMachine(&memStatusStore{statuses: make(map[int64]models.AnalysisStatus)})
	cqi := 81.0
	teams := &memTeams{teams: []models.TeamParticipation{
		{ID: 1, ExerciseID: 7, TeamName: "Team Alpha", CQI: &cqi},
	}}
	return NewServer(nil, machine, teams), machine
}

func TestStatusEndpoint(t *testing.T) {
	server, machine := newTestServer(t)
	machine.StartAnalysis(7, 4)

	req := httptest.NewRequest(http.MethodGet, "/analysis/status/7", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status models.AnalysisStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.State != models.StateRunning || status.TotalTeams != 4 {
		t.Errorf("status = %+v", status)
	}
}

func TestCancelEndpointIdempotent(t *testing.T) {
	server, machine := newTestServer(t)
	machine.StartAnalysis(7, 4)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/analysis/7/cancel", nil)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("cancel attempt %d: status = %d", i, rec.Code)
		}
	}

	status, _ := machine.Status(7)
	if status.State != models.StatePaused {
		t.Errorf("state = %s, want PAUSED", status.State)
	}
}

func TestTeamsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/analysis/7/teams", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var teams []models.TeamParticipation
	if err := json.Unmarshal(rec.Body.Bytes(), &teams); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(teams) != 1 || teams[0].TeamName != "Team Alpha" {
		t.Errorf("teams = %+v", teams)
	}
}

func TestStatusEndpointRejectsBadID(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/analysis/status/nope", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStreamRequiresCredentials(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/analysis/stream?exerciseId=7", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without cookies", rec.Code)
	}
}
