// Package platform talks to the exercise platform's REST API:
// participations, VCS access logs, tutorial schedules and deadlines.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/collabscope/collabscope/pkg/models"
)

// ExternalAPIError wraps a platform API failure.
type ExternalAPIError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *ExternalAPIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("platform %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("platform %s: status %d", e.Endpoint, e.StatusCode)
}

func (e *ExternalAPIError) Unwrap() error {
	return e.Err
}

// Credentials carries the per-request base URL and JWT cookie.
type Credentials struct {
	BaseURL string
	JWT     string
}

// Client is the read-only exercise platform API surface the orchestrator
// needs. Tests substitute fakes.
type Client interface {
	// Participations lists the team participations of an exercise.
	Participations(ctx context.Context, creds Credentials, exerciseID int64) ([]models.TeamParticipation, error)
	// AccessLog returns the VCS access-log entries of a participation,
	// filtered to repository write actions.
	AccessLog(ctx context.Context, creds Credentials, participationID int64) ([]models.AccessLogEntry, error)
	// Schedule returns the tutorial session schedule of a course.
	Schedule(ctx context.Context, creds Credentials, courseID int64) ([]models.TeamSchedule, error)
	// Deadline returns the submission deadline of an exercise.
	Deadline(ctx context.Context, creds Credentials, exerciseID int64) (time.Time, error)
}

// HTTPClient implements Client against the live REST API.
type HTTPClient struct {
	httpClient *http.Client
}

// NewHTTPClient creates a platform client.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// Write actions that mark a log entry as a push to the repository.
var writeActions = map[string]bool{
	"WRITE": true,
	"PUSH":  true,
}

type participationDTO struct {
	ID            int64  `json:"id"`
	RepositoryURI string `json:"repositoryUri"`
	Team          struct {
		Name     string `json:"name"`
		Students []struct {
			ID    int64  `json:"id"`
			Name  string `json:"name"`
			Login string `json:"login"`
			Email string `json:"email"`
		} `json:"students"`
	} `json:"team"`
}

// Participations lists the team participations of an exercise.
func (c *HTTPClient) Participations(ctx context.Context, creds Credentials, exerciseID int64) ([]models.TeamParticipation, error) {
	endpoint := fmt.Sprintf("/api/exercises/%d/participations", exerciseID)

	var dtos []participationDTO
	if err := c.getJSON(ctx, creds, endpoint, &dtos); err != nil {
		return nil, err
	}

	participations := make([]models.TeamParticipation, 0, len(dtos))
	for _, dto := range dtos {
		p := models.TeamParticipation{
			ID:            dto.ID,
			ExerciseID:    exerciseID,
			TeamName:      dto.Team.Name,
			RepositoryURI: dto.RepositoryURI,
		}
		for _, s := range dto.Team.Students {
			p.Students = append(p.Students, models.Student{
				ID:    s.ID,
				Name:  s.Name,
				Login: s.Login,
				Email: s.Email,
			})
		}
		participations = append(participations, p)
	}
	return participations, nil
}

type accessLogDTO struct {
	CommitHash string    `json:"commitHash"`
	UserID     int64     `json:"userId"`
	Email      string    `json:"email"`
	Action     string    `json:"repositoryActionType"`
	Timestamp  time.Time `json:"timestamp"`
}

// AccessLog returns the write-action access-log entries of a
// participation.
func (c *HTTPClient) AccessLog(ctx context.Context, creds Credentials, participationID int64) ([]models.AccessLogEntry, error) {
	endpoint := fmt.Sprintf("/api/participations/%d/vcs-access-log", participationID)

	var dtos []accessLogDTO
	if err := c.getJSON(ctx, creds, endpoint, &dtos); err != nil {
		return nil, err
	}

	var entries []models.AccessLogEntry
	for _, dto := range dtos {
		if !writeActions[strings.ToUpper(dto.Action)] {
			continue
		}
		entries = append(entries, models.AccessLogEntry{
			CommitSHA: dto.CommitHash,
			UserID:    dto.UserID,
			Email:     dto.Email,
			Timestamp: dto.Timestamp,
		})
	}
	return entries, nil
}

type scheduleDTO struct {
	TeamName string `json:"teamName"`
	Sessions []struct {
		Date     time.Time `json:"date"`
		IsPaired bool      `json:"bothPresent"`
	} `json:"sessions"`
}

// Schedule returns the tutorial session schedule of a course.
func (c *HTTPClient) Schedule(ctx context.Context, creds Credentials, courseID int64) ([]models.TeamSchedule, error) {
	endpoint := fmt.Sprintf("/api/courses/%d/tutorial-sessions", courseID)

	var dtos []scheduleDTO
	if err := c.getJSON(ctx, creds, endpoint, &dtos); err != nil {
		return nil, err
	}

	schedules := make([]models.TeamSchedule, 0, len(dtos))
	for _, dto := range dtos {
		schedule := models.TeamSchedule{TeamName: dto.TeamName}
		for _, s := range dto.Sessions {
			schedule.Sessions = append(schedule.Sessions, models.ScheduleSession{
				Date:     s.Date,
				IsPaired: s.IsPaired,
			})
		}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

type exerciseDTO struct {
	DueDate time.Time `json:"dueDate"`
}

// Deadline returns the submission deadline of an exercise.
func (c *HTTPClient) Deadline(ctx context.Context, creds Credentials, exerciseID int64) (time.Time, error) {
	endpoint := fmt.Sprintf("/api/exercises/%d", exerciseID)

	var dto exerciseDTO
	if err := c.getJSON(ctx, creds, endpoint, &dto); err != nil {
		return time.Time{}, err
	}
	return dto.DueDate, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, creds Credentials, endpoint string, out any) error {
	url := strings.TrimRight(creds.BaseURL, "/") + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &ExternalAPIError{Endpoint: endpoint, Err: err}
	}
	req.AddCookie(&http.Cookie{Name: "jwt", Value: creds.JWT})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ExternalAPIError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &ExternalAPIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ExternalAPIError{Endpoint: endpoint, Err: err}
	}
	return nil
}
