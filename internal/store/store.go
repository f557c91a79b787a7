// Package store persists analysis state, team results and analyzed chunks
// in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/collabscope/collabscope/pkg/models"
)

// Table names.
const (
	statusTable        = "analysis_status"
	participationTable = "team_participations"
	chunkTable         = "analyzed_chunks"
	emailMappingTable  = "email_mappings"
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database at %q: %w", path, err)
	}
	// Limit SQLite to a single open connection to avoid "database is
	// locked" errors under the worker pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS ` + statusTable + ` (
			exercise_id INTEGER PRIMARY KEY,
			state TEXT NOT NULL,
			total_teams INTEGER NOT NULL DEFAULT 0,
			processed_teams INTEGER NOT NULL DEFAULT 0,
			current_team_name TEXT NOT NULL DEFAULT '',
			current_stage TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP,
			last_updated_at TIMESTAMP NOT NULL,
			error_message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS ` + participationTable + ` (
			id INTEGER NOT NULL,
			exercise_id INTEGER NOT NULL,
			team_name TEXT NOT NULL,
			repository_uri TEXT NOT NULL DEFAULT '',
			students_json TEXT NOT NULL DEFAULT '[]',
			cqi REAL,
			is_suspicious INTEGER NOT NULL DEFAULT 0,
			components_json TEXT,
			analyzed_at TIMESTAMP,
			PRIMARY KEY (id, exercise_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + chunkTable + ` (
			chunk_id INTEGER NOT NULL,
			participation_id INTEGER NOT NULL,
			exercise_id INTEGER NOT NULL,
			sha TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			payload_json TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (chunk_id, participation_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + emailMappingTable + ` (
			exercise_id INTEGER NOT NULL,
			git_email TEXT NOT NULL,
			student_id INTEGER NOT NULL,
			student_name TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (exercise_id, git_email)
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// GetStatus returns the persisted status for an exercise, or nil when none
// exists yet.
func (s *Store) GetStatus(exerciseID int64) (*models.AnalysisStatus, error) {
	row := s.db.QueryRow(`SELECT exercise_id, state, total_teams, processed_teams,
		current_team_name, current_stage, started_at, last_updated_at, error_message
		FROM `+statusTable+` WHERE exercise_id = ?`, exerciseID)

	var status models.AnalysisStatus
	var startedAt sql.NullTime
	err := row.Scan(&status.ExerciseID, &status.State, &status.TotalTeams,
		&status.ProcessedTeams, &status.CurrentTeamName, &status.CurrentStage,
		&startedAt, &status.LastUpdatedAt, &status.ErrorMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		status.StartedAt = &startedAt.Time
	}
	return &status, nil
}

// SaveStatus upserts an exercise status.
func (s *Store) SaveStatus(status *models.AnalysisStatus) error {
	var startedAt any
	if status.StartedAt != nil {
		startedAt = *status.StartedAt
	}
	_, err := s.db.Exec(`INSERT INTO `+statusTable+`
		(exercise_id, state, total_teams, processed_teams, current_team_name,
		 current_stage, started_at, last_updated_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exercise_id) DO UPDATE SET
			state = excluded.state,
			total_teams = excluded.total_teams,
			processed_teams = excluded.processed_teams,
			current_team_name = excluded.current_team_name,
			current_stage = excluded.current_stage,
			started_at = excluded.started_at,
			last_updated_at = excluded.last_updated_at,
			error_message = excluded.error_message`,
		status.ExerciseID, status.State, status.TotalTeams, status.ProcessedTeams,
		status.CurrentTeamName, status.CurrentStage, startedAt,
		status.LastUpdatedAt, status.ErrorMessage)
	return err
}

// ListStatuses returns every persisted exercise status.
func (s *Store) ListStatuses() ([]models.AnalysisStatus, error) {
	rows, err := s.db.Query(`SELECT exercise_id, state, total_teams, processed_teams,
		current_team_name, current_stage, started_at, last_updated_at, error_message
		FROM ` + statusTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []models.AnalysisStatus
	for rows.Next() {
		var status models.AnalysisStatus
		var startedAt sql.NullTime
		if err := rows.Scan(&status.ExerciseID, &status.State, &status.TotalTeams,
			&status.ProcessedTeams, &status.CurrentTeamName, &status.CurrentStage,
			&startedAt, &status.LastUpdatedAt, &status.ErrorMessage); err != nil {
			return nil, err
		}
		if startedAt.Valid {
			status.StartedAt = &startedAt.Time
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

// SaveParticipation upserts a team participation with its persisted CQI.
func (s *Store) SaveParticipation(p *models.TeamParticipation) error {
	students, err := json.Marshal(p.Students)
	if err != nil {
		return err
	}
	var components any
	if p.Components != nil {
		data, err := json.Marshal(p.Components)
		if err != nil {
			return err
		}
		components = string(data)
	}
	var cqi any
	if p.CQI != nil {
		cqi = *p.CQI
	}
	var analyzedAt any
	if p.AnalyzedAt != nil {
		analyzedAt = *p.AnalyzedAt
	}

	_, err = s.db.Exec(`INSERT INTO `+participationTable+`
		(id, exercise_id, team_name, repository_uri, students_json, cqi,
		 is_suspicious, components_json, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, exercise_id) DO UPDATE SET
			team_name = excluded.team_name,
			repository_uri = excluded.repository_uri,
			students_json = excluded.students_json,
			cqi = excluded.cqi,
			is_suspicious = excluded.is_suspicious,
			components_json = excluded.components_json,
			analyzed_at = excluded.analyzed_at`,
		p.ID, p.ExerciseID, p.TeamName, p.RepositoryURI, string(students),
		cqi, boolToInt(p.IsSuspicious), components, analyzedAt)
	return err
}

// GetParticipation returns one persisted participation, or nil.
func (s *Store) GetParticipation(exerciseID, participationID int64) (*models.TeamParticipation, error) {
	row := s.db.QueryRow(`SELECT id, exercise_id, team_name, repository_uri,
		students_json, cqi, is_suspicious, components_json, analyzed_at
		FROM `+participationTable+` WHERE exercise_id = ? AND id = ?`,
		exerciseID, participationID)
	p, err := scanParticipation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListParticipations returns all persisted participations of an exercise.
func (s *Store) ListParticipations(exerciseID int64) ([]models.TeamParticipation, error) {
	rows, err := s.db.Query(`SELECT id, exercise_id, team_name, repository_uri,
		students_json, cqi, is_suspicious, components_json, analyzed_at
		FROM `+participationTable+` WHERE exercise_id = ? ORDER BY team_name`,
		exerciseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participations []models.TeamParticipation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		participations = append(participations, *p)
	}
	return participations, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipation(row rowScanner) (*models.TeamParticipation, error) {
	var p models.TeamParticipation
	var students string
	var cqi sql.NullFloat64
	var suspicious int
	var components sql.NullString
	var analyzedAt sql.NullTime

	err := row.Scan(&p.ID, &p.ExerciseID, &p.TeamName, &p.RepositoryURI,
		&students, &cqi, &suspicious, &components, &analyzedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(students), &p.Students); err != nil {
		return nil, err
	}
	if cqi.Valid {
		p.CQI = &cqi.Float64
	}
	p.IsSuspicious = suspicious != 0
	if components.Valid {
		var cs models.ComponentScores
		if err := json.Unmarshal([]byte(components.String), &cs); err != nil {
			return nil, err
		}
		p.Components = &cs
	}
	if analyzedAt.Valid {
		p.AnalyzedAt = &analyzedAt.Time
	}
	return &p, nil
}

// ReplaceChunks replaces the analyzed chunks of a participation with those
// from the latest successful run.
func (s *Store) ReplaceChunks(exerciseID, participationID int64, chunks []models.AnalyzedChunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM `+chunkTable+` WHERE participation_id = ?`, participationID); err != nil {
		return err
	}

	now := time.Now()
	for _, chunk := range chunks {
		payload, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		// xxhash-derived chunk id; stable across runs for identical chunks.
		if _, err := tx.Exec(`INSERT INTO `+chunkTable+`
			(chunk_id, participation_id, exercise_id, sha, chunk_index, payload_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			int64(chunk.ID()), participationID, exerciseID, chunk.SHA,
			chunk.ChunkIndex, string(payload), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetChunks returns the persisted chunks of a participation in commit
// order.
func (s *Store) GetChunks(participationID int64) ([]models.AnalyzedChunk, error) {
	rows, err := s.db.Query(`SELECT payload_json FROM `+chunkTable+`
		WHERE participation_id = ? ORDER BY rowid`, participationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []models.AnalyzedChunk
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var chunk models.AnalyzedChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// SaveEmailMapping upserts one git-email to student mapping.
func (s *Store) SaveEmailMapping(m *models.EmailMapping) error {
	_, err := s.db.Exec(`INSERT INTO `+emailMappingTable+`
		(exercise_id, git_email, student_id, student_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(exercise_id, git_email) DO UPDATE SET
			student_id = excluded.student_id,
			student_name = excluded.student_name`,
		m.ExerciseID, models.NormalizeEmail(m.GitEmail), m.StudentID, m.StudentName)
	return err
}

// GetEmailMappings returns the mapping table of an exercise keyed by
// normalized git email.
func (s *Store) GetEmailMappings(exerciseID int64) (map[string]models.EmailMapping, error) {
	rows, err := s.db.Query(`SELECT exercise_id, git_email, student_id, student_name
		FROM `+emailMappingTable+` WHERE exercise_id = ?`, exerciseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make(map[string]models.EmailMapping)
	for rows.Next() {
		var m models.EmailMapping
		if err := rows.Scan(&m.ExerciseID, &m.GitEmail, &m.StudentID, &m.StudentName); err != nil {
			return nil, err
		}
		mappings[m.GitEmail] = m
	}
	return mappings, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
