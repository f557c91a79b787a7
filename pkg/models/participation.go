package models

import "time"

// Student is a registered member of a team.
type Student struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Login string `json:"login,omitempty"`
	Email string `json:"email"`
}

// TeamParticipation ties a team to an exercise and its repository.
type TeamParticipation struct {
	ID            int64     `json:"id"`
	ExerciseID    int64     `json:"exercise_id"`
	TeamName      string    `json:"team_name"`
	RepositoryURI string    `json:"repository_uri,omitempty"`
	Students      []Student `json:"students,omitempty"`
	CQI           *float64  `json:"cqi,omitempty"` // nil until a run completes
	IsSuspicious  bool      `json:"is_suspicious"`
	Components    *ComponentScores `json:"components,omitempty"`
	AnalyzedAt    *time.Time `json:"analyzed_at,omitempty"`
}

// Analyzed reports whether a prior run persisted a CQI for this team.
func (p *TeamParticipation) Analyzed() bool {
	return p.CQI != nil
}

// MemberEmails returns the lower-cased, trimmed member email set.
func (p *TeamParticipation) MemberEmails() map[string]int64 {
	emails := make(map[string]int64, len(p.Students))
	for _, s := range p.Students {
		emails[NormalizeEmail(s.Email)] = s.ID
	}
	return emails
}

// EmailMapping converts an unknown git email into a registered student.
type EmailMapping struct {
	ExerciseID  int64  `json:"exercise_id"`
	GitEmail    string `json:"git_email"`
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
}

// AccessLogEntry is one VCS access-log row from the exercise platform,
// already filtered to repository write actions.
type AccessLogEntry struct {
	CommitSHA string    `json:"commit_sha"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ScheduleSession is one scheduled class meeting.
type ScheduleSession struct {
	Date     time.Time `json:"date"`
	IsPaired bool      `json:"is_paired"` // both members physically present
}

// TeamSchedule is the attendance schedule for one team.
type TeamSchedule struct {
	TeamName string            `json:"team_name"`
	Sessions []ScheduleSession `json:"sessions"`
}

// PairedDates returns the dates of sessions both members attended.
func (s *TeamSchedule) PairedDates() []time.Time {
	var dates []time.Time
	for _, sess := range s.Sessions {
		if sess.IsPaired {
			dates = append(dates, sess.Date)
		}
	}
	return dates
}

// ClassDates returns all session dates.
func (s *TeamSchedule) ClassDates() []time.Time {
	dates := make([]time.Time, 0, len(s.Sessions))
	for _, sess := range s.Sessions {
		dates = append(dates, sess.Date)
	}
	return dates
}
