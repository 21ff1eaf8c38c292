package models

import "time"

// TournamentFormat matches the ENUM in the DB.
type TournamentFormat string

const (
	FormatLeague  TournamentFormat = "LEAGUE"
	FormatPlayoff TournamentFormat = "PLAYOFF"
)

func (f TournamentFormat) Valid() bool {
	return f == FormatLeague || f == FormatPlayoff
}

type TournamentStatus string

const (
	TournamentCreated      TournamentStatus = "CREATED"
	TournamentRegistration TournamentStatus = "REGISTRATION"
	TournamentStarted      TournamentStatus = "STARTED"
	TournamentInProgress   TournamentStatus = "IN_PROGRESS"
	TournamentFinished     TournamentStatus = "FINISHED"
	TournamentCancelled    TournamentStatus = "CANCELLED"
)

// statusOrder drives the forward-only transition rule.
var statusOrder = map[TournamentStatus]int{
	TournamentCreated:      0,
	TournamentRegistration: 1,
	TournamentStarted:      2,
	TournamentInProgress:   3,
	TournamentFinished:     4,
}

func (s TournamentStatus) Valid() bool {
	if s == TournamentCancelled {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

func (s TournamentStatus) Terminal() bool {
	return s == TournamentFinished || s == TournamentCancelled
}

// CanTransitionTo permits only forward movement through the lifecycle.
// CANCELLED is reachable from any non-terminal status and is terminal.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == TournamentCancelled {
		return true
	}
	from, okFrom := statusOrder[s]
	to, okTo := statusOrder[next]
	return okFrom && okTo && to > from
}

type Tournament struct {
	ID             int              `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Format         TournamentFormat `json:"format" db:"format"`
	Status         TournamentStatus `json:"status" db:"status"`
	RoundsCount    int              `json:"rounds_count" db:"rounds_count"`
	OrganizerID    int              `json:"organizer_id" db:"organizer_id"`
	WinnerTeamID   *int             `json:"winner_team_id,omitempty" db:"winner_team_id"`
	RunnerUpTeamID *int             `json:"runner_up_team_id,omitempty" db:"runner_up_team_id"`
	IsActive       bool             `json:"is_active" db:"is_active"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`

	// Optional linked entities, populated by services.
	Organizer *User  `json:"organizer,omitempty" db:"-"`
	Teams     []Team `json:"teams,omitempty" db:"-"`
	Matches   []Match `json:"matches,omitempty" db:"-"`
}

func (t *Tournament) IsLeague() bool {
	return t.Format == FormatLeague
}

func (t *Tournament) IsPlayoff() bool {
	return t.Format == FormatPlayoff
}

// AcceptsResults reports whether match results may be submitted or reviewed.
func (t *Tournament) AcceptsResults() bool {
	return t.Status == TournamentStarted || t.Status == TournamentInProgress
}
