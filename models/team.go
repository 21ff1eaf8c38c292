package models

import "time"

// Team is one participant's entry in a single tournament.
// A participant can own at most one team per tournament.
type Team struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	OwnerID      int       `json:"owner_id" db:"owner_id"`
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	Owner *User `json:"owner,omitempty" db:"-"`
}
