package schedule

import (
	"context"

	"github.com/matchplay/tournament-engine/models"
)

// GeneratedMatch is the persistence-agnostic output of a generator.
// Matches reference each other by UID; the orchestrator resolves UIDs to
// database ids after the insert pass.
type GeneratedMatch struct {
	UID      string
	Round    int
	Position int
	Stage    models.PlayoffStage

	HomeTeamID *int
	AwayTeamID *int

	// IsBye marks a walkover slot: home and away reference the same team
	// and the match is persisted already approved with a 0-0 score.
	IsBye bool

	// NextUID links to the match this one's winner feeds into, when that
	// match is part of the same generation batch. WinnerToHome may be set
	// without NextUID when the destination match does not exist yet.
	NextUID      *string
	WinnerToHome *bool
}

type GenerateParams struct {
	Tournament *models.Tournament
	Teams      []*models.Team
}

type MatchGenerator interface {
	GenerateMatches(ctx context.Context, params GenerateParams) ([]*GeneratedMatch, error)

	GetName() string
}
