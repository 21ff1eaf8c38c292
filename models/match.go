package models

import "time"

// MatchState tracks the result-approval lifecycle of a single match.
type MatchState string

const (
	MatchCreated         MatchState = "CREATED"
	MatchPendingApproval MatchState = "PENDING_APPROVAL"
	MatchPendingPenalty  MatchState = "PENDING_PENALTY"
	MatchApproved        MatchState = "APPROVED"
	MatchRejected        MatchState = "REJECTED"
)

// A regulation draw awaiting its shootout may still be rejected, which
// discards the submitted result before any penalty scores are recorded.
var matchTransitions = map[MatchState][]MatchState{
	MatchCreated:         {MatchPendingApproval},
	MatchPendingApproval: {MatchApproved, MatchPendingPenalty, MatchRejected},
	MatchPendingPenalty:  {MatchApproved, MatchRejected},
	MatchRejected:        {MatchCreated},
	MatchApproved:        {},
}

func (s MatchState) CanTransitionTo(next MatchState) bool {
	for _, allowed := range matchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s MatchState) Decided() bool {
	return s == MatchApproved
}

// PlayoffStage names a tier of a single-elimination bracket.
// League matches carry an empty stage.
type PlayoffStage string

const (
	StageRoundOf64    PlayoffStage = "ROUND_OF_64"
	StageRoundOf32    PlayoffStage = "ROUND_OF_32"
	StageRoundOf16    PlayoffStage = "ROUND_OF_16"
	StageQuarterFinal PlayoffStage = "QUARTER_FINAL"
	StageSemiFinal    PlayoffStage = "SEMI_FINAL"
	StageFinal        PlayoffStage = "FINAL"
	StageThirdPlace   PlayoffStage = "THIRD_PLACE"
)

var stageSuccessor = map[PlayoffStage]PlayoffStage{
	StageRoundOf64:    StageRoundOf32,
	StageRoundOf32:    StageRoundOf16,
	StageRoundOf16:    StageQuarterFinal,
	StageQuarterFinal: StageSemiFinal,
	StageSemiFinal:    StageFinal,
}

// Next returns the stage a winner advances into. The final and the
// third-place match have no successor.
func (s PlayoffStage) Next() (PlayoffStage, bool) {
	next, ok := stageSuccessor[s]
	return next, ok
}

type Match struct {
	ID           int          `json:"id" db:"id"`
	TournamentID int          `json:"tournament_id" db:"tournament_id"`
	HomeTeamID   int          `json:"home_team_id" db:"home_team_id"`
	AwayTeamID   int          `json:"away_team_id" db:"away_team_id"`
	Round        int          `json:"round" db:"round"`
	Stage        PlayoffStage `json:"stage,omitempty" db:"stage"`
	BracketPos   int          `json:"bracket_pos" db:"bracket_pos"`

	HomeScore          *int `json:"home_score,omitempty" db:"home_score"`
	AwayScore          *int `json:"away_score,omitempty" db:"away_score"`
	HomePenaltyScore   *int `json:"home_penalty_score,omitempty" db:"home_penalty_score"`
	AwayPenaltyScore   *int `json:"away_penalty_score,omitempty" db:"away_penalty_score"`
	DecidedByPenalties bool `json:"decided_by_penalties" db:"decided_by_penalties"`
	IsBye              bool `json:"is_bye" db:"is_bye"`

	State MatchState `json:"state" db:"state"`

	// ResultID is the match's side of the match<->result link. Both sides
	// are independently nullable and must be cleared before a result row
	// is deleted during rejection.
	ResultID *int `json:"result_id,omitempty" db:"result_id"`

	// NextMatchID links a playoff match to the match its winner feeds into.
	// WinnerToHome records which slot of that match the winner occupies; it
	// may be set before NextMatchID when the sibling match is still pending.
	NextMatchID  *int  `json:"next_match_id,omitempty" db:"next_match_id"`
	WinnerToHome *bool `json:"winner_to_home,omitempty" db:"winner_to_home"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	HomeTeam *Team        `json:"home_team,omitempty" db:"-"`
	AwayTeam *Team        `json:"away_team,omitempty" db:"-"`
	Result   *MatchResult `json:"result,omitempty" db:"-"`
}

// SiblingPos computes the bracket position of the partner match whose
// winner meets this match's winner in the next round.
func (m *Match) SiblingPos() int {
	return m.BracketPos ^ 1
}

// HasScores reports whether both regulation scores are set.
func (m *Match) HasScores() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// WinnerTeamID returns the advancing team, or false when the match is
// not decided. A regulation draw only yields a winner once penalties
// are recorded; it is never guessed.
func (m *Match) WinnerTeamID() (int, bool) {
	if !m.State.Decided() || !m.HasScores() {
		return 0, false
	}
	if m.IsBye {
		return m.HomeTeamID, true
	}
	switch {
	case *m.HomeScore > *m.AwayScore:
		return m.HomeTeamID, true
	case *m.AwayScore > *m.HomeScore:
		return m.AwayTeamID, true
	}
	if m.DecidedByPenalties && m.HomePenaltyScore != nil && m.AwayPenaltyScore != nil {
		if *m.HomePenaltyScore > *m.AwayPenaltyScore {
			return m.HomeTeamID, true
		}
		return m.AwayTeamID, true
	}
	return 0, false
}

// LoserTeamID returns the eliminated team. Bye matches have no loser.
func (m *Match) LoserTeamID() (int, bool) {
	winner, ok := m.WinnerTeamID()
	if !ok || m.IsBye {
		return 0, false
	}
	if winner == m.HomeTeamID {
		return m.AwayTeamID, true
	}
	return m.HomeTeamID, true
}
