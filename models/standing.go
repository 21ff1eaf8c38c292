package models

// TeamStanding is a derived row of a league table or a bracket placement
// report. It is recomputed from the match set on demand and never persisted.
type TeamStanding struct {
	TeamID         int `json:"team_id"`
	Played         int `json:"played"`
	Wins           int `json:"wins"`
	Draws          int `json:"draws"`
	Losses         int `json:"losses"`
	GoalsFor       int `json:"goals_for"`
	GoalsAgainst   int `json:"goals_against"`
	GoalDifference int `json:"goal_difference"`
	Points         int `json:"points"`
	Position       int `json:"position"`

	Team *Team `json:"team,omitempty"`
}
