package services

import (
	"sort"

	"github.com/matchplay/tournament-engine/models"
)

// CalculateStandings folds every completed, non-bye match with both scores
// set into per-team tallies and orders them: points desc, goal difference
// desc, goals-for desc. Teams with equal tuples keep their input order
// (stable sort); there is no head-to-head comparison.
func CalculateStandings(teams []*models.Team, matches []*models.Match) []models.TeamStanding {
	standings := make([]models.TeamStanding, 0, len(teams))
	index := make(map[int]*models.TeamStanding, len(teams))
	for _, team := range teams {
		standings = append(standings, models.TeamStanding{TeamID: team.ID, Team: team})
		index[team.ID] = &standings[len(standings)-1]
	}

	for _, match := range matches {
		if match.IsBye || !match.State.Decided() || !match.HasScores() {
			continue
		}
		home := index[match.HomeTeamID]
		away := index[match.AwayTeamID]
		if home == nil || away == nil {
			continue
		}

		homeGoals, awayGoals := *match.HomeScore, *match.AwayScore

		home.Played++
		away.Played++
		home.GoalsFor += homeGoals
		home.GoalsAgainst += awayGoals
		away.GoalsFor += awayGoals
		away.GoalsAgainst += homeGoals

		switch {
		case homeGoals > awayGoals:
			home.Wins++
			home.Points += 3
			away.Losses++
		case awayGoals > homeGoals:
			away.Wins++
			away.Points += 3
			home.Losses++
		default:
			home.Draws++
			away.Draws++
			home.Points++
			away.Points++
		}
	}

	for i := range standings {
		standings[i].GoalDifference = standings[i].GoalsFor - standings[i].GoalsAgainst
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return a.GoalDifference > b.GoalDifference
		}
		return a.GoalsFor > b.GoalsFor
	})

	for i := range standings {
		standings[i].Position = i + 1
	}

	return standings
}
