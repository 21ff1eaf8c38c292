package schedule

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/matchplay/tournament-engine/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() MatchGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateMatches produces the full fixture list with the circle method:
// one team stays fixed while the rest rotate by one position per round.
// An odd team count gets a sentinel bye slot; whoever is paired with it
// receives a bye match that round. A second cycle repeats every round with
// home and away swapped and round numbers offset by a whole cycle.
func (g *RoundRobinGenerator) GenerateMatches(ctx context.Context, params GenerateParams) ([]*GeneratedMatch, error) {
	teams := params.Teams
	if len(teams) < 2 {
		return nil, fmt.Errorf("RoundRobinGenerator: not enough teams (found %d, min 2 required)", len(teams))
	}

	cycles := 1
	if params.Tournament != nil && params.Tournament.RoundsCount == 2 {
		cycles = 2
	}

	cycleRounds := len(teams) - 1
	if len(teams)%2 == 1 {
		cycleRounds = len(teams)
	}

	matches := make([]*GeneratedMatch, 0, len(teams)*(len(teams)-1)/2*cycles)

	for cycle := 0; cycle < cycles; cycle++ {
		// nil is the bye sentinel
		working := make([]*models.Team, 0, len(teams)+1)
		for i := range teams {
			working = append(working, teams[i])
		}
		if len(working)%2 == 1 {
			working = append(working, nil)
		}

		swapHomeAway := cycle%2 == 1

		for round := 0; round < cycleRounds; round++ {
			absRound := cycle*cycleRounds + round + 1
			position := 0

			for i := 0; i < len(working)/2; i++ {
				left := working[i]
				right := working[len(working)-1-i]

				if left == nil && right == nil {
					continue
				}
				if left == nil || right == nil {
					present := left
					if present == nil {
						present = right
					}
					matches = append(matches, byeMatch(present, absRound, position))
					position++
					continue
				}
				if left.ID == right.ID {
					// construction error guard, must never pair a team with itself
					log.Printf("round robin: skipping self-pairing for team %d in round %d", left.ID, absRound)
					continue
				}

				home, away := left, right
				if swapHomeAway {
					home, away = away, home
				}

				homeID, awayID := home.ID, away.ID
				matches = append(matches, &GeneratedMatch{
					UID:        fmt.Sprintf("RR_R%d_P%d", absRound, position),
					Round:      absRound,
					Position:   position,
					HomeTeamID: &homeID,
					AwayTeamID: &awayID,
				})
				position++
			}

			rotate(working)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].Position < matches[j].Position
	})

	return matches, nil
}

func byeMatch(team *models.Team, round, position int) *GeneratedMatch {
	id := team.ID
	return &GeneratedMatch{
		UID:        fmt.Sprintf("RR_R%d_P%d_BYE", round, position),
		Round:      round,
		Position:   position,
		HomeTeamID: &id,
		AwayTeamID: &id,
		IsBye:      true,
	}
}

// rotate keeps slot 0 fixed and moves everyone else one step clockwise.
func rotate(teams []*models.Team) {
	if len(teams) <= 2 {
		return
	}
	last := teams[len(teams)-1]
	copy(teams[2:], teams[1:len(teams)-1])
	teams[1] = last
}
