package schedule

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/matchplay/tournament-engine/models"
)

// BracketSize returns the smallest power of two that fits teamCount,
// never below 2.
func BracketSize(teamCount int) int {
	size := 2
	for size < teamCount {
		size <<= 1
	}
	return size
}

// StageForBracketSize derives the starting stage from the bracket size.
// Sizes beyond 64 fall back to ROUND_OF_64.
func StageForBracketSize(size int) models.PlayoffStage {
	switch size {
	case 2:
		return models.StageFinal
	case 4:
		return models.StageSemiFinal
	case 8:
		return models.StageQuarterFinal
	case 16:
		return models.StageRoundOf16
	case 32:
		return models.StageRoundOf32
	default:
		return models.StageRoundOf64
	}
}

type SingleEliminationGenerator struct {
	rnd *rand.Rand
}

func NewSingleEliminationGenerator() MatchGenerator {
	return &SingleEliminationGenerator{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSeededSingleEliminationGenerator fixes the seeding order, used by tests.
func NewSeededSingleEliminationGenerator(rnd *rand.Rand) MatchGenerator {
	return &SingleEliminationGenerator{rnd: rnd}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateMatches builds the first bracket round. Teams are shuffled for a
// uniform random draw, the first byeCount slots become bye matches and the
// rest pair two real teams. Later rounds are materialized on demand by
// winner propagation, with one exception: when two adjacent bye matches
// would meet, their second-round match is created immediately; a lone bye
// only records which slot of the future sibling match its winner takes.
func (g *SingleEliminationGenerator) GenerateMatches(ctx context.Context, params GenerateParams) ([]*GeneratedMatch, error) {
	teams := params.Teams
	n := len(teams)
	if n < 2 {
		return nil, errors.New("not enough teams to generate a single elimination bracket (minimum 2)")
	}

	shuffled := make([]*models.Team, n)
	copy(shuffled, teams)
	g.rnd.Shuffle(n, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	size := BracketSize(n)
	byeCount := size - n
	firstRoundCount := size / 2
	stage := StageForBracketSize(size)

	firstRound := make([]*GeneratedMatch, 0, firstRoundCount)
	teamIdx := 0

	for pos := 0; pos < firstRoundCount; pos++ {
		if pos < byeCount {
			id := shuffled[teamIdx].ID
			teamIdx++
			firstRound = append(firstRound, &GeneratedMatch{
				UID:        fmt.Sprintf("SE_R1_P%d", pos),
				Round:      1,
				Position:   pos,
				Stage:      stage,
				HomeTeamID: &id,
				AwayTeamID: &id,
				IsBye:      true,
			})
			continue
		}
		homeID := shuffled[teamIdx].ID
		awayID := shuffled[teamIdx+1].ID
		teamIdx += 2
		firstRound = append(firstRound, &GeneratedMatch{
			UID:        fmt.Sprintf("SE_R1_P%d", pos),
			Round:      1,
			Position:   pos,
			Stage:      stage,
			HomeTeamID: &homeID,
			AwayTeamID: &awayID,
		})
	}

	matches := append([]*GeneratedMatch(nil), firstRound...)

	// Resolve adjacent bye pairs eagerly: both walkover winners are known,
	// so their second-round match can exist right away.
	nextStage, hasNext := stage.Next()
	if hasNext {
		for i := 0; i+1 < len(firstRound); i += 2 {
			a, b := firstRound[i], firstRound[i+1]
			switch {
			case a.IsBye && b.IsBye:
				next := &GeneratedMatch{
					UID:        fmt.Sprintf("SE_R2_P%d", i/2),
					Round:      2,
					Position:   i / 2,
					Stage:      nextStage,
					HomeTeamID: a.HomeTeamID,
					AwayTeamID: b.HomeTeamID,
				}
				linkToNext(a, next, true)
				linkToNext(b, next, false)
				matches = append(matches, next)
			case a.IsBye:
				toHome := true
				a.WinnerToHome = &toHome
			case b.IsBye:
				toHome := false
				b.WinnerToHome = &toHome
			}
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

func linkToNext(m, next *GeneratedMatch, toHome bool) {
	uid := next.UID
	m.NextUID = &uid
	m.WinnerToHome = &toHome
}
