package schedule

import (
	"context"
	"fmt"
	"testing"

	"github.com/matchplay/tournament-engine/models"
)

func makeTeams(n int) []*models.Team {
	teams := make([]*models.Team, 0, n)
	for i := 1; i <= n; i++ {
		teams = append(teams, &models.Team{ID: i, Name: fmt.Sprintf("team-%d", i)})
	}
	return teams
}

func generateRoundRobin(t *testing.T, teamCount, roundsCount int) []*GeneratedMatch {
	t.Helper()
	gen := NewRoundRobinGenerator()
	matches, err := gen.GenerateMatches(context.Background(), GenerateParams{
		Tournament: &models.Tournament{Format: models.FormatLeague, RoundsCount: roundsCount},
		Teams:      makeTeams(teamCount),
	})
	if err != nil {
		t.Fatalf("generate %d teams, %d cycles: %v", teamCount, roundsCount, err)
	}
	return matches
}

func TestRoundRobinRejectsTooFewTeams(t *testing.T) {
	gen := NewRoundRobinGenerator()
	if _, err := gen.GenerateMatches(context.Background(), GenerateParams{
		Tournament: &models.Tournament{RoundsCount: 1},
		Teams:      makeTeams(1),
	}); err == nil {
		t.Fatal("expected an error for a single team")
	}
}

func TestRoundRobinMatchCounts(t *testing.T) {
	for teamCount := 2; teamCount <= 8; teamCount++ {
		for _, cycles := range []int{1, 2} {
			matches := generateRoundRobin(t, teamCount, cycles)

			wantPlayed := teamCount * (teamCount - 1) / 2 * cycles
			played := 0
			for _, m := range matches {
				if !m.IsBye {
					played++
				}
			}
			if played != wantPlayed {
				t.Errorf("%d teams, %d cycles: %d played matches, want %d", teamCount, cycles, played, wantPlayed)
			}
		}
	}
}

func TestRoundRobinEveryPairMeetsOncePerCycle(t *testing.T) {
	const teamCount = 6
	matches := generateRoundRobin(t, teamCount, 1)

	seen := make(map[[2]int]int)
	for _, m := range matches {
		if m.IsBye {
			continue
		}
		home, away := *m.HomeTeamID, *m.AwayTeamID
		if home == away {
			t.Fatalf("match %s pairs team %d with itself", m.UID, home)
		}
		key := [2]int{home, away}
		if home > away {
			key = [2]int{away, home}
		}
		seen[key]++
	}
	for pair, count := range seen {
		if count != 1 {
			t.Errorf("pair %v met %d times, want 1", pair, count)
		}
	}
	if len(seen) != teamCount*(teamCount-1)/2 {
		t.Errorf("distinct pairs = %d, want %d", len(seen), teamCount*(teamCount-1)/2)
	}
}

func TestRoundRobinNoTeamPlaysTwicePerRound(t *testing.T) {
	matches := generateRoundRobin(t, 7, 2)

	byRound := make(map[int]map[int]bool)
	for _, m := range matches {
		if byRound[m.Round] == nil {
			byRound[m.Round] = make(map[int]bool)
		}
		ids := []int{*m.HomeTeamID}
		if !m.IsBye {
			ids = append(ids, *m.AwayTeamID)
		}
		for _, id := range ids {
			if byRound[m.Round][id] {
				t.Fatalf("team %d appears twice in round %d", id, m.Round)
			}
			byRound[m.Round][id] = true
		}
	}
}

func TestRoundRobinOddTeamCountGetsByes(t *testing.T) {
	const teamCount = 5
	matches := generateRoundRobin(t, teamCount, 1)

	byes := make(map[int]int)
	for _, m := range matches {
		if !m.IsBye {
			continue
		}
		if *m.HomeTeamID != *m.AwayTeamID {
			t.Fatalf("bye %s does not reference a single team", m.UID)
		}
		byes[*m.HomeTeamID]++
	}
	if len(byes) != teamCount {
		t.Fatalf("%d teams got byes, want all %d", len(byes), teamCount)
	}
	for id, count := range byes {
		if count != 1 {
			t.Errorf("team %d got %d byes, want 1", id, count)
		}
	}
}

func TestRoundRobinSecondCycleSwapsHomeAndAway(t *testing.T) {
	const teamCount = 4
	matches := generateRoundRobin(t, teamCount, 2)

	cycleRounds := teamCount - 1
	type meeting struct{ home, away int }
	first := make(map[[2]int]meeting)
	for _, m := range matches {
		if m.IsBye || m.Round > cycleRounds {
			continue
		}
		home, away := *m.HomeTeamID, *m.AwayTeamID
		key := [2]int{home, away}
		if home > away {
			key = [2]int{away, home}
		}
		first[key] = meeting{home, away}
	}

	for _, m := range matches {
		if m.IsBye || m.Round <= cycleRounds {
			continue
		}
		home, away := *m.HomeTeamID, *m.AwayTeamID
		key := [2]int{home, away}
		if home > away {
			key = [2]int{away, home}
		}
		prev, ok := first[key]
		if !ok {
			t.Fatalf("pair %v only meets in the second cycle", key)
		}
		if prev.home != away || prev.away != home {
			t.Errorf("pair %v: first cycle %d vs %d, second cycle %d vs %d; home and away must swap",
				key, prev.home, prev.away, home, away)
		}
	}
}

func TestRoundRobinPivotStaysHomeWithinCycle(t *testing.T) {
	matches := generateRoundRobin(t, 6, 1)

	// the fixed team of the rotation keeps the home slot all cycle
	for _, m := range matches {
		if m.IsBye {
			continue
		}
		if *m.AwayTeamID == 1 {
			t.Fatalf("fixed team plays away in round %d", m.Round)
		}
	}
}

func TestRoundRobinRoundNumbersAreContiguous(t *testing.T) {
	matches := generateRoundRobin(t, 5, 2)

	rounds := make(map[int]bool)
	for _, m := range matches {
		rounds[m.Round] = true
	}
	// odd team count: a full cycle takes teamCount rounds
	wantRounds := 5 * 2
	for r := 1; r <= wantRounds; r++ {
		if !rounds[r] {
			t.Errorf("round %d has no matches", r)
		}
	}
	if len(rounds) != wantRounds {
		t.Errorf("distinct rounds = %d, want %d", len(rounds), wantRounds)
	}
}
