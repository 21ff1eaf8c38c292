package schedule

import (
	"context"
	"math/rand"
	"testing"

	"github.com/matchplay/tournament-engine/models"
)

func TestBracketSize(t *testing.T) {
	cases := []struct{ teams, size int }{
		{1, 2}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {8, 8}, {9, 16}, {16, 16}, {17, 32}, {33, 64},
	}
	for _, tc := range cases {
		if got := BracketSize(tc.teams); got != tc.size {
			t.Errorf("BracketSize(%d) = %d, want %d", tc.teams, got, tc.size)
		}
	}
}

func TestStageForBracketSize(t *testing.T) {
	cases := []struct {
		size  int
		stage models.PlayoffStage
	}{
		{2, models.StageFinal},
		{4, models.StageSemiFinal},
		{8, models.StageQuarterFinal},
		{16, models.StageRoundOf16},
		{32, models.StageRoundOf32},
		{64, models.StageRoundOf64},
		{128, models.StageRoundOf64},
	}
	for _, tc := range cases {
		if got := StageForBracketSize(tc.size); got != tc.stage {
			t.Errorf("StageForBracketSize(%d) = %s, want %s", tc.size, got, tc.stage)
		}
	}
}

func generateBracket(t *testing.T, teamCount int, seed int64) []*GeneratedMatch {
	t.Helper()
	gen := NewSeededSingleEliminationGenerator(rand.New(rand.NewSource(seed)))
	matches, err := gen.GenerateMatches(context.Background(), GenerateParams{
		Tournament: &models.Tournament{Format: models.FormatPlayoff},
		Teams:      makeTeams(teamCount),
	})
	if err != nil {
		t.Fatalf("generate bracket for %d teams: %v", teamCount, err)
	}
	return matches
}

func TestSingleEliminationRejectsTooFewTeams(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	if _, err := gen.GenerateMatches(context.Background(), GenerateParams{
		Teams: makeTeams(1),
	}); err == nil {
		t.Fatal("expected an error for a single team")
	}
}

func TestSingleEliminationTwoTeams(t *testing.T) {
	matches := generateBracket(t, 2, 1)
	if len(matches) != 1 {
		t.Fatalf("match count = %d, want 1", len(matches))
	}
	m := matches[0]
	if m.Stage != models.StageFinal {
		t.Fatalf("stage = %s, want FINAL", m.Stage)
	}
	if m.IsBye || *m.HomeTeamID == *m.AwayTeamID {
		t.Fatal("two teams must meet directly in the final")
	}
}

func TestSingleEliminationFiveTeams(t *testing.T) {
	matches := generateBracket(t, 5, 42)

	// bracket size 8: four first-round slots, three byes
	var firstRound, byes, secondRound int
	for _, m := range matches {
		switch m.Round {
		case 1:
			firstRound++
			if m.IsBye {
				byes++
				if *m.HomeTeamID != *m.AwayTeamID {
					t.Fatalf("bye %s does not reference a single team", m.UID)
				}
			}
			if m.Stage != models.StageQuarterFinal {
				t.Fatalf("first round stage = %s, want QUARTER_FINAL", m.Stage)
			}
		case 2:
			secondRound++
		}
	}
	if firstRound != 4 {
		t.Fatalf("first round matches = %d, want 4", firstRound)
	}
	if byes != 3 {
		t.Fatalf("byes = %d, want 3", byes)
	}
	// byes occupy positions 0 and 1, so their semifinal exists up front
	if secondRound != 1 {
		t.Fatalf("eagerly created second round matches = %d, want 1", secondRound)
	}

	// every team is seeded exactly once in round 1
	seeded := make(map[int]int)
	for _, m := range matches {
		if m.Round != 1 {
			continue
		}
		seeded[*m.HomeTeamID]++
		if !m.IsBye {
			seeded[*m.AwayTeamID]++
		}
	}
	if len(seeded) != 5 {
		t.Fatalf("seeded teams = %d, want 5", len(seeded))
	}
	for id, count := range seeded {
		if count != 1 {
			t.Errorf("team %d seeded %d times", id, count)
		}
	}
}

func TestSingleEliminationByePairResolution(t *testing.T) {
	matches := generateBracket(t, 5, 7)

	byUID := make(map[string]*GeneratedMatch, len(matches))
	for _, m := range matches {
		byUID[m.UID] = m
	}

	next, ok := byUID["SE_R2_P0"]
	if !ok {
		t.Fatal("adjacent byes at positions 0 and 1 must create their next match eagerly")
	}
	a, b := byUID["SE_R1_P0"], byUID["SE_R1_P1"]
	if a == nil || b == nil || !a.IsBye || !b.IsBye {
		t.Fatal("positions 0 and 1 must be byes for a 5-team draw")
	}

	if *next.HomeTeamID != *a.HomeTeamID || *next.AwayTeamID != *b.HomeTeamID {
		t.Fatal("eager next match must pair the two bye winners, first bye at home")
	}
	if a.NextUID == nil || *a.NextUID != next.UID || a.WinnerToHome == nil || !*a.WinnerToHome {
		t.Fatal("first bye must link to the next match's home slot")
	}
	if b.NextUID == nil || *b.NextUID != next.UID || b.WinnerToHome == nil || *b.WinnerToHome {
		t.Fatal("second bye must link to the next match's away slot")
	}

	// the lone bye at position 2 only reserves its future slot
	c := byUID["SE_R1_P2"]
	if c == nil || !c.IsBye {
		t.Fatal("position 2 must be the third bye")
	}
	if c.NextUID != nil {
		t.Fatal("a bye paired with a real match must not pre-create the next match")
	}
	if c.WinnerToHome == nil || !*c.WinnerToHome {
		t.Fatal("the even-position bye must reserve the home slot")
	}
}

func TestSingleEliminationDrawIsSeedDependent(t *testing.T) {
	a := generateBracket(t, 8, 1)
	b := generateBracket(t, 8, 2)

	same := true
	for i := range a {
		if *a[i].HomeTeamID != *b[i].HomeTeamID || *a[i].AwayTeamID != *b[i].AwayTeamID {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced an identical draw")
	}

	// same seed reproduces the draw
	c := generateBracket(t, 8, 1)
	for i := range a {
		if *a[i].HomeTeamID != *c[i].HomeTeamID || *a[i].AwayTeamID != *c[i].AwayTeamID {
			t.Fatal("equal seeds produced different draws")
		}
	}
}
