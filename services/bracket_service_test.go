package services

import (
	"context"
	"errors"
	"testing"

	"github.com/matchplay/tournament-engine/models"
)

func approvedMatch(m *models.Match, home, away int) *models.Match {
	m.HomeScore = &home
	m.AwayScore = &away
	m.State = models.MatchApproved
	return m
}

func TestPropagateWinnerUndetermined(t *testing.T) {
	env := newTestEnv()
	fx := newSemisFixture(t, env)

	err := env.bracket.PropagateWinner(context.Background(), env.mustGetMatch(t, fx.semi0.ID))
	if !errors.Is(err, ErrWinnerUndetermined) {
		t.Fatalf("expected ErrWinnerUndetermined for an open match, got %v", err)
	}
}

func TestPropagateWinnerWaitsForSibling(t *testing.T) {
	env := newTestEnv()
	fx := newSemisFixture(t, env)
	ctx := context.Background()

	two, one := 2, 1
	if err := env.matches.UpdateScores(ctx, nil, fx.semi0.ID, &two, &one, models.MatchApproved); err != nil {
		t.Fatal(err)
	}
	if err := env.bracket.PropagateWinner(ctx, env.mustGetMatch(t, fx.semi0.ID)); err != nil {
		t.Fatalf("propagate: %v", err)
	}

	// no final yet, only the slot reservation
	semi := env.mustGetMatch(t, fx.semi0.ID)
	if semi.NextMatchID != nil {
		t.Fatal("next match must not exist while the sibling is open")
	}
	if semi.WinnerToHome == nil || !*semi.WinnerToHome {
		t.Fatal("even bracket position must reserve the home slot")
	}
	if env.matches.count() != 2 {
		t.Fatalf("match count = %d, want 2", env.matches.count())
	}
}

func TestPropagateWinnerFillsEagerNextMatch(t *testing.T) {
	env := newTestEnv()
	fx := newSemisFixture(t, env)
	ctx := context.Background()

	// pre-created next-round match with only the away slot settled,
	// the shape produced for a first-round bye pair
	final := env.addMatch(t, &models.Match{
		TournamentID: fx.tournament.ID,
		HomeTeamID:   0,
		AwayTeamID:   fx.teams[3].ID,
		Round:        2,
		Stage:        models.StageFinal,
		BracketPos:   0,
	})
	toHome := true
	if err := env.matches.UpdateNextMatchInfo(ctx, nil, fx.semi0.ID, &final.ID, &toHome); err != nil {
		t.Fatal(err)
	}

	three, zero := 3, 0
	if err := env.matches.UpdateScores(ctx, nil, fx.semi0.ID, &three, &zero, models.MatchApproved); err != nil {
		t.Fatal(err)
	}
	if err := env.bracket.PropagateWinner(ctx, env.mustGetMatch(t, fx.semi0.ID)); err != nil {
		t.Fatalf("propagate: %v", err)
	}

	got := env.mustGetMatch(t, final.ID)
	if got.HomeTeamID != fx.teams[0].ID {
		t.Fatalf("final home = %d, want %d", got.HomeTeamID, fx.teams[0].ID)
	}
	if got.AwayTeamID != fx.teams[3].ID {
		t.Fatalf("final away changed to %d", got.AwayTeamID)
	}
}

func TestFinalCompletesTournament(t *testing.T) {
	env := newTestEnv()
	fx := newSemisFixture(t, env)
	ctx := context.Background()

	final := env.addMatch(t, approvedMatch(&models.Match{
		TournamentID: fx.tournament.ID,
		HomeTeamID:   fx.teams[0].ID,
		AwayTeamID:   fx.teams[3].ID,
		Round:        2,
		Stage:        models.StageFinal,
		BracketPos:   0,
	}, 2, 0))

	if err := env.bracket.PropagateWinner(ctx, env.mustGetMatch(t, final.ID)); err != nil {
		t.Fatalf("propagate final: %v", err)
	}

	tournament := env.mustGetTournament(t, fx.tournament.ID)
	if tournament.Status != models.TournamentFinished {
		t.Fatalf("tournament status = %s, want FINISHED", tournament.Status)
	}
	if tournament.IsActive {
		t.Fatal("finished tournament must be inactive")
	}
	if tournament.WinnerTeamID == nil || *tournament.WinnerTeamID != fx.teams[0].ID {
		t.Fatal("champion was not recorded")
	}
	if tournament.RunnerUpTeamID == nil || *tournament.RunnerUpTeamID != fx.teams[3].ID {
		t.Fatal("runner-up was not recorded")
	}
}

func TestUndecidedFinalDoesNotComplete(t *testing.T) {
	env := newTestEnv()
	fx := newSemisFixture(t, env)
	ctx := context.Background()

	env.addMatch(t, &models.Match{
		TournamentID: fx.tournament.ID,
		HomeTeamID:   fx.teams[0].ID,
		AwayTeamID:   fx.teams[3].ID,
		Round:        2,
		Stage:        models.StageFinal,
		BracketPos:   0,
	})

	if err := env.bracket.CheckTournamentCompletion(ctx, env.mustGetTournament(t, fx.tournament.ID)); err != nil {
		t.Fatalf("completion check: %v", err)
	}
	if got := env.mustGetTournament(t, fx.tournament.ID).Status; got == models.TournamentFinished {
		t.Fatal("tournament finished with an open final")
	}
}

func TestLeagueCompletion(t *testing.T) {
	env := newTestEnv()
	organizer := env.addUser(t, "organizer", models.RoleOrganizer)
	tournament := env.addTournament(t, models.FormatLeague, models.TournamentInProgress, organizer.ID)

	owners := make([]*models.User, 3)
	teams := make([]*models.Team, 3)
	for i, name := range []string{"anna", "boris", "clara"} {
		owners[i] = env.addUser(t, name, models.RolePlayer)
		teams[i] = env.addTeam(t, tournament.ID, owners[i].ID, name)
	}

	// anna beats both, boris beats clara: 6 / 3 / 0 points
	env.addMatch(t, approvedMatch(&models.Match{
		TournamentID: tournament.ID, HomeTeamID: teams[0].ID, AwayTeamID: teams[1].ID, Round: 1,
	}, 2, 0))
	env.addMatch(t, approvedMatch(&models.Match{
		TournamentID: tournament.ID, HomeTeamID: teams[2].ID, AwayTeamID: teams[0].ID, Round: 2,
	}, 0, 1))
	lastMatch := env.addMatch(t, &models.Match{
		TournamentID: tournament.ID, HomeTeamID: teams[1].ID, AwayTeamID: teams[2].ID, Round: 3,
	})

	ctx := context.Background()
	if err := env.bracket.CheckTournamentCompletion(ctx, env.mustGetTournament(t, tournament.ID)); err != nil {
		t.Fatalf("completion check: %v", err)
	}
	if got := env.mustGetTournament(t, tournament.ID).Status; got == models.TournamentFinished {
		t.Fatal("league finished with an open fixture")
	}

	one, zero := 1, 0
	if err := env.matches.UpdateScores(ctx, nil, lastMatch.ID, &one, &zero, models.MatchApproved); err != nil {
		t.Fatal(err)
	}
	if err := env.bracket.CheckTournamentCompletion(ctx, env.mustGetTournament(t, tournament.ID)); err != nil {
		t.Fatalf("completion check: %v", err)
	}

	finished := env.mustGetTournament(t, tournament.ID)
	if finished.Status != models.TournamentFinished {
		t.Fatalf("league status = %s, want FINISHED", finished.Status)
	}
	if finished.WinnerTeamID == nil || *finished.WinnerTeamID != teams[0].ID {
		t.Fatal("league winner must be the points leader")
	}
	if finished.RunnerUpTeamID == nil || *finished.RunnerUpTeamID != teams[1].ID {
		t.Fatal("league runner-up must be second on points")
	}
}

func TestCalculateBracketPlacements(t *testing.T) {
	env := newTestEnv()
	fx := newSemisFixture(t, env)
	ctx := context.Background()

	// decided semis, final and third place match
	two, one := 2, 1
	if err := env.matches.UpdateScores(ctx, nil, fx.semi0.ID, &two, &one, models.MatchApproved); err != nil {
		t.Fatal(err)
	}
	zero, three := 0, 3
	if err := env.matches.UpdateScores(ctx, nil, fx.semi1.ID, &zero, &three, models.MatchApproved); err != nil {
		t.Fatal(err)
	}
	env.addMatch(t, approvedMatch(&models.Match{
		TournamentID: fx.tournament.ID,
		HomeTeamID:   fx.teams[0].ID, AwayTeamID: fx.teams[3].ID,
		Round: 2, Stage: models.StageFinal, BracketPos: 0,
	}, 1, 2))
	env.addMatch(t, approvedMatch(&models.Match{
		TournamentID: fx.tournament.ID,
		HomeTeamID:   fx.teams[1].ID, AwayTeamID: fx.teams[2].ID,
		Round: 2, Stage: models.StageThirdPlace, BracketPos: 1,
	}, 4, 0))

	placements, err := env.bracket.CalculateBracketPlacements(ctx, env.mustGetTournament(t, fx.tournament.ID))
	if err != nil {
		t.Fatalf("placements: %v", err)
	}
	if len(placements) != 4 {
		t.Fatalf("placement count = %d, want 4", len(placements))
	}

	want := []int{fx.teams[3].ID, fx.teams[0].ID, fx.teams[1].ID, fx.teams[2].ID}
	for i, standing := range placements {
		if standing.TeamID != want[i] {
			t.Fatalf("position %d = team %d, want %d", i+1, standing.TeamID, want[i])
		}
		if standing.Position != i+1 {
			t.Fatalf("standing.Position = %d, want %d", standing.Position, i+1)
		}
	}
}

func TestBracketPlacementsWithoutThirdPlaceMatch(t *testing.T) {
	env := newTestEnv()
	fx := newSemisFixture(t, env)
	ctx := context.Background()

	two, one := 2, 1
	if err := env.matches.UpdateScores(ctx, nil, fx.semi0.ID, &two, &one, models.MatchApproved); err != nil {
		t.Fatal(err)
	}
	zero, three := 0, 3
	if err := env.matches.UpdateScores(ctx, nil, fx.semi1.ID, &zero, &three, models.MatchApproved); err != nil {
		t.Fatal(err)
	}
	env.addMatch(t, approvedMatch(&models.Match{
		TournamentID: fx.tournament.ID,
		HomeTeamID:   fx.teams[0].ID, AwayTeamID: fx.teams[3].ID,
		Round: 2, Stage: models.StageFinal, BracketPos: 0,
	}, 1, 0))

	placements, err := env.bracket.CalculateBracketPlacements(ctx, env.mustGetTournament(t, fx.tournament.ID))
	if err != nil {
		t.Fatalf("placements: %v", err)
	}
	if len(placements) != 4 {
		t.Fatalf("placement count = %d, want 4", len(placements))
	}
	if placements[0].TeamID != fx.teams[0].ID || placements[1].TeamID != fx.teams[3].ID {
		t.Fatal("finalists must take the first two places")
	}
	// semifinal losers share 3rd/4th by insertion order
	got := map[int]bool{placements[2].TeamID: true, placements[3].TeamID: true}
	if !got[fx.teams[1].ID] || !got[fx.teams[2].ID] {
		t.Fatal("semifinal losers must fill places 3 and 4")
	}
}
