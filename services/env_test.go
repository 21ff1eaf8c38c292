package services

import (
	"context"
	"testing"

	"github.com/matchplay/tournament-engine/models"
	"github.com/matchplay/tournament-engine/notifications"
)

type testEnv struct {
	tournaments *fakeTournamentRepo
	teams       *fakeTeamRepo
	matches     *fakeMatchRepo
	results     *fakeResultRepo
	users       *fakeUserRepo

	bracket  BracketService
	matchSvc MatchService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		tournaments: newFakeTournamentRepo(),
		teams:       newFakeTeamRepo(),
		matches:     newFakeMatchRepo(),
		results:     newFakeResultRepo(),
		users:       newFakeUserRepo(),
	}
	locks := NewTournamentLocks()
	notifier := notifications.NopNotifier{}

	env.bracket = NewBracketService(
		nil, env.matches, env.tournaments, env.teams, env.users, notifier, nil, locks)
	env.matchSvc = NewMatchService(
		nil, env.matches, env.results, env.tournaments, env.teams, env.users,
		env.bracket, notifier, nil, locks)
	return env
}

func (e *testEnv) addUser(t *testing.T, nickname string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{Nickname: nickname, Email: nickname + "@example.com", Role: role}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", nickname, err)
	}
	return user
}

func (e *testEnv) addTournament(t *testing.T, format models.TournamentFormat, status models.TournamentStatus, organizerID int) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		Name:        "Cup " + string(format) + " " + string(status),
		Format:      format,
		Status:      status,
		RoundsCount: 1,
		OrganizerID: organizerID,
		IsActive:    true,
	}
	if err := e.tournaments.Create(context.Background(), nil, tournament); err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	return tournament
}

func (e *testEnv) addTeam(t *testing.T, tournamentID, ownerID int, name string) *models.Team {
	t.Helper()
	team := &models.Team{TournamentID: tournamentID, OwnerID: ownerID, Name: name}
	if err := e.teams.Create(context.Background(), nil, team); err != nil {
		t.Fatalf("create team %s: %v", name, err)
	}
	return team
}

func (e *testEnv) addMatch(t *testing.T, m *models.Match) *models.Match {
	t.Helper()
	if m.State == "" {
		m.State = models.MatchCreated
	}
	if err := e.matches.Create(context.Background(), nil, m); err != nil {
		t.Fatalf("create match: %v", err)
	}
	return m
}

func (e *testEnv) mustGetMatch(t *testing.T, id int) *models.Match {
	t.Helper()
	m, err := e.matches.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get match %d: %v", id, err)
	}
	return m
}

func (e *testEnv) mustGetTournament(t *testing.T, id int) *models.Tournament {
	t.Helper()
	tournament, err := e.tournaments.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get tournament %d: %v", id, err)
	}
	return tournament
}

func intPtr(v int) *int { return &v }

// playoffSemis builds a four-team playoff mid-tournament: two semifinal
// matches in round 1 awaiting results.
type semisFixture struct {
	tournament *models.Tournament
	teams      []*models.Team
	owners     []*models.User
	semi0      *models.Match
	semi1      *models.Match
}

func newSemisFixture(t *testing.T, env *testEnv) *semisFixture {
	t.Helper()
	organizer := env.addUser(t, "organizer", models.RoleOrganizer)
	tournament := env.addTournament(t, models.FormatPlayoff, models.TournamentInProgress, organizer.ID)

	owners := make([]*models.User, 0, 4)
	teams := make([]*models.Team, 0, 4)
	for _, name := range []string{"alpha", "bravo", "charlie", "delta"} {
		owner := env.addUser(t, name, models.RolePlayer)
		owners = append(owners, owner)
		teams = append(teams, env.addTeam(t, tournament.ID, owner.ID, name))
	}

	semi0 := env.addMatch(t, &models.Match{
		TournamentID: tournament.ID,
		HomeTeamID:   teams[0].ID,
		AwayTeamID:   teams[1].ID,
		Round:        1,
		Stage:        models.StageSemiFinal,
		BracketPos:   0,
	})
	semi1 := env.addMatch(t, &models.Match{
		TournamentID: tournament.ID,
		HomeTeamID:   teams[2].ID,
		AwayTeamID:   teams[3].ID,
		Round:        1,
		Stage:        models.StageSemiFinal,
		BracketPos:   1,
	})

	return &semisFixture{
		tournament: tournament,
		teams:      teams,
		owners:     owners,
		semi0:      semi0,
		semi1:      semi1,
	}
}
