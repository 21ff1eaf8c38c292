package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matchplay/tournament-engine/models"
	"github.com/matchplay/tournament-engine/repositories"
)

// In-memory repository fakes. The exec parameter is ignored everywhere;
// services under test pass nil.

type fakeTournamentRepo struct {
	mu     sync.Mutex
	nextID int
	store  map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{store: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.store {
		if existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.store[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.store[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, _ repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Tournament, 0, len(r.store))
	for _, t := range r.store {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus, isActive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.store[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	t.IsActive = isActive
	t.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTournamentRepo) SetOutcome(_ context.Context, _ repositories.SQLExecutor, id int, winnerTeamID, runnerUpTeamID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.store[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerTeamID = winnerTeamID
	t.RunnerUpTeamID = runnerUpTeamID
	return nil
}

func (r *fakeTournamentRepo) Touch(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.store[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.store, id)
	return nil
}

type fakeTeamRepo struct {
	mu     sync.Mutex
	nextID int
	store  map[int]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{store: make(map[int]*models.Team)}
}

func (r *fakeTeamRepo) Create(_ context.Context, _ repositories.SQLExecutor, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.store {
		if existing.TournamentID == team.TournamentID && existing.OwnerID == team.OwnerID {
			return repositories.ErrTeamConflict
		}
	}
	r.nextID++
	team.ID = r.nextID
	team.CreatedAt = time.Now()
	cp := *team
	r.store[team.ID] = &cp
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.store[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	cp := *team
	return &cp, nil
}

func (r *fakeTeamRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Team, 0)
	for _, team := range r.store {
		if team.TournamentID == tournamentID {
			cp := *team
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.store, id)
	return nil
}

type fakeMatchRepo struct {
	mu     sync.Mutex
	nextID int
	store  map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{store: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	r.store[m.ID] = &cp
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int, round *int, state *models.MatchState) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.store {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		if state != nil && m.State != *state {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		if out[i].BracketPos != out[j].BracketPos {
			return out[i].BracketPos < out[j].BracketPos
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeMatchRepo) FindByRoundPosition(_ context.Context, tournamentID, round, bracketPos int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.store {
		if m.TournamentID == tournamentID && m.Round == round && m.BracketPos == bracketPos {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) FindByStage(_ context.Context, tournamentID int, stage models.PlayoffStage) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.Match
	for _, m := range r.store {
		if m.TournamentID == tournamentID && m.Stage == stage {
			if found == nil || m.ID < found.ID {
				found = m
			}
		}
	}
	if found == nil {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *found
	return &cp, nil
}

func (r *fakeMatchRepo) UpdateScores(_ context.Context, _ repositories.SQLExecutor, id int, homeScore, awayScore *int, state models.MatchState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.HomeScore = homeScore
	m.AwayScore = awayScore
	m.State = state
	m.UpdatedAt = time.Now()
	return nil
}

func (r *fakeMatchRepo) UpdatePenalties(_ context.Context, _ repositories.SQLExecutor, id int, homePens, awayPens *int, state models.MatchState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.HomePenaltyScore = homePens
	m.AwayPenaltyScore = awayPens
	m.DecidedByPenalties = true
	m.State = state
	m.UpdatedAt = time.Now()
	return nil
}

func (r *fakeMatchRepo) ClearScores(_ context.Context, _ repositories.SQLExecutor, id int, state models.MatchState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.HomeScore = nil
	m.AwayScore = nil
	m.HomePenaltyScore = nil
	m.AwayPenaltyScore = nil
	m.DecidedByPenalties = false
	m.State = state
	m.UpdatedAt = time.Now()
	return nil
}

func (r *fakeMatchRepo) UpdateState(_ context.Context, _ repositories.SQLExecutor, id int, state models.MatchState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.State = state
	m.UpdatedAt = time.Now()
	return nil
}

func (r *fakeMatchRepo) UpdateTeams(_ context.Context, _ repositories.SQLExecutor, id int, homeTeamID, awayTeamID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.HomeTeamID = homeTeamID
	m.AwayTeamID = awayTeamID
	m.UpdatedAt = time.Now()
	return nil
}

func (r *fakeMatchRepo) UpdateNextMatchInfo(_ context.Context, _ repositories.SQLExecutor, id int, nextMatchID *int, winnerToHome *bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextMatchID = nextMatchID
	m.WinnerToHome = winnerToHome
	m.UpdatedAt = time.Now()
	return nil
}

func (r *fakeMatchRepo) SetResultLink(_ context.Context, _ repositories.SQLExecutor, id int, resultID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.ResultID = resultID
	m.UpdatedAt = time.Now()
	return nil
}

func (r *fakeMatchRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.store)
}

type fakeResultRepo struct {
	mu     sync.Mutex
	nextID int
	store  map[int]*models.MatchResult
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{store: make(map[int]*models.MatchResult)}
}

func (r *fakeResultRepo) Create(_ context.Context, _ repositories.SQLExecutor, res *models.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.store {
		if existing.MatchID == res.MatchID {
			return repositories.ErrResultConflict
		}
	}
	r.nextID++
	res.ID = r.nextID
	res.CreatedAt = time.Now()
	cp := *res
	r.store[res.ID] = &cp
	return nil
}

func (r *fakeResultRepo) GetByID(_ context.Context, id int) (*models.MatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.store[id]
	if !ok {
		return nil, repositories.ErrResultNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *fakeResultRepo) GetByMatch(_ context.Context, matchID int) (*models.MatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.store {
		if res.MatchID == matchID {
			cp := *res
			return &cp, nil
		}
	}
	return nil, repositories.ErrResultNotFound
}

func (r *fakeResultRepo) Approve(_ context.Context, _ repositories.SQLExecutor, id, reviewerID int, reviewedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.store[id]
	if !ok {
		return repositories.ErrResultNotFound
	}
	res.Approved = true
	res.ReviewedBy = &reviewerID
	res.ReviewedAt = &reviewedAt
	return nil
}

func (r *fakeResultRepo) SetPenalties(_ context.Context, _ repositories.SQLExecutor, id int, homePens, awayPens int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.store[id]
	if !ok {
		return repositories.ErrResultNotFound
	}
	res.HomePenaltyScore = &homePens
	res.AwayPenaltyScore = &awayPens
	return nil
}

func (r *fakeResultRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return repositories.ErrResultNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *fakeResultRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.store)
}

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	store  map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{store: make(map[int]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.store {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	cp := *user
	r.store[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.store[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.store {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateChatID(_ context.Context, id int, chatID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.store[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.ChatID = chatID
	return nil
}
