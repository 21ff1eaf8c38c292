package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matchplay/tournament-engine/models"
	"github.com/matchplay/tournament-engine/notifications"
	"github.com/matchplay/tournament-engine/repositories"
	"github.com/matchplay/tournament-engine/schedule"
	"golang.org/x/sync/errgroup"
)

type CreateTournamentInput struct {
	Name        string                  `json:"name"`
	Format      models.TournamentFormat `json:"format"`
	RoundsCount int                     `json:"rounds_count"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error)
	OpenRegistration(ctx context.Context, tournamentID, organizerID int) error
	// StartTournament generates the full fixture list for the tournament's
	// format and persists it atomically together with the status change.
	StartTournament(ctx context.Context, tournamentID, organizerID int) error
	CancelTournament(ctx context.Context, tournamentID, organizerID int) error
	// GetStandings returns the league table or, for playoffs, the final
	// placements by stage reached.
	GetStandings(ctx context.Context, tournamentID int) ([]models.TeamStanding, error)
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	userRepo       repositories.UserRepository
	bracket        BracketService
	notifier       notifications.Notifier
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	bracket BracketService,
	notifier notifications.Notifier,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		userRepo:       userRepo,
		bracket:        bracket,
		notifier:       notifier,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.Format.Valid() {
		return nil, ErrTournamentInvalidFormat
	}
	rounds := input.RoundsCount
	if input.Format == models.FormatPlayoff {
		rounds = 1
	} else if rounds == 0 {
		rounds = 1
	}
	if rounds != 1 && rounds != 2 {
		return nil, ErrTournamentInvalidRounds
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Format:      input.Format,
		Status:      models.TournamentCreated,
		RoundsCount: rounds,
		OrganizerID: organizerID,
		IsActive:    true,
	}
	if err := s.tournamentRepo.Create(ctx, s.db, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("format", string(tournament.Format)),
		slog.Int("organizer_id", organizerID))
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoNotFound(err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		teams, err := s.teamRepo.ListByTournament(gCtx, id)
		if err != nil {
			return err
		}
		tournament.Teams = make([]models.Team, 0, len(teams))
		for _, team := range teams {
			tournament.Teams = append(tournament.Teams, *team)
		}
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, id, nil, nil)
		if err != nil {
			return err
		}
		tournament.Matches = make([]models.Match, 0, len(matches))
		for _, match := range matches {
			tournament.Matches = append(tournament.Matches, *match)
		}
		return nil
	})
	g.Go(func() error {
		organizer, err := s.userRepo.GetByID(gCtx, tournament.OrganizerID)
		if err != nil {
			// a missing organizer row does not hide the tournament
			s.logger.Warn("organizer lookup failed",
				slog.Int("tournament_id", id), slog.String("error", err.Error()))
			return nil
		}
		organizer.PasswordHash = ""
		tournament.Organizer = organizer
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

func (s *tournamentService) OpenRegistration(ctx context.Context, tournamentID, organizerID int) error {
	tournament, err := s.authorizedTournament(ctx, tournamentID, organizerID)
	if err != nil {
		return err
	}
	if !tournament.Status.CanTransitionTo(models.TournamentRegistration) {
		return ErrTournamentInvalidStatusTransition
	}
	return s.tournamentRepo.UpdateStatus(ctx, s.db, tournamentID, models.TournamentRegistration, true)
}

func (s *tournamentService) StartTournament(ctx context.Context, tournamentID, organizerID int) error {
	tournament, err := s.authorizedTournament(ctx, tournamentID, organizerID)
	if err != nil {
		return err
	}
	if !tournament.Status.CanTransitionTo(models.TournamentStarted) {
		return ErrTournamentInvalidStatusTransition
	}

	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if len(teams) < 2 {
		return ErrNotEnoughTeams
	}

	var generator schedule.MatchGenerator
	if tournament.IsPlayoff() {
		generator = schedule.NewSingleEliminationGenerator()
	} else {
		generator = schedule.NewRoundRobinGenerator()
	}

	generated, err := generator.GenerateMatches(ctx, schedule.GenerateParams{
		Tournament: tournament,
		Teams:      teams,
	})
	if err != nil {
		return fmt.Errorf("generator %s: %w", generator.GetName(), err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.persistGenerated(ctx, tx, tournament, generated); err != nil {
		return err
	}
	if err = s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.TournamentStarted, true); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fixture generation: %w", err)
	}

	s.logger.Info("tournament started",
		slog.Int("tournament_id", tournamentID),
		slog.String("generator", generator.GetName()),
		slog.Int("matches", len(generated)))

	for _, team := range teams {
		if owner, lookupErr := s.userRepo.GetByID(ctx, team.OwnerID); lookupErr == nil {
			notifyUser(s.notifier, owner, fmt.Sprintf(
				"Tournament %q has started. The schedule is published.", tournament.Name))
		}
	}
	return nil
}

// persistGenerated writes the generator output in two passes: first every
// match row, collecting the generator UID of each inserted id, then the
// next-match links once all ids exist.
func (s *tournamentService) persistGenerated(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, generated []*schedule.GeneratedMatch) error {
	idByUID := make(map[string]int, len(generated))

	for _, gm := range generated {
		if gm.HomeTeamID == nil || gm.AwayTeamID == nil {
			return fmt.Errorf("generated match %s has an unset team", gm.UID)
		}
		match := &models.Match{
			TournamentID: tournament.ID,
			HomeTeamID:   *gm.HomeTeamID,
			AwayTeamID:   *gm.AwayTeamID,
			Round:        gm.Round,
			Stage:        gm.Stage,
			BracketPos:   gm.Position,
			IsBye:        gm.IsBye,
			State:        models.MatchCreated,
		}
		if gm.IsBye {
			// byes are settled walkovers from the moment they exist
			zeroHome, zeroAway := 0, 0
			match.HomeScore = &zeroHome
			match.AwayScore = &zeroAway
			match.State = models.MatchApproved
		}
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return err
		}
		idByUID[gm.UID] = match.ID
	}

	for _, gm := range generated {
		if gm.NextUID == nil && gm.WinnerToHome == nil {
			continue
		}
		var nextID *int
		if gm.NextUID != nil {
			id, ok := idByUID[*gm.NextUID]
			if !ok {
				return fmt.Errorf("generated match %s links to unknown match %s", gm.UID, *gm.NextUID)
			}
			nextID = &id
		}
		if err := s.matchRepo.UpdateNextMatchInfo(ctx, tx, idByUID[gm.UID], nextID, gm.WinnerToHome); err != nil {
			return err
		}
	}
	return nil
}

func (s *tournamentService) CancelTournament(ctx context.Context, tournamentID, organizerID int) error {
	tournament, err := s.authorizedTournament(ctx, tournamentID, organizerID)
	if err != nil {
		return err
	}
	if !tournament.Status.CanTransitionTo(models.TournamentCancelled) {
		return ErrTournamentInvalidStatusTransition
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, s.db, tournamentID, models.TournamentCancelled, false); err != nil {
		return err
	}
	s.logger.Info("tournament cancelled", slog.Int("tournament_id", tournamentID))
	return nil
}

func (s *tournamentService) GetStandings(ctx context.Context, tournamentID int) ([]models.TeamStanding, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRepoNotFound(err)
	}

	if tournament.IsPlayoff() {
		return s.bracket.CalculateBracketPlacements(ctx, tournament)
	}

	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, nil, nil)
	if err != nil {
		return nil, err
	}
	return CalculateStandings(teams, matches), nil
}

func (s *tournamentService) authorizedTournament(ctx context.Context, tournamentID, organizerID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRepoNotFound(err)
	}
	if tournament.OrganizerID != organizerID {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}
