package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/matchplay/tournament-engine/models"
	"github.com/matchplay/tournament-engine/repositories"
)

type TeamService interface {
	// RegisterTeam enrolls a participant's team while registration is open.
	// One team per participant per tournament.
	RegisterTeam(ctx context.Context, tournamentID, ownerID int, name string) (*models.Team, error)
	ListTeams(ctx context.Context, tournamentID int) ([]*models.Team, error)
	RemoveTeam(ctx context.Context, teamID, requesterID int) error
}

type teamService struct {
	db             repositories.SQLExecutor
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
	logger         *slog.Logger
}

func NewTeamService(
	db repositories.SQLExecutor,
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	logger *slog.Logger,
) TeamService {
	return &teamService{db: db, teamRepo: teamRepo, tournamentRepo: tournamentRepo, logger: logger}
}

func (s *teamService) RegisterTeam(ctx context.Context, tournamentID, ownerID int, name string) (*models.Team, error) {
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRepoNotFound(err)
	}
	if tournament.Status != models.TournamentRegistration {
		return nil, ErrRegistrationNotOpen
	}

	team := &models.Team{
		TournamentID: tournamentID,
		OwnerID:      ownerID,
		Name:         name,
	}
	if err := s.teamRepo.Create(ctx, s.db, team); err != nil {
		if errors.Is(err, repositories.ErrTeamConflict) {
			return nil, ErrTeamAlreadyRegistered
		}
		return nil, mapRepoNotFound(err)
	}

	s.logger.Info("team registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("team_id", team.ID),
		slog.Int("owner_id", ownerID))
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return nil, mapRepoNotFound(err)
	}
	return s.teamRepo.ListByTournament(ctx, tournamentID)
}

func (s *teamService) RemoveTeam(ctx context.Context, teamID, requesterID int) error {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return mapRepoNotFound(err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, team.TournamentID)
	if err != nil {
		return mapRepoNotFound(err)
	}

	// the owner may withdraw, the organizer may remove anyone, but only
	// before the fixtures are generated
	if requesterID != team.OwnerID && requesterID != tournament.OrganizerID {
		return ErrForbiddenOperation
	}
	if tournament.Status != models.TournamentCreated && tournament.Status != models.TournamentRegistration {
		return ErrRegistrationNotOpen
	}

	return s.teamRepo.Delete(ctx, teamID)
}
