package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/matchplay/tournament-engine/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, state *models.MatchState) ([]*models.Match, error)
	// FindByRoundPosition locates the sibling of a bracket match by its
	// computed (round, bracket_pos) index.
	FindByRoundPosition(ctx context.Context, tournamentID, round, bracketPos int) (*models.Match, error)
	// FindByStage returns the single match of a stage, used for the FINAL
	// and THIRD_PLACE lookups.
	FindByStage(ctx context.Context, tournamentID int, stage models.PlayoffStage) (*models.Match, error)
	UpdateScores(ctx context.Context, exec SQLExecutor, id int, homeScore, awayScore *int, state models.MatchState) error
	UpdatePenalties(ctx context.Context, exec SQLExecutor, id int, homePens, awayPens *int, state models.MatchState) error
	// ClearScores wipes scores and penalty marks, returning the match to a
	// resubmittable state after a rejection.
	ClearScores(ctx context.Context, exec SQLExecutor, id int, state models.MatchState) error
	UpdateState(ctx context.Context, exec SQLExecutor, id int, state models.MatchState) error
	UpdateTeams(ctx context.Context, exec SQLExecutor, id int, homeTeamID, awayTeamID int) error
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextMatchID *int, winnerToHome *bool) error
	SetResultLink(ctx context.Context, exec SQLExecutor, id int, resultID *int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, home_team_id, away_team_id, round, stage, bracket_pos,
       home_score, away_score, home_penalty_score, away_penalty_score,
       decided_by_penalties, is_bye, state, result_id, next_match_id, winner_to_home,
       created_at, updated_at`

func scanMatch(scanner interface{ Scan(dest ...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := scanner.Scan(
		&m.ID, &m.TournamentID, &m.HomeTeamID, &m.AwayTeamID, &m.Round, &m.Stage, &m.BracketPos,
		&m.HomeScore, &m.AwayScore, &m.HomePenaltyScore, &m.AwayPenaltyScore,
		&m.DecidedByPenalties, &m.IsBye, &m.State, &m.ResultID, &m.NextMatchID, &m.WinnerToHome,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, home_team_id, away_team_id, round, stage, bracket_pos,
			 home_score, away_score, decided_by_penalties, is_bye, state,
			 next_match_id, winner_to_home)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := exec.QueryRowContext(ctx, query,
		m.TournamentID, m.HomeTeamID, m.AwayTeamID, m.Round, m.Stage, m.BracketPos,
		m.HomeScore, m.AwayScore, m.DecidedByPenalties, m.IsBye, m.State,
		m.NextMatchID, m.WinnerToHome,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round *int, state *models.MatchState) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	if round != nil {
		args = append(args, *round)
		queryBuilder.WriteString(" AND round = $" + strconv.Itoa(len(args)))
	}
	if state != nil {
		args = append(args, *state)
		queryBuilder.WriteString(" AND state = $" + strconv.Itoa(len(args)))
	}
	queryBuilder.WriteString(" ORDER BY round ASC, bracket_pos ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) FindByRoundPosition(ctx context.Context, tournamentID, round, bracketPos int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE tournament_id = $1 AND round = $2 AND bracket_pos = $3`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, tournamentID, round, bracketPos))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match at round %d pos %d: %w", round, bracketPos, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) FindByStage(ctx context.Context, tournamentID int, stage models.PlayoffStage) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE tournament_id = $1 AND stage = $2
		ORDER BY id ASC LIMIT 1`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, tournamentID, stage))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan %s match of tournament %d: %w", stage, tournamentID, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) UpdateScores(ctx context.Context, exec SQLExecutor, id int, homeScore, awayScore *int, state models.MatchState) error {
	query := `UPDATE matches SET home_score = $1, away_score = $2, state = $3, updated_at = NOW() WHERE id = $4`
	result, err := exec.ExecContext(ctx, query, homeScore, awayScore, state, id)
	if err != nil {
		return fmt.Errorf("failed to update scores of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdatePenalties(ctx context.Context, exec SQLExecutor, id int, homePens, awayPens *int, state models.MatchState) error {
	query := `
		UPDATE matches
		SET home_penalty_score = $1, away_penalty_score = $2,
		    decided_by_penalties = TRUE, state = $3, updated_at = NOW()
		WHERE id = $4`
	result, err := exec.ExecContext(ctx, query, homePens, awayPens, state, id)
	if err != nil {
		return fmt.Errorf("failed to update penalties of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ClearScores(ctx context.Context, exec SQLExecutor, id int, state models.MatchState) error {
	query := `
		UPDATE matches
		SET home_score = NULL, away_score = NULL,
		    home_penalty_score = NULL, away_penalty_score = NULL,
		    decided_by_penalties = FALSE, state = $1, updated_at = NOW()
		WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("failed to clear scores of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateState(ctx context.Context, exec SQLExecutor, id int, state models.MatchState) error {
	query := `UPDATE matches SET state = $1, updated_at = NOW() WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("failed to update state of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateTeams(ctx context.Context, exec SQLExecutor, id int, homeTeamID, awayTeamID int) error {
	query := `UPDATE matches SET home_team_id = $1, away_team_id = $2, updated_at = NOW() WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, homeTeamID, awayTeamID, id)
	if err != nil {
		return fmt.Errorf("failed to update teams of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextMatchID *int, winnerToHome *bool) error {
	query := `UPDATE matches SET next_match_id = $1, winner_to_home = $2, updated_at = NOW() WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, nextMatchID, winnerToHome, id)
	if err != nil {
		return fmt.Errorf("failed to update next match info of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetResultLink(ctx context.Context, exec SQLExecutor, id int, resultID *int) error {
	query := `UPDATE matches SET result_id = $1, updated_at = NOW() WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, resultID, id)
	if err != nil {
		return fmt.Errorf("failed to set result link of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
