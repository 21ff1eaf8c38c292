package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matchplay/tournament-engine/models"
)

var (
	ErrResultNotFound = errors.New("match result not found")
	ErrResultConflict = errors.New("a result already exists for this match")
)

type MatchResultRepository interface {
	Create(ctx context.Context, exec SQLExecutor, result *models.MatchResult) error
	GetByID(ctx context.Context, id int) (*models.MatchResult, error)
	GetByMatch(ctx context.Context, matchID int) (*models.MatchResult, error)
	Approve(ctx context.Context, exec SQLExecutor, id, reviewerID int, reviewedAt time.Time) error
	SetPenalties(ctx context.Context, exec SQLExecutor, id int, homePens, awayPens int) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresMatchResultRepository struct {
	db *sql.DB
}

func NewPostgresMatchResultRepository(db *sql.DB) MatchResultRepository {
	return &postgresMatchResultRepository{db: db}
}

const resultColumns = `id, match_id, home_score, away_score, home_penalty_score, away_penalty_score,
       submitted_by, approved, reviewed_by, review_comment, reviewed_at, evidence_key, created_at`

func scanResult(scanner interface{ Scan(dest ...interface{}) error }) (*models.MatchResult, error) {
	res := &models.MatchResult{}
	err := scanner.Scan(
		&res.ID, &res.MatchID, &res.HomeScore, &res.AwayScore,
		&res.HomePenaltyScore, &res.AwayPenaltyScore,
		&res.SubmittedBy, &res.Approved, &res.ReviewedBy, &res.ReviewComment,
		&res.ReviewedAt, &res.EvidenceKey, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *postgresMatchResultRepository) Create(ctx context.Context, exec SQLExecutor, res *models.MatchResult) error {
	query := `
		INSERT INTO match_results (match_id, home_score, away_score, submitted_by, evidence_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		res.MatchID, res.HomeScore, res.AwayScore, res.SubmittedBy, res.EvidenceKey,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "match_results_match_id_key") {
			return ErrResultConflict
		}
		if isForeignKeyViolation(err) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to insert match result: %w", err)
	}
	return nil
}

func (r *postgresMatchResultRepository) GetByID(ctx context.Context, id int) (*models.MatchResult, error) {
	query := `SELECT ` + resultColumns + ` FROM match_results WHERE id = $1`

	res, err := scanResult(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to scan match result %d: %w", id, err)
	}
	return res, nil
}

func (r *postgresMatchResultRepository) GetByMatch(ctx context.Context, matchID int) (*models.MatchResult, error) {
	query := `SELECT ` + resultColumns + ` FROM match_results WHERE match_id = $1`

	res, err := scanResult(r.db.QueryRowContext(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to scan result of match %d: %w", matchID, err)
	}
	return res, nil
}

func (r *postgresMatchResultRepository) Approve(ctx context.Context, exec SQLExecutor, id, reviewerID int, reviewedAt time.Time) error {
	query := `UPDATE match_results SET approved = TRUE, reviewed_by = $1, reviewed_at = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, reviewerID, reviewedAt, id)
	if err != nil {
		return fmt.Errorf("failed to approve match result %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrResultNotFound)
}

func (r *postgresMatchResultRepository) SetPenalties(ctx context.Context, exec SQLExecutor, id int, homePens, awayPens int) error {
	query := `UPDATE match_results SET home_penalty_score = $1, away_penalty_score = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, homePens, awayPens, id)
	if err != nil {
		return fmt.Errorf("failed to set penalties on match result %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrResultNotFound)
}

func (r *postgresMatchResultRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM match_results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match result %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrResultNotFound)
}
