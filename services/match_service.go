package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/matchplay/tournament-engine/models"
	"github.com/matchplay/tournament-engine/notifications"
	"github.com/matchplay/tournament-engine/repositories"
	"github.com/matchplay/tournament-engine/schedule"
)

type SubmitResultInput struct {
	MatchID     int
	SubmitterID int
	HomeScore   int
	AwayScore   int
	EvidenceKey *string
}

type MatchService interface {
	GetMatchByID(ctx context.Context, id int) (*models.Match, error)
	ListMatches(ctx context.Context, tournamentID int, round *int, state *models.MatchState) ([]*models.Match, error)
	// SubmitResult records a proposed score from the home team's owner and
	// parks the match until the organizer reviews it.
	SubmitResult(ctx context.Context, input SubmitResultInput) (*models.MatchResult, error)
	// ApproveResult accepts a pending result and advances the tournament.
	// A playoff draw is routed to a penalty shootout instead of approval.
	ApproveResult(ctx context.Context, resultID, reviewerID int) error
	// RejectResult discards a pending result and reopens the match.
	RejectResult(ctx context.Context, resultID, reviewerID int, comment string) error
	// SubmitPenalty resolves a drawn playoff match with shootout scores.
	SubmitPenalty(ctx context.Context, resultID, reviewerID, homePenalty, awayPenalty int) error
	// DisqualifyTeam awards a 3-0 walkover against the named team.
	DisqualifyTeam(ctx context.Context, matchID, teamID int) error
}

type matchService struct {
	db             repositories.SQLExecutor
	matchRepo      repositories.MatchRepository
	resultRepo     repositories.MatchResultRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	userRepo       repositories.UserRepository
	bracket        BracketService
	notifier       notifications.Notifier
	hub            *schedule.Hub
	locks          *TournamentLocks
}

func NewMatchService(
	db repositories.SQLExecutor,
	matchRepo repositories.MatchRepository,
	resultRepo repositories.MatchResultRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	bracket BracketService,
	notifier notifications.Notifier,
	hub *schedule.Hub,
	locks *TournamentLocks,
) MatchService {
	return &matchService{
		db:             db,
		matchRepo:      matchRepo,
		resultRepo:     resultRepo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		userRepo:       userRepo,
		bracket:        bracket,
		notifier:       notifier,
		hub:            hub,
		locks:          locks,
	}
}

func (s *matchService) GetMatchByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoNotFound(err)
	}
	if match.ResultID != nil {
		result, err := s.resultRepo.GetByID(ctx, *match.ResultID)
		if err == nil {
			match.Result = result
		}
	}
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID int, round *int, state *models.MatchState) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return nil, mapRepoNotFound(err)
	}
	return s.matchRepo.ListByTournament(ctx, tournamentID, round, state)
}

func (s *matchService) SubmitResult(ctx context.Context, input SubmitResultInput) (*models.MatchResult, error) {
	if input.HomeScore < 0 || input.AwayScore < 0 {
		return nil, ErrInvalidScore
	}

	match, err := s.matchRepo.GetByID(ctx, input.MatchID)
	if err != nil {
		return nil, mapRepoNotFound(err)
	}
	if match.IsBye {
		return nil, ErrMatchIsBye
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return nil, mapRepoNotFound(err)
	}
	if !tournament.AcceptsResults() {
		return nil, ErrTournamentNotAcceptingResults
	}

	homeTeam, err := s.teamRepo.GetByID(ctx, match.HomeTeamID)
	if err != nil {
		return nil, mapRepoNotFound(err)
	}
	if homeTeam.OwnerID != input.SubmitterID {
		return nil, ErrNotHomeParticipant
	}

	unlock := s.locks.Lock(match.TournamentID)
	defer unlock()

	if match.ResultID != nil || !match.State.CanTransitionTo(models.MatchPendingApproval) {
		return nil, ErrResultAlreadySubmitted
	}

	result := &models.MatchResult{
		MatchID:     match.ID,
		HomeScore:   input.HomeScore,
		AwayScore:   input.AwayScore,
		SubmittedBy: input.SubmitterID,
		EvidenceKey: input.EvidenceKey,
	}
	if err := s.resultRepo.Create(ctx, s.db, result); err != nil {
		if errors.Is(err, repositories.ErrResultConflict) {
			return nil, ErrResultAlreadySubmitted
		}
		return nil, err
	}
	if err := s.matchRepo.SetResultLink(ctx, s.db, match.ID, &result.ID); err != nil {
		return nil, err
	}
	if err := s.matchRepo.UpdateState(ctx, s.db, match.ID, models.MatchPendingApproval); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.Touch(ctx, s.db, tournament.ID); err != nil {
		log.Printf("submit result: touch tournament %d: %v", tournament.ID, err)
	}

	// the first submitted result moves a started tournament into play
	if tournament.Status == models.TournamentStarted {
		if err := s.tournamentRepo.UpdateStatus(ctx, s.db, tournament.ID, models.TournamentInProgress, true); err != nil {
			log.Printf("submit result: tournament %d status: %v", tournament.ID, err)
		}
	}

	if organizer, err := s.userRepo.GetByID(ctx, tournament.OrganizerID); err == nil {
		notifyUser(s.notifier, organizer, fmt.Sprintf(
			"New result %d:%d submitted for match #%d in %q, awaiting your review.",
			input.HomeScore, input.AwayScore, match.ID, tournament.Name))
	}
	s.broadcastMatch(match.TournamentID, match.ID)

	return result, nil
}

func (s *matchService) ApproveResult(ctx context.Context, resultID, reviewerID int) error {
	result, err := s.resultRepo.GetByID(ctx, resultID)
	if err != nil {
		return mapRepoNotFound(err)
	}
	match, err := s.matchRepo.GetByID(ctx, result.MatchID)
	if err != nil {
		return mapRepoNotFound(err)
	}

	unlock := s.locks.Lock(match.TournamentID)

	// repeated approval of the same result is a no-op, not an error
	if result.Approved || match.State == models.MatchApproved || match.State == models.MatchPendingPenalty {
		unlock()
		return nil
	}
	if match.State != models.MatchPendingApproval {
		unlock()
		return ErrResultNotPending
	}

	// read under the lock: the tournament may have been cancelled since the
	// result came in, and a terminal tournament takes no review decisions
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		unlock()
		return mapRepoNotFound(err)
	}
	if !tournament.AcceptsResults() {
		unlock()
		return ErrTournamentNotAcceptingResults
	}

	// a drawn playoff match cannot advance a winner; hold it for a shootout
	if tournament.IsPlayoff() && result.IsDraw() {
		if err := s.matchRepo.UpdateScores(ctx, s.db, match.ID, &result.HomeScore, &result.AwayScore, models.MatchPendingPenalty); err != nil {
			unlock()
			return err
		}
		unlock()
		s.notifySubmitter(ctx, result, fmt.Sprintf(
			"Match #%d ended %d:%d. A penalty shootout result is required.",
			match.ID, result.HomeScore, result.AwayScore))
		s.broadcastMatch(match.TournamentID, match.ID)
		return nil
	}

	now := time.Now()
	if err := s.resultRepo.Approve(ctx, s.db, result.ID, reviewerID, now); err != nil {
		unlock()
		return err
	}
	if err := s.matchRepo.UpdateScores(ctx, s.db, match.ID, &result.HomeScore, &result.AwayScore, models.MatchApproved); err != nil {
		unlock()
		return err
	}
	if err := s.tournamentRepo.Touch(ctx, s.db, tournament.ID); err != nil {
		log.Printf("approve result: touch tournament %d: %v", tournament.ID, err)
	}
	unlock()

	s.notifySubmitter(ctx, result, fmt.Sprintf(
		"Your result %d:%d for match #%d was approved.",
		result.HomeScore, result.AwayScore, match.ID))
	s.broadcastMatch(match.TournamentID, match.ID)

	return s.advance(ctx, tournament, match.ID)
}

// advance re-reads the match after its scores were committed and runs the
// format's follow-up. The tournament lock is released before this point;
// PropagateWinner takes it again itself.
func (s *matchService) advance(ctx context.Context, tournament *models.Tournament, matchID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return mapRepoNotFound(err)
	}
	if tournament.IsPlayoff() {
		if err := s.bracket.PropagateWinner(ctx, match); err != nil {
			log.Printf("advance: propagate winner of match %d: %v", match.ID, err)
		}
		return nil
	}
	if err := s.bracket.CheckTournamentCompletion(ctx, tournament); err != nil {
		log.Printf("advance: completion check for tournament %d: %v", tournament.ID, err)
	}
	return nil
}

func (s *matchService) RejectResult(ctx context.Context, resultID, reviewerID int, comment string) error {
	result, err := s.resultRepo.GetByID(ctx, resultID)
	if err != nil {
		return mapRepoNotFound(err)
	}
	if result.Approved {
		return ErrResultAlreadyApproved
	}
	match, err := s.matchRepo.GetByID(ctx, result.MatchID)
	if err != nil {
		return mapRepoNotFound(err)
	}

	unlock := s.locks.Lock(match.TournamentID)
	defer unlock()

	if !match.State.CanTransitionTo(models.MatchRejected) {
		return ErrResultNotPending
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return mapRepoNotFound(err)
	}
	if !tournament.AcceptsResults() {
		return ErrTournamentNotAcceptingResults
	}

	// both sides of the match<->result link must go before the delete
	if err := s.matchRepo.SetResultLink(ctx, s.db, match.ID, nil); err != nil {
		return err
	}
	if err := s.resultRepo.Delete(ctx, s.db, result.ID); err != nil {
		return err
	}
	if err := s.matchRepo.ClearScores(ctx, s.db, match.ID, models.MatchCreated); err != nil {
		return err
	}
	if err := s.tournamentRepo.Touch(ctx, s.db, match.TournamentID); err != nil {
		log.Printf("reject result: touch tournament %d: %v", match.TournamentID, err)
	}

	message := fmt.Sprintf("Your result %d:%d for match #%d was rejected.", result.HomeScore, result.AwayScore, match.ID)
	if comment != "" {
		message += " Reason: " + comment
	}
	s.notifySubmitter(ctx, result, message)
	s.broadcastMatch(match.TournamentID, match.ID)
	return nil
}

func (s *matchService) SubmitPenalty(ctx context.Context, resultID, reviewerID, homePenalty, awayPenalty int) error {
	if homePenalty < 0 || awayPenalty < 0 || homePenalty == awayPenalty {
		return ErrInvalidPenaltyScore
	}

	result, err := s.resultRepo.GetByID(ctx, resultID)
	if err != nil {
		return mapRepoNotFound(err)
	}
	match, err := s.matchRepo.GetByID(ctx, result.MatchID)
	if err != nil {
		return mapRepoNotFound(err)
	}

	unlock := s.locks.Lock(match.TournamentID)

	if match.State != models.MatchPendingPenalty {
		unlock()
		return ErrPenaltyNotExpected
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		unlock()
		return mapRepoNotFound(err)
	}
	if !tournament.AcceptsResults() {
		unlock()
		return ErrTournamentNotAcceptingResults
	}

	if err := s.resultRepo.SetPenalties(ctx, s.db, result.ID, homePenalty, awayPenalty); err != nil {
		unlock()
		return err
	}
	if err := s.resultRepo.Approve(ctx, s.db, result.ID, reviewerID, time.Now()); err != nil {
		unlock()
		return err
	}
	if err := s.matchRepo.UpdatePenalties(ctx, s.db, match.ID, &homePenalty, &awayPenalty, models.MatchApproved); err != nil {
		unlock()
		return err
	}
	if err := s.tournamentRepo.Touch(ctx, s.db, tournament.ID); err != nil {
		log.Printf("submit penalty: touch tournament %d: %v", tournament.ID, err)
	}
	unlock()

	s.notifySubmitter(ctx, result, fmt.Sprintf(
		"Match #%d decided on penalties %d:%d.", match.ID, homePenalty, awayPenalty))
	s.broadcastMatch(match.TournamentID, match.ID)

	return s.advance(ctx, tournament, match.ID)
}

func (s *matchService) DisqualifyTeam(ctx context.Context, matchID, teamID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return mapRepoNotFound(err)
	}
	if match.IsBye {
		return ErrMatchIsBye
	}
	if teamID != match.HomeTeamID && teamID != match.AwayTeamID {
		return ErrTeamNotInMatch
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return mapRepoNotFound(err)
	}
	if !tournament.AcceptsResults() {
		return ErrTournamentNotAcceptingResults
	}

	unlock := s.locks.Lock(match.TournamentID)

	if match.State.Decided() {
		unlock()
		return ErrResultAlreadyApproved
	}

	// a walkover supersedes any pending submission; drop the orphaned result
	if match.ResultID != nil {
		resultID := *match.ResultID
		if err := s.matchRepo.SetResultLink(ctx, s.db, match.ID, nil); err != nil {
			unlock()
			return err
		}
		if err := s.resultRepo.Delete(ctx, s.db, resultID); err != nil {
			unlock()
			return err
		}
	}

	// standard walkover score against the disqualified side
	homeScore, awayScore := 3, 0
	if teamID == match.HomeTeamID {
		homeScore, awayScore = 0, 3
	}
	if err := s.matchRepo.UpdateScores(ctx, s.db, match.ID, &homeScore, &awayScore, models.MatchApproved); err != nil {
		unlock()
		return err
	}
	if err := s.tournamentRepo.Touch(ctx, s.db, tournament.ID); err != nil {
		log.Printf("disqualify: touch tournament %d: %v", tournament.ID, err)
	}
	unlock()

	s.broadcastMatch(match.TournamentID, match.ID)
	return s.advance(ctx, tournament, match.ID)
}

func (s *matchService) notifySubmitter(ctx context.Context, result *models.MatchResult, message string) {
	user, err := s.userRepo.GetByID(ctx, result.SubmittedBy)
	if err != nil {
		return
	}
	notifyUser(s.notifier, user, message)
}

func (s *matchService) broadcastMatch(tournamentID, matchID int) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(roomID(tournamentID), schedule.Event{
		Type:    schedule.EventMatchUpdated,
		Payload: map[string]int{"match_id": matchID},
	})
}
