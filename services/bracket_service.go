package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/matchplay/tournament-engine/models"
	"github.com/matchplay/tournament-engine/notifications"
	"github.com/matchplay/tournament-engine/repositories"
	"github.com/matchplay/tournament-engine/schedule"
	"golang.org/x/sync/errgroup"
)

type BracketService interface {
	// PropagateWinner advances the winner of an approved playoff match into
	// the next round, creating the next-round match once both predecessors
	// of a pairing are decided.
	PropagateWinner(ctx context.Context, match *models.Match) error
	// CheckTournamentCompletion finishes the tournament when its deciding
	// matches are all approved.
	CheckTournamentCompletion(ctx context.Context, tournament *models.Tournament) error
	// CalculateBracketPlacements ranks teams strictly by the furthest stage
	// reached, not by goal statistics.
	CalculateBracketPlacements(ctx context.Context, tournament *models.Tournament) ([]models.TeamStanding, error)
}

type bracketService struct {
	db             repositories.SQLExecutor
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	userRepo       repositories.UserRepository
	notifier       notifications.Notifier
	hub            *schedule.Hub
	locks          *TournamentLocks
}

func NewBracketService(
	db repositories.SQLExecutor,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	notifier notifications.Notifier,
	hub *schedule.Hub,
	locks *TournamentLocks,
) BracketService {
	return &bracketService{
		db:             db,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		hub:            hub,
		locks:          locks,
	}
}

func (s *bracketService) PropagateWinner(ctx context.Context, match *models.Match) error {
	if match.Stage == models.StageFinal {
		tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
		if err != nil {
			return mapRepoNotFound(err)
		}
		return s.CheckTournamentCompletion(ctx, tournament)
	}
	if match.Stage == models.StageThirdPlace {
		return nil
	}

	winnerID, ok := match.WinnerTeamID()
	if !ok {
		return ErrWinnerUndetermined
	}

	unlock := s.locks.Lock(match.TournamentID)
	defer unlock()

	if match.NextMatchID != nil {
		return s.fillExistingNextMatch(ctx, match, winnerID)
	}

	sibling, err := s.matchRepo.FindByRoundPosition(ctx, match.TournamentID, match.Round, match.SiblingPos())
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			// propagation inconsistency: no sibling at the computed slot.
			// Record which side our winner takes and leave the bracket as is
			// rather than creating a half-filled next-round match.
			log.Printf("propagation: sibling of match %d (round %d, pos %d) is missing",
				match.ID, match.Round, match.SiblingPos())
			return s.recordPendingSlot(ctx, match)
		}
		return err
	}

	siblingWinnerID, siblingDecided := sibling.WinnerTeamID()
	if !siblingDecided {
		return s.recordPendingSlot(ctx, match)
	}

	if sibling.NextMatchID != nil {
		// the sibling already advanced into an existing next-round match
		// (created eagerly for adjacent byes); take our slot there.
		next, err := s.matchRepo.GetByID(ctx, *sibling.NextMatchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				log.Printf("propagation: next match %d of sibling %d is missing", *sibling.NextMatchID, sibling.ID)
				return nil
			}
			return err
		}
		toHome := match.BracketPos%2 == 0
		if err := s.writeWinnerSlot(ctx, next, winnerID, toHome); err != nil {
			return err
		}
		if err := s.matchRepo.UpdateNextMatchInfo(ctx, s.db, match.ID, &next.ID, &toHome); err != nil {
			return err
		}
		s.afterAdvance(ctx, match.TournamentID, next.ID)
		return nil
	}

	next, err := s.createNextMatch(ctx, match, sibling, winnerID, siblingWinnerID)
	if err != nil {
		return err
	}

	if match.Stage == models.StageSemiFinal {
		if err := s.ensureThirdPlaceMatch(ctx, match, sibling); err != nil {
			log.Printf("propagation: third place match for tournament %d: %v", match.TournamentID, err)
		}
	}

	s.afterAdvance(ctx, match.TournamentID, next.ID)
	return nil
}

// fillExistingNextMatch writes the winner into the already linked next
// match. Repeated propagation of the same match rewrites the same slot
// with the same value, so retries stay harmless.
func (s *bracketService) fillExistingNextMatch(ctx context.Context, match *models.Match, winnerID int) error {
	next, err := s.matchRepo.GetByID(ctx, *match.NextMatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			log.Printf("propagation: next match %d of match %d is missing", *match.NextMatchID, match.ID)
			return nil
		}
		return err
	}

	toHome := match.BracketPos%2 == 0
	if match.WinnerToHome != nil {
		toHome = *match.WinnerToHome
	}
	if err := s.writeWinnerSlot(ctx, next, winnerID, toHome); err != nil {
		return err
	}
	s.afterAdvance(ctx, match.TournamentID, next.ID)
	return nil
}

func (s *bracketService) writeWinnerSlot(ctx context.Context, next *models.Match, winnerID int, toHome bool) error {
	homeID, awayID := next.HomeTeamID, next.AwayTeamID
	if toHome {
		homeID = winnerID
	} else {
		awayID = winnerID
	}
	if homeID == next.HomeTeamID && awayID == next.AwayTeamID {
		return nil
	}
	return s.matchRepo.UpdateTeams(ctx, s.db, next.ID, homeID, awayID)
}

// recordPendingSlot persists which slot of the future next-round match this
// match's winner occupies; the sibling creates the match when it decides.
func (s *bracketService) recordPendingSlot(ctx context.Context, match *models.Match) error {
	toHome := match.BracketPos%2 == 0
	return s.matchRepo.UpdateNextMatchInfo(ctx, s.db, match.ID, nil, &toHome)
}

func (s *bracketService) createNextMatch(ctx context.Context, match, sibling *models.Match, winnerID, siblingWinnerID int) (*models.Match, error) {
	nextStage, ok := match.Stage.Next()
	if !ok {
		return nil, fmt.Errorf("stage %s has no successor", match.Stage)
	}

	// even bracket position feeds the home slot of the next match
	homeID, awayID := winnerID, siblingWinnerID
	matchToHome := match.BracketPos%2 == 0
	if !matchToHome {
		homeID, awayID = siblingWinnerID, winnerID
	}

	next := &models.Match{
		TournamentID: match.TournamentID,
		HomeTeamID:   homeID,
		AwayTeamID:   awayID,
		Round:        match.Round + 1,
		Stage:        nextStage,
		BracketPos:   match.BracketPos / 2,
		State:        models.MatchCreated,
	}
	if err := s.matchRepo.Create(ctx, s.db, next); err != nil {
		return nil, err
	}

	siblingToHome := !matchToHome
	if err := s.matchRepo.UpdateNextMatchInfo(ctx, s.db, match.ID, &next.ID, &matchToHome); err != nil {
		return nil, err
	}
	if err := s.matchRepo.UpdateNextMatchInfo(ctx, s.db, sibling.ID, &next.ID, &siblingToHome); err != nil {
		return nil, err
	}
	return next, nil
}

// ensureThirdPlaceMatch creates the bronze match from the two semifinal
// losers once both semifinals are decided.
func (s *bracketService) ensureThirdPlaceMatch(ctx context.Context, match, sibling *models.Match) error {
	if _, err := s.matchRepo.FindByStage(ctx, match.TournamentID, models.StageThirdPlace); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrMatchNotFound) {
		return err
	}

	loserA, okA := match.LoserTeamID()
	loserB, okB := sibling.LoserTeamID()
	if !okA || !okB {
		// a semifinal decided by walkover has no loser to seed
		return nil
	}

	homeID, awayID := loserA, loserB
	if match.BracketPos%2 != 0 {
		homeID, awayID = loserB, loserA
	}

	third := &models.Match{
		TournamentID: match.TournamentID,
		HomeTeamID:   homeID,
		AwayTeamID:   awayID,
		Round:        match.Round + 1,
		Stage:        models.StageThirdPlace,
		BracketPos:   1,
		State:        models.MatchCreated,
	}
	return s.matchRepo.Create(ctx, s.db, third)
}

// afterAdvance runs the post-mutation side effects: bump the tournament's
// updated_at and push the bracket change to watchers. Neither failure
// affects the propagation outcome.
func (s *bracketService) afterAdvance(ctx context.Context, tournamentID, nextMatchID int) {
	if err := s.tournamentRepo.Touch(ctx, s.db, tournamentID); err != nil {
		log.Printf("propagation: touch tournament %d: %v", tournamentID, err)
	}
	if s.hub != nil {
		s.hub.BroadcastToRoom(roomID(tournamentID), schedule.Event{
			Type:    schedule.EventBracketAdvanced,
			Payload: map[string]int{"next_match_id": nextMatchID},
		})
	}
}

func (s *bracketService) CheckTournamentCompletion(ctx context.Context, tournament *models.Tournament) error {
	if tournament.Status == models.TournamentFinished || tournament.Status == models.TournamentCancelled {
		return nil
	}

	if tournament.IsPlayoff() {
		return s.checkPlayoffCompletion(ctx, tournament)
	}
	return s.checkLeagueCompletion(ctx, tournament)
}

func (s *bracketService) checkPlayoffCompletion(ctx context.Context, tournament *models.Tournament) error {
	final, err := s.matchRepo.FindByStage(ctx, tournament.ID, models.StageFinal)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil
		}
		return err
	}
	if !final.State.Decided() || !final.HasScores() {
		return nil
	}

	winnerID, ok := final.WinnerTeamID()
	if !ok {
		return nil
	}
	runnerUpID, _ := final.LoserTeamID()

	return s.finishTournament(ctx, tournament, winnerID, runnerUpID)
}

func (s *bracketService) checkLeagueCompletion(ctx context.Context, tournament *models.Tournament) error {
	matches, err := s.matchRepo.ListByTournament(ctx, tournament.ID, nil, nil)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}
	for _, m := range matches {
		if !m.State.Decided() {
			return nil
		}
	}

	teams, err := s.teamRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return err
	}
	standings := CalculateStandings(teams, matches)
	if len(standings) < 2 {
		return nil
	}

	return s.finishTournament(ctx, tournament, standings[0].TeamID, standings[1].TeamID)
}

func (s *bracketService) finishTournament(ctx context.Context, tournament *models.Tournament, winnerID, runnerUpID int) error {
	if err := s.tournamentRepo.UpdateStatus(ctx, s.db, tournament.ID, models.TournamentFinished, false); err != nil {
		return err
	}
	runnerUp := &runnerUpID
	if runnerUpID == 0 {
		runnerUp = nil
	}
	if err := s.tournamentRepo.SetOutcome(ctx, s.db, tournament.ID, &winnerID, runnerUp); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(roomID(tournament.ID), schedule.Event{
			Type:    schedule.EventTournamentFinished,
			Payload: map[string]int{"winner_team_id": winnerID},
		})
	}

	// the announcement runs after the owning mutation and must not block or
	// fail it; each recipient is isolated
	go s.announceCompletion(context.Background(), tournament, winnerID)
	return nil
}

func (s *bracketService) announceCompletion(ctx context.Context, tournament *models.Tournament, winnerID int) {
	teams, err := s.teamRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		log.Printf("completion announce: list teams of tournament %d: %v", tournament.ID, err)
		return
	}

	var winnerName string
	for _, team := range teams {
		if team.ID == winnerID {
			winnerName = team.Name
		}
	}
	message := fmt.Sprintf("Tournament %q has finished. Champion: %s", tournament.Name, winnerName)

	g, gCtx := errgroup.WithContext(ctx)
	for _, team := range teams {
		ownerID := team.OwnerID
		g.Go(func() error {
			user, err := s.userRepo.GetByID(gCtx, ownerID)
			if err != nil {
				log.Printf("completion announce: load user %d: %v", ownerID, err)
				return nil
			}
			if user.ChatID == nil {
				return nil
			}
			if err := s.notifier.Notify(gCtx, *user.ChatID, message); err != nil {
				log.Printf("completion announce: notify user %d: %v", ownerID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *bracketService) CalculateBracketPlacements(ctx context.Context, tournament *models.Tournament) ([]models.TeamStanding, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournament.ID, nil, nil)
	if err != nil {
		return nil, err
	}
	teams, err := s.teamRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return nil, err
	}

	teamsByID := make(map[int]*models.Team, len(teams))
	for _, team := range teams {
		teamsByID[team.ID] = team
	}

	placed := make(map[int]bool, len(teams))
	ordered := make([]int, 0, len(teams))
	place := func(teamID int) {
		if teamID == 0 || placed[teamID] {
			return
		}
		placed[teamID] = true
		ordered = append(ordered, teamID)
	}

	var final, third *models.Match
	var semis []*models.Match
	var quarters []*models.Match
	for _, m := range matches {
		switch m.Stage {
		case models.StageFinal:
			final = m
		case models.StageThirdPlace:
			third = m
		case models.StageSemiFinal:
			semis = append(semis, m)
		case models.StageQuarterFinal:
			quarters = append(quarters, m)
		}
	}

	if final != nil {
		if winner, ok := final.WinnerTeamID(); ok {
			place(winner)
		}
		if loser, ok := final.LoserTeamID(); ok {
			place(loser)
		}
	}
	if third != nil {
		if winner, ok := third.WinnerTeamID(); ok {
			place(winner)
		}
		if loser, ok := third.LoserTeamID(); ok {
			place(loser)
		}
	}
	for _, m := range semis {
		if loser, ok := m.LoserTeamID(); ok {
			place(loser)
		}
	}
	for _, m := range quarters {
		if loser, ok := m.LoserTeamID(); ok {
			place(loser)
		}
	}

	// remaining teams by elimination order: the later a team was knocked
	// out, the higher it places
	for round := maxRound(matches); round >= 1; round-- {
		for _, m := range matches {
			if m.Round != round {
				continue
			}
			if loser, ok := m.LoserTeamID(); ok {
				place(loser)
			}
		}
	}
	for _, team := range teams {
		place(team.ID)
	}

	tallies := CalculateStandings(teams, matches)
	talliesByTeam := make(map[int]models.TeamStanding, len(tallies))
	for _, t := range tallies {
		talliesByTeam[t.TeamID] = t
	}

	placements := make([]models.TeamStanding, 0, len(ordered))
	for i, teamID := range ordered {
		standing := talliesByTeam[teamID]
		standing.TeamID = teamID
		standing.Team = teamsByID[teamID]
		standing.Position = i + 1
		placements = append(placements, standing)
	}
	return placements, nil
}

func maxRound(matches []*models.Match) int {
	max := 0
	for _, m := range matches {
		if m.Round > max {
			max = m.Round
		}
	}
	return max
}
