package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/matchplay/tournament-engine/models"
	"github.com/matchplay/tournament-engine/notifications"
	"github.com/matchplay/tournament-engine/repositories"
	"github.com/matchplay/tournament-engine/schedule"
)

// TournamentLocks serializes mutations per tournament. Result approval and
// winner propagation for sibling matches may arrive concurrently and both
// attempt to read-then-create the same next-round match; holding the
// tournament's mutex across that sequence keeps the bracket consistent.
// Operations on different tournaments proceed independently.
type TournamentLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewTournamentLocks() *TournamentLocks {
	return &TournamentLocks{locks: make(map[int]*sync.Mutex)}
}

// Lock acquires the mutex of one tournament and returns its unlock func.
func (l *TournamentLocks) Lock(tournamentID int) func() {
	l.mu.Lock()
	m, ok := l.locks[tournamentID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[tournamentID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// roomID names the websocket room of a tournament.
func roomID(tournamentID int) string {
	return schedule.RoomForTournament(tournamentID)
}

// notifyUser delivers a message to one user in the background. Delivery
// failures are logged and never reach the calling operation. Users without
// a linked chat are skipped.
func notifyUser(notifier notifications.Notifier, user *models.User, message string) {
	if notifier == nil || user == nil || user.ChatID == nil {
		return
	}
	address := *user.ChatID
	go func() {
		if err := notifier.Notify(context.Background(), address, message); err != nil {
			log.Printf("notification to user %d failed: %v", user.ID, err)
		}
	}()
}

// mapRepoNotFound rewrites a repository not-found into the service-level
// sentinel so handlers see one error family.
func mapRepoNotFound(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrResultNotFound):
		return ErrResultNotFound
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	}
	return err
}
