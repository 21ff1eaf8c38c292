package models

import "time"

type UserRole string

const (
	RoleOrganizer UserRole = "organizer"
	RolePlayer    UserRole = "player"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	Nickname     string    `json:"nickname" db:"nickname"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// ChatID is the opaque delivery address used by the notifier
	// (a Telegram chat id for the current sender). Nil means the user
	// never linked a chat and is skipped by notifications.
	ChatID *string `json:"-" db:"chat_id"`
}
