package models

import "time"

// Записи членства. Пара (user, match) и (user, tournament) уникальны —
// это закреплено уникальными индексами в БД.

type MatchParticipant struct {
	ID       int       `json:"id" db:"id"`
	MatchID  int       `json:"match_id" db:"match_id"`
	UserID   int       `json:"user_id" db:"user_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
}

type TournamentParticipant struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	JoinedAt     time.Time `json:"joined_at" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
}
