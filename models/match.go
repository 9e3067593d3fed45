package models

import "time"

// Match — игровая сессия. PublicCode присваивается один раз при создании
// и глобально уникален.
type Match struct {
	ID              int       `json:"id" db:"id"`
	PublicCode      string    `json:"code" db:"public_code"`
	Name            string    `json:"name" db:"name"`
	CreatorID       int       `json:"creator_id" db:"creator_id"`
	GameID          *int      `json:"game_id,omitempty" db:"game_id"`
	IsPrivate       bool      `json:"is_private" db:"is_private"`
	MaxParticipants int       `json:"max_participants" db:"max_participants"`
	TournamentID    *int      `json:"tournament_id,omitempty" db:"tournament_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Creator      *User              `json:"creator,omitempty" db:"-"`
	Game         *Game              `json:"game,omitempty" db:"-"`
	Participants []MatchParticipant `json:"participants,omitempty" db:"-"`
}
