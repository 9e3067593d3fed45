package models

import "time"

// Tournament — соревновательная сетка. Матчи могут ссылаться на турнир,
// при удалении турнира ссылка обнуляется.
type Tournament struct {
	ID              int        `json:"id" db:"id"`
	PublicCode      string     `json:"code" db:"public_code"`
	Name            string     `json:"name" db:"name"`
	CreatorID       int        `json:"creator_id" db:"creator_id"`
	GameID          *int       `json:"game_id,omitempty" db:"game_id"`
	MaxParticipants int        `json:"max_participants" db:"max_participants"`
	StartDate       *time.Time `json:"start_date,omitempty" db:"start_date"`
	StartDateTz     string     `json:"start_date_tz" db:"start_date_tz"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`

	Creator      *User                   `json:"creator,omitempty" db:"-"`
	Game         *Game                   `json:"game,omitempty" db:"-"`
	Participants []TournamentParticipant `json:"participants,omitempty" db:"-"`
}
