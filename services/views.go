package services

import (
	"time"

	"github.com/akozhin/matchup/models"
	"github.com/akozhin/matchup/storage"
)

// Проекции для ответов API. Собираются один раз после загрузки связей,
// чтобы сериализация не ходила по ассоциациям.

type UserView struct {
	ID       int    `json:"id"`
	Nickname string `json:"nickname"`
}

type GameView struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	CoverURL *string `json:"cover_url,omitempty"`
}

// MatchView — полное ("long") представление матча.
type MatchView struct {
	ID              int        `json:"id"`
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	IsPrivate       bool       `json:"is_private"`
	MaxParticipants int        `json:"max_participants"`
	CreatorID       int        `json:"creator_id"`
	Creator         *UserView  `json:"creator,omitempty"`
	Game            *GameView  `json:"game,omitempty"`
	TournamentID    *int       `json:"tournament_id,omitempty"`
	Participants    []UserView `json:"participants"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MatchSummary — краткое ("short") представление для списков.
type MatchSummary struct {
	ID              int       `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	IsPrivate       bool      `json:"is_private"`
	MaxParticipants int       `json:"max_participants"`
	GameID          *int      `json:"game_id,omitempty"`
	TournamentID    *int      `json:"tournament_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type TournamentView struct {
	ID              int        `json:"id"`
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	MaxParticipants int        `json:"max_participants"`
	CreatorID       int        `json:"creator_id"`
	Creator         *UserView  `json:"creator,omitempty"`
	Game            *GameView  `json:"game,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	StartDateTz     string     `json:"start_date_tz"`
	Participants    []UserView `json:"participants"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type TournamentSummary struct {
	ID              int        `json:"id"`
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	MaxParticipants int        `json:"max_participants"`
	GameID          *int       `json:"game_id,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func userToView(u *models.User) *UserView {
	if u == nil {
		return nil
	}
	return &UserView{ID: u.ID, Nickname: u.Nickname}
}

func gameToView(g *models.Game, uploader storage.FileUploader) *GameView {
	if g == nil {
		return nil
	}
	view := &GameView{ID: g.ID, Name: g.Name}
	if g.CoverKey != nil && *g.CoverKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*g.CoverKey)
		if url != "" {
			view.CoverURL = &url
		}
	}
	return view
}

func matchToSummary(m models.Match) MatchSummary {
	return MatchSummary{
		ID:              m.ID,
		Code:            m.PublicCode,
		Name:            m.Name,
		IsPrivate:       m.IsPrivate,
		MaxParticipants: m.MaxParticipants,
		GameID:          m.GameID,
		TournamentID:    m.TournamentID,
		CreatedAt:       m.CreatedAt,
	}
}

func tournamentToSummary(t models.Tournament) TournamentSummary {
	return TournamentSummary{
		ID:              t.ID,
		Code:            t.PublicCode,
		Name:            t.Name,
		MaxParticipants: t.MaxParticipants,
		GameID:          t.GameID,
		StartDate:       t.StartDate,
		CreatedAt:       t.CreatedAt,
	}
}
