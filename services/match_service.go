package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akozhin/matchup/models"
	"github.com/akozhin/matchup/repositories"
	"github.com/akozhin/matchup/storage"
	"golang.org/x/sync/errgroup"
)

// Действия PATCH-запроса. Значение выбирает единственный атомарный переход.
const (
	ActionJoin    = "join"
	ActionDisjoin = "disjoin"
	ActionEdit    = "edit"
)

const defaultMaxParticipants = 2

type CreateMatchInput struct {
	Name            string  `json:"name"`
	GameID          *int    `json:"gameId"`
	GameName        *string `json:"gameName"`
	MaxParticipants *int    `json:"maxParticipants"`
	IsPrivate       *bool   `json:"isPrivate"`
	TournamentID    *int    `json:"tournamentId"`
}

type UpdateMatchInput struct {
	Action          string  `json:"action"`
	Name            *string `json:"name"`
	MaxParticipants *int    `json:"maxParticipants"`
	IsPrivate       *bool   `json:"isPrivate"`
	GameID          *int    `json:"gameId"`
	GameName        *string `json:"gameName"`
	ClearGame       bool    `json:"clearGame"`
	AddUserIDs      []int   `json:"addUserIds"`
	RemoveUserIDs   []int   `json:"removeUserIds"`
}

type ListMatchesInput struct {
	SearchTerm *string
	Limit      int
	Offset     int
}

type MatchService interface {
	CreateMatch(ctx context.Context, actor Actor, input CreateMatchInput) (*MatchView, error)
	GetMatchByID(ctx context.Context, id int) (*MatchView, error)
	ListMatches(ctx context.Context, input ListMatchesInput) ([]MatchSummary, int, error)

	// UpdateMatch диспетчеризует по input.Action. Для join/disjoin
	// возвращает (nil, nil): пустое подтверждение успеха. Для edit —
	// обновлённое полное представление.
	UpdateMatch(ctx context.Context, actor Actor, matchID int, input UpdateMatchInput) (*MatchView, error)
	DeleteMatch(ctx context.Context, actor Actor, matchID int) error
}

type matchService struct {
	db              *sql.DB
	matchRepo       repositories.MatchRepository
	participantRepo repositories.MatchParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	userRepo        repositories.UserRepository
	gameService     GameService
	roster          *RosterManager
	codes           *CodeGenerator
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.MatchParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	gameService GameService,
	codes *CodeGenerator,
	uploader storage.FileUploader,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:              db,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		userRepo:        userRepo,
		gameService:     gameService,
		roster:          NewRosterManager(participantRepo, userRepo, ErrMatchFull),
		codes:           codes,
		uploader:        uploader,
		logger:          logger,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, actor Actor, input CreateMatchInput) (*MatchView, error) {
	name := normalizeName(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	maxParticipants := defaultMaxParticipants
	if input.MaxParticipants != nil {
		maxParticipants = *input.MaxParticipants
	}
	if maxParticipants < 1 {
		return nil, ErrInvalidMaxParticipants
	}

	isPrivate := false
	if input.IsPrivate != nil {
		isPrivate = *input.IsPrivate
	}

	var view *MatchView
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		game, err := s.gameService.ResolveGame(ctx, tx, input.GameID, input.GameName)
		if err != nil {
			return err
		}

		if input.TournamentID != nil {
			tournament, err := s.tournamentRepo.GetByID(ctx, tx, *input.TournamentID)
			if err != nil {
				if errors.Is(err, repositories.ErrTournamentNotFound) {
					return ErrTournamentNotFound
				}
				return fmt.Errorf("failed to check tournament %d: %w", *input.TournamentID, err)
			}
			// Привязать матч к турниру может только его создатель.
			if tournament.CreatorID != actor.UserID {
				return ErrForbiddenOperation
			}
		}

		match := &models.Match{
			Name:            name,
			CreatorID:       actor.UserID,
			IsPrivate:       isPrivate,
			MaxParticipants: maxParticipants,
			TournamentID:    input.TournamentID,
		}
		if game != nil {
			match.GameID = &game.ID
		}

		if err := s.insertWithFreshCode(ctx, tx, match); err != nil {
			return err
		}

		view, err = s.buildMatchView(ctx, tx, match)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match created",
		slog.Int("match_id", view.ID),
		slog.String("code", view.Code),
		slog.Int("creator_id", actor.UserID),
	)
	return view, nil
}

// insertWithFreshCode чеканит код и вставляет матч. Уникальный индекс на
// public_code — решающая защита: проигранную гонку видно как конфликт
// вставки, тогда код чеканится заново.
func (s *matchService) insertWithFreshCode(ctx context.Context, tx *sql.Tx, match *models.Match) error {
	const insertAttempts = 3

	for attempt := 0; attempt < insertAttempts; attempt++ {
		code, err := s.codes.MintUnique(ctx, tx, 'm', s.matchRepo.CodeExists)
		if err != nil {
			return err
		}
		match.PublicCode = code

		err = s.matchRepo.Create(ctx, tx, match)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repositories.ErrMatchCodeConflict) {
			return fmt.Errorf("failed to create match: %w", err)
		}
	}
	return ErrCodeExhausted
}

func (s *matchService) GetMatchByID(ctx context.Context, id int) (*MatchView, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}

	// Связи грузятся параллельно: вне транзакции это безопасно.
	var (
		participants []models.MatchParticipant
		creator      *models.User
		game         *models.Game
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByMatch(gctx, nil, match.ID)
		return err
	})
	g.Go(func() error {
		var err error
		creator, err = s.userRepo.GetByID(gctx, nil, match.CreatorID)
		return err
	})
	if match.GameID != nil {
		gameID := *match.GameID
		g.Go(func() error {
			loaded, err := s.gameService.GetGameByID(gctx, gameID)
			if err != nil {
				// Игра могла исчезнуть между чтениями; матч живёт без неё.
				if errors.Is(err, ErrGameNotFound) {
					return nil
				}
				return err
			}
			game = loaded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load match %d details: %w", id, err)
	}

	match.Participants = participants
	match.Creator = creator
	match.Game = game
	return s.assembleMatchView(match), nil
}

func (s *matchService) ListMatches(ctx context.Context, input ListMatchesInput) ([]MatchSummary, int, error) {
	matches, total, err := s.matchRepo.List(ctx, repositories.ListMatchesFilter{
		SearchTerm: input.SearchTerm,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list matches: %w", err)
	}

	summaries := make([]MatchSummary, 0, len(matches))
	for _, m := range matches {
		summaries = append(summaries, matchToSummary(m))
	}
	return summaries, total, nil
}

func (s *matchService) UpdateMatch(ctx context.Context, actor Actor, matchID int, input UpdateMatchInput) (*MatchView, error) {
	if input.Action == "" {
		return nil, ErrActionRequired
	}

	var view *MatchView
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		match, err := s.matchRepo.GetByID(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to get match %d: %w", matchID, err)
		}

		switch input.Action {
		case ActionJoin:
			return s.roster.Join(ctx, tx, match.ID, match.MaxParticipants, actor.UserID)

		case ActionDisjoin:
			return s.roster.Disjoin(ctx, tx, match.ID, actor.UserID)

		case ActionEdit:
			if err := s.applyEdit(ctx, tx, actor, match, input); err != nil {
				return err
			}
			view, err = s.buildMatchView(ctx, tx, match)
			return err

		default:
			return ErrUnsupportedAction
		}
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *matchService) applyEdit(ctx context.Context, tx *sql.Tx, actor Actor, match *models.Match, input UpdateMatchInput) error {
	if match.CreatorID != actor.UserID && !actor.HasScope(ScopeUpdateAnyMatch) {
		return ErrForbiddenOperation
	}

	if input.Name != nil {
		name := normalizeName(*input.Name)
		if name == "" {
			return ErrNameRequired
		}
		match.Name = name
	}
	if input.MaxParticipants != nil {
		if *input.MaxParticipants < 1 {
			return ErrInvalidMaxParticipants
		}
		match.MaxParticipants = *input.MaxParticipants
	}
	if input.IsPrivate != nil {
		match.IsPrivate = *input.IsPrivate
	}

	switch {
	case input.ClearGame:
		match.GameID = nil
	case input.GameID != nil || input.GameName != nil:
		game, err := s.gameService.ResolveGame(ctx, tx, input.GameID, input.GameName)
		if err != nil {
			return err
		}
		if game != nil {
			match.GameID = &game.ID
		}
	}

	if err := s.matchRepo.Update(ctx, tx, match); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to update match %d: %w", match.ID, err)
	}

	if err := s.roster.RemoveMany(ctx, tx, match.ID, input.RemoveUserIDs); err != nil {
		return err
	}
	if err := s.roster.AddMany(ctx, tx, match.ID, match.MaxParticipants, input.AddUserIDs); err != nil {
		return err
	}

	// Сжатие вместимости не должно нарушить инвариант count <= max.
	count, err := s.participantRepo.Count(ctx, tx, match.ID)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}
	if count > match.MaxParticipants {
		return ErrRosterExceedsMaxParticipants
	}
	return nil
}

func (s *matchService) DeleteMatch(ctx context.Context, actor Actor, matchID int) error {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to get match %d: %w", matchID, err)
	}

	if match.CreatorID != actor.UserID && !actor.HasScope(ScopeDeleteAnyMatch) {
		return ErrForbiddenOperation
	}

	// Записи членства уходят каскадом вместе с матчем.
	if err := s.matchRepo.Delete(ctx, matchID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to delete match %d: %w", matchID, err)
	}

	s.logger.Info("match deleted",
		slog.Int("match_id", matchID),
		slog.Int("actor_id", actor.UserID),
	)
	return nil
}

// buildMatchView загружает связи последовательно через exec — пригодно
// внутри транзакции (sql.Tx не рассчитан на параллельные запросы).
func (s *matchService) buildMatchView(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*MatchView, error) {
	participants, err := s.participantRepo.ListByMatch(ctx, exec, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	match.Participants = participants

	creator, err := s.userRepo.GetByID(ctx, exec, match.CreatorID)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to load creator: %w", err)
	}
	match.Creator = creator

	if match.GameID != nil {
		game, err := s.gameService.ResolveGame(ctx, exec, match.GameID, nil)
		if err != nil {
			return nil, err
		}
		match.Game = game
	}
	return s.assembleMatchView(match), nil
}

func (s *matchService) assembleMatchView(match *models.Match) *MatchView {
	view := &MatchView{
		ID:              match.ID,
		Code:            match.PublicCode,
		Name:            match.Name,
		IsPrivate:       match.IsPrivate,
		MaxParticipants: match.MaxParticipants,
		CreatorID:       match.CreatorID,
		Creator:         userToView(match.Creator),
		Game:            gameToView(match.Game, s.uploader),
		TournamentID:    match.TournamentID,
		Participants:    make([]UserView, 0, len(match.Participants)),
		CreatedAt:       match.CreatedAt,
		UpdatedAt:       match.UpdatedAt,
	}
	for _, p := range match.Participants {
		if p.User != nil {
			view.Participants = append(view.Participants, *userToView(p.User))
		}
	}
	return view
}
