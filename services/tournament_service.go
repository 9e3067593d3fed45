package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/akozhin/matchup/models"
	"github.com/akozhin/matchup/repositories"
	"github.com/akozhin/matchup/storage"
	"golang.org/x/sync/errgroup"
)

const defaultStartDateTz = "+00:00"

type CreateTournamentInput struct {
	Name            string  `json:"name"`
	GameID          *int    `json:"gameId"`
	GameName        *string `json:"gameName"`
	MaxParticipants *int    `json:"maxParticipants"`
	StartDate       *string `json:"startDate"`
	StartDateTz     *string `json:"startDateTz"`
}

type UpdateTournamentInput struct {
	Action          string  `json:"action"`
	Name            *string `json:"name"`
	MaxParticipants *int    `json:"maxParticipants"`
	GameID          *int    `json:"gameId"`
	GameName        *string `json:"gameName"`
	ClearGame       bool    `json:"clearGame"`
	StartDate       *string `json:"startDate"`
	StartDateTz     *string `json:"startDateTz"`
	AddUserIDs      []int   `json:"addUserIds"`
	RemoveUserIDs   []int   `json:"removeUserIds"`
}

type ListTournamentsInput struct {
	SearchTerm *string
	Limit      int
	Offset     int
}

type TournamentService interface {
	CreateTournament(ctx context.Context, actor Actor, input CreateTournamentInput) (*TournamentView, error)
	GetTournamentByID(ctx context.Context, id int) (*TournamentView, error)
	ListTournaments(ctx context.Context, input ListTournamentsInput) ([]TournamentSummary, int, error)
	UpdateTournament(ctx context.Context, actor Actor, tournamentID int, input UpdateTournamentInput) (*TournamentView, error)
	DeleteTournament(ctx context.Context, actor Actor, tournamentID int) error
}

type tournamentService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.TournamentParticipantRepository
	userRepo        repositories.UserRepository
	gameService     GameService
	roster          *RosterManager
	codes           *CodeGenerator
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.TournamentParticipantRepository,
	userRepo repositories.UserRepository,
	gameService GameService,
	codes *CodeGenerator,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		gameService:     gameService,
		roster:          NewRosterManager(participantRepo, userRepo, ErrTournamentFull),
		codes:           codes,
		uploader:        uploader,
		logger:          logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, actor Actor, input CreateTournamentInput) (*TournamentView, error) {
	name := normalizeName(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	// В отличие от матчей, у турниров вместимость обязательна.
	if input.MaxParticipants == nil {
		return nil, ErrMaxParticipantsRequired
	}
	if *input.MaxParticipants < 1 {
		return nil, ErrInvalidMaxParticipants
	}

	startDate, err := parseStartDate(input.StartDate)
	if err != nil {
		return nil, err
	}

	startDateTz := defaultStartDateTz
	if input.StartDateTz != nil {
		if err := validateTimezoneOffset(*input.StartDateTz); err != nil {
			return nil, err
		}
		startDateTz = *input.StartDateTz
	}

	var view *TournamentView
	err = runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		game, err := s.gameService.ResolveGame(ctx, tx, input.GameID, input.GameName)
		if err != nil {
			return err
		}

		tournament := &models.Tournament{
			Name:            name,
			CreatorID:       actor.UserID,
			MaxParticipants: *input.MaxParticipants,
			StartDate:       startDate,
			StartDateTz:     startDateTz,
		}
		if game != nil {
			tournament.GameID = &game.ID
		}

		if err := s.insertWithFreshCode(ctx, tx, tournament); err != nil {
			return err
		}

		view, err = s.buildTournamentView(ctx, tx, tournament)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", view.ID),
		slog.String("code", view.Code),
		slog.Int("creator_id", actor.UserID),
	)
	return view, nil
}

func (s *tournamentService) insertWithFreshCode(ctx context.Context, tx *sql.Tx, tournament *models.Tournament) error {
	const insertAttempts = 3

	for attempt := 0; attempt < insertAttempts; attempt++ {
		code, err := s.codes.MintUnique(ctx, tx, 't', s.tournamentRepo.CodeExists)
		if err != nil {
			return err
		}
		tournament.PublicCode = code

		err = s.tournamentRepo.Create(ctx, tx, tournament)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repositories.ErrTournamentCodeConflict) {
			return fmt.Errorf("failed to create tournament: %w", err)
		}
	}
	return ErrCodeExhausted
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*TournamentView, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}

	var (
		participants []models.TournamentParticipant
		creator      *models.User
		game         *models.Game
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByTournament(gctx, nil, tournament.ID)
		return err
	})
	g.Go(func() error {
		var err error
		creator, err = s.userRepo.GetByID(gctx, nil, tournament.CreatorID)
		return err
	})
	if tournament.GameID != nil {
		gameID := *tournament.GameID
		g.Go(func() error {
			loaded, err := s.gameService.GetGameByID(gctx, gameID)
			if err != nil {
				// Игра могла исчезнуть между чтениями; турнир живёт без неё.
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
		return nil, fmt.Errorf("failed to load tournament %d details: %w", id, err)
	}

	tournament.Participants = participants
	tournament.Creator = creator
	tournament.Game = game
	return s.assembleTournamentView(tournament), nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, input ListTournamentsInput) ([]TournamentSummary, int, error) {
	tournaments, total, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
		SearchTerm: input.SearchTerm,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tournaments: %w", err)
	}

	summaries := make([]TournamentSummary, 0, len(tournaments))
	for _, t := range tournaments {
		summaries = append(summaries, tournamentToSummary(t))
	}
	return summaries, total, nil
}

func (s *tournamentService) UpdateTournament(ctx context.Context, actor Actor, tournamentID int, input UpdateTournamentInput) (*TournamentView, error) {
	if input.Action == "" {
		return nil, ErrActionRequired
	}

	var view *TournamentView
	err := runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
		}

		switch input.Action {
		case ActionJoin:
			return s.roster.Join(ctx, tx, tournament.ID, tournament.MaxParticipants, actor.UserID)

		case ActionDisjoin:
			return s.roster.Disjoin(ctx, tx, tournament.ID, actor.UserID)

		case ActionEdit:
			if err := s.applyEdit(ctx, tx, actor, tournament, input); err != nil {
				return err
			}
			view, err = s.buildTournamentView(ctx, tx, tournament)
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

func (s *tournamentService) applyEdit(ctx context.Context, tx *sql.Tx, actor Actor, tournament *models.Tournament, input UpdateTournamentInput) error {
	if tournament.CreatorID != actor.UserID && !actor.HasScope(ScopeUpdateAnyTourney) {
		return ErrForbiddenOperation
	}

	if input.Name != nil {
		name := normalizeName(*input.Name)
		if name == "" {
			return ErrNameRequired
		}
		tournament.Name = name
	}
	if input.MaxParticipants != nil {
		if *input.MaxParticipants < 1 {
			return ErrInvalidMaxParticipants
		}
		tournament.MaxParticipants = *input.MaxParticipants
	}
	if input.StartDate != nil {
		startDate, err := parseStartDate(input.StartDate)
		if err != nil {
			return err
		}
		tournament.StartDate = startDate
	}
	if input.StartDateTz != nil {
		if err := validateTimezoneOffset(*input.StartDateTz); err != nil {
			return err
		}
		tournament.StartDateTz = *input.StartDateTz
	}

	switch {
	case input.ClearGame:
		tournament.GameID = nil
	case input.GameID != nil || input.GameName != nil:
		game, err := s.gameService.ResolveGame(ctx, tx, input.GameID, input.GameName)
		if err != nil {
			return err
		}
		if game != nil {
			tournament.GameID = &game.ID
		}
	}

	if err := s.tournamentRepo.Update(ctx, tx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to update tournament %d: %w", tournament.ID, err)
	}

	if err := s.roster.RemoveMany(ctx, tx, tournament.ID, input.RemoveUserIDs); err != nil {
		return err
	}
	if err := s.roster.AddMany(ctx, tx, tournament.ID, tournament.MaxParticipants, input.AddUserIDs); err != nil {
		return err
	}

	count, err := s.participantRepo.Count(ctx, tx, tournament.ID)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}
	if count > tournament.MaxParticipants {
		return ErrRosterExceedsMaxParticipants
	}
	return nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, actor Actor, tournamentID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}

	if tournament.CreatorID != actor.UserID && !actor.HasScope(ScopeDeleteAnyTourney) {
		return ErrForbiddenOperation
	}

	// Членство уходит каскадом; у матчей турнира обнуляется tournament_id.
	if err := s.tournamentRepo.Delete(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %d: %w", tournamentID, err)
	}

	s.logger.Info("tournament deleted",
		slog.Int("tournament_id", tournamentID),
		slog.Int("actor_id", actor.UserID),
	)
	return nil
}

func (s *tournamentService) buildTournamentView(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) (*TournamentView, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, exec, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	tournament.Participants = participants

	creator, err := s.userRepo.GetByID(ctx, exec, tournament.CreatorID)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to load creator: %w", err)
	}
	tournament.Creator = creator

	if tournament.GameID != nil {
		game, err := s.gameService.ResolveGame(ctx, exec, tournament.GameID, nil)
		if err != nil {
			return nil, err
		}
		tournament.Game = game
	}
	return s.assembleTournamentView(tournament), nil
}

func (s *tournamentService) assembleTournamentView(tournament *models.Tournament) *TournamentView {
	view := &TournamentView{
		ID:              tournament.ID,
		Code:            tournament.PublicCode,
		Name:            tournament.Name,
		MaxParticipants: tournament.MaxParticipants,
		CreatorID:       tournament.CreatorID,
		Creator:         userToView(tournament.Creator),
		Game:            gameToView(tournament.Game, s.uploader),
		StartDate:       tournament.StartDate,
		StartDateTz:     tournament.StartDateTz,
		Participants:    make([]UserView, 0, len(tournament.Participants)),
		CreatedAt:       tournament.CreatedAt,
		UpdatedAt:       tournament.UpdatedAt,
	}
	for _, p := range tournament.Participants {
		if p.User != nil {
			view.Participants = append(view.Participants, *userToView(p.User))
		}
	}
	return view
}

func parseStartDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, ErrInvalidStartDate
	}
	return &parsed, nil
}
