package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/akozhin/matchup/models"
	"github.com/akozhin/matchup/repositories"
	"github.com/akozhin/matchup/storage"
)

type CreateGameInput struct {
	Name string `json:"name"`
}

type UpdateGameInput struct {
	Name string `json:"name"`
}

type ListGamesInput struct {
	SearchTerm *string
	Limit      int
	Offset     int
}

type GameService interface {
	// ResolveGame идемпотентно находит или создаёт игру: сперва по id,
	// затем по имени (точное совпадение без регистра, имя обрезается),
	// иначе создаёт новую. Работает внутри транзакции вызывающего: новая
	// игра не переживёт откат создания матча или турнира.
	ResolveGame(ctx context.Context, exec repositories.SQLExecutor, gameID *int, gameName *string) (*models.Game, error)

	// CreateGame возвращает существующую игру с тем же именем (existing=true)
	// вместо ошибки дубликата: обработчик отвечает редиректом на неё.
	CreateGame(ctx context.Context, input CreateGameInput) (game *models.Game, existing bool, err error)
	GetGameByID(ctx context.Context, id int) (*models.Game, error)
	ListGames(ctx context.Context, input ListGamesInput) ([]models.Game, int, error)
	UpdateGame(ctx context.Context, id int, input UpdateGameInput) (*models.Game, error)
	DeleteGame(ctx context.Context, id int) error
	UploadCover(ctx context.Context, gameID int, contentType string, file io.Reader) (*models.Game, error)
}

type gameService struct {
	gameRepo repositories.GameRepository
	uploader storage.FileUploader
}

func NewGameService(gameRepo repositories.GameRepository, uploader storage.FileUploader) GameService {
	return &gameService{
		gameRepo: gameRepo,
		uploader: uploader,
	}
}

func (s *gameService) ResolveGame(ctx context.Context, exec repositories.SQLExecutor, gameID *int, gameName *string) (*models.Game, error) {
	if gameID != nil {
		game, err := s.gameRepo.GetByID(ctx, exec, *gameID)
		if err == nil {
			return game, nil
		}
		if !errors.Is(err, repositories.ErrGameNotFound) {
			return nil, fmt.Errorf("failed to resolve game by id %d: %w", *gameID, err)
		}
		// id не нашёлся — пробуем имя
	}

	name := normalizeName(derefString(gameName))
	if name == "" {
		if gameID != nil {
			return nil, ErrGameNotFound
		}
		return nil, nil
	}

	game, err := s.gameRepo.FindByName(ctx, exec, name)
	if err == nil {
		return game, nil
	}
	if !errors.Is(err, repositories.ErrGameNotFound) {
		return nil, fmt.Errorf("failed to resolve game by name %q: %w", name, err)
	}

	game = &models.Game{Name: name}
	if err := s.gameRepo.Create(ctx, exec, game); err != nil {
		if errors.Is(err, repositories.ErrGameNameConflict) {
			// Параллельное создание выиграло гонку — берём его результат.
			return s.gameRepo.FindByName(ctx, exec, name)
		}
		return nil, fmt.Errorf("failed to create game %q: %w", name, err)
	}
	return game, nil
}

func (s *gameService) CreateGame(ctx context.Context, input CreateGameInput) (*models.Game, bool, error) {
	name := normalizeName(input.Name)
	if name == "" {
		return nil, false, ErrNameRequired
	}

	game, err := s.gameRepo.FindByName(ctx, nil, name)
	if err == nil {
		s.populateCoverURL(game)
		return game, true, nil
	}
	if !errors.Is(err, repositories.ErrGameNotFound) {
		return nil, false, fmt.Errorf("failed to look up game %q: %w", name, err)
	}

	game = &models.Game{Name: name}
	if err := s.gameRepo.Create(ctx, nil, game); err != nil {
		if errors.Is(err, repositories.ErrGameNameConflict) {
			existing, findErr := s.gameRepo.FindByName(ctx, nil, name)
			if findErr != nil {
				return nil, false, findErr
			}
			s.populateCoverURL(existing)
			return existing, true, nil
		}
		return nil, false, fmt.Errorf("failed to create game: %w", err)
	}
	return game, false, nil
}

func (s *gameService) GetGameByID(ctx context.Context, id int) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	s.populateCoverURL(game)
	return game, nil
}

func (s *gameService) ListGames(ctx context.Context, input ListGamesInput) ([]models.Game, int, error) {
	games, total, err := s.gameRepo.List(ctx, repositories.ListGamesFilter{
		SearchTerm: input.SearchTerm,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list games: %w", err)
	}
	for i := range games {
		s.populateCoverURL(&games[i])
	}
	return games, total, nil
}

func (s *gameService) UpdateGame(ctx context.Context, id int, input UpdateGameInput) (*models.Game, error) {
	name := normalizeName(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	game := &models.Game{ID: id, Name: name}
	if err := s.gameRepo.Update(ctx, game); err != nil {
		switch {
		case errors.Is(err, repositories.ErrGameNotFound):
			return nil, ErrGameNotFound
		case errors.Is(err, repositories.ErrGameNameConflict):
			return nil, ErrGameNameConflict
		default:
			return nil, fmt.Errorf("failed to update game %d: %w", id, err)
		}
	}
	return s.GetGameByID(ctx, id)
}

func (s *gameService) DeleteGame(ctx context.Context, id int) error {
	game, err := s.gameRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return ErrGameNotFound
		}
		return fmt.Errorf("failed to get game %d: %w", id, err)
	}

	if err := s.gameRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return ErrGameNotFound
		}
		return fmt.Errorf("failed to delete game %d: %w", id, err)
	}

	if game.CoverKey != nil && s.uploader != nil {
		if delErr := s.uploader.Delete(ctx, *game.CoverKey); delErr != nil {
			// Осиротевший объект в хранилище не блокирует удаление записи.
			return nil
		}
	}
	return nil
}

func (s *gameService) UploadCover(ctx context.Context, gameID int, contentType string, file io.Reader) (*models.Game, error) {
	if s.uploader == nil {
		return nil, ErrCoverUploadUnavailable
	}

	game, err := s.gameRepo.GetByID(ctx, nil, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %d: %w", gameID, err)
	}

	var ext string
	switch contentType {
	case "image/png":
		ext = "png"
	case "image/jpeg":
		ext = "jpg"
	default:
		return nil, ErrCoverInvalidType
	}

	key := fmt.Sprintf("games/%d/cover.%s", gameID, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload cover for game %d: %w", gameID, err)
	}

	oldKey := game.CoverKey
	if err := s.gameRepo.UpdateCoverKey(ctx, gameID, &key); err != nil {
		return nil, fmt.Errorf("failed to save cover key for game %d: %w", gameID, err)
	}
	if oldKey != nil && *oldKey != key {
		_ = s.uploader.Delete(ctx, *oldKey)
	}

	game.CoverKey = &key
	s.populateCoverURL(game)
	return game, nil
}

func (s *gameService) populateCoverURL(game *models.Game) {
	if game != nil && game.CoverKey != nil && *game.CoverKey != "" && s.uploader != nil {
		url := s.uploader.GetPublicURL(*game.CoverKey)
		if url != "" {
			game.CoverURL = &url
		}
	}
}
