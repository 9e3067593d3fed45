package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/akozhin/matchup/models"
	"github.com/akozhin/matchup/repositories"
)

func newTestMatchService() MatchService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMatchService(nil, nil, nil, nil, nil, nil, NewCodeGenerator(), nil, logger)
}

func TestCreateMatchRequiresName(t *testing.T) {
	s := newTestMatchService()

	_, err := s.CreateMatch(context.Background(), Actor{UserID: 1}, CreateMatchInput{Name: "   "})
	if !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestCreateMatchRejectsInvalidCapacity(t *testing.T) {
	s := newTestMatchService()

	for _, max := range []int{0, -3} {
		_, err := s.CreateMatch(context.Background(), Actor{UserID: 1}, CreateMatchInput{
			Name:            "Friday night",
			MaxParticipants: intPtr(max),
		})
		if !errors.Is(err, ErrInvalidMaxParticipants) {
			t.Errorf("maxParticipants=%d: expected ErrInvalidMaxParticipants, got %v", max, err)
		}
	}
}

func TestUpdateMatchRequiresAction(t *testing.T) {
	s := newTestMatchService()

	_, err := s.UpdateMatch(context.Background(), Actor{UserID: 1}, 1, UpdateMatchInput{})
	if !errors.Is(err, ErrActionRequired) {
		t.Fatalf("expected ErrActionRequired, got %v", err)
	}
}

func TestDeleteMatchForbiddenForNonCreator(t *testing.T) {
	deleteCalled := false
	matchRepo := &mockMatchRepository{
		getByIDFunc: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
			return &models.Match{ID: id, CreatorID: 7, MaxParticipants: 2}, nil
		},
		deleteFunc: func(ctx context.Context, id int) error {
			deleteCalled = true
			return nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewMatchService(nil, matchRepo, nil, nil, nil, nil, NewCodeGenerator(), nil, logger)

	err := s.DeleteMatch(context.Background(), Actor{UserID: 2}, 10)
	if !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("expected ErrForbiddenOperation, got %v", err)
	}
	if deleteCalled {
		t.Error("repository Delete must not be called for a forbidden actor")
	}
}

func TestDeleteMatchAllowsDeleteAnyScope(t *testing.T) {
	var deletedID int
	matchRepo := &mockMatchRepository{
		getByIDFunc: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
			return &models.Match{ID: id, CreatorID: 7, MaxParticipants: 2}, nil
		},
		deleteFunc: func(ctx context.Context, id int) error {
			deletedID = id
			return nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewMatchService(nil, matchRepo, nil, nil, nil, nil, NewCodeGenerator(), nil, logger)

	actor := Actor{UserID: 2, Scopes: []string{ScopeDeleteAnyMatch}}
	if err := s.DeleteMatch(context.Background(), actor, 10); err != nil {
		t.Fatalf("expected delete to succeed for delete:any-match, got %v", err)
	}
	if deletedID != 10 {
		t.Errorf("expected repository Delete for match 10, got %d", deletedID)
	}
}

func TestUpdateMatchRejectsUnknownAction(t *testing.T) {
	matchRepo := &mockMatchRepository{
		getByIDFunc: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
			return &models.Match{ID: id, CreatorID: 1, MaxParticipants: 2}, nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewMatchService(newStubDB(t), matchRepo, nil, nil, nil, nil, NewCodeGenerator(), nil, logger)

	_, err := s.UpdateMatch(context.Background(), Actor{UserID: 1}, 10, UpdateMatchInput{Action: "promote"})
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("expected ErrUnsupportedAction, got %v", err)
	}
}

func TestUpdateMatchEditForbiddenForNonCreator(t *testing.T) {
	updateCalled := false
	matchRepo := &mockMatchRepository{
		getByIDFunc: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
			return &models.Match{ID: id, CreatorID: 7, MaxParticipants: 2}, nil
		},
		updateFunc: func(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
			updateCalled = true
			return nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewMatchService(newStubDB(t), matchRepo, nil, nil, nil, nil, NewCodeGenerator(), nil, logger)

	_, err := s.UpdateMatch(context.Background(), Actor{UserID: 2}, 10, UpdateMatchInput{
		Action: ActionEdit,
		Name:   strPtr("Hijacked"),
	})
	if !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("expected ErrForbiddenOperation, got %v", err)
	}
	if updateCalled {
		t.Error("repository Update must not be called for a forbidden actor")
	}
}

func TestUpdateMatchEditAllowsUpdateAnyScope(t *testing.T) {
	var savedName string
	matchRepo := &mockMatchRepository{
		getByIDFunc: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
			return &models.Match{ID: id, CreatorID: 7, Name: "Old name", MaxParticipants: 2}, nil
		},
		updateFunc: func(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
			savedName = match.Name
			return nil
		},
	}
	participantRepo := &mockMatchParticipantRepository{
		mockRosterStore: mockRosterStore{
			countFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID int) (int, error) {
				return 0, nil
			},
		},
		listByMatchFunc: func(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]models.MatchParticipant, error) {
			return nil, nil
		},
	}
	userRepo := &mockUserRepository{
		getByIDFunc: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error) {
			return &models.User{ID: id, Nickname: "creator"}, nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewMatchService(newStubDB(t), matchRepo, participantRepo, nil, userRepo, nil, NewCodeGenerator(), nil, logger)

	actor := Actor{UserID: 2, Scopes: []string{ScopeUpdateAnyMatch}}
	view, err := s.UpdateMatch(context.Background(), actor, 10, UpdateMatchInput{
		Action: ActionEdit,
		Name:   strPtr("Renamed"),
	})
	if err != nil {
		t.Fatalf("expected edit to succeed for update:any-match, got %v", err)
	}
	if savedName != "Renamed" {
		t.Errorf("expected repository Update with name %q, got %q", "Renamed", savedName)
	}
	if view == nil || view.Name != "Renamed" {
		t.Errorf("expected updated view with name %q, got %+v", "Renamed", view)
	}
}

func TestGetMatchByIDToleratesMissingGame(t *testing.T) {
	gameID := 42
	matchRepo := &mockMatchRepository{
		getByIDFunc: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
			return &models.Match{ID: id, CreatorID: 7, GameID: &gameID, MaxParticipants: 2}, nil
		},
	}
	participantRepo := &mockMatchParticipantRepository{
		listByMatchFunc: func(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]models.MatchParticipant, error) {
			return nil, nil
		},
	}
	userRepo := &mockUserRepository{
		getByIDFunc: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error) {
			return &models.User{ID: id, Nickname: "creator"}, nil
		},
	}
	gameService := NewGameService(&mockGameRepository{
		getByIDFunc: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Game, error) {
			return nil, repositories.ErrGameNotFound
		},
	}, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewMatchService(nil, matchRepo, participantRepo, nil, userRepo, gameService, NewCodeGenerator(), nil, logger)

	view, err := s.GetMatchByID(context.Background(), 10)
	if err != nil {
		t.Fatalf("expected match details despite the missing game, got %v", err)
	}
	if view.Game != nil {
		t.Errorf("expected nil game in the view, got %+v", view.Game)
	}
}
