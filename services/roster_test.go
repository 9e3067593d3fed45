package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/akozhin/matchup/models"
	"github.com/akozhin/matchup/repositories"
)

func TestJoinRejectsWhenFull(t *testing.T) {
	store := &mockRosterStore{
		countFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID int) (int, error) {
			return 4, nil
		},
	}
	m := NewRosterManager(store, nil, ErrMatchFull)

	err := m.Join(context.Background(), nil, 1, 4, 42)
	if !errors.Is(err, ErrMatchFull) {
		t.Fatalf("expected ErrMatchFull, got %v", err)
	}
}

func TestJoinRejectsDuplicate(t *testing.T) {
	store := &mockRosterStore{
		countFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID int) (int, error) {
			return 1, nil
		},
		existsFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) (bool, error) {
			return true, nil
		},
	}
	m := NewRosterManager(store, nil, ErrMatchFull)

	err := m.Join(context.Background(), nil, 1, 4, 42)
	if !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestJoinInsertsParticipant(t *testing.T) {
	var insertedEntity, insertedUser int
	store := &mockRosterStore{
		countFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID int) (int, error) {
			return 1, nil
		},
		existsFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) (bool, error) {
			return false, nil
		},
		insertFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) error {
			insertedEntity, insertedUser = entityID, userID
			return nil
		},
	}
	m := NewRosterManager(store, nil, ErrMatchFull)

	if err := m.Join(context.Background(), nil, 7, 4, 42); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if insertedEntity != 7 || insertedUser != 42 {
		t.Errorf("expected insert (7, 42), got (%d, %d)", insertedEntity, insertedUser)
	}
}

func TestJoinLosesInsertRace(t *testing.T) {
	// Проигранная гонка за уникальный индекс выглядит так же, как дубликат.
	store := &mockRosterStore{
		countFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID int) (int, error) {
			return 1, nil
		},
		existsFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) (bool, error) {
			return false, nil
		},
		insertFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) error {
			return repositories.ErrParticipantConflict
		},
	}
	m := NewRosterManager(store, nil, ErrMatchFull)

	err := m.Join(context.Background(), nil, 1, 4, 42)
	if !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestDisjoinIsIdempotent(t *testing.T) {
	removed := 0
	store := &mockRosterStore{
		removeFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) error {
			removed++
			return nil
		},
	}
	m := NewRosterManager(store, nil, ErrMatchFull)

	for i := 0; i < 2; i++ {
		if err := m.Disjoin(context.Background(), nil, 1, 42); err != nil {
			t.Fatalf("Disjoin #%d returned error: %v", i+1, err)
		}
	}
	if removed != 2 {
		t.Errorf("expected 2 remove calls, got %d", removed)
	}
}

func TestAddManySkipsUnknownUsers(t *testing.T) {
	var inserted []int
	store := &mockRosterStore{
		insertManyFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID int, userIDs []int) error {
			inserted = userIDs
			return nil
		},
		countFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID int) (int, error) {
			return 2, nil
		},
	}
	users := &mockUserRepository{
		getManyByIDsFunc: func(ctx context.Context, exec repositories.SQLExecutor, ids []int) ([]models.User, error) {
			// Пользователя 99 не существует.
			return []models.User{{ID: 5}, {ID: 6}}, nil
		},
	}
	m := NewRosterManager(store, users, ErrMatchFull)

	if err := m.AddMany(context.Background(), nil, 1, 4, []int{5, 99, 6, 5}); err != nil {
		t.Fatalf("AddMany returned error: %v", err)
	}
	if !reflect.DeepEqual(inserted, []int{5, 6}) {
		t.Errorf("expected insert of [5 6], got %v", inserted)
	}
}

func TestAddManyRejectsOverCapacity(t *testing.T) {
	store := &mockRosterStore{
		insertManyFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID int, userIDs []int) error {
			return nil
		},
		countFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID int) (int, error) {
			return 5, nil
		},
	}
	users := &mockUserRepository{
		getManyByIDsFunc: func(ctx context.Context, exec repositories.SQLExecutor, ids []int) ([]models.User, error) {
			return []models.User{{ID: 5}, {ID: 6}, {ID: 7}}, nil
		},
	}
	m := NewRosterManager(store, users, ErrTournamentFull)

	err := m.AddMany(context.Background(), nil, 1, 4, []int{5, 6, 7})
	if !errors.Is(err, ErrRosterExceedsMaxParticipants) {
		t.Fatalf("expected ErrRosterExceedsMaxParticipants, got %v", err)
	}
}

func TestAddManyNoIDsIsNoOp(t *testing.T) {
	m := NewRosterManager(&mockRosterStore{}, &mockUserRepository{}, ErrMatchFull)

	if err := m.AddMany(context.Background(), nil, 1, 4, nil); err != nil {
		t.Fatalf("AddMany(nil) returned error: %v", err)
	}
}

func TestRemoveManyDeduplicates(t *testing.T) {
	var removed []int
	store := &mockRosterStore{
		removeManyFunc: func(ctx context.Context, exec repositories.SQLExecutor, entityID int, userIDs []int) error {
			removed = userIDs
			return nil
		},
	}
	m := NewRosterManager(store, nil, ErrMatchFull)

	if err := m.RemoveMany(context.Background(), nil, 1, []int{5, 5, 6}); err != nil {
		t.Fatalf("RemoveMany returned error: %v", err)
	}
	if !reflect.DeepEqual(removed, []int{5, 6}) {
		t.Errorf("expected removal of [5 6], got %v", removed)
	}
}
