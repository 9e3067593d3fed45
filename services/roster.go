package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/akozhin/matchup/repositories"
)

// RosterManager следит за инвариантами членства: не больше maxParticipants
// участников и не больше одной записи на пользователя. Один менеджер
// обслуживает одну таблицу членства (матчи или турниры).
type RosterManager struct {
	store    repositories.RosterStore
	userRepo repositories.UserRepository
	fullErr  error
}

func NewRosterManager(store repositories.RosterStore, userRepo repositories.UserRepository, fullErr error) *RosterManager {
	return &RosterManager{
		store:    store,
		userRepo: userRepo,
		fullErr:  fullErr,
	}
}

// Join добавляет пользователя, если есть место и он ещё не участник.
func (m *RosterManager) Join(ctx context.Context, exec repositories.SQLExecutor, entityID, maxParticipants, userID int) error {
	count, err := m.store.Count(ctx, exec, entityID)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}
	if count >= maxParticipants {
		return m.fullErr
	}

	joined, err := m.store.Exists(ctx, exec, entityID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if joined {
		return ErrAlreadyJoined
	}

	if err := m.store.Insert(ctx, exec, entityID, userID); err != nil {
		// Гонка двух одновременных join упирается в уникальный индекс.
		if errors.Is(err, repositories.ErrParticipantConflict) {
			return ErrAlreadyJoined
		}
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

// Disjoin убирает запись членства; отсутствие записи не ошибка.
func (m *RosterManager) Disjoin(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) error {
	if err := m.store.Remove(ctx, exec, entityID, userID); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

// AddMany добавляет пользователей пачкой. Несуществующие id молча
// пропускаются, уже состоящие — тоже. После вставки проверяется вместимость:
// превышение откатывает всю транзакцию вызывающего.
func (m *RosterManager) AddMany(ctx context.Context, exec repositories.SQLExecutor, entityID, maxParticipants int, userIDs []int) error {
	ids := uniqueIDs(userIDs)
	if len(ids) == 0 {
		return nil
	}

	users, err := m.userRepo.GetManyByIDs(ctx, exec, ids)
	if err != nil {
		return fmt.Errorf("failed to resolve users: %w", err)
	}
	resolved := make([]int, 0, len(users))
	for _, u := range users {
		resolved = append(resolved, u.ID)
	}
	if len(resolved) == 0 {
		return nil
	}

	if err := m.store.InsertMany(ctx, exec, entityID, resolved); err != nil {
		return fmt.Errorf("failed to insert participants: %w", err)
	}

	count, err := m.store.Count(ctx, exec, entityID)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}
	if count > maxParticipants {
		return ErrRosterExceedsMaxParticipants
	}
	return nil
}

func (m *RosterManager) RemoveMany(ctx context.Context, exec repositories.SQLExecutor, entityID int, userIDs []int) error {
	ids := uniqueIDs(userIDs)
	if len(ids) == 0 {
		return nil
	}
	if err := m.store.RemoveMany(ctx, exec, entityID, ids); err != nil {
		return fmt.Errorf("failed to remove participants: %w", err)
	}
	return nil
}
