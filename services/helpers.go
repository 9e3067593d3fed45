package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Actor — проверенная личность из внешнего верификатора токенов.
type Actor struct {
	UserID int
	Scopes []string
}

func (a Actor) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Разрешения. Строки совпадают с claim "permissions" в токене.
const (
	ScopeCreateMatch      = "create:match"
	ScopeUpdateMatch      = "update:match"
	ScopeDeleteMatch      = "delete:match"
	ScopeUpdateAnyMatch   = "update:any-match"
	ScopeDeleteAnyMatch   = "delete:any-match"
	ScopeCreateTournament = "create:tournament"
	ScopeUpdateTournament = "update:tournament"
	ScopeDeleteTournament = "delete:tournament"
	ScopeUpdateAnyTourney = "update:any-tournament"
	ScopeDeleteAnyTourney = "delete:any-tournament"
	ScopeCreateGame       = "create:game"
	ScopeUpdateGame       = "update:game"
	ScopeDeleteGame       = "delete:game"
)

// runInTransaction выполняет fn в одной транзакции: коммит при nil,
// откат при ошибке или панике.
func runInTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var tzOffsetPattern = regexp.MustCompile(`^[+-](0\d|1[0-4]):[0-5]\d$`)

func validateTimezoneOffset(tz string) error {
	if !tzOffsetPattern.MatchString(tz) {
		return ErrInvalidTimezoneOffset
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

// uniqueIDs убирает дубликаты, сохраняя порядок.
func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	result := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
