package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/akozhin/matchup/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantConflict    = errors.New("user is already a participant")
	ErrParticipantInvalidUser = errors.New("invalid user reference")
)

// RosterStore — общий контракт таблиц членства. Реализации различаются
// только целевой таблицей (match_participants / tournament_participants).
type RosterStore interface {
	Count(ctx context.Context, exec SQLExecutor, entityID int) (int, error)
	Exists(ctx context.Context, exec SQLExecutor, entityID, userID int) (bool, error)
	Insert(ctx context.Context, exec SQLExecutor, entityID, userID int) error
	InsertMany(ctx context.Context, exec SQLExecutor, entityID int, userIDs []int) error
	Remove(ctx context.Context, exec SQLExecutor, entityID, userID int) error
	RemoveMany(ctx context.Context, exec SQLExecutor, entityID int, userIDs []int) error
}

type MatchParticipantRepository interface {
	RosterStore
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.MatchParticipant, error)
}

type postgresMatchParticipantRepository struct {
	db *sql.DB
}

func NewPostgresMatchParticipantRepository(db *sql.DB) MatchParticipantRepository {
	return &postgresMatchParticipantRepository{db: db}
}

func (r *postgresMatchParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchParticipantRepository) Count(ctx context.Context, exec SQLExecutor, matchID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT count(*) FROM match_participants WHERE match_id = $1`, matchID,
	).Scan(&count)
	return count, err
}

func (r *postgresMatchParticipantRepository) Exists(ctx context.Context, exec SQLExecutor, matchID, userID int) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM match_participants WHERE match_id = $1 AND user_id = $2)`,
		matchID, userID,
	).Scan(&exists)
	return exists, err
}

func (r *postgresMatchParticipantRepository) Insert(ctx context.Context, exec SQLExecutor, matchID, userID int) error {
	executor := r.getExecutor(exec)
	query := `INSERT INTO match_participants (match_id, user_id) VALUES ($1, $2)`
	_, err := executor.ExecContext(ctx, query, matchID, userID)
	return r.handleParticipantError(err)
}

// InsertMany пропускает уже состоящих в матче пользователей.
func (r *postgresMatchParticipantRepository) InsertMany(ctx context.Context, exec SQLExecutor, matchID int, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_participants (match_id, user_id)
		SELECT $1, unnest($2::int[])
		ON CONFLICT (match_id, user_id) DO NOTHING`
	_, err := executor.ExecContext(ctx, query, matchID, pq.Array(userIDs))
	return r.handleParticipantError(err)
}

// Remove — идемпотентная операция: ноль удалённых строк не ошибка.
func (r *postgresMatchParticipantRepository) Remove(ctx context.Context, exec SQLExecutor, matchID, userID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM match_participants WHERE match_id = $1 AND user_id = $2`,
		matchID, userID,
	)
	return err
}

func (r *postgresMatchParticipantRepository) RemoveMany(ctx context.Context, exec SQLExecutor, matchID int, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM match_participants WHERE match_id = $1 AND user_id = ANY($2)`,
		matchID, pq.Array(userIDs),
	)
	return err
}

func (r *postgresMatchParticipantRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.MatchParticipant, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT mp.id, mp.match_id, mp.user_id, mp.joined_at, u.id, u.nickname, u.role, u.created_at
		FROM match_participants mp
		JOIN users u ON u.id = mp.user_id
		WHERE mp.match_id = $1
		ORDER BY mp.joined_at ASC`

	rows, err := executor.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.MatchParticipant, 0)
	for rows.Next() {
		var p models.MatchParticipant
		u := &models.User{}
		if scanErr := rows.Scan(
			&p.ID, &p.MatchID, &p.UserID, &p.JoinedAt,
			&u.ID, &u.Nickname, &u.Role, &u.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		p.User = u
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *postgresMatchParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrParticipantConflict
		case "23503":
			if pqErr.Constraint == "match_participants_user_id_fkey" {
				return ErrParticipantInvalidUser
			}
		}
	}
	return err
}
