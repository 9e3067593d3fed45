package repositories

import (
	"context"
	"database/sql"

	"github.com/akozhin/matchup/models"
	"github.com/lib/pq"
)

type TournamentParticipantRepository interface {
	RosterStore
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.TournamentParticipant, error)
}

type postgresTournamentParticipantRepository struct {
	db *sql.DB
}

func NewPostgresTournamentParticipantRepository(db *sql.DB) TournamentParticipantRepository {
	return &postgresTournamentParticipantRepository{db: db}
}

func (r *postgresTournamentParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentParticipantRepository) Count(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT count(*) FROM tournament_participants WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	return count, err
}

func (r *postgresTournamentParticipantRepository) Exists(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tournament_participants WHERE tournament_id = $1 AND user_id = $2)`,
		tournamentID, userID,
	).Scan(&exists)
	return exists, err
}

func (r *postgresTournamentParticipantRepository) Insert(ctx context.Context, exec SQLExecutor, tournamentID, userID int) error {
	executor := r.getExecutor(exec)
	query := `INSERT INTO tournament_participants (tournament_id, user_id) VALUES ($1, $2)`
	_, err := executor.ExecContext(ctx, query, tournamentID, userID)
	return r.handleParticipantError(err)
}

func (r *postgresTournamentParticipantRepository) InsertMany(ctx context.Context, exec SQLExecutor, tournamentID int, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id)
		SELECT $1, unnest($2::int[])
		ON CONFLICT (tournament_id, user_id) DO NOTHING`
	_, err := executor.ExecContext(ctx, query, tournamentID, pq.Array(userIDs))
	return r.handleParticipantError(err)
}

func (r *postgresTournamentParticipantRepository) Remove(ctx context.Context, exec SQLExecutor, tournamentID, userID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM tournament_participants WHERE tournament_id = $1 AND user_id = $2`,
		tournamentID, userID,
	)
	return err
}

func (r *postgresTournamentParticipantRepository) RemoveMany(ctx context.Context, exec SQLExecutor, tournamentID int, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM tournament_participants WHERE tournament_id = $1 AND user_id = ANY($2)`,
		tournamentID, pq.Array(userIDs),
	)
	return err
}

func (r *postgresTournamentParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.TournamentParticipant, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT tp.id, tp.tournament_id, tp.user_id, tp.joined_at, u.id, u.nickname, u.role, u.created_at
		FROM tournament_participants tp
		JOIN users u ON u.id = tp.user_id
		WHERE tp.tournament_id = $1
		ORDER BY tp.joined_at ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.TournamentParticipant, 0)
	for rows.Next() {
		var p models.TournamentParticipant
		u := &models.User{}
		if scanErr := rows.Scan(
			&p.ID, &p.TournamentID, &p.UserID, &p.JoinedAt,
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

func (r *postgresTournamentParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrParticipantConflict
		case "23503":
			if pqErr.Constraint == "tournament_participants_user_id_fkey" {
				return ErrParticipantInvalidUser
			}
		}
	}
	return err
}
