package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akozhin/matchup/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentCodeConflict   = errors.New("tournament public code conflict")
	ErrTournamentInvalidCreator = errors.New("invalid creator reference")
	ErrTournamentInvalidGame    = errors.New("invalid game reference")
)

type ListTournamentsFilter struct {
	SearchTerm *string
	CreatorID  *int
	Limit      int
	Offset     int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	CodeExists(ctx context.Context, exec SQLExecutor, code string) (bool, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, int, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (public_code, name, creator_id, game_id, max_participants, start_date, start_date_tz)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		t.PublicCode, t.Name, t.CreatorID, t.GameID, t.MaxParticipants, t.StartDate, t.StartDateTz,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, public_code, name, creator_id, game_id, max_participants,
		       start_date, start_date_tz, created_at, updated_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.PublicCode, &t.Name, &t.CreatorID, &t.GameID, &t.MaxParticipants,
		&t.StartDate, &t.StartDateTz, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) CodeExists(ctx context.Context, exec SQLExecutor, code string) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tournaments WHERE public_code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, int, error) {
	query := `
		SELECT id, public_code, name, creator_id, game_id, max_participants,
		       start_date, start_date_tz, created_at, updated_at,
		       count(*) OVER() AS total
		FROM tournaments
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", argID)
		args = append(args, "%"+*filter.SearchTerm+"%")
		argID++
	}
	if filter.CreatorID != nil {
		query += fmt.Sprintf(" AND creator_id = $%d", argID)
		args = append(args, *filter.CreatorID)
		argID++
	}

	query += " ORDER BY name ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	total := 0
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.PublicCode, &t.Name, &t.CreatorID, &t.GameID, &t.MaxParticipants,
			&t.StartDate, &t.StartDateTz, &t.CreatedAt, &t.UpdatedAt, &total,
		); scanErr != nil {
			return nil, 0, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return tournaments, total, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments SET
			name = $1,
			game_id = $2,
			max_participants = $3,
			start_date = $4,
			start_date_tz = $5,
			updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.GameID, t.MaxParticipants, t.StartDate, t.StartDateTz, t.ID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return r.handleTournamentError(err)
	}
	return nil
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_public_code_key" {
				return ErrTournamentCodeConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "tournaments_creator_id_fkey":
				return ErrTournamentInvalidCreator
			case "tournaments_game_id_fkey":
				return ErrTournamentInvalidGame
			}
		}
	}
	return err
}
