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
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchCodeConflict      = errors.New("match public code conflict")
	ErrMatchInvalidCreator    = errors.New("invalid creator reference")
	ErrMatchInvalidGame       = errors.New("invalid game reference")
	ErrMatchInvalidTournament = errors.New("invalid tournament reference")
)

type ListMatchesFilter struct {
	SearchTerm     *string
	CreatorID      *int
	TournamentID   *int
	IncludePrivate bool
	Limit          int
	Offset         int
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	CodeExists(ctx context.Context, exec SQLExecutor, code string) (bool, error)
	List(ctx context.Context, filter ListMatchesFilter) ([]models.Match, int, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	Delete(ctx context.Context, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (public_code, name, creator_id, game_id, is_private, max_participants, tournament_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		m.PublicCode, m.Name, m.CreatorID, m.GameID, m.IsPrivate, m.MaxParticipants, m.TournamentID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, public_code, name, creator_id, game_id, is_private, max_participants,
		       tournament_id, created_at, updated_at
		FROM matches
		WHERE id = $1`

	m := &models.Match{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.PublicCode, &m.Name, &m.CreatorID, &m.GameID, &m.IsPrivate,
		&m.MaxParticipants, &m.TournamentID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) CodeExists(ctx context.Context, exec SQLExecutor, code string) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM matches WHERE public_code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresMatchRepository) List(ctx context.Context, filter ListMatchesFilter) ([]models.Match, int, error) {
	query := `
		SELECT m.id, m.public_code, m.name, m.creator_id, m.game_id, m.is_private,
		       m.max_participants, m.tournament_id, m.created_at, m.updated_at,
		       count(*) OVER() AS total
		FROM matches m
		LEFT JOIN games g ON g.id = m.game_id
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if !filter.IncludePrivate {
		query += " AND m.is_private = FALSE"
	}
	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		query += fmt.Sprintf(" AND (m.name ILIKE $%d OR g.name ILIKE $%d)", argID, argID)
		args = append(args, "%"+*filter.SearchTerm+"%")
		argID++
	}
	if filter.CreatorID != nil {
		query += fmt.Sprintf(" AND m.creator_id = $%d", argID)
		args = append(args, *filter.CreatorID)
		argID++
	}
	if filter.TournamentID != nil {
		query += fmt.Sprintf(" AND m.tournament_id = $%d", argID)
		args = append(args, *filter.TournamentID)
		argID++
	}

	query += " ORDER BY m.created_at DESC"

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

	matches := make([]models.Match, 0)
	total := 0
	for rows.Next() {
		var m models.Match
		if scanErr := rows.Scan(
			&m.ID, &m.PublicCode, &m.Name, &m.CreatorID, &m.GameID, &m.IsPrivate,
			&m.MaxParticipants, &m.TournamentID, &m.CreatedAt, &m.UpdatedAt, &total,
		); scanErr != nil {
			return nil, 0, scanErr
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return matches, total, nil
}

// Update не трогает public_code: код неизменяем после создания.
func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches SET
			name = $1,
			game_id = $2,
			is_private = $3,
			max_participants = $4,
			tournament_id = $5,
			updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	err := executor.QueryRowContext(ctx, query,
		m.Name, m.GameID, m.IsPrivate, m.MaxParticipants, m.TournamentID, m.ID,
	).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchNotFound
		}
		return r.handleMatchError(err)
	}
	return nil
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "matches_public_code_key" {
				return ErrMatchCodeConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "matches_creator_id_fkey":
				return ErrMatchInvalidCreator
			case "matches_game_id_fkey":
				return ErrMatchInvalidGame
			case "matches_tournament_id_fkey":
				return ErrMatchInvalidTournament
			}
		}
	}
	return err
}
