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
	ErrGameNotFound     = errors.New("game not found")
	ErrGameNameConflict = errors.New("game name already exists")
)

type ListGamesFilter struct {
	SearchTerm *string
	Limit      int
	Offset     int
}

type GameRepository interface {
	Create(ctx context.Context, exec SQLExecutor, game *models.Game) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error)
	FindByName(ctx context.Context, exec SQLExecutor, name string) (*models.Game, error)
	List(ctx context.Context, filter ListGamesFilter) ([]models.Game, int, error)
	Update(ctx context.Context, game *models.Game) error
	UpdateCoverKey(ctx context.Context, gameID int, coverKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGameRepository) Create(ctx context.Context, exec SQLExecutor, g *models.Game) error {
	executor := r.getExecutor(exec)
	query := `INSERT INTO games (name) VALUES ($1) RETURNING id`

	err := executor.QueryRowContext(ctx, query, g.Name).Scan(&g.ID)
	return r.handleGameError(err)
}

func (r *postgresGameRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, name, cover_key FROM games WHERE id = $1`

	g := &models.Game{}
	err := executor.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.CoverKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return g, nil
}

// FindByName ищет точное совпадение без учёта регистра, пробелы по краям
// обрезает вызывающая сторона.
func (r *postgresGameRepository) FindByName(ctx context.Context, exec SQLExecutor, name string) (*models.Game, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, name, cover_key FROM games WHERE lower(name) = lower($1)`

	g := &models.Game{}
	err := executor.QueryRowContext(ctx, query, name).Scan(&g.ID, &g.Name, &g.CoverKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *postgresGameRepository) List(ctx context.Context, filter ListGamesFilter) ([]models.Game, int, error) {
	query := `SELECT id, name, cover_key, count(*) OVER() AS total FROM games WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", argID)
		args = append(args, "%"+*filter.SearchTerm+"%")
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

	games := make([]models.Game, 0)
	total := 0
	for rows.Next() {
		var g models.Game
		if scanErr := rows.Scan(&g.ID, &g.Name, &g.CoverKey, &total); scanErr != nil {
			return nil, 0, scanErr
		}
		games = append(games, g)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return games, total, nil
}

func (r *postgresGameRepository) Update(ctx context.Context, g *models.Game) error {
	query := `UPDATE games SET name = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, g.Name, g.ID)
	if err != nil {
		return r.handleGameError(err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) UpdateCoverKey(ctx context.Context, gameID int, coverKey *string) error {
	query := `UPDATE games SET cover_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, coverKey, gameID)
	if err != nil {
		return fmt.Errorf("failed to update game cover key: %w", err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM games WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleGameError(err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) handleGameError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrGameNameConflict
		}
	}
	return err
}
