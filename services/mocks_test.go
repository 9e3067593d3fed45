package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"testing"

	"github.com/akozhin/matchup/models"
	"github.com/akozhin/matchup/repositories"
	"github.com/akozhin/matchup/storage"
)

// Заглушка database/sql-драйвера: умеет только открывать и завершать
// транзакции. Достаточно, чтобы прогнать runInTransaction над мок-репозиториями.
type stubDriver struct{}

func (stubDriver) Open(name string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("queries are not supported by the stub driver")
}
func (stubConn) Close() error              { return nil }
func (stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func init() {
	sql.Register("stubtx", stubDriver{})
}

func newStubDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("stubtx", "")
	if err != nil {
		t.Fatalf("failed to open stub database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type mockRosterStore struct {
	countFunc      func(ctx context.Context, exec repositories.SQLExecutor, entityID int) (int, error)
	existsFunc     func(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) (bool, error)
	insertFunc     func(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) error
	insertManyFunc func(ctx context.Context, exec repositories.SQLExecutor, entityID int, userIDs []int) error
	removeFunc     func(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) error
	removeManyFunc func(ctx context.Context, exec repositories.SQLExecutor, entityID int, userIDs []int) error
}

func (m *mockRosterStore) Count(ctx context.Context, exec repositories.SQLExecutor, entityID int) (int, error) {
	return m.countFunc(ctx, exec, entityID)
}

func (m *mockRosterStore) Exists(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) (bool, error) {
	return m.existsFunc(ctx, exec, entityID, userID)
}

func (m *mockRosterStore) Insert(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) error {
	return m.insertFunc(ctx, exec, entityID, userID)
}

func (m *mockRosterStore) InsertMany(ctx context.Context, exec repositories.SQLExecutor, entityID int, userIDs []int) error {
	return m.insertManyFunc(ctx, exec, entityID, userIDs)
}

func (m *mockRosterStore) Remove(ctx context.Context, exec repositories.SQLExecutor, entityID, userID int) error {
	return m.removeFunc(ctx, exec, entityID, userID)
}

func (m *mockRosterStore) RemoveMany(ctx context.Context, exec repositories.SQLExecutor, entityID int, userIDs []int) error {
	return m.removeManyFunc(ctx, exec, entityID, userIDs)
}

type mockUserRepository struct {
	createFunc       func(ctx context.Context, user *models.User) error
	getByIDFunc      func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error)
	getByEmailFunc   func(ctx context.Context, email string) (*models.User, error)
	getManyByIDsFunc func(ctx context.Context, exec repositories.SQLExecutor, ids []int) ([]models.User, error)
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.createFunc(ctx, user)
}

func (m *mockUserRepository) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error) {
	return m.getByIDFunc(ctx, exec, id)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.getByEmailFunc(ctx, email)
}

func (m *mockUserRepository) GetManyByIDs(ctx context.Context, exec repositories.SQLExecutor, ids []int) ([]models.User, error) {
	return m.getManyByIDsFunc(ctx, exec, ids)
}

type mockGameRepository struct {
	createFunc         func(ctx context.Context, exec repositories.SQLExecutor, game *models.Game) error
	getByIDFunc        func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Game, error)
	findByNameFunc     func(ctx context.Context, exec repositories.SQLExecutor, name string) (*models.Game, error)
	listFunc           func(ctx context.Context, filter repositories.ListGamesFilter) ([]models.Game, int, error)
	updateFunc         func(ctx context.Context, game *models.Game) error
	updateCoverKeyFunc func(ctx context.Context, gameID int, coverKey *string) error
	deleteFunc         func(ctx context.Context, id int) error
}

func (m *mockGameRepository) Create(ctx context.Context, exec repositories.SQLExecutor, game *models.Game) error {
	return m.createFunc(ctx, exec, game)
}

func (m *mockGameRepository) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Game, error) {
	return m.getByIDFunc(ctx, exec, id)
}

func (m *mockGameRepository) FindByName(ctx context.Context, exec repositories.SQLExecutor, name string) (*models.Game, error) {
	return m.findByNameFunc(ctx, exec, name)
}

func (m *mockGameRepository) List(ctx context.Context, filter repositories.ListGamesFilter) ([]models.Game, int, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockGameRepository) Update(ctx context.Context, game *models.Game) error {
	return m.updateFunc(ctx, game)
}

func (m *mockGameRepository) UpdateCoverKey(ctx context.Context, gameID int, coverKey *string) error {
	return m.updateCoverKeyFunc(ctx, gameID, coverKey)
}

func (m *mockGameRepository) Delete(ctx context.Context, id int) error {
	return m.deleteFunc(ctx, id)
}

type mockMatchRepository struct {
	createFunc     func(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error
	getByIDFunc    func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error)
	codeExistsFunc func(ctx context.Context, exec repositories.SQLExecutor, code string) (bool, error)
	listFunc       func(ctx context.Context, filter repositories.ListMatchesFilter) ([]models.Match, int, error)
	updateFunc     func(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error
	deleteFunc     func(ctx context.Context, id int) error
}

func (m *mockMatchRepository) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	return m.createFunc(ctx, exec, match)
}

func (m *mockMatchRepository) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return m.getByIDFunc(ctx, exec, id)
}

func (m *mockMatchRepository) CodeExists(ctx context.Context, exec repositories.SQLExecutor, code string) (bool, error) {
	return m.codeExistsFunc(ctx, exec, code)
}

func (m *mockMatchRepository) List(ctx context.Context, filter repositories.ListMatchesFilter) ([]models.Match, int, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockMatchRepository) Update(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	return m.updateFunc(ctx, exec, match)
}

func (m *mockMatchRepository) Delete(ctx context.Context, id int) error {
	return m.deleteFunc(ctx, id)
}

type mockTournamentRepository struct {
	createFunc     func(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) error
	getByIDFunc    func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error)
	codeExistsFunc func(ctx context.Context, exec repositories.SQLExecutor, code string) (bool, error)
	listFunc       func(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, int, error)
	updateFunc     func(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) error
	deleteFunc     func(ctx context.Context, id int) error
}

func (m *mockTournamentRepository) Create(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) error {
	return m.createFunc(ctx, exec, tournament)
}

func (m *mockTournamentRepository) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return m.getByIDFunc(ctx, exec, id)
}

func (m *mockTournamentRepository) CodeExists(ctx context.Context, exec repositories.SQLExecutor, code string) (bool, error) {
	return m.codeExistsFunc(ctx, exec, code)
}

func (m *mockTournamentRepository) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, int, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockTournamentRepository) Update(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) error {
	return m.updateFunc(ctx, exec, tournament)
}

func (m *mockTournamentRepository) Delete(ctx context.Context, id int) error {
	return m.deleteFunc(ctx, id)
}

type mockMatchParticipantRepository struct {
	mockRosterStore
	listByMatchFunc func(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]models.MatchParticipant, error)
}

func (m *mockMatchParticipantRepository) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]models.MatchParticipant, error) {
	return m.listByMatchFunc(ctx, exec, matchID)
}

type mockTournamentParticipantRepository struct {
	mockRosterStore
	listByTournamentFunc func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.TournamentParticipant, error)
}

func (m *mockTournamentParticipantRepository) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.TournamentParticipant, error) {
	return m.listByTournamentFunc(ctx, exec, tournamentID)
}

type mockUploader struct {
	uploadFunc       func(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error)
	deleteFunc       func(ctx context.Context, key string) error
	getPublicURLFunc func(key string) string
}

func (m *mockUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	return m.uploadFunc(ctx, key, contentType, reader)
}

func (m *mockUploader) Delete(ctx context.Context, key string) error {
	return m.deleteFunc(ctx, key)
}

func (m *mockUploader) GetPublicURL(key string) string {
	return m.getPublicURLFunc(key)
}
