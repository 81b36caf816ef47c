// Package sqlite provides a SQLite-backed game store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/session"
	"github.com/wricardo/ludo-arena/storage/sqlite/migrations"
)

var (
	_ session.Store        = (*Store)(nil)
	_ session.StatusLister = (*Store)(nil)
)

// Store persists games in SQLite. Updates carry the expected version in the
// WHERE clause, so the check and the write are one statement.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite game store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Create inserts one game record.
func (s *Store) Create(ctx context.Context, g *session.Game) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if g == nil || strings.TrimSpace(g.ID) == "" {
		return session.ErrInvalidGameID
	}
	stateJSON, err := json.Marshal(g.State)
	if err != nil {
		return fmt.Errorf("marshal game state: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO games (
		   id,
		   board,
		   status,
		   version,
		   state_json,
		   created_at,
		   started_at,
		   finished_at,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID,
		g.Board,
		string(g.Status()),
		g.Version,
		string(stateJSON),
		toMillis(g.CreatedAt),
		nullMillis(g.StartedAt),
		nullMillis(g.FinishedAt),
		toMillis(g.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return session.ErrAlreadyExists
		}
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

// Get returns one game by ID.
func (s *Store) Get(ctx context.Context, id string) (*session.Game, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	row := s.sqlDB.QueryRowContext(ctx, selectGames+` WHERE id = ?`, id)
	g, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return g, nil
}

// Update replaces a game if its stored version is expectedVersion.
func (s *Store) Update(ctx context.Context, g *session.Game, expectedVersion int64) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if g == nil || strings.TrimSpace(g.ID) == "" {
		return session.ErrInvalidGameID
	}
	stateJSON, err := json.Marshal(g.State)
	if err != nil {
		return fmt.Errorf("marshal game state: %w", err)
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE games SET
		   board = ?,
		   status = ?,
		   version = ?,
		   state_json = ?,
		   started_at = ?,
		   finished_at = ?,
		   updated_at = ?
		 WHERE id = ? AND version = ?`,
		g.Board,
		string(g.Status()),
		g.Version,
		string(stateJSON),
		nullMillis(g.StartedAt),
		nullMillis(g.FinishedAt),
		toMillis(g.UpdatedAt),
		g.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return s.checkAffected(ctx, res, g.ID)
}

// Delete removes a game if its stored version is expectedVersion.
func (s *Store) Delete(ctx context.Context, id string, expectedVersion int64) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	var (
		res sql.Result
		err error
	)
	if expectedVersion == session.AnyVersion {
		res, err = s.sqlDB.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	} else {
		res, err = s.sqlDB.ExecContext(ctx, `DELETE FROM games WHERE id = ? AND version = ?`, id, expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return s.checkAffected(ctx, res, id)
}

// List returns every game, oldest first.
func (s *Store) List(ctx context.Context) ([]*session.Game, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, selectGames+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var result []*session.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return result, nil
}

// ListByStatus returns games in one lifecycle status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status engine.Status) ([]*session.Game, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, selectGames+` WHERE status = ? ORDER BY created_at ASC, id ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var result []*session.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// checkAffected tells a lost race apart from a missing row
func (s *Store) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var found int
	err = s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return session.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check game: %w", err)
	}
	return session.ErrVersionConflict
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

const selectGames = `SELECT id, board, version, state_json, created_at, started_at, finished_at, updated_at FROM games`

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*session.Game, error) {
	var (
		g          session.Game
		stateJSON  string
		createdAt  int64
		startedAt  sql.NullInt64
		finishedAt sql.NullInt64
		updatedAt  int64
	)
	if err := row.Scan(&g.ID, &g.Board, &g.Version, &stateJSON, &createdAt, &startedAt, &finishedAt, &updatedAt); err != nil {
		return nil, err
	}

	g.State = engine.NewState()
	if err := json.Unmarshal([]byte(stateJSON), g.State); err != nil {
		return nil, fmt.Errorf("unmarshal game state: %w", err)
	}
	g.CreatedAt = fromMillis(createdAt)
	g.UpdatedAt = fromMillis(updatedAt)
	if startedAt.Valid {
		t := fromMillis(startedAt.Int64)
		g.StartedAt = &t
	}
	if finishedAt.Valid {
		t := fromMillis(finishedAt.Int64)
		g.FinishedAt = &t
	}
	return &g, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "games.id")
}
