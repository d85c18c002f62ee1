package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB is the narrow request/response surface the reconciler needs from the
// data store. The production implementation pins a single connection so
// session-scoped state (advisory locks) behaves predictably.
type DB interface {
	Exec(ctx context.Context, query string, args ...any) error
	QueryBool(ctx context.Context, query string, args ...any) (bool, error)
	QueryStrings(ctx context.Context, query string, args ...any) ([]string, error)
	Close() error
}

// Opener opens a DB for a DSN. Swappable in tests.
type Opener func(ctx context.Context, dsn string) (DB, error)

type sqlSession struct {
	db   *sql.DB
	conn *sql.Conn
}

// OpenSession connects via the pgx stdlib driver and pins one connection
// for the lifetime of the session.
func OpenSession(ctx context.Context, dsn string) (DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("acquire postgres connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &sqlSession{db: db, conn: conn}, nil
}

func (s *sqlSession) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.conn.ExecContext(ctx, query, args...)
	return err
}

func (s *sqlSession) QueryBool(ctx context.Context, query string, args ...any) (bool, error) {
	var v bool
	err := s.conn.QueryRowContext(ctx, query, args...).Scan(&v)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return v, err
}

func (s *sqlSession) QueryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *sqlSession) Close() error {
	cerr := s.conn.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return cerr
}
