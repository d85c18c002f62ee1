package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/varekai/stackup/internal/history"
)

// Sink stores bring-up events in PostgreSQL, typically in the same cluster
// the bootstrap reconciler manages.
type Sink struct {
	db    *sql.DB
	table string
}

func New(dsn, table string) (*Sink, error) {
	if table == "" {
		table = "bringup_history"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &Sink{db: db, table: table}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s(
			id BIGSERIAL PRIMARY KEY,
			type TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			service TEXT NOT NULL,
			state TEXT NOT NULL,
			wave INTEGER NOT NULL,
			caveat BOOLEAN NOT NULL,
			detail TEXT NOT NULL,
			error TEXT NOT NULL
		);`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_service ON %s(service);`, s.table, s.table),
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s(type, occurred_at, service, state, wave, caveat, detail, error)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8);`, s.table),
		string(e.Type), e.OccurredAt.UTC(), e.Service, e.State, e.Wave, e.Caveat, e.Detail, e.Error)
	return err
}

func (s *Sink) Close() error { return s.db.Close() }
