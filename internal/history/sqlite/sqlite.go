package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/varekai/stackup/internal/history"
)

// Sink stores bring-up events in a local SQLite file. This is the default
// backend: no external service required.
type Sink struct {
	db    *sql.DB
	table string
}

func New(dsn, table string) (*Sink, error) {
	if table == "" {
		table = "bringup_history"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Sink{db: db, table: table}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		service TEXT NOT NULL,
		state TEXT NOT NULL,
		wave INTEGER NOT NULL,
		caveat BOOLEAN NOT NULL,
		detail TEXT NOT NULL,
		error TEXT NOT NULL
	);`, s.table))
	return err
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s(type, occurred_at, service, state, wave, caveat, detail, error)
		VALUES(?,?,?,?,?,?,?,?);`, s.table),
		string(e.Type), e.OccurredAt.UTC(), e.Service, e.State, e.Wave, e.Caveat, e.Detail, e.Error)
	return err
}

// Recent returns the latest n events, newest first.
func (s *Sink) Recent(ctx context.Context, n int) ([]history.Event, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT type, occurred_at, service, state, wave, caveat, detail, error
		FROM %s ORDER BY id DESC LIMIT ?;`, s.table), n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []history.Event
	for rows.Next() {
		var e history.Event
		var typ string
		if err := rows.Scan(&typ, &e.OccurredAt, &e.Service, &e.State, &e.Wave, &e.Caveat, &e.Detail, &e.Error); err != nil {
			return nil, err
		}
		e.Type = history.EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Sink) Close() error { return s.db.Close() }
