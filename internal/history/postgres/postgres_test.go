package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/varekai/stackup/internal/history"
)

func TestPostgresSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	sink, err := New(connStr, "")
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	events := []history.Event{
		{
			Type:       history.EventBootstrapStep,
			OccurredAt: time.Now().UTC(),
			Detail:     "ensure-database",
		},
		{
			Type:       history.EventServiceState,
			OccurredAt: time.Now().UTC(),
			Service:    "api",
			State:      "healthy",
			Wave:       1,
			Caveat:     true,
			Detail:     "allowed non-standard status 403",
		},
		{
			Type:       history.EventWave,
			OccurredAt: time.Now().UTC(),
			Wave:       1,
			Detail:     "2 services in 4s",
		},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Failed to send %s event: %v", e.Type, err)
		}
	}

	var count int
	row := sink.db.QueryRowContext(ctx, "SELECT count(*) FROM bringup_history")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if count != len(events) {
		t.Fatalf("expected %d rows, got %d", len(events), count)
	}

	var caveat bool
	row = sink.db.QueryRowContext(ctx, "SELECT caveat FROM bringup_history WHERE service = 'api'")
	if err := row.Scan(&caveat); err != nil {
		t.Fatalf("Failed to read caveat: %v", err)
	}
	if !caveat {
		t.Fatal("caveat flag must survive the round trip")
	}
}
