package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Catalog check queries. Kept as named constants so tests can recognize them.
const (
	qRoleExists        = `SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)`
	qDatabaseExists    = `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`
	qSchemaExists      = `SELECT EXISTS(SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`
	qPublicationExists = `SELECT EXISTS(SELECT 1 FROM pg_publication WHERE pubname = $1)`
	qStalePublications = `SELECT pubname FROM pg_publication WHERE pubname LIKE $1 AND pubname <> $2`
	qTerminateSessions = `SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`
)

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func literal(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// session carries the two connections a reconciliation uses: adm against the
// maintenance database (roles, databases) and app against the application
// database (schema, grants, publications). app is opened lazily, after the
// database step guarantees it exists.
type session struct {
	adm DB
	app DB
}

// step is one idempotent unit of work. Steps run in declaration order and
// are never wrapped in a shared transaction: a crash between steps leaves a
// store from which re-running the whole sequence still converges.
type step struct {
	name string
	run  func(ctx context.Context, r *Reconciler, s *session) error
}

// steps returns the ordered reconciliation sequence. Ordering matters:
// roles before database (ownership), database before schema, schema before
// grants, grants before default privileges, publication cleanup before
// publication creation.
func steps() []step {
	return []step{
		{"ensure-owner-role", func(ctx context.Context, r *Reconciler, s *session) error {
			return ensureRole(ctx, s.adm, r.cfg.Owner)
		}},
		{"ensure-app-roles", func(ctx context.Context, r *Reconciler, s *session) error {
			for _, role := range r.cfg.AppRoles {
				if err := ensureRole(ctx, s.adm, role); err != nil {
					return err
				}
			}
			return nil
		}},
		{"ensure-database", func(ctx context.Context, r *Reconciler, s *session) error {
			return ensureDatabase(ctx, s.adm, r.cfg.Database, r.cfg.Owner.Name)
		}},
		{"ensure-schema", func(ctx context.Context, r *Reconciler, s *session) error {
			return ensureSchema(ctx, s.app, r.cfg.Schema, r.cfg.Owner.Name)
		}},
		{"ensure-grants", func(ctx context.Context, r *Reconciler, s *session) error {
			return ensureGrants(ctx, s.app, r.cfg.Schema, r.cfg.AppRoles)
		}},
		{"ensure-default-privileges", func(ctx context.Context, r *Reconciler, s *session) error {
			return ensureDefaultPrivileges(ctx, s.app, r.cfg.Schema, r.cfg.Owner.Name, r.cfg.AppRoles)
		}},
		{"drop-stale-publications", func(ctx context.Context, r *Reconciler, s *session) error {
			return dropStalePublications(ctx, s.app, r.cfg.PublicationPrefix, r.publicationName())
		}},
		{"ensure-publication", func(ctx context.Context, r *Reconciler, s *session) error {
			return ensurePublication(ctx, s.app, r.publicationName())
		}},
	}
}

func ensureRole(ctx context.Context, db DB, role Role) error {
	exists, err := db.QueryBool(ctx, qRoleExists, role.Name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	stmt := "CREATE ROLE " + ident(role.Name)
	if role.Login {
		stmt += " LOGIN"
		if role.Password != "" {
			stmt += " PASSWORD " + literal(role.Password)
		}
	} else {
		stmt += " NOLOGIN"
	}
	return db.Exec(ctx, stmt)
}

func ensureDatabase(ctx context.Context, db DB, name, owner string) error {
	exists, err := db.QueryBool(ctx, qDatabaseExists, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	// CREATE DATABASE cannot run inside a transaction; the pinned session
	// runs it in autocommit mode.
	return db.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s OWNER %s", ident(name), ident(owner)))
}

func ensureSchema(ctx context.Context, db DB, name, owner string) error {
	exists, err := db.QueryBool(ctx, qSchemaExists, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return db.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s AUTHORIZATION %s", ident(name), ident(owner)))
}

func ensureGrants(ctx context.Context, db DB, schema string, roles []Role) error {
	for _, role := range roles {
		stmts := []string{
			fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO %s", ident(schema), ident(role.Name)),
			fmt.Sprintf("GRANT SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA %s TO %s", ident(schema), ident(role.Name)),
			fmt.Sprintf("GRANT USAGE, SELECT ON ALL SEQUENCES IN SCHEMA %s TO %s", ident(schema), ident(role.Name)),
		}
		for _, stmt := range stmts {
			if err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureDefaultPrivileges makes future objects created by the owner inherit
// the same grants, so later migrations need no re-granting.
func ensureDefaultPrivileges(ctx context.Context, db DB, schema, owner string, roles []Role) error {
	for _, role := range roles {
		stmts := []string{
			fmt.Sprintf("ALTER DEFAULT PRIVILEGES FOR ROLE %s IN SCHEMA %s GRANT SELECT, INSERT, UPDATE, DELETE ON TABLES TO %s",
				ident(owner), ident(schema), ident(role.Name)),
			fmt.Sprintf("ALTER DEFAULT PRIVILEGES FOR ROLE %s IN SCHEMA %s GRANT USAGE, SELECT ON SEQUENCES TO %s",
				ident(owner), ident(schema), ident(role.Name)),
		}
		for _, stmt := range stmts {
			if err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// dropStalePublications removes publications matching the naming convention
// other than the current one. Without this, repeated bring-ups against a
// store carrying artifacts from older runs hit duplicate-object errors.
func dropStalePublications(ctx context.Context, db DB, prefix, keep string) error {
	if prefix == "" {
		return nil
	}
	stale, err := db.QueryStrings(ctx, qStalePublications, prefix+"%", keep)
	if err != nil {
		return err
	}
	for _, name := range stale {
		if err := db.Exec(ctx, "DROP PUBLICATION IF EXISTS "+ident(name)); err != nil {
			return err
		}
	}
	return nil
}

func ensurePublication(ctx context.Context, db DB, name string) error {
	if name == "" {
		return nil
	}
	exists, err := db.QueryBool(ctx, qPublicationExists, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return db.Exec(ctx, fmt.Sprintf("CREATE PUBLICATION %s FOR ALL TABLES", ident(name)))
}
