// Package bootstrap performs one-time idempotent initialization of the
// shared Postgres store: roles, database, schema, grants, default
// privileges and replication publications. The normal path only ever adds
// what is missing; Repair is the destructive variant that drops and
// recreates the canonical objects outright.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync/atomic"
	"time"
)

// Role describes a role the reconciler ensures.
type Role struct {
	Name     string
	Password string
	Login    bool
}

// Config is the immutable reconciler configuration, built once from the
// resolved application config and passed in explicitly.
type Config struct {
	AdminDSN string // maintenance connection (postgres database)
	AppDSN   string // application database connection
	Database string
	Schema   string
	Owner    Role
	AppRoles []Role
	// Publication name is Prefix + Database; older publications sharing the
	// prefix are treated as stale and dropped before creation.
	PublicationPrefix string
}

// ErrBusy reports that another reconciliation holds the store. A concurrent
// run is rejected outright, never interleaved.
var ErrBusy = errors.New("bootstrap: another reconciliation is already running")

// StepError names the failing step so operators know where the sequence
// stopped. Prior steps are not rolled back; re-running is safe.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("bootstrap step %q failed: %v (fix the cause and re-run; completed steps are idempotent)", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// StepObserver is notified after every executed step. Used for metrics and
// history recording.
type StepObserver func(step string, elapsed time.Duration, err error)

// Reconciler drives the ordered idempotent step sequence. Single-flight: an
// in-process guard plus a Postgres advisory lock keyed on the database name
// reject concurrent runs from this or any other process.
type Reconciler struct {
	cfg     Config
	open    Opener
	log     *slog.Logger
	observe StepObserver
	busy    atomic.Bool
}

func New(cfg Config, opts ...Option) *Reconciler {
	r := &Reconciler{cfg: cfg, open: OpenSession, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Option func(*Reconciler)

// WithOpener swaps the connection factory; tests use this.
func WithOpener(open Opener) Option { return func(r *Reconciler) { r.open = open } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(r *Reconciler) { r.log = l } }

// WithStepObserver registers a per-step callback.
func WithStepObserver(o StepObserver) Option { return func(r *Reconciler) { r.observe = o } }

func (r *Reconciler) publicationName() string {
	if r.cfg.PublicationPrefix == "" {
		return ""
	}
	return r.cfg.PublicationPrefix + r.cfg.Database
}

func (r *Reconciler) lockKey() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("stackup:" + r.cfg.Database))
	return int64(h.Sum64())
}

// Run executes the normal reconciliation path. Re-running converges to the
// same end state from any prefix of a previous run.
func (r *Reconciler) Run(ctx context.Context) error {
	return r.execute(ctx, false)
}

// Repair executes the destructive variant: terminate sessions bound to the
// application database, drop the database, drop the managed roles, then run
// the normal path against the empty store. Sessions bound to the dropped
// objects are invalidated; callers must guarantee there are no concurrent
// consumers.
func (r *Reconciler) Repair(ctx context.Context) error {
	return r.execute(ctx, true)
}

func (r *Reconciler) execute(ctx context.Context, destructive bool) error {
	if !r.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer r.busy.Store(false)

	adm, err := r.open(ctx, r.cfg.AdminDSN)
	if err != nil {
		return fmt.Errorf("bootstrap: connect maintenance database: %w", err)
	}
	defer func() { _ = adm.Close() }()

	locked, err := adm.QueryBool(ctx, `SELECT pg_try_advisory_lock($1)`, r.lockKey())
	if err != nil {
		return fmt.Errorf("bootstrap: acquire advisory lock: %w", err)
	}
	if !locked {
		return ErrBusy
	}
	defer func() {
		_, _ = adm.QueryBool(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, r.lockKey())
	}()

	if destructive {
		if err := r.reset(ctx, adm); err != nil {
			return err
		}
	}

	s := &session{adm: adm}
	defer func() {
		if s.app != nil {
			_ = s.app.Close()
		}
	}()
	for _, st := range steps() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.app == nil && needsAppConnection(st.name) {
			app, err := r.open(ctx, r.cfg.AppDSN)
			if err != nil {
				return fmt.Errorf("bootstrap: connect application database: %w", err)
			}
			s.app = app
		}
		started := time.Now()
		err := st.run(ctx, r, s)
		elapsed := time.Since(started)
		if r.observe != nil {
			r.observe(st.name, elapsed, err)
		}
		if err != nil {
			return &StepError{Step: st.name, Err: err}
		}
		r.log.Debug("bootstrap step done", "step", st.name, "elapsed", elapsed)
	}
	r.log.Info("bootstrap reconciled", "database", r.cfg.Database, "schema", r.cfg.Schema, "destructive", destructive)
	return nil
}

// needsAppConnection reports whether the step operates on the application
// database. Everything from the schema step onward does; the connection is
// only opened once the database step has guaranteed the target exists.
func needsAppConnection(stepName string) bool {
	switch stepName {
	case "ensure-owner-role", "ensure-app-roles", "ensure-database":
		return false
	}
	return true
}

// reset is the destructive prelude of Repair. It runs on the maintenance
// connection only.
func (r *Reconciler) reset(ctx context.Context, adm DB) error {
	r.log.Warn("bootstrap repair: dropping managed objects", "database", r.cfg.Database)
	if err := adm.Exec(ctx, qTerminateSessions, r.cfg.Database); err != nil {
		return &StepError{Step: "terminate-sessions", Err: err}
	}
	if err := adm.Exec(ctx, "DROP DATABASE IF EXISTS "+ident(r.cfg.Database)+" WITH (FORCE)"); err != nil {
		return &StepError{Step: "drop-database", Err: err}
	}
	for _, role := range r.cfg.AppRoles {
		if err := adm.Exec(ctx, "DROP ROLE IF EXISTS "+ident(role.Name)); err != nil {
			return &StepError{Step: "drop-role", Err: fmt.Errorf("role %s: %w", role.Name, err)}
		}
	}
	if err := adm.Exec(ctx, "DROP ROLE IF EXISTS "+ident(r.cfg.Owner.Name)); err != nil {
		return &StepError{Step: "drop-role", Err: fmt.Errorf("role %s: %w", r.cfg.Owner.Name, err)}
	}
	return nil
}
