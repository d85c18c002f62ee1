package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/varekai/stackup"
	"github.com/varekai/stackup/internal/logger"
	"github.com/varekai/stackup/internal/wait"
)

// buildStack loads, validates, and assembles the stack; swappable in tests.
type buildStack func(configPath string) (*stackup.Stack, *stackup.Config, error)

type command struct {
	out   io.Writer
	build buildStack
}

func defaultBuild(configPath string) (*stackup.Stack, *stackup.Config, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	c, err := stackup.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Setup(logger.Config{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
		NoColor:    c.Log.NoColor,
	})
	s, err := stackup.New(c)
	if err != nil {
		return nil, nil, err
	}
	return s, c, nil
}

func (c *command) Up(ctx context.Context, f UpFlags) error {
	s, _, err := c.build(f.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if f.DryRun {
		plan, err := s.Plan()
		if err != nil {
			return err
		}
		for i, wave := range plan {
			_, _ = fmt.Fprintf(c.out, "wave %d: %s\n", i, strings.Join(wave, ", "))
		}
		return nil
	}

	rep := s.Up(ctx)
	c.printReport(rep)
	return rep.Err
}

func (c *command) printReport(rep stackup.Report) {
	for _, wr := range rep.Waves {
		for _, sr := range wr.Services {
			switch {
			case sr.Skipped:
				_, _ = fmt.Fprintf(c.out, "wave %d  %-20s already healthy\n", wr.Index, sr.Name)
			case sr.Outcome.Terminal == wait.TerminalHealthy:
				note := ""
				if sr.Outcome.Last.Caveat {
					note = "  (caveat: " + sr.Outcome.Last.Detail + ")"
				}
				_, _ = fmt.Fprintf(c.out, "wave %d  %-20s healthy after %s (%d polls)%s\n",
					wr.Index, sr.Name, sr.Outcome.Elapsed.Round(time.Millisecond), sr.Outcome.Polls, note)
			default:
				_, _ = fmt.Fprintf(c.out, "wave %d  %-20s %s after %s\n",
					wr.Index, sr.Name, sr.Outcome.Terminal, sr.Outcome.Elapsed.Round(time.Millisecond))
			}
		}
	}
	if len(rep.Aborted) > 0 {
		_, _ = fmt.Fprintf(c.out, "never attempted: %s\n", strings.Join(rep.Aborted, ", "))
	}
}

func (c *command) Status(ctx context.Context, f StatusFlags) error {
	s, _, err := c.build(f.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	st := s.Status(ctx)
	if f.Name != "" {
		e, ok := st.Get(f.Name)
		if !ok {
			return fmt.Errorf("unknown service: %s", f.Name)
		}
		printJSON(c.out, e)
		return nil
	}
	printJSON(c.out, st)
	return nil
}

func (c *command) Logs(ctx context.Context, f LogsFlags) error {
	if f.Name == "" {
		return fmt.Errorf("--name is required")
	}
	s, _, err := c.build(f.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	rc, err := s.Logs(ctx, f.Name, f.Tail)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	_, err = io.Copy(c.out, rc)
	return err
}

func (c *command) Restart(ctx context.Context, f RestartFlags) error {
	if f.Name == "" {
		return fmt.Errorf("--name is required")
	}
	s, _, err := c.build(f.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.Restart(ctx, f.Name); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "restarted %s\n", f.Name)
	return nil
}

func (c *command) Bootstrap(ctx context.Context, f BootstrapFlags) error {
	s, _, err := c.build(f.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return s.Bootstrap(ctx)
}

var errRepairNeedsConfirm = errors.New("repair drops the managed database and roles; re-run with --yes to confirm")

func (c *command) Repair(ctx context.Context, f RepairFlags) error {
	if !f.Yes {
		return errRepairNeedsConfirm
	}
	s, _, err := c.build(f.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return s.Repair(ctx)
}

func (c *command) Serve(ctx context.Context, f ServeFlags) error {
	s, cfg, err := c.build(f.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := stackup.RegisterMetricsDefault(); err != nil {
		return err
	}

	listen := f.Listen
	if listen == "" {
		listen = cfg.Server.Listen
	}
	if listen == "" {
		listen = "127.0.0.1:8321"
	}
	base := f.BasePath
	if base == "" {
		base = cfg.Server.BasePath
	}

	srv, err := s.NewHTTPServer(listen, base)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "listening on %s\n", listen)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
