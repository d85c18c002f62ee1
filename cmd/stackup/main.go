package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := buildRoot(ctx, &command{out: os.Stdout, build: defaultBuild})
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

// buildRoot creates the root command and wires the subcommands
func buildRoot(ctx context.Context, c *command) *cobra.Command {
	globalFlags := &GlobalFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createUpCommand(ctx, c, globalFlags),
		createStatusCommand(ctx, c, globalFlags),
		createLogsCommand(ctx, c, globalFlags),
		createRestartCommand(ctx, c, globalFlags),
		createBootstrapCommand(ctx, c, globalFlags),
		createRepairCommand(ctx, c, globalFlags),
		createServeCommand(ctx, c, globalFlags),
		createInitCommand(c),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "stackup",
		Short: "Dependency-ordered service bring-up for container stacks",
		Long: `Stackup brings a multi-service container stack from any state to
"everything healthy": it reconciles the backing database, then starts
services wave by wave so nothing runs before its dependencies are ready.

Examples:
  stackup up --config=stack.toml
  stackup up --config=stack.toml --dry-run    # print the wave plan
  stackup status --config=stack.toml
  stackup repair --config=stack.toml --yes    # destructive database rebuild`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file")
	return root
}

func createUpCommand(ctx context.Context, c *command, global *GlobalFlags) *cobra.Command {
	flags := &UpFlags{}
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Bring every service to healthy, in dependency order",
		Long: `Validates the configuration, reconciles the database, then starts
services wave by wave. Already-healthy services are left alone, so re-running
up against a partially started stack converges instead of restarting anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = global.ConfigPath
			return c.Up(ctx, *flags)
		},
	}
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "print the wave plan and exit without touching the runtime")
	return cmd
}

func createStatusCommand(ctx context.Context, c *command, global *GlobalFlags) *cobra.Command {
	flags := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe every service once and print the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = global.ConfigPath
			return c.Status(ctx, *flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "report a single service instead of the whole stack")
	return cmd
}

func createLogsCommand(ctx context.Context, c *command, global *GlobalFlags) *cobra.Command {
	flags := &LogsFlags{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent container output for one service",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = global.ConfigPath
			return c.Logs(ctx, *flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "service name (required)")
	cmd.Flags().IntVar(&flags.Tail, "tail", 200, "number of trailing lines")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func createRestartCommand(ctx context.Context, c *command, global *GlobalFlags) *cobra.Command {
	flags := &RestartFlags{}
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart one service's container",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = global.ConfigPath
			return c.Restart(ctx, *flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "service name (required)")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func createBootstrapCommand(ctx context.Context, c *command, global *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Run the idempotent database bring-up on its own",
		Long: `Applies the database bootstrap steps (roles, database, schema, grants,
publication) without starting any service. Safe to run repeatedly: existing
state is left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Bootstrap(ctx, BootstrapFlags{ConfigPath: global.ConfigPath})
		},
	}
	return cmd
}

func createRepairCommand(ctx context.Context, c *command, global *GlobalFlags) *cobra.Command {
	flags := &RepairFlags{}
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Drop and rebuild the managed database state (destructive)",
		Long: `Terminates sessions on the managed database, drops it together with the
managed roles, then re-runs the normal bootstrap. Data in the managed
database is lost. Requires --yes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = global.ConfigPath
			return c.Repair(ctx, *flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Yes, "yes", false, "confirm the destructive rebuild")
	return cmd
}

func createInitCommand(c *command) *cobra.Command {
	flags := &TemplateFlags{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter stack.toml to fill in",
		Long: `Generates a stack.toml skeleton with placeholder credentials and one
block per requested service. Validation refuses to run a bring-up until the
placeholders are replaced.

Examples:
  stackup init
  stackup init --service db:database --service api:api --service jobs:worker`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.TemplateInit(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Output, "output", "", "output path (default stack.toml)")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "overwrite an existing file")
	cmd.Flags().StringArrayVar(&flags.Services, "service", nil, "service as name:type (web, api, worker, database, simple)")
	return cmd
}

func createServeCommand(ctx context.Context, c *command, global *GlobalFlags) *cobra.Command {
	flags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control API (status, logs, restart, repair, metrics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = global.ConfigPath
			return c.Serve(ctx, *flags)
		},
	}
	cmd.Flags().StringVar(&flags.Listen, "listen", "", "listen address (default from config, else 127.0.0.1:8321)")
	cmd.Flags().StringVar(&flags.BasePath, "base-path", "", "URL prefix for all endpoints")
	return cmd
}
