package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/b0vik/subgencluster-api-server/config"
	"github.com/b0vik/subgencluster-api-server/internal/bootstrap"
	"github.com/b0vik/subgencluster-api-server/internal/data"
	"github.com/b0vik/subgencluster-api-server/internal/devseed"
	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	"github.com/b0vik/subgencluster-api-server/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrate,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run database migrations and seed development data",
			run:         runDBSeed,
		},
		"create-account": {
			name:        "create-account",
			description: "Register an account and print its API key",
			run:         runCreateAccount,
		},
		"job-stats": {
			name:        "job-stats",
			description: "Print queue depth per job status",
			run:         runJobStats,
		},
		"requeue-stuck": {
			name:        "requeue-stuck",
			description: "Return stale assigned/transcribing jobs to the queue",
			run:         runRequeueStuck,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stderr, "usage: subgencluster-admin <command> [flags]\n\ncommands:\n"); err != nil {
		return err
	}

	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(os.Stderr, 2, 4, 2, ' ', 0)
	for _, name := range names {
		if err := writef(tw, "  %s\t%s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func runMigrate(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 5*time.Minute, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connectDB(ctx.Logger, &ctx.Config)
	if err != nil {
		return err
	}
	defer closeDB(ctx.Logger, db)

	runCtx, cancel := context.WithTimeout(ctx.Ctx, *timeout)
	defer cancel()

	return bootstrap.RunMigrations(runCtx, db, ctx.Logger)
}

func runDBSeed(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("db-seed", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connectDB(ctx.Logger, &ctx.Config)
	if err != nil {
		return err
	}
	defer closeDB(ctx.Logger, db)

	if err := bootstrap.RunMigrations(ctx.Ctx, db, ctx.Logger); err != nil {
		return err
	}

	return devseed.Run(ctx.Ctx, devseed.NewServices(db), ctx.Logger)
}

func runCreateAccount(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("create-account", flag.ContinueOnError)
	username := fs.String("username", "", "username for the new account (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		fs.Usage()
		return fmt.Errorf("username is required")
	}

	db, err := connectDB(ctx.Logger, &ctx.Config)
	if err != nil {
		return err
	}
	defer closeDB(ctx.Logger, db)

	auth, err := service.NewAuthService(service.AuthServiceOptions{
		Accounts: data.NewAccountRepo(db, data.RepoConfig{Logger: ctx.Logger}),
		Logger:   ctx.Logger,
	})
	if err != nil {
		return err
	}

	account, err := auth.Register(ctx.Ctx, &model.CreateAccountRequest{
		Username:       *username,
		RegisteredFrom: "admin-cli",
	})
	if err != nil {
		return err
	}

	return writef(os.Stdout, "username: %s\napi_key: %s\n", account.Username, account.APIKey)
}

func runJobStats(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("job-stats", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connectDB(ctx.Logger, &ctx.Config)
	if err != nil {
		return err
	}
	defer closeDB(ctx.Logger, db)

	repo := data.NewJobRepo(db, data.RepoConfig{Logger: ctx.Logger})
	stats, err := repo.Stats(ctx.Ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	rows := []struct {
		status string
		count  int
	}{
		{"requested", stats.Requested},
		{"assigned", stats.Assigned},
		{"transcribing", stats.Transcribing},
		{"completed", stats.Completed},
	}
	for _, row := range rows {
		if err := writef(tw, "%s\t%d\n", row.status, row.count); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runRequeueStuck(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("requeue-stuck", flag.ContinueOnError)
	maxAge := fs.Duration("max-age", ctx.Config.Sweeper.MaxAssignmentAge, "requeue jobs assigned longer than this")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connectDB(ctx.Logger, &ctx.Config)
	if err != nil {
		return err
	}
	defer closeDB(ctx.Logger, db)

	repo := data.NewJobRepo(db, data.RepoConfig{Logger: ctx.Logger})
	requeued, err := repo.RequeueStuck(ctx.Ctx, *maxAge)
	if err != nil {
		return err
	}

	return writef(os.Stdout, "requeued %d job(s)\n", requeued)
}
