package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	cfnats "github.com/Strob0t/askdesk/internal/adapter/nats"
	"github.com/Strob0t/askdesk/internal/adapter/natskv"
	"github.com/Strob0t/askdesk/internal/adapter/postgres"
	"github.com/Strob0t/askdesk/internal/config"
	"github.com/Strob0t/askdesk/internal/domain/conversation"
	"github.com/Strob0t/askdesk/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "resolve":
		return runAdminResolve(args[1:])
	case "migrate-status":
		return runAdminMigrateStatus(args[1:])
	case "rollback":
		return runAdminRollback(args[1:])
	case "invalidate":
		return runAdminInvalidate(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: askdesk admin <command> [options]

Commands:
  resolve          Resolve a key or invite token and print the conversation context
  migrate-status   Print the applied schema version
  rollback         Roll back schema migrations
  invalidate       Drop a cached project or challenge on every instance
  help             Show this help message

Examples:
  askdesk admin resolve --key team-retro
  askdesk admin resolve --key team-retro --user 7f9c... --json
  askdesk admin rollback --steps 1
  askdesk admin invalidate --kind project --id 3b1e...
`)
}

func loadAdminConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.Driver != "postgres" {
		return nil, fmt.Errorf("admin commands need storage.driver postgres, got %q", cfg.Storage.Driver)
	}
	return cfg, nil
}

// loadAdminDeps wires a context service straight onto postgres, without
// cache or queue, so the harness sees exactly what storage holds.
func loadAdminDeps(ctx context.Context) (*service.ContextService, func(), error) {
	cfg, err := loadAdminConfig()
	if err != nil {
		return nil, nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	threads := service.NewThreadService(store, service.Classifier{DefaultShared: cfg.Threads.DefaultShared})
	svc := service.NewContextService(store,
		service.NewLocatorService(store, cfg.Sessions.FuzzyKeyMatch),
		threads,
		service.NewMessageService(store),
		service.NewCatalogService(store, nil, 0),
		store,
	)
	return svc, pool.Close, nil
}

type resolveOutput struct {
	Context     *conversation.Context `json:"context"`
	Diagnostics service.Diagnostics   `json:"diagnostics"`
}

func runAdminResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	key := fs.String("key", "", "session key or invite token (required)")
	userID := fs.String("user", "", "user to resolve as (anonymous if empty)")
	asJSON := fs.Bool("json", false, "print JSON even on a terminal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *key == "" {
		return errors.New("--key is required")
	}

	ctx := context.Background()
	svc, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	cc, loc, err := svc.ResolveAndAssemble(ctx, *key, userID)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", *key, err)
	}
	out := resolveOutput{Context: cc, Diagnostics: service.Diagnose(cc, loc)}

	if *asJSON || !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // fd fits in int
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return writeResolveTable(os.Stdout, out)
}

// writeResolveTable prints a human-readable summary of a resolution.
func writeResolveTable(out io.Writer, r resolveOutput) error {
	cc, d := r.Context, r.Diagnostics
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	threadID := "-"
	if d.ThreadID != nil {
		threadID = *d.ThreadID
	}
	mode := "individual"
	if d.Shared {
		mode = "shared"
	}
	step := "-"
	if d.ActiveStep != nil {
		step = *d.ActiveStep
	}

	_, _ = fmt.Fprintf(w, "SESSION\t%s (%s)\n", cc.AskSession.Key, cc.AskSession.ID)
	_, _ = fmt.Fprintf(w, "MODE\t%s via %s\n", mode, d.ClassificationSource)
	_, _ = fmt.Fprintf(w, "THREAD\t%s\n", threadID)
	_, _ = fmt.Fprintf(w, "PLAN STEP\t%s\n", step)
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "PARTICIPANT\tROLE\tSPOKESPERSON\tUSER")
	for _, p := range cc.Participants {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", p.Name, orDash(p.Role), p.IsSpokesperson, orDash(p.UserID))
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "TIME\tSENDER\tCONTENT")
	for _, m := range cc.Messages {
		ts := "-"
		if !m.Timestamp.IsZero() {
			ts = m.Timestamp.Format("2006-01-02 15:04:05")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", ts, m.SenderName, truncate(m.Content, 60))
	}
	return w.Flush()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func runAdminMigrateStatus(args []string) error {
	fs := flag.NewFlagSet("migrate-status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAdminConfig()
	if err != nil {
		return err
	}
	version, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	fmt.Printf("schema version: %d\n", version)
	return nil
}

func runAdminRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return errors.New("--steps must be >= 1")
	}

	cfg, err := loadAdminConfig()
	if err != nil {
		return err
	}
	if err := postgres.RollbackMigrations(context.Background(), cfg.Postgres.DSN, *steps); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *steps)
	return nil
}

func runAdminInvalidate(args []string) error {
	fs := flag.NewFlagSet("invalidate", flag.ContinueOnError)
	kind := fs.String("kind", "", "project or challenge (required)")
	id := fs.String("id", "", "record id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kind == "" || *id == "" {
		return errors.New("--kind and --id are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.NATS.Enabled {
		return errors.New("invalidate needs nats enabled")
	}

	ctx := context.Background()
	q, err := cfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = q.Close() }()

	kv, err := natskv.Open(ctx, q.JetStream(), cfg.NATS.KVBucket, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("kv: %w", err)
	}
	// The CLI has no local level: clearing the shared one and announcing
	// the change is all it can do.
	catalog := service.NewCatalogService(nil, kv, cfg.Cache.TTL)
	if err := service.PublishCatalogInvalidate(ctx, q, catalog, *kind, *id); err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Invalidated %s %s\n", *kind, *id)
	return nil
}
