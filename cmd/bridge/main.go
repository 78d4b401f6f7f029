// Package main is the entrypoint for the frame bridge (binary name "bridge").
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/morezero/frame-bridge/internal/config"
	"github.com/morezero/frame-bridge/internal/server"
	"github.com/morezero/frame-bridge/pkg/db"
)

const usage = `Usage: bridge [command]
       bridge serve                   Start the frame bridge (COMMS, HTTP, optional call journal).
       bridge host                    Start the development wallet host.
       bridge call <method> [params]  Send one request through the bridge and print the result.
       bridge migrate up              Run database migrations.
       bridge migrate down            Roll back one migration (optional; not all migrations support down).
       bridge migrate status          Show migration status.
       bridge ensure-db [name]        Create database if missing (default name: bridge_test). Uses DATABASE_URL host/user.
       bridge clear                   Truncate the call journal; schema is preserved.

Commands:
  serve            (default) Start the frame bridge.
  host             Answer frame requests with a static wallet (HOST_* variables).
  call             params is a JSON array or object, e.g. bridge call eth_chainId '[]'.
  migrate up       Run database migrations only.
  migrate down     Roll back last migration (optional).
  migrate status   Show current migration status.
  ensure-db [name] Create database (e.g. bridge_test) on same host as DATABASE_URL; then run tests with that URL.
  clear            Truncate bridge_calls; schema preserved.

Environment: COMMS_URL, BRIDGE_LOCAL_ORIGIN, BRIDGE_TARGET_ORIGIN, BRIDGE_TIMEOUT, BRIDGE_HOST_VERSION,
DATABASE_URL (journal and db commands), MIGRATION_PATH, BRIDGE_HTTP_ADDR (default :$HTTP_PORT, 8080).
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("bridge migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("bridge migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("bridge migrate status: %v", err)
			}
		case "down":
			if err := runMigrateDown(); err != nil {
				log.Fatalf("bridge migrate down: %v", err)
			}
		default:
			log.Fatalf("bridge migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("bridge clear: %v", err)
		}
		return
	case "ensure-db":
		dbName := "bridge_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("bridge ensure-db: %v", err)
		}
		return
	case "host":
		if err := server.RunHost(); err != nil {
			log.Fatalf("bridge host: %v", err)
		}
		return
	case "call":
		method, params, err := parseCallArgs(args[1:])
		if err != nil {
			log.Fatalf("bridge call: %v", err)
		}
		if err := server.RunCall(method, params, os.Stdout); err != nil {
			log.Fatalf("bridge call: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("bridge: %v", err)
	}
}

// parseCallArgs reads "<method> [params-json]".
func parseCallArgs(args []string) (string, json.RawMessage, error) {
	if len(args) == 0 || args[0] == "" {
		return "", nil, errors.New("method is required")
	}
	if len(args) == 1 {
		return args[0], nil, nil
	}
	params := json.RawMessage(args[1])
	if !json.Valid(params) {
		return "", nil, fmt.Errorf("params %q are not valid JSON", args[1])
	}
	return args[0], params, nil
}

func runMigrateUp() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	states, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	if err != nil {
		return err
	}
	pending := 0
	for _, st := range states {
		mark := "applied"
		if !st.Applied {
			mark = "pending"
			pending++
		}
		fmt.Printf("  %-8s %s\n", mark, st.Name)
	}
	if pending > 0 {
		fmt.Printf("%d pending migration(s) in %s; run 'bridge migrate up'.\n", pending, cfg.MigrationPath)
	} else {
		fmt.Printf("All %d migrations in %s are applied.\n", len(states), cfg.MigrationPath)
	}
	return nil
}

func runMigrateDown() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return db.MigrationDown(ctx, pool, cfg.MigrationPath)
}

func runClear() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ClearJournal(ctx, pool); err != nil {
		return fmt.Errorf("clear journal: %w", err)
	}
	fmt.Println("Call journal cleared.")
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	targetURL, err := db.WithDatabase(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	created, err := db.EnsureDatabase(context.Background(), targetURL)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Database %q created.\n", dbName)
	} else {
		fmt.Printf("Database %q already exists.\n", dbName)
	}
	return nil
}
