package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/donation/backend/internal/infrastructure/logger"
	"github.com/donation/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	var (
		migrationsPath string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default: nearest ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if migrationsPath == "" {
		migrationsPath, err = migration.FindMigrationsPath(".")
		if err != nil {
			log.Fatal("Could not locate migrations directory, pass -path", zap.Error(err))
		}
	}
	if migrationsPath, err = filepath.Abs(migrationsPath); err != nil {
		log.Fatal("Failed to get absolute path", zap.Error(err))
	}

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("migrations_path", migrationsPath),
	)

	// create and list work on the filesystem only
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(migrationsPath, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		names, err := migration.ListMigrations(migrationsPath)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(names) == 0 {
			log.Info("No migrations found")
			return
		}
		log.Info("Available migrations", zap.Int("count", len(names)))
		for _, name := range names {
			fmt.Println("  -", name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver == config.DriverSQLite {
		log.Fatal("SQL migrations target PostgreSQL; SQLite schemas are created by the server with database.auto_migrate=true")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}

	err = run(m, command, args[1:], log)
	_ = m.Close()
	if errors.Is(err, errUsage) {
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

var errUsage = errors.New("usage")

// run executes one database command. Errors are returned rather than fatal so
// the migrator and its connection are always closed.
func run(m *migration.Migrator, command string, args []string, log *zap.Logger) error {
	arg := func(what string) (string, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("%s required: migrate %s <%s>", what, command, what)
		}
		return args[0], nil
	}

	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		v, err := arg("n")
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid step count %q", v)
		}
		return m.Steps(n)
	case "goto":
		v, err := arg("version")
		if err != nil {
			return err
		}
		version, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", v)
		}
		return m.GoTo(uint(version))
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("No migrations applied")
			return nil
		}
		log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	case "force":
		v, err := arg("version")
		if err != nil {
			return err
		}
		version, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid version %q", v)
		}
		log.Warn("Forcing migration version, the schema is not touched", zap.Int("version", version))
		return m.Force(version)
	default:
		log.Error("Unknown command", zap.String("command", command))
		return errUsage
	}
}

func printUsage() {
	fmt.Println(`Donation Platform Migration Tool (PostgreSQL)

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version after a failed run
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Path to migrations directory (default: nearest ./migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  DONATION_DATABASE_HOST, DONATION_DATABASE_PORT, DONATION_DATABASE_USER,
  DONATION_DATABASE_PASSWORD, DONATION_DATABASE_DBNAME, DONATION_DATABASE_SSLMODE

Examples:
  migrate up
  migrate step -1
  migrate create add_campaign_tags "Free-form tags on campaigns"
  migrate version`)
}
