package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	"github.com/spf13/cobra"
)

type migrateConfig struct {
	DatabaseURL     string
	MigrationsTable string
	MigrationsPath  string
}

func init() {
	rootCmd.AddCommand(newMigrateCommand())
}

func newMigrateCommand() *cobra.Command {
	cfg := migrateConfig{
		MigrationsTable: "gearshop.schema_migrations",
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run gearshop schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	migrateCmd.PersistentFlags().StringVar(&cfg.DatabaseURL, "database-url", "", "Database connection URL. Can also be set via GEARSHOP_MIGRATE_DATABASE_URL.")
	migrateCmd.PersistentFlags().StringVar(&cfg.MigrationsTable, "migrations-table", cfg.MigrationsTable, "Migrations version table, in table or schema.table format.")
	migrateCmd.PersistentFlags().StringVar(&cfg.MigrationsPath, "migrations-path", "", "Path or source URL for migration files. Defaults to pkg/storage/postgres/migrations.")

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up [steps]",
		Short: "Apply schema migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, hasSteps, err := parseSteps(args)
			if err != nil {
				return err
			}

			runner, sourceURL, err := newMigrationRunner(cfg)
			if err != nil {
				return err
			}
			defer closeMigrationRunner(cmd, runner)

			if hasSteps {
				err = runner.Steps(steps)
			} else {
				err = runner.Up()
			}
			if err != nil {
				if isBoundary(err) {
					cmd.Println("No schema changes to apply.")
					return nil
				}
				return fmt.Errorf("apply migrations: %w", err)
			}

			cmd.Printf("Applied migrations from %s\n", sourceURL)
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down <steps>",
		Short: "Roll back schema migrations by step count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _, err := parseSteps(args)
			if err != nil {
				return err
			}

			runner, sourceURL, err := newMigrationRunner(cfg)
			if err != nil {
				return err
			}
			defer closeMigrationRunner(cmd, runner)

			if err := runner.Steps(-steps); err != nil {
				if isBoundary(err) {
					cmd.Println("No schema changes to roll back.")
					return nil
				}
				return fmt.Errorf("rollback migrations: %w", err)
			}

			cmd.Printf("Rolled back %d migration step(s) from %s\n", steps, sourceURL)
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Force-set the migration version (-1 for no version)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil || version < -1 {
				return fmt.Errorf("invalid force version %q: expected an integer >= -1", args[0])
			}

			runner, _, err := newMigrationRunner(cfg)
			if err != nil {
				return err
			}
			defer closeMigrationRunner(cmd, runner)

			if err := runner.Force(version); err != nil {
				return fmt.Errorf("force migration version: %w", err)
			}

			cmd.Printf("Forced migration version to %d.\n", version)
			return nil
		},
	})

	return migrateCmd
}

func resolveDatabaseURL(flagValue string) (string, error) {
	databaseURL := strings.TrimSpace(flagValue)
	if databaseURL == "" {
		databaseURL = strings.TrimSpace(os.Getenv("GEARSHOP_MIGRATE_DATABASE_URL"))
	}
	if databaseURL == "" {
		databaseURL = strings.TrimSpace(os.Getenv("GEARSHOP_POSTGRES_DSN"))
	}
	if databaseURL == "" {
		return "", errors.New("missing database URL: set --database-url or GEARSHOP_MIGRATE_DATABASE_URL")
	}
	return databaseURL, nil
}

func parseSteps(args []string) (int, bool, error) {
	if len(args) == 0 {
		return 0, false, nil
	}
	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || steps <= 0 {
		return 0, false, fmt.Errorf("invalid migration steps %q: expected a positive integer", args[0])
	}
	return steps, true, nil
}

func newMigrationRunner(cfg migrateConfig) (*migrate.Migrate, string, error) {
	databaseURL, err := resolveDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, "", err
	}

	schema, table := splitMigrationsTable(cfg.MigrationsTable)
	if schema != "" {
		if err := ensureSchemaExists(databaseURL, schema); err != nil {
			return nil, "", err
		}
	}

	databaseURL, err = applyMigrationsTable(databaseURL, schema, table)
	if err != nil {
		return nil, "", err
	}

	sourceURL, err := resolveSourceURL(cfg.MigrationsPath)
	if err != nil {
		return nil, "", err
	}

	runner, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("create migrate runner: %w", err)
	}
	return runner, sourceURL, nil
}

func splitMigrationsTable(value string) (schema string, table string) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return "", "schema_migrations"
	}
	if before, after, found := strings.Cut(raw, "."); found {
		return before, after
	}
	return "", raw
}

// applyMigrationsTable steers golang-migrate's version tracking into the
// configured table via the x-migrations-table query parameter.
func applyMigrationsTable(databaseURL string, schema string, table string) (string, error) {
	if table == "" {
		return databaseURL, nil
	}

	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse --database-url: %w", err)
	}

	query := parsed.Query()
	if query.Get("x-migrations-table") != "" {
		return databaseURL, nil
	}

	if schema != "" {
		query.Set("x-migrations-table", fmt.Sprintf("%s.%s", pq.QuoteIdentifier(schema), pq.QuoteIdentifier(table)))
		query.Set("x-migrations-table-quoted", "true")
	} else {
		query.Set("x-migrations-table", table)
	}

	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// ensureSchemaExists creates the target schema up front so a schema-qualified
// migrations table can be written on the first run.
func ensureSchemaExists(databaseURL string, schema string) error {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("parse --database-url: %w", err)
	}
	sanitized := migrate.FilterCustomQuery(parsed)

	db, err := sql.Open("postgres", sanitized.String())
	if err != nil {
		return fmt.Errorf("open database for schema bootstrap: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(schema)); err != nil {
		return fmt.Errorf("ensure migrations schema %q exists: %w", schema, err)
	}
	return nil
}

func resolveSourceURL(migrationsPath string) (string, error) {
	pathOrURL := strings.TrimSpace(migrationsPath)
	if pathOrURL == "" {
		pathOrURL = "pkg/storage/postgres/migrations"
	}
	if strings.Contains(pathOrURL, "://") {
		return pathOrURL, nil
	}

	absPath, err := filepath.Abs(pathOrURL)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path %q: %w", pathOrURL, err)
	}
	return "file://" + filepath.ToSlash(absPath), nil
}

func closeMigrationRunner(cmd *cobra.Command, runner *migrate.Migrate) {
	if runner == nil {
		return
	}
	sourceErr, databaseErr := runner.Close()
	if err := errors.Join(sourceErr, databaseErr); err != nil {
		cmd.PrintErrf("warning: failed to close migration runner cleanly: %v\n", err)
	}
}

// golang-migrate reports a bare os.ErrNotExist when a step command reaches
// the migration boundary.
func isBoundary(err error) bool {
	return errors.Is(err, migrate.ErrNoChange) || err == os.ErrNotExist
}
