// Package migrations holds migrations related helpers
package migrations

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const usageText = `Usage:
  go run cmd/migrate/main.go [flags] <command> [args]

This program runs command on the database. Supported commands are:
  - init - creates migration info table in the database
  - create <name> - scaffolds a new migration file next to the registered ones.
  - up - runs all available migrations.
  - down - reverts last migration group.
  - down-to <name> - reverts migration groups until <name> is the newest applied.
  - version - prints the newest applied migration.
  - status - prints migration status summary.
  - history - prints every known migration with its applied state.

Examples:
  go run cmd/migrate/main.go -config config.yaml init
  go run cmd/migrate/main.go -config config.yaml up
  go run cmd/migrate/main.go -config config.yaml down-to add_performance_indexes
`

// Usage prints command usage
func Usage() {
	fmt.Print(usageText)
	flag.PrintDefaults()
	os.Exit(2)
}

func errorf(s string, args ...any) {
	fmt.Fprintf(os.Stderr, s+"\n", args...)
}

// Exitf exits command printing usage
func Exitf(s string, args ...any) {
	errorf(s, args...)
	Usage()
	os.Exit(1)
}

// CreateSchema creates schema from models
func CreateSchema(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		log.Println("Creating Table for", reflect.TypeOf(model))
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// DropTables drops tables from database
func DropTables(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		log.Println("Dropping Table for", reflect.TypeOf(model))
		_, err := db.NewDropTable().
			Model(model).
			IfExists().
			Cascade().
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// InsertEntry inserts entries to the db
func InsertEntry(ctx context.Context, db bun.IDB, entries ...any) error {
	for _, entry := range entries {
		log.Println("Inserting entry")
		_, err := db.NewInsert().
			Model(entry).
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// TruncateTables removes entries from tables
func TruncateTables(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		_, err := db.NewDelete().
			Model(model).
			Where("1=1").
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateIndex creates an index on the database
func CreateIndex(ctx context.Context, db bun.IDB, tableName, indexName, columns string) error {
	_, err := db.NewCreateIndex().
		Table(tableName).
		Index(indexName).
		Column(columns).
		IfNotExists().
		Exec(ctx)
	return err
}

// CreateIndexExpr creates an index over a raw expression, e.g. "volume DESC NULLS LAST"
// or a multi-column list with per-column ordering. The expression is passed through
// to CREATE INDEX verbatim.
func CreateIndexExpr(ctx context.Context, db bun.IDB, tableName, indexName, expr string) error {
	_, err := db.NewCreateIndex().
		Table(tableName).
		Index(indexName).
		ColumnExpr(expr).
		IfNotExists().
		Exec(ctx)
	return err
}

// CreatePartialIndexExpr creates a partial index restricted to rows matching the
// predicate, e.g. predicate "is_active = true".
func CreatePartialIndexExpr(ctx context.Context, db bun.IDB, tableName, indexName, expr, predicate string) error {
	_, err := db.NewCreateIndex().
		Table(tableName).
		Index(indexName).
		ColumnExpr(expr).
		Where(predicate).
		IfNotExists().
		Exec(ctx)
	return err
}

// CreateIndexes creates multiple indexes on the table for the given columns.
// Index names are generated as idx_<table>_<column>.
func CreateIndexes(ctx context.Context, db bun.IDB, tableName string, columns ...string) error {
	for _, column := range columns {
		indexName := fmt.Sprintf("idx_%s_%s", strings.Trim(tableName, `"`), column)
		if err := CreateIndex(ctx, db, tableName, indexName, column); err != nil {
			return err
		}
	}
	return nil
}

// CreateModelIndexes creates multiple indexes on the table associated with the model.
func CreateModelIndexes(ctx context.Context, db bun.IDB, model any, columns ...string) error {
	for _, column := range columns {
		indexName, err := modelIndexName(db, model, column)
		if err != nil {
			return err
		}
		if _, err = db.NewCreateIndex().
			Model(model).
			Index(indexName).
			Column(column).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CreateModelUniqueIndexes creates multiple unique indexes on the table associated with the model.
func CreateModelUniqueIndexes(ctx context.Context, db bun.IDB, model any, columns ...string) error {
	for _, column := range columns {
		indexName, err := modelIndexName(db, model, column)
		if err != nil {
			return err
		}
		if _, err = db.NewCreateIndex().
			Model(model).
			Index(indexName).
			Column(column).
			Unique().
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CreateUniqueIndexes creates multiple unique indexes on the table for the given columns.
// Index names are generated as idx_<table>_<column>.
func CreateUniqueIndexes(ctx context.Context, db bun.IDB, tableName string, columns ...string) error {
	for _, column := range columns {
		indexName := fmt.Sprintf("idx_%s_%s", strings.Trim(tableName, `"`), column)
		if _, err := db.NewCreateIndex().
			Table(tableName).
			Index(indexName).
			Column(column).
			Unique().
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DropIndex drops an index from the database.
func DropIndex(ctx context.Context, db bun.IDB, indexName string) error {
	_, err := db.NewDropIndex().
		Index(indexName).
		IfExists().
		Exec(ctx)
	return err
}

// DropIndexes drops multiple indexes from the database.
func DropIndexes(ctx context.Context, db bun.IDB, indexNames ...string) error {
	for _, indexName := range indexNames {
		if err := DropIndex(ctx, db, indexName); err != nil {
			return err
		}
	}
	return nil
}

// DropModelIndexes drops indexes from the database using model + column names.
func DropModelIndexes(ctx context.Context, db bun.IDB, model any, columns ...string) error {
	for _, column := range columns {
		indexName, err := modelIndexName(db, model, column)
		if err != nil {
			return err
		}
		if _, err = db.NewDropIndex().
			Model(model).
			Index(indexName).
			IfExists().
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func modelIndexName(db bun.IDB, model any, column string) (string, error) {
	if model == nil {
		return "", fmt.Errorf("model cannot be nil")
	}
	tableName := db.NewCreateIndex().Model(model).GetTableName()
	if tableName == "" {
		return "", fmt.Errorf("failed to resolve table name for model %T", model)
	}

	indexTableName := strings.NewReplacer(`"`, "", ".", "_").Replace(tableName)
	return fmt.Sprintf("idx_%s_%s", indexTableName, column), nil
}

// migrationMatches reports whether target identifies the migration, either by
// its numeric name ("5"), its comment ("add_performance_indexes") or the full
// file-style name ("5_add_performance_indexes").
func migrationMatches(m migrate.Migration, target string) bool {
	return m.Name == target || m.Comment == target || m.String() == target
}

// RunMigrations runs migrations based on provided command arguments
func RunMigrations(migrator *migrate.Migrator, args ...string) error {
	ctx := context.Background()

	if len(args) == 0 {
		Exitf("no command provided")
	}

	switch args[0] {
	case "init":
		if err := migrator.Init(ctx); err != nil {
			return err
		}
		log.Println("migration table created")
		return nil

	case "create":
		if len(args) < 2 {
			Exitf("create requires a migration name")
		}
		name := strings.Join(args[1:], "_")
		mf, err := migrator.CreateGoMigration(ctx, name)
		if err != nil {
			return err
		}
		log.Printf("created migration %s (%s)\n", mf.Name, mf.Path)
		return nil

	case "up":
		if err := migrator.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			if err := migrator.Unlock(ctx); err != nil {
				log.Printf("failed to release migration lock: %v", err)
			}
		}()

		group, err := migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		if group.IsZero() {
			log.Println("no new migrations to run (database is up to date)")
		} else {
			log.Printf("migrated to %s\n", group)
		}
		return nil

	case "down":
		if err := migrator.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			if err := migrator.Unlock(ctx); err != nil {
				log.Printf("failed to release migration lock: %v", err)
			}
		}()

		group, err := migrator.Rollback(ctx)
		if err != nil {
			return err
		}
		if group.IsZero() {
			log.Println("no migrations to rollback")
		} else {
			log.Printf("rolled back %s\n", group)
		}
		return nil

	case "down-to":
		if len(args) < 2 {
			Exitf("down-to requires a migration name")
		}
		target := args[1]

		if err := migrator.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			if err := migrator.Unlock(ctx); err != nil {
				log.Printf("failed to release migration lock: %v", err)
			}
		}()

		for {
			ms, err := migrator.MigrationsWithStatus(ctx)
			if err != nil {
				return err
			}
			// Applied() is sorted newest first.
			applied := ms.Applied()
			if len(applied) == 0 {
				return fmt.Errorf("migration %q is not applied; nothing to roll back to", target)
			}

			newest := applied[0]
			if migrationMatches(newest, target) {
				log.Printf("database is at %s\n", newest.String())
				return nil
			}

			var found *migrate.Migration
			for i := 1; i < len(applied); i++ {
				if migrationMatches(applied[i], target) {
					found = &applied[i]
					break
				}
			}
			if found == nil {
				return fmt.Errorf("migration %q is not applied; refusing to roll back", target)
			}
			if found.GroupID == newest.GroupID {
				// Rollback reverts whole groups, so stopping between two
				// migrations of the same group is impossible.
				return fmt.Errorf("cannot roll back to %q: it was applied in the same group as %s", target, newest.String())
			}

			group, err := migrator.Rollback(ctx)
			if err != nil {
				return err
			}
			if group.IsZero() {
				return fmt.Errorf("no migrations to rollback")
			}
			log.Printf("rolled back %s\n", group)
		}

	case "version":
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		applied := ms.Applied()
		if len(applied) == 0 {
			log.Println("version: no migrations applied")
			return nil
		}
		newest := applied[0]
		log.Printf("version: %s (group %d, applied at %s)\n",
			newest.String(), newest.GroupID, newest.MigratedAt.Format(time.RFC3339))
		return nil

	case "status":
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		log.Printf("migrations: %s\n", ms)
		log.Printf("unapplied migrations: %s\n", ms.Unapplied())
		log.Printf("last migration group: %s\n", ms.LastGroup())
		return nil

	case "history":
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		for i := range ms {
			m := ms[i]
			if m.IsApplied() {
				log.Printf("%-40s applied at %s (group %d)\n",
					m.String(), m.MigratedAt.Format(time.RFC3339), m.GroupID)
			} else {
				log.Printf("%-40s pending\n", m.String())
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}
