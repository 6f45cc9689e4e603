package postgres

import (
	"testing"
	"testing/fstest"
)

func migrationFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys["sql/migrations/"+name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func TestLoadMigrationsFromFS(t *testing.T) {
	fsys := migrationFS(map[string]string{
		"0002_add_stock.up.sql":      "CREATE TABLE stocks (id TEXT);",
		"0002_add_stock.down.sql":    "DROP TABLE stocks;",
		"0001_create_orders.up.sql":  "CREATE TABLE orders (id TEXT);",
		"0001_create_orders.down.sql": "DROP TABLE orders;",
	})

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("migrations must be sorted by version: %d, %d", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Name != "create_orders" {
		t.Errorf("unexpected migration name %q", migrations[0].Name)
	}
	if migrations[0].UpSQL == "" || migrations[0].DownSQL == "" {
		t.Error("expected both up and down sql")
	}
}

func TestLoadMigrationsMissingDown(t *testing.T) {
	fsys := migrationFS(map[string]string{
		"0001_create_orders.up.sql": "CREATE TABLE orders (id TEXT);",
	})

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for migration without down file")
	}
}

func TestLoadMigrationsInvalidName(t *testing.T) {
	fsys := migrationFS(map[string]string{
		"orders.sql": "CREATE TABLE orders (id TEXT);",
	})

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for invalid migration file name")
	}
}

func TestLoadMigrationsEmptyBody(t *testing.T) {
	fsys := migrationFS(map[string]string{
		"0001_create_orders.up.sql":   "   ",
		"0001_create_orders.down.sql": "DROP TABLE orders;",
	})

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for empty migration body")
	}
}

// Embedded-миграции репозитория всегда должны парситься.
func TestEmbeddedMigrationsAreValid(t *testing.T) {
	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations are broken: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
}
