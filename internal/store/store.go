package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Embed schema setup and migration SQL files.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	walJournalSizeLimit = 67108864 // 64 MiB WAL journal size limit
	schemaVersion       = 12       // current expected schema version
)

// migrationStep is one schema upgrade, addressed by the exact source
// version it applies to.
type migrationStep struct {
	source int
	target int
	script string
}

// migrationChain lists the known upgrades in application order. A store
// whose version is not 0, schemaVersion, or a chain source cannot be
// migrated and fails with ErrIncompatibleSchema.
var migrationChain = []migrationStep{
	{source: 9, target: 11, script: "migrations/migrate-9-11.sql"},
	{source: 11, target: 12, script: "migrations/migrate-11-12.sql"},
}

// Store is the local metadata cache, backed by an embedded SQLite database
// with WAL mode. All semester/course/file metadata, folder trees, views,
// and checkout state are persisted here. One process opens the store at a
// time; each mutating method runs as a single transaction.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	// Prepared statements for repeated queries, grouped by domain.
	courseStmts   courseStatements
	fileStmts     fileStatements
	folderStmts   folderStatements
	viewStmts     viewStatements
	checkoutStmts checkoutStatements
}

type courseStatements struct {
	get, insert, update, delete *sql.Stmt
}

type fileStatements struct {
	exists, insert, update, setLocalDate, clearCheckouts *sql.Stmt
}

type folderStatements struct {
	rootByCourse, childByName, insertRoot, insertChild *sql.Stmt
}

type viewStatements struct {
	getByID, getByName, insert, delete *sql.Stmt
}

type checkoutStatements struct {
	exists, insert, listByView, resetView *sql.Stmt
}

// Open opens the database at path, migrating or initializing its schema as
// needed, and prepares all repeated statements. Use ":memory:" for tests.
//
// A store created by newer software, or by software too old to have a
// migration path, fails with an error wrapping ErrIncompatibleSchema.
// Successful migrations leave a sibling backup file on disk; an existing
// backup is never overwritten.
func Open(path string, logger *slog.Logger) (*Store, error) {
	logger.Info("opening metadata store", "path", path)

	db, err := openDatabase(path)
	if err != nil {
		return nil, err
	}

	db, err = ensureSchema(context.Background(), db, path, logger)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, path: path, logger: logger}

	if err := s.prepareAllStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	logger.Info("metadata store ready", "path", path, "schema_version", schemaVersion)

	return s, nil
}

// openDatabase opens a connection and applies the session pragmas.
func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	// Sole-writer: one connection keeps transactions serialized and makes
	// ":memory:" databases work, which exist per connection.
	db.SetMaxOpenConns(1)

	if err := setPragmas(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	return db, nil
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = FULL", "synchronous FULL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit), "journal size limit"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("set pragma %s: %w", p.desc, err)
		}
	}

	return nil
}

// ensureSchema reads the persisted schema version and initializes or
// migrates as needed. Migration closes and reopens the connection around
// the file backup, so the (possibly new) handle is returned.
func ensureSchema(ctx context.Context, db *sql.DB, path string, logger *slog.Logger) (*sql.DB, error) {
	var current int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema version of %s: %w", path, err)
	}

	switch {
	case current == schemaVersion:
		logger.Debug("schema up to date", "version", current)
		return db, nil

	case current == 0:
		if err := initSchema(ctx, db, logger); err != nil {
			db.Close()
			return nil, err
		}

		return db, nil

	case current > schemaVersion:
		db.Close()
		return nil, &SchemaError{Found: current, Want: schemaVersion}

	default:
		return migrateSchema(ctx, db, path, current, logger)
	}
}

// initSchema creates all tables and the default view in one transaction
// and stamps the current schema version.
func initSchema(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	logger.Info("initializing fresh store", "schema_version", schemaVersion)

	setup, err := fs.ReadFile(migrationsFS, "migrations/setup.sql")
	if err != nil {
		return fmt.Errorf("read setup script: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema init tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(setup)); err != nil {
		return fmt.Errorf("exec setup script: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO views (name, format, base, esc_mode, charset) VALUES (?, ?, NULL, ?, ?)`,
		"default", DefaultFormat, int(EscapeSimilar), int(CharsetUnicode))
	if err != nil {
		return fmt.Errorf("insert default view: %w", err)
	}

	// PRAGMA cannot be parameterized.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema init: %w", err)
	}

	return nil
}

// migrateSchema walks the migration chain from the found version to the
// target. The database file is copied to a sibling backup before anything
// is mutated; the backup is a safety net and is never overwritten or
// removed by this code.
func migrateSchema(
	ctx context.Context,
	db *sql.DB,
	path string,
	current int,
	logger *slog.Logger,
) (*sql.DB, error) {
	steps, ok := chainFrom(current)
	if !ok {
		db.Close()
		return nil, &SchemaError{Found: current, Want: schemaVersion}
	}

	// Close the connection so the file copy sees a quiesced database,
	// then reopen for the migration itself.
	if !isMemoryPath(path) {
		if err := db.Close(); err != nil {
			return nil, fmt.Errorf("close store before backup: %w", err)
		}

		backup, err := backupDatabase(path, current)
		if err != nil {
			return nil, err
		}

		logger.Info("created pre-migration backup", "backup", backup)

		if db, err = openDatabase(path); err != nil {
			return nil, err
		}
	}

	for _, step := range steps {
		if err := applyMigration(ctx, db, step, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Info("migrated store", "from", current, "to", schemaVersion)

	return db, nil
}

// chainFrom returns the ordered migration steps starting at the given
// source version, or ok=false when no path to the target exists.
func chainFrom(source int) ([]migrationStep, bool) {
	var steps []migrationStep

	v := source
	for v != schemaVersion {
		found := false

		for _, step := range migrationChain {
			if step.source == v {
				steps = append(steps, step)
				v = step.target
				found = true

				break
			}
		}

		if !found {
			return nil, false
		}
	}

	return steps, true
}

// applyMigration runs a single migration script and stamps its target
// version inside one transaction.
func applyMigration(ctx context.Context, db *sql.DB, step migrationStep, logger *slog.Logger) error {
	script, err := fs.ReadFile(migrationsFS, step.script)
	if err != nil {
		return fmt.Errorf("read migration %d->%d: %w", step.source, step.target, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx %d->%d: %w", step.source, step.target, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("exec migration %d->%d: %w", step.source, step.target, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", step.target)); err != nil {
		return fmt.Errorf("stamp version %d: %w", step.target, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d->%d: %w", step.source, step.target, err)
	}

	logger.Info("applied migration", "source", step.source, "target", step.target,
		"script", filepath.Base(step.script))

	return nil
}

// BackupPath returns the sibling backup file name for a store at the given
// path and schema version, e.g. cache.backup-schema9.sqlite.
func BackupPath(path string, version int) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	return fmt.Sprintf("%s.backup-schema%d%s", base, version, ext)
}

// backupDatabase copies the database file to its backup path, refusing to
// overwrite an existing backup.
func backupDatabase(path string, version int) (string, error) {
	backup := BackupPath(path, version)

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open store %s for backup: %w", path, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrBackupExists, backup)
		}

		return "", fmt.Errorf("create backup %s: %w", backup, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("write backup %s: %w", backup, err)
	}

	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("write backup %s: %w", backup, err)
	}

	return backup, nil
}

// isMemoryPath reports whether the path names a transient in-memory
// database, which has no file to back up.
func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// SchemaVersion reads the persisted schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	return v, nil
}

// --- Statement preparation ---

// stmtDef maps a SQL string to the prepared statement pointer it should
// populate.
type stmtDef struct {
	dest **sql.Stmt
	sql  string
	name string
}

// prepareAll prepares a batch of statements, returning on first error.
func prepareAll(ctx context.Context, db *sql.DB, defs []stmtDef) error {
	for i := range defs {
		stmt, err := db.PrepareContext(ctx, defs[i].sql)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", defs[i].name, err)
		}

		*defs[i].dest = stmt
	}

	return nil
}

func (s *Store) prepareAllStatements(ctx context.Context) error {
	if err := s.prepareCourseStmts(ctx); err != nil {
		return err
	}

	if err := s.prepareFileStmts(ctx); err != nil {
		return err
	}

	if err := s.prepareFolderStmts(ctx); err != nil {
		return err
	}

	if err := s.prepareViewStmts(ctx); err != nil {
		return err
	}

	return s.prepareCheckoutStmts(ctx)
}

func (s *Store) prepareCourseStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.courseStmts.get, sqlGetCourse, "getCourse"},
		{&s.courseStmts.insert, sqlInsertCourse, "insertCourse"},
		{&s.courseStmts.update, sqlUpdateCourse, "updateCourse"},
		{&s.courseStmts.delete, sqlDeleteCourse, "deleteCourse"},
	})
}

func (s *Store) prepareFileStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.fileStmts.exists, sqlFileExists, "fileExists"},
		{&s.fileStmts.insert, sqlInsertFile, "insertFile"},
		{&s.fileStmts.update, sqlUpdateFile, "updateFile"},
		{&s.fileStmts.setLocalDate, sqlSetLocalDate, "setLocalDate"},
		{&s.fileStmts.clearCheckouts, sqlClearFileCheckouts, "clearFileCheckouts"},
	})
}

func (s *Store) prepareFolderStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.folderStmts.rootByCourse, sqlRootFolder, "rootFolder"},
		{&s.folderStmts.childByName, sqlChildFolder, "childFolder"},
		{&s.folderStmts.insertRoot, sqlInsertRootFolder, "insertRootFolder"},
		{&s.folderStmts.insertChild, sqlInsertChildFolder, "insertChildFolder"},
	})
}

func (s *Store) prepareViewStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.viewStmts.getByID, sqlGetViewByID, "getViewByID"},
		{&s.viewStmts.getByName, sqlGetViewByName, "getViewByName"},
		{&s.viewStmts.insert, sqlInsertView, "insertView"},
		{&s.viewStmts.delete, sqlDeleteView, "deleteView"},
	})
}

func (s *Store) prepareCheckoutStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.checkoutStmts.exists, sqlCheckoutExists, "checkoutExists"},
		{&s.checkoutStmts.insert, sqlInsertCheckout, "insertCheckout"},
		{&s.checkoutStmts.listByView, sqlListCheckouts, "listCheckouts"},
		{&s.checkoutStmts.resetView, sqlResetCheckouts, "resetCheckouts"},
	})
}

// Close closes all prepared statements and the database connection.
func (s *Store) Close() error {
	s.logger.Info("closing metadata store")

	if err := s.closeStatements(); err != nil {
		s.logger.Error("error closing statements", "error", err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	return nil
}

// closeStatements closes all prepared statements, collecting errors.
func (s *Store) closeStatements() error {
	stmts := []*sql.Stmt{
		s.courseStmts.get, s.courseStmts.insert, s.courseStmts.update, s.courseStmts.delete,
		s.fileStmts.exists, s.fileStmts.insert, s.fileStmts.update,
		s.fileStmts.setLocalDate, s.fileStmts.clearCheckouts,
		s.folderStmts.rootByCourse, s.folderStmts.childByName,
		s.folderStmts.insertRoot, s.folderStmts.insertChild,
		s.viewStmts.getByID, s.viewStmts.getByName, s.viewStmts.insert, s.viewStmts.delete,
		s.checkoutStmts.exists, s.checkoutStmts.insert,
		s.checkoutStmts.listByView, s.checkoutStmts.resetView,
	}

	var errs []string

	for _, stmt := range stmts {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close statements: %s", strings.Join(errs, "; "))
	}

	return nil
}

// inTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise. Mutating store operations are all-or-nothing.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
