package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Folder queries. Creation is insert-or-ignore followed by a re-read: two
// operations racing to create the same (parent, name) both end up with the
// single winning row, and the losing insert is not an error.
const (
	sqlRootFolder = `SELECT id FROM folders WHERE course = ?`

	sqlChildFolder = `SELECT id FROM folders WHERE parent = ? AND name = ?`

	sqlInsertRootFolder = `INSERT INTO folders (name, parent, course)
		VALUES (NULL, NULL, ?)
		ON CONFLICT(course) DO NOTHING`

	sqlInsertChildFolder = `INSERT INTO folders (name, parent, course)
		VALUES (?, ?, NULL)
		ON CONFLICT(parent, name) DO NOTHING`
)

// ResolveFolder maps a file's logical path under a course to a folder row,
// creating the course root and any missing intermediate folders on demand,
// and returns the id of the final folder. Resolving the same (course, path)
// twice yields the same id and creates no duplicates.
func (s *Store) ResolveFolder(ctx context.Context, courseID string, path []string) (int64, error) {
	var id int64

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.resolveFolder(ctx, tx, courseID, path)

		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// resolveFolder is the transactional core of ResolveFolder, shared with
// the file upsert path.
func (s *Store) resolveFolder(ctx context.Context, tx *sql.Tx, courseID string, path []string) (int64, error) {
	parent, err := s.resolveRoot(ctx, tx, courseID)
	if err != nil {
		return 0, err
	}

	for _, name := range path {
		parent, err = s.resolveChild(ctx, tx, parent, name)
		if err != nil {
			return 0, fmt.Errorf("resolve folder %q under course %s: %w", name, courseID, err)
		}
	}

	return parent, nil
}

// resolveRoot returns the course's root folder id, creating it lazily.
func (s *Store) resolveRoot(ctx context.Context, tx *sql.Tx, courseID string) (int64, error) {
	var id int64

	err := tx.StmtContext(ctx, s.folderStmts.rootByCourse).QueryRowContext(ctx, courseID).Scan(&id)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("root folder of course %s: %w", courseID, err)
	}

	if _, err := tx.StmtContext(ctx, s.folderStmts.insertRoot).ExecContext(ctx, courseID); err != nil {
		return 0, fmt.Errorf("create root folder of course %s: %w", courseID, err)
	}

	err = tx.StmtContext(ctx, s.folderStmts.rootByCourse).QueryRowContext(ctx, courseID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("root folder of course %s: %w", courseID, err)
	}

	return id, nil
}

// resolveChild returns the id of the named child under parent, creating it
// if absent.
func (s *Store) resolveChild(ctx context.Context, tx *sql.Tx, parent int64, name string) (int64, error) {
	var id int64

	err := tx.StmtContext(ctx, s.folderStmts.childByName).QueryRowContext(ctx, parent, name).Scan(&id)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	if _, err := tx.StmtContext(ctx, s.folderStmts.insertChild).ExecContext(ctx, name, parent); err != nil {
		return 0, err
	}

	if err := tx.StmtContext(ctx, s.folderStmts.childByName).QueryRowContext(ctx, parent, name).Scan(&id); err != nil {
		return 0, err
	}

	return id, nil
}

// GetFolder returns a single folder row with its parent variant resolved.
func (s *Store) GetFolder(ctx context.Context, id int64) (Folder, error) {
	var (
		name   sql.NullString
		parent sql.NullInt64
		course sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT name, parent, course FROM folders WHERE id = ?`, id).
		Scan(&name, &parent, &course)
	if errors.Is(err, sql.ErrNoRows) {
		return Folder{}, fmt.Errorf("folder %d: %w", id, ErrNotFound)
	}

	if err != nil {
		return Folder{}, fmt.Errorf("get folder %d: %w", id, err)
	}

	f := Folder{ID: id, Name: name.String}
	if course.Valid {
		f.Parent = RootOf(course.String)
	} else {
		f.Parent = ChildOf(parent.Int64)
	}

	return f, nil
}
