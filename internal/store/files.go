package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// File queries. Timestamps are stored as Unix nanoseconds. The version
// bump and the checkout sweep in the update path belong to the same
// transaction: a metadata change must invalidate every view's
// materialization of the file exactly once.
const (
	sqlFileExists = `SELECT 1 FROM files WHERE id = ?`

	sqlInsertFile = `INSERT INTO files (id, folder, name, extension, author, description,
			remote_date, copyrighted, local_date, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`

	sqlUpdateFile = `UPDATE files
		SET folder = ?, name = ?, extension = ?, author = ?, description = ?,
			remote_date = ?, copyrighted = ?, version = version + 1
		WHERE id = ?`

	sqlSetLocalDate = `UPDATE files SET local_date = ? WHERE id = ?`

	sqlClearFileCheckouts = `DELETE FROM checkouts WHERE file = ?`

	sqlFileDetailsColumns = `id, course_id, course_semester, course_name, course_abbrev,
		course_type, course_type_abbrev, path, name, extension, author, description,
		remote_date, copyrighted, local_date, version`
)

func timeToNano(t time.Time) int64 { return t.UnixNano() }

func nanoToTime(n int64) time.Time { return time.Unix(0, n) }

// pathSeparator joins logical path segments in the file_details
// projection. The ASCII unit separator cannot collide with folder names,
// which are opaque remote strings and may contain slashes.
const pathSeparator = "\x1f"

// splitPath decodes the logical path encoded by file_details.
func splitPath(encoded string) []string {
	if encoded == "" {
		return nil
	}

	return strings.Split(encoded, pathSeparator)
}

// InsertFile records a file seen for the first time. Its folder placement
// is resolved (and created) from the logical path, and its version starts
// at zero.
func (s *Store) InsertFile(ctx context.Context, f File) error {
	s.logger.Debug("inserting file", "id", f.ID, "course", f.Course, "name", f.Name)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		folder, err := s.resolveFolder(ctx, tx, f.Course, f.Path)
		if err != nil {
			return err
		}

		_, err = tx.StmtContext(ctx, s.fileStmts.insert).ExecContext(ctx,
			f.ID, folder, f.Name, f.Extension, f.Author, f.Description,
			timeToNano(f.RemoteDate), f.Copyrighted, nullableNano(f.LocalDate))
		if err != nil {
			return fmt.Errorf("insert file %s: %w", f.ID, err)
		}

		return nil
	})
}

// UpdateFile applies changed metadata to a known file: folder placement is
// recomputed, the version counter is incremented by exactly one, and every
// checkout of the file is cleared so each view re-materializes it. Fails
// with ErrNotFound when the file id is unknown.
func (s *Store) UpdateFile(ctx context.Context, f File) error {
	s.logger.Debug("updating file", "id", f.ID, "course", f.Course, "name", f.Name)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.updateFileTx(ctx, tx, f)
	})
}

func (s *Store) updateFileTx(ctx context.Context, tx *sql.Tx, f File) error {
	folder, err := s.resolveFolder(ctx, tx, f.Course, f.Path)
	if err != nil {
		return err
	}

	res, err := tx.StmtContext(ctx, s.fileStmts.update).ExecContext(ctx,
		folder, f.Name, f.Extension, f.Author, f.Description,
		timeToNano(f.RemoteDate), f.Copyrighted, f.ID)
	if err != nil {
		return fmt.Errorf("update file %s: %w", f.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update file %s: %w", f.ID, err)
	}

	if affected == 0 {
		return fmt.Errorf("update file %s: %w", f.ID, ErrNotFound)
	}

	if _, err := tx.StmtContext(ctx, s.fileStmts.clearCheckouts).ExecContext(ctx, f.ID); err != nil {
		return fmt.Errorf("clear checkouts of file %s: %w", f.ID, err)
	}

	return nil
}

// UpsertFile inserts an unknown file or updates a known one, in a single
// transaction either way.
func (s *Store) UpsertFile(ctx context.Context, f File) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var one int

		err := tx.StmtContext(ctx, s.fileStmts.exists).QueryRowContext(ctx, f.ID).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			folder, err := s.resolveFolder(ctx, tx, f.Course, f.Path)
			if err != nil {
				return err
			}

			_, err = tx.StmtContext(ctx, s.fileStmts.insert).ExecContext(ctx,
				f.ID, folder, f.Name, f.Extension, f.Author, f.Description,
				timeToNano(f.RemoteDate), f.Copyrighted, nullableNano(f.LocalDate))
			if err != nil {
				return fmt.Errorf("insert file %s: %w", f.ID, err)
			}

			return nil

		case err != nil:
			return fmt.Errorf("check file %s: %w", f.ID, err)

		default:
			return s.updateFileTx(ctx, tx, f)
		}
	})
}

// SetLocalDate marks a file as downloaded at the given time. This is a
// metadata-only update: it bumps no version and clears no checkouts.
// Fails with ErrNotFound when the file id is unknown.
func (s *Store) SetLocalDate(ctx context.Context, fileID string, t time.Time) error {
	s.logger.Debug("setting local date", "id", fileID)

	res, err := s.fileStmts.setLocalDate.ExecContext(ctx, timeToNano(t), fileID)
	if err != nil {
		return fmt.Errorf("set local date of %s: %w", fileID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set local date of %s: %w", fileID, err)
	}

	if affected == 0 {
		return fmt.Errorf("set local date of %s: %w", fileID, ErrNotFound)
	}

	return nil
}

func nullableNano(t *time.Time) any {
	if t == nil {
		return nil
	}

	return timeToNano(*t)
}

// scanFileDetails reads one row of the file_details projection.
func scanFileDetails(row interface{ Scan(...any) error }) (File, error) {
	var (
		f                         File
		abbrev, ctype, typeAbbrev sql.NullString
		path                      string
		remoteDate                int64
		localDate                 sql.NullInt64
	)

	err := row.Scan(&f.ID, &f.Course, &f.CourseSemester, &f.CourseName, &abbrev,
		&ctype, &typeAbbrev, &path, &f.Name, &f.Extension, &f.Author, &f.Description,
		&remoteDate, &f.Copyrighted, &localDate, &f.Version)
	if err != nil {
		return File{}, err
	}

	f.CourseAbbrev = abbrev.String
	f.CourseType = ctype.String
	f.CourseTypeAbbrev = typeAbbrev.String
	f.Path = splitPath(path)
	f.RemoteDate = nanoToTime(remoteDate)

	if localDate.Valid {
		t := nanoToTime(localDate.Int64)
		f.LocalDate = &t
	}

	return f, nil
}

// GetFile returns the full projection of a single file.
func (s *Store) GetFile(ctx context.Context, id string) (File, error) {
	query := `SELECT ` + sqlFileDetailsColumns + ` FROM file_details WHERE id = ?`

	f, err := scanFileDetails(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}

	if err != nil {
		return File{}, fmt.Errorf("get file %s: %w", id, err)
	}

	return f, nil
}

// ListFiles returns the full projection of every file whose owning course
// matches the sync-mode filter, in insertion order.
func (s *Store) ListFiles(ctx context.Context, modes SyncModeSet) ([]File, error) {
	marks, args := modeFilter(modes)
	query := fmt.Sprintf(`SELECT `+sqlFileDetailsColumns+
		` FROM file_details WHERE sync IN (%s) ORDER BY row_order`, marks)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []File

	for rows.Next() {
		f, err := scanFileDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}

		out = append(out, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file rows: %w", err)
	}

	return out, nil
}

// ListFileIDs returns the ids of every file whose owning course matches
// the sync-mode filter, in insertion order.
func (s *Store) ListFileIDs(ctx context.Context, modes SyncModeSet) ([]string, error) {
	marks, args := modeFilter(modes)
	query := fmt.Sprintf(`SELECT id FROM file_details WHERE sync IN (%s) ORDER BY row_order`, marks)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list file ids: %w", err)
	}
	defer rows.Close()

	var out []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan file id: %w", err)
		}

		out = append(out, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file ids: %w", err)
	}

	return out, nil
}
