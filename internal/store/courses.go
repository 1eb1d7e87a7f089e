package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Course queries. Abbreviation overrides are stored as NULL when unset so
// reads can distinguish "no override" from an explicit empty override.
const (
	sqlGetCourse = `SELECT c.id, s.name, c.number, c.name, c.abbrev, c.type, c.type_abbrev, c.sync
		FROM courses AS c
		INNER JOIN semesters AS s ON s.id = c.semester
		WHERE c.id = ?`

	sqlInsertCourse = `INSERT INTO courses (id, semester, number, name, abbrev, type, type_abbrev, sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpdateCourse = `UPDATE courses
		SET semester = ?, number = ?, name = ?, abbrev = ?, type = ?, type_abbrev = ?, sync = ?
		WHERE id = ?`

	sqlDeleteCourse = `DELETE FROM courses WHERE id = ?`
)

// modeFilter renders a sync-mode set as an IN clause placeholder list and
// its arguments.
func modeFilter(modes SyncModeSet) (string, []any) {
	selected := modes.slice()
	args := make([]any, len(selected))
	marks := make([]string, len(selected))

	for i, m := range selected {
		marks[i] = "?"
		args[i] = int(m)
	}

	return strings.Join(marks, ", "), args
}

// nullIfEmpty maps "" to NULL for optional text columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}

	return s
}

// scanCourse reads one course row from the full projection.
func scanCourse(row interface{ Scan(...any) error }) (Course, error) {
	var (
		c                  Course
		number             sql.NullString
		abbrev, typeAbbrev sql.NullString
		ctype              sql.NullString
		sync               int
	)

	err := row.Scan(&c.ID, &c.Semester, &number, &c.Name, &abbrev, &ctype, &typeAbbrev, &sync)
	if err != nil {
		return Course{}, err
	}

	c.Number = number.String
	c.Abbrev = abbrev.String
	c.Type = ctype.String
	c.TypeAbbrev = typeAbbrev.String
	c.Sync = SyncMode(sync)

	return c, nil
}

// GetCourse returns the full projection of a single course, with the
// semester field resolved to the semester name.
func (s *Store) GetCourse(ctx context.Context, id string) (Course, error) {
	c, err := scanCourse(s.courseStmts.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, fmt.Errorf("course %s: %w", id, ErrNotFound)
	}

	if err != nil {
		return Course{}, fmt.Errorf("get course %s: %w", id, err)
	}

	return c, nil
}

// ListCourses returns the full projection of every course matching the
// sync-mode filter, ordered by name then type. The semester field carries
// the semester name.
func (s *Store) ListCourses(ctx context.Context, modes SyncModeSet) ([]Course, error) {
	marks, args := modeFilter(modes)
	query := fmt.Sprintf(`SELECT c.id, s.name, c.number, c.name, c.abbrev, c.type, c.type_abbrev, c.sync
		FROM courses AS c
		INNER JOIN semesters AS s ON s.id = c.semester
		WHERE c.sync IN (%s)
		ORDER BY c.name, c.type`, marks)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var out []Course

	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course row: %w", err)
		}

		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course rows: %w", err)
	}

	return out, nil
}

// ListCourseIDs returns the ids of every course matching the sync-mode
// filter, ordered by course name.
func (s *Store) ListCourseIDs(ctx context.Context, modes SyncModeSet) ([]string, error) {
	marks, args := modeFilter(modes)
	query := fmt.Sprintf(`SELECT id FROM courses WHERE sync IN (%s) ORDER BY name`, marks)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list course ids: %w", err)
	}
	defer rows.Close()

	var out []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan course id: %w", err)
		}

		out = append(out, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course ids: %w", err)
	}

	return out, nil
}

// UpsertCourse inserts a course on first metadata sight and updates it on
// subsequent syncs. The Semester field must carry the semester id.
func (s *Store) UpsertCourse(ctx context.Context, c Course) error {
	s.logger.Debug("upserting course", "id", c.ID, "name", c.Name, "sync", c.Sync)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.StmtContext(ctx, s.courseStmts.update).ExecContext(ctx,
			c.Semester, nullIfEmpty(c.Number), c.Name, nullIfEmpty(c.Abbrev),
			nullIfEmpty(c.Type), nullIfEmpty(c.TypeAbbrev), int(c.Sync), c.ID)
		if err != nil {
			return fmt.Errorf("update course %s: %w", c.ID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update course %s: %w", c.ID, err)
		}

		if affected > 0 {
			return nil
		}

		_, err = tx.StmtContext(ctx, s.courseStmts.insert).ExecContext(ctx,
			c.ID, c.Semester, nullIfEmpty(c.Number), c.Name, nullIfEmpty(c.Abbrev),
			nullIfEmpty(c.Type), nullIfEmpty(c.TypeAbbrev), int(c.Sync))
		if err != nil {
			return fmt.Errorf("insert course %s: %w", c.ID, err)
		}

		return nil
	})
}

// SetCourseSync changes a course's local sync policy without touching its
// remote metadata. Fails with ErrNotFound when the course id is unknown.
func (s *Store) SetCourseSync(ctx context.Context, id string, mode SyncMode) error {
	s.logger.Debug("setting course sync mode", "id", id, "sync", mode)

	res, err := s.db.ExecContext(ctx, `UPDATE courses SET sync = ? WHERE id = ?`, int(mode), id)
	if err != nil {
		return fmt.Errorf("set sync mode of course %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set sync mode of course %s: %w", id, err)
	}

	if affected == 0 {
		return fmt.Errorf("course %s: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteCourse removes a course the remote source stopped reporting. Its
// folder tree, files, and their checkouts are removed by cascade. Deleting
// a missing id is a no-op.
func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	s.logger.Debug("deleting course", "id", id)

	if _, err := s.courseStmts.delete.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("delete course %s: %w", id, err)
	}

	return nil
}
