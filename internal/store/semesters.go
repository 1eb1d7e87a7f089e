package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Semester queries. The replace is an idempotent upsert keyed by id; the
// conflict clause is scoped to exactly that key so any other constraint
// violation still surfaces.
const (
	sqlUpsertSemester = `INSERT INTO semesters (id, name, ord)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			ord  = excluded.ord`

	sqlListSemesters = `SELECT id, name, ord FROM semesters ORDER BY ord`
)

// ReplaceSemesters upserts the full semester set reported by the remote
// source in a single transaction. Calling it twice with the same input is
// a no-op; semesters are never deleted.
func (s *Store) ReplaceSemesters(ctx context.Context, semesters []Semester) error {
	s.logger.Debug("replacing semester list", "count", len(semesters))

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, sem := range semesters {
			if _, err := tx.ExecContext(ctx, sqlUpsertSemester, sem.ID, sem.Name, sem.Order); err != nil {
				return fmt.Errorf("upsert semester %s: %w", sem.ID, err)
			}
		}

		return nil
	})
}

// ListSemesters returns all known semesters ordered by display rank.
func (s *Store) ListSemesters(ctx context.Context) ([]Semester, error) {
	rows, err := s.db.QueryContext(ctx, sqlListSemesters)
	if err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	defer rows.Close()

	var out []Semester

	for rows.Next() {
		var sem Semester
		if err := rows.Scan(&sem.ID, &sem.Name, &sem.Order); err != nil {
			return nil, fmt.Errorf("scan semester row: %w", err)
		}

		out = append(out, sem)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate semester rows: %w", err)
	}

	return out, nil
}
