package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReplaceSet is the full metadata feed of one sync cycle. The remote
// source reports the complete known set every cycle, not a diff.
//
// A course's Sync field is a seed, not a policy: a first-seen course with
// Sync != SyncNone starts with that mode, any other first-seen course
// starts with DefaultSync. SyncNone is the zero value and means "no
// preference"; a feed cannot force a course to none, only the user can
// (SetCourseSync). Known courses keep their configured mode either way.
type ReplaceSet struct {
	Semesters []Semester
	Courses   []Course
	Files     []File

	// DefaultSync is the policy assigned to courses seen for the first
	// time without a Sync seed of their own.
	DefaultSync SyncMode
}

// ReplaceStats summarizes what a metadata replace changed.
type ReplaceStats struct {
	CoursesAdded   int
	CoursesUpdated int
	CoursesRemoved int
	FilesAdded     int
	FilesUpdated   int
	FilesUnchanged int
}

// ReplaceMetadata applies a full-replace feed in a single transaction:
// semesters are upserted, courses are inserted, updated, or retired
// against the reported set, and files are inserted or updated with the
// usual version-bump and checkout-sweep semantics. A crash mid-sync
// leaves the previous consistent snapshot intact.
//
// Local state survives the replace: a known course keeps its sync policy
// and abbreviation overrides, and a file whose metadata is unchanged
// keeps its version and checkouts. Files of NoSync courses are ignored.
func (s *Store) ReplaceMetadata(ctx context.Context, set ReplaceSet) (ReplaceStats, error) {
	s.logger.Info("replacing metadata",
		"semesters", len(set.Semesters), "courses", len(set.Courses), "files", len(set.Files))

	var stats ReplaceStats

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, sem := range set.Semesters {
			if _, err := tx.ExecContext(ctx, sqlUpsertSemester, sem.ID, sem.Name, sem.Order); err != nil {
				return fmt.Errorf("upsert semester %s: %w", sem.ID, err)
			}
		}

		known, err := s.replaceCourses(ctx, tx, set, &stats)
		if err != nil {
			return err
		}

		return s.replaceFiles(ctx, tx, set, known, &stats)
	})
	if err != nil {
		return ReplaceStats{}, err
	}

	s.logger.Info("metadata replace complete",
		"courses_added", stats.CoursesAdded, "courses_updated", stats.CoursesUpdated,
		"courses_removed", stats.CoursesRemoved, "files_added", stats.FilesAdded,
		"files_updated", stats.FilesUpdated, "files_unchanged", stats.FilesUnchanged)

	return stats, nil
}

// replaceCourses reconciles the course table against the reported set and
// returns the effective sync mode per surviving course id.
func (s *Store) replaceCourses(
	ctx context.Context,
	tx *sql.Tx,
	set ReplaceSet,
	stats *ReplaceStats,
) (map[string]SyncMode, error) {
	existing, err := courseModesTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	reported := make(map[string]bool, len(set.Courses))
	effective := make(map[string]SyncMode, len(set.Courses))

	for _, c := range set.Courses {
		reported[c.ID] = true

		mode, known := existing[c.ID]
		if !known {
			mode = set.DefaultSync
			if c.Sync != SyncNone {
				mode = c.Sync
			}

			_, err := tx.StmtContext(ctx, s.courseStmts.insert).ExecContext(ctx,
				c.ID, c.Semester, nullIfEmpty(c.Number), c.Name, nullIfEmpty(c.Abbrev),
				nullIfEmpty(c.Type), nullIfEmpty(c.TypeAbbrev), int(mode))
			if err != nil {
				return nil, fmt.Errorf("insert course %s: %w", c.ID, err)
			}

			stats.CoursesAdded++
			effective[c.ID] = mode

			continue
		}

		// Remote fields are refreshed; the local sync policy and
		// abbreviation overrides stay as configured.
		_, err := tx.ExecContext(ctx,
			`UPDATE courses SET semester = ?, number = ?, name = ?, type = ? WHERE id = ?`,
			c.Semester, nullIfEmpty(c.Number), c.Name, nullIfEmpty(c.Type), c.ID)
		if err != nil {
			return nil, fmt.Errorf("update course %s: %w", c.ID, err)
		}

		stats.CoursesUpdated++
		effective[c.ID] = mode
	}

	for id := range existing {
		if reported[id] {
			continue
		}

		if _, err := tx.StmtContext(ctx, s.courseStmts.delete).ExecContext(ctx, id); err != nil {
			return nil, fmt.Errorf("retire course %s: %w", id, err)
		}

		stats.CoursesRemoved++
	}

	return effective, nil
}

// replaceFiles inserts new files and updates changed ones. Unchanged files
// are left alone so their versions and checkouts survive the sync.
func (s *Store) replaceFiles(
	ctx context.Context,
	tx *sql.Tx,
	set ReplaceSet,
	courseModes map[string]SyncMode,
	stats *ReplaceStats,
) error {
	for _, f := range set.Files {
		mode, ok := courseModes[f.Course]
		if !ok || mode == SyncNone {
			continue
		}

		current, err := getFileTx(ctx, tx, f.ID)
		if errors.Is(err, sql.ErrNoRows) {
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

			stats.FilesAdded++

			continue
		}

		if err != nil {
			return fmt.Errorf("read file %s: %w", f.ID, err)
		}

		if fileMetadataEqual(current, f) {
			stats.FilesUnchanged++
			continue
		}

		if err := s.updateFileTx(ctx, tx, f); err != nil {
			return err
		}

		stats.FilesUpdated++
	}

	return nil
}

// courseModesTx reads the sync policy of every known course.
func courseModesTx(ctx context.Context, tx *sql.Tx) (map[string]SyncMode, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, sync FROM courses`)
	if err != nil {
		return nil, fmt.Errorf("list course modes: %w", err)
	}
	defer rows.Close()

	modes := make(map[string]SyncMode)

	for rows.Next() {
		var (
			id   string
			mode int
		)

		if err := rows.Scan(&id, &mode); err != nil {
			return nil, fmt.Errorf("scan course mode: %w", err)
		}

		modes[id] = SyncMode(mode)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course modes: %w", err)
	}

	return modes, nil
}

// getFileTx reads one file projection inside the replace transaction.
func getFileTx(ctx context.Context, tx *sql.Tx, id string) (File, error) {
	query := `SELECT ` + sqlFileDetailsColumns + ` FROM file_details WHERE id = ?`

	return scanFileDetails(tx.QueryRowContext(ctx, query, id))
}

// fileMetadataEqual reports whether the stored projection matches the
// reported record on every metadata-affecting field. Local-only fields
// (local date, version) do not count.
func fileMetadataEqual(stored, reported File) bool {
	if stored.Course != reported.Course ||
		stored.Name != reported.Name ||
		stored.Extension != reported.Extension ||
		stored.Author != reported.Author ||
		stored.Description != reported.Description ||
		stored.Copyrighted != reported.Copyrighted ||
		!stored.RemoteDate.Equal(reported.RemoteDate) {
		return false
	}

	if len(stored.Path) != len(reported.Path) {
		return false
	}

	for i := range stored.Path {
		if stored.Path[i] != reported.Path[i] {
			return false
		}
	}

	return true
}
