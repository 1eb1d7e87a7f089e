package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DefaultViewName names the view that always exists. It cannot be removed.
const DefaultViewName = "default"

// View and checkout queries.
const (
	sqlGetViewByID = `SELECT id, name, format, base, esc_mode, charset
		FROM views WHERE id = ?`

	sqlGetViewByName = `SELECT id, name, format, base, esc_mode, charset
		FROM views WHERE name = ?`

	sqlListViews = `SELECT id, name, format, base, esc_mode, charset
		FROM views ORDER BY name`

	sqlInsertView = `INSERT INTO views (name, format, base, esc_mode, charset)
		VALUES (?, ?, ?, ?, ?)`

	sqlDeleteView = `DELETE FROM views WHERE id = ? AND name != ?`

	sqlCheckoutExists = `SELECT 1 FROM checkouts WHERE view = ? AND file = ?`

	sqlInsertCheckout = `INSERT INTO checkouts (view, file)
		VALUES (?, ?)
		ON CONFLICT(view, file) DO NOTHING`

	sqlListCheckouts = `SELECT file FROM checkouts WHERE view = ?`

	sqlResetCheckouts = `DELETE FROM checkouts WHERE view = ?`
)

func scanView(row interface{ Scan(...any) error }) (View, error) {
	var (
		v                View
		base             sql.NullString
		escMode, charset int
	)

	if err := row.Scan(&v.ID, &v.Name, &v.Format, &base, &escMode, &charset); err != nil {
		return View{}, err
	}

	v.Base = base.String
	v.Escape = EscapeMode(escMode)
	v.Charset = Charset(charset)

	return v, nil
}

// GetView returns a single view by id.
func (s *Store) GetView(ctx context.Context, id int64) (View, error) {
	v, err := scanView(s.viewStmts.getByID.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return View{}, fmt.Errorf("view %d: %w", id, ErrNotFound)
	}

	if err != nil {
		return View{}, fmt.Errorf("get view %d: %w", id, err)
	}

	return v, nil
}

// GetViewByName returns a single view by its unique name.
func (s *Store) GetViewByName(ctx context.Context, name string) (View, error) {
	v, err := scanView(s.viewStmts.getByName.QueryRowContext(ctx, name))
	if errors.Is(err, sql.ErrNoRows) {
		return View{}, fmt.Errorf("view %q: %w", name, ErrNotFound)
	}

	if err != nil {
		return View{}, fmt.Errorf("get view %q: %w", name, err)
	}

	return v, nil
}

// ListViews returns all views ordered by name.
func (s *Store) ListViews(ctx context.Context) ([]View, error) {
	rows, err := s.db.QueryContext(ctx, sqlListViews)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	defer rows.Close()

	var out []View

	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan view row: %w", err)
		}

		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate view rows: %w", err)
	}

	return out, nil
}

// CreateView adds a named view and returns its id. View names are unique.
func (s *Store) CreateView(ctx context.Context, v View) (int64, error) {
	s.logger.Debug("creating view", "name", v.Name, "format", v.Format)

	res, err := s.viewStmts.insert.ExecContext(ctx,
		v.Name, v.Format, nullIfEmpty(v.Base), int(v.Escape), int(v.Charset))
	if err != nil {
		return 0, fmt.Errorf("create view %q: %w", v.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create view %q: %w", v.Name, err)
	}

	return id, nil
}

// RemoveView deletes a view and, by cascade, its checkouts. The default
// view cannot be removed; deleting a missing id is a no-op.
func (s *Store) RemoveView(ctx context.Context, id int64) error {
	s.logger.Debug("removing view", "id", id)

	if _, err := s.viewStmts.delete.ExecContext(ctx, id, DefaultViewName); err != nil {
		return fmt.Errorf("remove view %d: %w", id, err)
	}

	return nil
}

// NeedsCheckout reports whether the file must be (re)materialized under
// the view: true iff no checkout row exists for the pair.
func (s *Store) NeedsCheckout(ctx context.Context, viewID int64, fileID string) (bool, error) {
	var one int

	err := s.checkoutStmts.exists.QueryRowContext(ctx, viewID, fileID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}

	if err != nil {
		return false, fmt.Errorf("needs checkout %d/%s: %w", viewID, fileID, err)
	}

	return false, nil
}

// RecordCheckout marks a file as materialized under a view at its current
// rendering. Recording the same pair twice is a no-op.
func (s *Store) RecordCheckout(ctx context.Context, viewID int64, fileID string) error {
	s.logger.Debug("recording checkout", "view", viewID, "file", fileID)

	if _, err := s.checkoutStmts.insert.ExecContext(ctx, viewID, fileID); err != nil {
		return fmt.Errorf("record checkout %d/%s: %w", viewID, fileID, err)
	}

	return nil
}

// Checkouts returns the ids of all files materialized under a view.
func (s *Store) Checkouts(ctx context.Context, viewID int64) ([]string, error) {
	rows, err := s.checkoutStmts.listByView.QueryContext(ctx, viewID)
	if err != nil {
		return nil, fmt.Errorf("list checkouts of view %d: %w", viewID, err)
	}
	defer rows.Close()

	var out []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan checkout row: %w", err)
		}

		out = append(out, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkout rows: %w", err)
	}

	return out, nil
}

// ResetCheckouts drops every checkout of a view. Used when a view's format
// changes and every path must be recomputed.
func (s *Store) ResetCheckouts(ctx context.Context, viewID int64) error {
	s.logger.Debug("resetting checkouts", "view", viewID)

	if _, err := s.checkoutStmts.resetView.ExecContext(ctx, viewID); err != nil {
		return fmt.Errorf("reset checkouts of view %d: %w", viewID, err)
	}

	return nil
}
