package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lllllan02/knowledge-base/internal/apperr"
)

// Folder is a stored folder record. ParentID is a weak reference by key;
// the mutation API guarantees the parent graph stays a tree.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateFolder inserts a new folder and returns its identity. A non-nil
// parent must exist.
func (db *DB) CreateFolder(ctx context.Context, name string, parentID *string) (string, error) {
	if parentID != nil {
		if _, err := db.GetFolder(ctx, *parentID); err != nil {
			return "", err
		}
	}
	id := uuid.NewString()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO folders (id, name, parent_id, created_at) VALUES (?, ?, ?, ?)
	`, id, name, parentID, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("store: create folder: %w", err)
	}
	return id, nil
}

// GetFolder returns a folder by identity, or apperr.ErrNotFound.
func (db *DB) GetFolder(ctx context.Context, id string) (*Folder, error) {
	var f Folder
	var parent sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, name, parent_id, created_at FROM folders WHERE id = ?
	`, id).Scan(&f.ID, &f.Name, &parent, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get folder: %w", err)
	}
	if parent.Valid {
		f.ParentID = &parent.String
	}
	return &f, nil
}

// ListFolders returns all folders.
func (db *DB) ListFolders(ctx context.Context) ([]Folder, error) {
	return db.queryFolders(ctx, `SELECT id, name, parent_id, created_at FROM folders ORDER BY name`)
}

// ListChildFolders returns the direct children of parentID; nil selects
// the root level.
func (db *DB) ListChildFolders(ctx context.Context, parentID *string) ([]Folder, error) {
	if parentID == nil {
		return db.queryFolders(ctx, `SELECT id, name, parent_id, created_at FROM folders WHERE parent_id IS NULL ORDER BY name`)
	}
	return db.queryFolders(ctx, `SELECT id, name, parent_id, created_at FROM folders WHERE parent_id = ? ORDER BY name`, *parentID)
}

// RenameFolder updates a folder's name.
func (db *DB) RenameFolder(ctx context.Context, id, name string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE folders SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("store: rename folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// MoveFolder reparents a folder. Returns apperr.ErrCycle when the new
// parent is the folder itself or one of its descendants. The cycle check
// and the update share one transaction so concurrent reparents cannot each
// pass the check and together close a cycle.
func (db *DB) MoveFolder(ctx context.Context, id string, parentID *string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	subtree, err := folderSubtree(ctx, tx, id)
	if err != nil {
		return err
	}
	if len(subtree) == 0 {
		return apperr.ErrNotFound
	}

	if parentID != nil {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders WHERE id = ?`, *parentID).Scan(&exists); err != nil {
			return fmt.Errorf("store: move folder: %w", err)
		}
		if exists == 0 {
			return apperr.ErrNotFound
		}
		// The proposed parent sitting inside id's subtree (or being id
		// itself) would close a cycle.
		for _, fid := range subtree {
			if fid == *parentID {
				return apperr.ErrCycle
			}
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE folders SET parent_id = ? WHERE id = ?`, parentID, id); err != nil {
		return fmt.Errorf("store: move folder: %w", err)
	}
	return tx.Commit()
}

// DeleteFolder removes a folder, every descendant folder, all notes owned
// by the subtree, and their attachments, in a single transaction. Any
// failure leaves the store unchanged.
func (db *DB) DeleteFolder(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	subtree, err := folderSubtree(ctx, tx, id)
	if err != nil {
		return err
	}
	if len(subtree) == 0 {
		return apperr.ErrNotFound
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(subtree)), ",")
	args := make([]any, len(subtree))
	for i, fid := range subtree {
		args[i] = fid
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM attachments WHERE note_id IN
			(SELECT id FROM notes WHERE folder_id IN (`+placeholders+`))
	`, args...); err != nil {
		return fmt.Errorf("store: cascade attachments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE folder_id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("store: cascade notes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("store: cascade folders: %w", err)
	}
	return tx.Commit()
}

// folderSubtree returns id plus all descendant folder ids.
func folderSubtree(ctx context.Context, tx *sql.Tx, id string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM folders WHERE id = ?
			UNION ALL
			SELECT f.id FROM folders f JOIN subtree s ON f.parent_id = s.id
		)
		SELECT id FROM subtree
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: folder subtree: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fid string
		if err := rows.Scan(&fid); err != nil {
			return nil, err
		}
		out = append(out, fid)
	}
	return out, rows.Err()
}

func (db *DB) queryFolders(ctx context.Context, q string, args ...any) ([]Folder, error) {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query folders: %w", err)
	}
	defer rows.Close()

	var out []Folder
	for rows.Next() {
		var f Folder
		var parent sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &parent, &f.CreatedAt); err != nil {
			return nil, err
		}
		if parent.Valid {
			f.ParentID = &parent.String
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
