package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lllllan02/knowledge-base/internal/apperr"
	"github.com/lllllan02/knowledge-base/internal/scanner"
)

// Note is a stored note record. Title and Tags are cached projections of
// Content; callers derive them with the scanner before writing.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	FolderID  *string   `json:"folder_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteFields carries the writable fields for creating a note.
type NoteFields struct {
	Title    string
	Content  string
	Tags     []string
	FolderID *string
}

// NotePatch carries optional fields for a partial update. Nil fields are
// left unchanged. A patch touching Title, Content, or Tags bumps updated_at.
type NotePatch struct {
	Title   *string
	Content *string
	Tags    []string
}

const noteColumns = `id, title, content, tags, folder_id, created_at, updated_at`

// CreateNote inserts a new note and returns its assigned identity.
func (db *DB) CreateNote(ctx context.Context, f NoteFields) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	tagsJSON, _ := json.Marshal(nonNilSlice(f.Tags))

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, title, title_norm, content, tags, folder_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, f.Title, scanner.NormalizeTitle(f.Title), f.Content, string(tagsJSON), f.FolderID, now, now)
	if err != nil {
		return "", fmt.Errorf("store: create note: %w", err)
	}
	return id, nil
}

// GetNote returns a note by identity, or apperr.ErrNotFound.
func (db *DB) GetNote(ctx context.Context, id string) (*Note, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	return n, nil
}

// UpdateNote applies a partial update. Content-affecting fields bump
// updated_at; the normalized title column tracks the title.
func (db *DB) UpdateNote(ctx context.Context, id string, p NotePatch) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)

	if p.Title != nil {
		sets = append(sets, "title = ?", "title_norm = ?")
		args = append(args, *p.Title, scanner.NormalizeTitle(*p.Title))
	}
	if p.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *p.Content)
	}
	if p.Tags != nil {
		tagsJSON, _ := json.Marshal(nonNilSlice(p.Tags))
		sets = append(sets, "tags = ?")
		args = append(args, string(tagsJSON))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("store: update note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// MoveNote sets (or clears) a note's folder reference. Not a content write;
// updated_at is untouched.
func (db *DB) MoveNote(ctx context.Context, id string, folderID *string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE notes SET folder_id = ? WHERE id = ?`, folderID, id)
	if err != nil {
		return fmt.Errorf("store: move note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteNote removes a note and its attachments in one transaction.
func (db *DB) DeleteNote(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete note attachments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return tx.Commit()
}

// ListAllNotes returns every note, most recently updated first.
func (db *DB) ListAllNotes(ctx context.Context) ([]Note, error) {
	return db.queryNotes(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY updated_at DESC`)
}

// QueryNotesByTitleExact returns notes whose normalized title equals the
// normalized reference text.
func (db *DB) QueryNotesByTitleExact(ctx context.Context, ref string) ([]Note, error) {
	return db.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE title_norm = ?
		ORDER BY updated_at DESC
	`, scanner.NormalizeTitle(ref))
}

// QueryNotesByTitleContains returns notes whose normalized title contains
// the normalized reference text as a substring.
func (db *DB) QueryNotesByTitleContains(ctx context.Context, ref string) ([]Note, error) {
	norm := scanner.NormalizeTitle(ref)
	if norm == "" {
		return nil, nil
	}
	return db.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE instr(title_norm, ?) > 0
		ORDER BY updated_at DESC
	`, norm)
}

// QueryNotesByFolder returns notes in the given folder; a nil folder id
// selects notes outside any folder.
func (db *DB) QueryNotesByFolder(ctx context.Context, folderID *string) ([]Note, error) {
	if folderID == nil {
		return db.queryNotes(ctx, `SELECT `+noteColumns+` FROM notes WHERE folder_id IS NULL ORDER BY updated_at DESC`)
	}
	return db.queryNotes(ctx, `SELECT `+noteColumns+` FROM notes WHERE folder_id = ? ORDER BY updated_at DESC`, *folderID)
}

// QueryNotesByTag returns notes carrying the given (case-normalized) tag.
func (db *DB) QueryNotesByTag(ctx context.Context, tag string) ([]Note, error) {
	// Tags are stored as a JSON array of lowercased strings; match the
	// quoted element to avoid substring false positives.
	quoted, _ := json.Marshal(strings.ToLower(strings.TrimSpace(tag)))
	return db.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE instr(tags, ?) > 0
		ORDER BY updated_at DESC
	`, string(quoted))
}

// SearchNotes performs substring matching over titles, content, and tags.
// Title matches come first, then content/tag matches; both groups are
// ordered most recently updated first. No relevance ranking.
func (db *DB) SearchNotes(ctx context.Context, query string, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	titleHits, err := db.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE title_norm LIKE ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, like, limit)
	if err != nil {
		return nil, err
	}

	rest, err := db.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE title_norm NOT LIKE ? AND (lower(content) LIKE ? OR tags LIKE ?)
		ORDER BY updated_at DESC
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, err
	}

	out := append(titleHits, rest...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (db *DB) queryNotes(ctx context.Context, q string, args ...any) ([]Note, error) {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (*Note, error) {
	var n Note
	var tagsJSON string
	var folderID sql.NullString
	if err := r.Scan(&n.ID, &n.Title, &n.Content, &tagsJSON, &folderID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if folderID.Valid {
		n.FolderID = &folderID.String
	}
	if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil {
		n.Tags = []string{}
	}
	return &n, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
