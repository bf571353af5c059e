package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lllllan02/knowledge-base/internal/apperr"
)

// Attachment is a stored binary blob owned by a note.
type Attachment struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	Name      string    `json:"name"`
	Mime      string    `json:"mime"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAttachment stores a blob for an existing note and returns its identity.
func (db *DB) CreateAttachment(ctx context.Context, noteID, name, mime string, data []byte) (string, error) {
	if _, err := db.GetNote(ctx, noteID); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO attachments (id, note_id, name, mime, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, noteID, name, mime, data, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("store: create attachment: %w", err)
	}
	return id, nil
}

// GetAttachment returns an attachment including its blob data.
func (db *DB) GetAttachment(ctx context.Context, id string) (*Attachment, error) {
	var a Attachment
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, note_id, name, mime, data, created_at FROM attachments WHERE id = ?
	`, id).Scan(&a.ID, &a.NoteID, &a.Name, &a.Mime, &a.Data, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get attachment: %w", err)
	}
	return &a, nil
}

// ListAttachmentsByNote returns attachment metadata for a note, blobs omitted.
func (db *DB) ListAttachmentsByNote(ctx context.Context, noteID string) ([]Attachment, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, note_id, name, mime, created_at FROM attachments
		WHERE note_id = ? ORDER BY created_at
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("store: list attachments: %w", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.NoteID, &a.Name, &a.Mime, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAttachment removes a single attachment.
func (db *DB) DeleteAttachment(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete attachment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
