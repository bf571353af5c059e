package store

import "context"

// RecordStore is the persistence contract consumed by the core. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with wrappers and fakes.
type RecordStore interface {
	CreateNote(ctx context.Context, f NoteFields) (string, error)
	GetNote(ctx context.Context, id string) (*Note, error)
	UpdateNote(ctx context.Context, id string, p NotePatch) error
	MoveNote(ctx context.Context, id string, folderID *string) error
	DeleteNote(ctx context.Context, id string) error
	ListAllNotes(ctx context.Context) ([]Note, error)
	QueryNotesByTitleExact(ctx context.Context, ref string) ([]Note, error)
	QueryNotesByTitleContains(ctx context.Context, ref string) ([]Note, error)
	QueryNotesByFolder(ctx context.Context, folderID *string) ([]Note, error)
	QueryNotesByTag(ctx context.Context, tag string) ([]Note, error)
	SearchNotes(ctx context.Context, query string, limit int) ([]Note, error)

	CreateFolder(ctx context.Context, name string, parentID *string) (string, error)
	GetFolder(ctx context.Context, id string) (*Folder, error)
	ListFolders(ctx context.Context) ([]Folder, error)
	ListChildFolders(ctx context.Context, parentID *string) ([]Folder, error)
	RenameFolder(ctx context.Context, id, name string) error
	MoveFolder(ctx context.Context, id string, parentID *string) error
	DeleteFolder(ctx context.Context, id string) error

	CreateAttachment(ctx context.Context, noteID, name, mime string, data []byte) (string, error)
	GetAttachment(ctx context.Context, id string) (*Attachment, error)
	ListAttachmentsByNote(ctx context.Context, noteID string) ([]Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error

	Close() error
}

// Verify *DB satisfies RecordStore at compile time.
var _ RecordStore = (*DB)(nil)
