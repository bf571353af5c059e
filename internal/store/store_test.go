package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/lllllan02/knowledge-base/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "kb-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateNote(t *testing.T, db *DB, title, content string, folderID *string) string {
	t.Helper()
	id, err := db.CreateNote(context.Background(), NoteFields{
		Title:    title,
		Content:  content,
		Tags:     []string{},
		FolderID: folderID,
	})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	return id
}

func TestCreateAndGetNote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id := mustCreateNote(t, db, "Hello", "# Hello\nworld", nil)
	n, err := db.GetNote(ctx, id)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "Hello" || n.Content != "# Hello\nworld" {
		t.Errorf("note = %+v", n)
	}
	if n.CreatedAt.IsZero() || n.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetNote(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNote_BumpsUpdatedAt(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id := mustCreateNote(t, db, "Old", "old", nil)
	before, _ := db.GetNote(ctx, id)

	title := "New"
	content := "new content"
	if err := db.UpdateNote(ctx, id, NotePatch{Title: &title, Content: &content, Tags: []string{"x"}}); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	after, _ := db.GetNote(ctx, id)
	if after.Title != "New" || after.Content != "new content" {
		t.Errorf("note = %+v", after)
	}
	if len(after.Tags) != 1 || after.Tags[0] != "x" {
		t.Errorf("tags = %v", after.Tags)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) && !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("updated_at went backwards")
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Error("created_at must be immutable")
	}
}

func TestQueryNotesByTitleExact_CaseInsensitive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	mustCreateNote(t, db, "Plan", "x", nil)
	mustCreateNote(t, db, "Plan B", "x", nil)

	hits, err := db.QueryNotesByTitleExact(ctx, "  pLaN ")
	if err != nil {
		t.Fatalf("QueryNotesByTitleExact: %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "Plan" {
		t.Errorf("hits = %+v, want exactly Plan", hits)
	}
}

func TestQueryNotesByTitleContains(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	mustCreateNote(t, db, "Plan", "x", nil)
	mustCreateNote(t, db, "Plan B", "x", nil)
	mustCreateNote(t, db, "Other", "x", nil)

	hits, err := db.QueryNotesByTitleContains(ctx, "Pla")
	if err != nil {
		t.Fatalf("QueryNotesByTitleContains: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("len(hits) = %d, want 2: %+v", len(hits), hits)
	}
}

func TestQueryNotesByFolderAndTag(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	fid, err := db.CreateFolder(ctx, "Work", nil)
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	inFolder := mustCreateNote(t, db, "In", "x", &fid)
	mustCreateNote(t, db, "Out", "x", nil)

	tagged, err := db.CreateNote(ctx, NoteFields{Title: "Tagged", Content: "#go stuff", Tags: []string{"go"}})
	if err != nil {
		t.Fatal(err)
	}

	byFolder, _ := db.QueryNotesByFolder(ctx, &fid)
	if len(byFolder) != 1 || byFolder[0].ID != inFolder {
		t.Errorf("byFolder = %+v", byFolder)
	}
	byTag, _ := db.QueryNotesByTag(ctx, "GO")
	if len(byTag) != 1 || byTag[0].ID != tagged {
		t.Errorf("byTag = %+v", byTag)
	}
}

func TestDeleteNote_CascadesAttachments(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id := mustCreateNote(t, db, "N", "x", nil)
	aid, err := db.CreateAttachment(ctx, id, "pic.png", "image/png", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("CreateAttachment: %v", err)
	}

	if err := db.DeleteNote(ctx, id); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := db.GetAttachment(ctx, aid); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("attachment survived note delete: %v", err)
	}
}

func TestDeleteFolder_CascadesSubtree(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	root, _ := db.CreateFolder(ctx, "root", nil)
	child, _ := db.CreateFolder(ctx, "child", &root)
	nid := mustCreateNote(t, db, "N", "x", &child)
	aid, _ := db.CreateAttachment(ctx, nid, "a.bin", "application/octet-stream", []byte{9})

	if err := db.DeleteFolder(ctx, root); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if _, err := db.GetFolder(ctx, child); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("child folder survived cascade")
	}
	if _, err := db.GetNote(ctx, nid); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("note survived cascade")
	}
	if _, err := db.GetAttachment(ctx, aid); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("attachment survived cascade")
	}
}

func TestDeleteFolder_RollsBackOnFailure(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	fid, _ := db.CreateFolder(ctx, "F", nil)
	nid := mustCreateNote(t, db, "N", "x", &fid)
	aid, _ := db.CreateAttachment(ctx, nid, "x.bin", "", []byte{1})

	// Abort the final statement of the cascade; everything deleted before
	// it must be rolled back.
	if _, err := db.conn.Exec(`
		CREATE TRIGGER fail_folder_delete BEFORE DELETE ON folders
		BEGIN SELECT RAISE(ABORT, 'simulated failure'); END
	`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if err := db.DeleteFolder(ctx, fid); err == nil {
		t.Fatal("expected cascade failure")
	}
	if _, err := db.GetFolder(ctx, fid); err != nil {
		t.Errorf("folder missing after rollback: %v", err)
	}
	if _, err := db.GetNote(ctx, nid); err != nil {
		t.Errorf("note missing after rollback: %v", err)
	}
	if _, err := db.GetAttachment(ctx, aid); err != nil {
		t.Errorf("attachment missing after rollback: %v", err)
	}
}

func TestMoveFolder_RejectsCycles(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a, _ := db.CreateFolder(ctx, "a", nil)
	b, _ := db.CreateFolder(ctx, "b", &a)
	c, _ := db.CreateFolder(ctx, "c", &b)

	if err := db.MoveFolder(ctx, a, &c); !errors.Is(err, apperr.ErrCycle) {
		t.Errorf("moving a under its descendant: err = %v, want ErrCycle", err)
	}
	if err := db.MoveFolder(ctx, a, &a); !errors.Is(err, apperr.ErrCycle) {
		t.Errorf("self-parent: err = %v, want ErrCycle", err)
	}
	// A legal reparent still works.
	if err := db.MoveFolder(ctx, c, &a); err != nil {
		t.Errorf("legal move failed: %v", err)
	}
}

func TestMoveFolder_ConcurrentReparentsStayAcyclic(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a, _ := db.CreateFolder(ctx, "a", nil)
	b, _ := db.CreateFolder(ctx, "b", nil)

	// Race reciprocal reparents. Whichever loses the race must either see
	// the other move and reject the cycle, or fail its write; it may not
	// land a parent_id that closes a loop.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = db.MoveFolder(ctx, a, &b)
	}()
	go func() {
		defer wg.Done()
		_ = db.MoveFolder(ctx, b, &a)
	}()
	wg.Wait()

	for _, id := range []string{a, b} {
		seen := map[string]bool{}
		cur := id
		for {
			if seen[cur] {
				t.Fatalf("parent chain from %s loops back on itself", id)
			}
			seen[cur] = true
			f, err := db.GetFolder(ctx, cur)
			if err != nil {
				t.Fatalf("GetFolder(%s): %v", cur, err)
			}
			if f.ParentID == nil {
				break
			}
			cur = *f.ParentID
		}
	}
}

func TestSearchNotes_TitleMatchesFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	mustCreateNote(t, db, "Body hit", "contains keyword inside", nil)
	mustCreateNote(t, db, "keyword in title", "other", nil)

	hits, err := db.SearchNotes(ctx, "KEYWORD", 10)
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d, want 2", len(hits))
	}
	if hits[0].Title != "keyword in title" {
		t.Errorf("title match should come first, got %q", hits[0].Title)
	}
}

func TestListAllNotes_MostRecentFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first := mustCreateNote(t, db, "first", "x", nil)
	second := mustCreateNote(t, db, "second", "x", nil)

	// Touch the first note so it becomes most recent.
	content := "updated"
	if err := db.UpdateNote(ctx, first, NotePatch{Content: &content}); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListAllNotes(ctx)
	if err != nil {
		t.Fatalf("ListAllNotes: %v", err)
	}
	if len(all) != 2 || all[0].ID != first || all[1].ID != second {
		t.Errorf("order = %v, %v", all[0].Title, all[1].Title)
	}
}
