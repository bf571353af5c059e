// Package session holds the per-session knowledge state: the selected note,
// the resolution cache, and the last computed backlink set. It orchestrates
// the scanner, resolver, and backlink index around note edits.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lllllan02/knowledge-base/internal/apperr"
	"github.com/lllllan02/knowledge-base/internal/backlink"
	"github.com/lllllan02/knowledge-base/internal/resolver"
	"github.com/lllllan02/knowledge-base/internal/scanner"
	"github.com/lllllan02/knowledge-base/internal/store"
)

const defaultDebounce = 500 * time.Millisecond

// Publisher receives change notifications; nil publishers are allowed.
type Publisher interface {
	PublishNoteEvent(kind, id string)
	PublishBacklinksEvent(id string)
}

// Options configures a Session.
type Options struct {
	// Debounce is the save latency window. Zero selects the default.
	Debounce time.Duration
	Events   Publisher
	Logger   *slog.Logger
}

// Session is the exclusive owner of the resolution cache and backlink set.
// Construct one per application (or per test) and inject it; there is no
// ambient singleton.
type Session struct {
	store     store.RecordStore
	resolver  *resolver.Resolver
	backlinks *backlink.Index
	events    Publisher
	logger    *slog.Logger
	debounce  time.Duration

	mu               sync.Mutex
	current          *store.Note
	gen              uint64
	backlinkSet      []store.Note
	loadingBacklinks bool
	pending          map[string]*pendingSave
	dirty            map[string]struct{}

	bg sync.WaitGroup
}

type pendingSave struct {
	timer   *time.Timer
	content string
}

// New creates a session over the record store. The resolver and backlink
// index are owned by the session; no other component mutates them.
func New(st store.RecordStore, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		store:     st,
		resolver:  resolver.New(st),
		backlinks: backlink.New(st),
		events:    opts.Events,
		logger:    opts.Logger,
		debounce:  opts.Debounce,
		pending:   make(map[string]*pendingSave),
		dirty:     make(map[string]struct{}),
	}
}

// Resolver exposes the session-owned resolver for read-only consumers
// (rendering, API resolve endpoint).
func (s *Session) Resolver() *resolver.Resolver { return s.resolver }

// Store exposes the underlying record store for read paths.
func (s *Session) Store() store.RecordStore { return s.store }

// SelectNote makes the note current immediately and starts background
// backlink computation and cache warm-up for its wikilinks. Results arriving
// after the selection has moved on are discarded.
func (s *Session) SelectNote(note *store.Note) {
	s.mu.Lock()
	s.gen++
	s.current = note
	if note == nil || note.ID == "" {
		s.backlinkSet = nil
		s.loadingBacklinks = false
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.loadingBacklinks = true
	s.mu.Unlock()

	s.refreshInBackground(*note, gen)
}

// refreshInBackground recomputes backlinks and warms the resolution cache
// for the given note snapshot. The generation tag guards against applying
// results for an abandoned selection.
func (s *Session) refreshInBackground(note store.Note, gen uint64) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		bl, err := s.backlinks.FindBacklinks(context.Background(), note)
		if err != nil {
			// Best-effort: record a diagnostic, fail closed to empty.
			s.logger.Warn("backlink computation failed",
				slog.String("note_id", note.ID), slog.String("error", err.Error()))
			bl = nil
		}

		s.mu.Lock()
		if s.gen == gen {
			s.backlinkSet = bl
			s.loadingBacklinks = false
		}
		s.mu.Unlock()

		if err == nil && s.events != nil {
			s.events.PublishBacklinksEvent(note.ID)
		}
	}()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		for _, ref := range scanner.Wikilinks(note.Content) {
			if _, err := s.resolver.Resolve(context.Background(), ref); err != nil {
				s.logger.Warn("link pre-resolution failed",
					slog.String("ref", ref), slog.String("error", err.Error()))
			}
		}
	}()
}

// CurrentNote returns a copy of the currently selected note, or nil.
func (s *Session) CurrentNote() *store.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	n := *s.current
	return &n
}

// Backlinks returns the last computed backlink set for the current note and
// whether a computation is still in flight.
func (s *Session) Backlinks() ([]store.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Note, len(s.backlinkSet))
	copy(out, s.backlinkSet)
	return out, s.loadingBacklinks
}

// SaveNote schedules a debounced save. The latest content snapshot for a
// note always wins; earlier snapshots within the window are replaced, and
// exactly one write is persisted per quiet period.
func (s *Session) SaveNote(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty[id] = struct{}{}
	if p, ok := s.pending[id]; ok {
		p.content = content
		p.timer.Reset(s.debounce)
		return
	}
	p := &pendingSave{content: content}
	p.timer = time.AfterFunc(s.debounce, func() { s.fireSave(id) })
	s.pending[id] = p
}

func (s *Session) fireSave(id string) {
	s.mu.Lock()
	p, ok := s.pending[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	content := p.content
	delete(s.pending, id)
	s.mu.Unlock()

	if err := s.commit(context.Background(), id, content); err != nil {
		// The note stays dirty; previous persisted content is intact.
		s.logger.Error("debounced save failed",
			slog.String("note_id", id), slog.String("error", err.Error()))
	}
}

// SaveNoteNow persists content immediately, bypassing the debounce window.
// Any pending debounced snapshot for the note is superseded.
func (s *Session) SaveNoteNow(ctx context.Context, id, content string) error {
	s.mu.Lock()
	if p, ok := s.pending[id]; ok {
		p.timer.Stop()
		delete(s.pending, id)
	}
	s.dirty[id] = struct{}{}
	s.mu.Unlock()

	return s.commit(ctx, id, content)
}

// Flush forces a pending debounced save to commit synchronously. A note
// with nothing pending is a no-op.
func (s *Session) Flush(ctx context.Context, id string) error {
	s.mu.Lock()
	p, ok := s.pending[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	p.timer.Stop()
	content := p.content
	delete(s.pending, id)
	s.mu.Unlock()

	return s.commit(ctx, id, content)
}

// commit persists content, re-derives title and tags, and rebuilds the
// link-dependent state. The reread record is treated as present truth.
func (s *Session) commit(ctx context.Context, id, content string) error {
	old, err := s.store.GetNote(ctx, id)
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}

	title := scanner.Title(content)
	tags := scanner.Tags(content)
	if tags == nil {
		tags = []string{}
	}
	if err := s.store.UpdateNote(ctx, id, store.NotePatch{
		Title:   &title,
		Content: &content,
		Tags:    tags,
	}); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}

	updated, err := s.store.GetNote(ctx, id)
	if err != nil {
		return fmt.Errorf("session: reread after save: %w", err)
	}

	// Invalidate entries for the old title before the new title can be
	// resolved, plus every reference appearing in old or new content. A
	// title change clears everything: substring-fallback entries anywhere
	// in the cache may now have a better exact match.
	refs := append(scanner.Wikilinks(old.Content), scanner.Wikilinks(updated.Content)...)
	refs = append(refs, old.Title, updated.Title)
	s.resolver.Invalidate(refs...)
	if scanner.NormalizeTitle(old.Title) != scanner.NormalizeTitle(updated.Title) {
		s.resolver.InvalidateAll()
	}

	s.mu.Lock()
	delete(s.dirty, id)
	isCurrent := s.current != nil && s.current.ID == id
	var gen uint64
	if isCurrent {
		s.gen++
		gen = s.gen
		s.current = updated
		s.loadingBacklinks = true
	}
	s.mu.Unlock()

	if isCurrent {
		s.refreshInBackground(*updated, gen)
	} else {
		s.warmInBackground(*updated)
	}

	if s.events != nil {
		s.events.PublishNoteEvent("updated", id)
	}
	return nil
}

// warmInBackground re-resolves the references of a note that is not the
// current selection; there is no backlink set to update.
func (s *Session) warmInBackground(note store.Note) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		for _, ref := range scanner.Wikilinks(note.Content) {
			if _, err := s.resolver.Resolve(context.Background(), ref); err != nil {
				s.logger.Warn("link re-resolution failed",
					slog.String("ref", ref), slog.String("error", err.Error()))
			}
		}
		if s.events != nil {
			s.events.PublishBacklinksEvent(note.ID)
		}
	}()
}

// CreateNote derives title and tags from content, persists a new note, and
// returns it. Resolution state is invalidated: a new note can satisfy
// previously unresolved references.
func (s *Session) CreateNote(ctx context.Context, content string, folderID *string) (*store.Note, error) {
	tags := scanner.Tags(content)
	if tags == nil {
		tags = []string{}
	}
	id, err := s.store.CreateNote(ctx, store.NoteFields{
		Title:    scanner.Title(content),
		Content:  content,
		Tags:     tags,
		FolderID: folderID,
	})
	if err != nil {
		return nil, fmt.Errorf("session: create note: %w", err)
	}
	note, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: reread created note: %w", err)
	}

	s.resolver.InvalidateAll()
	if s.events != nil {
		s.events.PublishNoteEvent("created", id)
	}
	return note, nil
}

// DeleteNote removes a note (and its attachments, transactionally) and
// drops all derived state that may point at it.
func (s *Session) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	if p, ok := s.pending[id]; ok {
		p.timer.Stop()
		delete(s.pending, id)
	}
	delete(s.dirty, id)
	s.mu.Unlock()

	if err := s.store.DeleteNote(ctx, id); err != nil {
		return fmt.Errorf("session: delete note: %w", err)
	}

	s.resolver.InvalidateAll()

	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.gen++
		s.current = nil
		s.backlinkSet = nil
		s.loadingBacklinks = false
	}
	s.mu.Unlock()

	if s.events != nil {
		s.events.PublishNoteEvent("deleted", id)
	}
	return nil
}

// DeleteFolder cascades a folder delete through the store and invalidates
// resolution state, since any number of notes may have gone with it.
func (s *Session) DeleteFolder(ctx context.Context, id string) error {
	if err := s.store.DeleteFolder(ctx, id); err != nil {
		return fmt.Errorf("session: delete folder: %w", err)
	}
	s.resolver.InvalidateAll()

	// The current note may have lived in the deleted subtree.
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		// Only a confirmed disappearance clears the selection; a transient
		// store error says nothing about whether the note survived.
		if _, err := s.store.GetNote(ctx, cur.ID); errors.Is(err, apperr.ErrNotFound) {
			s.SelectNote(nil)
		}
	}
	return nil
}

// Dirty reports whether a note has edits not yet persisted.
func (s *Session) Dirty(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirty[id]
	return ok
}

// Wait blocks until in-flight background computations finish. Intended for
// shutdown and tests.
func (s *Session) Wait() {
	s.bg.Wait()
}

// Close flushes every pending save and waits for background work.
func (s *Session) Close() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := s.Flush(context.Background(), id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.bg.Wait()
	return firstErr
}
