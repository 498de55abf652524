// Package store holds the in-memory override state for every project this
// session has touched. It is the highest-priority layer of the merge chain:
// a value set here wins until the session ends or the project is reloaded.
// Every write mirrors synchronously to the device cache and asynchronously
// to the remote draft adapter.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/events"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/localcache"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/remote"
)

// RenderFunc produces the content_html form of an entry for the wire, or ""
// when the kind has no rendered form.
type RenderFunc func(model.OverrideEntry) string

// IdentityFunc resolves the editing user from the request context, or ""
// when nobody is signed in.
type IdentityFunc func(ctx context.Context) model.UserID

type Store struct {
	mu       sync.RWMutex
	projects map[model.ProjectID]map[model.ContentKey]model.OverrideEntry

	local  *localcache.Store
	remote remote.Adapter
	bus    *events.Bus

	render   RenderFunc
	identity IdentityFunc
	now      func() time.Time

	pending *pendingWrites

	// wg tracks in-flight remote mirrors so tests and shutdown can wait
	// for the fire-and-forget writes to settle.
	wg sync.WaitGroup

	log zerolog.Logger
}

func New(local *localcache.Store, rem remote.Adapter, bus *events.Bus, log zerolog.Logger) *Store {
	return &Store{
		projects: make(map[model.ProjectID]map[model.ContentKey]model.OverrideEntry),
		local:    local,
		remote:   rem,
		bus:      bus,
		now:      func() time.Time { return time.Now().UTC() },
		pending:  newPendingWrites(),
		log:      log,
	}
}

// SetRender installs the content_html renderer used for remote mirrors.
func (s *Store) SetRender(render RenderFunc) {
	s.render = render
}

// SetIdentity installs the identity provider used to stamp editedBy.
func (s *Store) SetIdentity(identity IdentityFunc) {
	s.identity = identity
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Get returns the session value for key, or fallback when the session has
// not written it. It never fails; resolution across the full layer chain is
// the merge resolver's job.
func (s *Store) Get(projectID model.ProjectID, key model.ContentKey, fallback any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entries, ok := s.projects[projectID]; ok {
		if e, ok := entries[key]; ok {
			return e.Value()
		}
	}
	return fallback
}

// Entry returns the raw session entry for key.
func (s *Store) Entry(projectID model.ProjectID, key model.ContentKey) (model.OverrideEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.projects[projectID]
	if !ok {
		return model.OverrideEntry{}, false
	}
	e, ok := entries[key]
	return e, ok
}

// Set records an override, overwriting unconditionally. The write is
// optimistic: the in-memory and device-cache layers update before the
// remote mirror settles, and a failed mirror rolls both back uniformly to
// the prior value regardless of content kind. The returned id can be used
// to observe the write's fate.
func (s *Store) Set(ctx context.Context, projectID model.ProjectID, e model.OverrideEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	e.UpdatedAt = s.now()
	if e.EditedBy == "" {
		e.EditedBy = model.AnonymousUser
		if s.identity != nil {
			if id := s.identity(ctx); id != "" {
				e.EditedBy = id
			}
		}
	}

	s.mu.Lock()
	entries, ok := s.projects[projectID]
	if !ok {
		entries = make(map[model.ContentKey]model.OverrideEntry)
		s.projects[projectID] = entries
	}
	prior, hadPrior := entries[e.Key]
	entries[e.Key] = e
	s.mu.Unlock()

	writeID := s.pending.add(projectID, e, prior, hadPrior)

	// Device cache mirror is best-effort: a full disk never blocks an edit.
	if err := s.local.SaveEntry(projectID, e); err != nil {
		s.log.Warn().Err(err).Str("key", string(e.Key)).Msg("Device cache mirror failed, continuing")
	}

	s.bus.Emit(events.TopicContentUpdated, events.ContentUpdated{
		ProjectID: projectID,
		Key:       e.Key,
		NewValue:  e.Value(),
		Immediate: true,
	})

	s.wg.Add(1)
	go s.mirrorRemote(projectID, writeID, e)

	return writeID, nil
}

func (s *Store) mirrorRemote(projectID model.ProjectID, writeID string, e model.OverrideEntry) {
	defer s.wg.Done()

	var contentHTML string
	if s.render != nil {
		contentHTML = s.render(e)
	}
	change := remote.NewChange(e, contentHTML, "/projects/"+string(projectID), "")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.remote.SaveChange(ctx, projectID, change); err != nil {
		// No retry queue: log, roll back, and let the editor retry manually.
		s.log.Error().Err(err).
			Str("project_id", string(projectID)).
			Str("key", string(e.Key)).
			Msg("Remote draft save failed, rolling back")
		s.rollback(projectID, writeID)
		return
	}

	s.pending.resolve(writeID, WriteConfirmed)
}

// rollback restores the prior resolved value for a failed write, for every
// content kind alike, then notifies subscribers to re-resolve.
func (s *Store) rollback(projectID model.ProjectID, writeID string) {
	w, ok := s.pending.get(writeID)
	if !ok {
		return
	}
	s.pending.resolve(writeID, WriteFailed)

	s.mu.Lock()
	entries := s.projects[projectID]
	var newValue any
	if entries != nil {
		current, exists := entries[w.entry.Key]
		// A later write to the same key already superseded this one; its
		// own outcome governs the visible value.
		if !exists || !current.UpdatedAt.Equal(w.entry.UpdatedAt) {
			s.mu.Unlock()
			return
		}
		if w.hadPrior {
			entries[w.entry.Key] = w.prior
			newValue = w.prior.Value()
		} else {
			delete(entries, w.entry.Key)
		}
	}
	s.mu.Unlock()

	if w.hadPrior {
		if err := s.local.SaveEntry(projectID, w.prior); err != nil {
			s.log.Warn().Err(err).Str("key", string(w.entry.Key)).Msg("Device cache rollback failed")
		}
	} else {
		if err := s.local.DeleteEntry(projectID, w.entry.Kind, w.entry.Key); err != nil {
			s.log.Warn().Err(err).Str("key", string(w.entry.Key)).Msg("Device cache rollback failed")
		}
	}

	s.bus.Emit(events.TopicContentUpdated, events.ContentUpdated{
		ProjectID: projectID,
		Key:       w.entry.Key,
		NewValue:  newValue,
		Immediate: true,
	})
}

// LoadProject replaces the project's session state wholesale from a draft.
func (s *Store) LoadProject(projectID model.ProjectID, draft *model.ProjectDraft) {
	now := s.now()
	entries := make(map[model.ContentKey]model.OverrideEntry)
	for _, e := range draft.Entries() {
		e.UpdatedAt = now
		entries[e.Key] = e
	}

	s.mu.Lock()
	s.projects[projectID] = entries
	s.mu.Unlock()
}

// ClearProject drops the project's session state and device cache, then
// announces the eviction. Remote draft data is untouched: eviction is cache
// discipline, not data loss.
func (s *Store) ClearProject(projectID model.ProjectID) error {
	s.mu.Lock()
	delete(s.projects, projectID)
	s.mu.Unlock()

	if err := s.local.Clear(projectID); err != nil {
		return fmt.Errorf("clearing project cache: %w", err)
	}

	s.bus.Emit(events.TopicCacheCleared, events.CacheCleared{ProjectID: projectID})
	return nil
}

// Draft flattens the session state for a project into a draft aggregate.
func (s *Store) Draft(projectID model.ProjectID) *model.ProjectDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft := model.NewProjectDraft()
	for _, e := range s.projects[projectID] {
		draft.Apply(e)
	}
	return draft
}

// WriteState reports the fate of a write started by Set.
func (s *Store) WriteState(writeID string) (WriteState, bool) {
	w, ok := s.pending.get(writeID)
	if !ok {
		return "", false
	}
	return w.state, true
}

// Wait blocks until every in-flight remote mirror has settled.
func (s *Store) Wait() {
	s.wg.Wait()
}
