package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/db"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/events"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/localcache"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/remote"
)

// fakeRemote records saves and can be told to fail them.
type fakeRemote struct {
	mu    sync.Mutex
	fail  bool
	saved []remote.Change
}

func (f *fakeRemote) GetChanges(ctx context.Context, projectID model.ProjectID) *model.ProjectDraft {
	draft := model.NewProjectDraft()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.saved {
		draft.Apply(c.Entry())
	}
	return draft
}

func (f *fakeRemote) Changes(ctx context.Context, projectID model.ProjectID) []remote.Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.Change(nil), f.saved...)
}

func (f *fakeRemote) SaveChange(ctx context.Context, projectID model.ProjectID, c remote.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("remote unavailable")
	}
	f.saved = append(f.saved, c)
	return nil
}

func (f *fakeRemote) Clear(ctx context.Context, projectID model.ProjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = nil
	return nil
}

func setupStore(t *testing.T, rem remote.Adapter) (*Store, *localcache.Store, *events.Bus) {
	t.Helper()
	database := db.NewSQLite(":memory:")
	if err := database.InitDB(); err != nil {
		t.Fatalf("Failed to init test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	local := localcache.New(database, zerolog.Nop())
	bus := events.NewBus()
	return New(local, rem, bus, zerolog.Nop()), local, bus
}

func TestStoreSetGet(t *testing.T) {
	rem := &fakeRemote{}
	store, local, bus := setupStore(t, rem)
	ctx := context.Background()

	var updates []events.ContentUpdated
	bus.Subscribe(events.TopicContentUpdated, func(e events.Event) {
		if p, ok := e.Payload.(events.ContentUpdated); ok {
			updates = append(updates, p)
		}
	})

	writeID, err := store.Set(ctx, "p1", model.OverrideEntry{
		Key: "hero_title_p1", Kind: model.KindText, Text: "New Title",
	})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	store.Wait()

	t.Run("Session value visible immediately", func(t *testing.T) {
		if got := store.Get("p1", "hero_title_p1", "fallback"); got != "New Title" {
			t.Errorf("Expected New Title, got %v", got)
		}
	})

	t.Run("Fallback for unset key", func(t *testing.T) {
		if got := store.Get("p1", "missing", "fallback"); got != "fallback" {
			t.Errorf("Expected fallback, got %v", got)
		}
	})

	t.Run("Update event emitted with immediate flag", func(t *testing.T) {
		if len(updates) != 1 {
			t.Fatalf("Expected one update event, got %d", len(updates))
		}
		if updates[0].Key != "hero_title_p1" || !updates[0].Immediate {
			t.Errorf("Unexpected event %+v", updates[0])
		}
	})

	t.Run("Device cache mirrored", func(t *testing.T) {
		draft, err := local.LoadDraft("p1")
		if err != nil {
			t.Fatalf("LoadDraft failed: %v", err)
		}
		if draft.TextContent["hero_title_p1"] != "New Title" {
			t.Error("Expected device cache mirror of the write")
		}
	})

	t.Run("Remote mirrored with attribution", func(t *testing.T) {
		if len(rem.saved) != 1 {
			t.Fatalf("Expected one remote save, got %d", len(rem.saved))
		}
		if rem.saved[0].LastEditedBy != string(model.AnonymousUser) {
			t.Errorf("Expected anonymous attribution, got %q", rem.saved[0].LastEditedBy)
		}
	})

	t.Run("Write confirms", func(t *testing.T) {
		state, ok := store.WriteState(writeID)
		if !ok || state != WriteConfirmed {
			t.Errorf("Expected confirmed write, got %v %v", state, ok)
		}
	})
}

func TestStoreLastWriteWins(t *testing.T) {
	store, _, _ := setupStore(t, &fakeRemote{})
	ctx := context.Background()

	for i, text := range []string{"first", "second", "third"} {
		if _, err := store.Set(ctx, "p1", model.OverrideEntry{
			Key: "k", Kind: model.KindText, Text: text,
		}); err != nil {
			t.Fatalf("Set %d failed: %v", i, err)
		}
	}
	store.Wait()

	if got := store.Get("p1", "k", nil); got != "third" {
		t.Errorf("Expected last write to win, got %v", got)
	}
}

func TestStoreValidationBeforePersistence(t *testing.T) {
	rem := &fakeRemote{}
	store, local, _ := setupStore(t, rem)

	_, err := store.Set(context.Background(), "p1", model.OverrideEntry{
		Key: "k", Kind: model.Kind("widget"), Text: "v",
	})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	store.Wait()

	if _, ok := store.Entry("p1", "k"); ok {
		t.Error("Expected no session state for rejected write")
	}
	draft, _ := local.LoadDraft("p1")
	if !draft.IsEmpty() {
		t.Error("Expected no device cache state for rejected write")
	}
	if len(rem.saved) != 0 {
		t.Error("Expected no remote state for rejected write")
	}
}

func TestStoreRollback(t *testing.T) {
	t.Run("Fresh entry rolls back to absent", func(t *testing.T) {
		rem := &fakeRemote{fail: true}
		store, local, _ := setupStore(t, rem)

		writeID, err := store.Set(context.Background(), "p1", model.OverrideEntry{
			Key: "k", Kind: model.KindText, Text: "doomed",
		})
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		store.Wait()

		if _, ok := store.Entry("p1", "k"); ok {
			t.Error("Expected session entry removed after failed mirror")
		}
		draft, _ := local.LoadDraft("p1")
		if _, ok := draft.TextContent["k"]; ok {
			t.Error("Expected device cache entry removed after failed mirror")
		}
		if state, _ := store.WriteState(writeID); state != WriteFailed {
			t.Errorf("Expected failed write state, got %v", state)
		}
	})

	t.Run("Overwrite rolls back to prior value", func(t *testing.T) {
		rem := &fakeRemote{}
		store, local, _ := setupStore(t, rem)
		ctx := context.Background()

		if _, err := store.Set(ctx, "p1", model.OverrideEntry{
			Key: "k", Kind: model.KindText, Text: "stable",
		}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		store.Wait()

		rem.mu.Lock()
		rem.fail = true
		rem.mu.Unlock()

		if _, err := store.Set(ctx, "p1", model.OverrideEntry{
			Key: "k", Kind: model.KindText, Text: "doomed",
		}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		store.Wait()

		if got := store.Get("p1", "k", nil); got != "stable" {
			t.Errorf("Expected prior value restored, got %v", got)
		}
		draft, _ := local.LoadDraft("p1")
		if draft.TextContent["k"] != "stable" {
			t.Errorf("Expected device cache restored, got %q", draft.TextContent["k"])
		}
	})

	t.Run("Rollback applies to image kind alike", func(t *testing.T) {
		rem := &fakeRemote{fail: true}
		store, local, _ := setupStore(t, rem)

		if _, err := store.Set(context.Background(), "p1", model.OverrideEntry{
			Key: "/old.png", Kind: model.KindImage, Text: "/new.png",
		}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		store.Wait()

		if _, ok := store.Entry("p1", "/old.png"); ok {
			t.Error("Expected image override rolled back")
		}
		draft, _ := local.LoadDraft("p1")
		if len(draft.ImageReplacements) != 0 {
			t.Error("Expected device cache image replacement rolled back")
		}
	})
}

func TestStoreClearProject(t *testing.T) {
	rem := &fakeRemote{}
	store, local, bus := setupStore(t, rem)
	ctx := context.Background()

	var cleared []events.CacheCleared
	bus.Subscribe(events.TopicCacheCleared, func(e events.Event) {
		if p, ok := e.Payload.(events.CacheCleared); ok {
			cleared = append(cleared, p)
		}
	})

	store.Set(ctx, "p1", model.OverrideEntry{Key: "k", Kind: model.KindText, Text: "v"})
	store.Set(ctx, "p2", model.OverrideEntry{Key: "k", Kind: model.KindText, Text: "w"})
	store.Wait()

	if err := store.ClearProject("p1"); err != nil {
		t.Fatalf("ClearProject failed: %v", err)
	}

	if _, ok := store.Entry("p1", "k"); ok {
		t.Error("Expected p1 session state cleared")
	}
	if got := store.Get("p2", "k", nil); got != "w" {
		t.Error("Expected p2 untouched")
	}
	draft, _ := local.LoadDraft("p1")
	if !draft.IsEmpty() {
		t.Error("Expected p1 device cache cleared")
	}
	if len(rem.saved) != 2 {
		t.Error("Expected remote draft untouched by cache clear")
	}
	if len(cleared) != 1 || cleared[0].ProjectID != "p1" {
		t.Errorf("Expected one cleared event for p1, got %v", cleared)
	}
}

func TestStoreLoadProject(t *testing.T) {
	store, _, _ := setupStore(t, &fakeRemote{})

	draft := model.NewProjectDraft()
	draft.TextContent["a"] = "1"
	draft.ImageReplacements["/b.png"] = "/c.png"

	store.LoadProject("p1", draft)

	if got := store.Get("p1", "a", nil); got != "1" {
		t.Errorf("Expected loaded text value, got %v", got)
	}
	if got := store.Get("p1", "/b.png", nil); got != "/c.png" {
		t.Errorf("Expected loaded image value, got %v", got)
	}
}

func TestStoreDraft(t *testing.T) {
	store, _, _ := setupStore(t, &fakeRemote{})
	ctx := context.Background()

	store.Set(ctx, "p1", model.OverrideEntry{Key: "t", Kind: model.KindText, Text: "text"})
	store.Set(ctx, "p1", model.OverrideEntry{Key: "/i.png", Kind: model.KindImage, Text: "/j.png"})
	store.Wait()

	draft := store.Draft("p1")
	if draft.TextContent["t"] != "text" || draft.ImageReplacements["/i.png"] != "/j.png" {
		t.Errorf("Draft mismatch: %+v", draft)
	}
}
