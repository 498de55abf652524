package captions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/db"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/events"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/localcache"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/publish"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/remote"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/store"
)

// fakeClock collects armed timers and fires them on demand, so debounce
// behavior is tested without sleeping.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return !t.fired
}

// Advance moves time forward and fires every live timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.deadline.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

type fixture struct {
	store     *store.Store
	local     *localcache.Store
	remote    *remote.DraftStore
	repo      *publish.DBSnapshotRepository
	bus       *events.Bus
	clock     *fakeClock
	subsystem *Subsystem
}

func setup(t *testing.T) *fixture {
	t.Helper()
	database := db.NewSQLite(":memory:")
	if err := database.InitDB(); err != nil {
		t.Fatalf("Failed to init test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	f := &fixture{
		local:  localcache.New(database, zerolog.Nop()),
		remote: remote.NewDraftStore(database),
		repo:   publish.NewDBSnapshotRepository(database, zerolog.Nop()),
		bus:    events.NewBus(),
		clock:  newFakeClock(),
	}
	f.store = store.New(f.local, f.remote, f.bus, zerolog.Nop())
	pipeline := publish.NewPipeline(f.remote, f.local, f.repo, f.bus, zerolog.Nop())
	f.subsystem = NewWithClock(f.store, f.local, pipeline, f.bus,
		300*time.Millisecond, time.Second, f.clock, zerolog.Nop())
	t.Cleanup(f.subsystem.Close)
	return f
}

func TestCaptionKey(t *testing.T) {
	key := CaptionKey("/images/desk.png")
	if key != "img_caption_/images/desk.png" {
		t.Errorf("Unexpected caption key %s", key)
	}

	src, ok := ImageSrc(key)
	if !ok || src != "/images/desk.png" {
		t.Errorf("Expected src recovered, got %q %v", src, ok)
	}

	if _, ok := ImageSrc("hero_title_p1"); ok {
		t.Error("Expected non-caption key to be rejected")
	}
}

func TestCaptionDebounce(t *testing.T) {
	t.Run("Burst coalesces to the last value", func(t *testing.T) {
		f := setup(t)

		for _, caption := range []string{"first", "second", "third"} {
			f.bus.Emit(events.TopicCaptionGenerated, events.CaptionGenerated{
				ProjectID: "p1", ImageSrc: "/desk.png", Caption: caption,
			})
			f.clock.Advance(100 * time.Millisecond)
		}

		// Nothing committed while the window is still open.
		if _, ok := f.store.Entry("p1", CaptionKey("/desk.png")); ok {
			t.Fatal("Expected no commit before the debounce window closes")
		}

		f.clock.Advance(300 * time.Millisecond)
		f.store.Wait()

		e, ok := f.store.Entry("p1", CaptionKey("/desk.png"))
		if !ok {
			t.Fatal("Expected caption committed after the window")
		}
		if e.Text != "third" || e.Kind != model.KindCaption {
			t.Errorf("Expected last caption committed, got %+v", e)
		}

		// One burst, one remote write.
		changes := f.remote.Changes(context.Background(), "p1")
		if len(changes) != 1 {
			t.Errorf("Expected a single committed change, got %d", len(changes))
		}
	})

	t.Run("Different images debounce independently", func(t *testing.T) {
		f := setup(t)

		f.bus.Emit(events.TopicCaptionGenerated, events.CaptionGenerated{
			ProjectID: "p1", ImageSrc: "/a.png", Caption: "a",
		})
		f.bus.Emit(events.TopicCaptionGenerated, events.CaptionGenerated{
			ProjectID: "p1", ImageSrc: "/b.png", Caption: "b",
		})

		f.clock.Advance(300 * time.Millisecond)
		f.store.Wait()

		if _, ok := f.store.Entry("p1", CaptionKey("/a.png")); !ok {
			t.Error("Expected /a.png caption committed")
		}
		if _, ok := f.store.Entry("p1", CaptionKey("/b.png")); !ok {
			t.Error("Expected /b.png caption committed")
		}
	})

	t.Run("Commit announces on the bus", func(t *testing.T) {
		f := setup(t)

		var updated []events.CaptionsUpdated
		f.bus.Subscribe(events.TopicCaptionsUpdated, func(e events.Event) {
			if p, ok := e.Payload.(events.CaptionsUpdated); ok {
				updated = append(updated, p)
			}
		})

		f.bus.Emit(events.TopicCaptionGenerated, events.CaptionGenerated{
			ProjectID: "p1", ImageSrc: "/desk.png", Caption: "A desk",
		})
		f.clock.Advance(300 * time.Millisecond)
		f.store.Wait()

		if len(updated) != 1 || updated[0].Caption != "A desk" {
			t.Errorf("Expected one captions-updated event, got %v", updated)
		}
	})
}

func TestCaptionAutoPublish(t *testing.T) {
	t.Run("Burst publishes at most once and preserves the draft", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		for _, caption := range []string{"one", "two", "three"} {
			f.bus.Emit(events.TopicCaptionGenerated, events.CaptionGenerated{
				ProjectID: "p1", ImageSrc: "/desk.png", Caption: caption, AutoPublish: true,
			})
			f.clock.Advance(400 * time.Millisecond)
			f.store.Wait()
		}

		f.clock.Advance(time.Second)
		f.store.Wait()

		snap, err := f.repo.Latest(ctx, "p1")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if snap == nil {
			t.Fatal("Expected an auto-published snapshot")
		}
		if snap.Draft.TextContent[CaptionKey("/desk.png")] != "three" {
			t.Errorf("Expected last caption published, got %q", snap.Draft.TextContent[CaptionKey("/desk.png")])
		}

		// Auto-publish preserves the working draft.
		if draft := f.remote.GetChanges(ctx, "p1"); draft.IsEmpty() {
			t.Error("Expected remote draft preserved by auto-publish")
		}
	})

	t.Run("No auto-publish without the flag", func(t *testing.T) {
		f := setup(t)

		f.bus.Emit(events.TopicCaptionGenerated, events.CaptionGenerated{
			ProjectID: "p1", ImageSrc: "/desk.png", Caption: "quiet",
		})
		f.clock.Advance(2 * time.Second)
		f.store.Wait()

		snap, err := f.repo.Latest(context.Background(), "p1")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if snap != nil {
			t.Error("Expected no snapshot without the auto-publish flag")
		}
	})
}

func TestReplaceImage(t *testing.T) {
	f := setup(t)

	f.subsystem.ReplaceImage("p1", "/old.png", "/new.png", false)
	f.subsystem.ReplaceImage("p1", "/old.png", "/newer.png", false)

	f.clock.Advance(300 * time.Millisecond)
	f.store.Wait()

	e, ok := f.store.Entry("p1", "/old.png")
	if !ok {
		t.Fatal("Expected image replacement committed")
	}
	if e.Kind != model.KindImage || e.Text != "/newer.png" {
		t.Errorf("Expected last replacement to win, got %+v", e)
	}
}

func TestCaptionViews(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.store.Set(ctx, "p1", model.OverrideEntry{
		Key: CaptionKey("/desk.png"), Kind: model.KindCaption, Text: "canonical",
	})
	f.store.Wait()

	t.Run("Views agree", func(t *testing.T) {
		ai := f.subsystem.AICaptions("p1")
		pub := f.subsystem.PublishCaptions("p1")

		if ai["/desk.png"] != "canonical" {
			t.Errorf("Expected caption in AI view, got %v", ai)
		}
		if pub["/desk.png"] != ai["/desk.png"] {
			t.Error("Expected both views to read the same canonical store")
		}
	})

	t.Run("Session wins over device cache", func(t *testing.T) {
		f.local.SaveEntry("p1", model.OverrideEntry{
			Key: CaptionKey("/desk.png"), Kind: model.KindCaption, Text: "stale",
		})
		ai := f.subsystem.AICaptions("p1")
		if ai["/desk.png"] != "canonical" {
			t.Errorf("Expected session value to win, got %q", ai["/desk.png"])
		}
	})
}
