// Package resolve computes the effective displayed value for a content key.
// Priority, highest first: session override store, remote draft, device
// cache, published snapshot, caller-supplied fallback. Layer snapshots are
// cached per project and invalidated by event-bus notifications, so a stale
// read self-corrects on the next notification and never persists.
package resolve

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/cache"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/events"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/localcache"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/remote"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/store"
)

// SnapshotReader is the published layer of the chain, implemented by the
// publish pipeline's snapshot repository.
type SnapshotReader interface {
	Latest(ctx context.Context, projectID model.ProjectID) (*model.PublishedSnapshot, error)
}

type Resolver struct {
	session   *store.Store
	remote    remote.Adapter
	local     *localcache.Store
	published SnapshotReader

	remoteDrafts *cache.Cache[model.ProjectID, *model.ProjectDraft]
	localDrafts  *cache.Cache[model.ProjectID, *model.ProjectDraft]
	snapshots    *cache.Cache[model.ProjectID, *model.PublishedSnapshot]

	subs []*events.Subscription
	log  zerolog.Logger
}

func New(session *store.Store, rem remote.Adapter, local *localcache.Store, published SnapshotReader, bus *events.Bus, log zerolog.Logger) *Resolver {
	r := &Resolver{
		session:      session,
		remote:       rem,
		local:        local,
		published:    published,
		remoteDrafts: cache.NewCache[model.ProjectID, *model.ProjectDraft](),
		localDrafts:  cache.NewCache[model.ProjectID, *model.ProjectDraft](),
		snapshots:    cache.NewCache[model.ProjectID, *model.PublishedSnapshot](),
		log:          log,
	}

	invalidate := func(e events.Event) {
		switch p := e.Payload.(type) {
		case events.ContentUpdated:
			r.Invalidate(p.ProjectID)
		case events.PublishCompleted:
			r.Invalidate(p.ProjectID)
		case events.CacheCleared:
			r.Invalidate(p.ProjectID)
		case events.CaptionsUpdated:
			r.Invalidate(p.ProjectID)
		}
	}

	r.subs = append(r.subs,
		bus.Subscribe(events.TopicContentUpdated, invalidate),
		bus.Subscribe(events.TopicPublishCompleted, invalidate),
		bus.Subscribe(events.TopicCacheCleared, invalidate),
		bus.Subscribe(events.TopicCaptionsUpdated, invalidate),
	)

	return r
}

// Close releases the resolver's event subscriptions.
func (r *Resolver) Close() {
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
	r.subs = nil
}

// Invalidate drops every cached layer snapshot for the project.
func (r *Resolver) Invalidate(projectID model.ProjectID) {
	r.remoteDrafts.Delete(projectID)
	r.localDrafts.Delete(projectID)
	r.snapshots.Delete(projectID)
}

// Resolve returns the effective value for key, walking the layers in
// priority order. It never fails: every layer degrades to the next, and the
// caller's fallback is the floor.
func (r *Resolver) Resolve(ctx context.Context, projectID model.ProjectID, key model.ContentKey, fallback any) any {
	if e, ok := r.session.Entry(projectID, key); ok {
		return e.Value()
	}

	if v, ok := r.remoteDraft(ctx, projectID).Lookup(key); ok {
		return v
	}

	if v, ok := r.localDraft(projectID).Lookup(key); ok {
		return v
	}

	if snap := r.snapshot(ctx, projectID); snap != nil {
		if v, ok := snap.Draft.Lookup(key); ok {
			return v
		}
	}

	return fallback
}

// ResolveText is Resolve for string-valued keys.
func (r *Resolver) ResolveText(ctx context.Context, projectID model.ProjectID, key model.ContentKey, fallback string) string {
	if v, ok := r.Resolve(ctx, projectID, key, fallback).(string); ok {
		return v
	}
	return fallback
}

// MergedDraft flattens the draft layers (session over remote over local)
// into one aggregate, without the published layer.
func (r *Resolver) MergedDraft(ctx context.Context, projectID model.ProjectID) *model.ProjectDraft {
	merged := model.NewProjectDraft()
	for _, layer := range []*model.ProjectDraft{
		r.localDraft(projectID),
		r.remoteDraft(ctx, projectID),
		r.session.Draft(projectID),
	} {
		for _, e := range layer.Entries() {
			merged.Apply(e)
		}
	}
	return merged
}

func (r *Resolver) remoteDraft(ctx context.Context, projectID model.ProjectID) *model.ProjectDraft {
	if draft, ok := r.remoteDrafts.Get(projectID); ok {
		return draft
	}
	draft := r.remote.GetChanges(ctx, projectID)
	r.remoteDrafts.Set(projectID, draft)
	return draft
}

func (r *Resolver) localDraft(projectID model.ProjectID) *model.ProjectDraft {
	if draft, ok := r.localDrafts.Get(projectID); ok {
		return draft
	}
	draft, err := r.local.LoadDraft(projectID)
	if err != nil {
		r.log.Warn().Err(err).Str("project_id", string(projectID)).Msg("Device cache load failed, continuing without it")
	}
	r.localDrafts.Set(projectID, draft)
	return draft
}

func (r *Resolver) snapshot(ctx context.Context, projectID model.ProjectID) *model.PublishedSnapshot {
	if snap, ok := r.snapshots.Get(projectID); ok {
		return snap
	}
	snap, err := r.published.Latest(ctx, projectID)
	if err != nil {
		r.log.Warn().Err(err).Str("project_id", string(projectID)).Msg("Published snapshot load failed, continuing without it")
		return nil
	}
	r.snapshots.Set(projectID, snap)
	return snap
}
