package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/events"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/localcache"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/remote"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/util"
)

// ErrEmptyDraft is returned when a publish finds nothing to promote in
// either the remote draft or the device cache.
var ErrEmptyDraft = fmt.Errorf("publish: no draft content to promote")

// Pipeline promotes the current draft state for a project into a new
// published snapshot. Publishes for different projects run concurrently;
// publishes for the same project serialize behind a per-project lock, so a
// second caller observes the first's snapshot rather than corrupting it.
type Pipeline struct {
	remote  remote.Adapter
	local   *localcache.Store
	repo    SnapshotRepository
	archive Archiver
	bus     *events.Bus

	mu    sync.Mutex
	locks map[model.ProjectID]*sync.Mutex

	now func() time.Time
	log zerolog.Logger
}

func NewPipeline(rem remote.Adapter, local *localcache.Store, repo SnapshotRepository, bus *events.Bus, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		remote: rem,
		local:  local,
		repo:   repo,
		bus:    bus,
		locks:  make(map[model.ProjectID]*sync.Mutex),
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// SetArchiver installs an optional snapshot mirror.
func (p *Pipeline) SetArchiver(a Archiver) {
	p.archive = a
}

// SetClock overrides the timestamp source.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

func (p *Pipeline) projectLock(projectID model.ProjectID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[projectID] = lock
	}
	return lock
}

// Publish writes the current draft (remote draft preferred, device cache as
// fallback) as the new published snapshot, a full replace of whatever was
// live before. Unless preserveDevChanges is set, the remote draft is then
// cleared. A failed snapshot write leaves the draft untouched and reports
// the error; no partial publish state is ever observable.
func (p *Pipeline) Publish(ctx context.Context, projectID model.ProjectID, preserveDevChanges bool) (*model.PublishedSnapshot, error) {
	lock := p.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	draft := p.remote.GetChanges(ctx, projectID)
	if draft.IsEmpty() {
		cached, err := p.local.LoadDraft(projectID)
		if err != nil {
			p.log.Warn().Err(err).Str("project_id", string(projectID)).Msg("Device cache read failed during publish")
		}
		draft = cached
	}
	if draft.IsEmpty() {
		return nil, ErrEmptyDraft
	}

	raw, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("publish: encoding draft: %w", err)
	}

	snap := &model.PublishedSnapshot{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Draft:       *draft,
		ContentHash: util.ContentHash(raw),
		PublishedAt: p.now(),
	}

	if err := p.repo.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	if !preserveDevChanges {
		if err := p.remote.Clear(ctx, projectID); err != nil {
			// The snapshot is live; a draft that failed to clear only means
			// the next publish re-promotes the same content.
			p.log.Error().Err(err).Str("project_id", string(projectID)).Msg("Error clearing draft after publish")
		}
	}

	if p.archive != nil {
		go func(snap *model.PublishedSnapshot) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := p.archive.Archive(ctx, snap); err != nil {
				p.log.Warn().Err(err).Str("snapshot_id", snap.ID).Msg("Snapshot archive failed")
			}
		}(snap)
	}

	p.log.Info().
		Str("project_id", string(projectID)).
		Str("snapshot_id", snap.ID).
		Bool("preserve_dev_changes", preserveDevChanges).
		Msg("Published snapshot")

	p.bus.Emit(events.TopicPublishCompleted, events.PublishCompleted{
		ProjectID: projectID,
		Timestamp: snap.PublishedAt,
	})

	return snap, nil
}
