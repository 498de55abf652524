package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/auth"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/captions"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/config"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/db"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/events"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/localcache"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/publish"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/remote"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/render"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/resolve"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/seo"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/sse"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/store"
)

// contentService is the explicitly constructed editing pipeline: one
// instance per process holds the override store, adapters, resolver,
// publish pipeline, caption subsystem and event bus, wired together here
// rather than through package globals.
type contentService struct {
	cfg *config.Config

	serviceDB db.DB
	deviceDB  db.DB

	bus      *events.Bus
	local    *localcache.Store
	remote   remote.Adapter
	store    *store.Store
	snaps    publish.SnapshotRepository
	pipeline *publish.Pipeline
	resolver *resolve.Resolver
	captions *captions.Subsystem
	seo      *seo.Supplier
	clients  *sse.SSEClients

	authProvider auth.AuthProvider
	sseSubs      []*events.Subscription

	log zerolog.Logger
}

func newContentService(cfg *config.Config, log zerolog.Logger) (*contentService, error) {
	s := &contentService{
		cfg: cfg,
		bus: events.NewBus(),
		log: log,
	}

	s.serviceDB = db.NewSQLite(cfg.Storage.DatabasePath)
	if err := s.serviceDB.InitDB(); err != nil {
		return nil, err
	}

	s.deviceDB = db.NewSQLite(cfg.Storage.DeviceCachePath)
	if err := s.deviceDB.InitDB(); err != nil {
		return nil, err
	}

	s.local = localcache.New(s.deviceDB, log)

	if cfg.Remote.Endpoint != "" {
		// Consumer mode: drafts live on a hosted backend elsewhere.
		s.remote = remote.NewClient(cfg.Remote.Endpoint, cfg.Remote.Timeout)
	} else {
		s.remote = remote.NewDraftStore(s.serviceDB)
	}

	s.store = store.New(s.local, s.remote, s.bus, log)
	s.store.SetRender(render.EntryHTML)
	s.store.SetIdentity(func(ctx context.Context) model.UserID {
		return auth.CurrentUser(ctx)
	})

	s.snaps = publish.NewDBSnapshotRepository(s.serviceDB, log)
	s.pipeline = publish.NewPipeline(s.remote, s.local, s.snaps, s.bus, log)

	if cfg.Storage.S3.Enabled {
		archiver, err := publish.NewS3Archiver(
			envOr("S3_ACCESS_KEY_ID", ""),
			envOr("S3_ACCESS_KEY_SECRET", ""),
			cfg.Storage.S3.BaseEndpoint,
			cfg.Storage.S3.Bucket,
			log,
		)
		if err != nil {
			log.Error().Err(err).Msg("Error initializing snapshot archiver, continuing without it")
		} else {
			s.pipeline.SetArchiver(archiver)
		}
	}

	s.resolver = resolve.New(s.store, s.remote, s.local, s.snaps, s.bus, log)
	s.captions = captions.New(s.store, s.local, s.pipeline, s.bus,
		cfg.Captions.CommitDebounce, cfg.Captions.PublishDebounce, log)
	s.seo = seo.NewSupplier(s.resolver, s.snaps, cfg.Site)

	s.clients = sse.NewSSEClients()
	s.sseSubs = s.clients.BridgeBus(s.bus)

	return s, nil
}

func (s *contentService) Close() {
	s.captions.Close()
	s.resolver.Close()
	for _, sub := range s.sseSubs {
		sub.Unsubscribe()
	}
	s.store.Wait()
	if err := s.deviceDB.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Error closing device cache database")
	}
	if err := s.serviceDB.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Error closing service database")
	}
}

// editorID enforces dev-mode authorization when authentication is enabled,
// otherwise every visitor edits as anonymous. Single-admin tool: there is
// no per-user isolation of drafts.
func (s *contentService) editorID(w http.ResponseWriter, r *http.Request) (model.UserID, bool) {
	if !s.cfg.Features.Authentication.Enabled || s.authProvider == nil {
		return model.AnonymousUser, true
	}
	userID, err := s.authProvider.EnforceUserAndGetID(w, r)
	if err != nil {
		return "", false
	}
	return userID, true
}
