// Package captions specializes the override pipeline for two content
// kinds: AI-generated image captions and replaced image URLs. Incoming
// values debounce briefly before committing, and edits flagged for
// auto-publish debounce again before invoking the publish pipeline with
// dev changes preserved.
//
// There is one canonical caption store (the override store's caption
// entries); the AI and publish-facing namespaces are read views over it,
// so the two can never disagree.
package captions

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/events"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/localcache"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/publish"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/store"
)

const captionKeyPrefix = "img_caption_"

// CaptionKey derives the canonical content key for an image's caption.
func CaptionKey(imageSrc string) model.ContentKey {
	return model.ContentKey(captionKeyPrefix + imageSrc)
}

// ImageSrc recovers the image src from a caption key.
func ImageSrc(key model.ContentKey) (string, bool) {
	if !strings.HasPrefix(string(key), captionKeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(string(key), captionKeyPrefix), true
}

type Subsystem struct {
	store    *store.Store
	local    *localcache.Store
	pipeline *publish.Pipeline
	bus      *events.Bus

	commitDelay  time.Duration
	publishDelay time.Duration

	commits   *debouncer
	publishes *debouncer

	sub *events.Subscription
	log zerolog.Logger
}

func New(st *store.Store, local *localcache.Store, pipeline *publish.Pipeline, bus *events.Bus, commitDelay, publishDelay time.Duration, log zerolog.Logger) *Subsystem {
	return NewWithClock(st, local, pipeline, bus, commitDelay, publishDelay, realClock{}, log)
}

func NewWithClock(st *store.Store, local *localcache.Store, pipeline *publish.Pipeline, bus *events.Bus, commitDelay, publishDelay time.Duration, clock Clock, log zerolog.Logger) *Subsystem {
	s := &Subsystem{
		store:        st,
		local:        local,
		pipeline:     pipeline,
		bus:          bus,
		commitDelay:  commitDelay,
		publishDelay: publishDelay,
		commits:      newDebouncer(clock),
		publishes:    newDebouncer(clock),
		log:          log,
	}

	s.sub = bus.Subscribe(events.TopicCaptionGenerated, func(e events.Event) {
		if p, ok := e.Payload.(events.CaptionGenerated); ok {
			s.HandleGenerated(p)
		}
	})

	return s
}

// Close cancels pending timers and releases the bus subscription. Pending
// uncommitted captions are dropped, matching a page teardown.
func (s *Subsystem) Close() {
	s.commits.CancelAll()
	s.publishes.CancelAll()
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
}

// HandleGenerated ingests an externally generated caption. N rapid values
// for the same image collapse to one commit of the last value, and to at
// most one auto-publish.
func (s *Subsystem) HandleGenerated(p events.CaptionGenerated) {
	key := "caption|" + string(p.ProjectID) + "|" + p.ImageSrc
	s.commits.Arm(key, s.commitDelay, func() {
		s.commitCaption(p)
	})
}

// ReplaceImage ingests an image replacement with the same debounce
// discipline as captions.
func (s *Subsystem) ReplaceImage(projectID model.ProjectID, originalSrc, newSrc string, autoPublish bool) {
	key := "image|" + string(projectID) + "|" + originalSrc
	s.commits.Arm(key, s.commitDelay, func() {
		s.commitImage(projectID, originalSrc, newSrc, autoPublish)
	})
}

func (s *Subsystem) commitCaption(p events.CaptionGenerated) {
	_, err := s.store.Set(context.Background(), p.ProjectID, model.OverrideEntry{
		Key:  CaptionKey(p.ImageSrc),
		Kind: model.KindCaption,
		Text: p.Caption,
	})
	if err != nil {
		s.log.Error().Err(err).Str("image_src", p.ImageSrc).Msg("Error committing caption")
		return
	}

	s.bus.Emit(events.TopicCaptionsUpdated, events.CaptionsUpdated{
		ProjectID: p.ProjectID,
		ImageSrc:  p.ImageSrc,
		Caption:   p.Caption,
	})

	if p.AutoPublish {
		s.armAutoPublish(p.ProjectID)
	}
}

func (s *Subsystem) commitImage(projectID model.ProjectID, originalSrc, newSrc string, autoPublish bool) {
	_, err := s.store.Set(context.Background(), projectID, model.OverrideEntry{
		Key:  model.ContentKey(originalSrc),
		Kind: model.KindImage,
		Text: newSrc,
	})
	if err != nil {
		s.log.Error().Err(err).Str("image_src", originalSrc).Msg("Error committing image replacement")
		return
	}

	if autoPublish {
		s.armAutoPublish(projectID)
	}
}

func (s *Subsystem) armAutoPublish(projectID model.ProjectID) {
	s.publishes.Arm(string(projectID), s.publishDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		// Auto-publish snapshots the current state but keeps the dev
		// draft intact so editing continues uninterrupted.
		if _, err := s.pipeline.Publish(ctx, projectID, true); err != nil {
			s.log.Error().Err(err).Str("project_id", string(projectID)).Msg("Auto-publish failed")
		}
	})
}

// AICaptions is the AI-namespace read view over the canonical captions.
func (s *Subsystem) AICaptions(projectID model.ProjectID) map[string]string {
	return s.captionView(projectID)
}

// PublishCaptions is the publish-facing read view over the canonical
// captions. Identical to AICaptions by construction; both exist so
// downstream consumers keep their namespace-shaped access.
func (s *Subsystem) PublishCaptions(projectID model.ProjectID) map[string]string {
	return s.captionView(projectID)
}

func (s *Subsystem) captionView(projectID model.ProjectID) map[string]string {
	out := make(map[string]string)

	cached := make(map[model.ContentKey]string)
	if err := s.local.Load(projectID, localcache.NSImageCaptions, &cached); err != nil {
		s.log.Warn().Err(err).Str("project_id", string(projectID)).Msg("Device cache caption read failed")
	}
	for key, caption := range cached {
		if src, ok := ImageSrc(key); ok {
			out[src] = caption
		}
	}

	// Session values win over the device cache.
	for key, text := range s.store.Draft(projectID).TextContent {
		if src, ok := ImageSrc(key); ok {
			out[src] = text
		}
	}

	return out
}
