// Package events is the in-process publish/subscribe channel that decouples
// the editing pipeline from everything that displays content. Topics and
// payloads are typed; the stringly browser event names survive only as the
// wire form each topic serializes to at the SSE boundary.
package events

import (
	"time"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

type Topic string

// Topic wire names match the browser custom events the frontend listens for.
const (
	TopicContentUpdated   Topic = "projectDataUpdated"
	TopicPublishCompleted Topic = "projectPublished"
	TopicCacheCleared     Topic = "projectCacheCleared"
	TopicCaptionGenerated Topic = "aiCaptionGenerated"
	TopicCaptionsUpdated  Topic = "captionsUpdated"
)

// ContentUpdated fires on every override store write.
type ContentUpdated struct {
	ProjectID model.ProjectID  `json:"projectId"`
	Key       model.ContentKey `json:"key"`
	NewValue  any              `json:"newValue"`
	// Immediate marks writes that bypassed debouncing.
	Immediate bool `json:"immediate"`
}

// PublishCompleted fires after a snapshot write succeeds.
type PublishCompleted struct {
	ProjectID model.ProjectID `json:"projectId"`
	Timestamp time.Time       `json:"timestamp"`
}

// CacheCleared fires after a project's device cache is evicted.
type CacheCleared struct {
	ProjectID model.ProjectID `json:"projectId"`
}

// CaptionGenerated carries an externally generated caption into the
// caption subsystem.
type CaptionGenerated struct {
	ProjectID   model.ProjectID `json:"projectId"`
	ImageSrc    string          `json:"imageSrc"`
	Caption     string          `json:"caption"`
	AutoPublish bool            `json:"autoPublish"`
}

// CaptionsUpdated fires after a debounced caption commit.
type CaptionsUpdated struct {
	ProjectID model.ProjectID `json:"projectId"`
	ImageSrc  string          `json:"imageSrc"`
	Caption   string          `json:"caption"`
}

// Event pairs a topic with its payload struct.
type Event struct {
	Topic   Topic
	Payload any
}

type Handler func(Event)
