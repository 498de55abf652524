// Package sse fans event-bus notifications out to connected browsers as
// server-sent events, keyed by the project each client watches.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/events"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

type Client struct {
	Msg       chan string
	ProjectID model.ProjectID
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, client)
	close(client.Msg)
}

func (s *SSEClients) Broadcast(projectID model.ProjectID, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.ProjectID == projectID {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}

// wireEvent is the browser-facing form of a bus event: the topic's wire
// name plus its payload as the custom-event detail object.
type wireEvent struct {
	Event  events.Topic `json:"event"`
	Detail any          `json:"detail"`
}

// BridgeBus forwards bus events to subscribed browsers. The returned
// subscriptions must be released on shutdown.
func (s *SSEClients) BridgeBus(bus *events.Bus) []*events.Subscription {
	forward := func(e events.Event) {
		var projectID model.ProjectID
		switch p := e.Payload.(type) {
		case events.ContentUpdated:
			projectID = p.ProjectID
		case events.PublishCompleted:
			projectID = p.ProjectID
		case events.CacheCleared:
			projectID = p.ProjectID
		case events.CaptionsUpdated:
			projectID = p.ProjectID
		default:
			return
		}

		raw, err := json.Marshal(wireEvent{Event: e.Topic, Detail: e.Payload})
		if err != nil {
			return
		}
		go s.Broadcast(projectID, string(raw))
	}

	return []*events.Subscription{
		bus.Subscribe(events.TopicContentUpdated, forward),
		bus.Subscribe(events.TopicPublishCompleted, forward),
		bus.Subscribe(events.TopicCacheCleared, forward),
		bus.Subscribe(events.TopicCaptionsUpdated, forward),
	}
}
