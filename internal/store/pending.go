package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

// WriteState tracks an optimistic edit through its reconciliation with
// durable storage.
type WriteState string

const (
	WritePending   WriteState = "pending"
	WriteConfirmed WriteState = "confirmed"
	WriteFailed    WriteState = "failed"
)

type pendingWrite struct {
	id        string
	projectID model.ProjectID
	entry     model.OverrideEntry
	prior     model.OverrideEntry
	hadPrior  bool
	state     WriteState
}

type pendingWrites struct {
	mu     sync.Mutex
	writes map[string]*pendingWrite
}

func newPendingWrites() *pendingWrites {
	return &pendingWrites{writes: make(map[string]*pendingWrite)}
}

func (p *pendingWrites) add(projectID model.ProjectID, entry, prior model.OverrideEntry, hadPrior bool) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.New().String()
	p.writes[id] = &pendingWrite{
		id:        id,
		projectID: projectID,
		entry:     entry,
		prior:     prior,
		hadPrior:  hadPrior,
		state:     WritePending,
	}
	return id
}

func (p *pendingWrites) get(id string) (pendingWrite, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.writes[id]
	if !ok {
		return pendingWrite{}, false
	}
	return *w, true
}

func (p *pendingWrites) resolve(id string, state WriteState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writes[id]; ok {
		w.state = state
	}
}
