// Package remote persists project drafts across devices. The same override
// shape is reachable two ways: DraftStore writes the service's own drafts
// table, and Client speaks JSON to a hosted content endpoint when this
// process is only a consumer of someone else's backend.
package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

// Change is one draft mutation on the wire. ContentJSON carries the raw
// override value (string or block array); ContentHTML is the pre-rendered
// form for kinds that have one.
type Change struct {
	ContentKey   string          `json:"content_key"`
	Kind         model.Kind      `json:"kind"`
	ContentHTML  string          `json:"content_html,omitempty"`
	ContentJSON  json.RawMessage `json:"content_json"`
	PagePath     string          `json:"page_path,omitempty"`
	SectionName  string          `json:"section_name,omitempty"`
	LastEditedBy string          `json:"last_edited_by"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewChange builds the wire form of an override entry. The value always
// marshals; entry values are plain strings or validated block slices.
func NewChange(e model.OverrideEntry, contentHTML, pagePath, sectionName string) Change {
	raw, _ := json.Marshal(e.Value())

	editedBy := e.EditedBy
	if editedBy == "" {
		editedBy = model.AnonymousUser
	}

	return Change{
		ContentKey:   string(e.Key),
		Kind:         e.Kind,
		ContentHTML:  contentHTML,
		ContentJSON:  raw,
		PagePath:     pagePath,
		SectionName:  sectionName,
		LastEditedBy: string(editedBy),
		UpdatedAt:    e.UpdatedAt,
	}
}

// Entry converts a stored change back into an override entry. Malformed
// stored JSON degrades to an empty value of the declared kind.
func (c Change) Entry() model.OverrideEntry {
	e := model.OverrideEntry{
		Key:       model.ContentKey(c.ContentKey),
		Kind:      c.Kind,
		UpdatedAt: c.UpdatedAt,
		EditedBy:  model.UserID(c.LastEditedBy),
	}
	if c.Kind == model.KindContentBlocks {
		_ = json.Unmarshal(c.ContentJSON, &e.Blocks)
	} else {
		_ = json.Unmarshal(c.ContentJSON, &e.Text)
	}
	return e
}

// Adapter is the cross-device draft surface. GetChanges never fails: any
// storage or network trouble degrades to an empty draft so the merge
// resolver can fall back to the next layer. SaveChange is an idempotent
// upsert keyed by (project, content key): repeating an identical call leaves
// exactly one entry.
type Adapter interface {
	GetChanges(ctx context.Context, projectID model.ProjectID) *model.ProjectDraft

	// Changes returns the raw wire records for a project, newest-edit last.
	Changes(ctx context.Context, projectID model.ProjectID) []Change

	SaveChange(ctx context.Context, projectID model.ProjectID, change Change) error

	// Clear drops every draft entry for the project.
	Clear(ctx context.Context, projectID model.ProjectID) error
}

var remoteLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	remoteLogger = l
}
