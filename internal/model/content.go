// Package model defines core data structures and types for the content service.
package model

import (
	"fmt"
	"time"
)

// ProjectID identifies one project scope (a case study, a page, ...).
type ProjectID string

// ContentKey identifies one editable content unit within a project scope,
// e.g. "hero_title_p1" or "img_caption_/images/desk.png". Collisions within
// a project silently overwrite.
type ContentKey string

type UserID string

// AnonymousUser is stamped on edits made without an authenticated session.
const AnonymousUser UserID = "anonymous"

// Kind describes the shape of an override value.
type Kind string

const (
	KindText          Kind = "text"
	KindImage         Kind = "image"
	KindContentBlocks Kind = "contentBlocks"
	KindCaption       Kind = "caption"
)

// Kinds lists every valid content kind, in declaration order.
func Kinds() []Kind {
	return []Kind{KindText, KindImage, KindContentBlocks, KindCaption}
}

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindContentBlocks, KindCaption:
		return true
	}
	return false
}

// OverrideEntry is a user-supplied replacement for a static default value.
// Text, Image and Caption kinds carry their value in Text; ContentBlocks
// carries it in Blocks. Validate enforces that the populated field matches
// the declared kind.
type OverrideEntry struct {
	Key    ContentKey     `json:"key"`
	Kind   Kind           `json:"kind"`
	Text   string         `json:"text,omitempty"`
	Blocks []ContentBlock `json:"blocks,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
	EditedBy  UserID    `json:"editedBy"`
}

func (e OverrideEntry) Validate() error {
	if e.Key == "" {
		return fmt.Errorf("override entry: empty content key")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("override entry %s: unknown kind %q", e.Key, e.Kind)
	}
	switch e.Kind {
	case KindContentBlocks:
		if e.Text != "" {
			return fmt.Errorf("override entry %s: kind %s must not carry text", e.Key, e.Kind)
		}
		for i, b := range e.Blocks {
			if err := b.Validate(); err != nil {
				return fmt.Errorf("override entry %s: block %d: %w", e.Key, i, err)
			}
		}
	default:
		if e.Blocks != nil {
			return fmt.Errorf("override entry %s: kind %s must not carry blocks", e.Key, e.Kind)
		}
	}
	return nil
}

// Value returns the entry's payload as the shape declared by its kind.
func (e OverrideEntry) Value() any {
	if e.Kind == KindContentBlocks {
		return e.Blocks
	}
	return e.Text
}
