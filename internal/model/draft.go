package model

import "time"

// ProjectDraft aggregates every override for one project scope. Image
// replacements are keyed by the original asset src, not by ContentKey, so
// consumers can look up a replacement from the src they already render.
type ProjectDraft struct {
	TextContent       map[ContentKey]string         `json:"textContent"`
	ImageReplacements map[string]string             `json:"imageReplacements"`
	ContentBlocks     map[ContentKey][]ContentBlock `json:"contentBlocks"`
}

func NewProjectDraft() *ProjectDraft {
	return &ProjectDraft{
		TextContent:       make(map[ContentKey]string),
		ImageReplacements: make(map[string]string),
		ContentBlocks:     make(map[ContentKey][]ContentBlock),
	}
}

func (d *ProjectDraft) IsEmpty() bool {
	return len(d.TextContent) == 0 && len(d.ImageReplacements) == 0 && len(d.ContentBlocks) == 0
}

// Apply routes an entry into the draft by kind. Text and caption values
// share the text map; the caption kind exists so adapters can persist into
// the right storage namespace.
func (d *ProjectDraft) Apply(e OverrideEntry) {
	switch e.Kind {
	case KindImage:
		d.ImageReplacements[string(e.Key)] = e.Text
	case KindContentBlocks:
		d.ContentBlocks[e.Key] = e.Blocks
	default:
		d.TextContent[e.Key] = e.Text
	}
}

// Lookup returns the draft value for key, checking the text map first and
// falling back to image replacements and block sequences.
func (d *ProjectDraft) Lookup(key ContentKey) (any, bool) {
	if v, ok := d.TextContent[key]; ok {
		return v, true
	}
	if v, ok := d.ImageReplacements[string(key)]; ok {
		return v, true
	}
	if v, ok := d.ContentBlocks[key]; ok {
		return v, true
	}
	return nil, false
}

// Entries flattens the draft back into override entries. Kind information
// for text vs caption is not recoverable from the aggregate; everything in
// the text map comes back as KindText.
func (d *ProjectDraft) Entries() []OverrideEntry {
	entries := make([]OverrideEntry, 0, len(d.TextContent)+len(d.ImageReplacements)+len(d.ContentBlocks))
	for k, v := range d.TextContent {
		entries = append(entries, OverrideEntry{Key: k, Kind: KindText, Text: v})
	}
	for k, v := range d.ImageReplacements {
		entries = append(entries, OverrideEntry{Key: ContentKey(k), Kind: KindImage, Text: v})
	}
	for k, v := range d.ContentBlocks {
		entries = append(entries, OverrideEntry{Key: k, Kind: KindContentBlocks, Blocks: v})
	}
	return entries
}

// PublishedSnapshot is the immutable, live-serving copy of a draft at the
// moment of publishing. Subsequent edits mutate only the draft; the next
// publish supersedes (never merges into) this snapshot.
type PublishedSnapshot struct {
	ID          string       `json:"id"`
	ProjectID   ProjectID    `json:"projectId"`
	Draft       ProjectDraft `json:"draft"`
	ContentHash string       `json:"contentHash"`
	PublishedAt time.Time    `json:"publishedAt"`
}
