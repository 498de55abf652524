// Package localcache is the on-device persistence adapter. It mirrors the
// override store into a local SQLite key/value table so edits survive a
// reload even when the remote backend is unreachable. Values are
// JSON-serialized maps stored under keys following the `{namespace}_{projectID}`
// pattern the frontend uses for its own device storage.
package localcache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/db"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

// kvNamespace partitions device-cache rows from any other kv user sharing
// the database file.
const kvNamespace = "device_cache"

// Storage namespaces, one per content kind plus the AI-caption overlay.
const (
	NSTextContent       = "text_content"
	NSImageReplacements = "image_replacements"
	NSContentBlocks     = "content_blocks"
	NSImageCaptions     = "image_captions"
	NSAICaptions        = "ai_captions"
)

func namespaces() []string {
	return []string{NSTextContent, NSImageReplacements, NSContentBlocks, NSImageCaptions, NSAICaptions}
}

// ForKind maps a content kind to its storage namespace.
func ForKind(kind model.Kind) string {
	switch kind {
	case model.KindImage:
		return NSImageReplacements
	case model.KindContentBlocks:
		return NSContentBlocks
	case model.KindCaption:
		return NSImageCaptions
	default:
		return NSTextContent
	}
}

// StorageKey builds the deterministic namespaced key for one project's data
// of one namespace, e.g. "image_captions_p1".
func StorageKey(ns string, projectID model.ProjectID) string {
	return fmt.Sprintf("%s_%s", ns, projectID)
}

type Store struct {
	db  db.DB
	log zerolog.Logger

	// mu serializes the load-mutate-save cycle of the per-entry writers.
	// Each namespace persists as one JSON map row, so two unserialized
	// writers touching different keys would overwrite each other's row.
	mu sync.Mutex
}

func New(database db.DB, log zerolog.Logger) *Store {
	return &Store{db: database, log: log}
}

// Save serializes data and persists it under the namespaced key. Storage
// failures are the caller's to swallow; read paths never see them.
func (s *Store) Save(projectID model.ProjectID, ns string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("local cache: marshal %s: %w", ns, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		kvNamespace, StorageKey(ns, projectID), string(raw),
	)
	if err != nil {
		return fmt.Errorf("local cache: save %s: %w", StorageKey(ns, projectID), err)
	}
	return nil
}

// Load deserializes the stored value for the namespaced key into dest.
// Absent or malformed data leaves dest untouched and returns nil: a corrupt
// cache entry is treated as absent, never as a failure.
func (s *Store) Load(projectID model.ProjectID, ns string, dest any) error {
	var raw string
	row := s.db.Get().QueryRow(
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		kvNamespace, StorageKey(ns, projectID),
	)
	if err := row.Scan(&raw); err != nil {
		if err != sql.ErrNoRows {
			s.log.Warn().Err(err).Str("key", StorageKey(ns, projectID)).Msg("Device cache read failed, treating as absent")
		}
		return nil
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.log.Warn().Err(err).Str("key", StorageKey(ns, projectID)).Msg("Malformed device cache entry, treating as absent")
		return nil
	}
	return nil
}

// Clear removes every namespaced key for the project. Keys are deleted by
// exact match per namespace so another project's data is never touched, no
// matter what characters its ID contains.
func (s *Store) Clear(projectID model.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ns := range namespaces() {
		_, err := s.db.Exec(
			`DELETE FROM kv WHERE namespace = ? AND key = ?`,
			kvNamespace, StorageKey(ns, projectID),
		)
		if err != nil {
			return fmt.Errorf("local cache: clear %s: %w", StorageKey(ns, projectID), err)
		}
	}
	return nil
}

// SaveEntry routes one override entry into its namespace map, preserving
// the other entries already stored there.
func (s *Store) SaveEntry(projectID model.ProjectID, e model.OverrideEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := ForKind(e.Kind)
	switch e.Kind {
	case model.KindContentBlocks:
		blocks := make(map[model.ContentKey][]model.ContentBlock)
		if err := s.Load(projectID, ns, &blocks); err != nil {
			return err
		}
		blocks[e.Key] = e.Blocks
		return s.Save(projectID, ns, blocks)
	default:
		texts := make(map[model.ContentKey]string)
		if err := s.Load(projectID, ns, &texts); err != nil {
			return err
		}
		texts[e.Key] = e.Text
		return s.Save(projectID, ns, texts)
	}
}

// DeleteEntry removes one key from its namespace map, used when a failed
// remote write rolls a fresh entry back out of the cache.
func (s *Store) DeleteEntry(projectID model.ProjectID, kind model.Kind, key model.ContentKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := ForKind(kind)
	switch kind {
	case model.KindContentBlocks:
		blocks := make(map[model.ContentKey][]model.ContentBlock)
		if err := s.Load(projectID, ns, &blocks); err != nil {
			return err
		}
		delete(blocks, key)
		return s.Save(projectID, ns, blocks)
	default:
		texts := make(map[model.ContentKey]string)
		if err := s.Load(projectID, ns, &texts); err != nil {
			return err
		}
		delete(texts, key)
		return s.Save(projectID, ns, texts)
	}
}

// LoadDraft reassembles a project draft from every namespace. Captions load
// into the text map under their img_caption keys, matching how the merge
// resolver looks values up.
func (s *Store) LoadDraft(projectID model.ProjectID) (*model.ProjectDraft, error) {
	draft := model.NewProjectDraft()

	if err := s.Load(projectID, NSTextContent, &draft.TextContent); err != nil {
		return draft, err
	}
	if err := s.Load(projectID, NSImageReplacements, &draft.ImageReplacements); err != nil {
		return draft, err
	}
	if err := s.Load(projectID, NSContentBlocks, &draft.ContentBlocks); err != nil {
		return draft, err
	}

	captions := make(map[model.ContentKey]string)
	if err := s.Load(projectID, NSImageCaptions, &captions); err != nil {
		return draft, err
	}
	for k, v := range captions {
		if _, exists := draft.TextContent[k]; !exists {
			draft.TextContent[k] = v
		}
	}

	return draft, nil
}

// SaveDraft persists a whole draft, replacing the three core namespaces.
func (s *Store) SaveDraft(projectID model.ProjectID, draft *model.ProjectDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Save(projectID, NSTextContent, draft.TextContent); err != nil {
		return err
	}
	if err := s.Save(projectID, NSImageReplacements, draft.ImageReplacements); err != nil {
		return err
	}
	return s.Save(projectID, NSContentBlocks, draft.ContentBlocks)
}
