package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/db"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

// DraftStore implements Adapter against the service's own drafts table.
type DraftStore struct {
	db db.DB
}

func NewDraftStore(database db.DB) *DraftStore {
	return &DraftStore{db: database}
}

func (s *DraftStore) Changes(ctx context.Context, projectID model.ProjectID) []Change {
	rows, err := s.db.Query(
		`SELECT content_key, kind, content_html, content_json, page_path, section_name, last_edited_by, updated_at
		 FROM drafts WHERE project_id = ? ORDER BY updated_at ASC`,
		string(projectID),
	)
	if err != nil {
		remoteLogger.Error().Err(err).Str("project_id", string(projectID)).Msg("Error querying draft changes")
		return nil
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		var rawJSON string
		var updatedAt time.Time
		err := rows.Scan(&c.ContentKey, &c.Kind, &c.ContentHTML, &rawJSON, &c.PagePath, &c.SectionName, &c.LastEditedBy, &updatedAt)
		if err != nil {
			remoteLogger.Error().Err(err).Str("project_id", string(projectID)).Msg("Error scanning draft change")
			return nil
		}
		c.ContentJSON = []byte(rawJSON)
		c.UpdatedAt = updatedAt
		changes = append(changes, c)
	}
	return changes
}

func (s *DraftStore) GetChanges(ctx context.Context, projectID model.ProjectID) *model.ProjectDraft {
	draft := model.NewProjectDraft()
	for _, c := range s.Changes(ctx, projectID) {
		draft.Apply(c.Entry())
	}
	return draft
}

func (s *DraftStore) SaveChange(ctx context.Context, projectID model.ProjectID, c Change) error {
	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO drafts (project_id, content_key, kind, content_html, content_json, page_path, section_name, last_edited_by, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, content_key) DO UPDATE SET
		     kind = excluded.kind,
		     content_html = excluded.content_html,
		     content_json = excluded.content_json,
		     page_path = excluded.page_path,
		     section_name = excluded.section_name,
		     last_edited_by = excluded.last_edited_by,
		     updated_at = excluded.updated_at`,
		string(projectID), c.ContentKey, string(c.Kind), c.ContentHTML, string(c.ContentJSON),
		c.PagePath, c.SectionName, c.LastEditedBy, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving draft change %s/%s: %w", projectID, c.ContentKey, err)
	}
	return nil
}

func (s *DraftStore) Clear(ctx context.Context, projectID model.ProjectID) error {
	_, err := s.db.Exec(`DELETE FROM drafts WHERE project_id = ?`, string(projectID))
	if err != nil {
		return fmt.Errorf("error clearing draft for %s: %w", projectID, err)
	}
	return nil
}
