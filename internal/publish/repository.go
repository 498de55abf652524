// Package publish promotes draft state into immutable published snapshots.
package publish

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/db"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/util/compression"
)

// SnapshotRepository stores published snapshots. Save must be atomic: a
// snapshot is fully written or not written at all.
type SnapshotRepository interface {
	Save(ctx context.Context, snap *model.PublishedSnapshot) error
	Latest(ctx context.Context, projectID model.ProjectID) (*model.PublishedSnapshot, error)
}

// DBSnapshotRepository persists snapshots as zstd-compressed JSON blobs in
// the snapshots table. A single-row insert keeps the write atomic.
type DBSnapshotRepository struct {
	db         db.DB
	compressor compression.Compressor
	log        zerolog.Logger
}

func NewDBSnapshotRepository(database db.DB, log zerolog.Logger) *DBSnapshotRepository {
	return &DBSnapshotRepository{
		db:         database,
		compressor: compression.ZstdCompressor{},
		log:        log,
	}
}

func (r *DBSnapshotRepository) Save(ctx context.Context, snap *model.PublishedSnapshot) error {
	raw, err := json.Marshal(snap.Draft)
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}

	compressed, err := r.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("error compressing snapshot: %w", err)
	}

	res, err := r.db.Exec(
		`INSERT INTO snapshots (id, project_id, data, content_hash, published_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, string(snap.ProjectID), compressed, snap.ContentHash, snap.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving snapshot: %w", err)
	}

	r.log.Debug().Interface("result", res).Str("snapshot_id", snap.ID).Msg("Snapshot saved")
	return nil
}

// Latest returns the live snapshot for a project, or nil when the project
// has never been published. A corrupt stored blob is treated as absent.
func (r *DBSnapshotRepository) Latest(ctx context.Context, projectID model.ProjectID) (*model.PublishedSnapshot, error) {
	row := r.db.Get().QueryRow(
		`SELECT id, data, content_hash, published_at FROM snapshots
		 WHERE project_id = ? ORDER BY published_at DESC LIMIT 1`,
		string(projectID),
	)

	snap := &model.PublishedSnapshot{ProjectID: projectID}
	var compressed []byte
	err := row.Scan(&snap.ID, &compressed, &snap.ContentHash, &snap.PublishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}

	raw, err := r.compressor.Decompress(compressed)
	if err != nil {
		r.log.Warn().Err(err).Str("snapshot_id", snap.ID).Msg("Corrupt snapshot blob, treating as absent")
		return nil, nil
	}
	if err := json.Unmarshal(raw, &snap.Draft); err != nil {
		r.log.Warn().Err(err).Str("snapshot_id", snap.ID).Msg("Malformed snapshot JSON, treating as absent")
		return nil, nil
	}

	return snap, nil
}
