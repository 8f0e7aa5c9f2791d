package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

const (
	sqliteSelectSnapshotQuery = `SELECT revision, data, updated_at FROM workspace_snapshot WHERE workspace_id = ?`
	sqliteUpsertSnapshotQuery = `INSERT INTO workspace_snapshot (workspace_id, revision, data, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (workspace_id) DO UPDATE
				SET revision = excluded.revision, data = excluded.data, updated_at = excluded.updated_at
				WHERE workspace_snapshot.revision < excluded.revision`
	sqliteSelectPresetQuery = `SELECT name, data, saved_at FROM workspace_preset WHERE workspace_id = ? AND name = ?`
	sqliteListPresetsQuery  = `SELECT name, data, saved_at FROM workspace_preset WHERE workspace_id = ? ORDER BY name`
	sqliteUpsertPresetQuery = `INSERT INTO workspace_preset (workspace_id, name, data, saved_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (workspace_id, name) DO UPDATE
				SET data = excluded.data, saved_at = excluded.saved_at`
	sqliteDeletePresetQuery = `DELETE FROM workspace_preset WHERE workspace_id = ? AND name = ?`
)

// SQLiteRepository stores workspaces in a local SQLite file. It is the default
// store of a single-user installation.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, workspaceId string) (Document, error) {
	doc := Document{WorkspaceId: workspaceId}
	var data string
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, sqliteSelectSnapshotQuery, workspaceId).Scan(&doc.Revision, &data, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		err := fmt.Errorf("could not query snapshot: %w", err)
		log.Error(err)
		return Document{}, err
	}
	doc.Data = []byte(data)
	doc.UpdatedAt = fromMillis(updatedAt)
	return doc, nil
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, doc Document) (bool, error) {
	result, err := r.db.ExecContext(ctx, sqliteUpsertSnapshotQuery,
		doc.WorkspaceId,
		doc.Revision,
		string(doc.Data),
		doc.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		err := fmt.Errorf("could not save snapshot: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *SQLiteRepository) GetPreset(ctx context.Context, workspaceId string, name string) (Preset, error) {
	var preset Preset
	var data string
	var savedAt int64
	err := r.db.QueryRowContext(ctx, sqliteSelectPresetQuery, workspaceId, name).Scan(&preset.Name, &data, &savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Preset{}, ErrNotFound
		}
		err := fmt.Errorf("could not query preset: %w", err)
		log.Error(err)
		return Preset{}, err
	}
	preset.Data = []byte(data)
	preset.SavedAt = fromMillis(savedAt)
	return preset, nil
}

func (r *SQLiteRepository) ListPresets(ctx context.Context, workspaceId string) ([]Preset, error) {
	rows, err := r.db.QueryContext(ctx, sqliteListPresetsQuery, workspaceId)
	if err != nil {
		err := fmt.Errorf("could not query presets: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	presets := make([]Preset, 0)
	for rows.Next() {
		var preset Preset
		var data string
		var savedAt int64
		if err := rows.Scan(&preset.Name, &data, &savedAt); err != nil {
			err := fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return nil, err
		}
		preset.Data = []byte(data)
		preset.SavedAt = fromMillis(savedAt)
		presets = append(presets, preset)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return presets, nil
}

func (r *SQLiteRepository) SavePreset(ctx context.Context, workspaceId string, preset Preset) error {
	_, err := r.db.ExecContext(ctx, sqliteUpsertPresetQuery, workspaceId, preset.Name, string(preset.Data), preset.SavedAt.UnixMilli())
	if err != nil {
		err := fmt.Errorf("could not save preset: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *SQLiteRepository) DeletePreset(ctx context.Context, workspaceId string, name string) (bool, error) {
	result, err := r.db.ExecContext(ctx, sqliteDeletePresetQuery, workspaceId, name)
	if err != nil {
		err := fmt.Errorf("could not delete preset: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not read affected rows: %w", err)
	}
	return affected > 0, nil
}
