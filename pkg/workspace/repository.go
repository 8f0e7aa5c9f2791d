package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	// GetSnapshot returns ErrNotFound when the workspace was never saved.
	GetSnapshot(ctx context.Context, workspaceId string) (Document, error)
	// SaveSnapshot stores doc only when its revision is strictly greater than
	// the stored one. It reports whether the document was written.
	SaveSnapshot(ctx context.Context, doc Document) (bool, error)
	GetPreset(ctx context.Context, workspaceId string, name string) (Preset, error)
	// ListPresets orders presets by name.
	ListPresets(ctx context.Context, workspaceId string) ([]Preset, error)
	// SavePreset creates the preset or replaces the one with the same name.
	SavePreset(ctx context.Context, workspaceId string, preset Preset) error
	DeletePreset(ctx context.Context, workspaceId string, name string) (bool, error)
}

const (
	selectSnapshotQuery = `SELECT revision, data, updated_at FROM workspace_snapshot WHERE workspace_id = $1`
	upsertSnapshotQuery = `INSERT INTO workspace_snapshot (workspace_id, revision, data, updated_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (workspace_id) DO UPDATE
				SET revision = excluded.revision, data = excluded.data, updated_at = excluded.updated_at
				WHERE workspace_snapshot.revision < excluded.revision`
	selectPresetQuery = `SELECT name, data, saved_at FROM workspace_preset WHERE workspace_id = $1 AND name = $2`
	listPresetsQuery  = `SELECT name, data, saved_at FROM workspace_preset WHERE workspace_id = $1 ORDER BY name`
	upsertPresetQuery = `INSERT INTO workspace_preset (workspace_id, name, data, saved_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (workspace_id, name) DO UPDATE
				SET data = excluded.data, saved_at = excluded.saved_at`
	deletePresetQuery = `DELETE FROM workspace_preset WHERE workspace_id = $1 AND name = $2`
)

// PostgresRepository stores workspaces in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetSnapshot(ctx context.Context, workspaceId string) (Document, error) {
	doc := Document{WorkspaceId: workspaceId}
	var data string
	var updatedAt int64
	err := r.db.QueryRow(ctx, selectSnapshotQuery, workspaceId).Scan(&doc.Revision, &data, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

func (r *PostgresRepository) SaveSnapshot(ctx context.Context, doc Document) (bool, error) {
	tag, err := r.db.Exec(ctx, upsertSnapshotQuery,
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
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) GetPreset(ctx context.Context, workspaceId string, name string) (Preset, error) {
	var preset Preset
	var data string
	var savedAt int64
	err := r.db.QueryRow(ctx, selectPresetQuery, workspaceId, name).Scan(&preset.Name, &data, &savedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

func (r *PostgresRepository) ListPresets(ctx context.Context, workspaceId string) ([]Preset, error) {
	rows, err := r.db.Query(ctx, listPresetsQuery, workspaceId)
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

func (r *PostgresRepository) SavePreset(ctx context.Context, workspaceId string, preset Preset) error {
	_, err := r.db.Exec(ctx, upsertPresetQuery, workspaceId, preset.Name, string(preset.Data), preset.SavedAt.UnixMilli())
	if err != nil {
		err := fmt.Errorf("could not save preset: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *PostgresRepository) DeletePreset(ctx context.Context, workspaceId string, name string) (bool, error) {
	tag, err := r.db.Exec(ctx, deletePresetQuery, workspaceId, name)
	if err != nil {
		err := fmt.Errorf("could not delete preset: %w", err)
		log.Error(err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
