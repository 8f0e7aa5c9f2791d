package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/planboard/planboard/internal/event_bus"
	"github.com/planboard/planboard/internal/utils"
	log "github.com/sirupsen/logrus"
)

var (
	ErrStaleRevision     = errors.New("workspace was saved with a newer revision")
	ErrInvalidPresetName = errors.New("preset name must not be empty")
)

var emptySnapshot = []byte("{}")

type Service interface {
	// Load decodes the current snapshot. A workspace that was never saved
	// loads as empty.
	Load(ctx context.Context) (Snapshot, error)
	LoadDocument(ctx context.Context) (Document, error)
	// Save stores data as the next revision of the workspace.
	Save(ctx context.Context, data []byte) (Document, error)
	SavePreset(ctx context.Context, name string) (Preset, error)
	ApplyPreset(ctx context.Context, name string) (Document, error)
	ListPresets(ctx context.Context) ([]Preset, error)
	DeletePreset(ctx context.Context, name string) (bool, error)
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
	clock    utils.Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(repo Repository, eventBus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		eventBus: eventBus,
		clock:    clock,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lock serialises writes to one workspace.
func (s *ServiceImpl) lock(workspaceId string) func() {
	s.mu.Lock()
	l, ok := s.locks[workspaceId]
	if !ok {
		l = &sync.Mutex{}
		s.locks[workspaceId] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *ServiceImpl) Load(ctx context.Context) (Snapshot, error) {
	doc, err := s.LoadDocument(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot, err := Decode(doc.Data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("workspace %s revision %d: %w", doc.WorkspaceId, doc.Revision, err)
	}
	return snapshot, nil
}

func (s *ServiceImpl) LoadDocument(ctx context.Context) (Document, error) {
	workspaceId, err := CurrentId(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("failed to get current workspace: %w", err)
	}
	doc, err := s.repo.GetSnapshot(ctx, workspaceId)
	if errors.Is(err, ErrNotFound) {
		log.Debugf("workspace %s has no snapshot yet", workspaceId)
		return Document{WorkspaceId: workspaceId, Data: emptySnapshot}, nil
	}
	return doc, err
}

func (s *ServiceImpl) Save(ctx context.Context, data []byte) (Document, error) {
	workspaceId, err := CurrentId(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("failed to get current workspace: %w", err)
	}
	if err := validateObject(data); err != nil {
		return Document{}, err
	}

	unlock := s.lock(workspaceId)
	defer unlock()

	var revision int64
	current, err := s.repo.GetSnapshot(ctx, workspaceId)
	switch {
	case err == nil:
		revision = current.Revision
	case errors.Is(err, ErrNotFound):
	default:
		return Document{}, err
	}

	doc := Document{
		WorkspaceId: workspaceId,
		Revision:    revision + 1,
		Data:        bytes.Clone(data),
		UpdatedAt:   s.clock.Now().UTC(),
	}
	saved, err := s.repo.SaveSnapshot(ctx, doc)
	if err != nil {
		return Document{}, err
	}
	if !saved {
		return Document{}, fmt.Errorf("workspace %s revision %d: %w", workspaceId, doc.Revision, ErrStaleRevision)
	}
	log.Debugf("workspace %s saved at revision %d", workspaceId, doc.Revision)

	// The snapshot is already stored; a failing subscriber only means stale derived state.
	err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.WorkspaceSavedType, event_bus.WorkspaceSaved{
		WorkspaceId: workspaceId,
		Revision:    doc.Revision,
	}))
	if err != nil {
		log.Errorf("failed to publish workspace saved event: %v", err)
	}
	return doc, nil
}

func (s *ServiceImpl) SavePreset(ctx context.Context, name string) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, ErrInvalidPresetName
	}
	doc, err := s.LoadDocument(ctx)
	if err != nil {
		return Preset{}, err
	}

	preset := Preset{
		Name:    name,
		SavedAt: s.clock.Now().UTC(),
		Data:    doc.Data,
	}
	if err := s.repo.SavePreset(ctx, doc.WorkspaceId, preset); err != nil {
		return Preset{}, err
	}

	err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.PresetSavedType, event_bus.PresetSaved{
		WorkspaceId: doc.WorkspaceId,
		Name:        preset.Name,
		SavedAt:     preset.SavedAt,
	}))
	if err != nil {
		log.Errorf("failed to publish preset saved event: %v", err)
	}
	return preset, nil
}

// ApplyPreset saves the preset's snapshot as the next revision of the workspace.
func (s *ServiceImpl) ApplyPreset(ctx context.Context, name string) (Document, error) {
	workspaceId, err := CurrentId(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("failed to get current workspace: %w", err)
	}
	preset, err := s.repo.GetPreset(ctx, workspaceId, strings.TrimSpace(name))
	if err != nil {
		return Document{}, fmt.Errorf("preset %q: %w", name, err)
	}
	return s.Save(ctx, preset.Data)
}

func (s *ServiceImpl) ListPresets(ctx context.Context) ([]Preset, error) {
	workspaceId, err := CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current workspace: %w", err)
	}
	return s.repo.ListPresets(ctx, workspaceId)
}

func (s *ServiceImpl) DeletePreset(ctx context.Context, name string) (bool, error) {
	workspaceId, err := CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current workspace: %w", err)
	}
	name = strings.TrimSpace(name)
	deleted, err := s.repo.DeletePreset(ctx, workspaceId, name)
	if err != nil || !deleted {
		return deleted, err
	}

	err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.PresetDeletedType, event_bus.PresetDeleted{
		WorkspaceId: workspaceId,
		Name:        name,
	}))
	if err != nil {
		log.Errorf("failed to publish preset deleted event: %v", err)
	}
	return true, nil
}

// validateObject accepts any JSON object; record-level problems are left to Decode.
func validateObject(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrInvalidSnapshot
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &object); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return nil
}
