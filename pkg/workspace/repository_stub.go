package workspace

import (
	"context"
	"slices"
	"strings"
	"sync"
)

type RepositoryStub struct {
	mu        sync.Mutex
	snapshots map[string]Document
	presets   map[string]map[string]Preset
	// SaveErr, when set, is returned by every write.
	SaveErr error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		snapshots: make(map[string]Document),
		presets:   make(map[string]map[string]Preset),
	}
}

func (s *RepositoryStub) GetSnapshot(ctx context.Context, workspaceId string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.snapshots[workspaceId]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Data = slices.Clone(doc.Data)
	return doc, nil
}

func (s *RepositoryStub) SaveSnapshot(ctx context.Context, doc Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return false, s.SaveErr
	}
	if stored, ok := s.snapshots[doc.WorkspaceId]; ok && stored.Revision >= doc.Revision {
		return false, nil
	}
	doc.Data = slices.Clone(doc.Data)
	s.snapshots[doc.WorkspaceId] = doc
	return true, nil
}

func (s *RepositoryStub) GetPreset(ctx context.Context, workspaceId string, name string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	preset, ok := s.presets[workspaceId][name]
	if !ok {
		return Preset{}, ErrNotFound
	}
	return preset, nil
}

func (s *RepositoryStub) ListPresets(ctx context.Context, workspaceId string) ([]Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	presets := make([]Preset, 0, len(s.presets[workspaceId]))
	for _, preset := range s.presets[workspaceId] {
		presets = append(presets, preset)
	}
	slices.SortFunc(presets, func(a, b Preset) int {
		return strings.Compare(a.Name, b.Name)
	})
	return presets, nil
}

func (s *RepositoryStub) SavePreset(ctx context.Context, workspaceId string, preset Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	if s.presets[workspaceId] == nil {
		s.presets[workspaceId] = make(map[string]Preset)
	}
	preset.Data = slices.Clone(preset.Data)
	s.presets[workspaceId][preset.Name] = preset
	return nil
}

func (s *RepositoryStub) DeletePreset(ctx context.Context, workspaceId string, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.presets[workspaceId][name]; !ok {
		return false, nil
	}
	delete(s.presets[workspaceId], name)
	return true, nil
}
