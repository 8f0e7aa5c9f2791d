package dashboard

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/planboard/planboard/internal/event_bus"
	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/agenda"
	"github.com/planboard/planboard/pkg/workspace"
	log "github.com/sirupsen/logrus"
)

// Service answers the questions the presentation layer asks about the
// current workspace. All answers are computed at the clock's current instant
// in the configured location.
type Service interface {
	Now() time.Time
	Day(ctx context.Context, date utils.Date) (agenda.DayAgenda, error)
	Today(ctx context.Context) (agenda.DayAgenda, error)
	Tomorrow(ctx context.Context) (agenda.DayAgenda, error)
	Week(ctx context.Context, date utils.Date) ([]agenda.DayAgenda, error)
	Tasks(ctx context.Context, fullList bool) ([]agenda.TaskEntry, error)
	Highlights(ctx context.Context) ([]agenda.Highlight, error)
	// Rejected lists stored records that failed validation.
	Rejected(ctx context.Context) ([]workspace.RejectedRecord, error)
}

type Options struct {
	Location      *time.Location
	FirstDay      time.Weekday
	HighlightDays int
}

type cachedSnapshot struct {
	revision int64
	snapshot workspace.Snapshot
}

type ServiceImpl struct {
	workspaces workspace.Service
	clock      utils.Clock
	opts       Options

	mu     sync.RWMutex
	cache  map[string]cachedSnapshot
	latest map[string]int64
}

func NewService(workspaces workspace.Service, eventBus *event_bus.EventBus, clock utils.Clock, opts Options) *ServiceImpl {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	s := &ServiceImpl{
		workspaces: workspaces,
		clock:      clock,
		opts:       opts,
		cache:      make(map[string]cachedSnapshot),
		latest:     make(map[string]int64),
	}

	event_bus.SubscribeTyped[event_bus.WorkspaceSaved](
		eventBus,
		event_bus.WorkspaceSavedType,
		func(e event_bus.EventT[event_bus.WorkspaceSaved]) error {
			s.invalidate(e.Data.WorkspaceId, e.Data.Revision)
			return nil
		},
	)
	return s
}

func (s *ServiceImpl) Now() time.Time {
	return s.clock.Now().In(s.opts.Location)
}

func (s *ServiceImpl) Day(ctx context.Context, date utils.Date) (agenda.DayAgenda, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return agenda.DayAgenda{}, err
	}
	return agenda.Day(snapshot.Events, date, s.Now()), nil
}

func (s *ServiceImpl) Today(ctx context.Context) (agenda.DayAgenda, error) {
	return s.Day(ctx, utils.DateOf(s.Now()))
}

func (s *ServiceImpl) Tomorrow(ctx context.Context) (agenda.DayAgenda, error) {
	return s.Day(ctx, utils.DateOf(s.Now()).AddDays(1))
}

func (s *ServiceImpl) Week(ctx context.Context, date utils.Date) ([]agenda.DayAgenda, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return agenda.Week(snapshot.Events, date, s.opts.FirstDay, s.Now())
}

func (s *ServiceImpl) Tasks(ctx context.Context, fullList bool) ([]agenda.TaskEntry, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return agenda.TaskQueue(snapshot.Todos, s.Now(), fullList), nil
}

func (s *ServiceImpl) Highlights(ctx context.Context) ([]agenda.Highlight, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return agenda.Highlights(snapshot.Events, snapshot.Todos, s.Now(), s.opts.HighlightDays)
}

func (s *ServiceImpl) Rejected(ctx context.Context) ([]workspace.RejectedRecord, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snapshot.Rejected), nil
}

// snapshot returns the decoded workspace, loading it on a cache miss.
func (s *ServiceImpl) snapshot(ctx context.Context) (workspace.Snapshot, error) {
	workspaceId, err := workspace.CurrentId(ctx)
	if err != nil {
		return workspace.Snapshot{}, fmt.Errorf("failed to get current workspace: %w", err)
	}

	s.mu.RLock()
	cached, ok := s.cache[workspaceId]
	s.mu.RUnlock()
	if ok {
		return cached.snapshot, nil
	}

	doc, err := s.workspaces.LoadDocument(ctx)
	if err != nil {
		return workspace.Snapshot{}, err
	}
	snapshot, err := workspace.Decode(doc.Data)
	if err != nil {
		return workspace.Snapshot{}, fmt.Errorf("workspace %s revision %d: %w", workspaceId, doc.Revision, err)
	}

	s.mu.Lock()
	// a save that landed while we were loading must win
	if doc.Revision >= s.latest[workspaceId] {
		s.cache[workspaceId] = cachedSnapshot{revision: doc.Revision, snapshot: snapshot}
	}
	s.mu.Unlock()
	log.Debugf("loaded workspace %s revision %d (%d events, %d tasks, %d rejected)",
		workspaceId, doc.Revision, len(snapshot.Events), len(snapshot.Todos), len(snapshot.Rejected))
	return snapshot, nil
}

func (s *ServiceImpl) invalidate(workspaceId string, revision int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revision > s.latest[workspaceId] {
		s.latest[workspaceId] = revision
	}
	if cached, ok := s.cache[workspaceId]; ok && cached.revision < revision {
		delete(s.cache, workspaceId)
	}
}
