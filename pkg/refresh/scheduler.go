package refresh

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/planboard/planboard/internal/event_bus"
	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/agenda"
	"github.com/planboard/planboard/pkg/dashboard"
	"github.com/planboard/planboard/pkg/ics"
	"github.com/planboard/planboard/pkg/workspace"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const DefaultSchedule = "* * * * *"

type Options struct {
	// Schedule is a standard five field cron expression.
	Schedule    string
	WorkspaceId string
	Location    *time.Location
	// IcsPath, when set, receives a calendar export on every run.
	IcsPath string
}

// Scheduler periodically recomputes today's agenda so that time dependent
// state (running events, overdue tasks) is published without user input.
type Scheduler struct {
	dashboard  dashboard.Service
	workspaces workspace.Service
	eventBus   *event_bus.EventBus
	clock      utils.Clock
	opts       Options
	cron       *cron.Cron
}

func NewScheduler(
	dashboard dashboard.Service,
	workspaces workspace.Service,
	eventBus *event_bus.EventBus,
	clock utils.Clock,
	opts Options,
) (*Scheduler, error) {
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", opts.Schedule, err)
	}

	logger := cron.PrintfLogger(log.StandardLogger())
	return &Scheduler{
		dashboard:  dashboard,
		workspaces: workspaces,
		eventBus:   eventBus,
		clock:      clock,
		opts:       opts,
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}, nil
}

// RunOnce performs one refresh synchronously and returns the published summary.
func (s *Scheduler) RunOnce(ctx context.Context) (event_bus.AgendaRefreshed, error) {
	ctx = workspace.WithWorkspace(ctx, s.opts.WorkspaceId)

	today, err := s.dashboard.Today(ctx)
	if err != nil {
		return event_bus.AgendaRefreshed{}, fmt.Errorf("failed to compute today's agenda: %w", err)
	}
	tasks, err := s.dashboard.Tasks(ctx, false)
	if err != nil {
		return event_bus.AgendaRefreshed{}, fmt.Errorf("failed to compute task queue: %w", err)
	}

	summary := summarise(s.opts.WorkspaceId, today, tasks)
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.AgendaRefreshedType, summary)); err != nil {
		log.Errorf("failed to publish agenda refreshed event: %v", err)
	}

	if s.opts.IcsPath != "" {
		if err := s.exportCalendar(ctx); err != nil {
			return summary, err
		}
	}

	log.Debugf("refreshed %s: %d running, %d upcoming, %d overdue",
		summary.Date, summary.Running, summary.Upcoming, summary.Overdue)
	return summary, nil
}

// Start runs RunOnce on the schedule until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.opts.Schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Errorf("scheduled refresh failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	s.cron.Start()
	log.Infof("Refresh scheduled with %q", s.opts.Schedule)
	return nil
}

// Stop stops scheduling and returns a context that is done once a running refresh finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) exportCalendar(ctx context.Context) error {
	snapshot, err := s.workspaces.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workspace for export: %w", err)
	}
	body, err := ics.Export(snapshot.Events, s.opts.Location, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to export calendar: %w", err)
	}
	if err := writeFileAtomic(s.opts.IcsPath, []byte(body)); err != nil {
		return fmt.Errorf("failed to write calendar to %s: %w", s.opts.IcsPath, err)
	}
	return nil
}

func summarise(workspaceId string, today agenda.DayAgenda, tasks []agenda.TaskEntry) event_bus.AgendaRefreshed {
	summary := event_bus.AgendaRefreshed{
		WorkspaceId: workspaceId,
		Date:        today.Date.String(),
	}
	for _, entry := range today.Entries {
		switch entry.Status {
		case agenda.StatusRunning:
			summary.Running++
		case agenda.StatusUpcoming:
			summary.Upcoming++
		}
	}
	for _, task := range tasks {
		if task.Overdue {
			summary.Overdue++
		}
	}
	return summary
}

// writeFileAtomic replaces path so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
