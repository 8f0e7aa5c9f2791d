package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/planboard/planboard/internal/config"
	"github.com/planboard/planboard/internal/event_bus"
	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/ics"
	"github.com/planboard/planboard/pkg/workspace"
	log "github.com/sirupsen/logrus"
)

const DefaultConfigPath = "./config/application.yaml"

// Application wires configuration, storage and the refresh loop.
type Application struct {
	cfg  config.Application
	deps *Dependencies
}

// NewApplication loads the configuration at configPath and builds the application.
func NewApplication(ctx context.Context, configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, utils.SystemClock{})
}

func New(ctx context.Context, cfg config.Application, clock utils.Clock) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	deps, err := BuildDependencies(ctx, cfg, clock)
	if err != nil {
		return nil, err
	}

	event_bus.SubscribeTyped(deps.EventBus, event_bus.AgendaRefreshedType, func(e event_bus.EventT[event_bus.AgendaRefreshed]) error {
		log.Infof("Agenda %s: %d running, %d upcoming, %d overdue tasks",
			e.Data.Date, e.Data.Running, e.Data.Upcoming, e.Data.Overdue)
		return nil
	})
	event_bus.SubscribeTyped(deps.EventBus, event_bus.WorkspaceSavedType, func(e event_bus.EventT[event_bus.WorkspaceSaved]) error {
		log.Infof("Workspace %s saved at revision %d", e.Data.WorkspaceId, e.Data.Revision)
		return nil
	})

	return &Application{cfg: cfg, deps: deps}, nil
}

func (a *Application) Dependencies() *Dependencies {
	return a.deps
}

// Run imports the configured calendar, refreshes once and then keeps
// refreshing on schedule until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	defer a.deps.Close()

	wsCtx := workspace.WithWorkspace(ctx, a.cfg.Workspace)
	if a.cfg.Import.IcsPath != "" {
		if err := a.importCalendar(wsCtx); err != nil {
			return err
		}
	}

	if _, err := a.deps.Scheduler.RunOnce(ctx); err != nil {
		log.Errorf("initial refresh failed: %v", err)
	}
	if err := a.deps.Scheduler.Start(ctx); err != nil {
		return err
	}
	log.Infof("Serving workspace %s", a.cfg.Workspace)

	<-ctx.Done()
	log.Info("Shutting down")

	stopped := a.deps.Scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(10 * time.Second):
		log.Warn("refresh did not finish before shutdown")
	}
	return nil
}

func (a *Application) importCalendar(ctx context.Context) error {
	body, err := os.ReadFile(a.cfg.Import.IcsPath)
	if err != nil {
		return fmt.Errorf("failed to read calendar %s: %w", a.cfg.Import.IcsPath, err)
	}
	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	if _, _, err := ics.ImportInto(ctx, a.deps.WorkspaceService, body, loc); err != nil {
		return fmt.Errorf("failed to import calendar %s: %w", a.cfg.Import.IcsPath, err)
	}
	return nil
}
