package app

import (
	"context"
	"fmt"

	"github.com/planboard/planboard/internal/config"
	"github.com/planboard/planboard/internal/database"
	"github.com/planboard/planboard/internal/event_bus"
	"github.com/planboard/planboard/internal/utils"
	"github.com/planboard/planboard/pkg/dashboard"
	"github.com/planboard/planboard/pkg/refresh"
	"github.com/planboard/planboard/pkg/workspace"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services of the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	WorkspaceRepo    workspace.Repository
	WorkspaceService *workspace.ServiceImpl
	DashboardService *dashboard.ServiceImpl
	Scheduler        *refresh.Scheduler

	close func()
}

// Close releases the storage connection.
func (d *Dependencies) Close() {
	if d.close != nil {
		d.close()
	}
}

// BuildDependencies opens the configured storage and wires all services.
func BuildDependencies(ctx context.Context, cfg config.Application, clock utils.Clock) (*Dependencies, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	firstDay, err := cfg.FirstWeekday()
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Clock:    clock,
		EventBus: event_bus.NewEventBus(),
	}

	if err := deps.openRepository(ctx, cfg.Storage); err != nil {
		return nil, err
	}

	deps.WorkspaceService = workspace.NewService(deps.WorkspaceRepo, deps.EventBus, clock)
	deps.DashboardService = dashboard.NewService(deps.WorkspaceService, deps.EventBus, clock, dashboard.Options{
		Location:      loc,
		FirstDay:      firstDay,
		HighlightDays: cfg.HighlightDays,
	})

	deps.Scheduler, err = refresh.NewScheduler(deps.DashboardService, deps.WorkspaceService, deps.EventBus, clock, refresh.Options{
		Schedule:    cfg.Refresh.Cron,
		WorkspaceId: cfg.Workspace,
		Location:    loc,
		IcsPath:     cfg.Export.IcsPath,
	})
	if err != nil {
		deps.Close()
		return nil, err
	}

	return deps, nil
}

func (d *Dependencies) openRepository(ctx context.Context, storage config.Storage) error {
	switch storage.Driver {
	case config.DriverPostgres:
		if err := database.Migrate(storage.Database); err != nil {
			return err
		}
		pool, err := database.Open(ctx, storage.Database)
		if err != nil {
			return err
		}
		d.WorkspaceRepo = workspace.NewPostgresRepository(pool)
		d.close = pool.Close
		log.Infof("Using postgres storage at %s:%d", storage.Database.Host, storage.Database.Port)
	case config.DriverSQLite:
		db, err := database.OpenSQLite(storage.SQLitePath)
		if err != nil {
			return err
		}
		d.WorkspaceRepo = workspace.NewSQLiteRepository(db)
		d.close = func() {
			if err := db.Close(); err != nil {
				log.Warnf("failed to close sqlite database: %v", err)
			}
		}
		log.Infof("Using sqlite storage at %s", storage.SQLitePath)
	default:
		return fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalidConfig, storage.Driver)
	}
	return nil
}
