package ics

import (
	"context"
	"fmt"
	"time"

	"github.com/planboard/planboard/pkg/workspace"
	log "github.com/sirupsen/logrus"
)

// ImportInto reads body as a calendar and merges its events into the current
// workspace as a new revision. Events with an id already in the workspace are
// replaced. It returns the saved document and the number of imported events.
func ImportInto(ctx context.Context, workspaces workspace.Service, body []byte, loc *time.Location) (workspace.Document, int, error) {
	events, err := Import(body, loc)
	if err != nil {
		return workspace.Document{}, 0, err
	}

	current, err := workspaces.LoadDocument(ctx)
	if err != nil {
		return workspace.Document{}, 0, fmt.Errorf("failed to load workspace: %w", err)
	}
	merged, err := workspace.MergeEvents(current.Data, events)
	if err != nil {
		return workspace.Document{}, 0, fmt.Errorf("failed to merge imported events: %w", err)
	}
	saved, err := workspaces.Save(ctx, merged)
	if err != nil {
		return workspace.Document{}, 0, err
	}
	log.Infof("Imported %d calendar events into workspace %s (revision %d)", len(events), saved.WorkspaceId, saved.Revision)
	return saved, len(events), nil
}
