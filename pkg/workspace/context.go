package workspace

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const WorkspaceKey contextKey = "workspace"

var ErrNoWorkspace = errors.New("workspace not set in context")

// CurrentId retrieves the workspace id from the context. Returns ErrNoWorkspace if not present.
func CurrentId(ctx context.Context) (string, error) {
	id, ok := ctx.Value(WorkspaceKey).(string)
	if !ok || id == "" {
		log.Trace("workspace not found in context")
		return "", ErrNoWorkspace
	}
	return id, nil
}

func WithWorkspace(ctx context.Context, workspaceId string) context.Context {
	return context.WithValue(ctx, WorkspaceKey, workspaceId)
}
