package event_bus

import "time"

const (
	WorkspaceSavedType  EventType = "workspace.saved"
	PresetSavedType     EventType = "workspace.preset.saved"
	PresetDeletedType   EventType = "workspace.preset.deleted"
	AgendaRefreshedType EventType = "agenda.refreshed"
)

type WorkspaceSaved struct {
	WorkspaceId string
	Revision    int64
}

type PresetSaved struct {
	WorkspaceId string
	Name        string
	SavedAt     time.Time
}

type PresetDeleted struct {
	WorkspaceId string
	Name        string
}

// AgendaRefreshed summarises today's agenda after a scheduled refresh.
type AgendaRefreshed struct {
	WorkspaceId string
	// Date is today's date formatted as YYYY-MM-DD.
	Date     string
	Running  int
	Upcoming int
	Overdue  int
}
