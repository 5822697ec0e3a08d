// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// ContactCreated is published when a tenant adds a new contact. The kanban
// module listens so that new contacts get a stage assignment immediately
// instead of waiting for the next board listing.
type ContactCreated struct {
	BaseEvent
	TenantID  uuid.UUID `json:"tenantId"`
	ContactID uuid.UUID `json:"contactId"`
}

func (e ContactCreated) EventName() string { return "contacts.created" }

// LeadStageChanged is published after a committed move between stages.
// The timeline entry is written inside the move transaction; this event is
// for observers only (logging, future SSE).
type LeadStageChanged struct {
	BaseEvent
	TenantID  uuid.UUID `json:"tenantId"`
	ContactID uuid.UUID `json:"contactId"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	Position  int       `json:"position"`
}

func (e LeadStageChanged) EventName() string { return "kanban.lead.stage_changed" }
