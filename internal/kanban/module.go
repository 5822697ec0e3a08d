// Package kanban provides the lead pipeline bounded context module: stage
// registry, positional board, timeline, and lead queries.
package kanban

import (
	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/kanban/handler"
	"crm_backend/internal/kanban/repository"
	"crm_backend/internal/kanban/service"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the kanban bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the kanban module with all its
// dependencies, subscribing to contact creation so new contacts land on the
// board immediately.
func NewModule(pool *pgxpool.Pool, bus events.Bus, validate *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, validate)

	bus.Subscribe(events.ContactCreated{}.EventName(), events.HandlerFunc(svc.HandleContactCreated))

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "kanban"
}

// RegisterRoutes mounts kanban routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/kanban")

	group.GET("/stages", m.handler.ListStages)
	group.POST("/stages", httpkit.RequireRole("admin", "manager"), m.handler.UpsertStages)

	group.GET("/leads", m.handler.ListLeads)
	group.PATCH("/leads/:id/move", m.handler.Move)
	group.GET("/leads/:id/timeline", m.handler.Timeline)
	group.POST("/leads/:id/notes", m.handler.AddNote)
	group.POST("/leads/:id/followups", m.handler.AddFollowUp)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
