package handler

import (
	"net/http"
	"time"

	"crm_backend/internal/kanban/repository"
	"crm_backend/internal/kanban/service"
	"crm_backend/internal/kanban/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc      *service.Service
	validate *validator.Validator
}

func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, validate: validate}
}

func (h *Handler) ListStages(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	stages, err := h.svc.ListStages(c.Request.Context(), ident.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NewStageList(stages))
}

func (h *Handler) UpsertStages(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	var req transport.StageUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	inputs := make([]service.StageInput, 0, len(req.Stages))
	for _, s := range req.Stages {
		inputs = append(inputs, service.StageInput{
			Key:       s.Key,
			Label:     s.Label,
			SortOrder: s.SortOrder,
			WipLimit:  s.WipLimit,
			IsClosed:  s.IsClosed,
		})
	}

	if httpkit.HandleError(c, h.svc.UpsertStages(c.Request.Context(), ident.UserID(), inputs)) {
		return
	}

	stages, err := h.svc.ListStages(c.Request.Context(), ident.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewStageList(stages))
}

func (h *Handler) ListLeads(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	filters, ok := parseFilters(c)
	if !ok {
		return
	}

	leads, err := h.svc.ListLeads(c.Request.Context(), ident.UserID(), filters)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NewLeadList(leads))
}

func (h *Handler) Move(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	contactID, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Move(c.Request.Context(), ident.UserID(), contactID, req.ToStage, req.Position)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.MoveResponse{
		Stage:    result.Stage,
		Position: result.Position,
		Moved:    result.Moved,
	})
}

func (h *Handler) Timeline(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	contactID, ok := pathID(c)
	if !ok {
		return
	}

	events, err := h.svc.Timeline(c.Request.Context(), ident.UserID(), contactID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NewTimeline(events))
}

func (h *Handler) AddNote(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	contactID, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if httpkit.HandleError(c, h.svc.AddNote(c.Request.Context(), ident.UserID(), contactID, req.Text)) {
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) AddFollowUp(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	contactID, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if httpkit.HandleError(c, h.svc.AddFollowUp(c.Request.Context(), ident.UserID(), contactID, req.Date, req.Channel)) {
		return
	}
	c.Status(http.StatusCreated)
}

func parseFilters(c *gin.Context) (repository.Filters, bool) {
	filters := repository.Filters{
		Stage: c.Query("stage"),
		Text:  c.Query("q"),
	}

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "from must be YYYY-MM-DD", nil)
			return repository.Filters{}, false
		}
		filters.DateFrom = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "to must be YYYY-MM-DD", nil)
			return repository.Filters{}, false
		}
		filters.DateTo = &t
	}

	return filters, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return uuid.Nil, false
	}
	return id, true
}
