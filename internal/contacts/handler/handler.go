package handler

import (
	"net/http"
	"time"

	"crm_backend/internal/contacts/service"
	"crm_backend/internal/contacts/transport"
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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/birthdays/today", h.BirthdaysToday)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	contact, err := h.svc.Create(c.Request.Context(), ident.UserID(), input)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.NewContactResponse(contact))
}

func (h *Handler) Update(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	contactID, ok := pathID(c)
	if !ok {
		return
	}
	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	contact, err := h.svc.Update(c.Request.Context(), ident.UserID(), contactID, input)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NewContactResponse(contact))
}

func (h *Handler) Delete(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	contactID, ok := pathID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), ident.UserID(), contactID)) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Get(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	contactID, ok := pathID(c)
	if !ok {
		return
	}

	contact, err := h.svc.Get(c.Request.Context(), ident.UserID(), contactID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NewContactResponse(contact))
}

func (h *Handler) List(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	contacts, err := h.svc.List(c.Request.Context(), ident.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NewContactList(contacts))
}

func (h *Handler) BirthdaysToday(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	contacts, err := h.svc.BirthdaysToday(c.Request.Context(), ident.UserID(), time.Now())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NewContactList(contacts))
}

func (h *Handler) bindInput(c *gin.Context) (service.Input, bool) {
	var req transport.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return service.Input{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return service.Input{}, false
	}

	birthDate, err := req.ParseBirthDate()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "birthDate must be YYYY-MM-DD", nil)
		return service.Input{}, false
	}

	return service.Input{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: birthDate,
		Email:     req.Email,
		Phone:     req.Phone,
	}, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid contact id", nil)
		return uuid.Nil, false
	}
	return id, true
}
