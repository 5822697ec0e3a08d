package transport

import (
	"encoding/json"
	"time"

	"crm_backend/internal/kanban/domain"
	"crm_backend/internal/kanban/repository"
)

type StageUpsertRequest struct {
	Stages []StageInput `json:"stages" validate:"required,min=1,dive"`
}

type StageInput struct {
	Key       string `json:"key" validate:"max=64"`
	Label     string `json:"label" validate:"max=120"`
	SortOrder int    `json:"sortOrder"`
	WipLimit  *int   `json:"wipLimit" validate:"omitempty,min=0"`
	IsClosed  bool   `json:"isClosed"`
}

type StageResponse struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	SortOrder int    `json:"sortOrder"`
	WipLimit  *int   `json:"wipLimit,omitempty"`
	IsClosed  bool   `json:"isClosed"`
}

func NewStageList(stages []repository.Stage) []StageResponse {
	out := make([]StageResponse, 0, len(stages))
	for _, s := range stages {
		out = append(out, StageResponse{
			Key:       s.Key,
			Label:     s.Label,
			SortOrder: s.SortOrder,
			WipLimit:  s.WipLimit,
			IsClosed:  s.IsClosed,
		})
	}
	return out
}

type MoveRequest struct {
	ToStage  string `json:"toStage" validate:"required,max=64"`
	Position *int   `json:"position"`
}

type MoveResponse struct {
	Stage    string `json:"stage"`
	Position int    `json:"position"`
	Moved    bool   `json:"moved"`
}

type LeadResponse struct {
	ContactID string  `json:"contactId"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	BirthDate string  `json:"birthDate"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Stage     string  `json:"stage"`
	Position  int     `json:"position"`
}

func NewLeadList(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, LeadResponse{
			ContactID: l.ContactID.String(),
			FirstName: l.FirstName,
			LastName:  l.LastName,
			BirthDate: l.BirthDate.Format("2006-01-02"),
			Email:     l.Email,
			Phone:     l.Phone,
			Stage:     l.StageKey,
			Position:  l.Position,
		})
	}
	return out
}

type NoteRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type FollowUpRequest struct {
	Date    time.Time `json:"date" validate:"required"`
	Channel string    `json:"channel" validate:"required,oneof=email whatsapp call"`
}

type TimelineEventResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewTimeline(events []domain.TimelineEvent) []TimelineEventResponse {
	out := make([]TimelineEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, TimelineEventResponse{
			ID:        ev.ID.String(),
			Type:      ev.Type,
			Payload:   ev.Payload,
			CreatedAt: ev.CreatedAt,
		})
	}
	return out
}
