package transport

import (
	"time"

	"crm_backend/internal/contacts/repository"
)

// Birth dates travel as calendar days without a time component.
const birthDateLayout = "2006-01-02"

type ContactRequest struct {
	FirstName string  `json:"firstName" validate:"required,min=1,max=120"`
	LastName  string  `json:"lastName" validate:"max=120"`
	BirthDate string  `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
}

// ParseBirthDate converts the wire format to a calendar day.
func (r ContactRequest) ParseBirthDate() (time.Time, error) {
	return time.Parse(birthDateLayout, r.BirthDate)
}

type ContactResponse struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	BirthDate string  `json:"birthDate"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

func NewContactResponse(c repository.Contact) ContactResponse {
	resp := ContactResponse{
		ID:        c.ID.String(),
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	resp.BirthDate = c.BirthDate.Format(birthDateLayout)
	return resp
}

func NewContactList(contacts []repository.Contact) []ContactResponse {
	out := make([]ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, NewContactResponse(c))
	}
	return out
}
