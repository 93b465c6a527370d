package quotes

import (
	"time"

	"github.com/rentaldesk/rentaldesk/internal/shared"
)

type CreateQuoteRequest struct {
	CustomerName   *string    `json:"customer_name,omitempty"`
	CustomerEmail  *string    `json:"customer_email,omitempty"`
	CustomerPhone  *string    `json:"customer_phone,omitempty"`
	EventType      string     `json:"event_type" validate:"required"`
	Attendees      int        `json:"attendees" validate:"required,gt=0"`
	Duration       int        `json:"duration" validate:"required,gt=0"`
	DurationUnit   string     `json:"duration_unit,omitempty"`
	EventDate      *time.Time `json:"event_date,omitempty"`
	Location       *string    `json:"location,omitempty"`
	Selections     []string   `json:"selections,omitempty"`
	EstimatedTotal *float64   `json:"estimated_total,omitempty" validate:"omitempty,gte=0"`
	Notes          *string    `json:"notes,omitempty"`
	AdminNotes     *string    `json:"admin_notes,omitempty"`
	Status         *Status    `json:"status,omitempty"`
}

// UpdateQuoteRequest is a sparse patch: absent fields are no-ops, explicit
// nulls clear nullable columns. An estimated-total patch (value or null)
// triggers commission repricing.
type UpdateQuoteRequest struct {
	CustomerName   shared.Patch[string]    `json:"customer_name,omitempty"`
	CustomerEmail  shared.Patch[string]    `json:"customer_email,omitempty"`
	CustomerPhone  shared.Patch[string]    `json:"customer_phone,omitempty"`
	EventType      shared.Patch[string]    `json:"event_type,omitempty"`
	Attendees      shared.Patch[int]       `json:"attendees,omitempty"`
	Duration       shared.Patch[int]       `json:"duration,omitempty"`
	DurationUnit   shared.Patch[string]    `json:"duration_unit,omitempty"`
	EventDate      shared.Patch[time.Time] `json:"event_date,omitempty"`
	Location       shared.Patch[string]    `json:"location,omitempty"`
	Selections     shared.Patch[[]string]  `json:"selections,omitempty"`
	EstimatedTotal shared.Patch[float64]   `json:"estimated_total,omitempty"`
	Notes          shared.Patch[string]    `json:"notes,omitempty"`
	AdminNotes     shared.Patch[string]    `json:"admin_notes,omitempty"`
	Status         shared.Patch[Status]    `json:"status,omitempty"`
}

// ListFilter narrows quote listings within the resolved ownership scope.
type ListFilter struct {
	Status   *Status    `json:"status,omitempty"`
	Search   *string    `json:"search,omitempty"`
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}
