package leads

import (
	"time"

	"github.com/rentaldesk/rentaldesk/internal/shared"
)

type CreateLeadRequest struct {
	Name             string     `json:"name" validate:"required"`
	Email            string     `json:"email" validate:"required,email"`
	Phone            *string    `json:"phone,omitempty"`
	Company          *string    `json:"company,omitempty"`
	Origin           *string    `json:"origin,omitempty"`
	EventType        *string    `json:"event_type,omitempty"`
	EstimatedBudget  *float64   `json:"estimated_budget,omitempty" validate:"omitempty,gte=0"`
	EventDate        *time.Time `json:"event_date,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	NextFollowUpDate *time.Time `json:"next_follow_up_date,omitempty"`
}

// UpdateLeadRequest is a sparse patch: absent fields are no-ops, explicit
// nulls clear nullable columns.
type UpdateLeadRequest struct {
	Name             shared.Patch[string]    `json:"name,omitempty"`
	Email            shared.Patch[string]    `json:"email,omitempty"`
	Phone            shared.Patch[string]    `json:"phone,omitempty"`
	Company          shared.Patch[string]    `json:"company,omitempty"`
	Origin           shared.Patch[string]    `json:"origin,omitempty"`
	EventType        shared.Patch[string]    `json:"event_type,omitempty"`
	EstimatedBudget  shared.Patch[float64]   `json:"estimated_budget,omitempty"`
	EventDate        shared.Patch[time.Time] `json:"event_date,omitempty"`
	Status           shared.Patch[Status]    `json:"status,omitempty"`
	Notes            shared.Patch[string]    `json:"notes,omitempty"`
	LastContactDate  shared.Patch[time.Time] `json:"last_contact_date,omitempty"`
	NextFollowUpDate shared.Patch[time.Time] `json:"next_follow_up_date,omitempty"`
}

type ConvertLeadRequest struct {
	QuoteID int64 `json:"quote_id" validate:"required,gt=0"`
}

// ListFilter narrows the administrative lead listing.
type ListFilter struct {
	Status  *Status `json:"status,omitempty"`
	Search  *string `json:"search,omitempty"`
	OwnerID *int64  `json:"owner_id,omitempty"`
}

// Stats is the per-owner lead funnel rollup.
type Stats struct {
	Total            int            `json:"total"`
	ByStatus         map[Status]int `json:"by_status"`
	Converted        int            `json:"converted"`
	ConversionRate   float64        `json:"conversion_rate"`
	PendingFollowUps int            `json:"pending_follow_ups"`
}
