package leads

import "time"

type Status string

const (
	StatusNew         Status = "NEW"
	StatusContacted   Status = "CONTACTED"
	StatusInterested  Status = "INTERESTED"
	StatusNegotiating Status = "NEGOTIATING"
	StatusConverted   Status = "CONVERTED"
	StatusLost        Status = "LOST"
)

// followUpStatuses are the funnel stages where a scheduled follow-up counts
// as pending.
var followUpStatuses = []Status{StatusContacted, StatusInterested, StatusNegotiating}

// Lead is a prospective customer tracked before any quote exists.
type Lead struct {
	ID                 int64      `json:"id" db:"id"`
	OwnerID            int64      `json:"owner_id" db:"owner_id"`
	Name               string     `json:"name" db:"name"`
	Email              string     `json:"email" db:"email"`
	Phone              *string    `json:"phone,omitempty" db:"phone"`
	Company            *string    `json:"company,omitempty" db:"company"`
	Origin             *string    `json:"origin,omitempty" db:"origin"`
	EventType          *string    `json:"event_type,omitempty" db:"event_type"`
	EstimatedBudget    *float64   `json:"estimated_budget,omitempty" db:"estimated_budget"`
	EventDate          *time.Time `json:"event_date,omitempty" db:"event_date"`
	Status             Status     `json:"status" db:"status"`
	Notes              *string    `json:"notes,omitempty" db:"notes"`
	LastContactDate    *time.Time `json:"last_contact_date,omitempty" db:"last_contact_date"`
	NextFollowUpDate   *time.Time `json:"next_follow_up_date,omitempty" db:"next_follow_up_date"`
	ConvertedAt        *time.Time `json:"converted_at,omitempty" db:"converted_at"`
	ConvertedToQuoteID *int64     `json:"converted_to_quote_id,omitempty" db:"converted_to_quote_id"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}
