package quotes

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusConverted Status = "CONVERTED"
	StatusRejected  Status = "REJECTED"
)

// Quote is a priced proposal owned by exactly one commercial. Only the
// CONVERTED and REJECTED statuses trigger commission side effects; SENT and
// other intermediate statuses do not.
type Quote struct {
	ID             int64      `json:"id" db:"id"`
	OwnerID        int64      `json:"owner_id" db:"owner_id"`
	CustomerName   *string    `json:"customer_name,omitempty" db:"customer_name"`
	CustomerEmail  *string    `json:"customer_email,omitempty" db:"customer_email"`
	CustomerPhone  *string    `json:"customer_phone,omitempty" db:"customer_phone"`
	EventType      string     `json:"event_type" db:"event_type"`
	Attendees      int        `json:"attendees" db:"attendees"`
	Duration       int        `json:"duration" db:"duration"`
	DurationUnit   string     `json:"duration_unit" db:"duration_unit"`
	EventDate      *time.Time `json:"event_date,omitempty" db:"event_date"`
	Location       *string    `json:"location,omitempty" db:"location"`
	Selections     []string   `json:"selections,omitempty" db:"selections"`
	EstimatedTotal *float64   `json:"estimated_total,omitempty" db:"estimated_total"`
	Notes          *string    `json:"notes,omitempty" db:"notes"`
	AdminNotes     *string    `json:"admin_notes,omitempty" db:"admin_notes"`
	Status         Status     `json:"status" db:"status"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
