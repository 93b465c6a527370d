package commissions

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusGenerated Status = "GENERATED"
	StatusPaid      Status = "PAID"
	StatusLost      Status = "LOST"
)

// Commission is the payout owed to the commercial who authored a quote.
// QuoteValue snapshots the quote's estimated total at last computation;
// CommissionValue is always QuoteValue * RatePercent / 100, never an
// independent input.
type Commission struct {
	ID              int64      `json:"id" db:"id"`
	OwnerID         int64      `json:"owner_id" db:"owner_id"`
	QuoteID         int64      `json:"quote_id" db:"quote_id"`
	QuoteValue      float64    `json:"quote_value" db:"quote_value"`
	RatePercent     float64    `json:"rate_percent" db:"rate_percent"`
	CommissionValue float64    `json:"commission_value" db:"commission_value"`
	Status          Status     `json:"status" db:"status"`
	PaidAt          *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	PaidBy          *string    `json:"paid_by,omitempty" db:"paid_by"`
	PaymentMethod   *string    `json:"payment_method,omitempty" db:"payment_method"`
	PaymentNotes    *string    `json:"payment_notes,omitempty" db:"payment_notes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// CommissionWithQuote carries the quote summary fields surfaced on listings.
type CommissionWithQuote struct {
	Commission
	CustomerName  *string `json:"customer_name,omitempty" db:"customer_name"`
	CustomerEmail *string `json:"customer_email,omitempty" db:"customer_email"`
	EventType     *string `json:"event_type,omitempty" db:"event_type"`
	QuoteStatus   *string `json:"quote_status,omitempty" db:"quote_status"`
}
