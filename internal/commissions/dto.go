package commissions

import "time"

// Filter narrows commission listings. All fields are optional; OwnerID is
// only honored on the administrative listing.
type Filter struct {
	Status    *Status    `json:"status,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	OwnerID   *int64     `json:"owner_id,omitempty"`
}

// PayRequest carries the explicit payment action metadata.
type PayRequest struct {
	PaidBy        string  `json:"paid_by" validate:"required"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	PaymentNotes  *string `json:"payment_notes,omitempty"`
}

// WindowTotal is one rolling-window aggregate of the summary.
type WindowTotal struct {
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// Summary rolls commissions up into the four dashboard windows. Month,
// quarter and year count GENERATED and PAID commissions; PendingPayment
// counts GENERATED only, with no date bound.
type Summary struct {
	Month          WindowTotal `json:"month"`
	Quarter        WindowTotal `json:"quarter"`
	Year           WindowTotal `json:"year"`
	PendingPayment WindowTotal `json:"pending_payment"`
}
