package dashboard

import (
	"time"

	"github.com/rentaldesk/rentaldesk/internal/commissions"
	"github.com/rentaldesk/rentaldesk/internal/leads"
	"github.com/rentaldesk/rentaldesk/internal/quotes"
)

// MonthMetric compares the current calendar month against the previous one.
// ChangePct is 0 when the previous month is 0, even for genuinely new
// activity.
type MonthMetric struct {
	Current   int     `json:"current"`
	Previous  int     `json:"previous"`
	ChangePct float64 `json:"change_pct"`
}

// RateMetric is a month-over-month percentage pair.
type RateMetric struct {
	Current   float64 `json:"current"`
	Previous  float64 `json:"previous"`
	ChangePct float64 `json:"change_pct"`
}

// QuoteSummary carries the quote fields surfaced in the recent-activity list.
type QuoteSummary struct {
	ID             int64     `json:"id"`
	CustomerName   *string   `json:"customer_name,omitempty"`
	EventType      string    `json:"event_type"`
	EstimatedTotal *float64  `json:"estimated_total,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// LeadSummary carries the lead fields surfaced in the recent-activity list.
type LeadSummary struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Status           string     `json:"status"`
	NextFollowUpDate *time.Time `json:"next_follow_up_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Dashboard is the per-owner read model. Its sections are read independently
// with no cross-field transactional guarantee.
type Dashboard struct {
	Quotes              MonthMetric              `json:"quotes"`
	QuotesWon           MonthMetric              `json:"quotes_won"`
	ConversionRate      RateMetric               `json:"conversion_rate"`
	EstimatedTotalMonth float64                  `json:"estimated_total_month"`
	Commissions         *commissions.Summary     `json:"commissions"`
	Leads               *leads.Stats             `json:"leads"`
	RecentQuotes        []QuoteSummary           `json:"recent_quotes"`
	RecentLeads         []LeadSummary            `json:"recent_leads"`
	PendingFollowUps    int                      `json:"pending_follow_ups"`
	QuotesByStatus      map[quotes.Status]int    `json:"quotes_by_status"`
	GeneratedAt         time.Time                `json:"generated_at"`
}
