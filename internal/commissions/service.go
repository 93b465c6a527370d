package commissions

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rentaldesk/rentaldesk/internal/shared"
)

// Config carries the system-wide commission rate. It is injected at
// construction so the rate can vary without code changes.
type Config struct {
	RatePercent float64
}

// DefaultConfig uses the business-wide 10% rate.
func DefaultConfig() Config {
	return Config{RatePercent: 10}
}

// Service is the commission engine. It owns commission pricing and the
// status lifecycle tied to quote state.
type Service struct {
	repo   Repository
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, cfg Config, logger *slog.Logger) *Service {
	if cfg.RatePercent <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// priceFor derives the commission value from a quote value. This is the only
// place the derivation lives; creation and repricing both go through it.
func (s *Service) priceFor(quoteValue float64) float64 {
	return round2(quoteValue * s.cfg.RatePercent / 100)
}

// Create records a new PENDING commission for the quote. Callers gate on a
// strictly positive quote value and on no active commission existing yet.
func (s *Service) Create(ctx context.Context, ownerID, quoteID int64, quoteValue float64) (*Commission, error) {
	c := Commission{
		OwnerID:         ownerID,
		QuoteID:         quoteID,
		QuoteValue:      quoteValue,
		RatePercent:     s.cfg.RatePercent,
		CommissionValue: s.priceFor(quoteValue),
		Status:          StatusPending,
	}
	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("create commission: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// MarkGenerated moves the quote's PENDING commissions to GENERATED. Affecting
// zero rows is a successful no-op, which makes racing quote-status updates
// converge safely.
func (s *Service) MarkGenerated(ctx context.Context, quoteID int64) error {
	rows, err := s.repo.TransitionByQuote(ctx, quoteID, StatusPending, StatusGenerated)
	if err != nil {
		return fmt.Errorf("mark generated: %w", err)
	}
	s.logger.Info("commissions generated", slog.Int64("quote_id", quoteID), slog.Int64("rows", rows))
	return nil
}

// MarkLost moves the quote's PENDING commissions to LOST.
func (s *Service) MarkLost(ctx context.Context, quoteID int64) error {
	rows, err := s.repo.TransitionByQuote(ctx, quoteID, StatusPending, StatusLost)
	if err != nil {
		return fmt.Errorf("mark lost: %w", err)
	}
	s.logger.Info("commissions lost", slog.Int64("quote_id", quoteID), slog.Int64("rows", rows))
	return nil
}

// MarkPaid stamps the commission PAID with payment metadata. There is no
// status-source guard: PAID may be set from any prior status as an
// administrative override.
func (s *Service) MarkPaid(ctx context.Context, id int64, req PayRequest) (*Commission, error) {
	if req.PaidBy == "" || req.PaymentMethod == "" {
		return nil, fmt.Errorf("%w: paid_by and payment_method are required", shared.ErrValidation)
	}
	rows, err := s.repo.MarkPaid(ctx, id, s.now(), req.PaidBy, req.PaymentMethod, req.PaymentNotes)
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: commission %d", shared.ErrNotFound, id)
	}
	return s.repo.Get(ctx, id)
}

// Reprice overwrites the value snapshot on every commission row of the quote
// so commission history stays priced consistently with the latest quote
// value. It creates nothing.
func (s *Service) Reprice(ctx context.Context, quoteID int64, quoteValue float64) error {
	rows, err := s.repo.Reprice(ctx, quoteID, quoteValue, s.priceFor(quoteValue))
	if err != nil {
		return fmt.Errorf("reprice: %w", err)
	}
	s.logger.Info("commissions repriced",
		slog.Int64("quote_id", quoteID),
		slog.Float64("quote_value", quoteValue),
		slog.Int64("rows", rows))
	return nil
}

// HasCommission reports whether any commission row exists for the quote.
func (s *Service) HasCommission(ctx context.Context, quoteID int64) (bool, error) {
	count, err := s.repo.CountByQuote(ctx, quoteID)
	if err != nil {
		return false, fmt.Errorf("check commission: %w", err)
	}
	return count > 0, nil
}

// ListByOwner returns the owner's commissions, newest first, with quote
// summary fields attached.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64, f Filter) ([]CommissionWithQuote, error) {
	f.OwnerID = nil
	return s.repo.List(ctx, &ownerID, f)
}

// ListAll is the administrative, unscoped listing.
func (s *Service) ListAll(ctx context.Context, f Filter) ([]CommissionWithQuote, error) {
	return s.repo.List(ctx, nil, f)
}

// GetSummary computes the four rolling windows: current calendar month,
// quarter and year over GENERATED+PAID commissions, plus GENERATED-only
// rows representing payouts still pending payment. A nil ownerID covers
// every owner.
func (s *Service) GetSummary(ctx context.Context, ownerID *int64) (*Summary, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	quarterMonth := time.Month((int(now.Month())-1)/3*3 + 1)
	quarterStart := time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	earned := []Status{StatusGenerated, StatusPaid}

	month, err := s.repo.SumTotals(ctx, ownerID, earned, &monthStart)
	if err != nil {
		return nil, fmt.Errorf("summary month: %w", err)
	}
	quarter, err := s.repo.SumTotals(ctx, ownerID, earned, &quarterStart)
	if err != nil {
		return nil, fmt.Errorf("summary quarter: %w", err)
	}
	year, err := s.repo.SumTotals(ctx, ownerID, earned, &yearStart)
	if err != nil {
		return nil, fmt.Errorf("summary year: %w", err)
	}
	pending, err := s.repo.SumTotals(ctx, ownerID, []Status{StatusGenerated}, nil)
	if err != nil {
		return nil, fmt.Errorf("summary pending: %w", err)
	}

	return &Summary{
		Month:          month,
		Quarter:        quarter,
		Year:           year,
		PendingPayment: pending,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
