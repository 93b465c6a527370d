package quotes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rentaldesk/rentaldesk/internal/commissions"
	"github.com/rentaldesk/rentaldesk/internal/shared"
)

// CommissionEngine is the slice of the commission service the orchestration
// layer drives. Quote mutations are the only callers of these side effects.
type CommissionEngine interface {
	Create(ctx context.Context, ownerID, quoteID int64, quoteValue float64) (*commissions.Commission, error)
	Reprice(ctx context.Context, quoteID int64, quoteValue float64) error
	HasCommission(ctx context.Context, quoteID int64) (bool, error)
	MarkGenerated(ctx context.Context, quoteID int64) error
	MarkLost(ctx context.Context, quoteID int64) error
}

// Service orchestrates quote mutations and their commission side effects.
type Service struct {
	repo        Repository
	commissions CommissionEngine
	logger      *slog.Logger
	validate    *validator.Validate
	now         func() time.Time
}

func NewService(repo Repository, engine CommissionEngine, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		commissions: engine,
		logger:      logger,
		validate:    validator.New(),
		now:         time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Create validates and persists a quote, then opens a PENDING commission when
// the estimated total is strictly positive. A commission failure surfaces to
// the caller; the quote itself stays persisted.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreateQuoteRequest) (*Quote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if !hasContact(req.CustomerEmail, req.CustomerPhone) {
		return nil, fmt.Errorf("%w: at least one of customer_email or customer_phone is required", shared.ErrValidation)
	}

	status := StatusPending
	if req.Status != nil {
		if !validStatus(*req.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, *req.Status)
		}
		status = *req.Status
	}
	durationUnit := req.DurationUnit
	if durationUnit == "" {
		durationUnit = "hours"
	}

	quote := Quote{
		OwnerID:        ownerID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		EventType:      req.EventType,
		Attendees:      req.Attendees,
		Duration:       req.Duration,
		DurationUnit:   durationUnit,
		EventDate:      req.EventDate,
		Location:       req.Location,
		Selections:     req.Selections,
		EstimatedTotal: req.EstimatedTotal,
		Notes:          req.Notes,
		AdminNotes:     req.AdminNotes,
		Status:         status,
	}

	id, err := s.repo.Create(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}

	if req.EstimatedTotal != nil && *req.EstimatedTotal > 0 {
		if _, err := s.commissions.Create(ctx, ownerID, id, *req.EstimatedTotal); err != nil {
			return nil, fmt.Errorf("create commission for quote %d: %w", id, err)
		}
	}

	return s.repo.Get(ctx, id, shared.ScopeOwner(ownerID))
}

// Update applies a sparse patch within the actor's ownership scope and drives
// the commission side effects: repricing on any estimated-total change and
// terminal status transitions on CONVERTED/REJECTED.
func (s *Service) Update(ctx context.Context, id int64, identity shared.Identity, req UpdateQuoteRequest) (*Quote, error) {
	scope := shared.ScopeFor(identity)
	existing, err := s.repo.Get(ctx, id, scope)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}

	updates, err := buildQuotePatch(req)
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if _, err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update quote: %w", err)
		}
	}

	if req.EstimatedTotal.Set {
		newValue := 0.0
		if req.EstimatedTotal.Valid {
			newValue = req.EstimatedTotal.Value
		}
		if err := s.commissions.Reprice(ctx, id, newValue); err != nil {
			return nil, fmt.Errorf("reprice commissions for quote %d: %w", id, err)
		}
		if newValue > 0 {
			exists, err := s.commissions.HasCommission(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("check commission for quote %d: %w", id, err)
			}
			if !exists {
				if _, err := s.commissions.Create(ctx, existing.OwnerID, id, newValue); err != nil {
					return nil, fmt.Errorf("create commission for quote %d: %w", id, err)
				}
			}
		}
	}

	if req.Status.Set && req.Status.Valid {
		switch req.Status.Value {
		case StatusConverted:
			if err := s.commissions.MarkGenerated(ctx, id); err != nil {
				return nil, fmt.Errorf("mark commissions generated for quote %d: %w", id, err)
			}
		case StatusRejected:
			if err := s.commissions.MarkLost(ctx, id); err != nil {
				return nil, fmt.Errorf("mark commissions lost for quote %d: %w", id, err)
			}
		}
	}

	return s.repo.Get(ctx, id, scope)
}

func buildQuotePatch(req UpdateQuoteRequest) (map[string]interface{}, error) {
	updates := make(map[string]interface{})

	// Non-nullable columns reject explicit nulls.
	if req.EventType.Set {
		if !req.EventType.Valid || req.EventType.Value == "" {
			return nil, fmt.Errorf("%w: event_type cannot be null", shared.ErrValidation)
		}
		updates["event_type"] = req.EventType.Value
	}
	if req.Attendees.Set {
		if !req.Attendees.Valid || req.Attendees.Value <= 0 {
			return nil, fmt.Errorf("%w: attendees must be a positive number", shared.ErrValidation)
		}
		updates["attendees"] = req.Attendees.Value
	}
	if req.Duration.Set {
		if !req.Duration.Valid || req.Duration.Value <= 0 {
			return nil, fmt.Errorf("%w: duration must be a positive number", shared.ErrValidation)
		}
		updates["duration"] = req.Duration.Value
	}
	if req.DurationUnit.Set {
		if !req.DurationUnit.Valid || req.DurationUnit.Value == "" {
			return nil, fmt.Errorf("%w: duration_unit cannot be null", shared.ErrValidation)
		}
		updates["duration_unit"] = req.DurationUnit.Value
	}
	if req.Status.Set {
		if !req.Status.Valid {
			return nil, fmt.Errorf("%w: status cannot be null", shared.ErrValidation)
		}
		if !validStatus(req.Status.Value) {
			return nil, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, req.Status.Value)
		}
		updates["status"] = req.Status.Value
	}
	if req.EstimatedTotal.Set && req.EstimatedTotal.Valid && req.EstimatedTotal.Value < 0 {
		return nil, fmt.Errorf("%w: estimated_total cannot be negative", shared.ErrValidation)
	}

	// Nullable columns accept explicit nulls as clears.
	putNullable(updates, "customer_name", req.CustomerName)
	putNullable(updates, "customer_email", req.CustomerEmail)
	putNullable(updates, "customer_phone", req.CustomerPhone)
	putNullable(updates, "event_date", req.EventDate)
	putNullable(updates, "location", req.Location)
	putNullable(updates, "selections", req.Selections)
	putNullable(updates, "estimated_total", req.EstimatedTotal)
	putNullable(updates, "notes", req.Notes)
	putNullable(updates, "admin_notes", req.AdminNotes)

	return updates, nil
}

func putNullable[T any](updates map[string]interface{}, col string, p shared.Patch[T]) {
	if !p.Set {
		return
	}
	if !p.Valid {
		updates[col] = nil
		return
	}
	updates[col] = p.Value
}

// Delete removes the quote within the actor's scope. Commissions referencing
// the quote are left in place so payout history survives for audit.
func (s *Service) Delete(ctx context.Context, id int64, identity shared.Identity) error {
	rows, err := s.repo.Delete(ctx, id, shared.ScopeFor(identity))
	if err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: quote %d", shared.ErrNotFound, id)
	}
	s.logger.Info("quote deleted", slog.Int64("quote_id", id), slog.Int64("actor", identity.UserID))
	return nil
}

// Get loads a quote within the actor's ownership scope.
func (s *Service) Get(ctx context.Context, id int64, identity shared.Identity) (*Quote, error) {
	return s.repo.Get(ctx, id, shared.ScopeFor(identity))
}

// List returns quotes within the actor's scope, newest first.
func (s *Service) List(ctx context.Context, identity shared.Identity, f ListFilter) ([]Quote, int, error) {
	return s.repo.List(ctx, shared.ScopeFor(identity), f)
}

func hasContact(email, phone *string) bool {
	if email != nil && *email != "" {
		return true
	}
	if phone != nil && *phone != "" {
		return true
	}
	return false
}

func validStatus(st Status) bool {
	switch st {
	case StatusPending, StatusSent, StatusConverted, StatusRejected:
		return true
	}
	return false
}
