package leads

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rentaldesk/rentaldesk/internal/shared"
)

// Service provides business operations on leads: intake, funnel updates,
// follow-up scheduling and conversion into quotes.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Create persists a new lead. Status is forced to NEW regardless of input.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreateLeadRequest) (*Lead, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	lead := Lead{
		OwnerID:          ownerID,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Company:          req.Company,
		Origin:           req.Origin,
		EventType:        req.EventType,
		EstimatedBudget:  req.EstimatedBudget,
		EventDate:        req.EventDate,
		Status:           StatusNew,
		Notes:            req.Notes,
		NextFollowUpDate: req.NextFollowUpDate,
	}

	id, err := s.repo.Create(ctx, lead)
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	return s.repo.Get(ctx, id, shared.ScopeOwner(ownerID))
}

// Get loads a lead within the owner's scope.
func (s *Service) Get(ctx context.Context, id, ownerID int64) (*Lead, error) {
	return s.repo.Get(ctx, id, shared.ScopeOwner(ownerID))
}

// Update applies a sparse patch to the owner's lead. A miss on either id or
// owner behaves exactly like the record not existing.
func (s *Service) Update(ctx context.Context, id, ownerID int64, req UpdateLeadRequest) (*Lead, error) {
	existing, err := s.repo.Get(ctx, id, shared.ScopeOwner(ownerID))
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	if existing.Status == StatusConverted {
		return nil, fmt.Errorf("%w: converted leads are immutable", shared.ErrValidation)
	}

	updates, err := buildLeadPatch(req)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return existing, nil
	}

	rows, err := s.repo.Update(ctx, id, ownerID, updates)
	if err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: lead %d", shared.ErrNotFound, id)
	}
	return s.repo.Get(ctx, id, shared.ScopeOwner(ownerID))
}

func buildLeadPatch(req UpdateLeadRequest) (map[string]interface{}, error) {
	updates := make(map[string]interface{})

	// Non-nullable columns reject explicit nulls.
	if req.Name.Set {
		if !req.Name.Valid {
			return nil, fmt.Errorf("%w: name cannot be null", shared.ErrValidation)
		}
		updates["name"] = req.Name.Value
	}
	if req.Email.Set {
		if !req.Email.Valid {
			return nil, fmt.Errorf("%w: email cannot be null", shared.ErrValidation)
		}
		updates["email"] = req.Email.Value
	}
	if req.Status.Set {
		if !req.Status.Valid {
			return nil, fmt.Errorf("%w: status cannot be null", shared.ErrValidation)
		}
		if !validStatus(req.Status.Value) {
			return nil, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, req.Status.Value)
		}
		// Conversion is one-way and only happens through the convert path,
		// which stamps converted_at and the quote link.
		if req.Status.Value == StatusConverted {
			return nil, fmt.Errorf("%w: use the convert operation to mark a lead converted", shared.ErrValidation)
		}
		updates["status"] = req.Status.Value
	}

	// Nullable columns accept explicit nulls as clears.
	putNullable(updates, "phone", req.Phone)
	putNullable(updates, "company", req.Company)
	putNullable(updates, "origin", req.Origin)
	putNullable(updates, "event_type", req.EventType)
	putNullable(updates, "estimated_budget", req.EstimatedBudget)
	putNullable(updates, "event_date", req.EventDate)
	putNullable(updates, "notes", req.Notes)
	putNullable(updates, "last_contact_date", req.LastContactDate)
	putNullable(updates, "next_follow_up_date", req.NextFollowUpDate)

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

func validStatus(st Status) bool {
	switch st {
	case StatusNew, StatusContacted, StatusInterested, StatusNegotiating, StatusConverted, StatusLost:
		return true
	}
	return false
}

// MarkConverted links the lead to a quote and closes the funnel for it. The
// quote id is not validated here; cross-aggregate references stay loose.
func (s *Service) MarkConverted(ctx context.Context, id, ownerID, quoteID int64) (*Lead, error) {
	rows, err := s.repo.MarkConverted(ctx, id, ownerID, quoteID, s.now())
	if err != nil {
		return nil, fmt.Errorf("convert lead: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: lead %d", shared.ErrNotFound, id)
	}
	s.logger.Info("lead converted", slog.Int64("lead_id", id), slog.Int64("quote_id", quoteID))
	return s.repo.Get(ctx, id, shared.ScopeOwner(ownerID))
}

// Delete removes the owner's lead.
func (s *Service) Delete(ctx context.Context, id, ownerID int64) error {
	rows, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: lead %d", shared.ErrNotFound, id)
	}
	return nil
}

// GetPendingFollowUps returns leads in an active funnel stage whose
// follow-up date is due or overdue, soonest first.
func (s *Service) GetPendingFollowUps(ctx context.Context, ownerID int64) ([]Lead, error) {
	return s.repo.PendingFollowUps(ctx, ownerID, s.now())
}

// GetStats rolls the funnel up into counts and a conversion rate. A nil
// ownerID covers every owner.
func (s *Service) GetStats(ctx context.Context, ownerID *int64) (*Stats, error) {
	byStatus, err := s.repo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lead stats: %w", err)
	}

	total := 0
	for _, count := range byStatus {
		total += count
	}
	converted := byStatus[StatusConverted]

	rate := 0.0
	if total > 0 {
		rate = round2(float64(converted) / float64(total) * 100)
	}

	pending, err := s.repo.CountPendingFollowUps(ctx, ownerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("lead stats: %w", err)
	}

	return &Stats{
		Total:            total,
		ByStatus:         byStatus,
		Converted:        converted,
		ConversionRate:   rate,
		PendingFollowUps: pending,
	}, nil
}

// ListAll is the administrative, unscoped listing with substring search.
func (s *Service) ListAll(ctx context.Context, f ListFilter) ([]Lead, error) {
	return s.repo.List(ctx, f)
}

// Recent returns the newest leads in scope for the dashboard.
func (s *Service) Recent(ctx context.Context, ownerID *int64, limit int) ([]Lead, error) {
	return s.repo.Recent(ctx, ownerID, limit)
}

// OwnersWithDueFollowUps lists owners holding at least one due follow-up.
func (s *Service) OwnersWithDueFollowUps(ctx context.Context) ([]int64, error) {
	return s.repo.OwnersWithDueFollowUps(ctx, s.now())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
