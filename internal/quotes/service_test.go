package quotes

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rentaldesk/rentaldesk/internal/commissions"
	"github.com/rentaldesk/rentaldesk/internal/shared"
)

type memoryQuoteRepo struct {
	quotes map[int64]Quote
	nextID int64
}

func newMemoryQuoteRepo() *memoryQuoteRepo {
	return &memoryQuoteRepo{quotes: make(map[int64]Quote)}
}

func (r *memoryQuoteRepo) Create(ctx context.Context, q Quote) (int64, error) {
	r.nextID++
	q.ID = r.nextID
	now := time.Now()
	q.CreatedAt = now
	q.UpdatedAt = now
	r.quotes[q.ID] = q
	return q.ID, nil
}

func (r *memoryQuoteRepo) Get(ctx context.Context, id int64, scope shared.Scope) (*Quote, error) {
	q, ok := r.quotes[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if !scope.All && q.OwnerID != scope.OwnerID {
		return nil, shared.ErrNotFound
	}
	return &q, nil
}

func (r *memoryQuoteRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) (int64, error) {
	q, ok := r.quotes[id]
	if !ok {
		return 0, nil
	}
	for col, value := range updates {
		switch col {
		case "status":
			q.Status = value.(Status)
		case "estimated_total":
			if value == nil {
				q.EstimatedTotal = nil
			} else {
				v := value.(float64)
				q.EstimatedTotal = &v
			}
		case "event_type":
			q.EventType = value.(string)
		case "attendees":
			q.Attendees = value.(int)
		case "customer_name":
			if value == nil {
				q.CustomerName = nil
			} else {
				v := value.(string)
				q.CustomerName = &v
			}
		}
	}
	q.UpdatedAt = time.Now()
	r.quotes[id] = q
	return 1, nil
}

func (r *memoryQuoteRepo) Delete(ctx context.Context, id int64, scope shared.Scope) (int64, error) {
	q, ok := r.quotes[id]
	if !ok {
		return 0, nil
	}
	if !scope.All && q.OwnerID != scope.OwnerID {
		return 0, nil
	}
	delete(r.quotes, id)
	return 1, nil
}

func (r *memoryQuoteRepo) List(ctx context.Context, scope shared.Scope, f ListFilter) ([]Quote, int, error) {
	var out []Quote
	for _, q := range r.quotes {
		if !scope.All && q.OwnerID != scope.OwnerID {
			continue
		}
		if f.Status != nil && q.Status != *f.Status {
			continue
		}
		if f.Search != nil && q.CustomerName != nil && !strings.Contains(*q.CustomerName, *f.Search) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memoryQuoteRepo) Recent(ctx context.Context, ownerID *int64, limit int) ([]Quote, error) {
	var out []Quote
	for _, q := range r.quotes {
		if ownerID != nil && q.OwnerID != *ownerID {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryQuoteRepo) CountByStatus(ctx context.Context, ownerID *int64) (map[Status]int, error) {
	result := make(map[Status]int)
	for _, q := range r.quotes {
		if ownerID != nil && q.OwnerID != *ownerID {
			continue
		}
		result[q.Status]++
	}
	return result, nil
}

func (r *memoryQuoteRepo) CountCreatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (int, error) {
	count := 0
	for _, q := range r.quotes {
		if ownerID != nil && q.OwnerID != *ownerID {
			continue
		}
		if !q.CreatedAt.Before(from) && q.CreatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *memoryQuoteRepo) CountConvertedUpdatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (int, error) {
	count := 0
	for _, q := range r.quotes {
		if ownerID != nil && q.OwnerID != *ownerID {
			continue
		}
		if q.Status == StatusConverted && !q.UpdatedAt.Before(from) && q.UpdatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *memoryQuoteRepo) SumEstimatedCreatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (float64, error) {
	var sum float64
	for _, q := range r.quotes {
		if ownerID != nil && q.OwnerID != *ownerID {
			continue
		}
		if q.EstimatedTotal != nil && !q.CreatedAt.Before(from) && q.CreatedAt.Before(to) {
			sum += *q.EstimatedTotal
		}
	}
	return sum, nil
}

type memoryCommissionRepo struct {
	commissions map[int64]commissions.Commission
	nextID      int64
}

func newMemoryCommissionRepo() *memoryCommissionRepo {
	return &memoryCommissionRepo{commissions: make(map[int64]commissions.Commission)}
}

func (r *memoryCommissionRepo) Create(ctx context.Context, c commissions.Commission) (int64, error) {
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	r.commissions[c.ID] = c
	return c.ID, nil
}

func (r *memoryCommissionRepo) Get(ctx context.Context, id int64) (*commissions.Commission, error) {
	c, ok := r.commissions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (r *memoryCommissionRepo) TransitionByQuote(ctx context.Context, quoteID int64, from, to commissions.Status) (int64, error) {
	var rows int64
	for id, c := range r.commissions {
		if c.QuoteID == quoteID && c.Status == from {
			c.Status = to
			r.commissions[id] = c
			rows++
		}
	}
	return rows, nil
}

func (r *memoryCommissionRepo) MarkPaid(ctx context.Context, id int64, paidAt time.Time, paidBy, method string, notes *string) (int64, error) {
	c, ok := r.commissions[id]
	if !ok {
		return 0, nil
	}
	c.Status = commissions.StatusPaid
	c.PaidAt = &paidAt
	c.PaidBy = &paidBy
	c.PaymentMethod = &method
	c.PaymentNotes = notes
	r.commissions[id] = c
	return 1, nil
}

func (r *memoryCommissionRepo) Reprice(ctx context.Context, quoteID int64, quoteValue, commissionValue float64) (int64, error) {
	var rows int64
	for id, c := range r.commissions {
		if c.QuoteID == quoteID {
			c.QuoteValue = quoteValue
			c.CommissionValue = commissionValue
			r.commissions[id] = c
			rows++
		}
	}
	return rows, nil
}

func (r *memoryCommissionRepo) CountByQuote(ctx context.Context, quoteID int64) (int, error) {
	count := 0
	for _, c := range r.commissions {
		if c.QuoteID == quoteID {
			count++
		}
	}
	return count, nil
}

func (r *memoryCommissionRepo) List(ctx context.Context, ownerID *int64, f commissions.Filter) ([]commissions.CommissionWithQuote, error) {
	var out []commissions.CommissionWithQuote
	for _, c := range r.commissions {
		if ownerID != nil && c.OwnerID != *ownerID {
			continue
		}
		out = append(out, commissions.CommissionWithQuote{Commission: c})
	}
	return out, nil
}

func (r *memoryCommissionRepo) SumTotals(ctx context.Context, ownerID *int64, statuses []commissions.Status, since *time.Time) (commissions.WindowTotal, error) {
	var total commissions.WindowTotal
	for _, c := range r.commissions {
		if ownerID != nil && c.OwnerID != *ownerID {
			continue
		}
		for _, st := range statuses {
			if c.Status == st {
				if since == nil || !c.CreatedAt.Before(*since) {
					total.Total += c.CommissionValue
					total.Count++
				}
				break
			}
		}
	}
	return total, nil
}

func (r *memoryCommissionRepo) byQuote(quoteID int64) []commissions.Commission {
	var out []commissions.Commission
	for _, c := range r.commissions {
		if c.QuoteID == quoteID {
			out = append(out, c)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *memoryQuoteRepo, *memoryCommissionRepo) {
	t.Helper()
	quoteRepo := newMemoryQuoteRepo()
	commissionRepo := newMemoryCommissionRepo()
	engine := commissions.NewService(commissionRepo, commissions.Config{RatePercent: 10}, testLogger())
	return NewService(quoteRepo, engine, testLogger()), quoteRepo, commissionRepo
}

func validCreateRequest() CreateQuoteRequest {
	return CreateQuoteRequest{
		CustomerName:  strPtr("Ana Costa"),
		CustomerEmail: strPtr("ana@example.com"),
		EventType:     "wedding",
		Attendees:     120,
		Duration:      8,
	}
}

func TestCreateQuoteOpensPendingCommission(t *testing.T) {
	svc, _, commissionRepo := newTestService(t)

	req := validCreateRequest()
	req.EstimatedTotal = floatPtr(1000)

	q, err := svc.Create(context.Background(), 3, req)
	require.NoError(t, err)
	require.Equal(t, StatusPending, q.Status)
	require.Equal(t, "hours", q.DurationUnit)

	rows := commissionRepo.byQuote(q.ID)
	require.Len(t, rows, 1)
	require.Equal(t, commissions.StatusPending, rows[0].Status)
	require.Equal(t, 100.0, rows[0].CommissionValue)
	require.Equal(t, int64(3), rows[0].OwnerID)
}

func TestCreateQuoteWithoutEstimateSkipsCommission(t *testing.T) {
	svc, _, commissionRepo := newTestService(t)

	q, err := svc.Create(context.Background(), 3, validCreateRequest())
	require.NoError(t, err)
	require.Empty(t, commissionRepo.byQuote(q.ID))
}

func TestCreateQuoteZeroEstimateSkipsCommission(t *testing.T) {
	svc, _, commissionRepo := newTestService(t)

	req := validCreateRequest()
	req.EstimatedTotal = floatPtr(0)

	q, err := svc.Create(context.Background(), 3, req)
	require.NoError(t, err)
	require.Empty(t, commissionRepo.byQuote(q.ID))
}

func TestCreateQuoteRequiresContact(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := validCreateRequest()
	req.CustomerEmail = nil
	req.CustomerPhone = nil

	_, err := svc.Create(context.Background(), 3, req)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateQuoteValidatesRequiredFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := validCreateRequest()
	req.Attendees = 0

	_, err := svc.Create(context.Background(), 3, req)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestConvertQuoteGeneratesCommission(t *testing.T) {
	svc, _, commissionRepo := newTestService(t)
	owner := shared.Identity{UserID: 3, Role: shared.RoleCommercial}

	req := validCreateRequest()
	req.EstimatedTotal = floatPtr(1000)
	q, err := svc.Create(context.Background(), 3, req)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), q.ID, owner, UpdateQuoteRequest{
		Status: shared.PatchValue(StatusConverted),
	})
	require.NoError(t, err)
	require.Equal(t, StatusConverted, updated.Status)

	rows := commissionRepo.byQuote(q.ID)
	require.Len(t, rows, 1)
	require.Equal(t, commissions.StatusGenerated, rows[0].Status)
}

func TestRepricingKeepsSameCommissionRow(t *testing.T) {
	svc, _, commissionRepo := newTestService(t)
	owner := shared.Identity{UserID: 3, Role: shared.RoleCommercial}

	req := validCreateRequest()
	req.EstimatedTotal = floatPtr(500)
	q, err := svc.Create(context.Background(), 3, req)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), q.ID, owner, UpdateQuoteRequest{
		EstimatedTotal: shared.PatchValue(800.0),
	})
	require.NoError(t, err)

	rows := commissionRepo.byQuote(q.ID)
	require.Len(t, rows, 1)
	require.Equal(t, 800.0, rows[0].QuoteValue)
	require.Equal(t, 80.0, rows[0].CommissionValue)
	require.Equal(t, commissions.StatusPending, rows[0].Status)
}

func TestRejectionIsTerminalForCommission(t *testing.T) {
	svc, _, commissionRepo := newTestService(t)
	owner := shared.Identity{UserID: 3, Role: shared.RoleCommercial}

	req := validCreateRequest()
	req.EstimatedTotal = floatPtr(1000)
	q, err := svc.Create(context.Background(), 3, req)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), q.ID, owner, UpdateQuoteRequest{
		Status: shared.PatchValue(StatusRejected),
	})
	require.NoError(t, err)
	require.Equal(t, commissions.StatusLost, commissionRepo.byQuote(q.ID)[0].Status)

	// Flipping the quote to CONVERTED afterwards finds nothing PENDING.
	_, err = svc.Update(context.Background(), q.ID, owner, UpdateQuoteRequest{
		Status: shared.PatchValue(StatusConverted),
	})
	require.NoError(t, err)
	require.Equal(t, commissions.StatusLost, commissionRepo.byQuote(q.ID)[0].Status)
}

func TestRaisingEstimateFromZeroCreatesCommission(t *testing.T) {
	svc, _, commissionRepo := newTestService(t)
	owner := shared.Identity{UserID: 3, Role: shared.RoleCommercial}

	q, err := svc.Create(context.Background(), 3, validCreateRequest())
	require.NoError(t, err)
	require.Empty(t, commissionRepo.byQuote(q.ID))

	_, err = svc.Update(context.Background(), q.ID, owner, UpdateQuoteRequest{
		EstimatedTotal: shared.PatchValue(750.0),
	})
	require.NoError(t, err)

	rows := commissionRepo.byQuote(q.ID)
	require.Len(t, rows, 1)
	require.Equal(t, 75.0, rows[0].CommissionValue)
	require.Equal(t, commissions.StatusPending, rows[0].Status)
}

func TestClearingEstimateRepricesToZeroWithoutCreating(t *testing.T) {
	svc, _, commissionRepo := newTestService(t)
	owner := shared.Identity{UserID: 3, Role: shared.RoleCommercial}

	req := validCreateRequest()
	req.EstimatedTotal = floatPtr(500)
	q, err := svc.Create(context.Background(), 3, req)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), q.ID, owner, UpdateQuoteRequest{
		EstimatedTotal: shared.PatchNull[float64](),
	})
	require.NoError(t, err)
	require.Nil(t, updated.EstimatedTotal)

	rows := commissionRepo.byQuote(q.ID)
	require.Len(t, rows, 1)
	require.Equal(t, 0.0, rows[0].QuoteValue)
	require.Equal(t, 0.0, rows[0].CommissionValue)
}

func TestUpdateRejectsNegativeEstimate(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := shared.Identity{UserID: 3, Role: shared.RoleCommercial}

	q, err := svc.Create(context.Background(), 3, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), q.ID, owner, UpdateQuoteRequest{
		EstimatedTotal: shared.PatchValue(-10.0),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestOwnershipScopeHidesForeignQuotes(t *testing.T) {
	svc, _, _ := newTestService(t)

	q, err := svc.Create(context.Background(), 3, validCreateRequest())
	require.NoError(t, err)

	stranger := shared.Identity{UserID: 4, Role: shared.RoleCommercial}
	_, err = svc.Get(context.Background(), q.ID, stranger)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Update(context.Background(), q.ID, stranger, UpdateQuoteRequest{
		EventType: shared.PatchValue("corporate"),
	})
	require.ErrorIs(t, err, shared.ErrNotFound)

	admin := shared.Identity{UserID: 99, Role: shared.RoleAdmin}
	got, err := svc.Get(context.Background(), q.ID, admin)
	require.NoError(t, err)
	require.Equal(t, q.ID, got.ID)
}

func TestDeleteLeavesCommissionHistory(t *testing.T) {
	svc, quoteRepo, commissionRepo := newTestService(t)
	owner := shared.Identity{UserID: 3, Role: shared.RoleCommercial}

	req := validCreateRequest()
	req.EstimatedTotal = floatPtr(1000)
	q, err := svc.Create(context.Background(), 3, req)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), q.ID, owner))
	require.Empty(t, quoteRepo.quotes)
	require.Len(t, commissionRepo.byQuote(q.ID), 1)
}

func TestDeleteUnknownQuote(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := shared.Identity{UserID: 3, Role: shared.RoleCommercial}

	err := svc.Delete(context.Background(), 42, owner)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListScopesToOwner(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), 3, validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 4, validCreateRequest())
	require.NoError(t, err)

	own, total, err := svc.List(context.Background(), shared.Identity{UserID: 3, Role: shared.RoleCommercial}, ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, own, 1)

	all, total, err := svc.List(context.Background(), shared.Identity{UserID: 99, Role: shared.RoleAdmin}, ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, all, 2)
}
