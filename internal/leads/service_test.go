package leads

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rentaldesk/rentaldesk/internal/shared"
)

type memoryLeadRepo struct {
	leads  map[int64]Lead
	nextID int64
}

func newMemoryLeadRepo() *memoryLeadRepo {
	return &memoryLeadRepo{leads: make(map[int64]Lead)}
}

func (r *memoryLeadRepo) Create(ctx context.Context, lead Lead) (int64, error) {
	r.nextID++
	lead.ID = r.nextID
	now := time.Now()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	r.leads[lead.ID] = lead
	return lead.ID, nil
}

func (r *memoryLeadRepo) Get(ctx context.Context, id int64, scope shared.Scope) (*Lead, error) {
	lead, ok := r.leads[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if !scope.All && lead.OwnerID != scope.OwnerID {
		return nil, shared.ErrNotFound
	}
	return &lead, nil
}

func (r *memoryLeadRepo) Update(ctx context.Context, id, ownerID int64, updates map[string]interface{}) (int64, error) {
	lead, ok := r.leads[id]
	if !ok || lead.OwnerID != ownerID {
		return 0, nil
	}
	for col, value := range updates {
		switch col {
		case "name":
			lead.Name = value.(string)
		case "email":
			lead.Email = value.(string)
		case "status":
			lead.Status = value.(Status)
		case "next_follow_up_date":
			if value == nil {
				lead.NextFollowUpDate = nil
			} else {
				v := value.(time.Time)
				lead.NextFollowUpDate = &v
			}
		case "notes":
			if value == nil {
				lead.Notes = nil
			} else {
				v := value.(string)
				lead.Notes = &v
			}
		}
	}
	lead.UpdatedAt = time.Now()
	r.leads[id] = lead
	return 1, nil
}

func (r *memoryLeadRepo) MarkConverted(ctx context.Context, id, ownerID, quoteID int64, at time.Time) (int64, error) {
	lead, ok := r.leads[id]
	if !ok || lead.OwnerID != ownerID || lead.Status == StatusConverted {
		return 0, nil
	}
	lead.Status = StatusConverted
	lead.ConvertedAt = &at
	lead.ConvertedToQuoteID = &quoteID
	r.leads[id] = lead
	return 1, nil
}

func (r *memoryLeadRepo) Delete(ctx context.Context, id, ownerID int64) (int64, error) {
	lead, ok := r.leads[id]
	if !ok || lead.OwnerID != ownerID {
		return 0, nil
	}
	delete(r.leads, id)
	return 1, nil
}

func (r *memoryLeadRepo) isFollowUpStatus(st Status) bool {
	for _, candidate := range followUpStatuses {
		if st == candidate {
			return true
		}
	}
	return false
}

func (r *memoryLeadRepo) PendingFollowUps(ctx context.Context, ownerID int64, now time.Time) ([]Lead, error) {
	var out []Lead
	for _, lead := range r.leads {
		if lead.OwnerID != ownerID || !r.isFollowUpStatus(lead.Status) {
			continue
		}
		if lead.NextFollowUpDate == nil || lead.NextFollowUpDate.After(now) {
			continue
		}
		out = append(out, lead)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextFollowUpDate.Before(*out[j].NextFollowUpDate)
	})
	return out, nil
}

func (r *memoryLeadRepo) CountPendingFollowUps(ctx context.Context, ownerID *int64, now time.Time) (int, error) {
	count := 0
	for _, lead := range r.leads {
		if ownerID != nil && lead.OwnerID != *ownerID {
			continue
		}
		if !r.isFollowUpStatus(lead.Status) {
			continue
		}
		if lead.NextFollowUpDate != nil && !lead.NextFollowUpDate.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *memoryLeadRepo) CountByStatus(ctx context.Context, ownerID *int64) (map[Status]int, error) {
	result := make(map[Status]int)
	for _, lead := range r.leads {
		if ownerID != nil && lead.OwnerID != *ownerID {
			continue
		}
		result[lead.Status]++
	}
	return result, nil
}

func (r *memoryLeadRepo) List(ctx context.Context, f ListFilter) ([]Lead, error) {
	var out []Lead
	for _, lead := range r.leads {
		if f.OwnerID != nil && lead.OwnerID != *f.OwnerID {
			continue
		}
		if f.Status != nil && lead.Status != *f.Status {
			continue
		}
		if f.Search != nil && !strings.Contains(lead.Name, *f.Search) && !strings.Contains(lead.Email, *f.Search) {
			continue
		}
		out = append(out, lead)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryLeadRepo) Recent(ctx context.Context, ownerID *int64, limit int) ([]Lead, error) {
	var out []Lead
	for _, lead := range r.leads {
		if ownerID != nil && lead.OwnerID != *ownerID {
			continue
		}
		out = append(out, lead)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryLeadRepo) OwnersWithDueFollowUps(ctx context.Context, now time.Time) ([]int64, error) {
	seen := make(map[int64]bool)
	var out []int64
	for _, lead := range r.leads {
		if !r.isFollowUpStatus(lead.Status) {
			continue
		}
		if lead.NextFollowUpDate == nil || lead.NextFollowUpDate.After(now) {
			continue
		}
		if !seen[lead.OwnerID] {
			seen[lead.OwnerID] = true
			out = append(out, lead.OwnerID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTimePtr(t time.Time) *time.Time { return &t }

func newTestService(t *testing.T) (*Service, *memoryLeadRepo) {
	t.Helper()
	repo := newMemoryLeadRepo()
	return NewService(repo, testLogger()), repo
}

func TestCreateLeadForcesNewStatus(t *testing.T) {
	svc, _ := newTestService(t)

	lead, err := svc.Create(context.Background(), 3, CreateLeadRequest{
		Name:  "Bruno Dias",
		Email: "bruno@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, StatusNew, lead.Status)
	require.Equal(t, int64(3), lead.OwnerID)
}

func TestCreateLeadValidatesEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), 3, CreateLeadRequest{
		Name:  "Bruno Dias",
		Email: "not-an-email",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateLeadPatch(t *testing.T) {
	svc, _ := newTestService(t)

	lead, err := svc.Create(context.Background(), 3, CreateLeadRequest{
		Name:  "Bruno Dias",
		Email: "bruno@example.com",
		Notes: strPtr("met at expo"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), lead.ID, 3, UpdateLeadRequest{
		Status: shared.PatchValue(StatusContacted),
		Notes:  shared.PatchNull[string](),
	})
	require.NoError(t, err)
	require.Equal(t, StatusContacted, updated.Status)
	require.Nil(t, updated.Notes)
	require.Equal(t, "Bruno Dias", updated.Name)
}

func TestUpdateLeadRejectsNullName(t *testing.T) {
	svc, _ := newTestService(t)

	lead, err := svc.Create(context.Background(), 3, CreateLeadRequest{Name: "X", Email: "x@example.com"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), lead.ID, 3, UpdateLeadRequest{
		Name: shared.PatchNull[string](),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateCannotSetConvertedStatus(t *testing.T) {
	svc, _ := newTestService(t)

	lead, err := svc.Create(context.Background(), 3, CreateLeadRequest{Name: "X", Email: "x@example.com"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), lead.ID, 3, UpdateLeadRequest{
		Status: shared.PatchValue(StatusConverted),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestConversionIsOneWay(t *testing.T) {
	svc, repo := newTestService(t)
	at := time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return at })

	lead, err := svc.Create(context.Background(), 3, CreateLeadRequest{Name: "X", Email: "x@example.com"})
	require.NoError(t, err)

	converted, err := svc.MarkConverted(context.Background(), lead.ID, 3, 11)
	require.NoError(t, err)
	require.Equal(t, StatusConverted, converted.Status)
	require.Equal(t, at, *converted.ConvertedAt)
	require.Equal(t, int64(11), *converted.ConvertedToQuoteID)

	// Converting again does not re-stamp.
	_, err = svc.MarkConverted(context.Background(), lead.ID, 3, 12)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, int64(11), *repo.leads[lead.ID].ConvertedToQuoteID)

	// Converted leads refuse later status changes.
	_, err = svc.Update(context.Background(), lead.ID, 3, UpdateLeadRequest{
		Status: shared.PatchValue(StatusLost),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestConvertedLeadIsImmutable(t *testing.T) {
	svc, repo := newTestService(t)

	lead, err := svc.Create(context.Background(), 3, CreateLeadRequest{Name: "X", Email: "x@example.com"})
	require.NoError(t, err)

	_, err = svc.MarkConverted(context.Background(), lead.ID, 3, 11)
	require.NoError(t, err)

	// Not just status: notes, contact fields, and dates stay frozen too.
	_, err = svc.Update(context.Background(), lead.ID, 3, UpdateLeadRequest{
		Notes: shared.PatchValue("post-conversion edit"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(context.Background(), lead.ID, 3, UpdateLeadRequest{
		Phone: shared.PatchValue("+351 000 000"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Nil(t, repo.leads[lead.ID].Notes)
}

func TestOwnershipScopeBehavesAsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	lead, err := svc.Create(context.Background(), 3, CreateLeadRequest{Name: "X", Email: "x@example.com"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), lead.ID, 4)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.MarkConverted(context.Background(), lead.ID, 4, 9)
	require.ErrorIs(t, err, shared.ErrNotFound)

	err = svc.Delete(context.Background(), lead.ID, 4)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPendingFollowUpsFilterAndOrder(t *testing.T) {
	svc, repo := newTestService(t)
	now := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })

	seed := func(name string, status Status, followUp *time.Time) {
		_, _ = repo.Create(context.Background(), Lead{
			OwnerID:          3,
			Name:             name,
			Email:            name + "@example.com",
			Status:           status,
			NextFollowUpDate: followUp,
		})
	}

	seed("overdue", StatusContacted, testTimePtr(now.AddDate(0, 0, -3)))
	seed("due-now", StatusNegotiating, testTimePtr(now))
	seed("future", StatusInterested, testTimePtr(now.AddDate(0, 0, 2)))
	seed("new-stage", StatusNew, testTimePtr(now.AddDate(0, 0, -1)))
	seed("no-date", StatusContacted, nil)

	due, err := svc.GetPendingFollowUps(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "overdue", due[0].Name)
	require.Equal(t, "due-now", due[1].Name)
}

func TestStatsComputesConversionRate(t *testing.T) {
	svc, repo := newTestService(t)

	for i := 0; i < 7; i++ {
		_, _ = repo.Create(context.Background(), Lead{OwnerID: 3, Name: "l", Email: "l@example.com", Status: StatusNew})
	}
	for i := 0; i < 3; i++ {
		_, _ = repo.Create(context.Background(), Lead{OwnerID: 3, Name: "c", Email: "c@example.com", Status: StatusConverted})
	}

	owner := int64(3)
	stats, err := svc.GetStats(context.Background(), &owner)
	require.NoError(t, err)
	require.Equal(t, 10, stats.Total)
	require.Equal(t, 3, stats.Converted)
	require.Equal(t, 30.0, stats.ConversionRate)
}

func TestStatsEmptyFunnel(t *testing.T) {
	svc, _ := newTestService(t)

	owner := int64(3)
	stats, err := svc.GetStats(context.Background(), &owner)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Total)
	require.Equal(t, 0.0, stats.ConversionRate)
}

func strPtr(s string) *string { return &s }
