package dashboard

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rentaldesk/rentaldesk/internal/commissions"
	"github.com/rentaldesk/rentaldesk/internal/leads"
	"github.com/rentaldesk/rentaldesk/internal/quotes"
	"github.com/rentaldesk/rentaldesk/internal/shared"
)

type stubQuotes struct {
	calls        atomic.Int64
	created      map[string]int
	converted    map[string]int
	estimatedSum float64
	byStatus     map[quotes.Status]int
	recent       []quotes.Quote
}

func windowKey(from, to time.Time) string {
	return from.Format("2006-01-02") + "/" + to.Format("2006-01-02")
}

func (s *stubQuotes) CountCreatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (int, error) {
	s.calls.Add(1)
	return s.created[windowKey(from, to)], nil
}

func (s *stubQuotes) CountConvertedUpdatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (int, error) {
	s.calls.Add(1)
	return s.converted[windowKey(from, to)], nil
}

func (s *stubQuotes) SumEstimatedCreatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (float64, error) {
	s.calls.Add(1)
	return s.estimatedSum, nil
}

func (s *stubQuotes) CountByStatus(ctx context.Context, ownerID *int64) (map[quotes.Status]int, error) {
	s.calls.Add(1)
	return s.byStatus, nil
}

func (s *stubQuotes) Recent(ctx context.Context, ownerID *int64, limit int) ([]quotes.Quote, error) {
	s.calls.Add(1)
	if len(s.recent) > limit {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

type stubCommissions struct {
	calls   atomic.Int64
	summary commissions.Summary
}

func (s *stubCommissions) GetSummary(ctx context.Context, ownerID *int64) (*commissions.Summary, error) {
	s.calls.Add(1)
	out := s.summary
	return &out, nil
}

type stubLeads struct {
	calls  atomic.Int64
	stats  leads.Stats
	recent []leads.Lead
}

func (s *stubLeads) GetStats(ctx context.Context, ownerID *int64) (*leads.Stats, error) {
	s.calls.Add(1)
	out := s.stats
	return &out, nil
}

func (s *stubLeads) Recent(ctx context.Context, ownerID *int64, limit int) ([]leads.Lead, error) {
	s.calls.Add(1)
	return s.recent, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time {
	return time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
}

func newStubs() (*stubQuotes, *stubCommissions, *stubLeads) {
	q := &stubQuotes{
		created: map[string]int{
			"2025-08-01/2025-09-01": 4,
			"2025-07-01/2025-08-01": 2,
		},
		converted: map[string]int{
			"2025-08-01/2025-09-01": 2,
			"2025-07-01/2025-08-01": 1,
		},
		estimatedSum: 4200,
		byStatus:     map[quotes.Status]int{quotes.StatusPending: 2, quotes.StatusConverted: 2},
		recent: []quotes.Quote{
			{ID: 9, EventType: "wedding", Status: quotes.StatusPending, CreatedAt: fixedNow()},
		},
	}
	c := &stubCommissions{
		summary: commissions.Summary{
			Month: commissions.WindowTotal{Total: 420, Count: 4},
		},
	}
	l := &stubLeads{
		stats: leads.Stats{Total: 10, Converted: 3, ConversionRate: 30, PendingFollowUps: 2},
		recent: []leads.Lead{
			{ID: 4, Name: "Ana", Email: "ana@example.com", Status: leads.StatusContacted, CreatedAt: fixedNow()},
		},
	}
	return q, c, l
}

func newTestService(t *testing.T) (*Service, *stubQuotes, *stubCommissions, *stubLeads, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q, c, l := newStubs()
	svc := NewService(testLogger(), q, c, l, NewCache(client, time.Minute))
	svc.WithNow(fixedNow)
	return svc, q, c, l, client
}

func TestGetAssemblesSections(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	admin := shared.Identity{UserID: 1, Role: shared.RoleAdmin}

	d, err := svc.Get(context.Background(), admin)
	require.NoError(t, err)

	require.Equal(t, 4, d.Quotes.Current)
	require.Equal(t, 2, d.Quotes.Previous)
	require.Equal(t, 100.0, d.Quotes.ChangePct)

	require.Equal(t, 2, d.QuotesWon.Current)
	require.Equal(t, 1, d.QuotesWon.Previous)
	require.Equal(t, 100.0, d.QuotesWon.ChangePct)

	require.Equal(t, 50.0, d.ConversionRate.Current)
	require.Equal(t, 50.0, d.ConversionRate.Previous)
	require.Equal(t, 0.0, d.ConversionRate.ChangePct)

	require.Equal(t, 4200.0, d.EstimatedTotalMonth)
	require.Equal(t, 420.0, d.Commissions.Month.Total)
	require.Equal(t, 10, d.Leads.Total)
	require.Equal(t, 2, d.PendingFollowUps)
	require.Len(t, d.RecentQuotes, 1)
	require.Len(t, d.RecentLeads, 1)
	require.Equal(t, 2, d.QuotesByStatus[quotes.StatusPending])
}

func TestGetZeroBaselineChangeIsZero(t *testing.T) {
	svc, q, _, _, _ := newTestService(t)
	q.created = map[string]int{"2025-08-01/2025-09-01": 3}
	q.converted = map[string]int{}

	d, err := svc.Get(context.Background(), shared.Identity{UserID: 1, Role: shared.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, 3, d.Quotes.Current)
	require.Equal(t, 0, d.Quotes.Previous)
	require.Equal(t, 0.0, d.Quotes.ChangePct)
	require.Equal(t, 0.0, d.ConversionRate.Previous)
}

func TestGetServesSecondReadFromCache(t *testing.T) {
	svc, q, c, l, _ := newTestService(t)
	admin := shared.Identity{UserID: 1, Role: shared.RoleAdmin}

	_, err := svc.Get(context.Background(), admin)
	require.NoError(t, err)
	firstQuoteCalls := q.calls.Load()
	require.Positive(t, firstQuoteCalls)

	d, err := svc.Get(context.Background(), admin)
	require.NoError(t, err)
	require.Equal(t, 4, d.Quotes.Current)
	require.Equal(t, firstQuoteCalls, q.calls.Load())
	require.Equal(t, int64(1), c.calls.Load())
	require.Equal(t, int64(2), l.calls.Load())
}

func TestScopesCacheSeparately(t *testing.T) {
	svc, q, _, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), shared.Identity{UserID: 1, Role: shared.RoleAdmin})
	require.NoError(t, err)
	adminCalls := q.calls.Load()

	// A commercial scope misses the admin cache entry and loads again.
	_, err = svc.Get(context.Background(), shared.Identity{UserID: 7, Role: shared.RoleCommercial})
	require.NoError(t, err)
	require.Greater(t, q.calls.Load(), adminCalls)
}

func TestBumpInvalidatesCache(t *testing.T) {
	svc, q, _, _, client := newTestService(t)
	admin := shared.Identity{UserID: 1, Role: shared.RoleAdmin}
	cache := NewCache(client, time.Minute)

	_, err := svc.Get(context.Background(), admin)
	require.NoError(t, err)
	before := q.calls.Load()

	require.NoError(t, cache.Bump(context.Background()))

	_, err = svc.Get(context.Background(), admin)
	require.NoError(t, err)
	require.Greater(t, q.calls.Load(), before)
}

func TestPrimePopulatesCache(t *testing.T) {
	svc, q, _, _, _ := newTestService(t)

	require.NoError(t, svc.Prime(context.Background(), nil))
	primed := q.calls.Load()

	_, err := svc.Get(context.Background(), shared.Identity{UserID: 1, Role: shared.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, primed, q.calls.Load())
}

func TestNilCacheClientDegradesToLoader(t *testing.T) {
	q, c, l := newStubs()
	svc := NewService(testLogger(), q, c, l, NewCache(nil, time.Minute))
	svc.WithNow(fixedNow)

	d, err := svc.Get(context.Background(), shared.Identity{UserID: 1, Role: shared.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, 4, d.Quotes.Current)

	_, err = svc.Get(context.Background(), shared.Identity{UserID: 1, Role: shared.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, int64(2), c.calls.Load())
}
