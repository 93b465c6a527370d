package dashboard

import (
	"context"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rentaldesk/rentaldesk/internal/commissions"
	"github.com/rentaldesk/rentaldesk/internal/leads"
	"github.com/rentaldesk/rentaldesk/internal/quotes"
	"github.com/rentaldesk/rentaldesk/internal/shared"
)

// QuoteReader exposes the quote aggregates the dashboard relies on.
type QuoteReader interface {
	CountCreatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (int, error)
	CountConvertedUpdatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (int, error)
	SumEstimatedCreatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (float64, error)
	CountByStatus(ctx context.Context, ownerID *int64) (map[quotes.Status]int, error)
	Recent(ctx context.Context, ownerID *int64, limit int) ([]quotes.Quote, error)
}

// CommissionReader exposes the commission rollup.
type CommissionReader interface {
	GetSummary(ctx context.Context, ownerID *int64) (*commissions.Summary, error)
}

// LeadReader exposes the lead aggregates.
type LeadReader interface {
	GetStats(ctx context.Context, ownerID *int64) (*leads.Stats, error)
	Recent(ctx context.Context, ownerID *int64, limit int) ([]leads.Lead, error)
}

const recentLimit = 5

// Service assembles the per-owner dashboard from the quote, commission and
// lead modules. Sections are read concurrently and independently, so a row
// committed mid-assembly may appear in one section and not another.
type Service struct {
	quotes      QuoteReader
	commissions CommissionReader
	leads       LeadReader
	cache       *Cache
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires the module readers with the cache helper.
func NewService(logger *slog.Logger, q QuoteReader, c CommissionReader, l LeadReader, cache *Cache) *Service {
	return &Service{
		quotes:      q,
		commissions: c,
		leads:       l,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Get returns the dashboard for the identity's visibility scope. Admins get
// the unscoped rollup, commercial users only their own rows.
func (s *Service) Get(ctx context.Context, identity shared.Identity) (*Dashboard, error) {
	scope := shared.ScopeFor(identity)
	var ownerID *int64
	if !scope.All {
		ownerID = &scope.OwnerID
	}

	period := s.now().Format("2006-01")
	key, err := s.cache.BuildKey(ctx, keyOverview(ownerID, period))
	if err != nil {
		return nil, err
	}

	var out Dashboard
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.assemble(ctx, ownerID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Prime populates the cache entry for a scope ahead of traffic. A nil
// ownerID primes the administrative rollup.
func (s *Service) Prime(ctx context.Context, ownerID *int64) error {
	period := s.now().Format("2006-01")
	key, err := s.cache.BuildKey(ctx, keyOverview(ownerID, period))
	if err != nil {
		return err
	}
	var out Dashboard
	return s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.assemble(ctx, ownerID)
	})
}

func (s *Service) assemble(ctx context.Context, ownerID *int64) (*Dashboard, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nextMonth := monthStart.AddDate(0, 1, 0)
	prevMonth := monthStart.AddDate(0, -1, 0)

	var (
		quotesCur, quotesPrev int
		wonCur, wonPrev       int
		estimatedMonth        float64
		summary               *commissions.Summary
		stats                 *leads.Stats
		recentQuotes          []quotes.Quote
		recentLeads           []leads.Lead
		byStatus              map[quotes.Status]int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quotesCur, err = s.quotes.CountCreatedBetween(ctx, ownerID, monthStart, nextMonth)
		return err
	})
	g.Go(func() error {
		var err error
		quotesPrev, err = s.quotes.CountCreatedBetween(ctx, ownerID, prevMonth, monthStart)
		return err
	})
	g.Go(func() error {
		var err error
		wonCur, err = s.quotes.CountConvertedUpdatedBetween(ctx, ownerID, monthStart, nextMonth)
		if err != nil {
			return err
		}
		wonPrev, err = s.quotes.CountConvertedUpdatedBetween(ctx, ownerID, prevMonth, monthStart)
		return err
	})
	g.Go(func() error {
		var err error
		estimatedMonth, err = s.quotes.SumEstimatedCreatedBetween(ctx, ownerID, monthStart, nextMonth)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = s.commissions.GetSummary(ctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.leads.GetStats(ctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		recentQuotes, err = s.quotes.Recent(ctx, ownerID, recentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		recentLeads, err = s.leads.Recent(ctx, ownerID, recentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = s.quotes.CountByStatus(ctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard assembly failed", slog.Any("error", err))
		return nil, err
	}

	rateCur := conversionRate(wonCur, quotesCur)
	ratePrev := conversionRate(wonPrev, quotesPrev)

	d := &Dashboard{
		Quotes: MonthMetric{
			Current:   quotesCur,
			Previous:  quotesPrev,
			ChangePct: changePct(float64(quotesCur), float64(quotesPrev)),
		},
		QuotesWon: MonthMetric{
			Current:   wonCur,
			Previous:  wonPrev,
			ChangePct: changePct(float64(wonCur), float64(wonPrev)),
		},
		ConversionRate: RateMetric{
			Current:   rateCur,
			Previous:  ratePrev,
			ChangePct: changePct(rateCur, ratePrev),
		},
		EstimatedTotalMonth: estimatedMonth,
		Commissions:         summary,
		Leads:               stats,
		RecentQuotes:        summarizeQuotes(recentQuotes),
		RecentLeads:         summarizeLeads(recentLeads),
		QuotesByStatus:      byStatus,
		GeneratedAt:         now,
	}
	if stats != nil {
		d.PendingFollowUps = stats.PendingFollowUps
	}
	return d, nil
}

// changePct is the month-over-month delta in percent, rounded to a whole
// number. A zero baseline yields 0 rather than infinity.
func changePct(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return math.Round((current - previous) / previous * 100)
}

func conversionRate(won, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(won)/float64(total)*100*100) / 100
}

func summarizeQuotes(list []quotes.Quote) []QuoteSummary {
	out := make([]QuoteSummary, 0, len(list))
	for _, q := range list {
		out = append(out, QuoteSummary{
			ID:             q.ID,
			CustomerName:   q.CustomerName,
			EventType:      q.EventType,
			EstimatedTotal: q.EstimatedTotal,
			Status:         string(q.Status),
			CreatedAt:      q.CreatedAt,
		})
	}
	return out
}

func summarizeLeads(list []leads.Lead) []LeadSummary {
	out := make([]LeadSummary, 0, len(list))
	for _, l := range list {
		out = append(out, LeadSummary{
			ID:               l.ID,
			Name:             l.Name,
			Email:            l.Email,
			Status:           string(l.Status),
			NextFollowUpDate: l.NextFollowUpDate,
			CreatedAt:        l.CreatedAt,
		})
	}
	return out
}
