// Package services orchestrates bill operations across the store, the view
// cache and the change-event publisher.
package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/metrics"
	"budget/internal/store"

	"golang.org/x/sync/singleflight"
)

// EventPublisher delivers bill change events. *amqp.Client implements it.
type EventPublisher interface {
	PublishBillEvent(ctx context.Context, msg *amqp.BillEventMessage) error
}

var _ EventPublisher = (*amqp.Client)(nil)

type BillServiceConfig struct {
	// CacheSize bounds the number of cached views (default: 128).
	CacheSize int
	// CacheTTL bounds the age of a cached view (default: 5m).
	CacheTTL time.Duration
	// Now is the clock used for "today" (default: time.Now).
	Now func() time.Time
	// Location is the time zone in which "today" is taken (default: Local).
	Location *time.Location
	Metrics  *metrics.Metrics
}

func DefaultBillServiceConfig() BillServiceConfig {
	return BillServiceConfig{
		CacheSize: 128,
		CacheTTL:  5 * time.Minute,
		Now:       time.Now,
		Location:  time.Local,
	}
}

// BillService is safe for concurrent use. Views are cached under a generation
// number that every committed mutation bumps, so a view computed before a
// write is never served after it.
type BillService struct {
	store      store.Store
	publisher  EventPublisher
	views      *cache.LRUCache[any]
	flight     singleflight.Group
	generation atomic.Uint64
	now        func() time.Time
	loc        *time.Location
	metrics    *metrics.Metrics
}

// NewBillService wires the service. publisher may be nil, which disables
// change events.
func NewBillService(st store.Store, publisher EventPublisher, cfg BillServiceConfig) *BillService {
	def := DefaultBillServiceConfig()
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	return &BillService{
		store:     st,
		publisher: publisher,
		views:     cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL),
		now:       cfg.Now,
		loc:       cfg.Location,
		metrics:   cfg.Metrics,
	}
}

// ViewCache exposes the cache so a cache.Manager can sweep it.
func (s *BillService) ViewCache() cache.Cleaner {
	return s.views
}

// Today is the current calendar date in the service's time zone.
func (s *BillService) Today() core.Date {
	return core.DateOf(s.now().In(s.loc))
}

func (s *BillService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *BillService) CreateBill(ctx context.Context, form core.BillForm) (core.Bill, error) {
	b, err := form.Parse()
	if err != nil {
		return core.Bill{}, err
	}
	created, err := s.store.CreateBill(ctx, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}
	s.afterMutation(ctx, amqp.ActionCreated, created)
	return created, nil
}

// UpdateBill validates form and overwrites bill id in place (last write wins).
func (s *BillService) UpdateBill(ctx context.Context, id int64, form core.BillForm) (core.Bill, error) {
	b, err := form.Parse()
	if err != nil {
		return core.Bill{}, err
	}
	b.ID = id
	updated, err := s.store.UpdateBill(ctx, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill %d: %w", id, err)
	}
	s.afterMutation(ctx, amqp.ActionUpdated, updated)
	return updated, nil
}

func (s *BillService) DeleteBill(ctx context.Context, id int64) (core.Bill, error) {
	deleted, err := s.store.DeleteBill(ctx, id)
	if err != nil {
		return core.Bill{}, fmt.Errorf("delete bill %d: %w", id, err)
	}
	s.afterMutation(ctx, amqp.ActionDeleted, deleted)
	return deleted, nil
}

func (s *BillService) GetBill(ctx context.Context, id int64) (core.Bill, error) {
	b, err := s.store.GetBill(ctx, id)
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %d: %w", id, err)
	}
	return b, nil
}

// MonthView returns the bills of one calendar month with their total, every
// year that has bills, and the pay-period summary for today.
func (s *BillService) MonthView(ctx context.Context, year int, month time.Month) (core.MonthView, error) {
	if month < time.January || month > time.December {
		return core.MonthView{}, fmt.Errorf("month %d: %w", month, core.ErrNotFound)
	}
	today := s.Today()
	key := fmt.Sprintf("month|%04d-%02d|%s", year, month, today)
	return cached(ctx, s, key, func(ctx context.Context) (core.MonthView, error) {
		bills, err := s.store.ListBillsByMonth(ctx, year, month)
		if err != nil {
			return core.MonthView{}, fmt.Errorf("list month bills: %w", err)
		}
		years, err := s.store.BillYears(ctx)
		if err != nil {
			return core.MonthView{}, fmt.Errorf("list bill years: %w", err)
		}
		summary, err := s.loadPayPeriods(ctx, today)
		if err != nil {
			return core.MonthView{}, err
		}
		return core.MonthView{
			Year:       year,
			Month:      month,
			Bills:      bills,
			Total:      core.Total(bills),
			Years:      years,
			PayPeriods: summary,
		}, nil
	})
}

// PayPeriodSummary returns the pay period containing ref and the next one,
// each with its bills and total.
func (s *BillService) PayPeriodSummary(ctx context.Context, ref core.Date) (core.PayPeriodSummary, error) {
	key := "payperiods|" + ref.String()
	return cached(ctx, s, key, func(ctx context.Context) (core.PayPeriodSummary, error) {
		return s.loadPayPeriods(ctx, ref)
	})
}

// RangeView returns the bills due in p and their total.
func (s *BillService) RangeView(ctx context.Context, p core.Period) (core.PeriodTotal, error) {
	if err := p.Validate(); err != nil {
		return core.PeriodTotal{}, err
	}
	key := "range|" + p.String()
	return cached(ctx, s, key, func(ctx context.Context) (core.PeriodTotal, error) {
		bills, err := s.store.ListBillsInRange(ctx, p.Start, p.End)
		if err != nil {
			return core.PeriodTotal{}, fmt.Errorf("list bills in range: %w", err)
		}
		return core.SummarizePeriod(bills, p), nil
	})
}

// BillYears returns every year that has at least one bill, ascending.
func (s *BillService) BillYears(ctx context.Context) ([]int, error) {
	years, err := s.store.BillYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bill years: %w", err)
	}
	return years, nil
}

// ListBills returns every bill ordered by due date.
func (s *BillService) ListBills(ctx context.Context) ([]core.Bill, error) {
	return s.store.ListBills(ctx)
}

func (s *BillService) loadPayPeriods(ctx context.Context, ref core.Date) (core.PayPeriodSummary, error) {
	current, next := core.PayPeriods(ref)
	bills, err := s.store.ListBillsInRange(ctx, current.Start, next.End)
	if err != nil {
		return core.PayPeriodSummary{}, fmt.Errorf("list pay period bills: %w", err)
	}
	return core.SummarizePayPeriods(bills, ref), nil
}

// cached serves key from the view cache, computing it at most once across
// concurrent callers on a miss.
func cached[T any](ctx context.Context, s *BillService, key string, load func(context.Context) (T, error)) (T, error) {
	key = fmt.Sprintf("%d|%s", s.generation.Load(), key)
	if v, ok := s.views.Get(key); ok {
		s.metrics.ViewCacheLookup(true)
		return v.(T), nil
	}
	s.metrics.ViewCacheLookup(false)

	v, err, _ := s.flight.Do(key, func() (any, error) {
		// The first caller's context governs the shared load.
		res, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.views.Set(key, res)
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (s *BillService) afterMutation(ctx context.Context, action amqp.Action, b core.Bill) {
	s.generation.Add(1)
	s.views.Clear()
	s.metrics.BillChanged(string(action))

	logger := applog.FromContext(ctx)
	logger.InfoContext(ctx, "Bill "+string(action),
		applog.NewFields().WithBill(b).WithOperation(string(action)).ToSlice()...)

	if s.publisher == nil {
		return
	}
	msg := amqp.NewBillEventMessage(b.ID, action, b.Version, b.DueDate.String())
	err := s.publisher.PublishBillEvent(ctx, msg)
	s.metrics.EventPublished(err)
	if err != nil {
		// The change is committed; the mirror catches up on its next resync.
		logger.WarnContext(ctx, "Failed to publish bill event",
			applog.FieldBillID, b.ID, "action", action, applog.FieldError, err)
	}
}
