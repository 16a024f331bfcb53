// Package memory is an in-process bill store used for DATA_BACKEND=memory
// and in tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]core.Bill
	now    func() time.Time
}

func New(seed ...core.Bill) *Store {
	s := &Store{nextID: 1, items: make(map[int64]core.Bill), now: time.Now}
	for _, b := range seed {
		_, _ = s.CreateBill(context.Background(), b)
	}
	return s
}

// NewFromFile seeds the store from a file with one "YYYY-MM-DD|name|amount"
// bill per line. Blank lines and lines starting with # are skipped.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	s := New()
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, "|")
		if len(parts) != 3 {
			return nil, fmt.Errorf("seed line %d: expected 3 fields, got %d", line, len(parts))
		}
		b, err := core.BillForm{DueDate: parts[0], BillName: parts[1], AmountDue: parts[2]}.Parse()
		if err != nil {
			return nil, fmt.Errorf("seed line %d: %w", line, err)
		}
		if _, err := s.CreateBill(context.Background(), b); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return s, nil
}

func (s *Store) CreateBill(_ context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	b.ID = s.nextID
	b.Version = 1
	b.CreatedAt, b.UpdatedAt = now, now
	s.nextID++
	s.items[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBill(_ context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[b.ID]
	if !ok {
		return core.Bill{}, core.ErrNotFound
	}
	cur.Name = b.Name
	cur.DueDate = b.DueDate
	cur.AmountDue = b.AmountDue
	cur.Version++
	cur.UpdatedAt = s.now().UTC()
	s.items[b.ID] = cur
	return cur, nil
}

func (s *Store) DeleteBill(_ context.Context, id int64) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.items[id]
	if !ok {
		return core.Bill{}, core.ErrNotFound
	}
	delete(s.items, id)
	return b, nil
}

func (s *Store) GetBill(_ context.Context, id int64) (core.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.items[id]
	if !ok {
		return core.Bill{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBills(_ context.Context) ([]core.Bill, error) {
	out := s.snapshot()
	core.SortByDueDate(out)
	return out, nil
}

func (s *Store) ListBillsByMonth(_ context.Context, year int, month time.Month) ([]core.Bill, error) {
	return core.FilterByYearMonth(s.snapshot(), year, month), nil
}

func (s *Store) ListBillsInRange(_ context.Context, start, end core.Date) ([]core.Bill, error) {
	return core.FilterByDateRange(s.snapshot(), start, end), nil
}

func (s *Store) BillYears(_ context.Context) ([]int, error) {
	return core.DistinctYears(s.snapshot()), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// snapshot copies the bills out so callers never share the map.
func (s *Store) snapshot() []core.Bill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Bill, 0, len(s.items))
	for _, b := range s.items {
		out = append(out, b)
	}
	return out
}
