package reservation

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/nekogravitycat/campus-rental-backend/internal/calendar"
	"github.com/nekogravitycat/campus-rental-backend/internal/conflict"
	"github.com/nekogravitycat/campus-rental-backend/internal/resource"
)

// MemoryRepository is an in-process Repository. Transactions run one at a time
// and their writes are applied only on commit, which gives the same admission
// guarantees as the Postgres store. It backs tests and local demos.
type MemoryRepository struct {
	cfg TxConfig
	sem chan struct{}

	mu           sync.RWMutex
	reservations map[string]*Reservation
	resources    map[string]struct{}
	counters     map[string]int
}

func NewMemoryRepository(cfg TxConfig) *MemoryRepository {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MemoryRepository{
		cfg:          cfg,
		sem:          make(chan struct{}, 1),
		reservations: make(map[string]*Reservation),
		resources:    make(map[string]struct{}),
		counters:     make(map[string]int),
	}
}

// AddResources registers resource ids that reservations may reference.
func (m *MemoryRepository) AddResources(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.resources[id] = struct{}{}
	}
}

func (m *MemoryRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return ErrTransient.WithCause(ctx.Err())
	}
	defer func() { <-m.sem }()

	tx := &memTx{
		repo:     m,
		staged:   make(map[string]*Reservation),
		counters: make(map[string]int),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return ErrTransient.WithCause(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range tx.staged {
		if r == nil {
			delete(m.reservations, id)
			continue
		}
		m.reservations[id] = r
	}
	for day, seq := range tx.counters {
		m.counters[day] = seq
	}
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.clone(), nil
}

func (m *MemoryRepository) List(_ context.Context, filter Filter) ([]*Reservation, int, error) {
	m.mu.RLock()
	var matched []*Reservation
	for _, r := range m.reservations {
		if filter.matches(r) {
			matched = append(matched, r.clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.StartTime.Equal(b.StartTime) {
			if filter.SortOrder == "DESC" {
				return a.StartTime.After(b.StartTime)
			}
			return a.StartTime.Before(b.StartTime)
		}
		return a.ID < b.ID
	})

	total := len(matched)
	if filter.PageSize > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.PageSize
		}
		if offset >= total {
			return nil, total, nil
		}
		matched = matched[offset:min(offset+filter.PageSize, total)]
	}
	return matched, total, nil
}

func (m *MemoryRepository) CountByStatus(_ context.Context, status Status) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.reservations {
		if r.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) ListBlocking(_ context.Context, resourceIDs []string, rng calendar.Range) ([]conflict.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return blockingBookings(m.reservations, nil, resourceIDs, rng), nil
}

func (f Filter) matches(r *Reservation) bool {
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.ResourceID != "" && !slices.Contains(r.ResourceIDs, f.ResourceID) {
		return false
	}
	if f.From != nil && !r.EndTime.After(*f.From) {
		return false
	}
	if f.To != nil && !r.StartTime.Before(*f.To) {
		return false
	}
	return true
}

// blockingBookings flattens reservations into per-resource bookings, preferring
// staged versions over committed ones. A nil staged entry is a pending delete.
func blockingBookings(committed, staged map[string]*Reservation, resourceIDs []string, rng calendar.Range) []conflict.Booking {
	var out []conflict.Booking
	add := func(r *Reservation) {
		if r == nil || !r.Status.Blocking() || !r.Range().Overlaps(rng) {
			return
		}
		for _, id := range r.ResourceIDs {
			if slices.Contains(resourceIDs, id) {
				out = append(out, conflict.Booking{ReservationID: r.ID, ResourceID: id, Range: r.Range()})
			}
		}
	}
	for id, r := range committed {
		if _, ok := staged[id]; ok {
			continue
		}
		add(r)
	}
	for _, r := range staged {
		add(r)
	}
	return out
}

type memTx struct {
	repo     *MemoryRepository
	staged   map[string]*Reservation
	counters map[string]int
}

func (t *memTx) LockResources(_ context.Context, ids []string) error {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	var missing []string
	for _, id := range ids {
		if _, ok := t.repo.resources[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return resource.ErrNotFound.WithDetails(map[string]any{"resource_ids": slices.Compact(missing)})
	}
	return nil
}

func (t *memTx) GetForUpdate(_ context.Context, id string) (*Reservation, error) {
	if r, ok := t.staged[id]; ok {
		if r == nil {
			return nil, ErrNotFound
		}
		return r.clone(), nil
	}

	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	r, ok := t.repo.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.clone(), nil
}

func (t *memTx) ListBlocking(_ context.Context, resourceIDs []string, rng calendar.Range) ([]conflict.Booking, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	return blockingBookings(t.repo.reservations, t.staged, resourceIDs, rng), nil
}

func (t *memTx) NextDaySequence(_ context.Context, day string) (int, error) {
	seq, ok := t.counters[day]
	if !ok {
		t.repo.mu.RLock()
		seq = t.repo.counters[day]
		t.repo.mu.RUnlock()
	}
	seq++
	t.counters[day] = seq
	return seq, nil
}

func (t *memTx) Create(_ context.Context, r *Reservation) error {
	t.staged[r.ID] = r.clone()
	return nil
}

func (t *memTx) Update(ctx context.Context, r *Reservation) error {
	if _, err := t.GetForUpdate(ctx, r.ID); err != nil {
		return err
	}
	t.staged[r.ID] = r.clone()
	return nil
}

func (t *memTx) Delete(ctx context.Context, id string) error {
	if _, err := t.GetForUpdate(ctx, id); err != nil {
		return err
	}
	t.staged[id] = nil
	return nil
}
