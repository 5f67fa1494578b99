package marketplace

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded Store used for local runs (STORE=memory) and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	services      map[string]*Service
	orders        map[string]*Order
	reviews       map[string]*Review
	reviewByOrder map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		services:      make(map[string]*Service),
		orders:        make(map[string]*Order),
		reviews:       make(map[string]*Review),
		reviewByOrder: make(map[string]string),
	}
}

func copyService(s *Service) *Service {
	cp := *s
	cp.Images = append([]string{}, s.Images...)
	return &cp
}

func (m *MemoryStore) CreateService(ctx context.Context, s *Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[s.ID] = copyService(s)
	return nil
}

func (m *MemoryStore) GetService(ctx context.Context, id string) (*Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return copyService(s), nil
}

func (m *MemoryStore) IncrementServiceViews(ctx context.Context, id string) (*Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	s.Views++
	return copyService(s), nil
}

func (m *MemoryStore) ListServices(ctx context.Context, f ServiceFilter) ([]ServiceSummary, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(f.Search)
	var out []ServiceSummary
	for _, s := range m.services {
		if !s.IsActive && !f.IncludeInactive {
			continue
		}
		if f.Category != "" && s.Category != f.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Title), search) &&
			!strings.Contains(strings.ToLower(s.Description), search) {
			continue
		}
		if f.MinPrice != nil && s.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && s.Price > *f.MaxPrice {
			continue
		}
		out = append(out, ServiceSummary{
			Service:      *copyService(s),
			MasterRating: m.masterStatsLocked(s.MasterID).Rating,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	switch f.SortBy {
	case "price":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case "rating":
		sort.SliceStable(out, func(i, j int) bool { return out[i].MasterRating > out[j].MasterRating })
	}
	total := int64(len(out))
	return page(out, f.Skip, f.Limit), total, nil
}

func (m *MemoryStore) ListServicesByMaster(ctx context.Context, masterID string) ([]Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Service
	for _, s := range m.services {
		if s.MasterID == masterID {
			out = append(out, *copyService(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (m *MemoryStore) UpdateService(ctx context.Context, id string, fn func(*Service) error) (*Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	cp := copyService(s)
	if err := fn(cp); err != nil {
		return nil, err
	}
	m.services[id] = copyService(cp)
	return cp, nil
}

func (m *MemoryStore) DeleteService(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[id]; !ok {
		return ErrServiceNotFound
	}
	delete(m.services, id)
	return nil
}

func (m *MemoryStore) CreateOrder(ctx context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[o.ServiceID]
	if !ok {
		return ErrServiceNotFound
	}
	cp := *o
	m.orders[o.ID] = &cp
	s.OrdersCount++
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, newError(KindNotFound, "order not found")
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, id string, fn func(*Order) error) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, newError(KindNotFound, "order not found")
	}
	cp := *o
	if err := fn(&cp); err != nil {
		return nil, err
	}
	saved := cp
	m.orders[id] = &saved
	return &cp, nil
}

func (m *MemoryStore) ListOrders(ctx context.Context, actorID string, f OrderFilter) ([]Order, int64, error) {
	return m.listOrders(f, func(o *Order) bool {
		switch f.Role {
		case RoleCustomer:
			return o.CustomerID == actorID
		case RoleMaster:
			return o.MasterID == actorID
		}
		return o.CustomerID == actorID || o.MasterID == actorID
	})
}

func (m *MemoryStore) ListAllOrders(ctx context.Context, f OrderFilter) ([]Order, int64, error) {
	return m.listOrders(f, func(*Order) bool { return true })
}

func (m *MemoryStore) listOrders(f OrderFilter, match func(*Order) bool) ([]Order, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Order
	for _, o := range m.orders {
		if !match(o) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	total := int64(len(out))
	return page(out, f.Skip, f.Limit), total, nil
}

func (m *MemoryStore) CreateReview(ctx context.Context, r *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reviewByOrder[r.OrderID]; exists {
		return ErrDuplicateReview
	}
	cp := *r
	m.reviews[r.ID] = &cp
	m.reviewByOrder[r.OrderID] = r.ID
	return nil
}

func (m *MemoryStore) GetReview(ctx context.Context, id string) (*Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, newError(KindNotFound, "review not found")
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) GetReviewByOrder(ctx context.Context, orderID string) (*Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.reviewByOrder[orderID]
	if !ok {
		return nil, newError(KindNotFound, "review not found")
	}
	cp := *m.reviews[id]
	return &cp, nil
}

func (m *MemoryStore) UpdateReview(ctx context.Context, id string, fn func(*Review) error) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, newError(KindNotFound, "review not found")
	}
	cp := *r
	if err := fn(&cp); err != nil {
		return nil, err
	}
	saved := cp
	m.reviews[id] = &saved
	return &cp, nil
}

func (m *MemoryStore) filterReviews(keep func(*Review) bool) []Review {
	var out []Review
	for _, r := range m.reviews {
		if keep(r) {
			out = append(out, *r)
		}
	}
	return out
}

func newestFirst(rs []Review) {
	sort.Slice(rs, func(i, j int) bool {
		return newerFirst(rs[i].CreatedAt, rs[j].CreatedAt, rs[i].ID, rs[j].ID)
	})
}

func (m *MemoryStore) ListReviewsByMaster(ctx context.Context, masterID string, skip, limit int) ([]Review, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.filterReviews(func(r *Review) bool { return r.MasterID == masterID })
	newestFirst(out)
	return page(out, skip, limit), int64(len(out)), nil
}

func (m *MemoryStore) ListReviewsByService(ctx context.Context, serviceID, sortBy string, skip, limit int) ([]Review, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.filterReviews(func(r *Review) bool { return r.ServiceID == serviceID })
	newestFirst(out)
	switch sortBy {
	case SortHighest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	case SortLowest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating < out[j].Rating })
	}
	return page(out, skip, limit), int64(len(out)), nil
}

func (m *MemoryStore) ListDisputedReviews(ctx context.Context, skip, limit int) ([]Review, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.filterReviews(func(r *Review) bool { return r.IsDisputed })
	newestFirst(out)
	return page(out, skip, limit), int64(len(out)), nil
}

func (m *MemoryStore) MasterStats(ctx context.Context, masterID string) (*MasterStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.masterStatsLocked(masterID)
	return &st, nil
}

func (m *MemoryStore) masterStatsLocked(masterID string) MasterStats {
	st := MasterStats{MasterID: masterID}
	var sum int64
	for _, r := range m.reviews {
		if r.MasterID == masterID {
			sum += int64(r.Rating)
			st.TotalReviews++
		}
	}
	if st.TotalReviews > 0 {
		st.Rating = float64(sum) / float64(st.TotalReviews)
	}
	for _, o := range m.orders {
		if o.MasterID == masterID && o.Status == StatusCompleted {
			st.CompletedOrders++
		}
	}
	return st
}

func (m *MemoryStore) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ps := &PlatformStats{
		Services:       int64(len(m.services)),
		Orders:         int64(len(m.orders)),
		OrdersByStatus: make(map[OrderStatus]int64),
		Reviews:        int64(len(m.reviews)),
	}
	for _, o := range m.orders {
		ps.OrdersByStatus[o.Status]++
	}
	for _, r := range m.reviews {
		if r.IsDisputed {
			ps.DisputedReviews++
		}
	}
	return ps, nil
}

// newerFirst orders by created_at descending, then id descending, the same
// order the Postgres queries use.
func newerFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func page[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}
