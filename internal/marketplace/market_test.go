package marketplace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sudo-init-do/masterhub/internal/alerts"
)

type recordingEmitter struct {
	mu   sync.Mutex
	sent []alerts.NotificationInput
	err  error
}

func (e *recordingEmitter) Notify(ctx context.Context, in alerts.NotificationInput) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, in)
	return e.err
}

func (e *recordingEmitter) ofType(t alerts.NotificationType) []alerts.NotificationInput {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []alerts.NotificationInput
	for _, in := range e.sent {
		if in.Type == t {
			out = append(out, in)
		}
	}
	return out
}

type staticDirectory map[string]*UserRef

func (d staticDirectory) LookupUser(ctx context.Context, id string) (*UserRef, error) {
	if ref, ok := d[id]; ok {
		return ref, nil
	}
	return nil, errors.New("unknown user")
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []OrderStatus
}

func (b *recordingBroadcaster) BroadcastOrderStatus(orderID string, o *Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, o.Status)
}

// tickingClock advances one second per call so created_at ordering is stable.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

var (
	customer = Actor{ID: "cust-1", Role: RoleCustomer}
	master   = Actor{ID: "master-1", Role: RoleMaster}
	stranger = Actor{ID: "other-1", Role: RoleCustomer}
	admin    = Actor{ID: "admin-1", Role: RoleAdmin}
)

type fixture struct {
	market  *Market
	store   *MemoryStore
	emitter *recordingEmitter
	hub     *recordingBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: NewMemoryStore(), emitter: &recordingEmitter{}, hub: &recordingBroadcaster{}}
	dir := staticDirectory{
		customer.ID: {ID: customer.ID, Name: "Anna Customer"},
		master.ID:   {ID: master.ID, Name: "Maria Master"},
	}
	f.market = NewMarket(f.store, dir, f.emitter, nil, WithBroadcaster(f.hub), WithClock(tickingClock()))
	return f
}

func (f *fixture) service(t *testing.T) *Service {
	t.Helper()
	svc, err := f.market.CreateService(context.Background(), master, ServiceInput{
		Title:       "Hand-knitted scarf",
		Description: "Warm merino scarf knitted to your measurements",
		Category:    CategoryKnitting,
		Price:       2500,
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return svc
}

func (f *fixture) order(t *testing.T, svc *Service) *Order {
	t.Helper()
	o, err := f.market.CreateOrder(context.Background(), customer, CreateOrderRequest{
		ServiceID:   svc.ID,
		Description: "Blue scarf, 180cm long please",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

// completedOrder walks an order through the full happy path.
func (f *fixture) completedOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	o := f.order(t, svc)
	for _, st := range []OrderStatus{StatusAccepted, StatusInProgress, StatusCompleted} {
		var err error
		o, err = f.market.UpdateStatus(context.Background(), o.ID, master, StatusUpdate{Status: st})
		if err != nil {
			t.Fatalf("move to %s: %v", st, err)
		}
	}
	return o
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected kind %s, got %q (%v)", kind, got, err)
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := newError(KindForbidden, "only the master can update order status")
	if !errors.Is(err, ErrForbidden) {
		t.Fatal("errors.Is should match on kind")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("different kinds must not match")
	}
	if KindOf(errors.New("boom")) != "" {
		t.Fatal("plain errors have no kind")
	}
}

func TestNotifyFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.emitter.err = errors.New("queue down")
	svc := f.service(t)
	if _, err := f.market.CreateOrder(context.Background(), customer, CreateOrderRequest{
		ServiceID:   svc.ID,
		Description: "Something special for my mother",
	}); err != nil {
		t.Fatalf("order must succeed when notifications fail: %v", err)
	}
}

func TestNormalizePage(t *testing.T) {
	cases := []struct{ skip, limit, wantSkip, wantLimit int }{
		{0, 0, 0, 20},
		{-5, 10, 0, 10},
		{40, 500, 40, 100},
	}
	for _, c := range cases {
		s, l := normalizePage(c.skip, c.limit)
		if s != c.wantSkip || l != c.wantLimit {
			t.Errorf("normalizePage(%d,%d) = %d,%d", c.skip, c.limit, s, l)
		}
	}
}
