package marketplace_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sudo-init-do/masterhub/internal/db/dbtest"
	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

func TestPGStoreLifecycle(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	store := marketplace.NewPGStore(pool)

	masterID := dbtest.InsertUser(t, pool, "maria@example.com", "Maria", marketplace.RoleMaster)
	customerID := dbtest.InsertUser(t, pool, "anna@example.com", "Anna", marketplace.RoleCustomer)
	master := marketplace.Actor{ID: masterID, Role: marketplace.RoleMaster}
	customer := marketplace.Actor{ID: customerID, Role: marketplace.RoleCustomer}

	m := marketplace.NewMarket(store, nil, nil, nil)

	svc, err := m.CreateService(ctx, master, marketplace.ServiceInput{
		Title:       "Felted wool slippers",
		Description: "Seamless felted slippers made to your size",
		Category:    marketplace.CategoryFelting,
		Price:       3500,
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	items, total, err := m.ListServices(ctx, marketplace.ServiceFilter{Search: "slipper%"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("wildcards in search must be literal, got %d", total)
	}
	items, total, err = m.ListServices(ctx, marketplace.ServiceFilter{Search: "SLIPPERS", Category: marketplace.CategoryFelting})
	if err != nil || total != 1 || items[0].ID != svc.ID {
		t.Fatalf("search: total=%d err=%v", total, err)
	}

	order, err := m.CreateOrder(ctx, customer, marketplace.CreateOrderRequest{ServiceID: svc.ID, Description: "Size 38, grey wool"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	got, _ := store.GetService(ctx, svc.ID)
	if got.OrdersCount != 1 {
		t.Fatalf("orders_count = %d", got.OrdersCount)
	}

	for _, st := range []marketplace.OrderStatus{marketplace.StatusAccepted, marketplace.StatusInProgress, marketplace.StatusCompleted} {
		if _, err := m.UpdateStatus(ctx, order.ID, master, marketplace.StatusUpdate{Status: st}); err != nil {
			t.Fatalf("to %s: %v", st, err)
		}
	}
	_, err = m.UpdateStatus(ctx, order.ID, master, marketplace.StatusUpdate{Status: marketplace.StatusCancelled})
	if marketplace.KindOf(err) != marketplace.KindInvalidStateTransition {
		t.Fatalf("terminal order moved: %v", err)
	}

	// Concurrent reviews on one order: exactly one insert survives.
	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := m.SubmitReview(ctx, customer, marketplace.CreateReviewRequest{OrderID: order.ID, Rating: rating})
			results <- err
		}(i + 1)
	}
	wg.Wait()
	close(results)
	var ok int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case marketplace.KindOf(err) != marketplace.KindDuplicateReview:
			t.Fatalf("unexpected review error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d reviews inserted", ok)
	}

	stats, err := m.MasterStats(ctx, masterID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalReviews != 1 || stats.CompletedOrders != 1 || stats.Rating < 1 || stats.Rating > 5 {
		t.Fatalf("stats = %+v", stats)
	}

	// Deleting the listing keeps the order and its review.
	if err := m.DeleteService(ctx, svc.ID, master); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetOrder(ctx, order.ID, customer); err != nil {
		t.Fatalf("order gone after delete: %v", err)
	}
	if r, err := m.GetReviewForOrder(ctx, order.ID); err != nil || r == nil {
		t.Fatalf("review gone after delete: %v", err)
	}

	if _, err := store.GetOrder(ctx, "not-a-uuid"); marketplace.KindOf(err) != marketplace.KindNotFound {
		t.Fatalf("malformed id: %v", err)
	}

	ps, err := m.PlatformStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ps.Orders != 1 || ps.OrdersByStatus[marketplace.StatusCompleted] != 1 || ps.Reviews != 1 {
		t.Fatalf("platform stats = %+v", ps)
	}
}

func TestPGStoreAdminListings(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	store := marketplace.NewPGStore(pool)

	masterID := dbtest.InsertUser(t, pool, "ivan@example.com", "Ivan", marketplace.RoleMaster)
	customerID := dbtest.InsertUser(t, pool, "olga@example.com", "Olga", marketplace.RoleCustomer)
	master := marketplace.Actor{ID: masterID, Role: marketplace.RoleMaster}
	customer := marketplace.Actor{ID: customerID, Role: marketplace.RoleCustomer}
	admin := marketplace.Actor{ID: "ops", Role: marketplace.RoleAdmin}

	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	m := marketplace.NewMarket(store, nil, nil, nil, marketplace.WithClock(func() time.Time { return at }))

	svc, err := m.CreateService(ctx, master, marketplace.ServiceInput{
		Title:       "Carved spoon set",
		Description: "Three birch spoons carved with hand tools",
		Category:    marketplace.CategoryWoodworking,
		Price:       1900,
	})
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for i := 0; i < 3; i++ {
		o, err := m.CreateOrder(ctx, customer, marketplace.CreateOrderRequest{ServiceID: svc.ID, Description: "One large, two small"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, o.ID)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	orders, total, err := m.ListAllOrders(ctx, admin, marketplace.OrderFilter{})
	if err != nil || total != 3 {
		t.Fatalf("all orders: total=%d err=%v", total, err)
	}
	for i, o := range orders {
		if o.ID != ids[i] {
			t.Fatalf("position %d = %s, want %s", i, o.ID, ids[i])
		}
	}

	off := false
	if _, err := m.UpdateService(ctx, svc.ID, admin, marketplace.ServicePatch{IsActive: &off}); err != nil {
		t.Fatal(err)
	}
	if _, total, _ := m.ListServices(ctx, marketplace.ServiceFilter{}); total != 0 {
		t.Fatalf("public catalog total = %d", total)
	}
	all, total, err := m.ListAllServices(ctx, admin, marketplace.ServiceFilter{})
	if err != nil || total != 1 || all[0].IsActive {
		t.Fatalf("moderation view: total=%d err=%v", total, err)
	}
}
