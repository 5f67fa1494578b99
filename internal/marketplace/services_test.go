package marketplace

import (
	"context"
	"strings"
	"testing"
)

func TestCreateServiceDefaults(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	if svc.Currency != "RUB" || !svc.IsActive || svc.MasterID != master.ID {
		t.Fatalf("unexpected defaults: %+v", svc)
	}
	if svc.Images == nil {
		t.Fatal("images should be an empty list, not nil")
	}
}

func TestCreateServiceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := ServiceInput{
		Title:       "Clay mug set",
		Description: "Four wheel-thrown mugs glazed in any colour",
		Category:    CategoryPottery,
		Price:       4200,
		Currency:    "usd",
	}
	svc, err := f.market.CreateService(ctx, master, good)
	if err != nil {
		t.Fatal(err)
	}
	if svc.Currency != "USD" {
		t.Fatalf("currency not upper-cased: %s", svc.Currency)
	}

	_, err = f.market.CreateService(ctx, customer, good)
	wantKind(t, err, KindForbidden)

	zero := 0
	bad := []func(in *ServiceInput){
		func(in *ServiceInput) { in.Title = "Mug" },
		func(in *ServiceInput) { in.Description = "too short" },
		func(in *ServiceInput) { in.Category = "origami" },
		func(in *ServiceInput) { in.Price = 0 },
		func(in *ServiceInput) { in.DurationDays = &zero },
		func(in *ServiceInput) { in.Images = strings.Split(strings.Repeat("x,", 11), ",") },
	}
	for i, mutate := range bad {
		in := good
		mutate(&in)
		_, err := f.market.CreateService(ctx, master, in)
		if KindOf(err) != KindInvalidInput {
			t.Errorf("case %d: expected invalid_input, got %v", i, err)
		}
	}
}

func TestGetServiceCountsViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service(t)
	f.market.GetService(ctx, svc.ID)
	got, err := f.market.GetService(ctx, svc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Views != 2 {
		t.Fatalf("views = %d", got.Views)
	}
	_, err = f.market.GetService(ctx, "missing")
	wantKind(t, err, KindServiceNotFound)
}

func TestListServicesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mk := func(title string, cat Category, price float64) *Service {
		svc, err := f.market.CreateService(ctx, master, ServiceInput{
			Title: title, Description: "A sufficiently long description here", Category: cat, Price: price,
		})
		if err != nil {
			t.Fatal(err)
		}
		return svc
	}
	mk("Knitted socks", CategoryKnitting, 900)
	mk("Knitted blanket", CategoryKnitting, 7000)
	hidden := mk("Oak cutting board", CategoryWoodworking, 3000)
	off := false
	if _, err := f.market.UpdateService(ctx, hidden.ID, master, ServicePatch{IsActive: &off}); err != nil {
		t.Fatal(err)
	}

	items, total, err := f.market.ListServices(ctx, ServiceFilter{})
	if err != nil || total != 2 {
		t.Fatalf("inactive listing leaked: total=%d err=%v", total, err)
	}
	if items[0].MasterName != "Maria Master" {
		t.Fatalf("master name not attached: %+v", items[0])
	}

	lo, hi := 500.0, 1000.0
	items, total, _ = f.market.ListServices(ctx, ServiceFilter{MinPrice: &lo, MaxPrice: &hi})
	if total != 1 || items[0].Title != "Knitted socks" {
		t.Fatalf("price filter: %+v", items)
	}

	items, _, _ = f.market.ListServices(ctx, ServiceFilter{Search: "BLANKET"})
	if len(items) != 1 {
		t.Fatalf("search is case-insensitive, got %d", len(items))
	}

	items, _, _ = f.market.ListServices(ctx, ServiceFilter{SortBy: "price"})
	if items[0].Price != 900 {
		t.Fatalf("price sort: %+v", items)
	}

	_, _, err = f.market.ListServices(ctx, ServiceFilter{Category: "origami"})
	wantKind(t, err, KindInvalidInput)
	_, _, err = f.market.ListServices(ctx, ServiceFilter{SortBy: "views"})
	wantKind(t, err, KindInvalidInput)
	_, _, err = f.market.ListServices(ctx, ServiceFilter{MinPrice: &hi, MaxPrice: &lo})
	wantKind(t, err, KindInvalidInput)

	public, _ := f.market.ListMasterServices(ctx, master.ID, false)
	own, _ := f.market.ListMasterServices(ctx, master.ID, true)
	if len(public) != 2 || len(own) != 3 {
		t.Fatalf("public=%d own=%d", len(public), len(own))
	}
}

func TestUpdateAndDeleteService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service(t)

	price := 3100.0
	updated, err := f.market.UpdateService(ctx, svc.ID, master, ServicePatch{Price: &price})
	if err != nil || updated.Price != price {
		t.Fatalf("update: %+v %v", updated, err)
	}

	short := "Hat"
	_, err = f.market.UpdateService(ctx, svc.ID, master, ServicePatch{Title: &short})
	wantKind(t, err, KindInvalidInput)

	_, err = f.market.UpdateService(ctx, svc.ID, stranger, ServicePatch{Price: &price})
	wantKind(t, err, KindForbidden)

	wantKind(t, f.market.DeleteService(ctx, svc.ID, stranger), KindForbidden)

	o := f.order(t, svc)
	if err := f.market.DeleteService(ctx, svc.ID, master); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// History outlives the listing.
	if got, err := f.market.GetOrder(ctx, o.ID, customer); err != nil || got.ServiceID != svc.ID {
		t.Fatalf("order lost after service deletion: %+v %v", got, err)
	}
	wantKind(t, f.market.DeleteService(ctx, svc.ID, master), KindServiceNotFound)
}

func TestListAllServicesIncludesInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.service(t)
	hidden := f.service(t)
	off := false
	if _, err := f.market.UpdateService(ctx, hidden.ID, master, ServicePatch{IsActive: &off}); err != nil {
		t.Fatal(err)
	}

	public, total, err := f.market.ListServices(ctx, ServiceFilter{IncludeInactive: true})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || public[0].ID != active.ID {
		t.Fatalf("public catalog leaked inactive listing: total=%d", total)
	}

	all, total, err := f.market.ListAllServices(ctx, admin, ServiceFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(all) != 2 || all[0].ID != hidden.ID {
		t.Fatalf("moderation view: total=%d %+v", total, all)
	}

	_, _, err = f.market.ListAllServices(ctx, master, ServiceFilter{})
	wantKind(t, err, KindForbidden)
}
