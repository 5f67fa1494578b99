package marketplace

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/sudo-init-do/masterhub/internal/alerts"
)

func TestSubmitReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service(t)
	o := f.completedOrder(t, svc)

	comment := "  Lovely work, arrived early  "
	res, err := f.market.SubmitReview(ctx, customer, CreateReviewRequest{OrderID: o.ID, Rating: 5, Comment: &comment})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Review.MasterID != master.ID || res.Review.ServiceID != svc.ID {
		t.Fatalf("review parties not copied from order: %+v", res.Review)
	}
	if res.Review.Comment == nil || *res.Review.Comment != "Lovely work, arrived early" {
		t.Fatalf("comment not trimmed: %v", res.Review.Comment)
	}
	if res.MasterStats == nil || res.MasterStats.TotalReviews != 1 || res.MasterStats.Rating != 5 || res.MasterStats.CompletedOrders != 1 {
		t.Fatalf("stats = %+v", res.MasterStats)
	}
	if got := f.emitter.ofType(alerts.TypeNewReview); len(got) != 1 || got[0].UserID != master.ID {
		t.Fatalf("new_review notifications = %+v", got)
	}

	_, err = f.market.SubmitReview(ctx, customer, CreateReviewRequest{OrderID: o.ID, Rating: 4})
	wantKind(t, err, KindDuplicateReview)
}

func TestSubmitReviewCheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service(t)

	_, err := f.market.SubmitReview(ctx, customer, CreateReviewRequest{OrderID: "missing", Rating: 5})
	wantKind(t, err, KindNotFound)

	pending := f.order(t, svc)
	// Not completed wins over a bad rating and a foreign caller.
	_, err = f.market.SubmitReview(ctx, stranger, CreateReviewRequest{OrderID: pending.ID, Rating: 9})
	wantKind(t, err, KindOrderNotCompleted)

	done := f.completedOrder(t, svc)
	_, err = f.market.SubmitReview(ctx, stranger, CreateReviewRequest{OrderID: done.ID, Rating: 9})
	wantKind(t, err, KindForbidden)

	for _, r := range []int{0, 6, -1} {
		_, err = f.market.SubmitReview(ctx, customer, CreateReviewRequest{OrderID: done.ID, Rating: r})
		wantKind(t, err, KindInvalidRating)
	}
}

func TestSubmitReviewConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	o := f.completedOrder(t, f.service(t))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.market.SubmitReview(context.Background(), customer, CreateReviewRequest{OrderID: o.ID, Rating: 4})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch KindOf(err) {
		case "":
			if err == nil {
				ok++
			}
		case KindDuplicateReview:
			dup++
		}
	}
	if ok != 1 || dup != n-1 {
		t.Fatalf("ok=%d dup=%d", ok, dup)
	}
}

func TestDisputeReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.completedOrder(t, f.service(t))
	res, err := f.market.SubmitReview(ctx, customer, CreateReviewRequest{OrderID: o.ID, Rating: 1})
	if err != nil {
		t.Fatal(err)
	}
	id := res.Review.ID

	_, err = f.market.DisputeReview(ctx, id, stranger, "this review is unfair")
	wantKind(t, err, KindForbidden)

	_, err = f.market.DisputeReview(ctx, id, master, "   too short  ")
	wantKind(t, err, KindInvalidReason)

	r, err := f.market.DisputeReview(ctx, id, master, "  The customer never picked the item up  ")
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if !r.IsDisputed || r.DisputeReason == nil || *r.DisputeReason != "The customer never picked the item up" {
		t.Fatalf("dispute not recorded: %+v", r)
	}
	if got := f.emitter.ofType(alerts.TypeReviewDisputed); len(got) != 1 || got[0].UserID != customer.ID {
		t.Fatalf("review_disputed notifications = %+v", got)
	}

	_, err = f.market.DisputeReview(ctx, id, master, "and once more with feeling")
	wantKind(t, err, KindAlreadyDisputed)

	_, err = f.market.DisputeReview(ctx, "missing", master, "a perfectly long reason")
	wantKind(t, err, KindNotFound)

	queue, total, err := f.market.ListDisputedReviews(ctx, 0, 0)
	if err != nil || total != 1 || queue[0].CustomerName != "Anna Customer" {
		t.Fatalf("disputed queue: total=%d err=%v %+v", total, err, queue)
	}
}

func TestGetReviewForOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.completedOrder(t, f.service(t))

	r, err := f.market.GetReviewForOrder(ctx, o.ID)
	if err != nil || r != nil {
		t.Fatalf("expected no review yet, got %+v, %v", r, err)
	}
	if _, err := f.market.SubmitReview(ctx, customer, CreateReviewRequest{OrderID: o.ID, Rating: 3}); err != nil {
		t.Fatal(err)
	}
	r, err = f.market.GetReviewForOrder(ctx, o.ID)
	if err != nil || r == nil || r.Rating != 3 {
		t.Fatalf("review for order: %+v, %v", r, err)
	}
}

func TestServiceReviewSorting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service(t)
	for _, rating := range []int{3, 5, 1} {
		o := f.completedOrder(t, svc)
		if _, err := f.market.SubmitReview(ctx, customer, CreateReviewRequest{OrderID: o.ID, Rating: rating}); err != nil {
			t.Fatal(err)
		}
	}

	ratings := func(sortBy string) []int {
		t.Helper()
		items, total, err := f.market.ListReviewsForService(ctx, svc.ID, sortBy, 0, 10)
		if err != nil {
			t.Fatalf("%s: %v", sortBy, err)
		}
		if total != 3 {
			t.Fatalf("total = %d", total)
		}
		var out []int
		for _, it := range items {
			out = append(out, it.Rating)
		}
		return out
	}
	if got := ratings(""); got[0] != 1 || got[2] != 3 {
		t.Fatalf("newest first: %v", got)
	}
	if got := ratings(SortHighest); got[0] != 5 || got[2] != 1 {
		t.Fatalf("highest: %v", got)
	}
	if got := ratings(SortLowest); got[0] != 1 || got[2] != 5 {
		t.Fatalf("lowest: %v", got)
	}
	_, _, err := f.market.ListReviewsForService(ctx, svc.ID, "random", 0, 10)
	wantKind(t, err, KindInvalidInput)

	stats, err := f.market.MasterStats(ctx, master.ID)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(stats.Rating-3.0) > 1e-9 || stats.TotalReviews != 3 || stats.CompletedOrders != 3 {
		t.Fatalf("stats = %+v", stats)
	}

	pg, total, err := f.market.ListReviewsForMaster(ctx, master.ID, 1, 1)
	if err != nil || total != 3 || len(pg) != 1 {
		t.Fatalf("master page: total=%d len=%d err=%v", total, len(pg), err)
	}
	if !strings.HasPrefix(pg[0].CustomerName, "Anna") {
		t.Fatalf("customer name not attached: %+v", pg[0])
	}
}

func TestMasterStatsWithoutReviews(t *testing.T) {
	f := newFixture(t)
	stats, err := f.market.MasterStats(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Rating != 0 || stats.TotalReviews != 0 || stats.CompletedOrders != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
