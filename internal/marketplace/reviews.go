package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/alerts"
)

const minDisputeReason = 10

// =========================
// SubmitReview - customer rates a completed order
// =========================
func (m *Market) SubmitReview(ctx context.Context, customer Actor, req CreateReviewRequest) (*SubmitReviewResult, error) {
	order, err := m.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusCompleted {
		return nil, ErrOrderNotCompleted
	}
	if order.CustomerID != customer.ID {
		return nil, newError(KindForbidden, "only the customer can review this order")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	review := &Review{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		ServiceID:  order.ServiceID,
		CustomerID: customer.ID,
		MasterID:   order.MasterID,
		Rating:     req.Rating,
		Comment:    trimmedOrNil(req.Comment),
		CreatedAt:  m.now(),
	}
	if err := m.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	m.log.Info("review submitted",
		zap.String("review_id", review.ID),
		zap.String("order_id", order.ID),
		zap.String("master_id", order.MasterID),
		zap.Int("rating", review.Rating))

	// The review is already committed; a stats read failure is not the caller's problem.
	stats, err := m.store.MasterStats(ctx, order.MasterID)
	if err != nil {
		m.log.Error("master stats after review", zap.String("master_id", order.MasterID), zap.Error(err))
		stats = nil
	}

	m.notify(ctx, alerts.NotificationInput{
		UserID:  order.MasterID,
		Type:    alerts.TypeNewReview,
		Title:   "New review",
		Content: fmt.Sprintf("You received a %d-star review", review.Rating),
		Link:    "/reviews/" + review.ID,
	})
	return &SubmitReviewResult{Review: review, MasterStats: stats}, nil
}

// =========================
// DisputeReview - master flags a review for moderation
// =========================
func (m *Market) DisputeReview(ctx context.Context, reviewID string, master Actor, reason string) (*Review, error) {
	reason = strings.TrimSpace(reason)
	review, err := m.store.UpdateReview(ctx, reviewID, func(r *Review) error {
		if r.MasterID != master.ID {
			return newError(KindForbidden, "only the reviewed master can dispute this review")
		}
		if r.IsDisputed {
			return ErrAlreadyDisputed
		}
		if runeLen(reason) < minDisputeReason {
			return ErrInvalidReason
		}
		r.IsDisputed = true
		r.DisputeReason = &reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("review disputed", zap.String("review_id", review.ID), zap.String("master_id", master.ID))

	m.notify(ctx, alerts.NotificationInput{
		UserID:  review.CustomerID,
		Type:    alerts.TypeReviewDisputed,
		Title:   "Review disputed",
		Content: "The master disputed your review and it will be checked by moderators",
		Link:    "/reviews/" + review.ID,
	})
	return review, nil
}

// GetReviewForOrder returns the review left on an order, or nil when there is none.
func (m *Market) GetReviewForOrder(ctx context.Context, orderID string) (*Review, error) {
	r, err := m.store.GetReviewByOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return r, err
}

// ListReviewsForMaster pages a master's reviews, newest first, with customer names attached.
func (m *Market) ListReviewsForMaster(ctx context.Context, masterID string, skip, limit int) ([]ReviewWithCustomer, int64, error) {
	skip, limit = normalizePage(skip, limit)
	reviews, total, err := m.store.ListReviewsByMaster(ctx, masterID, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	return m.withCustomers(ctx, reviews), total, nil
}

// ListReviewsForService pages a service's reviews in the requested order.
func (m *Market) ListReviewsForService(ctx context.Context, serviceID, sortBy string, skip, limit int) ([]ReviewWithCustomer, int64, error) {
	switch sortBy {
	case "":
		sortBy = SortNewest
	case SortNewest, SortHighest, SortLowest:
	default:
		return nil, 0, newError(KindInvalidInput, "sort must be newest, highest or lowest")
	}
	skip, limit = normalizePage(skip, limit)
	reviews, total, err := m.store.ListReviewsByService(ctx, serviceID, sortBy, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	return m.withCustomers(ctx, reviews), total, nil
}

// ListDisputedReviews is the admin moderation queue.
func (m *Market) ListDisputedReviews(ctx context.Context, skip, limit int) ([]ReviewWithCustomer, int64, error) {
	skip, limit = normalizePage(skip, limit)
	reviews, total, err := m.store.ListDisputedReviews(ctx, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	return m.withCustomers(ctx, reviews), total, nil
}

func (m *Market) MasterStats(ctx context.Context, masterID string) (*MasterStats, error) {
	return m.store.MasterStats(ctx, masterID)
}

func (m *Market) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	return m.store.PlatformStats(ctx)
}

func (m *Market) withCustomers(ctx context.Context, reviews []Review) []ReviewWithCustomer {
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.CustomerID)
	}
	refs := m.lookupUsers(ctx, ids)

	out := make([]ReviewWithCustomer, 0, len(reviews))
	for _, r := range reviews {
		item := ReviewWithCustomer{Review: r}
		if ref := refs[r.CustomerID]; ref != nil {
			item.CustomerName = ref.Name
			item.CustomerAvatar = ref.Avatar
		}
		out = append(out, item)
	}
	return out
}
