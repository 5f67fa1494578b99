package marketplace

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCurrency = "RUB"

func canManageService(actor Actor, s *Service) bool {
	return s.MasterID == actor.ID || actor.IsAdmin()
}

func validateServiceFields(title, description string, category Category, price float64, duration *int, images []string) error {
	if n := runeLen(strings.TrimSpace(title)); n < 5 || n > 200 {
		return newError(KindInvalidInput, "title must be 5-200 characters")
	}
	if runeLen(strings.TrimSpace(description)) < 20 {
		return newError(KindInvalidInput, "description must be at least 20 characters")
	}
	if !category.Valid() {
		return newError(KindInvalidInput, "unknown category %q", category)
	}
	if price <= 0 {
		return newError(KindInvalidInput, "price must be positive")
	}
	if duration != nil && *duration <= 0 {
		return newError(KindInvalidInput, "duration_days must be positive")
	}
	if len(images) > MaxServiceImages {
		return newError(KindInvalidInput, "at most %d images allowed", MaxServiceImages)
	}
	return nil
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return defaultCurrency
	}
	return c
}

// =========================
// CreateService - master lists a new service
// =========================
func (m *Market) CreateService(ctx context.Context, actor Actor, in ServiceInput) (*Service, error) {
	if actor.Role != RoleMaster && !actor.IsAdmin() {
		return nil, newError(KindForbidden, "only masters can create services")
	}
	if err := validateServiceFields(in.Title, in.Description, in.Category, in.Price, in.DurationDays, in.Images); err != nil {
		return nil, err
	}

	now := m.now()
	svc := &Service{
		ID:           uuid.NewString(),
		MasterID:     actor.ID,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Category:     in.Category,
		Price:        in.Price,
		Currency:     normalizeCurrency(in.Currency),
		DurationDays: in.DurationDays,
		Images:       append([]string{}, in.Images...),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.CreateService(ctx, svc); err != nil {
		return nil, err
	}
	m.log.Info("service created", zap.String("service_id", svc.ID), zap.String("master_id", actor.ID))
	return svc, nil
}

// GetService returns a listing and counts the view.
func (m *Market) GetService(ctx context.Context, id string) (*Service, error) {
	return m.store.IncrementServiceViews(ctx, id)
}

// ListServices is the public catalog: active listings only.
func (m *Market) ListServices(ctx context.Context, f ServiceFilter) ([]ServiceSummary, int64, error) {
	f.IncludeInactive = false
	return m.listServices(ctx, f)
}

// ListAllServices is the moderation view: deactivated listings included.
func (m *Market) ListAllServices(ctx context.Context, actor Actor, f ServiceFilter) ([]ServiceSummary, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, newError(KindForbidden, "admin access only")
	}
	f.IncludeInactive = true
	return m.listServices(ctx, f)
}

func (m *Market) listServices(ctx context.Context, f ServiceFilter) ([]ServiceSummary, int64, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, 0, newError(KindInvalidInput, "unknown category %q", f.Category)
	}
	switch f.SortBy {
	case "", "created_at":
		f.SortBy = "created_at"
	case "price", "rating":
	default:
		return nil, 0, newError(KindInvalidInput, "sort_by must be created_at, price or rating")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, 0, newError(KindInvalidInput, "min_price exceeds max_price")
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Skip, f.Limit = normalizePage(f.Skip, f.Limit)

	items, total, err := m.store.ListServices(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MasterID)
	}
	refs := m.lookupUsers(ctx, ids)
	for i := range items {
		if ref := refs[items[i].MasterID]; ref != nil {
			items[i].MasterName = ref.Name
		}
	}
	return items, total, nil
}

// ListMasterServices returns a master's listings. Inactive ones are only
// included on request, for the owner's own dashboard.
func (m *Market) ListMasterServices(ctx context.Context, masterID string, includeInactive bool) ([]Service, error) {
	all, err := m.store.ListServicesByMaster(ctx, masterID)
	if err != nil || includeInactive {
		return all, err
	}
	active := make([]Service, 0, len(all))
	for _, s := range all {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return active, nil
}

// =========================
// UpdateService - owner (or admin) edits a listing
// =========================
func (m *Market) UpdateService(ctx context.Context, id string, actor Actor, p ServicePatch) (*Service, error) {
	svc, err := m.store.UpdateService(ctx, id, func(s *Service) error {
		if !canManageService(actor, s) {
			return newError(KindForbidden, "you can only edit your own services")
		}
		if p.Title != nil {
			s.Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			s.Description = strings.TrimSpace(*p.Description)
		}
		if p.Category != nil {
			s.Category = *p.Category
		}
		if p.Price != nil {
			s.Price = *p.Price
		}
		if p.Currency != nil {
			s.Currency = normalizeCurrency(*p.Currency)
		}
		if p.DurationDays != nil {
			d := *p.DurationDays
			s.DurationDays = &d
		}
		if p.Images != nil {
			s.Images = append([]string{}, (*p.Images)...)
		}
		if p.IsActive != nil {
			s.IsActive = *p.IsActive
		}
		if err := validateServiceFields(s.Title, s.Description, s.Category, s.Price, s.DurationDays, s.Images); err != nil {
			return err
		}
		s.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("service updated", zap.String("service_id", svc.ID), zap.String("actor_id", actor.ID))
	return svc, nil
}

// DeleteService removes a listing. Orders keep their service_id.
func (m *Market) DeleteService(ctx context.Context, id string, actor Actor) error {
	svc, err := m.store.GetService(ctx, id)
	if err != nil {
		return err
	}
	if !canManageService(actor, svc) {
		return newError(KindForbidden, "you can only delete your own services")
	}
	if err := m.store.DeleteService(ctx, id); err != nil {
		return err
	}
	m.log.Info("service deleted", zap.String("service_id", id), zap.String("actor_id", actor.ID))
	return nil
}
