package marketplace

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/alerts"
)

type nowFunc func() time.Time

// Market runs the order lifecycle, the review subsystem and the service
// catalog on top of a Store.
type Market struct {
	store   Store
	users   UserDirectory
	emitter alerts.Emitter
	hub     OrderBroadcaster
	log     *zap.Logger
	now     nowFunc
}

// Option customises a Market.
type Option func(*Market)

// WithBroadcaster pushes status changes to live order subscribers.
func WithBroadcaster(b OrderBroadcaster) Option {
	return func(m *Market) { m.hub = b }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Market) { m.now = now }
}

func NewMarket(store Store, users UserDirectory, emitter alerts.Emitter, logger *zap.Logger, opts ...Option) *Market {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Market{
		store:   store,
		users:   users,
		emitter: emitter,
		log:     logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// notify is best-effort: a failed emit is logged and never surfaces.
func (m *Market) notify(ctx context.Context, in alerts.NotificationInput) {
	if m.emitter == nil || in.UserID == "" {
		return
	}
	if err := m.emitter.Notify(ctx, in); err != nil {
		m.log.Warn("notification dropped",
			zap.String("type", string(in.Type)),
			zap.String("user_id", in.UserID),
			zap.Error(err))
	}
}

// lookupUsers resolves display data for a page of ids, tolerating misses.
func (m *Market) lookupUsers(ctx context.Context, ids []string) map[string]*UserRef {
	out := make(map[string]*UserRef, len(ids))
	if m.users == nil {
		return out
	}
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		ref, err := m.users.LookupUser(ctx, id)
		if err != nil {
			m.log.Debug("user lookup failed", zap.String("user_id", id), zap.Error(err))
			out[id] = nil
			continue
		}
		out[id] = ref
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// trimmedOrNil drops blank optional text.
func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return skip, limit
}
