package alerts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("notification not found")
	ErrForbidden = errors.New("access denied")
)

// Store persists inbox items.
type Store interface {
	// Create is idempotent on the notification id.
	Create(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id string) (*Notification, error)
	List(ctx context.Context, userID string, unreadOnly bool, skip, limit int) (items []Notification, total, unread int64, err error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// PGStore keeps notifications in Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const notificationColumns = `id::text, user_id::text, type, title, content, link, is_read, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var link *string
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Content, &link, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	if link != nil {
		n.Link = *link
	}
	return &n, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *PGStore) Create(ctx context.Context, n *Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, content, link, is_read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING`,
		n.ID, n.UserID, n.Type, n.Title, n.Content, nullable(n.Link), n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("alerts: insert notification: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	n, err := scanNotification(s.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("alerts: fetch notification: %w", err)
	}
	return n, nil
}

func (s *PGStore) List(ctx context.Context, userID string, unreadOnly bool, skip, limit int) ([]Notification, int64, int64, error) {
	var total, unread int64
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read)
		FROM notifications WHERE user_id = $1`, userID).Scan(&total, &unread); err != nil {
		return nil, 0, 0, fmt.Errorf("alerts: count notifications: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC OFFSET $3 LIMIT $4`, userID, unreadOnly, skip, limit)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("alerts: list notifications: %w", err)
	}
	defer rows.Close()

	items := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("alerts: scan notification: %w", err)
		}
		items = append(items, *n)
	}
	return items, total, unread, rows.Err()
}

func (s *PGStore) MarkRead(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("alerts: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("alerts: mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MemoryStore is an in-process Store for STORE=memory and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Notification)}
}

func (m *MemoryStore) Create(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[n.ID]; exists {
		return nil
	}
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, userID string, unreadOnly bool, skip, limit int) ([]Notification, int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total, unread int64
	var out []Notification
	for _, n := range m.items {
		if n.UserID != userID {
			continue
		}
		total++
		if !n.IsRead {
			unread++
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if skip >= len(out) {
		return []Notification{}, total, unread, nil
	}
	end := len(out)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return out[skip:end], total, unread, nil
}

func (m *MemoryStore) MarkRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (m *MemoryStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}
