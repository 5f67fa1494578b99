package messaging

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists order threads.
type Store interface {
	Create(ctx context.Context, m *Message) error
	// List returns a thread in ascending created_at order plus its total size.
	List(ctx context.Context, orderID string, q ListQuery) ([]Message, int64, error)
	// MarkRead flags every unread message in the thread addressed to receiverID.
	MarkRead(ctx context.Context, orderID, receiverID string) (int64, error)
	UnreadCount(ctx context.Context, orderID, receiverID string) (int64, error)
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Create(ctx context.Context, m *Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, order_id, sender_id, receiver_id, content, is_read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.OrderID, m.SenderID, m.ReceiverID, m.Content, m.IsRead, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("messaging: insert message: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, orderID string, q ListQuery) ([]Message, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE order_id = $1`, orderID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("messaging: count messages: %w", err)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, order_id::text, sender_id::text, receiver_id::text, content, is_read, created_at
		FROM messages
		WHERE order_id = $1 AND ($2::timestamptz IS NULL OR created_at > $2)
		ORDER BY created_at ASC OFFSET $3 LIMIT $4`,
		orderID, q.Since, q.Skip, q.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("messaging: list messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("messaging: scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (s *PGStore) MarkRead(ctx context.Context, orderID, receiverID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE order_id = $1 AND receiver_id = $2 AND is_read = FALSE`, orderID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("messaging: mark read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) UnreadCount(ctx context.Context, orderID, receiverID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE order_id = $1 AND receiver_id = $2 AND is_read = FALSE`, orderID, receiverID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("messaging: unread count: %w", err)
	}
	return n, nil
}

// MemoryStore keeps threads in process.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]*Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]*Message)}
}

func (s *MemoryStore) Create(ctx context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.threads[m.OrderID] = append(s.threads[m.OrderID], &cp)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, orderID string, q ListQuery) ([]Message, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread := s.threads[orderID]
	var out []Message
	for _, m := range thread {
		if q.Since != nil && !m.CreatedAt.After(*q.Since) {
			continue
		}
		out = append(out, *m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	total := int64(len(thread))
	if q.Skip >= len(out) {
		return []Message{}, total, nil
	}
	end := len(out)
	if q.Limit > 0 && q.Skip+q.Limit < end {
		end = q.Skip + q.Limit
	}
	return out[q.Skip:end], total, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, orderID, receiverID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.threads[orderID] {
		if m.ReceiverID == receiverID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UnreadCount(ctx context.Context, orderID, receiverID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.threads[orderID] {
		if m.ReceiverID == receiverID && !m.IsRead {
			n++
		}
	}
	return n, nil
}
