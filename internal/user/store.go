package user

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Store persists accounts.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Update loads the row, applies fn and saves it.
	Update(ctx context.Context, id string, fn func(*User) error) (*User, error)
	List(ctx context.Context, f ListFilter) ([]User, int64, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetRoleByEmail(ctx context.Context, email, role string) error
	CountByRole(ctx context.Context) (map[string]int64, error)
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const userColumns = `id::text, email, name, role, password_hash, phone, bio, avatar,
	specializations, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.Phone, &u.Bio, &u.Avatar,
		&u.Specializations, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if u.Specializations == nil {
		u.Specializations = []string{}
	}
	return &u, nil
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, role, password_hash, phone, bio, avatar,
			specializations, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		u.ID, normalizeEmail(u.Email), u.Name, u.Role, u.PasswordHash, u.Phone, u.Bio, u.Avatar,
		u.Specializations, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("user: insert: %w", err)
	}
	return nil
}

func (s *PGStore) getOne(ctx context.Context, where string, arg any) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user: fetch: %w", err)
	}
	return u, nil
}

func (s *PGStore) GetByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return s.getOne(ctx, "id = $1", id)
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getOne(ctx, "email = $1", normalizeEmail(email))
}

func (s *PGStore) Update(ctx context.Context, id string, fn func(*User) error) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("user: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user: lock: %w", err)
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE users SET name=$1, phone=$2, bio=$3, avatar=$4, specializations=$5, updated_at=$6
		WHERE id=$7`,
		u.Name, u.Phone, u.Bio, u.Avatar, u.Specializations, u.UpdatedAt, u.ID); err != nil {
		return nil, fmt.Errorf("user: update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("user: commit: %w", err)
	}
	return u, nil
}

func (s *PGStore) List(ctx context.Context, f ListFilter) ([]User, int64, error) {
	cond := "($1 = '' OR role = $1) AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')"
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+cond, f.Role, f.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("user: count: %w", err)
	}
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond+`
		ORDER BY created_at DESC OFFSET $3 LIMIT $4`, f.Role, f.Search, f.Skip, f.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("user: list: %w", err)
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("user: scan: %w", err)
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func (s *PGStore) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("user: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetRoleByEmail(ctx context.Context, email, role string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE email = $2`, role, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("user: set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CountByRole(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("user: count by role: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var role string
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("user: scan role count: %w", err)
		}
		out[role] = n
	}
	return out, rows.Err()
}

// MemoryStore keeps accounts in process.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*User), byEmail: make(map[string]string)}
}

func copyUser(u *User) *User {
	cp := *u
	cp.Specializations = append([]string{}, u.Specializations...)
	return &cp
}

func (m *MemoryStore) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := normalizeEmail(u.Email)
	if _, taken := m.byEmail[email]; taken {
		return ErrEmailTaken
	}
	cp := copyUser(u)
	cp.Email = email
	m.byID[u.ID] = cp
	m.byEmail[email] = u.ID
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(m.byID[id]), nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*User) error) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copyUser(u)
	if err := fn(cp); err != nil {
		return nil, err
	}
	m.byID[id] = copyUser(cp)
	return cp, nil
}

func (m *MemoryStore) List(ctx context.Context, f ListFilter) ([]User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(f.Search)
	var out []User
	for _, u := range m.byID {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(u.Email, search) {
			continue
		}
		out = append(out, *copyUser(u))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if f.Skip >= len(out) {
		return []User{}, total, nil
	}
	end := len(out)
	if f.Limit > 0 && f.Skip+f.Limit < end {
		end = f.Skip + f.Limit
	}
	return out[f.Skip:end], total, nil
}

func (m *MemoryStore) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (m *MemoryStore) SetRoleByEmail(ctx context.Context, email, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return ErrNotFound
	}
	m.byID[id].Role = role
	return nil
}

func (m *MemoryStore) CountByRole(ctx context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64)
	for _, u := range m.byID {
		out[u.Role]++
	}
	return out, nil
}
