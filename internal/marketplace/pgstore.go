package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// validID keeps malformed ids away from uuid columns, where they would
// surface as a 22P02 instead of a miss.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// =========================
// services
// =========================

const serviceColumns = `s.id::text, s.master_id::text, s.title, s.description, s.category,
	s.price::float8, s.currency, s.duration_days, s.images, s.is_active, s.views,
	s.orders_count, s.created_at, s.updated_at`

func scanService(row rowScanner, extra ...any) (*Service, error) {
	var s Service
	dest := []any{&s.ID, &s.MasterID, &s.Title, &s.Description, &s.Category,
		&s.Price, &s.Currency, &s.DurationDays, &s.Images, &s.IsActive, &s.Views,
		&s.OrdersCount, &s.CreatedAt, &s.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if s.Images == nil {
		s.Images = []string{}
	}
	return &s, nil
}

func (p *PGStore) CreateService(ctx context.Context, s *Service) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO services (id, master_id, title, description, category, price, currency,
			duration_days, images, is_active, views, orders_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		s.ID, s.MasterID, s.Title, s.Description, s.Category, s.Price, s.Currency,
		s.DurationDays, s.Images, s.IsActive, s.Views, s.OrdersCount, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("marketplace: insert service: %w", err)
	}
	return nil
}

func (p *PGStore) GetService(ctx context.Context, id string) (*Service, error) {
	if !validID(id) {
		return nil, ErrServiceNotFound
	}
	s, err := scanService(p.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services s WHERE s.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("marketplace: fetch service: %w", err)
	}
	return s, nil
}

func (p *PGStore) IncrementServiceViews(ctx context.Context, id string) (*Service, error) {
	if !validID(id) {
		return nil, ErrServiceNotFound
	}
	s, err := scanService(p.pool.QueryRow(ctx, `
		UPDATE services s SET views = views + 1 WHERE s.id = $1
		RETURNING `+serviceColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("marketplace: increment views: %w", err)
	}
	return s, nil
}

func (p *PGStore) ListServices(ctx context.Context, f ServiceFilter) ([]ServiceSummary, int64, error) {
	var where []string
	if !f.IncludeInactive {
		where = append(where, "s.is_active = TRUE")
	}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Category != "" {
		where = append(where, "s.category = "+arg(f.Category))
	}
	if f.Search != "" {
		ph := arg(likePattern(f.Search))
		where = append(where, "(s.title ILIKE "+ph+" OR s.description ILIKE "+ph+")")
	}
	if f.MinPrice != nil {
		where = append(where, "s.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "s.price <= "+arg(*f.MaxPrice))
	}
	cond := "TRUE"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM services s WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("marketplace: count services: %w", err)
	}

	order := "s.created_at DESC, s.id DESC"
	switch f.SortBy {
	case "price":
		order = "s.price ASC, s.created_at DESC, s.id DESC"
	case "rating":
		order = "master_rating DESC, s.created_at DESC, s.id DESC"
	}
	query := `SELECT ` + serviceColumns + `, COALESCE(r.avg_rating, 0)::float8 AS master_rating
		FROM services s
		LEFT JOIN (SELECT master_id, AVG(rating) AS avg_rating FROM reviews GROUP BY master_id) r
			ON r.master_id = s.master_id
		WHERE ` + cond + ` ORDER BY ` + order + ` OFFSET ` + arg(f.Skip)
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("marketplace: list services: %w", err)
	}
	defer rows.Close()

	out := []ServiceSummary{}
	for rows.Next() {
		var rating float64
		s, err := scanService(rows, &rating)
		if err != nil {
			return nil, 0, fmt.Errorf("marketplace: scan service: %w", err)
		}
		out = append(out, ServiceSummary{Service: *s, MasterRating: rating})
	}
	return out, total, rows.Err()
}

func (p *PGStore) ListServicesByMaster(ctx context.Context, masterID string) ([]Service, error) {
	out := []Service{}
	if !validID(masterID) {
		return out, nil
	}
	rows, err := p.pool.Query(ctx, `SELECT `+serviceColumns+` FROM services s
		WHERE s.master_id = $1 ORDER BY s.created_at DESC, s.id DESC`, masterID)
	if err != nil {
		return nil, fmt.Errorf("marketplace: list master services: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("marketplace: scan service: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (p *PGStore) UpdateService(ctx context.Context, id string, fn func(*Service) error) (*Service, error) {
	if !validID(id) {
		return nil, ErrServiceNotFound
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("marketplace: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	s, err := scanService(tx.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services s WHERE s.id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("marketplace: lock service: %w", err)
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE services SET title=$1, description=$2, category=$3, price=$4, currency=$5,
			duration_days=$6, images=$7, is_active=$8, updated_at=$9
		WHERE id=$10`,
		s.Title, s.Description, s.Category, s.Price, s.Currency,
		s.DurationDays, s.Images, s.IsActive, s.UpdatedAt, s.ID); err != nil {
		return nil, fmt.Errorf("marketplace: update service: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("marketplace: commit service update: %w", err)
	}
	return s, nil
}

func (p *PGStore) DeleteService(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrServiceNotFound
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marketplace: delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// =========================
// orders
// =========================

const orderColumns = `id::text, service_id::text, customer_id::text, master_id::text, description,
	customer_notes, status, agreed_price::float8, deadline, created_at, updated_at, completed_at`

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.ServiceID, &o.CustomerID, &o.MasterID, &o.Description,
		&o.CustomerNotes, &o.Status, &o.AgreedPrice, &o.Deadline, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (p *PGStore) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("marketplace: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE services SET orders_count = orders_count + 1 WHERE id = $1`, o.ServiceID)
	if err != nil {
		return fmt.Errorf("marketplace: bump orders_count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, service_id, customer_id, master_id, description, customer_notes,
			status, agreed_price, deadline, created_at, updated_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.ServiceID, o.CustomerID, o.MasterID, o.Description, o.CustomerNotes,
		o.Status, o.AgreedPrice, o.Deadline, o.CreatedAt, o.UpdatedAt, o.CompletedAt); err != nil {
		return fmt.Errorf("marketplace: insert order: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("marketplace: commit order: %w", err)
	}
	return nil
}

func (p *PGStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	if !validID(id) {
		return nil, newError(KindNotFound, "order not found")
	}
	o, err := scanOrder(p.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, newError(KindNotFound, "order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("marketplace: fetch order: %w", err)
	}
	return o, nil
}

func (p *PGStore) UpdateOrder(ctx context.Context, id string, fn func(*Order) error) (*Order, error) {
	if !validID(id) {
		return nil, newError(KindNotFound, "order not found")
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("marketplace: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, newError(KindNotFound, "order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("marketplace: lock order: %w", err)
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$1, agreed_price=$2, deadline=$3, updated_at=$4, completed_at=$5
		WHERE id=$6`,
		o.Status, o.AgreedPrice, o.Deadline, o.UpdatedAt, o.CompletedAt, o.ID); err != nil {
		return nil, fmt.Errorf("marketplace: update order: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("marketplace: commit order update: %w", err)
	}
	return o, nil
}

func (p *PGStore) ListOrders(ctx context.Context, actorID string, f OrderFilter) ([]Order, int64, error) {
	if !validID(actorID) {
		return []Order{}, 0, nil
	}
	var cond string
	switch f.Role {
	case RoleCustomer:
		cond = "customer_id = $1"
	case RoleMaster:
		cond = "master_id = $1"
	default:
		cond = "(customer_id = $1 OR master_id = $1)"
	}
	return p.listOrders(ctx, cond, f, actorID)
}

func (p *PGStore) ListAllOrders(ctx context.Context, f OrderFilter) ([]Order, int64, error) {
	return p.listOrders(ctx, "TRUE", f)
}

func (p *PGStore) listOrders(ctx context.Context, cond string, f OrderFilter, args ...any) ([]Order, int64, error) {
	if f.Status != "" {
		args = append(args, f.Status)
		cond += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("marketplace: count orders: %w", err)
	}

	args = append(args, f.Skip)
	query := fmt.Sprintf(`SELECT `+orderColumns+` FROM orders WHERE `+cond+` ORDER BY created_at DESC, id DESC OFFSET $%d`, len(args))
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("marketplace: list orders: %w", err)
	}
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("marketplace: scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

// =========================
// reviews
// =========================

const reviewColumns = `id::text, order_id::text, service_id::text, customer_id::text, master_id::text,
	rating, comment, is_disputed, dispute_reason, created_at`

func scanReview(row rowScanner) (*Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.OrderID, &r.ServiceID, &r.CustomerID, &r.MasterID,
		&r.Rating, &r.Comment, &r.IsDisputed, &r.DisputeReason, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *PGStore) CreateReview(ctx context.Context, r *Review) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO reviews (id, order_id, service_id, customer_id, master_id, rating, comment,
			is_disputed, dispute_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.OrderID, r.ServiceID, r.CustomerID, r.MasterID, r.Rating, r.Comment,
		r.IsDisputed, r.DisputeReason, r.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateReview
	}
	if err != nil {
		return fmt.Errorf("marketplace: insert review: %w", err)
	}
	return nil
}

func (p *PGStore) getReview(ctx context.Context, column, value string) (*Review, error) {
	if !validID(value) {
		return nil, newError(KindNotFound, "review not found")
	}
	r, err := scanReview(p.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE `+column+` = $1`, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, newError(KindNotFound, "review not found")
	}
	if err != nil {
		return nil, fmt.Errorf("marketplace: fetch review: %w", err)
	}
	return r, nil
}

func (p *PGStore) GetReview(ctx context.Context, id string) (*Review, error) {
	return p.getReview(ctx, "id", id)
}

func (p *PGStore) GetReviewByOrder(ctx context.Context, orderID string) (*Review, error) {
	return p.getReview(ctx, "order_id", orderID)
}

func (p *PGStore) UpdateReview(ctx context.Context, id string, fn func(*Review) error) (*Review, error) {
	if !validID(id) {
		return nil, newError(KindNotFound, "review not found")
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("marketplace: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	r, err := scanReview(tx.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, newError(KindNotFound, "review not found")
	}
	if err != nil {
		return nil, fmt.Errorf("marketplace: lock review: %w", err)
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE reviews SET is_disputed=$1, dispute_reason=$2 WHERE id=$3`,
		r.IsDisputed, r.DisputeReason, r.ID); err != nil {
		return nil, fmt.Errorf("marketplace: update review: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("marketplace: commit review update: %w", err)
	}
	return r, nil
}

func (p *PGStore) listReviews(ctx context.Context, cond, order string, skip, limit int, args ...any) ([]Review, int64, error) {
	var total int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("marketplace: count reviews: %w", err)
	}
	args = append(args, skip)
	query := fmt.Sprintf(`SELECT `+reviewColumns+` FROM reviews WHERE `+cond+` ORDER BY `+order+` OFFSET $%d`, len(args))
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("marketplace: list reviews: %w", err)
	}
	defer rows.Close()

	out := []Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("marketplace: scan review: %w", err)
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

func (p *PGStore) ListReviewsByMaster(ctx context.Context, masterID string, skip, limit int) ([]Review, int64, error) {
	if !validID(masterID) {
		return []Review{}, 0, nil
	}
	return p.listReviews(ctx, "master_id = $1", "created_at DESC, id DESC", skip, limit, masterID)
}

func (p *PGStore) ListReviewsByService(ctx context.Context, serviceID, sortBy string, skip, limit int) ([]Review, int64, error) {
	if !validID(serviceID) {
		return []Review{}, 0, nil
	}
	order := "created_at DESC, id DESC"
	switch sortBy {
	case SortHighest:
		order = "rating DESC, created_at DESC, id DESC"
	case SortLowest:
		order = "rating ASC, created_at DESC, id DESC"
	}
	return p.listReviews(ctx, "service_id = $1", order, skip, limit, serviceID)
}

func (p *PGStore) ListDisputedReviews(ctx context.Context, skip, limit int) ([]Review, int64, error) {
	return p.listReviews(ctx, "is_disputed = TRUE", "created_at DESC, id DESC", skip, limit)
}

func (p *PGStore) MasterStats(ctx context.Context, masterID string) (*MasterStats, error) {
	st := &MasterStats{MasterID: masterID}
	if !validID(masterID) {
		return st, nil
	}
	err := p.pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT AVG(rating) FROM reviews WHERE master_id = $1), 0)::float8,
			(SELECT COUNT(*) FROM reviews WHERE master_id = $1),
			(SELECT COUNT(*) FROM orders WHERE master_id = $1 AND status = 'completed')`,
		masterID).Scan(&st.Rating, &st.TotalReviews, &st.CompletedOrders)
	if err != nil {
		return nil, fmt.Errorf("marketplace: master stats: %w", err)
	}
	return st, nil
}

func (p *PGStore) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	ps := &PlatformStats{OrdersByStatus: make(map[OrderStatus]int64)}
	err := p.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM services),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM reviews WHERE is_disputed = TRUE)`).
		Scan(&ps.Services, &ps.Orders, &ps.Reviews, &ps.DisputedReviews)
	if err != nil {
		return nil, fmt.Errorf("marketplace: platform stats: %w", err)
	}

	rows, err := p.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("marketplace: orders by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status OrderStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("marketplace: scan status count: %w", err)
		}
		ps.OrdersByStatus[status] = n
	}
	return ps, rows.Err()
}
