package reservation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/campus-rental-backend/internal/calendar"
	"github.com/nekogravitycat/campus-rental-backend/internal/conflict"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/campus-rental-backend/internal/resource"
)

// Repository is the persistence collaborator of the scheduling service.
// Reads outside RunInTx are advisory; every admission decision happens inside it.
type Repository interface {
	// RunInTx runs fn in one bounded transaction. Writes become visible only if fn
	// returns nil and the commit succeeds.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	CountByStatus(ctx context.Context, status Status) (int, error)

	// ListBlocking returns blocking bookings on resourceIDs overlapping rng.
	ListBlocking(ctx context.Context, resourceIDs []string, rng calendar.Range) ([]conflict.Booking, error)
}

// Tx is the transactional view handed to RunInTx callbacks.
type Tx interface {
	// LockResources serializes writers on the given resources until the
	// transaction ends. Unknown ids fail with resource.ErrNotFound.
	LockResources(ctx context.Context, ids []string) error
	GetForUpdate(ctx context.Context, id string) (*Reservation, error)
	ListBlocking(ctx context.Context, resourceIDs []string, rng calendar.Range) ([]conflict.Booking, error)
	// NextDaySequence returns the next receipt sequence for day (YYYYMMDD).
	NextDaySequence(ctx context.Context, day string) (int, error)
	Create(ctx context.Context, r *Reservation) error
	Update(ctx context.Context, r *Reservation) error
	Delete(ctx context.Context, id string) error
}

// TxConfig bounds how long a transaction may hold row locks.
type TxConfig struct {
	Timeout     time.Duration
	LockTimeout time.Duration
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxRepository struct {
	pool *pgxpool.Pool
	cfg  TxConfig
}

func NewPgxRepository(pool *pgxpool.Pool, cfg TxConfig) Repository {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &pgxRepository{pool: pool, cfg: cfg}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var reservationColumns = []string{
	"r.id", "r.requester_id", "r.start_time", "r.end_time", "r.status", "r.rejection_reason",
	"r.purpose", "r.subject_name", "r.extra", "r.day_seq", "r.created_at", "r.updated_at", "r.decided_at",
	"ARRAY(SELECT rr.resource_id::text FROM public.reservation_resources rr" +
		" WHERE rr.reservation_id = r.id ORDER BY rr.resource_id) AS resource_ids",
}

func scanReservation(row pgx.Row, extra ...any) (*Reservation, error) {
	var res Reservation
	dest := []any{
		&res.ID, &res.RequesterID, &res.StartTime, &res.EndTime, &res.Status, &res.RejectionReason,
		&res.Metadata.Purpose, &res.Metadata.SubjectName, &res.Metadata.Extra, &res.DaySequence,
		&res.CreatedAt, &res.UpdatedAt, &res.DecidedAt, &res.ResourceIDs,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *pgxRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return translateError(fmt.Errorf("begin tx failed: %w", err))
	}
	defer func() {
		// No-op once committed. The request context may already be done.
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if r.cfg.LockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.cfg.LockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return translateError(fmt.Errorf("set lock_timeout failed: %w", err))
		}
	}

	if err := fn(ctx, &pgxTx{q: tx}); err != nil {
		return translateError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translateError(fmt.Errorf("commit failed: %w", err))
	}
	return nil
}

// translateError maps storage failures onto the service's error vocabulary.
// Domain errors pass through untouched.
func translateError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ExclusionViolation:
			return ErrConflict.WithCause(err)
		case pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected,
			pgerrcode.LockNotAvailable,
			pgerrcode.QueryCanceled:
			return ErrTransient.WithCause(err)
		case pgerrcode.ForeignKeyViolation:
			if pgErr.ConstraintName == "reservations_requester_id_fkey" {
				return ErrRequesterNotFound.WithCause(err)
			}
			return resource.ErrNotFound.WithCause(err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return ErrTransient.WithCause(err)
	}
	return err
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return getReservation(ctx, r.pool, id, false)
}

func (r *pgxRepository) ListBlocking(ctx context.Context, resourceIDs []string, rng calendar.Range) ([]conflict.Booking, error) {
	return listBlocking(ctx, r.pool, resourceIDs, rng)
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	query := psql.Select(append(slices.Clone(reservationColumns), "count(*) OVER() AS total_count")...).
		From("public.reservations r")

	if filter.RequesterID != "" {
		query = query.Where(squirrel.Eq{"r.requester_id": filter.RequesterID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"r.status": filter.Status})
	}
	if filter.ResourceID != "" {
		query = query.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM public.reservation_resources rr WHERE rr.reservation_id = r.id AND rr.resource_id = ?)",
			filter.ResourceID,
		))
	}
	if filter.From != nil {
		query = query.Where(squirrel.Gt{"r.end_time": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"r.start_time": *filter.To})
	}

	orderDir := "ASC"
	if filter.SortOrder == "DESC" {
		orderDir = "DESC"
	}
	query = query.OrderBy("r.start_time "+orderDir, "r.id ASC")

	if filter.PageSize > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.PageSize
		}
		query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", err)
	}
	defer rows.Close()

	var (
		result []*Reservation
		total  int
	)
	for rows.Next() {
		res, err := scanReservation(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan reservation failed: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *pgxRepository) CountByStatus(ctx context.Context, status Status) (int, error) {
	sql, args, err := psql.Select("count(*)").
		From("public.reservations").
		Where(squirrel.Eq{"status": status}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count reservations query failed: %w", err)
	}

	var n int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reservations failed: %w", err)
	}
	return n, nil
}

func getReservation(ctx context.Context, q querier, id string, forUpdate bool) (*Reservation, error) {
	query := psql.Select(reservationColumns...).
		From("public.reservations r").
		Where(squirrel.Eq{"r.id": id})
	if forUpdate {
		query = query.Suffix("FOR UPDATE OF r")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	res, err := scanReservation(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", err)
	}
	return res, nil
}

func listBlocking(ctx context.Context, q querier, resourceIDs []string, rng calendar.Range) ([]conflict.Booking, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}

	sql, args, err := psql.Select("reservation_id::text", "resource_id::text", "start_time", "end_time").
		From("public.reservation_resources").
		Where(squirrel.Eq{"blocking": true}).
		Where(squirrel.Eq{"resource_id": resourceIDs}).
		Where(squirrel.Lt{"start_time": rng.End}).
		Where(squirrel.Gt{"end_time": rng.Start}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list blocking query failed: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list blocking reservations failed: %w", err)
	}
	defer rows.Close()

	var bookings []conflict.Booking
	for rows.Next() {
		var b conflict.Booking
		if err := rows.Scan(&b.ReservationID, &b.ResourceID, &b.Range.Start, &b.Range.End); err != nil {
			return nil, fmt.Errorf("scan blocking reservation failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type pgxTx struct {
	q querier
}

func (t *pgxTx) LockResources(ctx context.Context, ids []string) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	sql, args, err := psql.Select("id::text").
		From("public.resources").
		Where(squirrel.Eq{"id": sorted}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock resources query failed: %w", err)
	}

	rows, err := t.q.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("lock resources failed: %w", err)
	}
	locked, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("lock resources failed: %w", err)
	}

	if len(locked) != len(sorted) {
		missing := make([]string, 0, len(sorted)-len(locked))
		for _, id := range sorted {
			if !slices.Contains(locked, id) {
				missing = append(missing, id)
			}
		}
		return resource.ErrNotFound.WithDetails(map[string]any{"resource_ids": missing})
	}
	return nil
}

func (t *pgxTx) GetForUpdate(ctx context.Context, id string) (*Reservation, error) {
	return getReservation(ctx, t.q, id, true)
}

func (t *pgxTx) ListBlocking(ctx context.Context, resourceIDs []string, rng calendar.Range) ([]conflict.Booking, error) {
	return listBlocking(ctx, t.q, resourceIDs, rng)
}

func (t *pgxTx) NextDaySequence(ctx context.Context, day string) (int, error) {
	sql, args, err := psql.Insert("public.reservation_day_counters").
		Columns("day", "last_seq").
		Values(day, 1).
		Suffix("ON CONFLICT (day) DO UPDATE SET last_seq = reservation_day_counters.last_seq + 1 RETURNING last_seq").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build day sequence query failed: %w", err)
	}

	var seq int
	if err := t.q.QueryRow(ctx, sql, args...).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next day sequence failed: %w", err)
	}
	return seq, nil
}

func (t *pgxTx) Create(ctx context.Context, res *Reservation) error {
	sql, args, err := psql.Insert("public.reservations").
		Columns(
			"id", "requester_id", "start_time", "end_time", "status", "rejection_reason",
			"purpose", "subject_name", "extra", "day_seq", "created_at", "updated_at", "decided_at",
		).
		Values(
			res.ID, res.RequesterID, res.StartTime, res.EndTime, res.Status, res.RejectionReason,
			res.Metadata.Purpose, res.Metadata.SubjectName, extraOrEmpty(res.Metadata.Extra),
			res.DaySequence, res.CreatedAt, res.UpdatedAt, res.DecidedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create reservation query failed: %w", err)
	}

	if _, err := t.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("create reservation failed: %w", err)
	}
	return t.insertResources(ctx, res)
}

func (t *pgxTx) Update(ctx context.Context, res *Reservation) error {
	sql, args, err := psql.Update("public.reservations").
		Set("start_time", res.StartTime).
		Set("end_time", res.EndTime).
		Set("status", res.Status).
		Set("rejection_reason", res.RejectionReason).
		Set("purpose", res.Metadata.Purpose).
		Set("subject_name", res.Metadata.SubjectName).
		Set("extra", extraOrEmpty(res.Metadata.Extra)).
		Set("updated_at", res.UpdatedAt).
		Set("decided_at", res.DecidedAt).
		Where(squirrel.Eq{"id": res.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update reservation query failed: %w", err)
	}

	tag, err := t.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update reservation failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	// Resource rows carry a copy of the interval for the exclusion constraint,
	// so they are rewritten on every update.
	if _, err := t.q.Exec(ctx,
		"DELETE FROM public.reservation_resources WHERE reservation_id = $1", res.ID,
	); err != nil {
		return fmt.Errorf("clear reservation resources failed: %w", err)
	}
	return t.insertResources(ctx, res)
}

func (t *pgxTx) Delete(ctx context.Context, id string) error {
	tag, err := t.q.Exec(ctx, "DELETE FROM public.reservations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete reservation failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgxTx) insertResources(ctx context.Context, res *Reservation) error {
	insert := psql.Insert("public.reservation_resources").
		Columns("reservation_id", "resource_id", "start_time", "end_time", "blocking")
	for _, resourceID := range res.ResourceIDs {
		insert = insert.Values(res.ID, resourceID, res.StartTime, res.EndTime, res.Status.Blocking())
	}

	sql, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert reservation resources query failed: %w", err)
	}
	if _, err := t.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert reservation resources failed: %w", err)
	}
	return nil
}

func extraOrEmpty(extra map[string]string) map[string]string {
	if extra == nil {
		return map[string]string{}
	}
	return extra
}
