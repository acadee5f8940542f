package reservation

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/campus-rental-backend/internal/calendar"
	"github.com/nekogravitycat/campus-rental-backend/internal/conflict"
	"github.com/nekogravitycat/campus-rental-backend/internal/event"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/campus-rental-backend/internal/resource"
	"github.com/nekogravitycat/campus-rental-backend/internal/user"
)

// ResourceLookup resolves resource ids to catalog entries for labels.
type ResourceLookup interface {
	GetByIDs(ctx context.Context, ids []string) ([]*resource.Resource, error)
}

// RequesterLookup confirms that a requester may hold reservations.
type RequesterLookup interface {
	GetActive(ctx context.Context, id string) (*user.User, error)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID        string
	IsSystemAdmin bool
}

type SubmitRequest struct {
	RequesterID string
	ResourceIDs []string
	StartTime   time.Time
	EndTime     time.Time
	Metadata    Metadata
	// AllowPastStart lets administrators record rentals that already began.
	AllowPastStart bool
}

// EditRequest changes the schedule of a reservation. Nil fields keep their value.
type EditRequest struct {
	ResourceIDs []string
	StartTime   *time.Time
	EndTime     *time.Time
}

type ConflictQuery struct {
	ResourceIDs []string
	StartTime   time.Time
	EndTime     time.Time
	ExcludeID   string
}

// ConflictDetail tells the caller which item is taken and until when.
type ConflictDetail struct {
	ResourceID    string    `json:"resource_id"`
	ResourceLabel string    `json:"resource_label"`
	ReservationID string    `json:"reservation_id,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// Service is the single entry point for every scheduling mutation.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Reservation, error)
	Approve(ctx context.Context, id string) (*Reservation, error)
	Reject(ctx context.Context, id string, reason string) (*Reservation, error)
	Edit(ctx context.Context, id string, req EditRequest, actor Actor) (*Reservation, error)
	// ListConflicts is the advisory pre-flight check. It takes no locks.
	// Non-admins only see the ids of reservations they own.
	ListConflicts(ctx context.Context, q ConflictQuery, actor Actor) ([]ConflictDetail, error)

	GetByID(ctx context.Context, id string, actor Actor) (*Reservation, error)
	List(ctx context.Context, filter Filter, actor Actor) ([]*Reservation, int, error)
	PendingCount(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error

	Calendar() *calendar.Engine
}

// Option customizes a service.
type Option func(*service)

// WithClock replaces time.Now for createdAt and decision timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for new reservation ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *service) { s.newID = newID }
}

type service struct {
	repo      Repository
	resources ResourceLookup
	users     RequesterLookup
	cal       *calendar.Engine
	publisher event.Publisher
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(
	repo Repository,
	resources ResourceLookup,
	users RequesterLookup,
	cal *calendar.Engine,
	publisher event.Publisher,
	log *slog.Logger,
	opts ...Option,
) Service {
	if log == nil {
		log = slog.Default()
	}
	s := &service{
		repo:      repo,
		resources: resources,
		users:     users,
		cal:       cal,
		publisher: publisher,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Calendar() *calendar.Engine {
	return s.cal
}

func (s *service) Submit(ctx context.Context, req SubmitRequest) (*Reservation, error) {
	// 1. Normalize and validate input that needs no storage
	resourceIDs := normalizeIDs(req.ResourceIDs)
	if len(resourceIDs) == 0 {
		return nil, ErrNoResources
	}
	rng, err := s.cal.ValidateRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, rangeError(err)
	}
	if !req.AllowPastStart {
		if err := s.checkNotPast(rng.Start); err != nil {
			return nil, err
		}
	}

	// 2. Requester and resources must exist
	if _, err := s.users.GetActive(ctx, req.RequesterID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrRequesterNotFound
		}
		return nil, err
	}
	labels, err := s.lookupLabels(ctx, resourceIDs)
	if err != nil {
		return nil, err
	}

	// 3. Check and insert under the resource locks
	var created *Reservation
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.LockResources(ctx, resourceIDs); err != nil {
			return err
		}
		snapshot, err := tx.ListBlocking(ctx, resourceIDs, rng)
		if err != nil {
			return err
		}
		if conflicts := conflict.FindConflicts(resourceIDs, rng, "", snapshot); len(conflicts) > 0 {
			return conflictError(conflicts, labels)
		}

		now := s.now()
		seq, err := tx.NextDaySequence(ctx, s.dayKey(now))
		if err != nil {
			return err
		}

		r := &Reservation{
			ID:          s.newID(),
			RequesterID: req.RequesterID,
			ResourceIDs: resourceIDs,
			StartTime:   rng.Start,
			EndTime:     rng.End,
			Status:      StatusRequested,
			Metadata:    req.Metadata,
			DaySequence: seq,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(ctx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, s.explainConflict(ctx, err, resourceIDs, rng, "", labels)
	}

	s.publish(ctx, event.ReservationSubmitted, created)
	return created, nil
}

func (s *service) Approve(ctx context.Context, id string) (*Reservation, error) {
	var (
		r       *Reservation
		changed bool
	)
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if r, err = tx.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if changed, err = r.approve(s.now()); err != nil || !changed {
			return err
		}
		return tx.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publish(ctx, event.ReservationApproved, r)
	}
	return r, nil
}

func (s *service) Reject(ctx context.Context, id string, reason string) (*Reservation, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	var r *Reservation
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if r, err = tx.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if err := r.reject(reason, s.now()); err != nil {
			return err
		}
		return tx.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.ReservationRejected, r)
	return r, nil
}

func (s *service) Edit(ctx context.Context, id string, req EditRequest, actor Actor) (*Reservation, error) {
	var (
		r      *Reservation
		labels map[string]string
	)
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if r, err = tx.GetForUpdate(ctx, id); err != nil {
			return err
		}

		// Admins may move any live reservation; requesters only their own pending ones.
		if !actor.IsSystemAdmin && (r.RequesterID != actor.UserID || r.Status != StatusRequested) {
			return ErrPermissionDenied
		}
		if err := r.checkEditable(); err != nil {
			return err
		}

		resourceIDs := r.ResourceIDs
		if req.ResourceIDs != nil {
			if resourceIDs = normalizeIDs(req.ResourceIDs); len(resourceIDs) == 0 {
				return ErrNoResources
			}
		}
		start, end := r.StartTime, r.EndTime
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		rng, err := s.cal.ValidateRange(start, end)
		if err != nil {
			return rangeError(err)
		}
		if !actor.IsSystemAdmin && !start.Equal(r.StartTime) {
			if err := s.checkNotPast(start); err != nil {
				return err
			}
		}

		if labels, err = s.lookupLabels(ctx, resourceIDs); err != nil {
			return err
		}
		if err := tx.LockResources(ctx, resourceIDs); err != nil {
			return err
		}
		snapshot, err := tx.ListBlocking(ctx, resourceIDs, rng)
		if err != nil {
			return err
		}
		if conflicts := conflict.FindConflicts(resourceIDs, rng, r.ID, snapshot); len(conflicts) > 0 {
			return conflictError(conflicts, labels)
		}

		r.ResourceIDs = resourceIDs
		r.StartTime = rng.Start
		r.EndTime = rng.End
		r.UpdatedAt = s.now()
		return tx.Update(ctx, r)
	})
	if err != nil {
		if labels != nil {
			err = s.explainConflict(ctx, err, r.ResourceIDs, r.Range(), r.ID, labels)
		}
		return nil, err
	}

	s.publish(ctx, event.ReservationEdited, r)
	return r, nil
}

func (s *service) ListConflicts(ctx context.Context, q ConflictQuery, actor Actor) ([]ConflictDetail, error) {
	resourceIDs := normalizeIDs(q.ResourceIDs)
	if len(resourceIDs) == 0 {
		return nil, ErrNoResources
	}
	rng, err := calendar.NewRange(q.StartTime, q.EndTime)
	if err != nil {
		return nil, rangeError(err)
	}

	labels, err := s.lookupLabels(ctx, resourceIDs)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.repo.ListBlocking(ctx, resourceIDs, rng)
	if err != nil {
		return nil, err
	}
	out := details(conflict.FindConflicts(resourceIDs, rng, q.ExcludeID, snapshot), labels)
	if err := s.hideForeignReservations(ctx, out, actor); err != nil {
		return nil, err
	}
	return out, nil
}

// hideForeignReservations blanks reservation ids the actor does not own.
func (s *service) hideForeignReservations(ctx context.Context, conflicts []ConflictDetail, actor Actor) error {
	if actor.IsSystemAdmin {
		return nil
	}

	owned := make(map[string]bool)
	for i := range conflicts {
		id := conflicts[i].ReservationID
		mine, seen := owned[id]
		if !seen {
			r, err := s.repo.GetByID(ctx, id)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			mine = err == nil && r.RequesterID == actor.UserID
			owned[id] = mine
		}
		if !mine {
			conflicts[i].ReservationID = ""
		}
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id string, actor Actor) (*Reservation, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsSystemAdmin && r.RequesterID != actor.UserID {
		return nil, ErrPermissionDenied
	}
	return r, nil
}

func (s *service) List(ctx context.Context, filter Filter, actor Actor) ([]*Reservation, int, error) {
	if !actor.IsSystemAdmin {
		filter.RequesterID = actor.UserID
	}
	return s.repo.List(ctx, filter)
}

func (s *service) PendingCount(ctx context.Context) (int, error) {
	return s.repo.CountByStatus(ctx, StatusRequested)
}

func (s *service) Delete(ctx context.Context, id string) error {
	var r *Reservation
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if r, err = tx.GetForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, event.ReservationDeleted, r)
	return nil
}

// lookupLabels maps every id to its display label, failing on unknown ids.
func (s *service) lookupLabels(ctx context.Context, ids []string) (map[string]string, error) {
	found, err := s.resources.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	labels := make(map[string]string, len(found))
	for _, res := range found {
		labels[res.ID] = res.Label()
	}

	var missing []string
	for _, id := range ids {
		if _, ok := labels[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, resource.ErrNotFound.WithDetails(map[string]any{"resource_ids": missing})
	}
	return labels, nil
}

// checkNotPast rejects a start whose facility-local date is before today.
func (s *service) checkNotPast(start time.Time) error {
	loc := s.cal.Location()
	if start.In(loc).Format(time.DateOnly) < s.now().In(loc).Format(time.DateOnly) {
		return rangeError(calendar.ErrStartInPast)
	}
	return nil
}

func (s *service) dayKey(t time.Time) string {
	return t.In(s.cal.Location()).Format("20060102")
}

// publish runs after commit. A lost event never undoes a reservation change.
func (s *service) publish(ctx context.Context, typ event.Type, r *Reservation) {
	if s.publisher == nil || r == nil {
		return
	}

	e := event.Event{
		Type:          typ,
		ReservationID: r.ID,
		RequesterID:   r.RequesterID,
		Status:        string(r.Status),
		ResourceIDs:   r.ResourceIDs,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		ReceiptNumber: r.ReceiptNumber(s.cal.Location()),
		OccurredAt:    s.now(),
	}
	if r.RejectionReason != nil {
		e.Reason = *r.RejectionReason
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.log.WarnContext(ctx, "failed to publish reservation event",
			slog.String("type", string(typ)),
			slog.String("reservation_id", r.ID),
			slog.Any("error", err),
		)
	}
}

// normalizeIDs trims, lower-cases, sorts and de-duplicates resource ids.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func rangeError(err error) error {
	var ve *calendar.ValidationError
	if !errors.As(err, &ve) {
		return err
	}

	details := map[string]any{"reason": string(ve.Kind)}
	if !ve.MaxEnd.IsZero() {
		details["max_end_date"] = ve.MaxEnd.Format(time.DateOnly)
	}
	return ErrRangeInvalid.WithCause(ve).WithMessage(ve.Message).WithDetails(details)
}

func conflictError(conflicts []conflict.Conflict, labels map[string]string) error {
	taken := conflict.ConflictingResourceIDs(conflicts)
	names := make([]string, 0, len(taken))
	for _, id := range taken {
		names = append(names, labels[id])
	}
	return ErrConflict.
		WithMessage("already booked for this period: " + strings.Join(names, ", ")).
		WithDetails(map[string]any{"conflicts": details(conflicts, labels)})
}

// explainConflict fills in the conflicting holds when the storage constraint,
// not the in-transaction check, refused a write. The holds are re-read after
// the failed transaction has ended.
func (s *service) explainConflict(
	ctx context.Context,
	err error,
	resourceIDs []string,
	rng calendar.Range,
	excludeID string,
	labels map[string]string,
) error {
	var appErr *apperror.AppError
	if !errors.Is(err, ErrConflict) || !errors.As(err, &appErr) || appErr.Details["conflicts"] != nil {
		return err
	}

	snapshot, readErr := s.repo.ListBlocking(ctx, resourceIDs, rng)
	if readErr != nil {
		return err
	}
	conflicts := conflict.FindConflicts(resourceIDs, rng, excludeID, snapshot)
	if len(conflicts) == 0 {
		return err
	}
	return conflictError(conflicts, labels)
}

func details(conflicts []conflict.Conflict, labels map[string]string) []ConflictDetail {
	out := make([]ConflictDetail, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, ConflictDetail{
			ResourceID:    c.ResourceID,
			ResourceLabel: labels[c.ResourceID],
			ReservationID: c.ReservationID,
			StartTime:     c.Start,
			EndTime:       c.End,
		})
	}
	return out
}
