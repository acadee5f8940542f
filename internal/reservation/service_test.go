package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/campus-rental-backend/internal/calendar"
	"github.com/nekogravitycat/campus-rental-backend/internal/event"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/logger"
	"github.com/nekogravitycat/campus-rental-backend/internal/resource"
	"github.com/nekogravitycat/campus-rental-backend/internal/user"
)

var kst = time.FixedZone("KST", 9*60*60)

// at builds a KST instant in March 2025. 2025-03-03 is a Monday.
func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, kst)
}

type fakeResources map[string]*resource.Resource

func (f fakeResources) GetByIDs(_ context.Context, ids []string) ([]*resource.Resource, error) {
	var out []*resource.Resource
	for _, id := range ids {
		if r, ok := f[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeUsers map[string]*user.User

func (f fakeUsers) GetActive(_ context.Context, id string) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	if !u.IsActive {
		return nil, user.ErrInactiveUser
	}
	return u, nil
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, e event.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

func (m *MockPublisher) published(typ event.Type) int {
	n := 0
	for _, call := range m.Calls {
		if call.Method == "Publish" && call.Arguments.Get(1).(event.Event).Type == typ {
			n++
		}
	}
	return n
}

type fixture struct {
	svc  Service
	repo *MemoryRepository
	pub  *MockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := NewMemoryRepository(TxConfig{Timeout: 2 * time.Second})
	repo.AddResources("cam-1", "cam-2", "room-1")

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	return &fixture{svc: newTestService(repo, pub), repo: repo, pub: pub}
}

// newTestService wires the shared catalog, users and a fixed clock of Monday 2025-03-03 10:00 KST.
func newTestService(repo Repository, pub event.Publisher) Service {
	resources := fakeResources{
		"cam-1":  {ID: "cam-1", Kind: resource.KindEquipment, Name: "Camera", ManagementNumber: "EQ-001"},
		"cam-2":  {ID: "cam-2", Kind: resource.KindEquipment, Name: "Camera", ManagementNumber: "EQ-002"},
		"room-1": {ID: "room-1", Kind: resource.KindFacility, Name: "Editing Room"},
	}
	users := fakeUsers{
		"student": {ID: "student", Email: "s@uni.ac.kr", IsActive: true},
		"other":   {ID: "other", Email: "o@uni.ac.kr", IsActive: true},
		"retired": {ID: "retired", Email: "r@uni.ac.kr"},
	}

	seq := 0
	var mu sync.Mutex
	return NewService(repo, resources, users, calendar.NewEngine(kst), pub, logger.Discard(),
		WithClock(func() time.Time { return at(3, 10) }),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("res-%d", seq)
		}),
	)
}

func (f *fixture) submit(t *testing.T, start, end time.Time, resourceIDs ...string) *Reservation {
	t.Helper()
	r, err := f.svc.Submit(context.Background(), SubmitRequest{
		RequesterID: "student",
		ResourceIDs: resourceIDs,
		StartTime:   start,
		EndTime:     end,
		Metadata:    Metadata{Purpose: "film shoot", SubjectName: "Media Production"},
	})
	require.NoError(t, err)
	return r
}

func conflictsOf(t *testing.T, err error) []ConflictDetail {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	details, ok := appErr.Details["conflicts"].([]ConflictDetail)
	require.True(t, ok)
	return details
}

var (
	student = Actor{UserID: "student"}
	admin   = Actor{UserID: "admin", IsSystemAdmin: true}
)

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t)

	r := f.submit(t, at(3, 9), at(5, 18), "cam-2", "cam-1", "cam-2")

	assert.Equal(t, "res-1", r.ID)
	assert.Equal(t, StatusRequested, r.Status)
	assert.Equal(t, []string{"cam-1", "cam-2"}, r.ResourceIDs)
	assert.Equal(t, at(3, 10), r.CreatedAt)
	assert.Equal(t, "20250303-1", r.ReceiptNumber(kst))
	assert.Equal(t, 1, f.pub.published(event.ReservationSubmitted))

	second := f.submit(t, at(10, 9), at(11, 9), "room-1")
	assert.Equal(t, "20250303-2", second.ReceiptNumber(kst))
}

func TestSubmit_RangeRules(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		start, end time.Time
		kind       error
		maxEnd     string
	}{
		{"end before start", at(4, 10), at(3, 10), calendar.ErrInvalidRange, ""},
		{"saturday start", at(8, 10), at(10, 10), calendar.ErrWeekendStart, ""},
		{"sunday end", at(7, 10), at(9, 10), calendar.ErrWeekendEnd, ""},
		{"too long from monday", at(3, 9), at(6, 9), calendar.ErrExceedsMaxDuration, "2025-03-05"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), SubmitRequest{
				RequesterID: "student",
				ResourceIDs: []string{"cam-1"},
				StartTime:   tc.start,
				EndTime:     tc.end,
			})
			require.ErrorIs(t, err, ErrRangeInvalid)
			assert.ErrorIs(t, err, tc.kind)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.NotEmpty(t, appErr.Details["reason"])
			if tc.maxEnd != "" {
				assert.Equal(t, tc.maxEnd, appErr.Details["max_end_date"])
			}
		})
	}

	_, total, err := f.svc.List(context.Background(), Filter{}, admin)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSubmit_StartInPast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lastMonday := at(3, 9).AddDate(0, 0, -7)

	req := SubmitRequest{
		RequesterID: "student",
		ResourceIDs: []string{"cam-1"},
		StartTime:   lastMonday,
		EndTime:     lastMonday.Add(2 * time.Hour),
	}
	_, err := f.svc.Submit(ctx, req)
	require.ErrorIs(t, err, ErrRangeInvalid)
	assert.ErrorIs(t, err, calendar.ErrStartInPast)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "START_IN_PAST", appErr.Details["reason"])

	// Earlier today is still today
	f.submit(t, at(3, 8), at(3, 9), "cam-2")

	req.AllowPastStart = true
	r, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, r.Status)
}

func TestSubmit_UnknownReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, SubmitRequest{
		RequesterID: "student", ResourceIDs: []string{"cam-1", "ghost"}, StartTime: at(3, 9), EndTime: at(3, 12),
	})
	assert.ErrorIs(t, err, resource.ErrNotFound)

	_, err = f.svc.Submit(ctx, SubmitRequest{
		RequesterID: "nobody", ResourceIDs: []string{"cam-1"}, StartTime: at(3, 9), EndTime: at(3, 12),
	})
	assert.ErrorIs(t, err, ErrRequesterNotFound)

	_, err = f.svc.Submit(ctx, SubmitRequest{
		RequesterID: "retired", ResourceIDs: []string{"cam-1"}, StartTime: at(3, 9), EndTime: at(3, 12),
	})
	assert.ErrorIs(t, err, user.ErrInactiveUser)

	_, err = f.svc.Submit(ctx, SubmitRequest{
		RequesterID: "student", ResourceIDs: []string{" "}, StartTime: at(3, 9), EndTime: at(3, 12),
	})
	assert.ErrorIs(t, err, ErrNoResources)
}

func TestSubmit_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.submit(t, at(3, 9), at(5, 18), "cam-1")

	_, err := f.svc.Submit(ctx, SubmitRequest{
		RequesterID: "student",
		ResourceIDs: []string{"cam-1", "cam-2"},
		StartTime:   at(4, 9),
		EndTime:     at(6, 9),
	})
	require.ErrorIs(t, err, ErrConflict)

	conflicts := conflictsOf(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "cam-1", conflicts[0].ResourceID)
	assert.Equal(t, "Camera (EQ-001)", conflicts[0].ResourceLabel)
	assert.Equal(t, existing.ID, conflicts[0].ReservationID)
	assert.True(t, at(5, 18).Equal(conflicts[0].EndTime))

	// cam-2 was free but must not have been reserved either.
	list, _, err := f.svc.List(ctx, Filter{ResourceID: "cam-2"}, admin)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmit_AdjacentRangesDoNotConflict(t *testing.T) {
	f := newFixture(t)

	f.submit(t, at(3, 9), at(4, 9), "cam-1")
	r := f.submit(t, at(4, 9), at(5, 9), "cam-1")

	assert.Equal(t, StatusRequested, r.Status)
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.submit(t, at(3, 9), at(5, 18), "cam-1")
	_, err := f.svc.Approve(ctx, first.ID)
	require.NoError(t, err)

	f.submit(t, at(5, 18), at(6, 12), "cam-1")

	_, err = f.svc.Submit(ctx, SubmitRequest{
		RequesterID: "student", ResourceIDs: []string{"cam-1"}, StartTime: at(4, 10), EndTime: at(4, 11),
	})
	require.ErrorIs(t, err, ErrConflict)
	conflicts := conflictsOf(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "cam-1", conflicts[0].ResourceID)
	assert.Equal(t, first.ID, conflicts[0].ReservationID)
}

func TestSubmit_ConcurrentDoubleSubmit(t *testing.T) {
	f := newFixture(t)
	const n = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(context.Background(), SubmitRequest{
				RequesterID: "student",
				ResourceIDs: []string{"cam-1"},
				StartTime:   at(3, 9),
				EndTime:     at(4, 9),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)

	count, err := f.svc.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestApprove_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, at(3, 9), at(4, 9), "cam-1")

	approved, err := f.svc.Approve(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	again, err := f.svc.Approve(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, again.Status)
	assert.Equal(t, 1, f.pub.published(event.ReservationApproved))

	_, err = f.svc.Reject(ctx, r.ID, "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Approve(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReject_RequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, at(3, 9), at(4, 9), "cam-1")

	_, err := f.svc.Reject(ctx, r.ID, "")
	require.ErrorIs(t, err, ErrReasonRequired)

	got, err := f.svc.GetByID(ctx, r.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, got.Status)
}

func TestReject_ReleasesResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, at(3, 9), at(4, 9), "cam-1")

	rejected, err := f.svc.Reject(ctx, r.ID, "equipment under repair")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "equipment under repair", *rejected.RejectionReason)

	f.submit(t, at(3, 9), at(4, 9), "cam-1")

	_, err = f.svc.Approve(ctx, r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Reject(ctx, r.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Edit(ctx, r.ID, EditRequest{}, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEdit_NoSelfConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, at(3, 9), at(5, 9), "cam-1")

	newEnd := at(4, 18)
	edited, err := f.svc.Edit(ctx, r.ID, EditRequest{EndTime: &newEnd}, student)
	require.NoError(t, err)
	assert.True(t, newEnd.Equal(edited.EndTime))
	assert.Equal(t, []string{"cam-1"}, edited.ResourceIDs)
}

func TestEdit_ConflictWithOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t, at(4, 9), at(5, 9), "cam-2")
	r := f.submit(t, at(4, 9), at(5, 9), "cam-1")

	_, err := f.svc.Edit(ctx, r.ID, EditRequest{ResourceIDs: []string{"cam-1", "cam-2"}}, admin)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "cam-2", conflictsOf(t, err)[0].ResourceID)

	got, err := f.svc.GetByID(ctx, r.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"cam-1"}, got.ResourceIDs)
}

func TestEdit_Permissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, at(3, 9), at(4, 9), "cam-1")
	newEnd := at(4, 12)

	_, err := f.svc.Edit(ctx, r.ID, EditRequest{EndTime: &newEnd}, Actor{UserID: "other"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.Approve(ctx, r.ID)
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, r.ID, EditRequest{EndTime: &newEnd}, student)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	edited, err := f.svc.Edit(ctx, r.ID, EditRequest{EndTime: &newEnd}, admin)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, edited.Status)
}

func TestEdit_RangeRules(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t, at(3, 9), at(4, 9), "cam-1")

	saturday := at(8, 9)
	_, err := f.svc.Edit(context.Background(), r.ID, EditRequest{EndTime: &saturday}, student)
	assert.ErrorIs(t, err, ErrRangeInvalid)
	assert.ErrorIs(t, err, calendar.ErrExceedsMaxDuration)
}

func TestEdit_StartInPast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, at(3, 9), at(4, 9), "cam-1")

	start := at(3, 9).AddDate(0, 0, -7)
	end := start.Add(8 * time.Hour)
	_, err := f.svc.Edit(ctx, r.ID, EditRequest{StartTime: &start, EndTime: &end}, student)
	assert.ErrorIs(t, err, calendar.ErrStartInPast)

	// Keeping the original start is always allowed
	newEnd := at(3, 18)
	_, err = f.svc.Edit(ctx, r.ID, EditRequest{EndTime: &newEnd}, student)
	require.NoError(t, err)

	edited, err := f.svc.Edit(ctx, r.ID, EditRequest{StartTime: &start, EndTime: &end}, admin)
	require.NoError(t, err)
	assert.True(t, start.Equal(edited.StartTime))
}

// racingRepository lets a rival reservation commit between the in-transaction
// check and the write, then fails the write the way the exclusion constraint does.
type racingRepository struct {
	*MemoryRepository
	rival *Reservation
}

func (r *racingRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return r.MemoryRepository.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := fn(ctx, tx); err != nil || r.rival == nil {
			return err
		}
		r.mu.Lock()
		r.reservations[r.rival.ID] = r.rival
		r.mu.Unlock()
		return translateError(fmt.Errorf("insert reservation resource failed: %w",
			&pgconn.PgError{Code: pgerrcode.ExclusionViolation, ConstraintName: "reservation_resources_no_overlap"}))
	})
}

func TestSubmit_ConstraintConflictNamesTheHolder(t *testing.T) {
	mem := NewMemoryRepository(TxConfig{Timeout: 2 * time.Second})
	mem.AddResources("cam-1", "cam-2")
	repo := &racingRepository{MemoryRepository: mem}
	svc := newTestService(repo, event.NewLogPublisher(logger.Discard()))
	ctx := context.Background()

	repo.rival = &Reservation{
		ID: "rival", RequesterID: "other", ResourceIDs: []string{"cam-1"},
		StartTime: at(4, 9), EndTime: at(4, 12), Status: StatusRequested,
	}
	_, err := svc.Submit(ctx, SubmitRequest{
		RequesterID: "student",
		ResourceIDs: []string{"cam-1", "cam-2"},
		StartTime:   at(3, 9),
		EndTime:     at(5, 9),
	})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "Camera (EQ-001)")

	conflicts := conflictsOf(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "rival", conflicts[0].ReservationID)
	assert.Equal(t, "cam-1", conflicts[0].ResourceID)
	assert.Equal(t, at(4, 12), conflicts[0].EndTime)
}

func TestEdit_ConstraintConflictNamesTheHolder(t *testing.T) {
	mem := NewMemoryRepository(TxConfig{Timeout: 2 * time.Second})
	mem.AddResources("cam-1", "cam-2")
	repo := &racingRepository{MemoryRepository: mem}
	svc := newTestService(repo, event.NewLogPublisher(logger.Discard()))
	ctx := context.Background()

	r, err := svc.Submit(ctx, SubmitRequest{
		RequesterID: "student",
		ResourceIDs: []string{"cam-1"},
		StartTime:   at(3, 9),
		EndTime:     at(4, 9),
	})
	require.NoError(t, err)

	repo.rival = &Reservation{
		ID: "rival", RequesterID: "other", ResourceIDs: []string{"cam-2"},
		StartTime: at(3, 12), EndTime: at(3, 15), Status: StatusApproved,
	}
	_, err = svc.Edit(ctx, r.ID, EditRequest{ResourceIDs: []string{"cam-1", "cam-2"}}, student)
	require.ErrorIs(t, err, ErrConflict)

	conflicts := conflictsOf(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "rival", conflicts[0].ReservationID)
	assert.Equal(t, "Camera (EQ-002)", conflicts[0].ResourceLabel)
}

func TestListConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, at(3, 9), at(5, 9), "cam-1")

	query := ConflictQuery{
		ResourceIDs: []string{"cam-1", "cam-2"},
		StartTime:   at(4, 9),
		EndTime:     at(4, 10),
	}
	got, err := f.svc.ListConflicts(ctx, query, student)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r.ID, got[0].ReservationID)
	assert.Equal(t, "cam-1", got[0].ResourceID)

	// Other requesters learn the item is taken, not whose reservation holds it
	got, err = f.svc.ListConflicts(ctx, query, Actor{UserID: "other"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].ReservationID)
	assert.Equal(t, "Camera (EQ-001)", got[0].ResourceLabel)

	got, err = f.svc.ListConflicts(ctx, query, admin)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r.ID, got[0].ReservationID)

	got, err = f.svc.ListConflicts(ctx, ConflictQuery{
		ResourceIDs: []string{"cam-1"},
		StartTime:   at(4, 9),
		EndTime:     at(4, 10),
		ExcludeID:   r.ID,
	}, student)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.svc.ListConflicts(ctx, ConflictQuery{
		ResourceIDs: []string{"cam-1"},
		StartTime:   at(4, 10),
		EndTime:     at(4, 10),
	}, student)
	assert.ErrorIs(t, err, ErrRangeInvalid)
}

func TestGetByIDAndList_Scoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, at(3, 9), at(4, 9), "cam-1")

	_, err := f.svc.GetByID(ctx, r.ID, Actor{UserID: "other"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	list, total, err := f.svc.List(ctx, Filter{}, Actor{UserID: "other"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	list, total, err = f.svc.List(ctx, Filter{}, student)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
}

func TestDelete_FreesResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t, at(3, 9), at(4, 9), "cam-1")

	require.NoError(t, f.svc.Delete(ctx, r.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, r.ID), ErrNotFound)
	assert.Equal(t, 1, f.pub.published(event.ReservationDeleted))

	f.submit(t, at(3, 9), at(4, 9), "cam-1")
}

func TestPublishFailureDoesNotFailSubmit(t *testing.T) {
	f := newFixture(t)
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	svc := NewService(f.repo, fakeResources{"cam-1": {ID: "cam-1", Name: "Camera"}},
		fakeUsers{"student": {ID: "student", IsActive: true}},
		calendar.NewEngine(kst), pub, logger.Discard())

	_, err := svc.Submit(context.Background(), SubmitRequest{
		RequesterID: "student", ResourceIDs: []string{"cam-1"}, StartTime: at(3, 9), EndTime: at(3, 12),
	})
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestMemoryRepository_TxTimeout(t *testing.T) {
	repo := NewMemoryRepository(TxConfig{Timeout: 20 * time.Millisecond})
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = repo.RunInTx(context.Background(), func(ctx context.Context, tx Tx) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := repo.RunInTx(context.Background(), func(ctx context.Context, tx Tx) error { return nil })
	close(release)
	assert.ErrorIs(t, err, ErrTransient)
}

func TestMemoryRepository_RollbackOnError(t *testing.T) {
	repo := NewMemoryRepository(TxConfig{})
	repo.AddResources("cam-1")
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.Create(ctx, &Reservation{ID: "r-1", ResourceIDs: []string{"cam-1"}, Status: StatusRequested}))
		_, err := tx.NextDaySequence(ctx, "20250303")
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.GetByID(ctx, "r-1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		seq, err := tx.NextDaySequence(ctx, "20250303")
		assert.Equal(t, 1, seq)
		return err
	})
	require.NoError(t, err)

	err = repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.LockResources(ctx, []string{"cam-1", "ghost"})
	})
	assert.ErrorIs(t, err, resource.ErrNotFound)
}
