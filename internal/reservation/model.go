package reservation

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/nekogravitycat/campus-rental-backend/internal/calendar"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "NOT_FOUND", "reservation not found")
	ErrRequesterNotFound = apperror.New(http.StatusNotFound, "REQUESTER_NOT_FOUND", "requester not found")
	ErrNoResources       = apperror.New(http.StatusBadRequest, "INVALID_INPUT", "at least one resource is required")
	ErrRangeInvalid      = apperror.New(http.StatusBadRequest, "RANGE_INVALID", "requested time range is not allowed")
	ErrConflict          = apperror.New(http.StatusConflict, "CONFLICT", "requested resources are already reserved for this time")
	ErrInvalidTransition = apperror.New(http.StatusConflict, "INVALID_TRANSITION", "reservation cannot change from its current status")
	ErrReasonRequired    = apperror.New(http.StatusBadRequest, "REASON_REQUIRED", "a rejection reason is required")
	ErrTransient         = apperror.New(http.StatusServiceUnavailable, "TRANSIENT_FAILURE", "reservation store is busy, please retry")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, "PERMISSION_DENIED", "permission denied")
)

// Status is the lifecycle state shared by equipment and facility reservations.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusRequested || s == StatusApproved || s == StatusRejected
}

// Blocking reports whether a reservation in state s holds its resources.
func (s Status) Blocking() bool {
	return s == StatusRequested || s == StatusApproved
}

// Metadata is the descriptive part of a request. The scheduler never interprets it.
type Metadata struct {
	Purpose     string            `json:"purpose"`
	SubjectName string            `json:"subject_name"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Reservation holds one or more resources for a half-open time range.
type Reservation struct {
	ID              string // UUID
	RequesterID     string
	ResourceIDs     []string
	StartTime       time.Time
	EndTime         time.Time
	Status          Status
	RejectionReason *string
	Metadata        Metadata
	DaySequence     int // n-th reservation created on the same facility day
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DecidedAt       *time.Time
}

// Range returns the reserved interval.
func (r *Reservation) Range() calendar.Range {
	return calendar.Range{Start: r.StartTime, End: r.EndTime}
}

// ReceiptNumber formats the human-facing receipt, e.g. "20250303-4".
func (r *Reservation) ReceiptNumber(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%s-%d", r.CreatedAt.In(loc).Format("20060102"), r.DaySequence)
}

func (r *Reservation) clone() *Reservation {
	c := *r
	c.ResourceIDs = slices.Clone(r.ResourceIDs)
	if r.RejectionReason != nil {
		reason := *r.RejectionReason
		c.RejectionReason = &reason
	}
	if r.DecidedAt != nil {
		at := *r.DecidedAt
		c.DecidedAt = &at
	}
	c.Metadata.Extra = maps.Clone(r.Metadata.Extra)
	return &c
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	RequesterID string
	ResourceID  string
	Status      Status
	From        *time.Time // reservations ending after From
	To          *time.Time // reservations starting before To
	Page        int
	PageSize    int
	SortOrder   string
}
