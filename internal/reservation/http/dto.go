package http

import (
	"time"

	"github.com/nekogravitycat/campus-rental-backend/internal/calendar"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/request"
	"github.com/nekogravitycat/campus-rental-backend/internal/reservation"
)

type ReservationResponse struct {
	ID              string            `json:"id"`
	ReceiptNumber   string            `json:"receipt_number"`
	RequesterID     string            `json:"requester_id"`
	ResourceIDs     []string          `json:"resource_ids"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	BusinessDays    int               `json:"business_days"`
	Status          string            `json:"status"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	Purpose         string            `json:"purpose"`
	SubjectName     string            `json:"subject_name"`
	Extra           map[string]string `json:"extra,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DecidedAt       *time.Time        `json:"decided_at,omitempty"`
}

// NewResponse renders r with times in the facility location.
func NewResponse(r *reservation.Reservation, cal *calendar.Engine) ReservationResponse {
	loc := cal.Location()
	resp := ReservationResponse{
		ID:              r.ID,
		ReceiptNumber:   r.ReceiptNumber(loc),
		RequesterID:     r.RequesterID,
		ResourceIDs:     r.ResourceIDs,
		StartTime:       r.StartTime.In(loc),
		EndTime:         r.EndTime.In(loc),
		BusinessDays:    cal.CountBusinessDays(r.StartTime, r.EndTime),
		Status:          string(r.Status),
		RejectionReason: r.RejectionReason,
		Purpose:         r.Metadata.Purpose,
		SubjectName:     r.Metadata.SubjectName,
		Extra:           r.Metadata.Extra,
		CreatedAt:       r.CreatedAt.In(loc),
		UpdatedAt:       r.UpdatedAt.In(loc),
	}
	if r.DecidedAt != nil {
		decided := r.DecidedAt.In(loc)
		resp.DecidedAt = &decided
	}
	return resp
}

type SubmitRequest struct {
	ResourceIDs []string          `json:"resource_ids" binding:"required,min=1,dive,uuid"`
	StartTime   time.Time         `json:"start_time" binding:"required"`
	EndTime     time.Time         `json:"end_time" binding:"required"`
	Purpose     string            `json:"purpose" binding:"required,notblank,max=500"`
	SubjectName string            `json:"subject_name" binding:"max=200"`
	Extra       map[string]string `json:"extra"`
	// RequesterID lets an admin book on behalf of a user.
	RequesterID *string `json:"requester_id" binding:"omitempty,uuid"`
}

type EditRequest struct {
	ResourceIDs []string   `json:"resource_ids" binding:"omitempty,min=1,dive,uuid"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type ConflictRequest struct {
	ResourceIDs []string  `json:"resource_ids" binding:"required,min=1,dive,uuid"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	ExcludeID   string    `json:"exclude_id" binding:"omitempty,uuid"`
}

type ConflictResponse struct {
	Conflicts []reservation.ConflictDetail `json:"conflicts"`
}

type ListReservationsRequest struct {
	request.ListParams
	Status      string     `form:"status" binding:"omitempty,oneof=REQUESTED APPROVED REJECTED"`
	ResourceID  string     `form:"resource_id" binding:"omitempty,uuid"`
	RequesterID string     `form:"requester_id" binding:"omitempty,uuid"`
	From        *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To          *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type CountResponse struct {
	Count int `json:"count"`
}
