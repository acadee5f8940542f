package reservation

import (
	"strings"
	"time"
)

// approve moves REQUESTED to APPROVED. Approving an approved reservation is a
// no-op and reports changed=false.
func (r *Reservation) approve(now time.Time) (changed bool, err error) {
	switch r.Status {
	case StatusRequested:
		r.Status = StatusApproved
		r.UpdatedAt = now
		r.DecidedAt = &now
		return true, nil
	case StatusApproved:
		return false, nil
	default:
		return false, ErrInvalidTransition.WithMessage("a rejected reservation cannot be approved")
	}
}

// reject moves REQUESTED to REJECTED. The reason is checked before the state,
// so a blank reason never changes anything.
func (r *Reservation) reject(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}

	switch r.Status {
	case StatusRequested:
		r.Status = StatusRejected
		r.RejectionReason = &reason
		r.UpdatedAt = now
		r.DecidedAt = &now
		return nil
	case StatusApproved:
		return ErrInvalidTransition.WithMessage("an approved reservation cannot be rejected")
	default:
		return ErrInvalidTransition.WithMessage("reservation is already rejected")
	}
}

// checkEditable guards edits: REJECTED is terminal.
func (r *Reservation) checkEditable() error {
	if r.Status == StatusRejected {
		return ErrInvalidTransition.WithMessage("a rejected reservation cannot be edited")
	}
	return nil
}
