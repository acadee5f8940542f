// Package conflict decides which resources are already taken for a candidate range.
// It is a pure evaluator over a snapshot of blocking bookings supplied by the caller.
package conflict

import (
	"sort"
	"time"

	"github.com/nekogravitycat/campus-rental-backend/internal/calendar"
)

// Booking is one resource held by one blocking reservation.
type Booking struct {
	ReservationID string
	ResourceID    string
	Range         calendar.Range
}

// Conflict names a requested resource and the reservation that already holds it.
type Conflict struct {
	ResourceID    string
	ReservationID string
	Start         time.Time
	End           time.Time
}

// FindConflicts returns every (resource, reservation) collision between the candidate
// range and the snapshot, restricted to resourceIDs and skipping excludeID.
// The result is sorted by resource id then start time.
func FindConflicts(resourceIDs []string, candidate calendar.Range, excludeID string, snapshot []Booking) []Conflict {
	wanted := make(map[string]struct{}, len(resourceIDs))
	for _, id := range resourceIDs {
		wanted[id] = struct{}{}
	}

	var conflicts []Conflict
	for _, b := range snapshot {
		if excludeID != "" && b.ReservationID == excludeID {
			continue
		}
		if _, ok := wanted[b.ResourceID]; !ok {
			continue
		}
		if !b.Range.Overlaps(candidate) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			ResourceID:    b.ResourceID,
			ReservationID: b.ReservationID,
			Start:         b.Range.Start,
			End:           b.Range.End,
		})
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].ResourceID != conflicts[j].ResourceID {
			return conflicts[i].ResourceID < conflicts[j].ResourceID
		}
		return conflicts[i].Start.Before(conflicts[j].Start)
	})
	return conflicts
}

// ConflictingResourceIDs returns the distinct resource ids named in conflicts, in order.
func ConflictingResourceIDs(conflicts []Conflict) []string {
	seen := make(map[string]struct{}, len(conflicts))
	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		if _, ok := seen[c.ResourceID]; ok {
			continue
		}
		seen[c.ResourceID] = struct{}{}
		ids = append(ids, c.ResourceID)
	}
	return ids
}
