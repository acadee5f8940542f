package resource

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/apperror"
)

var (
	ErrNotFound    = apperror.New(http.StatusNotFound, "RESOURCE_NOT_FOUND", "resource not found")
	ErrEmptyName   = apperror.New(http.StatusBadRequest, "INVALID_INPUT", "name cannot be empty")
	ErrInvalidKind = apperror.New(http.StatusBadRequest, "INVALID_INPUT", "kind must be EQUIPMENT or FACILITY")
	ErrInUse       = apperror.New(http.StatusConflict, "RESOURCE_IN_USE", "resource is held by an active reservation")
)

// Kind tells equipment units apart from facility rooms. Both share one reservation
// lifecycle; the kind only drives presentation and filtering.
type Kind string

const (
	KindEquipment Kind = "EQUIPMENT"
	KindFacility  Kind = "FACILITY"
)

// Valid reports whether k is a known resource kind.
func (k Kind) Valid() bool {
	return k == KindEquipment || k == KindFacility
}

// Resource represents a rentable unit (e.g., Camera #3, Editing Room).
type Resource struct {
	ID               string
	Kind             Kind
	Name             string
	ManagementNumber string // Inventory tag, optional for facilities
	CreatedAt        time.Time
}

// Label is the human-readable name shown in conflict messages.
func (r *Resource) Label() string {
	if r.ManagementNumber == "" {
		return r.Name
	}
	return r.Name + " (" + r.ManagementNumber + ")"
}

// Filter defines parameters for listing resources.
type Filter struct {
	Kind      Kind
	Keyword   string // Search in Name or ManagementNumber
	Page      int
	PageSize  int
	SortOrder string
}
