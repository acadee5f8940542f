package http

import (
	"time"

	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/request"
	"github.com/nekogravitycat/campus-rental-backend/internal/resource"
)

type ResourceResponse struct {
	ID               string    `json:"id"`
	Kind             string    `json:"kind"`
	Name             string    `json:"name"`
	ManagementNumber string    `json:"management_number,omitempty"`
	Label            string    `json:"label"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewResponse(r *resource.Resource) ResourceResponse {
	return ResourceResponse{
		ID:               r.ID,
		Kind:             string(r.Kind),
		Name:             r.Name,
		ManagementNumber: r.ManagementNumber,
		Label:            r.Label(),
		CreatedAt:        r.CreatedAt,
	}
}

type ListResourcesRequest struct {
	request.ListParams
	Kind    string `form:"kind" binding:"omitempty,oneof=EQUIPMENT FACILITY"`
	Keyword string `form:"q"`
}

type CreateRequest struct {
	Kind             string `json:"kind" binding:"required,oneof=EQUIPMENT FACILITY"`
	Name             string `json:"name" binding:"required,notblank"`
	ManagementNumber string `json:"management_number"`
}

type UpdateRequest struct {
	Name             *string `json:"name" binding:"omitempty,notblank"`
	ManagementNumber *string `json:"management_number"`
}
