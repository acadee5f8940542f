package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/campus-rental-backend/internal/auth"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/request"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/response"
	"github.com/nekogravitycat/campus-rental-backend/internal/reservation"
)

type Handler struct {
	service reservation.Service
}

func NewHandler(service reservation.Service) *Handler {
	return &Handler{service: service}
}

func actorFrom(c *gin.Context) reservation.Actor {
	return reservation.Actor{
		UserID:        auth.GetUserID(c),
		IsSystemAdmin: auth.IsSystemAdmin(c),
	}
}

func (h *Handler) Submit(c *gin.Context) {
	var body SubmitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	actor := actorFrom(c)
	requesterID := actor.UserID
	if body.RequesterID != nil {
		if !actor.IsSystemAdmin {
			response.Error(c, reservation.ErrPermissionDenied.WithMessage("only admins may book for another user"))
			return
		}
		requesterID = *body.RequesterID
	}

	r, err := h.service.Submit(c.Request.Context(), reservation.SubmitRequest{
		RequesterID: requesterID,
		ResourceIDs: body.ResourceIDs,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
		Metadata: reservation.Metadata{
			Purpose:     strings.TrimSpace(body.Purpose),
			SubjectName: strings.TrimSpace(body.SubjectName),
			Extra:       body.Extra,
		},
		AllowPastStart: actor.IsSystemAdmin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewResponse(r, h.service.Calendar()))
}

func (h *Handler) List(c *gin.Context) {
	var req ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	filter := reservation.Filter{
		RequesterID: req.RequesterID,
		ResourceID:  req.ResourceID,
		Status:      reservation.Status(req.Status),
		From:        req.From,
		To:          req.To,
		Page:        req.Page,
		PageSize:    req.PageSize,
		SortOrder:   strings.ToUpper(req.SortOrder),
	}

	items, total, err := h.service.List(c.Request.Context(), filter, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	cal := h.service.Calendar()
	resp := make([]ReservationResponse, len(items))
	for i, r := range items {
		resp[i] = NewResponse(r, cal)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(resp, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	r, err := h.service.GetByID(c.Request.Context(), uri.ID, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(r, h.service.Calendar()))
}

func (h *Handler) ListConflicts(c *gin.Context) {
	var body ConflictRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	conflicts, err := h.service.ListConflicts(c.Request.Context(), reservation.ConflictQuery{
		ResourceIDs: body.ResourceIDs,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
		ExcludeID:   body.ExcludeID,
	}, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, ConflictResponse{Conflicts: conflicts})
}

func (h *Handler) Edit(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body EditRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	r, err := h.service.Edit(c.Request.Context(), uri.ID, reservation.EditRequest{
		ResourceIDs: body.ResourceIDs,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
	}, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(r, h.service.Calendar()))
}

func (h *Handler) Approve(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	r, err := h.service.Approve(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(r, h.service.Calendar()))
}

func (h *Handler) Reject(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body RejectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	r, err := h.service.Reject(c.Request.Context(), uri.ID, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(r, h.service.Calendar()))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.ID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) PendingCount(c *gin.Context) {
	count, err := h.service.PendingCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, CountResponse{Count: count})
}
