// README: Trip lifecycle handlers: request, claim, start, complete, cancel.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"veni/internal/http/middleware"
	"veni/internal/modules/dispatch"
	"veni/internal/modules/placement"
	"veni/internal/modules/trip"
	"veni/internal/types"
)

type TripHandler struct {
	coord *dispatch.Coordinator
	trips *trip.Service
}

func NewTripHandler(coord *dispatch.Coordinator, trips *trip.Service) *TripHandler {
	return &TripHandler{coord: coord, trips: trips}
}

type requestTripReq struct {
	Origin      *coordinate `json:"origin"`
	Destination *coordinate `json:"destination"`
	Priority    string      `json:"priority"`
}

// Request creates a trip for the authenticated rider.
func (h *TripHandler) Request(c *gin.Context) {
	var req requestTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	// Absent coordinates must not silently become (0, 0).
	if req.Origin == nil || req.Destination == nil {
		writeError(c, http.StatusBadRequest, "origin and destination are required")
		return
	}

	priority := placement.PriorityNormal
	if req.Priority == string(placement.PriorityHigh) {
		priority = placement.PriorityHigh
	}

	res, err := h.coord.RequestTrip(c.Request.Context(), dispatch.Request{
		RiderID:     types.ID(middleware.CallerID(c)),
		Origin:      req.Origin.Point,
		Destination: req.Destination.Point,
		Priority:    priority,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *TripHandler) Get(c *gin.Context) {
	t, err := h.trips.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeTripError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ListPending returns claimable trips, oldest first.
func (h *TripHandler) ListPending(c *gin.Context) {
	trips, err := h.trips.ListPending(c.Request.Context())
	if err != nil {
		writeTripError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

// Accept claims a pending trip for the authenticated driver.
func (h *TripHandler) Accept(c *gin.Context) {
	driverID, ok := h.requireDriver(c)
	if !ok {
		return
	}
	t, err := h.coord.Accept(c.Request.Context(), types.ID(c.Param("id")), driverID)
	if err != nil {
		writeTripError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TripHandler) Start(c *gin.Context) {
	driverID, ok := h.requireDriver(c)
	if !ok {
		return
	}
	t, err := h.coord.Start(c.Request.Context(), types.ID(c.Param("id")), driverID)
	if err != nil {
		writeTripError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TripHandler) Complete(c *gin.Context) {
	driverID, ok := h.requireDriver(c)
	if !ok {
		return
	}
	t, err := h.coord.Complete(c.Request.Context(), types.ID(c.Param("id")), driverID)
	if err != nil {
		writeTripError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Cancel aborts a trip. The registry decides whether the caller may cancel.
func (h *TripHandler) Cancel(c *gin.Context) {
	t, err := h.coord.Cancel(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.CallerID(c)))
	if err != nil {
		writeTripError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// MetricsSummary reports trip counts by status for dashboards.
func (h *TripHandler) MetricsSummary(c *gin.Context) {
	ctx := c.Request.Context()
	total, err := h.trips.Count(ctx)
	if err != nil {
		writeTripError(c, err)
		return
	}
	byStatus := make(map[string]int64)
	for _, s := range []trip.Status{
		trip.StatusPending, trip.StatusAccepted, trip.StatusInProgress,
		trip.StatusCompleted, trip.StatusCancelled,
	} {
		n, err := h.trips.CountByStatus(ctx, s)
		if err != nil {
			writeTripError(c, err)
			return
		}
		byStatus[string(s)] = n
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "by_status": byStatus})
}

func (h *TripHandler) requireDriver(c *gin.Context) (types.ID, bool) {
	if middleware.CallerRole(c) != "driver" {
		writeError(c, http.StatusForbidden, "driver role required")
		return "", false
	}
	return types.ID(middleware.CallerID(c)), true
}
