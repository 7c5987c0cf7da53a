// README: Driver directory handlers: register, location, availability, nearby.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"veni/internal/http/middleware"
	"veni/internal/modules/driver"
	"veni/internal/types"
)

type DriverHandler struct {
	drivers *driver.Directory
}

func NewDriverHandler(drivers *driver.Directory) *DriverHandler {
	return &DriverHandler{drivers: drivers}
}

type registerDriverReq struct {
	Location  coordinate `json:"location"`
	Available bool       `json:"available"`
}

// Register adds the authenticated driver to the directory.
func (h *DriverHandler) Register(c *gin.Context) {
	var req registerDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d := driver.Driver{
		ID:        types.ID(middleware.CallerID(c)),
		Location:  req.Location.Point,
		Available: req.Available,
	}
	if err := h.drivers.Register(c.Request.Context(), d); err != nil {
		writeDriverError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

type updateLocationReq struct {
	Location coordinate `json:"location"`
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	id, ok := h.requireSelf(c)
	if !ok {
		return
	}
	var req updateLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.drivers.UpdateLocation(c.Request.Context(), id, req.Location.Point); err != nil {
		writeDriverError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type availabilityReq struct {
	Available bool `json:"available"`
}

func (h *DriverHandler) SetAvailability(c *gin.Context) {
	id, ok := h.requireSelf(c)
	if !ok {
		return
	}
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.drivers.SetAvailability(c.Request.Context(), id, req.Available); err != nil {
		writeDriverError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Nearby lists available drivers around a point, closest first.
func (h *DriverHandler) Nearby(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		writeError(c, http.StatusBadRequest, "lat and lng query params required")
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err1 = strconv.Atoi(raw)
		if err1 != nil || limit < 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	candidates, err := h.drivers.Nearby(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, limit)
	if err != nil {
		writeDriverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drivers": candidates})
}

// requireSelf ensures drivers only mutate their own record.
func (h *DriverHandler) requireSelf(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if middleware.CallerID(c) != id {
		writeError(c, http.StatusForbidden, "cannot modify another driver")
		return "", false
	}
	return types.ID(id), true
}
