// README: Shared handler utilities (error mapping, coordinate decoding).
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"veni/internal/modules/driver"
	"veni/internal/modules/placement"
	"veni/internal/modules/trip"
	"veni/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

func writeTripError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trip.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, trip.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, trip.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, trip.ErrAlreadyClaimed),
		errors.Is(err, trip.ErrDriverBusy),
		errors.Is(err, trip.ErrInvalidState):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, placement.ErrNoServers):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeDriverError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, driver.ErrInvalid):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, driver.ErrNotFound), errors.Is(err, driver.ErrNoDrivers):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// coordinate decodes either the object form {"lat": .., "lng": ..} or the
// positional form [lat, lng] that older clients still send.
type coordinate struct {
	types.Point
}

func (co *coordinate) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var arr []float64
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		if len(arr) != 2 {
			return errors.New("coordinate array must be [lat, lng]")
		}
		co.Lat, co.Lng = arr[0], arr[1]
		return nil
	}
	var p types.Point
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	co.Point = p
	return nil
}
