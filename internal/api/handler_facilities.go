package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetFacilities handles GET /api/facilities.
func (h *Handler) GetFacilities(c *gin.Context) {
	loads, err := h.ledger.ListFacilities(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loads)
}

// GetParkedVehicles handles GET /api/facilities/{facility_id}/vehicles.
func (h *Handler) GetParkedVehicles(c *gin.Context) {
	facilityID, ok := facilityParam(c)
	if !ok {
		return
	}

	records, err := h.ledger.ListParked(c.Request.Context(), facilityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetHistory handles GET /api/facilities/{facility_id}/history?limit=N.
func (h *Handler) GetHistory(c *gin.Context) {
	facilityID, ok := facilityParam(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.ledger.History(c.Request.Context(), facilityID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// SearchVehicles handles GET /api/vehicles?plate=FRAGMENT.
func (h *Handler) SearchVehicles(c *gin.Context) {
	vehicles, err := h.ledger.SearchByPlate(c.Request.Context(), c.Query("plate"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

func facilityParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("facility_id"), 10, 64)
	if err != nil || id < 1 {
		badRequest(c, "invalid facility id")
		return 0, false
	}
	return id, true
}
