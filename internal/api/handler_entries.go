package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type plateRequest struct {
	Plate      string `json:"plate" binding:"required"`
	FacilityID int64  `json:"facilityId" binding:"required"`
}

// PostEntry handles POST /api/entries.
func (h *Handler) PostEntry(c *gin.Context) {
	var req plateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "plate and facilityId are required")
		return
	}

	id, err := h.ledger.Admit(c.Request.Context(), req.Plate, req.FacilityID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"occupancyRecordId": id})
}

// PostExit handles POST /api/exits.
func (h *Handler) PostExit(c *gin.Context) {
	var req plateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "plate and facilityId are required")
		return
	}

	msg, err := h.ledger.Release(c.Request.Context(), req.Plate, req.FacilityID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}
