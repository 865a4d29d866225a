package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-ledger-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint             string  `json:"endpoint" binding:"required"`
	P256DH               string  `json:"p256dh" binding:"required"`
	Auth                 string  `json:"auth" binding:"required"`
	SubscribedFacilities []int64 `json:"subscribed_facilities"`
}

// PutSubscription creates or replaces a push subscription and its facility set.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "endpoint, p256dh and auth are required")
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}

	var unknown bool
	err := h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Omit(clause.Associations).Create(&subscription).Error; err != nil {
			return err
		}

		var facilities []*model.Facility
		if len(req.SubscribedFacilities) > 0 {
			if err := tx.Find(&facilities, req.SubscribedFacilities).Error; err != nil {
				return err
			}
			if len(facilities) != len(uniqueIDs(req.SubscribedFacilities)) {
				unknown = true
				return errUnknownFacility
			}
		}

		return tx.Model(&subscription).Association("Facilities").Replace(facilities)
	})

	if unknown {
		writeError(c, http.StatusNotFound, "not_found", "one or more facilities do not exist")
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

var errUnknownFacility = errors.New("unknown facility")

func uniqueIDs(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes a subscription together with its facility mappings.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "endpoint is required")
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).
		Select("Facilities").
		Delete(&model.PushSubscription{Endpoint: req.Endpoint}).Error; err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query parameter without URL-decoding it. Push endpoints are
// stored exactly as the browser reported them.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription returns the facilities a subscription follows.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		badRequest(c, "endpoint is required")
		return
	}

	var subscription model.PushSubscription
	err := h.store.DB().WithContext(c.Request.Context()).
		Preload("Facilities").
		First(&subscription, "endpoint = ?", raw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(c, http.StatusNotFound, "not_found", "subscription not found")
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	facilityIDs := make([]int64, len(subscription.Facilities))
	for i, f := range subscription.Facilities {
		facilityIDs[i] = f.ID
	}

	c.JSON(http.StatusOK, gin.H{"subscribed_facilities": facilityIDs})
}
