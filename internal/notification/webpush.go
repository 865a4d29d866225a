package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/model"
)

// PushClient sends one web push message.
type PushClient interface {
	Send(ctx context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

type webpushClient struct{}

func (webpushClient) Send(ctx context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotificationWithContext(ctx, payload, sub, options)
}

// WebPushSender notifies every browser subscribed to the event's facility.
type WebPushSender struct {
	db      *gorm.DB
	options *webpush.Options
	client  PushClient
	log     *logger.Logger
}

func NewWebPushSender(db *gorm.DB, options *webpush.Options, log *logger.Logger) *WebPushSender {
	return &WebPushSender{
		db:      db,
		options: options,
		client:  webpushClient{},
		log:     log.With("sender", "webpush"),
	}
}

func (s *WebPushSender) Name() string { return "webpush" }

type pushPayload struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Kind       Kind   `json:"kind"`
	Plate      string `json:"plate"`
	FacilityID int64  `json:"facilityId"`
}

// Notify sends the event to each subscription of the facility. Subscriptions the push
// service reports as gone are deleted.
func (s *WebPushSender) Notify(ctx context.Context, ev Event) error {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_facility_mapping sfm ON sfm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sfm.facility_id = ?", ev.FacilityID).
		Find(&subscriptions).Error
	if err != nil {
		return fmt.Errorf("failed to fetch subscriptions for facility %d: %w", ev.FacilityID, err)
	}
	if len(subscriptions) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushPayload{
		Title:      ev.FacilityName,
		Body:       ev.Message,
		Kind:       ev.Kind,
		Plate:      ev.Plate,
		FacilityID: ev.FacilityID,
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, sub := range subscriptions {
		if err := s.send(ctx, sub, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// send sends a single web push notification.
func (s *WebPushSender) send(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := s.client.Send(ctx, payload, wpSub, s.options)
	if err != nil {
		return fmt.Errorf("push to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		s.log.Info("subscription expired, deleting", "endpoint", sub.Endpoint)
		if err := s.db.WithContext(ctx).Select("Facilities").Delete(&sub).Error; err != nil {
			return fmt.Errorf("delete expired subscription %s: %w", sub.Endpoint, err)
		}
		return nil
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push to %s: unexpected status %d", sub.Endpoint, resp.StatusCode)
	}
	return nil
}
