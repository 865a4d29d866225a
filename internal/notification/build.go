package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"parking-ledger-backend/config"
	"parking-ledger-backend/internal/logger"
)

// BuildSenders creates the senders named in cfg.Senders. The returned close function
// releases connections held by the senders.
func BuildSenders(ctx context.Context, cfg *config.NotificationConfig, db *gorm.DB, push *webpush.Options, log *logger.Logger) ([]Sender, func(), error) {
	var (
		senders []Sender
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	for _, name := range cfg.Senders {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "log":
			senders = append(senders, NewLogSender(log))
		case "webpush":
			if push == nil || push.VAPIDPublicKey == "" || push.VAPIDPrivateKey == "" {
				closeAll()
				return nil, nil, fmt.Errorf("webpush sender requires VAPID keys")
			}
			senders = append(senders, NewWebPushSender(db, push, log))
		case "redis":
			rs, err := NewRedisSender(ctx, cfg.Redis.Addr, cfg.Redis.Channel)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			senders = append(senders, rs)
			closers = append(closers, rs.Close)
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown notification sender %q", name)
		}
	}
	return senders, closeAll, nil
}
