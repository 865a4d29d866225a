package config_test

import (
	"context"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-ledger-backend/config"
	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/notification"
)

// TestExampleConfigBoots loads the shipped example and builds its notification senders
// the way the server does at startup.
func TestExampleConfigBoots(t *testing.T) {
	cfg, err := config.Load("config.example.yaml")
	require.NoError(t, err)

	push := &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	senders, closeSenders, err := notification.BuildSenders(context.Background(), &cfg.Notification, nil, push, logger.NewNop())
	require.NoError(t, err)
	defer closeSenders()

	require.Len(t, senders, len(cfg.Notification.Senders))
	assert.Equal(t, "log", senders[0].Name())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Registry.Facilities)
}
