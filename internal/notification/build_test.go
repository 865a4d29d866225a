package notification

import (
	"context"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-ledger-backend/config"
	"parking-ledger-backend/internal/logger"
)

func TestBuildSenders(t *testing.T) {
	keys := &webpush.Options{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"}

	testCases := []struct {
		name    string
		senders []string
		push    *webpush.Options
		want    []string
		wantErr bool
	}{
		{name: "Log only", senders: []string{"log"}, want: []string{"log"}},
		{name: "Log and webpush", senders: []string{" LOG ", "webpush"}, push: keys, want: []string{"log", "webpush"}},
		{name: "Webpush without keys", senders: []string{"webpush"}, push: &webpush.Options{}, wantErr: true},
		{name: "Redis without address", senders: []string{"redis"}, wantErr: true},
		{name: "Unknown sender", senders: []string{"sms"}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.NotificationConfig{Senders: tc.senders}
			senders, closeAll, err := BuildSenders(context.Background(), cfg, nil, tc.push, logger.NewNop())
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer closeAll()

			var names []string
			for _, s := range senders {
				names = append(names, s.Name())
			}
			assert.Equal(t, tc.want, names)
		})
	}
}
