// Package push sends Web Push notifications to subscribed browsers.
package push

import (
	"context"
	"log"
	"os"

	"github.com/SherClockHolmes/webpush-go"
)

type Sender interface {
	Send(ctx context.Context, sub webpush.Subscription, payload []byte) error
}

// WebPush sends VAPID-signed notifications.
type WebPush struct {
	publicKey  string
	privateKey string
	subscriber string
}

var _ Sender = (*WebPush)(nil)

// NewFromEnv reads VAPID keys from the environment, generating a throwaway
// pair when none are set so development works out of the box.
func NewFromEnv() (*WebPush, error) {
	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	privateKey := os.Getenv("VAPID_PRIVATE_KEY")

	if publicKey == "" || privateKey == "" {
		var err error
		privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
		if err != nil {
			return nil, err
		}
		log.Println("generated ephemeral VAPID keys; set VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY in production")
	}

	subscriber := os.Getenv("VAPID_SUBSCRIBER")
	if subscriber == "" {
		subscriber = "mailto:admin@scribble.local"
	}

	return &WebPush{publicKey: publicKey, privateKey: privateKey, subscriber: subscriber}, nil
}

func (w *WebPush) PublicKey() string { return w.publicKey }

func (w *WebPush) Send(ctx context.Context, sub webpush.Subscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &sub, &webpush.Options{
		Subscriber:      w.subscriber,
		VAPIDPublicKey:  w.publicKey,
		VAPIDPrivateKey: w.privateKey,
		TTL:             60,
	})
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
