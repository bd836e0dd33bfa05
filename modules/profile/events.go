package profile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/accountkit/accountkit/pkg/webhook"
)

// EventUserDataUpdated is emitted after every successful mutation, carrying
// the post-mutation record for the webhook/audit subsystem.
const EventUserDataUpdated = "User.Data.Updated"

// UserEvent is the change-notification payload.
type UserEvent struct {
	ID        uuid.UUID `json:"id"`
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"createdAt"`
	User      *User     `json:"user"`
}

// Emitter delivers change notifications to the out-of-scope webhook/audit
// subsystem.
type Emitter interface {
	Emit(ctx context.Context, event string, user *User) error
}

// WebhookEmitter delivers events as signed webhook POSTs.
type WebhookEmitter struct {
	sender *webhook.Sender
	url    string
	secret string
}

// NewWebhookEmitter creates an emitter delivering to url. When secret is
// non-empty, payloads are HMAC-signed.
func NewWebhookEmitter(sender *webhook.Sender, url, secret string) *WebhookEmitter {
	if sender == nil {
		sender = webhook.NewSender()
	}
	return &WebhookEmitter{sender: sender, url: url, secret: secret}
}

func (e *WebhookEmitter) Emit(ctx context.Context, event string, user *User) error {
	payload := UserEvent{
		ID:        uuid.New(),
		Event:     event,
		CreatedAt: time.Now().UTC(),
		User:      user,
	}

	opts := []webhook.SendOption{webhook.WithHeader("X-Event-Type", event)}
	if e.secret != "" {
		opts = append(opts, webhook.WithSignature(e.secret))
	}

	return e.sender.Send(ctx, e.url, payload, opts...)
}

// NoopEmitter drops events. Default when no webhook endpoint is configured.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, string, *User) error { return nil }

var (
	_ Emitter = (*WebhookEmitter)(nil)
	_ Emitter = NoopEmitter{}
)
