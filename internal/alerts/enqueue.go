package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Emitter accepts notifications on behalf of producers. Callers treat
// delivery as best-effort and only log a returned error.
type Emitter interface {
	Notify(ctx context.Context, in NotificationInput) error
}

// AsynqEmitter enqueues notification:create tasks for the worker.
type AsynqEmitter struct {
	client *asynq.Client
}

func NewAsynqEmitter(client *asynq.Client) *AsynqEmitter {
	return &AsynqEmitter{client: client}
}

func (e *AsynqEmitter) Notify(ctx context.Context, in NotificationInput) error {
	b, err := json.Marshal(notificationPayload{
		ID:        uuid.NewString(),
		Input:     in,
		Requested: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("alerts: encode payload: %w", err)
	}
	task := asynq.NewTask(TaskNotificationCreate, b)
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueNotifications), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("alerts: enqueue %s: %w", in.Type, err)
	}
	return nil
}

// DirectEmitter writes straight to the inbox. Used when no Redis is configured.
type DirectEmitter struct {
	store Store
}

func NewDirectEmitter(store Store) *DirectEmitter {
	return &DirectEmitter{store: store}
}

func (e *DirectEmitter) Notify(ctx context.Context, in NotificationInput) error {
	return e.store.Create(ctx, newNotification(uuid.NewString(), in, time.Now().UTC()))
}

func newNotification(id string, in NotificationInput, at time.Time) *Notification {
	return &Notification{
		ID:        id,
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Content:   in.Content,
		Link:      in.Link,
		CreatedAt: at,
	}
}
