package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Processor consumes notification tasks and writes them to the inbox.
type Processor struct {
	store Store
	log   *zap.Logger
}

func NewProcessor(store Store, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{store: store, log: logger}
}

// HandleNotificationCreate persists one queued notification. A payload that
// cannot be decoded is dropped without retry.
func (p *Processor) HandleNotificationCreate(ctx context.Context, t *asynq.Task) error {
	var payload notificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("alerts: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.ID == "" || payload.Input.UserID == "" {
		return fmt.Errorf("alerts: incomplete payload: %w", asynq.SkipRetry)
	}
	n := newNotification(payload.ID, payload.Input, payload.Requested)
	if err := p.store.Create(ctx, n); err != nil {
		p.log.Error("persist notification", zap.String("id", n.ID), zap.Error(err))
		return err
	}
	p.log.Debug("notification stored",
		zap.String("id", n.ID),
		zap.String("user_id", n.UserID),
		zap.String("type", string(n.Type)))
	return nil
}

// StartWorker runs the asynq server in the background. Call Shutdown on the
// returned server when the process stops.
func StartWorker(opt asynq.RedisConnOpt, p *Processor, concurrency int) (*asynq.Server, error) {
	if concurrency <= 0 {
		concurrency = 5
	}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskNotificationCreate, p.HandleNotificationCreate)

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueNotifications: 10},
		Logger:      p.log.Sugar(),
	})
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("alerts: start worker: %w", err)
	}
	p.log.Info("notification worker started", zap.Int("concurrency", concurrency))
	return srv, nil
}
