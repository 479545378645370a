package push

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/airconnect-api/pkg/jobs"
)

// Delivery is one queued live-push payload.
type Delivery struct {
	UserID  string
	Payload interface{}
}

// Dispatcher decouples notification fan-out from websocket delivery by
// pushing through the in-memory job queue. Delivery stays best-effort: queue
// overflow and handler failures are logged, never surfaced to the caller.
type Dispatcher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewDispatcher builds a dispatcher backed by the hub.
func NewDispatcher(hub *Hub, cfg jobs.QueueConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		delivery, ok := job.Payload.(Delivery)
		if !ok {
			return fmt.Errorf("unexpected push payload type %T", job.Payload)
		}
		return hub.PushToUser(delivery.UserID, delivery.Payload)
	}
	cfg.Logger = logger
	return &Dispatcher{
		queue:  jobs.NewQueue("live-push", handler, cfg),
		logger: logger,
	}
}

// Start begins delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// PushToUser enqueues a delivery. Errors are swallowed after logging; the
// live-push leg must never fail the triggering operation.
func (d *Dispatcher) PushToUser(userID string, payload interface{}) error {
	job := jobs.Job{Type: "push", Payload: Delivery{UserID: userID, Payload: payload}}
	if err := d.queue.Enqueue(job); err != nil {
		d.logger.Warn("live push dropped", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}
