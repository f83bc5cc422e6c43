package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"withdrawal_settlement/models"
	"withdrawal_settlement/pkg/notify"
)

const (
	DefaultQueueSize = 256
	deliveryTimeout  = 10 * time.Second
)

type AuditSink interface {
	Record(ctx context.Context, event models.AuditEvent) error
}

type job struct {
	audit *models.AuditEvent
	note  *models.Notification
}

// Dispatcher delivers audit events and notifications off the request path.
// Enqueueing never blocks: when the queue is full the event is dropped and
// the drop is logged.
type Dispatcher struct {
	audit    AuditSink
	notifier notify.Notifier
	queue    chan job
	workers  int
}

func NewDispatcher(audit AuditSink, notifier notify.Notifier, queueSize, workers int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		audit:    audit,
		notifier: notifier,
		queue:    make(chan job, queueSize),
		workers:  workers,
	}
}

func (d *Dispatcher) Audit(event models.AuditEvent) {
	d.enqueue(job{audit: &event}, logrus.Fields{"kind": event.Kind, "request_id": event.RequestID})
}

func (d *Dispatcher) Notify(n models.Notification) {
	d.enqueue(job{note: &n}, logrus.Fields{"event": n.Event, "request_id": n.RequestID})
}

func (d *Dispatcher) enqueue(j job, fields logrus.Fields) {
	select {
	case d.queue <- j:
	default:
		logrus.WithFields(fields).Warn("side-channel queue full, event dropped")
	}
}

// Run consumes the queue until ctx is cancelled, then drains what is left.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		id := i
		g.Go(func() error {
			d.loop(ctx, id)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			d.drain(id)
			return
		case j := <-d.queue:
			d.deliver(context.Background(), j)
		}
	}
}

func (d *Dispatcher) drain(id int) {
	for {
		select {
		case j := <-d.queue:
			d.deliver(context.Background(), j)
		default:
			logrus.WithField("worker", id).Info("side-channel worker stopped")
			return
		}
	}
}

func (d *Dispatcher) deliver(parent context.Context, j job) {
	ctx, cancel := context.WithTimeout(parent, deliveryTimeout)
	defer cancel()

	if j.audit != nil && d.audit != nil {
		if err := d.audit.Record(ctx, *j.audit); err != nil {
			logrus.WithFields(logrus.Fields{
				"kind":       j.audit.Kind,
				"request_id": j.audit.RequestID,
			}).WithError(err).Warn("audit event not recorded")
		}
	}
	if j.note != nil && d.notifier != nil {
		if err := d.notifier.Notify(ctx, *j.note); err != nil {
			logrus.WithFields(logrus.Fields{
				"event":      j.note.Event,
				"request_id": j.note.RequestID,
			}).WithError(err).Warn("notification not delivered")
		}
	}
}
