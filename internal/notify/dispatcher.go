package notify

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/smartbus/school-bus-monitor/internal/db"
	"github.com/smartbus/school-bus-monitor/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Failure reasons injected by the lifecycle simulation. These are expected
// outcomes of the simulation, not bugs.
const (
	errGatewayTimeout       = "SMS gateway timeout"
	errRecipientUnreachable = "Message delivery failed - recipient unreachable"
)

// Request describes one driver message to dispatch.
type Request struct {
	BusID        string
	TemplateType string
	SenderID     string
	AlertID      *primitive.ObjectID
	CustomNote   string
	Speed        *float64
	Threshold    *float64
}

// hooks bundle the dispatcher's randomness and timing sources so tests can
// force stage outcomes and zero-length delays.
type hooks struct {
	sleep   func(d time.Duration)
	uniform func(min, max float64) float64
	chance  func(probability float64) bool
	now     func() time.Time
}

func defaultHooks() hooks {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return hooks{
		sleep:   time.Sleep,
		uniform: func(min, max float64) float64 { return min + rng.Float64()*(max-min) },
		chance:  func(probability float64) bool { return rng.Float64() < probability },
		now:     time.Now,
	}
}

// Dispatcher persists driver messages and simulates their delivery lifecycle
// in a detached background task per message.
type Dispatcher struct {
	messages db.MessageCollection
	hooks    hooks
}

// NewDispatcher creates a notification dispatcher over the message store.
func NewDispatcher(messages db.MessageCollection) *Dispatcher {
	return &Dispatcher{messages: messages, hooks: defaultHooks()}
}

// Dispatch renders the message, persists it in pending state and starts the
// background lifecycle task. It returns the message id without waiting for
// any delivery progress; the spawned task is the sole writer of the message
// status from this point on.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (primitive.ObjectID, error) {
	text := RenderMessage(req.TemplateType, req.Speed, req.Threshold, req.CustomNote)

	message := models.DriverMessage{
		BusID:        req.BusID,
		AlertID:      req.AlertID,
		MessageText:  text,
		TemplateType: req.TemplateType,
		CustomNote:   req.CustomNote,
		SentByUserID: req.SenderID,
		SentAt:       d.hooks.now().UTC(),
		Status:       models.MessageStatusPending,
	}

	id, err := d.messages.InsertMessage(ctx, message)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("persist driver message: %w", err)
	}

	go d.runLifecycle(id, req.BusID)

	log.WithFields(log.Fields{"message_id": id.Hex(), "bus_id": req.BusID}).
		Info("Started SMS lifecycle simulation")
	return id, nil
}

// runLifecycle advances one message through sent, delivered and read with
// randomized delays and failure injection. It never panics out: any error
// forces the message into failed so no message is left stuck in pending or
// sent.
func (d *Dispatcher) runLifecycle(id primitive.ObjectID, busID string) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("message_id", id.Hex()).Errorf("Lifecycle simulation panicked: %v", r)
			d.forceFailed(id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx := context.Background()

	// Stage 1: the send attempt.
	d.sleepSeconds(1.0, 3.0)
	if d.hooks.chance(0.05) {
		d.fail(ctx, id, busID, errGatewayTimeout)
		return
	}
	if err := d.messages.UpdateMessageStatus(ctx, id, db.MessageStatusUpdate{Status: models.MessageStatusSent}); err != nil {
		d.forceFailed(id, err.Error())
		return
	}
	log.WithFields(log.Fields{"message_id": id.Hex(), "bus_id": busID}).
		Info("[SMS SIMULATION] Message sent to driver")

	// Stage 2: delivery confirmation.
	d.sleepSeconds(2.0, 5.0)
	if d.hooks.chance(0.03) {
		d.fail(ctx, id, busID, errRecipientUnreachable)
		return
	}
	deliveredAt := d.hooks.now().UTC()
	err := d.messages.UpdateMessageStatus(ctx, id, db.MessageStatusUpdate{
		Status:      models.MessageStatusDelivered,
		DeliveredAt: &deliveredAt,
	})
	if err != nil {
		d.forceFailed(id, err.Error())
		return
	}
	log.WithFields(log.Fields{"message_id": id.Hex(), "bus_id": busID}).
		Info("[SMS SIMULATION] Message delivered to driver")

	// Stage 3: read acknowledgment, 70% of the time.
	if !d.hooks.chance(0.70) {
		log.WithFields(log.Fields{"message_id": id.Hex(), "bus_id": busID}).
			Info("[SMS SIMULATION] Message delivered but not read yet")
		return
	}
	d.sleepSeconds(5.0, 15.0)
	readAt := d.hooks.now().UTC()
	err = d.messages.UpdateMessageStatus(ctx, id, db.MessageStatusUpdate{
		Status: models.MessageStatusRead,
		ReadAt: &readAt,
	})
	if err != nil {
		d.forceFailed(id, err.Error())
		return
	}
	log.WithFields(log.Fields{"message_id": id.Hex(), "bus_id": busID}).
		Info("[SMS SIMULATION] Message read by driver")
}

func (d *Dispatcher) sleepSeconds(min, max float64) {
	d.hooks.sleep(time.Duration(d.hooks.uniform(min, max) * float64(time.Second)))
}

func (d *Dispatcher) fail(ctx context.Context, id primitive.ObjectID, busID, reason string) {
	err := d.messages.UpdateMessageStatus(ctx, id, db.MessageStatusUpdate{
		Status:       models.MessageStatusFailed,
		ErrorMessage: reason,
	})
	if err != nil {
		log.WithError(err).WithField("message_id", id.Hex()).Error("Failed to record message failure")
		return
	}
	log.WithFields(log.Fields{"message_id": id.Hex(), "bus_id": busID, "reason": reason}).
		Warn("[SMS SIMULATION] Message failed")
}

// forceFailed is the last-resort error path; it logs but cannot propagate.
func (d *Dispatcher) forceFailed(id primitive.ObjectID, reason string) {
	err := d.messages.UpdateMessageStatus(context.Background(), id, db.MessageStatusUpdate{
		Status:       models.MessageStatusFailed,
		ErrorMessage: reason,
	})
	if err != nil {
		log.WithError(err).WithField("message_id", id.Hex()).Error("Failed to force message into failed state")
	}
}
