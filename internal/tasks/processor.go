package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nazir74680/Tumor-segmeantation/internal/events"
	"github.com/nazir74680/Tumor-segmeantation/internal/models"
)

type NotificationStore interface {
	Create(ctx context.Context, n models.Notification) error
}

// Processor turns portal events into user notifications. The notification
// id is the stream entry id, so a redelivered entry is stored once.
type Processor struct {
	store  NotificationStore
	logger zerolog.Logger
}

func NewProcessor(store NotificationStore, logger zerolog.Logger) *Processor {
	return &Processor{
		store:  store,
		logger: logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	event, err := events.Decode(msg.Values)
	if err != nil {
		// poison entries are acked and dropped
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("discarding undecodable event")
		return nil
	}

	n, ok := notificationFor(event)
	if !ok {
		p.logger.Debug().Str("type", string(event.Type)).Msg("event has no notification")
		return nil
	}
	if n.UserID == "" {
		p.logger.Warn().Str("type", string(event.Type)).Str("message_id", msg.ID).Msg("event without user")
		return nil
	}

	n.ID = msg.ID
	if err := p.store.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	p.logger.Info().
		Str("type", string(event.Type)).
		Str("user_id", n.UserID).
		Msg("notification created")
	return nil
}

func notificationFor(e models.Event) (models.Notification, bool) {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	n := models.Notification{UserID: e.UserID, CreatedAt: at}

	switch e.Type {
	case models.EventSessionLogin:
		n.Kind = models.NotificationKindInfo
		n.Title = "Signed in"
		n.Message = fmt.Sprintf("New sign-in as %s.", e.Role)
	case models.EventSessionExpired:
		n.Kind = models.NotificationKindWarning
		n.Title = "Session expired"
		n.Message = "Your session expired. Please sign in again."
	case models.EventAnalysisCompleted:
		n.Kind = models.NotificationKindSuccess
		n.Title = "Analysis ready"
		n.Message = fmt.Sprintf("Segmentation completed: tumor area %.2f%%.", e.TumorPercentage)
	case models.EventAnalysisAnnotated:
		n.Kind = models.NotificationKindSuccess
		n.Title = "Annotation saved"
		n.Message = "Your edited mask was saved with the analysis."
	default:
		return models.Notification{}, false
	}
	return n, true
}
