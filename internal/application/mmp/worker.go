package mmp

import (
	"context"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/common"
)

// NewRunRequestHandler consumes run request events.  Payload problems and
// input errors come back as validation errors so the consumer does not
// retry them; toolkit and store outages are returned as is and retried.
func NewRunRequestHandler(svc Service, log logging.Logger) common.MessageHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return func(ctx context.Context, msg *common.Message) error {
		env, err := kafka.MessageToEventEnvelope(msg)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeValidation, "run request: bad envelope")
		}
		var ev RunRequestedEvent
		if err := env.DecodePayload(&ev); err != nil {
			return errors.Wrap(err, errors.ErrCodeValidation, "run request: bad payload")
		}
		if ev.Input == "" {
			return errors.New(errors.ErrCodeValidation, "run request: input is required")
		}

		log.Info("run request received",
			logging.String("event_id", env.EventID),
			logging.String("run_id", ev.RunID),
			logging.String("input", ev.Input))
		_, err = svc.Run(ctx, ev.request())
		if err != nil && permanent(err) {
			return errors.Wrap(err, errors.ErrCodeValidation, "run request rejected")
		}
		return err
	}
}

// permanent reports whether retrying err cannot help.
func permanent(err error) bool {
	if errors.IsCancelled(err) {
		return false
	}
	return errors.IsValidation(err) || errors.IsNotFound(err)
}

//Personal.AI order the ending
