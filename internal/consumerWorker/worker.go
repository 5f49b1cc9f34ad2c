package consumerWorker

import (
	"context"

	"github.com/rs/zerolog"

	"mttsite/internal/dto"
)

type Source interface {
	Consume(handler func(dto.RegistrationMessage) error) error
}

type Sender interface {
	SendRegistrationEmail(msg dto.RegistrationMessage) error
}

// Reader turns queued registration notifications into e-mails.
type Reader struct {
	src    Source
	mail   Sender
	log    *zerolog.Logger
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(src Source, mail Sender, log *zerolog.Logger) *Reader {
	return &Reader{
		src:  src,
		mail: mail,
		log:  log,
		done: make(chan struct{}),
	}
}

// Handle sends the e-mail for one message. Delivery failures are logged and
// swallowed so a dead mail server does not requeue forever.
func (r *Reader) Handle(msg dto.RegistrationMessage) error {
	r.log.Info().
		Str("registration_id", msg.RegistrationID).
		Str("event_id", msg.EventID).
		Str("status", msg.Status).
		Msg("📩 Received registration notification")

	if msg.Email == "" {
		r.log.Warn().Str("registration_id", msg.RegistrationID).Msg("notification without e-mail, skipping")
		return nil
	}
	if err := r.mail.SendRegistrationEmail(msg); err != nil {
		r.log.Warn().Err(err).Str("registration_id", msg.RegistrationID).Msg("Failed to send notification on e-mail")
	}
	return nil
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.log.Info().Msg("🐇 RabbitMQ Reader started")

	go func() {
		defer close(r.done)

		if err := r.src.Consume(r.Handle); err != nil {
			r.log.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		r.log.Info().Msg("🛑 RabbitMQ Reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
