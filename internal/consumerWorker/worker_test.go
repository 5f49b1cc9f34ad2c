package consumerWorker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mttsite/internal/dto"
)

type chanSource struct{ msgs chan dto.RegistrationMessage }

func (s chanSource) Consume(handler func(dto.RegistrationMessage) error) error {
	go func() {
		for m := range s.msgs {
			_ = handler(m)
		}
	}()
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []dto.RegistrationMessage
	err  error
}

func (r *recordingSender) SendRegistrationEmail(msg dto.RegistrationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestReaderDeliversEmails(t *testing.T) {
	log := zerolog.Nop()
	src := chanSource{msgs: make(chan dto.RegistrationMessage, 2)}
	sender := &recordingSender{}
	r := NewReader(src, sender, &log)

	r.Start(context.Background())
	src.msgs <- dto.RegistrationMessage{RegistrationID: "r1", Email: "a@b.co"}
	src.msgs <- dto.RegistrationMessage{RegistrationID: "r2"}

	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 5*time.Millisecond)
	r.Stop()
	close(src.msgs)
}

func TestHandleSwallowsMailErrors(t *testing.T) {
	log := zerolog.Nop()
	r := NewReader(nil, &recordingSender{err: errors.New("smtp down")}, &log)
	assert.NoError(t, r.Handle(dto.RegistrationMessage{Email: "a@b.co"}))
}
