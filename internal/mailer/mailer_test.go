package mailer

import (
	"errors"
	"mime"
	"net/smtp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mttsite/internal/dto"
	"mttsite/internal/model"
)

func TestCompose(t *testing.T) {
	subject, body := Compose(dto.RegistrationMessage{Name: "Asha", EventTitle: "Workshop", Status: model.RegistrationApproved})
	assert.Contains(t, subject, "confirmed")
	assert.Contains(t, body, "Workshop")

	_, body = Compose(dto.RegistrationMessage{Name: "Asha", EventTitle: "Workshop", Status: model.RegistrationPending, PaymentStatus: model.PaymentPending, Amount: 500})
	assert.Contains(t, body, "₹500.00")

	_, body = Compose(dto.RegistrationMessage{Status: model.RegistrationPending, PaymentStatus: model.PaymentCompleted})
	assert.NotContains(t, body, "payment")
}

func TestSendRegistrationEmail(t *testing.T) {
	log := zerolog.Nop()

	m := New(Config{}, &log)
	assert.ErrorIs(t, m.SendRegistrationEmail(dto.RegistrationMessage{Email: "a@b.co"}), ErrNotConfigured)

	m = New(Config{Host: "smtp.example.com", Port: 587, From: "noreply@example.com", Username: "u", Password: "p"}, &log)
	var gotAddr string
	var gotTo []string
	var gotMsg string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.NotNil(t, a)
		return nil
	}
	approved := dto.RegistrationMessage{Email: "a@b.co", Status: model.RegistrationApproved}
	require.NoError(t, m.SendRegistrationEmail(approved))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"a@b.co"}, gotTo)

	headers, _, ok := strings.Cut(gotMsg, "\r\n\r\n")
	require.True(t, ok)
	var subjectLine string
	for _, line := range strings.Split(headers, "\r\n") {
		if v, found := strings.CutPrefix(line, "Subject: "); found {
			subjectLine = v
		}
	}
	assert.True(t, isASCII(subjectLine), subjectLine)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subjectLine)
	require.NoError(t, err)
	wantSubject, _ := Compose(approved)
	assert.Equal(t, wantSubject, decoded)

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("boom") }
	assert.Error(t, m.SendRegistrationEmail(dto.RegistrationMessage{Email: "a@b.co"}))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
