package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	appidentity "github.com/ecommerce/backend/internal/application/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	messages []*gomail.Message
	err      error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, m...)
	return nil
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSMTPMailer_SendVerification(t *testing.T) {
	sender := &captureSender{}
	mailer := NewSMTPMailerWithSender("Shop <no-reply@shop.example>", sender, zap.NewNop())

	err := mailer.SendVerification(context.Background(), appidentity.AccountMail{
		To:        "alice@example.com",
		Name:      "Alice",
		Link:      "https://shop.example/verify?token=abc",
		ExpiresIn: "5 hours",
	})
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, []string{"Confirm your email address"}, msg.GetHeader("Subject"))
	assert.Equal(t, []string{"Shop <no-reply@shop.example>"}, msg.GetHeader("From"))
	assert.Contains(t, msg.GetHeader("To")[0], "alice@example.com")

	raw := render(t, msg)
	assert.Contains(t, raw, "https://shop.example/verify?token=3Dabc", "quoted-printable body carries the link")
	assert.Contains(t, raw, "5 hours")
	assert.Contains(t, raw, "text/html")
}

func TestSMTPMailer_SendPasswordReset(t *testing.T) {
	sender := &captureSender{}
	mailer := NewSMTPMailerWithSender("no-reply@shop.example", sender, zap.NewNop())

	err := mailer.SendPasswordReset(context.Background(), appidentity.AccountMail{
		To:        "bob@example.com",
		Name:      "Bob",
		Link:      "https://shop.example/reset/xyz",
		ExpiresIn: "20 minutes",
	})
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Equal(t, []string{"Reset your password"}, sender.messages[0].GetHeader("Subject"))
	assert.Contains(t, render(t, sender.messages[0]), "https://shop.example/reset/xyz")
}

func TestSMTPMailer_SendFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("connection refused")}
	mailer := NewSMTPMailerWithSender("no-reply@shop.example", sender, zap.NewNop())

	err := mailer.SendVerification(context.Background(), appidentity.AccountMail{To: "x@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	sender := &captureSender{}
	mailer := NewSMTPMailerWithSender("no-reply@shop.example", sender, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mailer.SendVerification(ctx, appidentity.AccountMail{To: "x@example.com"}), context.Canceled)
	assert.Empty(t, sender.messages)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mailer := NewLogMailer(zap.New(core))

	require.NoError(t, mailer.SendVerification(context.Background(), appidentity.AccountMail{To: "a@example.com", Link: "L1"}))
	require.NoError(t, mailer.SendPasswordReset(context.Background(), appidentity.AccountMail{To: "a@example.com", Link: "L2"}))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "L1", entries[0].ContextMap()["link"])
	assert.Equal(t, "L2", entries[1].ContextMap()["link"])
}
