// Package mail sends account mails over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	texttemplate "text/template"

	appidentity "github.com/ecommerce/backend/internal/application/identity"
	"github.com/ecommerce/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type mailTemplate struct {
	subject string
	html    *template.Template
	text    *texttemplate.Template
}

var (
	verificationMail = mailTemplate{
		subject: "Confirm your email address",
		html: template.Must(template.New("verify").Parse(
			`<p>Hi {{.Name}},</p>
<p>Thanks for signing up. Please confirm your email address by clicking the link below:</p>
<p><a href="{{.Link}}">Confirm my email</a></p>
<p>The link expires in {{.ExpiresIn}}.</p>`)),
		text: texttemplate.Must(texttemplate.New("verify").Parse(
			"Hi {{.Name}},\n\nPlease confirm your email address:\n{{.Link}}\n\nThe link expires in {{.ExpiresIn}}.\n")),
	}
	resetMail = mailTemplate{
		subject: "Reset your password",
		html: template.Must(template.New("reset").Parse(
			`<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. Use the link below to choose a new one:</p>
<p><a href="{{.Link}}">Reset my password</a></p>
<p>The link expires in {{.ExpiresIn}}. If you did not ask for this, you can ignore this email.</p>`)),
		text: texttemplate.Must(texttemplate.New("reset").Parse(
			"Hi {{.Name}},\n\nReset your password here:\n{{.Link}}\n\nThe link expires in {{.ExpiresIn}}.\n")),
	}
)

// SMTPMailer sends mails through an SMTP relay with gomail
type SMTPMailer struct {
	from   string
	sender Sender
	logger *zap.Logger
}

// NewSMTPMailer creates a mailer dialing cfg.Host:cfg.Port
func NewSMTPMailer(cfg config.MailConfig, logger *zap.Logger) *SMTPMailer {
	return NewSMTPMailerWithSender(cfg.From, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), logger)
}

// NewSMTPMailerWithSender creates a mailer over an existing sender
func NewSMTPMailerWithSender(from string, sender Sender, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{from: from, sender: sender, logger: logger}
}

// SendVerification sends the email confirmation link
func (m *SMTPMailer) SendVerification(ctx context.Context, mail appidentity.AccountMail) error {
	return m.send(ctx, verificationMail, mail)
}

// SendPasswordReset sends the password reset link
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, mail appidentity.AccountMail) error {
	return m.send(ctx, resetMail, mail)
}

func (m *SMTPMailer) send(ctx context.Context, tmpl mailTemplate, mail appidentity.AccountMail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var htmlBody, textBody bytes.Buffer
	if err := tmpl.html.Execute(&htmlBody, mail); err != nil {
		return fmt.Errorf("mail: failed to render %s: %w", tmpl.html.Name(), err)
	}
	if err := tmpl.text.Execute(&textBody, mail); err != nil {
		return fmt.Errorf("mail: failed to render %s: %w", tmpl.text.Name(), err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetAddressHeader("To", mail.To, mail.Name)
	msg.SetHeader("Subject", tmpl.subject)
	msg.SetBody("text/plain", textBody.String())
	msg.AddAlternative("text/html", htmlBody.String())

	if err := m.sender.DialAndSend(msg); err != nil {
		m.logger.Error("Failed to send mail",
			zap.String("to", mail.To),
			zap.String("subject", tmpl.subject),
			zap.Error(err))
		return fmt.Errorf("mail: failed to send to %s: %w", mail.To, err)
	}

	m.logger.Info("Mail sent", zap.String("to", mail.To), zap.String("subject", tmpl.subject))
	return nil
}

var _ appidentity.Mailer = (*SMTPMailer)(nil)
