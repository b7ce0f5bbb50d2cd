package identity

import "context"

// AccountMail is the data needed for verification and reset mails
type AccountMail struct {
	To        string
	Name      string
	Link      string
	ExpiresIn string // human readable, e.g. "5 hours"
}

// Mailer sends account mails
type Mailer interface {
	SendVerification(ctx context.Context, mail AccountMail) error
	SendPasswordReset(ctx context.Context, mail AccountMail) error
}
