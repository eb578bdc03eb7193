package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-confirm-api/internal/infrastructure/smtp"
	"github.com/go-confirm-api/internal/infrastructure/sns"
)

const sendTimeout = 30 * time.Second

// Notifier delivers confirmation codes out-of-band. Delivery is
// fire-and-forget: callers invoke it only after the confirmation record is
// durably persisted, and a delivery failure never rolls the record back.
type Notifier interface {
	SendEmailCode(email, code string)
	SendPhoneCode(phone, code string)
}

type notifier struct {
	mailer smtp.Mailer
	sms    sns.SMSSender
}

func New(mailer smtp.Mailer, sms sns.SMSSender) Notifier {
	return &notifier{mailer: mailer, sms: sms}
}

func (n *notifier) SendEmailCode(email, code string) {
	go func() {
		if err := n.mailer.SendEmail(email, "Confirmation code", "Your confirmation code: "+code); err != nil {
			slog.Error("send confirmation email", "to", email, "err", err)
			return
		}
		slog.Info("confirmation email sent", "to", email)
	}()
}

func (n *notifier) SendPhoneCode(phone, code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if n.sms == nil {
			slog.Warn("SMS sender not configured, dropping confirmation code", "to", phone)
			return
		}
		if err := n.sms.SendSMS(ctx, phone, fmt.Sprintf("Your confirmation code: %s", code)); err != nil {
			slog.Error("send confirmation SMS", "to", phone, "err", err)
			return
		}
		slog.Info("confirmation SMS sent", "to", phone)
	}()
}
