// Package alerting delivers out-of-range notifications over SMTP. Alerting is
// a side channel: a failed send is logged and swallowed, never surfaced to the
// consumer loop.
package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"agrosynchro-engine/internal/config"
)

// Notifier sends an alert for one out-of-range measurement. Implementations
// are best-effort and must not block processing on transport failures.
type Notifier interface {
	SendAlert(ctx context.Context, recipient string, userID uint, measure string, value float64, expectedRange string)
}

// Mailer delivers alerts through an SMTP relay.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	// fallback recipient when the user has no contact address
	defaultRecipient string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		dialer:           gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:             cfg.SMTPUser,
		defaultRecipient: cfg.AlertEmail,
	}
}

// SendAlert formats and sends one alert mail. At most one attempt, no retry.
func (m *Mailer) SendAlert(ctx context.Context, recipient string, userID uint, measure string, value float64, expectedRange string) {
	if recipient == "" {
		recipient = m.defaultRecipient
	}
	if recipient == "" {
		log.Warn().Uint("user_id", userID).Msg("No alert recipient available, skipping alert")
		return
	}

	subject := fmt.Sprintf("⚠️ Alerta de sensor para usuario %d", userID)
	body := fmt.Sprintf(
		"El sensor del usuario %d reportó un valor fuera de rango:\n\n"+
			"- Medición: %s\n"+
			"- Valor recibido: %g\n"+
			"- Rango esperado: %s\n\n"+
			"Hora: %s",
		userID, measure, value, expectedRange, time.Now().Format(time.RFC3339))

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		log.Error().Err(err).
			Str("recipient", recipient).
			Uint("user_id", userID).
			Str("measure", measure).
			Msg("Failed to send alert email")
		return
	}

	log.Info().
		Str("recipient", recipient).
		Uint("user_id", userID).
		Str("measure", measure).
		Float64("value", value).
		Msg("Alert email sent")
}
