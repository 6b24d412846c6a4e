package services

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/huangang/cipulse/internal/config"
	"github.com/huangang/cipulse/pkg/logger"
)

// DeliveryError wraps a transport failure while handing an alert to SMTP,
// so callers can tell delivery problems apart from validation problems.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return "alert delivery failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Mailer delivers failure alerts over SMTP.
type Mailer struct {
	smtp  *config.SMTPConfig
	alert *config.AlertConfig
}

func NewMailer(smtpCfg *config.SMTPConfig, alertCfg *config.AlertConfig) *Mailer {
	return &Mailer{smtp: smtpCfg, alert: alertCfg}
}

// SendAlert sends one HTML alert email and returns its Message-ID.
// Missing sender/recipient or SMTP endpoint is a configuration error;
// anything that fails past that point is a *DeliveryError. There is no retry.
func (m *Mailer) SendAlert(subject, htmlBody string) (string, error) {
	if m.alert.From == "" || m.alert.To == "" {
		return "", errors.New("ALERT_FROM and ALERT_TO must be set for email alerts")
	}
	if m.smtp.Host == "" || m.smtp.Port == 0 {
		return "", errors.New("SMTP_HOST and SMTP_PORT must be set for email alerts")
	}

	messageID := fmt.Sprintf("<%s@cipulse>", uuid.NewString())
	recipients := splitRecipients(m.alert.To)

	headers := []string{
		"From: " + m.alert.From,
		"To: " + m.alert.To,
		"Subject: " + subject,
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(h)
		message.WriteString("\r\n")
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.smtp.Host, m.smtp.Port)

	var auth smtp.Auth
	if m.smtp.Username != "" && m.smtp.Password != "" {
		auth = smtp.PlainAuth("", m.smtp.Username, m.smtp.Password, m.smtp.Host)
	}

	var err error
	if m.smtp.UseTLS {
		err = m.sendTLS(addr, auth, recipients, message.String())
	} else {
		err = smtp.SendMail(addr, auth, m.alert.From, recipients, []byte(message.String()))
	}
	if err != nil {
		logger.Error().Err(err).Str("to", m.alert.To).Msg("failed to send alert email")
		return "", &DeliveryError{Err: err}
	}

	logger.Info().Str("message_id", messageID).Str("to", m.alert.To).Msg("alert email sent")
	return messageID, nil
}

func splitRecipients(to string) []string {
	var recipients []string
	for _, addr := range strings.Split(to, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return recipients
}

func (m *Mailer) sendTLS(addr string, auth smtp.Auth, to []string, message string) error {
	tlsConfig := &tls.Config{
		ServerName: m.smtp.Host,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.smtp.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(m.alert.From); err != nil {
		return err
	}

	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}

	if _, err := w.Write([]byte(message)); err != nil {
		return err
	}

	return w.Close()
}
