// Package notify holds the outbound delivery channels used by the
// notification consumer.
package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// Mailer sends notifications as plain-text email over SMTP.
type Mailer struct {
	From string
	send func(m *gomail.Message) error
}

// NewMailer returns a Mailer that dials host:port for every message.
func NewMailer(host string, port int, user, pass, from string) *Mailer {
	d := gomail.NewDialer(host, port, user, pass)
	if from == "" {
		from = user
	}
	return &Mailer{From: from, send: func(m *gomail.Message) error { return d.DialAndSend(m) }}
}

func (m *Mailer) Name() string { return "email" }

// Deliver emails the contact.  Contacts without an address are skipped.
func (m *Mailer) Deliver(_ context.Context, to model.Contact, title, message string) error {
	if strings.TrimSpace(to.Email) == "" {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetAddressHeader("To", to.Email, to.FullName)
	msg.SetHeader("Subject", title)
	msg.SetBody("text/plain", greeting(to)+message)
	if err := m.send(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func greeting(to model.Contact) string {
	if to.FullName == "" {
		return "Hello,\n\n"
	}
	return fmt.Sprintf("Hello %s,\n\n", to.FullName)
}
