// Package email sends transactional mail (welcome, receipts, certificates).
package email

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/aimastery/academy/backend/models"
)

type Message struct {
	To      []mail.Address
	Subject string
	Text    string
	HTML    string
}

func (m *Message) HasRecipients() bool { return len(m.To) > 0 }
func (m *Message) HasContent() bool    { return m.Text != "" || m.HTML != "" }

// Sender is any service that can deliver messages. SendMessages must not block
// the caller on delivery.
type Sender interface {
	SendMessages(messages ...*Message)
}

func recipient(u *models.User) []mail.Address {
	return []mail.Address{{Name: u.Username, Address: u.Email}}
}

func Welcome(u *models.User, frontendURL string) *Message {
	return &Message{
		To:      recipient(u),
		Subject: "Welcome to AI Mastery Academy",
		Text: fmt.Sprintf("Hi %s,\n\nYour account is ready. Start learning at %s/courses\n",
			u.Username, strings.TrimRight(frontendURL, "/")),
	}
}

func Receipt(u *models.User, p *models.Payment) *Message {
	return &Message{
		To:      recipient(u),
		Subject: "Your " + string(p.Tier) + " access is active",
		Text: fmt.Sprintf("Hi %s,\n\nWe received your payment of %s for the %s tier. Enjoy the new content!\n",
			u.Username, FormatAmount(p.Amount, p.Currency), p.Tier),
	}
}

func CertificateIssued(u *models.User, course *models.Course, cert *models.Certificate, frontendURL string) *Message {
	return &Message{
		To:      recipient(u),
		Subject: "Certificate earned: " + course.Title,
		Text: fmt.Sprintf("Congratulations %s!\n\nYou completed %s. Verify your certificate at %s/certificates/%s\n",
			u.Username, course.Title, strings.TrimRight(frontendURL, "/"), cert.Code),
	}
}

// FormatAmount renders cents, e.g. 4900 usd -> "49.00 USD".
func FormatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}
