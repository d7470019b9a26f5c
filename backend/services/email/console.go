package email

import (
	"log"
	"sync"
)

// ConsoleSender logs messages instead of delivering them and keeps them for
// inspection. It is used when no SendGrid key is configured and in tests.
type ConsoleSender struct {
	logger *log.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Sender = (*ConsoleSender)(nil)

func NewConsoleSender(logger *log.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger}
}

func (s *ConsoleSender) SendMessages(messages ...*Message) {
	for _, msg := range messages {
		if msg == nil || !msg.HasRecipients() {
			continue
		}
		s.mu.Lock()
		s.sent = append(s.sent, *msg)
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Printf("email to %s: %s", msg.To[0].Address, msg.Subject)
		}
	}
}

func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
