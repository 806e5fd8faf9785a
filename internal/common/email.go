package common

import "sync"

// EmailSender delivers a plain-text notification.
type EmailSender interface {
	Send(to, subject, body string) error
}

// Email is one message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	Body    string
}

// InMemoryEmail records messages instead of sending them. Safe for use by
// concurrent task handlers.
type InMemoryEmail struct {
	mu     sync.Mutex
	Outbox []Email
}

func (m *InMemoryEmail) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *InMemoryEmail) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.Outbox...)
}
