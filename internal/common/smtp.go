package common

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"time"
)

// SMTPSender delivers plain-text mail through a relay. Username enables PLAIN auth.
type SMTPSender struct {
	Addr     string
	Username string
	Password string
	From     string
	Now      func() time.Time

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Send implements EmailSender.
func (s SMTPSender) Send(to, subject, body string) error {
	if s.Addr == "" {
		return errors.New("smtp: relay address not configured")
	}
	from, err := mail.ParseAddress(s.From)
	if err != nil {
		return fmt.Errorf("smtp: from address: %w", err)
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("smtp: recipient address: %w", err)
	}
	var auth smtp.Auth
	if s.Username != "" {
		host, _, err := net.SplitHostPort(s.Addr)
		if err != nil {
			return fmt.Errorf("smtp: relay address: %w", err)
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	send := s.send
	if send == nil {
		send = smtp.SendMail
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return send(s.Addr, auth, from.Address, []string{rcpt.Address}, buildMessage(from, rcpt, subject, body, now()))
}

func buildMessage(from, to *mail.Address, subject, body string, at time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", at.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.Bytes()
}
