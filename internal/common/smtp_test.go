package common

import (
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSMTPSenderBuildsMessage(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	sender := SMTPSender{
		Addr:     "smtp.ecofor.cl:587",
		Username: "mailer",
		Password: "secret",
		From:     "Ecofor Market <no-reply@ecofor.cl>",
		Now:      func() time.Time { return time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC) },
		send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
			return nil
		},
	}

	require.NoError(t, sender.Send("cliente@example.com", "Cotización #12", "<p>hola</p>"))
	require.Equal(t, "smtp.ecofor.cl:587", gotAddr)
	require.NotNil(t, gotAuth)
	require.Equal(t, "no-reply@ecofor.cl", gotFrom)
	require.Equal(t, []string{"cliente@example.com"}, gotTo)
	require.Contains(t, gotMsg, "Subject: =?utf-8?q?Cotizaci=C3=B3n_#12?=\r\n")
	require.Contains(t, gotMsg, "Date: Thu, 07 Mar 2024 10:00:00 +0000\r\n")
	require.True(t, strings.HasSuffix(gotMsg, "\r\n\r\n<p>hola</p>\r\n"))
}

func TestSMTPSenderRejectsBadInput(t *testing.T) {
	noop := func(string, smtp.Auth, string, []string, []byte) error { return nil }

	require.Error(t, SMTPSender{From: "a@b.cl", send: noop}.Send("c@d.cl", "s", "b"))
	require.Error(t, SMTPSender{Addr: "relay:25", From: "nope", send: noop}.Send("c@d.cl", "s", "b"))
	require.Error(t, SMTPSender{Addr: "relay:25", From: "a@b.cl", send: noop}.Send("not an address", "s", "b"))
	require.NoError(t, SMTPSender{Addr: "relay:25", From: "a@b.cl", send: noop}.Send("c@d.cl", "s", "b"))
}
