package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"quill/internal/config"
	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []*Email
	err  error
}

func (r *recordingSender) Send(_ context.Context, email *Email) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, email)
	return nil
}

func newTestMailer() (*Mailer, *recordingSender) {
	rec := &recordingSender{}
	return NewMailer(rec, Options{
		From:          "Quill <quill@example.com>",
		SubjectPrefix: "[Quill]",
		BaseURL:       "https://quill.test/",
	}), rec
}

func TestMailer_AccountEmails(t *testing.T) {
	u := &models.User{Email: "alice@example.com", Username: "alice"}

	tests := []struct {
		name    string
		send    func(m *Mailer) error
		to      string
		subject string
		link    string
	}{
		{
			name:    "confirmation",
			send:    func(m *Mailer) error { return m.SendConfirmation(context.Background(), u, "tok1") },
			to:      "alice@example.com",
			subject: "[Quill] Confirm Your Account",
			link:    "https://quill.test/auth/confirm/tok1",
		},
		{
			name:    "password reset",
			send:    func(m *Mailer) error { return m.SendPasswordReset(context.Background(), u, "tok2") },
			to:      "alice@example.com",
			subject: "[Quill] Reset Your Password",
			link:    "https://quill.test/auth/reset/tok2",
		},
		{
			name:    "email change goes to the new address",
			send:    func(m *Mailer) error { return m.SendEmailChange(context.Background(), u, "new@example.com", "tok3") },
			to:      "new@example.com",
			subject: "[Quill] Confirm your email address",
			link:    "https://quill.test/auth/change-email/tok3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, rec := newTestMailer()
			require.NoError(t, tt.send(m))
			require.Len(t, rec.sent, 1)

			email := rec.sent[0]
			assert.Equal(t, []string{tt.to}, email.To)
			assert.Equal(t, "Quill <quill@example.com>", email.From)
			assert.Equal(t, tt.subject, email.Subject)
			assert.Contains(t, email.Text, "Dear alice")
			assert.Contains(t, email.Text, tt.link)
			assert.Contains(t, email.HTML, `href="`+tt.link+`"`)
		})
	}
}

func TestMailer_NewUser(t *testing.T) {
	m, rec := newTestMailer()
	require.NoError(t, m.SendNewUser(context.Background(), "admin@example.com", &models.User{Username: "bob"}))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, []string{"admin@example.com"}, rec.sent[0].To)
	assert.Equal(t, "[Quill] New User", rec.sent[0].Subject)
	assert.Contains(t, rec.sent[0].HTML, "<strong>bob</strong>")
}

func TestMailer_PropagatesSenderError(t *testing.T) {
	rec := &recordingSender{err: errors.New("smtp down")}
	m := NewMailer(rec, Options{})
	err := m.SendConfirmation(context.Background(), &models.User{Email: "a@example.com"}, "t")
	assert.EqualError(t, err, "smtp down")
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, s.Send(context.Background(), &Email{To: []string{"a@example.com"}, Subject: "hi", Text: "body"}))
	assert.Contains(t, buf.String(), "subject=hi")
	assert.Contains(t, buf.String(), "to=a@example.com")
}

func TestNewSender(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		provider string
		want     Sender
	}{
		{"", &LogSender{}},
		{"log", &LogSender{}},
		{"resend", &ResendSender{}},
	}
	for _, tt := range tests {
		s, err := NewSender(&config.Config{MailProvider: tt.provider, ResendAPIKey: "re_test"}, logger)
		require.NoError(t, err, tt.provider)
		assert.IsType(t, tt.want, s, tt.provider)
	}

	_, err := NewSender(&config.Config{MailProvider: "smtp"}, logger)
	assert.ErrorContains(t, err, `unsupported provider "smtp"`)
}

func TestResendSender_PostsEmail(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer srv.Close()

	s := NewResendSender("re_test")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	s.client.BaseURL = base

	err = s.Send(context.Background(), &Email{
		From:    "quill@example.com",
		To:      []string{"alice@example.com"},
		Subject: "hello",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", got["subject"])
	assert.Equal(t, "<p>hi</p>", got["html"])
}
