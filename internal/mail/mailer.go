package mail

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"quill/internal/models"
	"quill/internal/render"
)

// Mailer builds the account emails.
type Mailer struct {
	sender  Sender
	from    string
	prefix  string
	baseURL string
}

// Options configures a Mailer.
type Options struct {
	From          string
	SubjectPrefix string
	BaseURL       string
}

// NewMailer returns a Mailer delivering through sender.
func NewMailer(sender Sender, opts Options) *Mailer {
	return &Mailer{
		sender:  sender,
		from:    opts.From,
		prefix:  opts.SubjectPrefix,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

var templates = template.Must(template.New("mail").Parse(`
{{define "confirm"}}Dear {{.User.Username}},

Welcome to Quill! To confirm your account please follow [this link]({{.Link}}).

Alternatively, paste the following address into your browser:

{{.Link}}

Sincerely,

The Quill Team
{{end}}
{{define "reset_password"}}Dear {{.User.Username}},

To reset your password [click here]({{.Link}}).

Alternatively, paste the following address into your browser:

{{.Link}}

If you have not requested a password reset simply ignore this message.

Sincerely,

The Quill Team
{{end}}
{{define "change_email"}}Dear {{.User.Username}},

To confirm your new email address [click here]({{.Link}}).

Alternatively, paste the following address into your browser:

{{.Link}}

Sincerely,

The Quill Team
{{end}}
{{define "new_user"}}User **{{.User.Username}}** has joined.
{{end}}
`))

type templateData struct {
	User *models.User
	Link string
}

// send renders name with data and delivers it to to.
func (m *Mailer) send(ctx context.Context, to, subject, name string, data templateData) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s email: %w", name, err)
	}
	text := strings.TrimSpace(buf.String())
	html, err := render.Markdown(text)
	if err != nil {
		return err
	}

	if m.prefix != "" {
		subject = m.prefix + " " + subject
	}
	return m.sender.Send(ctx, &Email{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
}

func (m *Mailer) link(path, token string) string {
	return m.baseURL + path + token
}

// SendConfirmation mails the account confirmation link to u.
func (m *Mailer) SendConfirmation(ctx context.Context, u *models.User, token string) error {
	return m.send(ctx, u.Email, "Confirm Your Account", "confirm",
		templateData{User: u, Link: m.link("/auth/confirm/", token)})
}

// SendPasswordReset mails the reset link to u.
func (m *Mailer) SendPasswordReset(ctx context.Context, u *models.User, token string) error {
	return m.send(ctx, u.Email, "Reset Your Password", "reset_password",
		templateData{User: u, Link: m.link("/auth/reset/", token)})
}

// SendEmailChange mails the confirmation link to the requested new address.
func (m *Mailer) SendEmailChange(ctx context.Context, u *models.User, newEmail, token string) error {
	return m.send(ctx, newEmail, "Confirm your email address", "change_email",
		templateData{User: u, Link: m.link("/auth/change-email/", token)})
}

// SendNewUser tells the administrator that u registered.
func (m *Mailer) SendNewUser(ctx context.Context, admin string, u *models.User) error {
	return m.send(ctx, admin, "New User", "new_user", templateData{User: u})
}
