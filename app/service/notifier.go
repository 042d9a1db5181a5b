package service

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
)

const (
	ConfirmSubject = "Please confirm your email"
	ResetSubject   = "Reset your password"
)

var (
	confirmTemplate = template.Must(template.New("confirm").Parse(
		`<p>Welcome! Thanks for signing up. Please follow this link to activate your account:</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<br>
<p>Cheers!</p>`))

	resetTemplate = template.Must(template.New("reset").Parse(
		`<p>Hi {{.Email}},</p>
<p>Someone asked to reset the password of your account. If it was you, follow this link:</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p>If you did not ask for a reset you can ignore this message.</p>`))
)

// Notifier composes account links and mails them through a MailSender.
type Notifier struct {
	sender  MailSender
	baseURL string
}

func NewNotifier(sender MailSender, baseURL string) *Notifier {
	return &Notifier{sender: sender, baseURL: baseURL}
}

func (n *Notifier) ConfirmURL(token string) string {
	return n.baseURL + "/confirm/" + url.PathEscape(token)
}

func (n *Notifier) ResetURL(token string) string {
	return n.baseURL + "/forgot/new/" + url.PathEscape(token)
}

func (n *Notifier) SendConfirmation(ctx context.Context, email, token string) error {
	body, err := render(confirmTemplate, email, n.ConfirmURL(token))
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email, ConfirmSubject, body)
}

func (n *Notifier) SendPasswordReset(ctx context.Context, email, token string) error {
	body, err := render(resetTemplate, email, n.ResetURL(token))
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email, ResetSubject, body)
}

func render(tpl *template.Template, email, link string) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, struct {
		Email string
		URL   string
	}{Email: email, URL: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
