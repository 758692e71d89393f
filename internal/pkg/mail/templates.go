package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

// Template names recorded in the email log.
const (
	TemplateConfirm = "confirm"
	TemplateWelcome = "welcome"
	TemplateGoodbye = "goodbye"
	TemplateHealth  = "health"
)

const confirmTpl = `<table style="max-width:560px;margin:0 auto;font-family:Inter,system-ui,Segoe UI,Roboto,Arial,sans-serif;color:#111;">
  <tr><td style="padding:24px 0;">
    <h1 style="margin:0 0 8px;font-size:20px;">Confirm your subscription</h1>
    <p style="margin:0 0 16px;line-height:1.6;">
      Thanks for subscribing to <strong>{{.SiteName}}</strong> 🎉
    </p>
    <p style="margin:0 0 20px;">
      <a href="{{.ConfirmURL}}" style="display:inline-block;background:#111;color:#fff;padding:12px 18px;border-radius:6px;text-decoration:none;">
        Confirm Subscription
      </a>
    </p>
    <p style="margin:0 0 16px;font-size:12px;color:#666;">
      Or open this link: <br/>
      <a href="{{.ConfirmURL}}" style="color:#111;">{{.ConfirmURL}}</a>
    </p>
  </td></tr>
</table>`

const welcomeTpl = `<table style="max-width:560px;margin:0 auto;font-family:Inter,system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;color:#111;">
  <tr><td style="padding:24px 0">
    <h1 style="margin:0 0 12px;font-size:22px;">
      Welcome to <span style="font-weight:600;">{{.SiteName}}</span> 🎉
    </h1>
    <p style="margin:0 0 8px;line-height:1.6">
      Thanks for confirming your subscription. You'll start getting updates soon.
    </p>
    <p style="margin:16px 0 0;font-size:12px;color:#666;">
      If this wasn't you, you can unsubscribe anytime from the footer of any email.
    </p>
  </td></tr>
</table>`

const goodbyeTpl = `<table style="max-width:560px;margin:0 auto;font-family:Inter,system-ui,Segoe UI,Roboto,Arial,sans-serif;color:#111;">
  <tr><td style="padding:24px 0">
    <h1 style="margin:0 0 12px;font-size:20px;">You're unsubscribed</h1>
    <p style="margin:0 0 8px;line-height:1.6">
      You won't receive any more emails from {{.SiteName}}.
      Sorry to see you go — you can resubscribe anytime.
    </p>
    <p style="margin:16px 0 0;font-size:12px;color:#666;">©{{year}} {{.SiteName}}</p>
  </td></tr>
</table>`

// ConfirmData is the data for confirmation emails.
type ConfirmData struct {
	SiteName   string
	ConfirmURL string
	// ListUnsubscribe enables the RFC 8058 one-click headers on this message.
	ListUnsubscribe ListUnsubscribe
}

// ListUnsubscribe carries the per-recipient unsubscribe endpoints.
type ListUnsubscribe struct {
	MailtoOrURL string // tokenized GET link
	OneClickURL string // POST target for one-click
}

func (l ListUnsubscribe) headers() map[string]string {
	if l.MailtoOrURL == "" && l.OneClickURL == "" {
		return nil
	}
	value := ""
	if l.OneClickURL != "" {
		value = "<" + l.OneClickURL + ">"
	}
	if l.MailtoOrURL != "" {
		if value != "" {
			value += ", "
		}
		value += "<" + l.MailtoOrURL + ">"
	}
	return map[string]string{
		"List-Unsubscribe":      value,
		"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
	}
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int { return time.Now().Year() },
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendConfirmation sends the confirm-your-subscription email.
func (s *Sender) SendConfirmation(ctx context.Context, to string, data ConfirmData) (string, error) {
	html, err := renderTemplate(confirmTpl, data)
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf(
		"Hi,\n\nPlease confirm your subscription to %s by opening this link:\n%s\n\nIf you didn't request this, you can ignore this email.",
		data.SiteName, data.ConfirmURL,
	)
	return s.Send(ctx, Message{
		To:      []string{to},
		Subject: "Please confirm your subscription",
		HTML:    html,
		Text:    text,
		Headers: data.ListUnsubscribe.headers(),
	})
}

// WelcomeData is the data for welcome emails.
type WelcomeData struct {
	SiteName        string
	ListUnsubscribe ListUnsubscribe
}

// SendWelcome sends the post-confirmation welcome email.
func (s *Sender) SendWelcome(ctx context.Context, to string, data WelcomeData) (string, error) {
	html, err := renderTemplate(welcomeTpl, data)
	if err != nil {
		return "", err
	}
	return s.Send(ctx, Message{
		To:      []string{to},
		Subject: "You're in! 🎉",
		HTML:    html,
		Headers: data.ListUnsubscribe.headers(),
	})
}

// GoodbyeData is the data for unsubscribe courtesy emails.
type GoodbyeData struct {
	SiteName string
}

// SendGoodbye sends the unsubscribe courtesy email.
func (s *Sender) SendGoodbye(ctx context.Context, to string, data GoodbyeData) (string, error) {
	html, err := renderTemplate(goodbyeTpl, data)
	if err != nil {
		return "", err
	}
	return s.Send(ctx, Message{
		To:      []string{to},
		Subject: "You've been unsubscribed",
		HTML:    html,
	})
}

// SendTest sends a plain health-check email and returns the provider id.
func (s *Sender) SendTest(ctx context.Context, to string) (string, error) {
	return s.Send(ctx, Message{
		To:      []string{to},
		Subject: "Health: mail provider check",
		HTML:    "<p>If you see this, the mail provider configuration is working.</p>",
		Text:    "If you see this, the mail provider configuration is working.",
	})
}
