package subscriber

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/thekandidedit/core/internal/models"
	"github.com/thekandidedit/core/internal/pkg/emailtoken"
	"github.com/thekandidedit/core/internal/pkg/mail"
	"github.com/thekandidedit/core/internal/pkg/metrics"
	"go.uber.org/zap"
)

// Mailer is the notification sink the engine dispatches through. Each
// send returns the provider message id. Failures are logged and recorded,
// never propagated to the lifecycle caller.
type Mailer interface {
	SendConfirmation(ctx context.Context, to string, data mail.ConfirmData) (string, error)
	SendWelcome(ctx context.Context, to string, data mail.WelcomeData) (string, error)
	SendGoodbye(ctx context.Context, to string, data mail.GoodbyeData) (string, error)
}

// Site identifies the public site for link building and email copy.
type Site struct {
	Name    string
	BaseURL string // absolute, no trailing slash
}

// Service is the subscriber lifecycle engine. All durable state lives in
// the Store; the conditional updates there are the only synchronization.
type Service struct {
	store  Store
	mailer Mailer
	codec  *emailtoken.Codec
	site   Site
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store Store, mailer Mailer, codec *emailtoken.Codec, site Site, log *zap.Logger) *Service {
	return &Service{
		store:  store,
		mailer: mailer,
		codec:  codec,
		site:   site,
		log:    log,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SubscribeResult is the outcome of a Subscribe action.
type SubscribeResult struct {
	AlreadyActive bool
	Sent          bool
	ConfirmURL    string
}

// NormalizeEmail lowercases and trims an address; the normalized form is
// the subscriber's natural key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscribe creates or re-arms a pending subscriber and sends a
// confirmation email with a fresh signed token. An already-active address
// is a no-op and no email is sent, so confirmed subscribers cannot be
// spammed with confirm links.
func (s *Service) Subscribe(ctx context.Context, email string) (*SubscribeResult, error) {
	email = NormalizeEmail(email)

	confirmToken, err := newStoredToken()
	if err != nil {
		return nil, err
	}

	err = s.store.InsertPending(ctx, email, confirmToken)
	if errors.Is(err, ErrDuplicate) {
		n, rearmErr := s.store.RearmPending(ctx, email, confirmToken)
		if rearmErr != nil {
			metrics.SubscribeActions.WithLabelValues("subscribe", "error").Inc()
			return nil, rearmErr
		}
		if n == 0 {
			// Row exists and is active: leave it untouched.
			metrics.SubscribeActions.WithLabelValues("subscribe", "already_active").Inc()
			return &SubscribeResult{AlreadyActive: true}, nil
		}
	} else if err != nil {
		metrics.SubscribeActions.WithLabelValues("subscribe", "error").Inc()
		return nil, err
	}

	signed, err := s.codec.Issue(email, emailtoken.PurposeConfirm)
	if err != nil {
		return nil, err
	}
	confirmURL := s.site.BaseURL + "/api/v2/subscribe/confirm?token=" + url.QueryEscape(signed)

	sent := s.sendConfirmation(ctx, email, confirmURL)
	metrics.SubscribeActions.WithLabelValues("subscribe", "pending").Inc()

	return &SubscribeResult{Sent: sent, ConfirmURL: confirmURL}, nil
}

// Confirm verifies a signed confirm token and activates the subscriber.
// Replaying a consumed token succeeds without re-sending the welcome
// email. A token for an address with no row fails with ErrNotFound.
func (s *Service) Confirm(ctx context.Context, token string) (string, error) {
	email, err := s.codec.Verify(token, emailtoken.PurposeConfirm)
	if err != nil {
		metrics.SubscribeActions.WithLabelValues("confirm", "token_error").Inc()
		return "", err
	}

	matched, transitioned, err := s.store.Activate(ctx, email)
	if err != nil {
		metrics.SubscribeActions.WithLabelValues("confirm", "error").Inc()
		return "", err
	}
	if !matched {
		metrics.SubscribeActions.WithLabelValues("confirm", "not_found").Inc()
		return "", ErrNotFound
	}
	if transitioned {
		s.sendWelcome(ctx, email)
		metrics.SubscribeActions.WithLabelValues("confirm", "activated").Inc()
	} else {
		metrics.SubscribeActions.WithLabelValues("confirm", "replay").Inc()
	}
	return email, nil
}

// Unsubscribe marks the address unsubscribed. Idempotent: absent rows and
// already-unsubscribed rows are a silent success, and only an actual
// transition sends the courtesy email.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	n, err := s.store.MarkUnsubscribed(ctx, email, s.now())
	if err != nil {
		metrics.SubscribeActions.WithLabelValues("unsubscribe", "error").Inc()
		return err
	}
	if n > 0 {
		s.sendGoodbye(ctx, email)
		metrics.SubscribeActions.WithLabelValues("unsubscribe", "done").Inc()
	} else {
		metrics.SubscribeActions.WithLabelValues("unsubscribe", "noop").Inc()
	}
	return nil
}

// UnsubscribeByToken verifies a signed unsubscribe token and unsubscribes
// the address it names.
func (s *Service) UnsubscribeByToken(ctx context.Context, token string) (string, error) {
	email, err := s.codec.Verify(token, emailtoken.PurposeUnsubscribe)
	if err != nil {
		metrics.SubscribeActions.WithLabelValues("unsubscribe", "token_error").Inc()
		return "", err
	}
	return email, s.Unsubscribe(ctx, email)
}

// OneClickUnsubscribe is the RFC 8058 mail-client callback. It applies
// the unsubscribe silently and swallows store failures: mailbox providers
// only care that the callback is accepted, and erroring would trigger
// retry storms.
func (s *Service) OneClickUnsubscribe(ctx context.Context, recipient string) {
	email := NormalizeEmail(recipient)
	if email == "" {
		return
	}
	n, err := s.store.MarkUnsubscribed(ctx, email, s.now())
	if err != nil {
		s.log.Warn("one-click unsubscribe store error",
			zap.String("email", email), zap.Error(err))
		metrics.SubscribeActions.WithLabelValues("one_click", "error").Inc()
		return
	}
	if n > 0 {
		metrics.SubscribeActions.WithLabelValues("one_click", "done").Inc()
	} else {
		metrics.SubscribeActions.WithLabelValues("one_click", "noop").Inc()
	}
}

// ListSubscribers returns all subscriber rows for the admin surface.
func (s *Service) ListSubscribers(ctx context.Context) ([]models.SubscriberModel, error) {
	return s.store.List(ctx)
}

// listUnsubscribe builds the per-recipient RFC 8058 header values. Errors
// here only cost the header, never the send.
func (s *Service) listUnsubscribe(email string) mail.ListUnsubscribe {
	lu := mail.ListUnsubscribe{
		OneClickURL: s.site.BaseURL + "/api/v2/unsubscribe/one-click",
	}
	if token, err := s.codec.Issue(email, emailtoken.PurposeUnsubscribe); err == nil {
		lu.MailtoOrURL = s.site.BaseURL + "/api/v2/unsubscribe?token=" + url.QueryEscape(token)
	}
	return lu
}

func (s *Service) sendConfirmation(ctx context.Context, email, confirmURL string) bool {
	id, err := s.mailer.SendConfirmation(ctx, email, mail.ConfirmData{
		SiteName:        s.site.Name,
		ConfirmURL:      confirmURL,
		ListUnsubscribe: s.listUnsubscribe(email),
	})
	s.recordSend(ctx, email, mail.TemplateConfirm, id, err)
	return err == nil
}

func (s *Service) sendWelcome(ctx context.Context, email string) {
	id, err := s.mailer.SendWelcome(ctx, email, mail.WelcomeData{
		SiteName:        s.site.Name,
		ListUnsubscribe: s.listUnsubscribe(email),
	})
	s.recordSend(ctx, email, mail.TemplateWelcome, id, err)
}

func (s *Service) sendGoodbye(ctx context.Context, email string) {
	id, err := s.mailer.SendGoodbye(ctx, email, mail.GoodbyeData{SiteName: s.site.Name})
	s.recordSend(ctx, email, mail.TemplateGoodbye, id, err)
}

// recordSend logs and email-logs one send attempt. Send failures stop
// here: the lifecycle transition already committed.
func (s *Service) recordSend(ctx context.Context, email, template, providerID string, sendErr error) {
	entry := &models.EmailLogModel{
		Email:      email,
		Template:   template,
		Status:     models.EmailLogStatusSent,
		ProviderID: providerID,
	}
	if sendErr != nil {
		if errors.Is(sendErr, mail.ErrDisabled) {
			return
		}
		entry.Status = models.EmailLogStatusFailed
		entry.Error = sendErr.Error()
		metrics.EmailFailures.WithLabelValues(template).Inc()
		s.log.Warn("email send failed",
			zap.String("email", email),
			zap.String("template", template),
			zap.Error(sendErr))
	} else {
		metrics.EmailsSent.WithLabelValues(template).Inc()
	}
	if err := s.store.AppendEmailLog(ctx, entry); err != nil {
		s.log.Warn("email log append failed", zap.Error(err))
	}
}

func newStoredToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
