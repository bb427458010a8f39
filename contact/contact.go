// Package contact records contact-form submissions and optionally emails the
// site owner about each one.
package contact

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/klipach/cozycurated/apperror"
	"github.com/klipach/cozycurated/auth"
	"github.com/klipach/cozycurated/contract"
	"github.com/klipach/cozycurated/log"
	"github.com/klipach/cozycurated/store"
)

const (
	contactsPath = "contacts"

	contactIDLogField = "contactID"
)

// Notifier tells someone about a stored contact message.
type Notifier interface {
	Notify(ctx context.Context, id string, msg contract.ContactMessage) error
}

type Service struct {
	store    store.Store
	notifier Notifier
	now      func() time.Time
}

// NewService returns a Service that appends under contacts. notifier may be nil.
func NewService(st store.Store, notifier Notifier) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
		now:      time.Now,
	}
}

// Submit validates req and appends it as one new record, returning its key.
// Fields are stored as submitted.
func (s *Service) Submit(ctx context.Context, req contract.ContactRequest) (string, error) {
	msg := contract.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}
	if err := validate(msg); err != nil {
		return "", err
	}
	msg.Timestamp = s.now().UnixMilli()

	logger := log.LoggerFromContext(ctx)
	if identity, ok := auth.FromContext(ctx); ok {
		logger = logger.With(slog.String(log.UserIDLogField, identity.UID))
	}
	id, err := s.store.Push(ctx, contactsPath, msg)
	if err != nil {
		logger.Error("error while storing contact message", slog.String(log.ErrorMsgLogField, err.Error()))
		return "", err
	}
	logger = logger.With(slog.String(contactIDLogField, id))
	logger.Info("contact message stored")

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, id, msg); err != nil {
			logger.Warn("error while sending contact notification", slog.String(log.ErrorMsgLogField, err.Error()))
		}
	}
	return id, nil
}

func validate(msg contract.ContactMessage) error {
	required := []struct {
		field string
		label string
		value string
	}{
		{"name", "Name", msg.Name},
		{"email", "Email", msg.Email},
		{"subject", "Subject", msg.Subject},
		{"message", "Message", msg.Message},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperror.ValidationFailed(r.field, r.label+" is required")
		}
	}
	return nil
}
