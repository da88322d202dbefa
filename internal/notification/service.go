package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rosterline/roster-api/internal/models"
	"github.com/rosterline/roster-api/internal/repository"
)

type Event struct {
	AccountID string
	Event     models.NotificationEvent
	Severity  models.NotificationSeverity
	Title     string
	Message   string
	Metadata  map[string]interface{}
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)
	NotifyInviteSent(ctx context.Context, accountID, inviteID, email string) error
	NotifyMemberAdded(ctx context.Context, accountID, memberID, name string) error
	NotifyMemberRemoved(ctx context.Context, accountID, memberID, name string) error
	ListRecent(ctx context.Context, accountID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, accountID, notificationID string) (models.Notification, error)
}

type service struct {
	repo      repository.NotificationRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	if evt.Event == "" {
		return models.Notification{}, fmt.Errorf("event type is required")
	}
	if evt.Severity == "" {
		evt.Severity = models.NotificationSeverityInfo
	}
	title := strings.TrimSpace(evt.Title)
	message := strings.TrimSpace(evt.Message)
	if title == "" {
		title = string(evt.Event)
	}
	params := repository.CreateNotificationParams{
		Event:    evt.Event,
		Severity: evt.Severity,
		Title:    title,
		Message:  message,
		Metadata: evt.Metadata,
	}
	if aid := strings.TrimSpace(evt.AccountID); aid != "" {
		params.AccountID = &aid
	}

	notif, err := s.repo.Create(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", string(evt.Event)).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

func (s *service) NotifyInviteSent(ctx context.Context, accountID, inviteID, email string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("account id is required for invite notifications")
	}
	_, err := s.Publish(ctx, Event{
		AccountID: accountID,
		Event:     models.NotificationEventInviteSent,
		Severity:  models.NotificationSeverityInfo,
		Title:     "Invite sent",
		Message:   fmt.Sprintf("An invitation was emailed to %s.", email),
		Metadata: map[string]interface{}{
			"invite_id": inviteID,
			"email":     email,
		},
	})
	return err
}

func (s *service) NotifyMemberAdded(ctx context.Context, accountID, memberID, name string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("account id is required for member notifications")
	}
	_, err := s.Publish(ctx, Event{
		AccountID: accountID,
		Event:     models.NotificationEventMemberAdded,
		Severity:  models.NotificationSeverityInfo,
		Title:     fmt.Sprintf("Member added: %s", name),
		Message:   fmt.Sprintf("%s was added to the call roster.", name),
		Metadata: map[string]interface{}{
			"member_id": memberID,
		},
	})
	return err
}

func (s *service) NotifyMemberRemoved(ctx context.Context, accountID, memberID, name string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("account id is required for member notifications")
	}
	_, err := s.Publish(ctx, Event{
		AccountID: accountID,
		Event:     models.NotificationEventMemberRemoved,
		Severity:  models.NotificationSeverityWarning,
		Title:     fmt.Sprintf("Member removed: %s", name),
		Message:   fmt.Sprintf("%s was removed from the call roster.", name),
		Metadata: map[string]interface{}{
			"member_id": memberID,
		},
	})
	return err
}

func (s *service) ListRecent(ctx context.Context, accountID string, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, accountID, limit)
}

func (s *service) MarkRead(ctx context.Context, accountID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, accountID, notificationID)
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
