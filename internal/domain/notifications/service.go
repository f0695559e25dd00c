package notifications

import (
	"context"
	"log/slog"

	"evalhub/internal/platform/metrics"
)

// Intent asks the delivery collaborator to send one templated message.
type Intent struct {
	OrganizationID string            `json:"organizationId"`
	AssignmentID   string            `json:"assignmentId,omitempty"`
	ResultID       string            `json:"resultId,omitempty"`
	Template       string            `json:"template"`
	RecipientID    string            `json:"recipientId"`
	Data           map[string]string `json:"data,omitempty"`
}

// Dispatcher hands intents to the delivery side.
type Dispatcher interface {
	Enqueue(ctx context.Context, intent Intent) error
}

// Service is fire-and-forget: enqueue failures are logged and counted, never returned.
type Service struct {
	dispatcher Dispatcher
	log        *slog.Logger
}

func New(dispatcher Dispatcher, log *slog.Logger) *Service {
	return &Service{dispatcher: dispatcher, log: log.With("service", "notifications")}
}

func (s *Service) Notify(ctx context.Context, intent Intent) {
	if s == nil || s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Enqueue(ctx, intent)
	metrics.NotificationEnqueued(intent.Template, err)
	if err != nil {
		s.log.WarnContext(ctx, "notification enqueue failed",
			"template", intent.Template,
			"assignmentId", intent.AssignmentID,
			"recipientId", intent.RecipientID,
			"err", err,
		)
	}
}
