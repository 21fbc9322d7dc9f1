// Package notify delivers side-effect notifications about builder events.
// Notifiers are invoked after the core operation has succeeded and never
// affect its outcome.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"formcraft/internal/form"
)

const EventFormPublished = "form.published"

// Notice is the payload of a notification.
type Notice struct {
	Event          string `json:"event"`
	FormID         int64  `json:"form_id"`
	Title          string `json:"title"`
	URL            string `json:"url"`
	Fields         int    `json:"fields"`
	Timestamp      string `json:"timestamp"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Published builds the notice sent after a form is published.
func Published(f *form.Form) Notice {
	return Notice{
		Event:          EventFormPublished,
		FormID:         f.ID,
		Title:          f.Title,
		URL:            f.PublishedURL,
		Fields:         len(f.Fields),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		IdempotencyKey: "fc_" + uuid.New().String(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// LogNotifier writes notices to the log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

func (l *LogNotifier) Notify(_ context.Context, n Notice) {
	l.logger.Info("Form event",
		zap.String("event", n.Event),
		zap.Int64("form_id", n.FormID),
		zap.String("title", n.Title),
		zap.String("url", n.URL),
		zap.Int("fields", n.Fields),
	)
}

// Multi fans a notice out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
