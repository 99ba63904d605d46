package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/commerce-admin/internal/jobs"
)

// WelcomeEmailJob sends the registration greeting.
type WelcomeEmailJob struct {
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskTypeWelcomeEmail tasks.
func (j *WelcomeEmailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Mailer == nil {
		return errors.New("welcome email: handler not configured")
	}
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Email == "" {
		return fmt.Errorf("welcome email: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskTypeWelcomeEmail)
	defer func() { err = tracker.End(err) }()

	err = j.Mailer.Send(ctx, WelcomeMessage(payload))
	if err != nil {
		j.logger().Warn("welcome email failed", slog.String("to", payload.Email), slog.Any("error", err))
		return err
	}
	j.logger().Info("welcome email sent", slog.String("to", payload.Email))
	return nil
}

// WelcomeMessage renders the greeting for payload.
func WelcomeMessage(payload WelcomeEmailPayload) Message {
	return Message{
		To:      payload.Email,
		Subject: "Welcome to Commerce Admin",
		TextBody: "Hello,\n\nYour account " + payload.Email + " has been created. " +
			"An administrator will grant you additional access if needed.\n",
	}
}

func (j *WelcomeEmailJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
