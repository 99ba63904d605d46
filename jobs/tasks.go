package jobs

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeWelcomeEmail greets a newly registered account.
	TaskTypeWelcomeEmail = "mail:welcome"
)

// welcomeNamespace scopes deterministic welcome task ids.
var welcomeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("commerce-admin/jobs/welcome"))

// WelcomeEmailPayload describes the account to greet.
type WelcomeEmailPayload struct {
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// WelcomeTaskID derives a stable task id per address so repeated enqueues
// collapse into one delivery.
func WelcomeTaskID(email string) string {
	return uuid.NewSHA1(welcomeNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

// NewWelcomeEmailTask constructs an Asynq task.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeWelcomeEmail, data,
		asynq.TaskID(WelcomeTaskID(payload.Email)),
		asynq.MaxRetry(5),
		asynq.Retention(24*time.Hour),
	), nil
}
