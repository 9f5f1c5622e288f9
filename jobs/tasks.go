package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMenuResync re-reads the menu taxonomy and tells every web node to
	// drop its cached navigation.
	TaskMenuResync = "menu:resync"
)

// MenuResyncPayload describes why a resync was requested.
type MenuResyncPayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewMenuResyncTask constructs an Asynq task.
func NewMenuResyncTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "scheduled"
	}
	data, err := json.Marshal(MenuResyncPayload{Reason: reason, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMenuResync, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
