package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// JobPublisher puts a serialized job on the broker under a message id.
type JobPublisher interface {
	PublishJSON(ctx context.Context, messageID string, body []byte) error
}

// Queue is a Sender that defers rendering and relay to the email worker.
// The returned id is the broker message id, reused by the worker for idempotency.
type Queue struct {
	Publisher JobPublisher
	NewID     func() string
}

func NewQueue(p JobPublisher) *Queue {
	return &Queue{Publisher: p, NewID: uuid.NewString}
}

func (q *Queue) Send(ctx context.Context, template, to string, vars map[string]any) (string, error) {
	job := EmailJob{ID: q.NewID(), To: to, Template: template, Data: vars}
	body, err := json.Marshal(job)
	if err != nil {
		return "", Permanent(fmt.Errorf("marshal email job: %w", err))
	}
	if err := q.Publisher.PublishJSON(ctx, job.ID, body); err != nil {
		return "", fmt.Errorf("publish email job: %w", err)
	}
	return job.ID, nil
}
