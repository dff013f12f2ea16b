package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// SQSEnqueuer publishes messages to an SQS queue.
type SQSEnqueuer struct {
	client   sqsAPI
	queueURL string
}

func NewSQSEnqueuer(client sqsAPI, queueURL string) *SQSEnqueuer {
	return &SQSEnqueuer{client: client, queueURL: queueURL}
}

// Enqueue sends msg as a JSON body and returns the SQS message ID.
func (e *SQSEnqueuer) Enqueue(ctx context.Context, msg *Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	out, err := e.client.SendMessage(ctx, &sqsSendInput{
		QueueURL:    e.queueURL,
		MessageBody: string(data),
	})
	if err != nil {
		return "", fmt.Errorf("sqs send message: %w", err)
	}

	MessagesEnqueuedTotal.Inc()

	return out.MessageID, nil
}
