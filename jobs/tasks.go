// Package jobs runs background work for the conversion pipeline: retrying
// partially failed quotation conversions and reconciling quotations whose
// trigger fired without producing orders.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskConversionRetry retries purchase order creation for one quotation.
	TaskConversionRetry = "conversion:retry"
	// TaskConversionReconcile sweeps for quotations stuck mid-conversion.
	TaskConversionReconcile = "conversion:reconcile"
)

// ConversionRetryPayload identifies the quotation to reconvert.
type ConversionRetryPayload struct {
	QuotationNumber string `json:"quotation_number"`
}

// NewConversionRetryTask constructs a retry task with backoff-friendly options.
func NewConversionRetryTask(payload ConversionRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConversionRetry, data,
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
	), nil
}

// NewConversionReconcileTask constructs the periodic reconcile task.
func NewConversionReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskConversionReconcile, nil, asynq.Timeout(5*time.Minute))
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueConversionRetry schedules a conversion retry for the quotation. The
// first attempt is delayed so transient catalog or database hiccups settle.
func (c *Client) EnqueueConversionRetry(ctx context.Context, quotationNumber string) error {
	task, err := NewConversionRetryTask(ConversionRetryPayload{QuotationNumber: quotationNumber})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.ProcessIn(30*time.Second),
	)
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
