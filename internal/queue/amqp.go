package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
)

const retryHeader = "x-retry-count"

// AMQPQueue publishes action jobs to a durable RabbitMQ queue.
type AMQPQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	name       string
	MaxRetries int
	Logger     *logrus.Logger
}

// DialAMQP connects and declares the actions queue.
func DialAMQP(url string, maxRetries int, logger *logrus.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		ActionsQueue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPQueue{conn: conn, ch: ch, name: q.Name, MaxRetries: maxRetries, Logger: logger}, nil
}

func (q *AMQPQueue) Dispatch(ctx context.Context, job model.ActionJob) error {
	return q.publish(ctx, job, 0)
}

func (q *AMQPQueue) publish(ctx context.Context, job model.ActionJob, retries int32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		q.name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.ID,
			Headers:      amqp.Table{retryHeader: retries},
			Body:         body,
		},
	)
}

// Consume runs handler for each delivery, one at a time, until ctx is done
// or the channel closes. Failed jobs are republished with an incremented
// retry header until MaxRetries is reached.
func (q *AMQPQueue) Consume(ctx context.Context, handler Handler) error {
	if err := q.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	msgs, err := q.ch.Consume(
		q.name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			q.handle(ctx, d, handler)
		}
	}
}

func (q *AMQPQueue) handle(ctx context.Context, d amqp.Delivery, handler Handler) {
	var job model.ActionJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		q.Logger.WithError(err).Warn("invalid job payload, dropping")
		_ = d.Ack(false)
		return
	}

	err := handler(ctx, job)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	retries := RetryCount(d.Headers)
	log := q.Logger.WithError(err).WithFields(logrus.Fields{"job_id": job.ID, "retries": retries})
	if appErrors.IsRetryable(err) && int(retries) < q.MaxRetries {
		if pubErr := q.publish(ctx, job, retries+1); pubErr != nil {
			log.WithError(pubErr).Error("failed to requeue job")
			_ = d.Nack(false, true)
			return
		}
		log.Warn("job requeued")
	} else {
		log.Error("job permanently failed")
	}
	_ = d.Ack(false)
}

// RetryCount reads the retry header whatever integer type the broker used.
func RetryCount(h amqp.Table) int32 {
	switch v := h[retryHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	case int16:
		return int32(v)
	case int8:
		return int32(v)
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Dispatcher = (*AMQPQueue)(nil)
