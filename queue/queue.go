package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	streamName       = "wager_jobs"
	postWagerSubject = "wager.jobs.post"
	consumerName     = "bookie-post-wager"
	maxDeliveries    = 3
)

// PostWagerJob is the payload for post-acceptance side effects of a wager.
// The wager is already committed when the job is enqueued; handlers must
// tolerate redelivery.
type PostWagerJob struct {
	JobID    string `json:"job_id"`
	WagerID  int64  `json:"wager_id"`
	Enqueued int64  `json:"enqueued"` // unix seconds
}

// Queue is a JetStream-backed job queue for post-wager work
type Queue struct {
	js nats.JetStreamContext
}

// New creates the queue over an established NATS connection and ensures the
// backing stream exists
func New(nc *nats.Conn) (*Queue, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	q := &Queue{js: js}
	if err := q.ensureStream(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Queue) ensureStream() error {
	_, err := q.js.StreamInfo(streamName)
	if err == nil {
		return nil
	}

	cfg := &nats.StreamConfig{
		Name:        streamName,
		Subjects:    []string{"wager.jobs.*"},
		Retention:   nats.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Description: "Post-wager background jobs",
	}
	if _, err := q.js.AddStream(cfg); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	log.WithField("stream", streamName).Info("Created JetStream stream")
	return nil
}

// EnqueuePostWager publishes a post-wager job
func (q *Queue) EnqueuePostWager(ctx context.Context, wagerID int64) error {
	job := PostWagerJob{
		JobID:    uuid.New().String(),
		WagerID:  wagerID,
		Enqueued: time.Now().Unix(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal post-wager job: %w", err)
	}

	if _, err := q.js.Publish(postWagerSubject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish post-wager job: %w", err)
	}

	log.WithFields(log.Fields{
		"jobId":   job.JobID,
		"wagerId": wagerID,
	}).Debug("Enqueued post-wager job")
	return nil
}

// StartWorker consumes post-wager jobs with a durable consumer until the
// subscription is closed. Failed jobs are NAKed for redelivery up to the
// delivery cap.
func (q *Queue) StartWorker(handler func(ctx context.Context, job PostWagerJob) error) (*nats.Subscription, error) {
	sub, err := q.js.Subscribe(
		postWagerSubject,
		func(msg *nats.Msg) {
			var job PostWagerJob
			if err := json.Unmarshal(msg.Data, &job); err != nil {
				log.WithError(err).Error("Failed to unmarshal post-wager job, dropping")
				// A malformed payload will never succeed; ack it away
				if ackErr := msg.Ack(); ackErr != nil {
					log.WithError(ackErr).Error("Failed to ACK malformed job")
				}
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := handler(ctx, job); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"jobId":   job.JobID,
					"wagerId": job.WagerID,
				}).Error("Post-wager job failed")

				if meta, metaErr := msg.Metadata(); metaErr == nil && meta.NumDelivered >= maxDeliveries {
					log.WithFields(log.Fields{
						"jobId":      job.JobID,
						"wagerId":    job.WagerID,
						"deliveries": meta.NumDelivered,
					}).Error("Post-wager job exhausted deliveries, dropping permanently")
					if ackErr := msg.Ack(); ackErr != nil {
						log.WithError(ackErr).Error("Failed to ACK exhausted job")
					}
					return
				}

				if nakErr := msg.Nak(); nakErr != nil {
					log.WithError(nakErr).Error("Failed to NAK job")
				}
				return
			}

			if ackErr := msg.Ack(); ackErr != nil {
				log.WithError(ackErr).Error("Failed to ACK job")
			}
		},
		nats.Durable(consumerName),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(maxDeliveries),
		nats.AckWait(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", postWagerSubject, err)
	}

	log.WithField("subject", postWagerSubject).Info("Post-wager worker started")
	return sub, nil
}
