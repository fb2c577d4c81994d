package service

import (
	"context"
	"errors"
	"time"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/logger"

	"github.com/google/uuid"
)

var ErrEmailQueueFull = errors.New("email queue is full")

type emailKind string

const (
	emailApproved       emailKind = "application_approved"
	emailRejected       emailKind = "application_rejected"
	emailAccountCreated emailKind = "account_created"
)

const sendTimeout = 30 * time.Second

// emailJob carries a copy of the application so later changes to the
// caller's record do not leak into the message.
type emailJob struct {
	id       string
	kind     emailKind
	app      domain.Application
	password string
	retries  int
}

// EmailQueue sends email asynchronously with retries. It implements
// EmailService by enqueueing; delivery failures are only logged.
type EmailQueue struct {
	sender     EmailService
	jobs       chan emailJob
	maxRetries int
	workers    int
	backoff    func(attempt int) time.Duration
}

func NewEmailQueue(sender EmailService, workers, queueSize, maxRetries int) *EmailQueue {
	if workers <= 0 {
		workers = 1
	}
	return &EmailQueue{
		sender:     sender,
		jobs:       make(chan emailJob, queueSize),
		maxRetries: maxRetries,
		workers:    workers,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
}

// Start begins processing emails until ctx is done.
func (q *EmailQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		go q.worker(ctx, i)
	}
}

func (q *EmailQueue) worker(ctx context.Context, id int) {
	logger.Debug("Email worker started", "worker", id)
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Email worker stopping", "worker", id)
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

func (q *EmailQueue) process(ctx context.Context, job emailJob) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	var err error
	switch job.kind {
	case emailApproved:
		err = q.sender.SendApplicationApproved(sendCtx, &job.app)
	case emailRejected:
		err = q.sender.SendApplicationRejected(sendCtx, &job.app)
	case emailAccountCreated:
		err = q.sender.SendAccountCreated(sendCtx, &job.app, job.password)
	}
	if err == nil {
		logger.Debug("Email sent", "job", job.id, "kind", job.kind, "applicationID", job.app.ID)
		return
	}

	if job.retries >= q.maxRetries {
		logger.Error("Email failed after retries", "job", job.id, "kind", job.kind, "applicationID", job.app.ID, "retries", job.retries, "error", err)
		return
	}
	job.retries++
	backoff := q.backoff(job.retries)
	logger.Warn("Email failed, retrying", "job", job.id, "kind", job.kind, "attempt", job.retries, "backoff", backoff, "error", err)
	time.AfterFunc(backoff, func() {
		if err := q.enqueue(job); err != nil {
			logger.Error("Dropping email retry", "job", job.id, "error", err)
		}
	})
}

func (q *EmailQueue) enqueue(job emailJob) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrEmailQueueFull
	}
}

func (q *EmailQueue) SendApplicationApproved(ctx context.Context, app *domain.Application) error {
	return q.enqueue(emailJob{id: uuid.NewString(), kind: emailApproved, app: *app})
}

func (q *EmailQueue) SendApplicationRejected(ctx context.Context, app *domain.Application) error {
	return q.enqueue(emailJob{id: uuid.NewString(), kind: emailRejected, app: *app})
}

func (q *EmailQueue) SendAccountCreated(ctx context.Context, app *domain.Application, temporaryPassword string) error {
	return q.enqueue(emailJob{id: uuid.NewString(), kind: emailAccountCreated, app: *app, password: temporaryPassword})
}
