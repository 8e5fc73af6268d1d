package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/internal/metrics"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/mailer"
)

// Outcome tells the consumer how to settle a queued message.
type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRequeue   Outcome = "requeued"
	OutcomeDrop      Outcome = "dropped"
)

// Deduper suppresses repeated deliveries of the same job id.
type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Relay renders queued EmailJobs and hands them to a transport.
// Transient failures are requeued once; a redelivered message that fails again
// is dropped, as is anything permanently undeliverable.
type Relay struct {
	Templates *mailer.TemplateSender
	Transport mailer.Transport
	Dedup     Deduper
	Timeout   time.Duration
	Logger    logrus.FieldLogger
}

func NewRelay(t mailer.Transport, dedup Deduper, logger logrus.FieldLogger) *Relay {
	return &Relay{
		Templates: mailer.NewTemplateSender(t),
		Transport: t,
		Dedup:     dedup,
		Timeout:   15 * time.Second,
		Logger:    logger.WithField("component", "email_relay"),
	}
}

func (r *Relay) Handle(ctx context.Context, body []byte, redelivered bool) Outcome {
	out := r.handle(ctx, body, redelivered)
	metrics.RecordWorkerMessage(string(out))
	return out
}

func (r *Relay) handle(ctx context.Context, body []byte, redelivered bool) Outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		r.Logger.WithError(err).Warn("bad email job")
		return OutcomeDrop
	}
	if job.To == "" {
		r.Logger.WithField("job_id", job.ID).Warn("email job without recipient")
		return OutcomeDrop
	}
	helpers.MapLegacyTemplate(&job)
	helpers.EnsureRecipientAndEmail(&job)
	helpers.FillExpiresAtText(job.Data)

	log := r.Logger.WithFields(logrus.Fields{"job_id": job.ID, "template": job.Template, "redelivered": redelivered})

	if job.ID != "" && r.Dedup != nil {
		claimed, err := r.Dedup.Claim(ctx, job.ID)
		switch {
		case err != nil:
			log.WithError(err).Warn("idempotency check failed; sending anyway")
		case !claimed:
			log.Info("duplicate email job skipped")
			return OutcomeDuplicate
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	var id string
	var err error
	if job.Template != "" {
		id, err = r.Templates.Send(sendCtx, job.Template, job.To, job.Data)
	} else {
		msg := job.Message()
		if msg.Subject == "" || (msg.Text == "" && msg.HTML == "") {
			err = mailer.Permanent(errors.New("job has neither template nor content"))
		} else {
			id, err = r.Transport.Deliver(sendCtx, msg)
		}
	}
	if err == nil {
		log.WithField("message_id", id).Info("email relayed")
		return OutcomeSent
	}

	if job.ID != "" && r.Dedup != nil {
		if rerr := r.Dedup.Release(ctx, job.ID); rerr != nil {
			log.WithError(rerr).Warn("release idempotency key failed")
		}
	}
	if mailer.IsPermanent(err) || redelivered {
		log.WithError(err).Error("email dropped")
		return OutcomeDrop
	}
	log.WithError(err).Warn("email send failed; requeueing")
	return OutcomeRequeue
}
