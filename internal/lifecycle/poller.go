package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/NikolozR/suliko-client/internal/domain"
	"github.com/NikolozR/suliko-client/internal/metrics"
)

const (
	// DefaultPollInterval is the fixed delay between status polls while
	// the job is still running.
	DefaultPollInterval = 3 * time.Second
	// DefaultTransportRetry is the longer fixed delay after a transport
	// failure. A failed request is not a failed job.
	DefaultTransportRetry = 5 * time.Second

	// GenericFailureMessage stands in when the backend reports a failed
	// job without an explanation.
	GenericFailureMessage = "Translation failed. Please try again."
)

// StatusService is the one remote call the poller makes.
type StatusService interface {
	JobStatus(ctx context.Context, jobID string) (domain.StatusUpdate, error)
}

// PollOutcome is the terminal result of one polling run.
type PollOutcome struct {
	Status  domain.JobStatus
	Message string
}

// Poller drives a job from submission to a terminal status. Polls are
// strictly sequential: the next request is scheduled only after the
// previous response (or its retry delay) has been processed.
type Poller struct {
	statuses       StatusService
	pollInterval   time.Duration
	transportRetry time.Duration
	logger         *slog.Logger
	collector      *metrics.Collector
}

func NewPoller(statuses StatusService, pollInterval, transportRetry time.Duration, logger *slog.Logger, collector *metrics.Collector) *Poller {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if transportRetry <= 0 {
		transportRetry = DefaultTransportRetry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		statuses:       statuses,
		pollInterval:   pollInterval,
		transportRetry: transportRetry,
		logger:         logger,
		collector:      collector,
	}
}

// Run polls until the job reaches Completed or Failed and returns that
// terminal outcome. A job already in a terminal state is returned as-is
// without touching the network. Context cancellation is checked both
// after every response and before scheduling the next poll, so a run
// abandoned by navigation can never act on a late answer.
func (p *Poller) Run(ctx context.Context, jobID string, current domain.JobStatus) (PollOutcome, error) {
	if current.IsTerminal() {
		return PollOutcome{Status: current}, nil
	}

	// An empty id would make every poll fail locally and look like an
	// endless transport outage.
	if jobID == "" {
		return PollOutcome{}, errors.New("job id is required")
	}

	for {
		update, err := p.statuses.JobStatus(ctx, jobID)

		if ctx.Err() != nil {
			return PollOutcome{}, ctx.Err()
		}

		if err != nil {
			// Transport failure: retry on the longer cadence instead of
			// surfacing a transient blip as a permanent error.
			p.collector.RecordPollRetry()
			p.logger.Warn("status poll failed, retrying", "jobId", jobID, "error", err)
			if err := sleepCtx(ctx, p.transportRetry); err != nil {
				return PollOutcome{}, err
			}
			continue
		}

		p.collector.RecordPoll()

		switch update.Status {
		case domain.StatusCompleted:
			return PollOutcome{Status: domain.StatusCompleted}, nil
		case domain.StatusFailed:
			message := update.Message
			if message == "" {
				message = GenericFailureMessage
			}
			return PollOutcome{Status: domain.StatusFailed, Message: message}, nil
		default:
			if err := sleepCtx(ctx, p.pollInterval); err != nil {
				return PollOutcome{}, err
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
