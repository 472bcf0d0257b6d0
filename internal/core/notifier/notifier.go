package notifier

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CourageResearch/imputation/internal/core/job"
)

// Notifier exposes point-in-time and streaming views of job status.
// Every subscription is an independent ticker-driven cursor over
// registry reads; subscribers never share a queue and never block the
// orchestrator's writes.
type Notifier struct {
	registry        job.Registry
	interval        time.Duration
	closeOnTerminal bool
}

func New(registry job.Registry, interval time.Duration, closeOnTerminal bool) *Notifier {
	if interval <= 0 {
		interval = time.Second
	}
	return &Notifier{
		registry:        registry,
		interval:        interval,
		closeOnTerminal: closeOnTerminal,
	}
}

// Peek is the poll-style status read.
func (n *Notifier) Peek(id string) (job.Job, error) {
	return n.registry.Get(id)
}

// Subscribe streams job snapshots at the notifier's cadence. The first
// snapshot is sent immediately, then one per tick. The stream ends
// (channel closed) when ctx is cancelled or, if the notifier is
// configured to close on terminal status, after the first completed or
// failed snapshot has been delivered.
//
// The channel is buffered by one snapshot; when the consumer lags, the
// pending snapshot is replaced by the next tick's rather than queueing
// unboundedly or stalling the notifier.
func (n *Notifier) Subscribe(ctx context.Context, id string) (<-chan job.Job, error) {
	first, err := n.registry.Get(id)
	if err != nil {
		return nil, err
	}

	ch := make(chan job.Job, 1)
	go n.stream(ctx, id, first, ch)
	return ch, nil
}

func (n *Notifier) stream(ctx context.Context, id string, first job.Job, ch chan job.Job) {
	defer close(ch)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	deliver := func(j job.Job) bool {
		select {
		case ch <- j:
		default:
			// Consumer still holds the previous snapshot; drop it in
			// favor of the fresher one.
			select {
			case <-ch:
			default:
			}
			ch <- j
		}
		return !(n.closeOnTerminal && j.Status.Terminal())
	}

	if !deliver(first) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j, err := n.registry.Get(id)
			if err != nil {
				// The registry never deletes jobs, so this is a wiring
				// bug rather than an expected path.
				log.Error().Err(err).Str("job_id", id).Msg("status subscription lost job")
				return
			}
			if !deliver(j) {
				return
			}
		}
	}
}
