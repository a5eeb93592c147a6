package membership

import (
	"sync"

	"github.com/eng-cc/agent-world-sub008/internal/obsmetrics"
	"github.com/eng-cc/agent-world-sub008/internal/obslog"
)

// ReplayFunc attempts to replay one dead-letter entry's payload,
// returning an error if the replay should be retried later.
type ReplayFunc func(entry *DeadLetterEntry) error

// DeadLetterWorkerPool drains a DeadLetterQueue with a bounded set of
// goroutines fed from one buffered job channel.
type DeadLetterWorkerPool struct {
	queue   *DeadLetterQueue
	replay  ReplayFunc
	jobs    chan struct{}
	wg      sync.WaitGroup
	stopCh  chan struct{}
}

func NewDeadLetterWorkerPool(queue *DeadLetterQueue, replay ReplayFunc, workers int) *DeadLetterWorkerPool {
	if workers <= 0 {
		workers = 1
	}
	p := &DeadLetterWorkerPool{
		queue:  queue,
		replay: replay,
		jobs:   make(chan struct{}, workers*4),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *DeadLetterWorkerPool) worker() {
	defer p.wg.Done()
	logger := obslog.WithComponent("membership.deadletter")
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.jobs:
			entry, ok := p.queue.Next()
			if !ok {
				continue
			}
			obsmetrics.DeadLetterReplayAttemptsTotal.Inc()
			if err := p.replay(entry); err != nil {
				p.queue.RecordFailure(entry.ID)
				logger.Warn().Str("entry_id", entry.ID).Err(err).Msg("dead letter replay failed")
				continue
			}
			p.queue.RecordSuccess(entry.ID)
		}
	}
}

// Trigger schedules one replay attempt; it is non-blocking and safe to
// call more often than there is queued work.
func (p *DeadLetterWorkerPool) Trigger() {
	select {
	case p.jobs <- struct{}{}:
	default:
	}
}

// Stop halts all workers and waits for them to exit.
func (p *DeadLetterWorkerPool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}
