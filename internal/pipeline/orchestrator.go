package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/mocapd/internal/clipstore"
	"github.com/dgallion1/mocapd/internal/config"
	"github.com/dgallion1/mocapd/internal/rigstore"
)

// Orchestrator manages the clip ingestion pipeline.
type Orchestrator struct {
	jobs       *JobStore
	queue      chan *Job
	clips      *clipstore.Store
	rig        *rigstore.Client
	stats      *ParseStats
	publishSem chan struct{}
	log        *slog.Logger
	cfg        config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline; call Start to launch workers.
func NewOrchestrator(cfg config.Config, clips *clipstore.Store, rig *rigstore.Client, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:       NewJobStore(cfg.JobTTL),
		queue:      make(chan *Job, cfg.MaxQueueSize),
		clips:      clips,
		rig:        rig,
		stats:      NewParseStats(cfg.StatsWindow),
		publishSem: make(chan struct{}, cfg.MaxConcurrentPublish),
		log:        log,
		cfg:        cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.clips, o.rig, o.stats, o.publishSem, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. The queue channel is left open so
// a Submit racing shutdown fails cleanly (queue full or ignored) instead of
// panicking on a closed channel; workers exit via context cancellation.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the parse latency tracker.
func (o *Orchestrator) Stats() *ParseStats {
	return o.stats
}

// Clips returns the clip store for direct use by API handlers.
func (o *Orchestrator) Clips() *clipstore.Store {
	return o.clips
}

// Rigstore returns the rigstore client for direct use by API handlers.
func (o *Orchestrator) Rigstore() *rigstore.Client {
	return o.rig
}
