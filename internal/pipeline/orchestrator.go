package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/notepress/internal/config"
	"github.com/dgallion1/notepress/internal/enrich"
	"github.com/dgallion1/notepress/internal/formatter"
	"github.com/dgallion1/notepress/internal/notion"
)

// Orchestrator manages the document publishing pipeline.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	claude *enrich.ClaudeClient
	notion *notion.Client
	stats  *enrich.LLMStats
	dedup  *DedupIndex
	log    *slog.Logger
	cfg    config.Config

	compactPolicy formatter.Policy
	legacyPolicy  formatter.Policy

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, claude *enrich.ClaudeClient, nc *notion.Client, compact, legacy formatter.Policy, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:          NewJobStore(cfg.JobTTL),
		queue:         make(chan *Job, cfg.MaxQueueSize),
		claude:        claude,
		notion:        nc,
		stats:         enrich.NewLLMStats(time.Hour),
		dedup:         NewDedupIndex(),
		log:           log,
		cfg:           cfg,
		compactPolicy: compact,
		legacyPolicy:  legacy,
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
			w := NewWorker(o.claude, o.notion, o.stats, o.dedup, o.log, o.cfg.NotionParentPage, o.compactPolicy, o.legacyPolicy)
			w.SetPDFFallback(o.cfg.PDFFallbackPdftotext)
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

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
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

// Stats returns the LLM latency tracker for the stats endpoint.
func (o *Orchestrator) Stats() *enrich.LLMStats {
	return o.stats
}

// CompactPolicy returns the policy used for synchronous formatting
// requests.
func (o *Orchestrator) CompactPolicy() formatter.Policy {
	return o.compactPolicy
}

// LegacyPolicy returns the unconstrained formatting policy.
func (o *Orchestrator) LegacyPolicy() formatter.Policy {
	return o.legacyPolicy
}
