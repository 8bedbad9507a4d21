package trending

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/echolabs/echofeed/internal/jobs"
)

// Sweep defaults and bounds.
const (
	DefaultSweepInterval = 10 * time.Minute
	DefaultSweepTimeout  = 5 * time.Minute
	DefaultBatchSize     = 500
	MaxSweepPosts        = 10000

	// DefaultSweepRate paces store reads during a sweep, posts per second.
	DefaultSweepRate = 200
)

// ActivePostSource lists the posts a sweep should rescore.
// store.InteractionStore satisfies it.
type ActivePostSource interface {
	ListActivePostIDs(ctx context.Context, since time.Time, limit int) ([]string, error)
}

// SweepJobConfig configures the periodic trending sweep.
type SweepJobConfig struct {
	// Interval between sweep cycles.
	Interval time.Duration
	// Timeout for a single sweep cycle.
	Timeout time.Duration
	// BatchSize is the number of posts rescored per checkpointed batch.
	BatchSize int
	// MaxPosts caps the posts considered per sweep; clamped to MaxSweepPosts.
	MaxPosts int
	// ActivityWindow selects posts with engagement this recent.
	ActivityWindow time.Duration
	// Rate paces rescoring in posts per second; 0 uses DefaultSweepRate.
	Rate float64
	// Logger for job activity.
	Logger *slog.Logger
	// JobMetrics for centralized background job tracking.
	JobMetrics jobs.Reporter
}

// SweepResult summarizes one sweep cycle.
type SweepResult struct {
	Processed int
	Updated   int
	Failed    int
}

// SweepJob periodically rescores recently active posts in checkpointed
// batches. A cycle that dies mid-batch resumes at that batch next cycle, so
// a crash repeats at most one batch of work.
type SweepJob struct {
	config  SweepJobConfig
	posts   ActivePostSource
	scorer  *Scorer
	limiter *rate.Limiter

	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	checkpoint int // batch index to resume from after an aborted cycle
}

// NewSweepJob creates a sweep job around a batch scorer.
func NewSweepJob(config SweepJobConfig, posts ActivePostSource, scorer *Scorer) *SweepJob {
	if config.Interval == 0 {
		config.Interval = DefaultSweepInterval
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultSweepTimeout
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.MaxPosts <= 0 || config.MaxPosts > MaxSweepPosts {
		config.MaxPosts = MaxSweepPosts
	}
	if config.ActivityWindow == 0 {
		config.ActivityWindow = 7 * 24 * time.Hour
	}
	if config.Rate <= 0 {
		config.Rate = DefaultSweepRate
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &SweepJob{
		config:  config,
		posts:   posts,
		scorer:  scorer,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.BatchSize),
	}
}

// Start begins the periodic sweep. Returns immediately; the job runs in a
// background goroutine.
func (j *SweepJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the sweep job to stop and waits for it to finish.
func (j *SweepJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *SweepJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *SweepJob) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("trending sweep stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("trending sweep stopping due to stop signal")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one sweep cycle immediately. Safe to call outside the ticker
// loop; the admin recalculate endpoint and cmd/sweeper use it directly.
func (j *SweepJob) Sweep(parentCtx context.Context) SweepResult {
	return j.SweepWith(parentCtx, j.config.BatchSize, j.config.MaxPosts)
}

// SweepWith runs one sweep cycle with explicit batch size and post cap,
// both clamped to the configured bounds.
func (j *SweepJob) SweepWith(parentCtx context.Context, batchSize, maxPosts int) SweepResult {
	if batchSize <= 0 {
		batchSize = j.config.BatchSize
	}
	if maxPosts <= 0 || maxPosts > MaxSweepPosts {
		maxPosts = j.config.MaxPosts
	}

	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	startTime := time.Now()
	var result SweepResult

	since := startTime.Add(-j.config.ActivityWindow)
	postIDs, err := j.posts.ListActivePostIDs(ctx, since, maxPosts)
	if err != nil {
		j.config.Logger.Error("failed to list active posts for sweep", "error", err)
		if j.config.JobMetrics != nil {
			j.config.JobMetrics.IncJobErrors(jobs.JobTypeTrendingSweep, "list_error")
			j.config.JobMetrics.IncJobsTotal(jobs.JobTypeTrendingSweep, jobs.StatusFailure)
		}
		return result
	}
	if len(postIDs) == 0 {
		j.setCheckpoint(0)
		return result
	}

	batches := (len(postIDs) + batchSize - 1) / batchSize
	start := j.getCheckpoint()
	if start >= batches {
		start = 0
	}
	if start > 0 {
		j.config.Logger.Info("resuming trending sweep from checkpoint",
			"batch", start,
			"batches", batches)
	}

	completed := true
	for b := start; b < batches; b++ {
		lo := b * batchSize
		hi := lo + batchSize
		if hi > len(postIDs) {
			hi = len(postIDs)
		}

		if !j.sweepBatch(ctx, postIDs[lo:hi], &result) {
			// Timed out or cancelled; keep the checkpoint at this
			// batch so the next cycle resumes here.
			j.setCheckpoint(b)
			completed = false
			break
		}
		j.setCheckpoint(b + 1)
	}
	if completed {
		j.setCheckpoint(0)
	}

	duration := time.Since(startTime).Seconds()
	status := jobs.StatusSuccess
	if !completed {
		status = jobs.StatusFailure
	}
	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobsTotal(jobs.JobTypeTrendingSweep, status)
		j.config.JobMetrics.ObserveJobDuration(jobs.JobTypeTrendingSweep, duration)
	}

	j.config.Logger.Info("trending sweep completed",
		"duration_seconds", duration,
		"processed", result.Processed,
		"updated", result.Updated,
		"failed", result.Failed,
		"completed", completed)

	return result
}

// sweepBatch rescores one batch. Returns false when the cycle deadline was
// hit; per-post failures are logged and skipped.
func (j *SweepJob) sweepBatch(ctx context.Context, postIDs []string, result *SweepResult) bool {
	for _, postID := range postIDs {
		if err := j.limiter.Wait(ctx); err != nil {
			j.config.Logger.Error("trending sweep deadline exceeded",
				"processed", result.Processed)
			if j.config.JobMetrics != nil {
				j.config.JobMetrics.IncJobErrors(jobs.JobTypeTrendingSweep, "timeout")
			}
			return false
		}

		result.Processed++
		if _, err := j.scorer.Recalculate(ctx, postID); err != nil {
			result.Failed++
			j.config.Logger.Error("failed to rescore post",
				"post_id", postID,
				"error", err)
			if j.config.JobMetrics != nil {
				j.config.JobMetrics.IncJobErrors(jobs.JobTypeTrendingSweep, "score_error")
			}
			continue
		}
		result.Updated++
	}
	return true
}

func (j *SweepJob) getCheckpoint() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.checkpoint
}

func (j *SweepJob) setCheckpoint(b int) {
	j.mu.Lock()
	j.checkpoint = b
	j.mu.Unlock()
}
