package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/rss-catalog/app/database"
	"github.com/lysyi3m/rss-catalog/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskTimeout   = 5 * time.Minute
	maxRetryDelay = 30 * time.Second
)

type SchedulerConfig struct {
	// TaskSchedule is the cron expression on which due feeds are polled
	TaskSchedule string
	WorkerCount  int
	QueueSize    int
	Location     *time.Location
}

// Scheduler runs tasks on a pool of workers. A cron entry queues a
// LoadFeedsTask on every tick of TaskSchedule; other tasks are queued by the
// application.
type Scheduler struct {
	loader      *feed.Loader
	feedRepo    database.FeedRepository
	configCache *feed.ConfigCache
	syncer      *feed.CatalogSyncer
	enricher    *feed.Enricher
	config      SchedulerConfig
	cron        *cron.Cron
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(loader *feed.Loader, feedRepo database.FeedRepository, configCache *feed.ConfigCache,
	syncer *feed.CatalogSyncer, enricher *feed.Enricher, config SchedulerConfig) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 300
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	return &Scheduler{
		loader:      loader,
		feedRepo:    feedRepo,
		configCache: configCache,
		syncer:      syncer,
		enricher:    enricher,
		config:      config,
		cron:        cron.New(cron.WithLocation(config.Location)),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, config.QueueSize),
	}
}

// Start launches the workers, queues the catalog sync and registers the
// polling schedule.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.TaskSchedule, s.enqueueLoadFeeds); err != nil {
		return fmt.Errorf("invalid task schedule %q: %w", s.config.TaskSchedule, err)
	}

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.enqueueStartupTasks()
	s.cron.Start()

	slog.Debug("Scheduler started", "workers", s.config.WorkerCount, "schedule", s.config.TaskSchedule)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueEnrichment queues page enrichment for a newly created article. It
// has the shape of feed.PostCreateHook.
func (s *Scheduler) EnqueueEnrichment(ctx context.Context, article *database.Article) {
	if s.enricher == nil {
		return
	}
	if err := s.EnqueueTask(NewEnrichArticleTask(article.ID, article.URL, s.enricher)); err != nil {
		slog.Warn("Failed to enqueue EnrichArticleTask", "article_id", article.ID, "error", err)
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	if s.configCache == nil || s.syncer == nil {
		return
	}

	sourceConfigs := s.configCache.GetConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Processing source configurations", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		if err := s.EnqueueTask(NewSyncCatalogTask(sourceConfig, s.syncer)); err != nil {
			slog.Warn("Failed to enqueue SyncCatalogTask", "source", sourceConfig.Slug, "error", err)
		}
	}
}

func (s *Scheduler) enqueueLoadFeeds() {
	task := NewLoadFeedsTask(time.Now().In(s.config.Location), s.loader)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue LoadFeedsTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
		return
	}

	task.IncrementRetryCount()
	retryDelay := min(time.Duration(1<<uint(task.GetRetryCount()-1))*time.Second, maxRetryDelay)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(retryDelay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
