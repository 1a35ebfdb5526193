package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/rent-comb/app/cfg"
	"github.com/lysyi3m/rent-comb/app/crawl"
	"github.com/lysyi3m/rent-comb/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	portalCache   *crawl.PortalCache
	newAdapter    AdapterFactory
	ingestor      crawl.Ingestor
	runRepo       database.RunRepository
	sectorRepo    SectorRepository
	resolver      SectorResolver
	reaper        Sweeper
	syncer        ZoneSyncer
	interval      time.Duration
	reapInterval  time.Duration
	retentionDays int
	threshold     int
	maxPages      int
	workerCount   int
	now           func() time.Time
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	taskQueue     chan TaskInterface

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewScheduler(portalCache *crawl.PortalCache, newAdapter AdapterFactory, ingestor crawl.Ingestor,
	runRepo database.RunRepository, sectorRepo SectorRepository, resolver SectorResolver,
	reaper Sweeper, syncer ZoneSyncer) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		portalCache:   portalCache,
		newAdapter:    newAdapter,
		ingestor:      ingestor,
		runRepo:       runRepo,
		sectorRepo:    sectorRepo,
		resolver:      resolver,
		reaper:        reaper,
		syncer:        syncer,
		interval:      time.Duration(cfg.SchedulerInterval) * time.Second,
		reapInterval:  time.Duration(cfg.ReapInterval) * time.Second,
		retentionDays: cfg.RetentionDays,
		threshold:     cfg.UnchangedThreshold,
		maxPages:      cfg.MaxPages,
		workerCount:   cfg.WorkerCount,
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, 300),
		inFlight:      make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		reapTicker := time.NewTicker(s.reapInterval)
		defer reapTicker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueCrawls()
			case <-reapTicker.C:
				s.enqueueReap()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
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

// EnqueueCrawl queues every partition of a portal regardless of when it last
// ran. Partitions already queued or running are left alone.
func (s *Scheduler) EnqueueCrawl(portalName string) (int, error) {
	config, err := s.portalCache.GetConfig(portalName)
	if err != nil {
		return 0, err
	}
	if !config.Settings.Enabled {
		return 0, fmt.Errorf("portal '%s' is disabled", portalName)
	}

	queued := 0
	for _, partition := range config.Partitions() {
		ok, err := s.enqueueCrawl(config, partition)
		if err != nil {
			return queued, err
		}
		if ok {
			queued++
		}
	}
	return queued, nil
}

func (s *Scheduler) enqueueStartupTasks() {
	s.enqueue(NewSyncNeighborhoodsTask(s.syncer))
	s.enqueue(NewBackfillSectorsTask(s.sectorRepo, s.resolver))
	s.enqueueReap()
	s.enqueueDueCrawls()
}

func (s *Scheduler) enqueueReap() {
	s.enqueue(NewReapStaleTask(s.reaper, s.retentionDays))
}

func (s *Scheduler) enqueue(task TaskInterface) {
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "error", err)
	}
}

func (s *Scheduler) enqueueDueCrawls() {
	portalConfigs := s.portalCache.GetEnabledConfigs()
	if len(portalConfigs) == 0 {
		slog.Debug("No enabled portal configurations found")
		return
	}

	slog.Debug("Processing enabled portal configurations for task scheduling", "count", len(portalConfigs))

	for _, config := range portalConfigs {
		for _, partition := range config.Partitions() {
			due, err := s.isDue(config, partition)
			if err != nil {
				slog.Warn("Failed to check crawl schedule, skipping", "partition", partition.String(), "error", err)
				continue
			}
			if !due {
				continue
			}

			if _, err := s.enqueueCrawl(config, partition); err != nil {
				slog.Warn("Failed to enqueue CrawlPartitionTask", "partition", partition.String(), "error", err)
			}
		}
	}
}

// isDue reports whether a partition's last run started at least one refresh
// interval ago.
func (s *Scheduler) isDue(config *crawl.Config, partition crawl.Partition) (bool, error) {
	latest, err := s.runRepo.GetLatestRun(s.ctx, partition.Portal, partition.PropertyType)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return true, nil
	}

	next := latest.StartedAt.Add(time.Duration(config.Settings.RefreshInterval) * time.Second)
	if next.After(s.now()) {
		slog.Debug("Partition not due for crawl yet", "partition", partition.String(), "next_crawl_at", next)
		return false, nil
	}
	return true, nil
}

func (s *Scheduler) enqueueCrawl(config *crawl.Config, partition crawl.Partition) (bool, error) {
	key := partition.String()

	s.mu.Lock()
	if s.inFlight[key] {
		s.mu.Unlock()
		slog.Debug("Partition crawl already queued", "partition", key)
		return false, nil
	}
	s.inFlight[key] = true
	s.mu.Unlock()

	task := NewCrawlPartitionTask(config, partition, s.newAdapter, s.ingestor, s.runRepo, s.threshold, s.maxPages)
	if err := s.EnqueueTask(task); err != nil {
		s.release(key)
		return false, err
	}
	return true, nil
}

func (s *Scheduler) release(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	if task.GetType() == TaskTypeCrawlPartition {
		defer s.release(task.GetTarget())
	}

	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
