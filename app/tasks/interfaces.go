package tasks

// TaskSchedulerInterface is what the rest of the application needs from the
// scheduler: lifecycle control and a way to queue one-off work, e.g. a
// manual feed load from the API.
//
//	scheduler := NewScheduler(loader, feedRepo, configCache, syncer, enricher, config)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewLoadFeedTask(feedID, feedRepo, loader))
type TaskSchedulerInterface interface {
	Start() error
	Stop()
	EnqueueTask(task TaskInterface) error
}
