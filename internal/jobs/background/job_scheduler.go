package background

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"catadmin/internal/services"
)

// JobScheduler keeps the hot caches warm so the first request after an
// expiry does not pay the full database cost.
type JobScheduler struct {
	scheduler       gocron.Scheduler
	categoryService services.CategoryService
	statsService    services.StatsService
}

func NewJobScheduler(categoryService services.CategoryService, statsService services.StatsService) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &JobScheduler{
		scheduler:       scheduler,
		categoryService: categoryService,
		statsService:    statsService,
	}, nil
}

func (j *JobScheduler) Start() error {
	if _, err := j.scheduler.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(j.warmCategoryTree),
	); err != nil {
		return err
	}
	if _, err := j.scheduler.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(j.refreshStats),
	); err != nil {
		return err
	}
	j.scheduler.Start()
	return nil
}

func (j *JobScheduler) Stop() error {
	return j.scheduler.Shutdown()
}

func (j *JobScheduler) warmCategoryTree() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := j.categoryService.GetTree(ctx, false); err != nil {
		log.Printf("warm category tree: %v", err)
	}
}

func (j *JobScheduler) refreshStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := j.statsService.GetStats(ctx); err != nil {
		log.Printf("refresh stats: %v", err)
	}
}
