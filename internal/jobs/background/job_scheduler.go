package background

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"wealthdesk/internal/jobs"
	"wealthdesk/internal/repositories"
	"wealthdesk/internal/services"
)

const reconcileBatchSize = 200

// JobScheduler manages the engine's periodic background jobs: workflow
// aggregate reconciliation and entitlement audit archiving.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	workflowSvc  services.WorkflowService
	workflowRepo repositories.WorkflowRepository
	archiver     *jobs.AuditArchiver
	logger       *zap.Logger
	jobs         map[string]gocron.Job
	mu           sync.RWMutex
}

func NewJobScheduler(workflowSvc services.WorkflowService, workflowRepo repositories.WorkflowRepository, archiver *jobs.AuditArchiver, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		workflowSvc:  workflowSvc,
		workflowRepo: workflowRepo,
		archiver:     archiver,
		logger:       logger,
		jobs:         make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) registerJobs() error {
	reconcile, err := js.scheduler.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(js.reconcileWorkflows),
	)
	if err != nil {
		return err
	}
	js.trackJob("workflow_reconcile", reconcile)

	if js.archiver != nil {
		archive, err := js.scheduler.NewJob(
			gocron.DurationJob(24*time.Hour),
			gocron.NewTask(js.archiveAudit),
		)
		if err != nil {
			return err
		}
		js.trackJob("audit_archive", archive)
	}

	return nil
}

func (js *JobScheduler) trackJob(name string, job gocron.Job) {
	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
}

// reconcileWorkflows converges aggregate states that trailed their member
// tasks, the documented relaxation of taking the aggregate outside the
// task locks.
func (js *JobScheduler) reconcileWorkflows() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pending, err := js.workflowRepo.ListPending(ctx, reconcileBatchSize)
	if err != nil {
		js.logger.Error("list pending workflows", zap.Error(err))
		return
	}

	for _, workflow := range pending {
		if _, err := js.workflowSvc.Recompute(ctx, workflow.TenantID, workflow.ID); err != nil {
			js.logger.Warn("reconcile workflow",
				zap.String("workflow_id", workflow.ID.String()),
				zap.Error(err))
		}
	}
}

func (js *JobScheduler) archiveAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := js.archiver.Run(ctx); err != nil {
		js.logger.Error("audit archive run", zap.Error(err))
	}
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	return js.scheduler.Shutdown()
}
