// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/config"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/logger"
)

// JobHandler is implemented by every task worker.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerOptions tunes one job worker.
type WorkerOptions struct {
	Name          string
	MaxJobsActive int
	Concurrency   int
	Timeout       time.Duration
}

// WorkerOptionsFrom fills WorkerOptions from the camunda config section.
func WorkerOptionsFrom(name string, cfg config.CamundaConfig) WorkerOptions {
	return WorkerOptions{
		Name:          name,
		MaxJobsActive: cfg.MaxJobsActive,
		Concurrency:   cfg.Concurrency,
		Timeout:       config.GetDuration(cfg.Timeout),
	}
}

func (o WorkerOptions) withDefaults() WorkerOptions {
	if o.MaxJobsActive <= 0 {
		o.MaxJobsActive = 32
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// Worker is an open job subscription.
type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// StartWorker opens a job worker for taskType on c.
func (c *Client) StartWorker(taskType string, handler JobHandler, opts WorkerOptions) *Worker {
	opts = opts.withDefaults()

	builder := c.client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(opts.MaxJobsActive).
		Concurrency(opts.Concurrency).
		Timeout(opts.Timeout)
	if opts.Name != "" {
		builder = builder.Name(opts.Name)
	}

	log := c.logger.WithFields(map[string]interface{}{"taskType": taskType})
	log.Info("Worker started", map[string]interface{}{
		"maxJobsActive": opts.MaxJobsActive,
		"concurrency":   opts.Concurrency,
		"timeoutMs":     opts.Timeout.Milliseconds(),
	})

	return &Worker{worker: builder.Open(), logger: log, taskType: taskType}
}

// Stop closes the subscription and waits for in-flight jobs.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
