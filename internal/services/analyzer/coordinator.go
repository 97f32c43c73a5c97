// Package analyzer drives the four-stage analysis pipeline per job.
package analyzer

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/interfaces"
	"github.com/bobmcallan/contra/internal/models"
)

// Request describes one submitted analysis run.
type Request struct {
	JobID       string
	CompanyName string
	ReportType  string
	ReportPath  string
	ManualPeers []string
}

// Coordinator runs the news, fundamentals, peers and signal stages in
// sequence per job, tracking progress and observing cancellation at stage
// boundaries. Stages degrade internally; the only path to a failed job is an
// infrastructure fault such as an unreadable upload.
type Coordinator struct {
	jobs         interfaces.JobStore
	news         interfaces.NewsService
	fundamentals interfaces.FundamentalService
	peers        interfaces.PeerService
	signal       interfaces.SignalService
	logger       *common.Logger
}

// NewCoordinator creates a new pipeline coordinator
func NewCoordinator(
	jobs interfaces.JobStore,
	news interfaces.NewsService,
	fundamentals interfaces.FundamentalService,
	peers interfaces.PeerService,
	signal interfaces.SignalService,
	logger *common.Logger,
) *Coordinator {
	return &Coordinator{
		jobs:         jobs,
		news:         news,
		fundamentals: fundamentals,
		peers:        peers,
		signal:       signal,
		logger:       logger,
	}
}

// Submit registers a queued job and starts the pipeline on a background
// goroutine, returning immediately.
func (c *Coordinator) Submit(ctx context.Context, req Request) {
	c.jobs.Create(&models.AnalysisJob{
		ID:          req.JobID,
		CompanyName: req.CompanyName,
		ReportType:  req.ReportType,
		Status:      models.JobStatusQueued,
		CurrentStep: models.StepQueued,
	})

	go c.run(context.WithoutCancel(ctx), req)
}

// Run executes the pipeline synchronously. Exposed for the worker goroutine
// and for tests; callers normally go through Submit.
func (c *Coordinator) Run(ctx context.Context, req Request) {
	c.run(ctx, req)
}

func (c *Coordinator) run(ctx context.Context, req Request) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error().
				Str("job_id", req.JobID).
				Str("panic", fmt.Sprintf("%v", rec)).
				Str("stack", string(debug.Stack())).
				Msg("Panic recovered in analysis pipeline")
			c.fail(req.JobID, fmt.Sprintf("%v", rec))
		}
	}()

	start := time.Now()
	c.logger.Info().Str("job_id", req.JobID).Str("company", req.CompanyName).Msg("Analysis started")

	if c.cancelled(req.JobID) {
		return
	}
	c.update(req.JobID, func(j *models.AnalysisJob) {
		if j.Status != models.JobStatusQueued {
			return
		}
		j.Status = models.JobStatusRunning
		j.Progress = models.ProgressStarted
	})

	// Report ingestion is infrastructure work: a missing or unreadable
	// upload is the one fault that fails the job outright.
	if err := c.fundamentals.Ingest(ctx, req.ReportPath, req.CompanyName, req.ReportType, req.JobID); err != nil {
		c.logger.Error().Str("job_id", req.JobID).Err(err).Msg("Report ingestion failed")
		c.fail(req.JobID, err.Error())
		return
	}

	result := &models.AnalysisResult{
		CompanyName:  req.CompanyName,
		AnalysisDate: start,
	}

	if c.cancelled(req.JobID) {
		return
	}
	c.step(req.JobID, models.StepNews)
	result.News = c.news.Analyze(ctx, req.CompanyName)
	c.progress(req.JobID, models.ProgressNews)

	if c.cancelled(req.JobID) {
		return
	}
	c.step(req.JobID, models.StepFundamentals)
	result.Fundamentals = c.fundamentals.Analyze(ctx, req.CompanyName)
	c.progress(req.JobID, models.ProgressFundamentals)

	if c.cancelled(req.JobID) {
		return
	}
	c.step(req.JobID, models.StepPeers)
	result.Peers = c.peers.Analyze(ctx, req.CompanyName, result.Fundamentals, req.ManualPeers)
	c.progress(req.JobID, models.ProgressPeers)

	if c.cancelled(req.JobID) {
		return
	}
	c.step(req.JobID, models.StepSignal)
	result.Signal = c.signal.Synthesize(ctx, result.News, result.Fundamentals, result.Peers)
	c.progress(req.JobID, models.ProgressSignal)

	if c.cancelled(req.JobID) {
		return
	}
	c.update(req.JobID, func(j *models.AnalysisJob) {
		if j.Terminal() {
			return
		}
		j.Status = models.JobStatusCompleted
		j.CurrentStep = models.StepDone
		j.Progress = models.ProgressDone
		j.Result = result
	})

	c.logger.Info().
		Str("job_id", req.JobID).
		Str("company", req.CompanyName).
		Str("signal", result.Signal.SignalType).
		Dur("elapsed", time.Since(start)).
		Msg("Analysis completed")
}

func (c *Coordinator) cancelled(jobID string) bool {
	if c.jobs.IsCancelled(jobID) {
		c.logger.Info().Str("job_id", jobID).Msg("Job cancelled, halting pipeline")
		return true
	}
	return false
}

func (c *Coordinator) update(jobID string, fn func(*models.AnalysisJob)) {
	c.jobs.Update(jobID, fn)
}

func (c *Coordinator) step(jobID, step string) {
	c.update(jobID, func(j *models.AnalysisJob) {
		j.CurrentStep = step
	})
}

func (c *Coordinator) progress(jobID string, progress int) {
	c.update(jobID, func(j *models.AnalysisJob) {
		if progress > j.Progress {
			j.Progress = progress
		}
	})
}

func (c *Coordinator) fail(jobID, message string) {
	c.update(jobID, func(j *models.AnalysisJob) {
		if j.Terminal() {
			return
		}
		j.Status = models.JobStatusFailed
		j.Error = message
	})
}
