package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/models"
	"github.com/bobmcallan/contra/internal/storage"
)

type fakeNewsService struct {
	called bool
	onCall func()
}

func (f *fakeNewsService) Analyze(ctx context.Context, companyName string) *models.NewsSentiment {
	f.called = true
	if f.onCall != nil {
		f.onCall()
	}
	return &models.NewsSentiment{Score: -3, SeverityScore: 4, PanicLevel: models.PanicLow}
}

type fakeFundamentalService struct {
	ingestErr     error
	ingestCalled  bool
	analyzeCalled bool
	panicOnIngest bool
}

func (f *fakeFundamentalService) Ingest(ctx context.Context, path, companyName, reportType, docID string) error {
	f.ingestCalled = true
	if f.panicOnIngest {
		panic("corrupt upload state")
	}
	return f.ingestErr
}

func (f *fakeFundamentalService) Analyze(ctx context.Context, companyName string) *models.FundamentalMetrics {
	f.analyzeCalled = true
	return &models.FundamentalMetrics{Sector: "Banking", HealthScore: 7}
}

type fakePeerService struct {
	called     bool
	gotMetrics *models.FundamentalMetrics
	gotManual  []string
}

func (f *fakePeerService) Analyze(ctx context.Context, companyName string, target *models.FundamentalMetrics, manualPeers []string) *models.PeerComparison {
	f.called = true
	f.gotMetrics = target
	f.gotManual = manualPeers
	return &models.PeerComparison{CompetitivePosition: models.PositionLeader, RelativeStrength: 7}
}

type fakeSignalService struct {
	called bool
}

func (f *fakeSignalService) Synthesize(ctx context.Context, news *models.NewsSentiment, fundamentals *models.FundamentalMetrics, peers *models.PeerComparison) *models.ContrarianSignal {
	f.called = true
	return &models.ContrarianSignal{SignalType: models.SignalBuy, SignalStrength: 6, Confidence: models.ConfidenceMedium}
}

type coordinatorHarness struct {
	jobs         *storage.JobStore
	news         *fakeNewsService
	fundamentals *fakeFundamentalService
	peers        *fakePeerService
	signal       *fakeSignalService
	coordinator  *Coordinator
}

func newHarness() *coordinatorHarness {
	h := &coordinatorHarness{
		jobs:         storage.NewJobStore(),
		news:         &fakeNewsService{},
		fundamentals: &fakeFundamentalService{},
		peers:        &fakePeerService{},
		signal:       &fakeSignalService{},
	}
	h.coordinator = NewCoordinator(h.jobs, h.news, h.fundamentals, h.peers, h.signal, common.NewSilentLogger())
	return h
}

func (h *coordinatorHarness) create(id, company string) Request {
	req := Request{JobID: id, CompanyName: company, ReportType: models.ReportTypeAnnual, ReportPath: "/tmp/report.pdf"}
	h.jobs.Create(&models.AnalysisJob{
		ID:          req.JobID,
		CompanyName: req.CompanyName,
		ReportType:  req.ReportType,
		Status:      models.JobStatusQueued,
		CurrentStep: models.StepQueued,
	})
	return req
}

func TestRunCompletesJob(t *testing.T) {
	h := newHarness()
	req := h.create("job-1", "Tata Motors")
	req.ManualPeers = []string{"Maruti Suzuki"}

	h.coordinator.Run(context.Background(), req)

	job, ok := h.jobs.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, models.ProgressDone, job.Progress)
	assert.Equal(t, models.StepDone, job.CurrentStep)
	assert.Empty(t, job.Error)

	require.NotNil(t, job.Result)
	assert.Equal(t, "Tata Motors", job.Result.CompanyName)
	assert.NotNil(t, job.Result.News)
	assert.NotNil(t, job.Result.Fundamentals)
	assert.NotNil(t, job.Result.Peers)
	assert.NotNil(t, job.Result.Signal)

	assert.True(t, h.news.called)
	assert.True(t, h.fundamentals.analyzeCalled)
	assert.True(t, h.peers.called)
	assert.True(t, h.signal.called)
	assert.Equal(t, []string{"Maruti Suzuki"}, h.peers.gotManual)
	assert.Equal(t, "Banking", h.peers.gotMetrics.Sector, "fundamentals output feeds the peer stage")
}

func TestRunIngestFailureFailsJobVerbatim(t *testing.T) {
	h := newHarness()
	h.fundamentals.ingestErr = errors.New("failed to extract report text: open /tmp/report.pdf: no such file or directory")
	req := h.create("job-2", "Tata Motors")

	h.coordinator.Run(context.Background(), req)

	job, _ := h.jobs.Get("job-2")
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, h.fundamentals.ingestErr.Error(), job.Error)
	assert.Nil(t, job.Result)
	assert.False(t, h.news.called, "no stage runs after an infrastructure failure")
}

func TestRunCancellationBetweenStages(t *testing.T) {
	h := newHarness()
	req := h.create("job-3", "Tata Motors")

	// Cancel while the news stage is in flight; observed at the next
	// stage boundary.
	h.news.onCall = func() { h.jobs.Cancel("job-3") }

	h.coordinator.Run(context.Background(), req)

	job, _ := h.jobs.Get("job-3")
	assert.Equal(t, models.JobStatusCancelled, job.Status)
	assert.Nil(t, job.Result)
	assert.True(t, h.news.called)
	assert.False(t, h.fundamentals.analyzeCalled, "stages after the cancellation point must not run")
	assert.False(t, h.peers.called)
	assert.False(t, h.signal.called)
}

func TestRunCancelledBeforeStartSkipsStages(t *testing.T) {
	h := newHarness()
	req := h.create("job-4", "Tata Motors")
	h.jobs.Cancel("job-4")

	h.coordinator.Run(context.Background(), req)

	job, _ := h.jobs.Get("job-4")
	assert.Equal(t, models.JobStatusCancelled, job.Status)
	assert.Nil(t, job.Result)
	assert.False(t, h.fundamentals.ingestCalled, "cancelled jobs must not touch the upload")
	assert.False(t, h.news.called)
	assert.False(t, h.fundamentals.analyzeCalled)
	assert.False(t, h.peers.called)
	assert.False(t, h.signal.called)
}

func TestRunPanicFailsJob(t *testing.T) {
	h := newHarness()
	h.fundamentals.panicOnIngest = true
	req := h.create("job-5", "Tata Motors")

	h.coordinator.Run(context.Background(), req)

	job, _ := h.jobs.Get("job-5")
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "corrupt upload state", job.Error)
}

func TestRunProgressMonotonic(t *testing.T) {
	h := newHarness()
	req := h.create("job-6", "Tata Motors")

	var seen []int
	last := -1
	h.news.onCall = func() {
		job, _ := h.jobs.Get("job-6")
		seen = append(seen, job.Progress)
	}

	h.coordinator.Run(context.Background(), req)

	job, _ := h.jobs.Get("job-6")
	seen = append(seen, job.Progress)
	for _, p := range seen {
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
	assert.Equal(t, models.ProgressDone, job.Progress)
}

func TestSubmitRegistersQueuedJob(t *testing.T) {
	h := newHarness()
	h.fundamentals.ingestErr = errors.New("boom")

	h.coordinator.Submit(context.Background(), Request{JobID: "job-7", CompanyName: "Infosys", ReportType: models.ReportTypeQuarterly})

	job, ok := h.jobs.Get("job-7")
	require.True(t, ok)
	assert.Equal(t, "Infosys", job.CompanyName)
	assert.Equal(t, models.ReportTypeQuarterly, job.ReportType)
}
