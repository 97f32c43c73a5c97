package interfaces

import (
	"context"

	"github.com/bobmcallan/contra/internal/models"
)

// NewsService scores news sentiment for a company. It always returns a
// populated result; external failures degrade to a documented neutral result.
type NewsService interface {
	Analyze(ctx context.Context, companyName string) *models.NewsSentiment
}

// FundamentalService extracts fundamental metrics from an uploaded report,
// merged against the ticker dataset.
type FundamentalService interface {
	// Ingest extracts text from the report file and stores it in the
	// document index. A missing or unreadable file is an infrastructure
	// failure and propagates.
	Ingest(ctx context.Context, path, companyName, reportType, docID string) error

	// Analyze produces the merged metrics. Never fails: LLM or lookup
	// problems degrade to neutral defaults with the failure surfaced as a
	// concern.
	Analyze(ctx context.Context, companyName string) *models.FundamentalMetrics
}

// PeerService assembles a bounded peer set and produces the comparative
// verdict. Partial results are preferable to none.
type PeerService interface {
	Analyze(ctx context.Context, companyName string, target *models.FundamentalMetrics, manualPeers []string) *models.PeerComparison
}

// SignalService synthesizes the final contrarian signal from the three stage
// outputs, enforcing the severity override deterministically.
type SignalService interface {
	Synthesize(ctx context.Context, news *models.NewsSentiment, fundamentals *models.FundamentalMetrics, peers *models.PeerComparison) *models.ContrarianSignal
}
