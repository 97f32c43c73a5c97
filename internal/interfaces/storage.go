package interfaces

import (
	"context"

	"github.com/bobmcallan/contra/internal/models"
)

// TickerStore answers lookups over the tabular company dataset. The dataset
// is loaded once at startup and immutable thereafter; lookups on an empty
// store return not-found/empty results, never an error.
type TickerStore interface {
	// GetDetails returns the record for an exact case-insensitive name match
	GetDetails(name string) (*models.CompanyRecord, bool)

	// Search returns up to limit names containing the query substring
	Search(query string, limit int) []string

	// FindPeers returns up to limit records whose industry P/E lies within
	// ±0.1 of industryPE, excluding excludeName, market-cap descending
	FindPeers(industryPE float64, excludeName string, limit int) []*models.CompanyRecord

	// Count returns the number of loaded records
	Count() int
}

// DocumentIndex stores report text chunks tagged by company and answers
// relevance queries. Contents persist across process restarts.
type DocumentIndex interface {
	// Ingest splits text into chunks and stores them for the company
	Ingest(ctx context.Context, text, companyName, reportType, docID string) error

	// Query returns up to k relevant chunks joined as one context string,
	// empty string when nothing matches
	Query(ctx context.Context, question, companyName string, k int) (string, error)

	// ClearCompany removes all stored chunks for a company
	ClearCompany(ctx context.Context, companyName string) error

	// Close releases the underlying store
	Close() error
}

// JobStore is the process-wide job registry. Reads return copies so a poller
// never observes a partially updated record; job state is in-memory only and
// lost on restart.
type JobStore interface {
	// Create registers a new job
	Create(job *models.AnalysisJob)

	// Get returns a copy of the job
	Get(id string) (*models.AnalysisJob, bool)

	// Update applies fn to the job under the store lock
	Update(id string, fn func(*models.AnalysisJob)) bool

	// Cancel marks the job cancelled; observed at the next stage boundary
	Cancel(id string) bool

	// IsCancelled reports whether the job has been cancelled
	IsCancelled(id string) bool
}
