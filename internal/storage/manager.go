package storage

import (
	"fmt"
	"os"

	"github.com/bobmcallan/contra/internal/common"
)

// Manager owns the three storage areas: the immutable ticker dataset, the
// persistent document index, and the in-memory job registry. Constructed
// once per process and passed to consumers.
type Manager struct {
	tickers *TickerStore
	index   *DocumentIndex
	jobs    *JobStore
	logger  *common.Logger
}

// NewManager initializes all storage areas from config. The ticker dataset
// is loaded here, once; a missing file is logged and leaves the store empty.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	tickers := NewTickerStore(logger)
	tickers.Load(config.Storage.TickerFile)

	index, err := NewDocumentIndex(config.Storage.IndexPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document index: %w", err)
	}

	if err := os.MkdirAll(config.Storage.UploadDir, 0o755); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	return &Manager{
		tickers: tickers,
		index:   index,
		jobs:    NewJobStore(),
		logger:  logger,
	}, nil
}

// TickerStore returns the company dataset.
func (m *Manager) TickerStore() *TickerStore {
	return m.tickers
}

// DocumentIndex returns the retrieval index.
func (m *Manager) DocumentIndex() *DocumentIndex {
	return m.index
}

// JobStore returns the job registry.
func (m *Manager) JobStore() *JobStore {
	return m.jobs
}

// Close releases held resources.
func (m *Manager) Close() error {
	if m.index != nil {
		return m.index.Close()
	}
	return nil
}
