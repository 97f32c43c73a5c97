// Package storage provides the ticker dataset, document index, and job
// registry for Contra
package storage

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/interfaces"
	"github.com/bobmcallan/contra/internal/models"
)

// IndustryPETolerance is the window for industry-P/E peer discovery.
const IndustryPETolerance = 0.1

// TickerStore holds the tabular company dataset in memory. Loaded once at
// startup and immutable thereafter; a missing or malformed source leaves the
// store empty and every lookup returns not-found/empty rather than an error.
type TickerStore struct {
	records []*models.CompanyRecord
	byName  map[string]*models.CompanyRecord
	logger  *common.Logger
}

// NewTickerStore creates an empty store.
func NewTickerStore(logger *common.Logger) *TickerStore {
	return &TickerStore{
		byName: make(map[string]*models.CompanyRecord),
		logger: logger,
	}
}

// Load parses the CSV dataset into memory. Errors are logged, not returned:
// the store simply stays empty.
func (s *TickerStore) Load(path string) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Error().Str("path", path).Err(err).Msg("Ticker dataset not found, store will be empty")
		return
	}
	defer f.Close()

	s.LoadFrom(f, path)
}

// LoadFrom parses CSV rows from r. The name describes the source in logs.
func (s *TickerStore) LoadFrom(r io.Reader, name string) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		s.logger.Error().Str("source", name).Err(err).Msg("Failed to read ticker dataset header")
		return
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	if _, ok := cols["Name"]; !ok {
		s.logger.Error().Str("source", name).Msg("Ticker dataset missing required Name column")
		return
	}

	field := func(row []string, col string) string {
		idx, ok := cols[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn().Str("source", name).Err(err).Msg("Skipping malformed row")
			continue
		}

		companyName := strings.TrimSpace(field(row, "Name"))
		if companyName == "" {
			continue
		}

		rec := &models.CompanyRecord{
			Name:          companyName,
			CurrentPrice:  ParseNumeric(field(row, "LTP")),
			MarketCap:     ParseNumeric(field(row, "Market Cap (Cr.)")),
			PERatio:       ParseNumeric(field(row, "PE Ratio")),
			IndustryPE:    ParseNumeric(field(row, "Industry PE")),
			ROE:           ParseNumeric(field(row, "ROE")),
			ROCE:          ParseNumeric(field(row, "ROCE")),
			EPS:           ParseNumeric(field(row, "EPS")),
			PBRatio:       ParseNumeric(field(row, "PB Ratio")),
			Dividend:      ParseNumeric(field(row, "Dividend")),
			DividendYield: ParseNumeric(field(row, "Dividend Yield")),
			Returns1M:     ParseNumeric(field(row, "1M Returns")),
			Returns3M:     ParseNumeric(field(row, "3M Returns")),
			Returns1Y:     ParseNumeric(field(row, "1 Yr Returns")),
			Returns3Y:     ParseNumeric(field(row, "3 Yr Returns")),
			Returns5Y:     ParseNumeric(field(row, "5 Yr Returns")),
			DMA50:         ParseNumeric(field(row, "50 DMA")),
			DMA200:        ParseNumeric(field(row, "200 DMA")),
			RSI:           ParseNumeric(field(row, "RSI")),
		}

		s.records = append(s.records, rec)
		s.byName[strings.ToLower(companyName)] = rec
	}

	s.logger.Info().Str("source", name).Int("tickers", len(s.records)).Msg("Ticker dataset loaded")
}

// ParseNumeric normalizes a raw cell value to a float: thousands separators,
// percent signs, and surrounding whitespace are stripped; anything that still
// fails to parse becomes 0.0.
func ParseNumeric(raw string) float64 {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "%", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0.0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0.0
	}
	return v
}

// GetDetails returns the record for an exact case-insensitive name match.
func (s *TickerStore) GetDetails(name string) (*models.CompanyRecord, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, false
	}
	rec, ok := s.byName[key]
	return rec, ok
}

// Search returns up to limit names containing the query substring,
// case-insensitive, in dataset order.
func (s *TickerStore) Search(query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return nil
	}

	var names []string
	for _, rec := range s.records {
		if strings.Contains(strings.ToLower(rec.Name), query) {
			names = append(names, rec.Name)
			if len(names) >= limit {
				break
			}
		}
	}
	return names
}

// FindPeers returns up to limit records whose industry P/E lies within the
// tolerance window of industryPE, excluding excludeName, sorted by market
// capitalization descending.
func (s *TickerStore) FindPeers(industryPE float64, excludeName string, limit int) []*models.CompanyRecord {
	if industryPE == 0 || limit <= 0 {
		return nil
	}
	exclude := strings.ToLower(strings.TrimSpace(excludeName))

	var peers []*models.CompanyRecord
	for _, rec := range s.records {
		if rec.IndustryPE < industryPE-IndustryPETolerance || rec.IndustryPE > industryPE+IndustryPETolerance {
			continue
		}
		if strings.ToLower(rec.Name) == exclude {
			continue
		}
		peers = append(peers, rec)
	}

	sort.SliceStable(peers, func(i, j int) bool {
		return peers[i].MarketCap > peers[j].MarketCap
	})

	if len(peers) > limit {
		peers = peers[:limit]
	}
	return peers
}

// Count returns the number of loaded records.
func (s *TickerStore) Count() int {
	return len(s.records)
}

// Ensure TickerStore implements the interface
var _ interfaces.TickerStore = (*TickerStore)(nil)
