package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/interfaces"
)

const (
	chunkSize    = 1000
	chunkOverlap = 200
)

// DocumentChunk is one stored slice of an ingested report.
type DocumentChunk struct {
	ID         string `badgerhold:"key"`
	Company    string `badgerhold:"index"` // lowercase name key
	ReportType string
	DocID      string
	Index      int
	Text       string
	CreatedAt  time.Time
}

// DocumentIndex is a BadgerHold-backed retrieval index over report text,
// tagged by company. Contents persist across process restarts.
type DocumentIndex struct {
	store  *badgerhold.Store
	logger *common.Logger
}

// NewDocumentIndex opens (or creates) the index at path.
func NewDocumentIndex(path string, logger *common.Logger) (*DocumentIndex, error) {
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil // Disable badger's internal logging

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open document index: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Document index opened")

	return &DocumentIndex{
		store:  store,
		logger: logger,
	}, nil
}

// Close closes the underlying store.
func (idx *DocumentIndex) Close() error {
	if idx.store != nil {
		return idx.store.Close()
	}
	return nil
}

// Ingest splits text into overlapping chunks and stores them for the company.
func (idx *DocumentIndex) Ingest(ctx context.Context, text, companyName, reportType, docID string) error {
	company := companyKey(companyName)
	chunks := SplitText(text, chunkSize, chunkOverlap)

	for i, chunk := range chunks {
		dc := &DocumentChunk{
			ID:         fmt.Sprintf("%s_chunk_%d", docID, i),
			Company:    company,
			ReportType: reportType,
			DocID:      docID,
			Index:      i,
			Text:       chunk,
			CreatedAt:  time.Now(),
		}
		if err := idx.store.Upsert(dc.ID, dc); err != nil {
			return fmt.Errorf("failed to store chunk %d: %w", i, err)
		}
	}

	idx.logger.Info().Str("company", company).Str("doc_id", docID).Int("chunks", len(chunks)).Msg("Document ingested")
	return nil
}

// Query ranks the company's chunks by term overlap with the question and
// returns the top k joined as one context string, empty when nothing matches.
func (idx *DocumentIndex) Query(ctx context.Context, question, companyName string, k int) (string, error) {
	company := companyKey(companyName)

	var chunks []DocumentChunk
	if err := idx.store.Find(&chunks, badgerhold.Where("Company").Eq(company).Index("Company")); err != nil {
		return "", fmt.Errorf("failed to query chunks: %w", err)
	}
	if len(chunks) == 0 {
		return "", nil
	}

	terms := queryTerms(question)

	type scored struct {
		chunk DocumentChunk
		score int
	}
	ranked := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		s := overlapScore(c.Text, terms)
		if s > 0 {
			ranked = append(ranked, scored{chunk: c, score: s})
		}
	}
	if len(ranked) == 0 {
		return "", nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].chunk.Index < ranked[j].chunk.Index
	})

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}

	parts := make([]string, len(ranked))
	for i, r := range ranked {
		parts[i] = r.chunk.Text
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}

// ClearCompany removes all stored chunks for a company.
func (idx *DocumentIndex) ClearCompany(ctx context.Context, companyName string) error {
	company := companyKey(companyName)
	if err := idx.store.DeleteMatching(&DocumentChunk{}, badgerhold.Where("Company").Eq(company).Index("Company")); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	return nil
}

func companyKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// splitSeparators in preference order: paragraph, line, sentence, word.
var splitSeparators = []string{"\n\n", "\n", ". ", " "}

// SplitText cuts text into chunks of at most size runes, overlapping by
// overlap, preferring to break at paragraph/sentence boundaries.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		cut := end
		segment := text[start:end]
		for _, sep := range splitSeparators {
			if i := strings.LastIndex(segment, sep); i > size/2 {
				cut = start + i + len(sep)
				break
			}
		}

		chunk := strings.TrimSpace(text[start:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// queryTerms lowercases and tokenizes a question, dropping short tokens.
func queryTerms(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]bool, len(fields))
	var terms []string
	for _, f := range fields {
		if len(f) < 3 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// overlapScore counts distinct query terms present in the chunk text.
func overlapScore(text string, terms []string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			score++
		}
	}
	return score
}

// Ensure DocumentIndex implements the interface
var _ interfaces.DocumentIndex = (*DocumentIndex)(nil)
