// Package interfaces defines client and service contracts for Contra
package interfaces

import (
	"context"

	"github.com/bobmcallan/contra/internal/models"
)

// GeminiClient provides access to the Gemini API. It is the sole point of
// contact with the LLM across the pipeline; rate-limit retries with bounded
// exponential backoff happen inside the client.
type GeminiClient interface {
	// GenerateContent generates AI content from a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// NewsClient provides access to a news source
type NewsClient interface {
	// FetchRecent retrieves recent articles mentioning the company
	FetchRecent(ctx context.Context, companyName string) ([]*models.NewsArticle, error)
}
