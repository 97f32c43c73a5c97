package models

import "time"

// NewsArticle is a single article returned by the news source.
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Headline sentiment labels
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Headline is a single article title with its LLM-assigned sentiment label.
type Headline struct {
	Title     string `json:"title"`
	Sentiment string `json:"sentiment"`
}

// Panic level labels
const (
	PanicLow    = "low"
	PanicMedium = "medium"
	PanicHigh   = "high"
)

// NewsSentiment is the aggregate sentiment analysis for a company,
// created once per analysis job and immutable after creation.
type NewsSentiment struct {
	Score          int        `json:"score"` // -10..10
	PositiveCount  int        `json:"positive_count"`
	NegativeCount  int        `json:"negative_count"`
	NeutralCount   int        `json:"neutral_count"`
	KeyThemes      []string   `json:"key_themes"`
	Headlines      []Headline `json:"headlines"` // positive first, then negative, neutral last
	PanicLevel     string     `json:"panic_level"`
	SeverityScore  int        `json:"severity_score"` // 0..10, independent of polarity
	SeverityReason string     `json:"severity_reason"`
}
