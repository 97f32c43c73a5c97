// Package news scores recent news sentiment and severity for a company.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/interfaces"
	"github.com/bobmcallan/contra/internal/models"
)

// maxPromptArticles caps how many articles feed the sentiment prompt.
const maxPromptArticles = 25

// Service implements NewsService
type Service struct {
	news   interfaces.NewsClient
	gemini interfaces.GeminiClient
	logger *common.Logger
}

// NewService creates a new news sentiment service
func NewService(news interfaces.NewsClient, gemini interfaces.GeminiClient, logger *common.Logger) *Service {
	return &Service{
		news:   news,
		gemini: gemini,
		logger: logger,
	}
}

// Analyze fetches recent articles and scores them. It always returns a
// populated result: no articles yields a fixed neutral result without an LLM
// call, and any LLM or parse failure degrades to a zero result carrying the
// error as its sole theme.
func (s *Service) Analyze(ctx context.Context, companyName string) *models.NewsSentiment {
	articles, err := s.news.FetchRecent(ctx, companyName)
	if err != nil {
		s.logger.Warn().Str("company", companyName).Err(err).Msg("News fetch failed, treating as no news")
		articles = nil
	}

	if len(articles) == 0 {
		return &models.NewsSentiment{
			Score:      0,
			KeyThemes:  []string{"No recent news found"},
			Headlines:  []models.Headline{},
			PanicLevel: models.PanicLow,
		}
	}

	if len(articles) > maxPromptArticles {
		articles = articles[:maxPromptArticles]
	}

	prompt := buildSentimentPrompt(companyName, articles)
	response, err := s.gemini.GenerateContent(ctx, prompt)
	if err != nil {
		s.logger.Warn().Str("company", companyName).Err(err).Msg("News sentiment generation failed")
		return failureResult(err)
	}

	sentiment := parseSentimentResponse(response)
	if sentiment == nil {
		s.logger.Warn().Str("company", companyName).Msg("Failed to parse news sentiment response")
		return failureResult(fmt.Errorf("unparseable sentiment response"))
	}

	if len(sentiment.Headlines) == 0 {
		// Model omitted per-headline tags; fall back to tagging every
		// fetched title neutral.
		for _, a := range articles {
			sentiment.Headlines = append(sentiment.Headlines, models.Headline{
				Title:     a.Title,
				Sentiment: models.SentimentNeutral,
			})
		}
	}
	orderHeadlines(sentiment.Headlines)

	return sentiment
}

func failureResult(err error) *models.NewsSentiment {
	return &models.NewsSentiment{
		Score:      0,
		KeyThemes:  []string{err.Error()},
		Headlines:  []models.Headline{},
		PanicLevel: models.PanicLow,
	}
}

// orderHeadlines sorts positive-tagged headlines first, negative next,
// neutral last, stable on ties.
func orderHeadlines(headlines []models.Headline) {
	rank := func(sentiment string) int {
		switch sentiment {
		case models.SentimentPositive:
			return 0
		case models.SentimentNegative:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(headlines, func(i, j int) bool {
		return rank(headlines[i].Sentiment) < rank(headlines[j].Sentiment)
	})
}

// buildSentimentPrompt creates the sentiment/severity prompt.
func buildSentimentPrompt(companyName string, articles []*models.NewsArticle) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are a financial news analyst. Analyze recent news coverage of %s.\n\nRecent articles:\n", companyName))
	for i, a := range articles {
		date := a.PublishedAt.Format("2006-01-02")
		sb.WriteString(fmt.Sprintf("%d. \"%s\" - %s (%s)", i+1, a.Title, a.Source, date))
		if a.Description != "" {
			sb.WriteString(fmt.Sprintf(" - %s", a.Description))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`
Provide an aggregate sentiment assessment. Return ONLY valid JSON:
{
  "score": -3,
  "positive_count": 0,
  "negative_count": 0,
  "neutral_count": 0,
  "key_themes": ["theme1", "theme2"],
  "headlines": [
    {"title": "headline text", "sentiment": "positive|negative|neutral"}
  ],
  "panic_level": "low|medium|high",
  "severity_score": 0,
  "severity_reason": "One sentence explaining the severity rating"
}

Rules:
- "score" is the overall sentiment from -10 (very negative) to 10 (very positive)
- Tag every input headline with a sentiment label
- "panic_level" reflects market overreaction risk, not how bad the news is
- "severity_score" rates existential threat to company viability, 0-10, independent of sentiment:
  - 10: fraud, regulatory raid, bankruptcy, executive arrest
  - 7-9: major regulatory action or operational crisis
  - 4-6: routine bad results, guidance cuts
  - 0-3: noise, routine coverage
- Return ONLY the JSON object, no markdown code fences, no explanation`)

	return sb.String()
}

// sentimentResponse is the expected JSON shape from Gemini.
type sentimentResponse struct {
	Score         int      `json:"score"`
	PositiveCount int      `json:"positive_count"`
	NegativeCount int      `json:"negative_count"`
	NeutralCount  int      `json:"neutral_count"`
	KeyThemes     []string `json:"key_themes"`
	Headlines     []struct {
		Title     string `json:"title"`
		Sentiment string `json:"sentiment"`
	} `json:"headlines"`
	PanicLevel     string `json:"panic_level"`
	SeverityScore  int    `json:"severity_score"`
	SeverityReason string `json:"severity_reason"`
}

// parseSentimentResponse parses Gemini's JSON response into a NewsSentiment.
func parseSentimentResponse(response string) *models.NewsSentiment {
	response = common.StripCodeFences(response)

	var data sentimentResponse
	if err := json.Unmarshal([]byte(response), &data); err != nil {
		return nil
	}

	panicLevel := data.PanicLevel
	switch panicLevel {
	case models.PanicLow, models.PanicMedium, models.PanicHigh:
	default:
		panicLevel = models.PanicLow
	}

	headlines := make([]models.Headline, 0, len(data.Headlines))
	for _, h := range data.Headlines {
		headlines = append(headlines, models.Headline{Title: h.Title, Sentiment: h.Sentiment})
	}

	return &models.NewsSentiment{
		Score:          clampInt(data.Score, -10, 10),
		PositiveCount:  data.PositiveCount,
		NegativeCount:  data.NegativeCount,
		NeutralCount:   data.NeutralCount,
		KeyThemes:      data.KeyThemes,
		Headlines:      headlines,
		PanicLevel:     panicLevel,
		SeverityScore:  clampInt(data.SeverityScore, 0, 10),
		SeverityReason: data.SeverityReason,
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
