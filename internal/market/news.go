package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// NewsClient fetches company headlines from Finnhub. A client with no API
// key is valid and returns no headlines, so news stays optional.
type NewsClient struct {
	client *resty.Client
	apiKey string
}

func NewNewsClient(apiKey string) *NewsClient {
	client := resty.New()
	client.SetBaseURL(finnhubBaseURL)
	client.SetTimeout(30 * time.Second)

	return &NewsClient{
		client: client,
		apiKey: apiKey,
	}
}

type finnhubArticle struct {
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

// CompanyNews returns up to limit recent headlines for a symbol, covering
// the trailing week.
func (c *NewsClient) CompanyNews(ctx context.Context, symbol string, limit int) ([]Headline, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	to := time.Now()
	from := to.AddDate(0, 0, -7)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
			"token":  c.apiKey,
		}).
		Get("/company-news")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("news API error %d for %s", resp.StatusCode(), symbol)
	}

	var articles []finnhubArticle
	if err := json.Unmarshal(resp.Body(), &articles); err != nil {
		return nil, fmt.Errorf("failed to parse news response for %s: %w", symbol, err)
	}

	headlines := make([]Headline, 0, limit)
	for _, article := range articles {
		if article.Headline == "" {
			continue
		}
		headlines = append(headlines, Headline{
			Title:       article.Headline,
			Source:      article.Source,
			URL:         article.URL,
			PublishedAt: time.Unix(article.DateTime, 0).UTC(),
		})
		if len(headlines) == limit {
			break
		}
	}
	return headlines, nil
}
