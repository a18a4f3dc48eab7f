package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest known close for a resolved symbol.
type Quote struct {
	Symbol string
	Price  decimal.Decimal
	Date   time.Time
}

// identifierSuffixes are tried in order of probability for European
// funds/ETFs whose ISIN alone does not resolve on Yahoo.
var identifierSuffixes = []string{"", ".F", ".MC", ".MI", ".L"}

type YahooChartClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewYahooChartClient() *YahooChartClient {
	return &YahooChartClient{
		baseURL:    "https://query1.finance.yahoo.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchLatest tries the identifier with each suffix variant until one
// yields data. range=5d makes sure the last close is found even across a
// weekend.
func (c *YahooChartClient) FetchLatest(ctx context.Context, identifier string) (*Quote, error) {
	for _, suffix := range identifierSuffixes {
		symbol := identifier + suffix
		quote, err := c.fetchChart(ctx, symbol)
		if err != nil {
			continue
		}
		return quote, nil
	}
	return nil, fmt.Errorf("no market data found for %s", identifier)
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *YahooChartClient) fetchChart(ctx context.Context, symbol string) (*Quote, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=5d&interval=1d", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "PortfolioTracker/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error querying chart API for %s: %s", symbol, resp.Status)
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	result := parsed.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] == nil || i >= len(result.Timestamp) {
			continue
		}
		return &Quote{
			Symbol: symbol,
			Price:  decimal.NewFromFloat(*closes[i]),
			Date:   time.Unix(result.Timestamp[i], 0).UTC(),
		}, nil
	}
	return nil, fmt.Errorf("no close prices for %s", symbol)
}
