package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/marketreel/marketreel/validation"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Quote is the latest trade snapshot for a symbol.
type Quote struct {
	Symbol    string
	Name      string
	Currency  string
	Price     decimal.Decimal
	PrevClose decimal.Decimal
}

// Candle is one day of closing data.
type Candle struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// NewsItem is a headline attached to a symbol.
type NewsItem struct {
	Title     string
	Link      string
	Publisher string
	Published time.Time
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				ShortName          string  `json:"shortName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []float64 `json:"open"`
					High  []float64 `json:"high"`
					Low   []float64 `json:"low"`
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Link                string `json:"link"`
		Publisher           string `json:"publisher"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("status %d from %s", resp.StatusCode, rawURL)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) chart(ctx context.Context, symbol, yahooRange string) (*chartResponse, error) {
	if err := validation.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	rawURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		c.BaseURL, url.PathEscape(symbol), yahooRange)

	var apiResp chartResponse
	if err := c.getJSON(ctx, rawURL, &apiResp); err != nil {
		return nil, errors.Wrapf(err, "fetching chart for %s", symbol)
	}
	if apiResp.Chart.Error != nil {
		return nil, errors.Errorf("chart error for %s: %s", symbol, apiResp.Chart.Error.Description)
	}
	if len(apiResp.Chart.Result) == 0 {
		return nil, errors.Errorf("no chart data for %s", symbol)
	}
	return &apiResp, nil
}

// Quote fetches the latest price snapshot for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	apiResp, err := c.chart(ctx, symbol, "1d")
	if err != nil {
		return nil, err
	}

	meta := apiResp.Chart.Result[0].Meta
	name := meta.ShortName
	if name == "" {
		name = symbol
	}

	return &Quote{
		Symbol:    meta.Symbol,
		Name:      name,
		Currency:  meta.Currency,
		Price:     decimal.NewFromFloat(meta.RegularMarketPrice).Round(2),
		PrevClose: decimal.NewFromFloat(meta.PreviousClose).Round(2),
	}, nil
}

// History fetches daily candles for a symbol over a Yahoo range such as
// "1mo" or "3mo". Days with a zero close are skipped.
func (c *Client) History(ctx context.Context, symbol, yahooRange string) ([]Candle, error) {
	apiResp, err := c.chart(ctx, symbol, yahooRange)
	if err != nil {
		return nil, err
	}

	result := apiResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, errors.Errorf("no quote data for %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	var candles []Candle
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue
		}
		candle := Candle{
			Date:  time.Unix(ts, 0),
			Close: quote.Close[i],
		}
		if i < len(quote.Open) {
			candle.Open = quote.Open[i]
		}
		if i < len(quote.High) {
			candle.High = quote.High[i]
		}
		if i < len(quote.Low) {
			candle.Low = quote.Low[i]
		}
		candles = append(candles, candle)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Date.Before(candles[j].Date)
	})

	return candles, nil
}

// News returns recent headlines mentioning the symbol.
func (c *Client) News(ctx context.Context, symbol string) ([]NewsItem, error) {
	if err := validation.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	rawURL := fmt.Sprintf("%s/v1/finance/search?q=%s&newsCount=5&quotesCount=0",
		c.BaseURL, url.QueryEscape(symbol))

	var apiResp searchResponse
	if err := c.getJSON(ctx, rawURL, &apiResp); err != nil {
		return nil, errors.Wrapf(err, "fetching news for %s", symbol)
	}

	items := make([]NewsItem, 0, len(apiResp.News))
	for _, n := range apiResp.News {
		if n.Title == "" {
			continue
		}
		items = append(items, NewsItem{
			Title:     n.Title,
			Link:      n.Link,
			Publisher: n.Publisher,
			Published: time.Unix(n.ProviderPublishTime, 0),
		})
	}
	return items, nil
}
